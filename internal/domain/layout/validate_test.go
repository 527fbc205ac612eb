package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTypes = map[string]TypeDescriptor{
	"t_uint256":         {Label: "uint256", Encoding: "inplace", NumberOfBytes: 32},
	"t_uint128":         {Label: "uint128", Encoding: "inplace", NumberOfBytes: 16},
	"t_uint64":          {Label: "uint64", Encoding: "inplace", NumberOfBytes: 8},
	"t_int128":          {Label: "int128", Encoding: "inplace", NumberOfBytes: 16},
	"t_int256":          {Label: "int256", Encoding: "inplace", NumberOfBytes: 32},
	"t_bool":            {Label: "bool", Encoding: "inplace", NumberOfBytes: 1},
	"t_address":         {Label: "address", Encoding: "inplace", NumberOfBytes: 20},
	"t_address_payable": {Label: "address payable", Encoding: "inplace", NumberOfBytes: 20},
	"t_contract(IERC20)42": {
		Label: "contract IERC20", Encoding: "inplace", NumberOfBytes: 20,
	},
	"t_string_storage": {Label: "string", Encoding: "bytes", NumberOfBytes: 32},
	"t_mapping(t_address,t_uint256)": {
		Label: "mapping(address => uint256)", Encoding: "mapping", NumberOfBytes: 32,
		Key: "t_address", Value: "t_uint256",
	},
	"t_mapping(t_address,t_bool)": {
		Label: "mapping(address => bool)", Encoding: "mapping", NumberOfBytes: 32,
		Key: "t_address", Value: "t_bool",
	},
	"t_array(t_uint256)10_storage": {
		Label: "uint256[10]", Encoding: "inplace", NumberOfBytes: 320, Base: "t_uint256",
	},
	"t_array(t_uint256)5_storage": {
		Label: "uint256[5]", Encoding: "inplace", NumberOfBytes: 160, Base: "t_uint256",
	},
}

func withStruct(id string, members ...Entry) map[string]TypeDescriptor {
	types := make(map[string]TypeDescriptor, len(testTypes)+1)
	for k, v := range testTypes {
		types[k] = v
	}
	types[id] = TypeDescriptor{Label: "struct Point", Encoding: "inplace", NumberOfBytes: 64, Members: members}
	return types
}

func entry(label, slot string, offset int, typ string) Entry {
	return Entry{Label: label, Slot: slot, Offset: offset, Type: typ}
}

func lay(entries ...Entry) *StorageLayout {
	return &StorageLayout{Entries: entries, Types: testTypes}
}

func TestValidate(t *testing.T) {
	box := lay(
		entry("x", "0", 0, "t_uint256"),
		entry("label", "1", 0, "t_string_storage"),
	)

	tests := []struct {
		name      string
		old       *StorageLayout
		candidate *StorageLayout
		opts      Options
		wantRule  Rule
		wantIndex int
	}{
		{
			name:      "identical layout",
			old:       box,
			candidate: box,
		},
		{
			name: "append only",
			old:  box,
			candidate: lay(
				entry("x", "0", 0, "t_uint256"),
				entry("label", "1", 0, "t_string_storage"),
				entry("y", "2", 0, "t_uint256"),
			),
		},
		{
			name: "drops slot index 1",
			old:  box,
			candidate: lay(
				entry("x", "0", 0, "t_uint256"),
			),
			wantRule:  RuleSlotRemoved,
			wantIndex: 1,
		},
		{
			name: "reorders fields",
			old:  box,
			candidate: lay(
				entry("label", "0", 0, "t_string_storage"),
				entry("x", "1", 0, "t_uint256"),
			),
			wantRule:  RuleSlotReordered,
			wantIndex: 0,
		},
		{
			name: "retypes a field",
			old:  box,
			candidate: lay(
				entry("x", "0", 0, "t_int256"),
				entry("label", "1", 0, "t_string_storage"),
			),
			wantRule:  RuleTypeIncompatible,
			wantIndex: 0,
		},
		{
			name: "field inserted before existing one",
			old:  box,
			candidate: lay(
				entry("x", "0", 0, "t_uint256"),
				entry("y", "1", 0, "t_uint256"),
				entry("label", "2", 0, "t_string_storage"),
			),
			wantRule:  RuleSlotReordered,
			wantIndex: 1,
		},
		{
			name: "replaced field with different type",
			old:  box,
			candidate: lay(
				entry("x", "0", 0, "t_uint256"),
				entry("owner", "1", 0, "t_address"),
			),
			wantRule:  RuleSlotRemoved,
			wantIndex: 1,
		},
		{
			name: "rename rejected by default",
			old:  box,
			candidate: lay(
				entry("value", "0", 0, "t_uint256"),
				entry("label", "1", 0, "t_string_storage"),
			),
			wantRule:  RuleSlotRenamed,
			wantIndex: 0,
		},
		{
			name: "rename allowed",
			old:  box,
			candidate: lay(
				entry("value", "0", 0, "t_uint256"),
				entry("label", "1", 0, "t_string_storage"),
			),
			opts: Options{AllowRenames: true},
		},
		{
			name: "same label at a different slot",
			old:  box,
			candidate: lay(
				entry("x", "0", 0, "t_uint256"),
				entry("label", "2", 0, "t_string_storage"),
			),
			wantRule:  RuleSlotMoved,
			wantIndex: 1,
		},
		{
			name: "uint widening in an unshared slot",
			old: lay(
				entry("count", "0", 0, "t_uint128"),
			),
			candidate: lay(
				entry("count", "0", 0, "t_uint256"),
			),
		},
		{
			name: "uint narrowing",
			old: lay(
				entry("count", "0", 0, "t_uint256"),
			),
			candidate: lay(
				entry("count", "0", 0, "t_uint128"),
			),
			wantRule: RuleTypeIncompatible,
		},
		{
			name: "uint widening in a packed slot",
			old: lay(
				entry("a", "0", 0, "t_uint64"),
				entry("b", "0", 8, "t_uint64"),
			),
			candidate: lay(
				entry("a", "0", 0, "t_uint128"),
				entry("b", "0", 8, "t_uint64"),
			),
			wantRule: RuleTypeIncompatible,
		},
		{
			name: "signed widening",
			old: lay(
				entry("delta", "0", 0, "t_int128"),
			),
			candidate: lay(
				entry("delta", "0", 0, "t_int256"),
			),
			wantRule: RuleTypeIncompatible,
		},
		{
			name: "address to contract type",
			old: lay(
				entry("token", "0", 0, "t_address"),
			),
			candidate: lay(
				entry("token", "0", 0, "t_contract(IERC20)42"),
			),
		},
		{
			name: "address to payable",
			old: lay(
				entry("treasury", "0", 0, "t_address"),
			),
			candidate: lay(
				entry("treasury", "0", 0, "t_address_payable"),
			),
		},
		{
			name: "mapping value retyped",
			old: lay(
				entry("balances", "0", 0, "t_mapping(t_address,t_uint256)"),
			),
			candidate: lay(
				entry("balances", "0", 0, "t_mapping(t_address,t_bool)"),
			),
			wantRule: RuleTypeIncompatible,
		},
		{
			name: "static array shrunk",
			old: lay(
				entry("values", "0", 0, "t_array(t_uint256)10_storage"),
			),
			candidate: lay(
				entry("values", "0", 0, "t_array(t_uint256)5_storage"),
			),
			wantRule: RuleTypeIncompatible,
		},
		{
			name: "appended field overlaps old array",
			old: lay(
				entry("values", "0", 0, "t_array(t_uint256)10_storage"),
			),
			candidate: lay(
				entry("values", "0", 0, "t_array(t_uint256)10_storage"),
				entry("y", "9", 0, "t_uint256"),
			),
			wantRule:  RuleSlotOverlap,
			wantIndex: 1,
		},
		{
			name: "appended into free bytes of a packed slot",
			old: lay(
				entry("flag", "0", 0, "t_bool"),
			),
			candidate: lay(
				entry("flag", "0", 0, "t_bool"),
				entry("other", "0", 1, "t_bool"),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.old, tt.candidate, tt.opts)
			if tt.wantRule == "" {
				assert.True(t, result.Ok(), "unexpected rejection: %+v", result.Rejected)
				return
			}
			require.False(t, result.Ok())
			assert.Equal(t, tt.wantRule, result.Rejected.Rule)
			assert.Equal(t, tt.wantIndex, result.Rejected.Index)
			assert.NotEmpty(t, result.Rejected.Reason)
		})
	}
}

func TestValidate_StructMembers(t *testing.T) {
	oldTypes := withStruct("t_struct(Point)12_storage",
		entry("x", "0", 0, "t_uint256"),
		entry("y", "1", 0, "t_uint256"),
	)
	recompiled := withStruct("t_struct(Point)31_storage",
		entry("x", "0", 0, "t_uint256"),
		entry("y", "1", 0, "t_uint256"),
	)
	swapped := withStruct("t_struct(Point)31_storage",
		entry("y", "0", 0, "t_uint256"),
		entry("x", "1", 0, "t_uint256"),
	)

	old := &StorageLayout{Entries: []Entry{entry("origin", "0", 0, "t_struct(Point)12_storage")}, Types: oldTypes}

	t.Run("ast ids differ between compilations", func(t *testing.T) {
		candidate := &StorageLayout{Entries: []Entry{entry("origin", "0", 0, "t_struct(Point)31_storage")}, Types: recompiled}
		assert.True(t, Validate(old, candidate, Options{}).Ok())
	})

	t.Run("members reordered", func(t *testing.T) {
		candidate := &StorageLayout{Entries: []Entry{entry("origin", "0", 0, "t_struct(Point)31_storage")}, Types: swapped}
		result := Validate(old, candidate, Options{})
		require.False(t, result.Ok())
		assert.Equal(t, RuleTypeIncompatible, result.Rejected.Rule)
	})
}

func TestFromFoundry(t *testing.T) {
	raw := []byte(`{
		"storage": [
			{"astId": 3, "contract": "src/Box.sol:Box", "label": "x", "offset": 0, "slot": "0", "type": "t_uint256"},
			{"astId": 5, "contract": "src/Box.sol:Box", "label": "flag", "offset": 0, "slot": "1", "type": "t_bool"}
		],
		"types": {
			"t_uint256": {"encoding": "inplace", "label": "uint256", "numberOfBytes": "32"},
			"t_bool": {"encoding": "inplace", "label": "bool", "numberOfBytes": "1"}
		}
	}`)

	l, err := FromFoundry(raw)
	require.NoError(t, err)
	require.Len(t, l.Entries, 2)
	assert.Equal(t, "x", l.Entries[0].Label)
	assert.Equal(t, "1", l.Entries[1].Slot)
	assert.Equal(t, "src/Box.sol:Box", l.Entries[0].Contract)
	assert.Equal(t, 1, l.Size(l.Entries[1]))
	assert.Equal(t, "bool", l.TypeLabel(l.Entries[1]))

	_, err = FromFoundry(nil)
	assert.ErrorContains(t, err, "storageLayout")

	_, err = FromFoundry([]byte(`{"storage":[{"label":"x","slot":"zero","offset":0,"type":"t_uint256"}],"types":{}}`))
	assert.ErrorContains(t, err, "invalid slot")
}
