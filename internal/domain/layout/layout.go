// Package layout models the persistent storage layout of a logical contract and
// decides whether a candidate implementation can safely take over a proxy's storage.
//
// Storage is addressed by position (slot, offset) rather than by name, so a layout is an
// ordered list of entries. A candidate layout is compatible with the deployed one when
// every deployed entry keeps its position and a compatible type, and new entries are only
// appended after the storage already in use.
package layout

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

// Entry is one persistent field of a contract.
type Entry struct {
	Label    string `json:"label"`
	Slot     string `json:"slot"` // decimal, may exceed 64 bits for namespaced storage
	Offset   int    `json:"offset"`
	Type     string `json:"type"` // key into StorageLayout.Types
	Contract string `json:"contract,omitempty"`
}

// TypeDescriptor describes how a storage type is encoded.
type TypeDescriptor struct {
	Label         string  `json:"label"`
	Encoding      string  `json:"encoding"`
	NumberOfBytes int     `json:"numberOfBytes"`
	Key           string  `json:"key,omitempty"`
	Value         string  `json:"value,omitempty"`
	Base          string  `json:"base,omitempty"`
	Members       []Entry `json:"members,omitempty"`
}

// StorageLayout is the ordered sequence of a contract's persistent fields.
type StorageLayout struct {
	Entries []Entry                   `json:"entries"`
	Types   map[string]TypeDescriptor `json:"types"`
}

// foundryLayout mirrors the solc `storageLayout` output found in Foundry artifacts.
type foundryLayout struct {
	Storage []foundryEntry         `json:"storage"`
	Types   map[string]foundryType `json:"types"`
}

type foundryEntry struct {
	Label    string `json:"label"`
	Slot     string `json:"slot"`
	Offset   int    `json:"offset"`
	Type     string `json:"type"`
	Contract string `json:"contract"`
}

type foundryType struct {
	Label         string         `json:"label"`
	Encoding      string         `json:"encoding"`
	NumberOfBytes string         `json:"numberOfBytes"`
	Key           string         `json:"key"`
	Value         string         `json:"value"`
	Base          string         `json:"base"`
	Members       []foundryEntry `json:"members"`
}

// FromFoundry parses the `storageLayout` section of a Foundry artifact.
func FromFoundry(raw json.RawMessage) (*StorageLayout, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("artifact has no storageLayout (add extra_output = [\"storageLayout\"] to foundry.toml)")
	}

	var fl foundryLayout
	if err := json.Unmarshal(raw, &fl); err != nil {
		return nil, fmt.Errorf("failed to parse storageLayout: %w", err)
	}

	l := &StorageLayout{
		Entries: make([]Entry, 0, len(fl.Storage)),
		Types:   make(map[string]TypeDescriptor, len(fl.Types)),
	}
	for _, e := range fl.Storage {
		entry, err := convertEntry(e)
		if err != nil {
			return nil, err
		}
		l.Entries = append(l.Entries, entry)
	}
	for id, t := range fl.Types {
		size, err := strconv.Atoi(t.NumberOfBytes)
		if err != nil {
			return nil, fmt.Errorf("type %s: invalid numberOfBytes %q", id, t.NumberOfBytes)
		}
		desc := TypeDescriptor{
			Label:         t.Label,
			Encoding:      t.Encoding,
			NumberOfBytes: size,
			Key:           t.Key,
			Value:         t.Value,
			Base:          t.Base,
		}
		for _, m := range t.Members {
			member, err := convertEntry(m)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", id, err)
			}
			desc.Members = append(desc.Members, member)
		}
		l.Types[id] = desc
	}

	return l, nil
}

func convertEntry(e foundryEntry) (Entry, error) {
	if _, ok := new(big.Int).SetString(e.Slot, 10); !ok {
		return Entry{}, fmt.Errorf("field %s: invalid slot %q", e.Label, e.Slot)
	}
	return Entry{
		Label:    e.Label,
		Slot:     e.Slot,
		Offset:   e.Offset,
		Type:     e.Type,
		Contract: e.Contract,
	}, nil
}

// TypeLabel returns the human readable type of an entry.
func (l *StorageLayout) TypeLabel(e Entry) string {
	if t, ok := l.Types[e.Type]; ok && t.Label != "" {
		return t.Label
	}
	return e.Type
}

// Size returns the number of bytes an entry occupies, defaulting to a full slot.
func (l *StorageLayout) Size(e Entry) int {
	if t, ok := l.Types[e.Type]; ok && t.NumberOfBytes > 0 {
		return t.NumberOfBytes
	}
	return 32
}

// IndexOf returns the position of the entry with the given label, or -1.
func (l *StorageLayout) IndexOf(label string) int {
	for i, e := range l.Entries {
		if e.Label == label {
			return i
		}
	}
	return -1
}

// start is the absolute byte position of an entry: slot*32 + offset.
func start(e Entry) *big.Int {
	slot, _ := new(big.Int).SetString(e.Slot, 10)
	if slot == nil {
		slot = new(big.Int)
	}
	pos := new(big.Int).Mul(slot, big.NewInt(32))
	return pos.Add(pos, big.NewInt(int64(e.Offset)))
}

// end returns the first byte after the storage used by the layout's entries.
func (l *StorageLayout) end() *big.Int {
	out := new(big.Int)
	for _, e := range l.Entries {
		size := l.Size(e)
		// dynamic and multi-slot types round up to whole slots
		if size > 32 && size%32 != 0 {
			size += 32 - size%32
		}
		pos := new(big.Int).Add(start(e), big.NewInt(int64(size)))
		if pos.Cmp(out) > 0 {
			out = pos
		}
	}
	return out
}

// sharesSlot reports whether any other entry lives in the same slot as entry i.
func (l *StorageLayout) sharesSlot(i int) bool {
	for j, e := range l.Entries {
		if j != i && e.Slot == l.Entries[i].Slot {
			return true
		}
	}
	return false
}

// astSuffix matches the AST id solc appends to user defined type identifiers,
// e.g. t_struct(Point)12_storage. Array lengths like t_array(t_uint256)50_storage are kept.
var astSuffix = regexp.MustCompile(`(t_struct|t_enum|t_contract|t_userDefinedValueType)\(([^)]*)\)\d+`)

func normalizeTypeID(id string) string {
	return astSuffix.ReplaceAllString(id, "$1($2)")
}
