package abi

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/trebuchet-org/uups-cli/internal/domain"
)

// Encoder converts command line arguments into ABI calldata and back
type Encoder struct{}

// NewEncoder creates a new calldata encoder
func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodeCall packs method with args. method is a name ("initialize") or a full
// signature ("initialize(uint256)").
func (e *Encoder) EncodeCall(contract *abi.ABI, method string, args []string) ([]byte, *abi.Method, error) {
	m, err := findMethod(contract, method, len(args))
	if err != nil {
		return nil, nil, &domain.ArgumentError{Method: method, Err: err}
	}

	if len(args) != len(m.Inputs) {
		return nil, nil, &domain.ArgumentError{
			Method: m.Sig,
			Err:    fmt.Errorf("expected %d arguments, got %d", len(m.Inputs), len(args)),
		}
	}

	values := make([]any, len(args))
	for i, input := range m.Inputs {
		v, err := ParseValue(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, nil, &domain.ArgumentError{
				Method: m.Sig,
				Err:    fmt.Errorf("argument %s (%s): %w", name, input.Type.String(), err),
			}
		}
		values[i] = v
	}

	packed, err := m.Inputs.Pack(values...)
	if err != nil {
		return nil, nil, &domain.ArgumentError{Method: m.Sig, Err: err}
	}
	data := make([]byte, 0, 4+len(packed))
	data = append(data, m.ID...)
	return append(data, packed...), m, nil
}

// DecodeResult unpacks return data into display strings
func (e *Encoder) DecodeResult(method *abi.Method, data []byte) ([]string, error) {
	if len(method.Outputs) == 0 {
		return nil, nil
	}
	values, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = FormatValue(v)
	}
	return out, nil
}

func findMethod(contract *abi.ABI, method string, argc int) (*abi.Method, error) {
	if contract == nil {
		return nil, fmt.Errorf("contract has no ABI")
	}

	if strings.Contains(method, "(") {
		sig := strings.ReplaceAll(method, " ", "")
		for _, m := range contract.Methods {
			if m.Sig == sig {
				return &m, nil
			}
		}
		return nil, fmt.Errorf("no method with signature %s", sig)
	}

	var candidates []abi.Method
	for _, m := range contract.Methods {
		if m.RawName == method {
			candidates = append(candidates, m)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("no method named %s", method)
	case 1:
		return &candidates[0], nil
	}

	// overloaded: pick by arity
	var matching []abi.Method
	for _, m := range candidates {
		if len(m.Inputs) == argc {
			matching = append(matching, m)
		}
	}
	if len(matching) == 1 {
		return &matching[0], nil
	}
	sigs := make([]string, len(candidates))
	for i, m := range candidates {
		sigs[i] = m.Sig
	}
	sort.Strings(sigs)
	return nil, fmt.Errorf("%s is overloaded, use one of %s", method, strings.Join(sigs, ", "))
}

// ParseValue converts a command line string into the Go value go-ethereum packs for t.
// Arrays are written as [a,b,c].
func ParseValue(t abi.Type, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t.T {
	case abi.UintTy, abi.IntTy:
		return parseInteger(t, raw)

	case abi.BoolTy:
		return strconv.ParseBool(raw)

	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, domain.ErrInvalidAddress
		}
		return common.HexToAddress(raw), nil

	case abi.StringTy:
		return raw, nil

	case abi.BytesTy:
		return hexutil.Decode(raw)

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		for i, c := range b {
			arr.Index(i).SetUint(uint64(c))
		}
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		items, err := splitList(raw)
		if err != nil {
			return nil, err
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
		}
		var out reflect.Value
		if t.T == abi.ArrayTy {
			out = reflect.New(t.GetType()).Elem()
		} else {
			out = reflect.MakeSlice(t.GetType(), len(items), len(items))
		}
		for i, item := range items {
			v, err := ParseValue(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(v))
		}
		return out.Interface(), nil

	default:
		return nil, fmt.Errorf("type %s is not supported on the command line", t.String())
	}
}

var bigIntType = reflect.TypeOf((*big.Int)(nil))

func parseInteger(t abi.Type, raw string) (any, error) {
	n, ok := new(big.Int).SetString(strings.ReplaceAll(raw, "_", ""), 0)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", raw)
	}

	unsigned := t.T == abi.UintTy
	if unsigned && n.Sign() < 0 {
		return nil, fmt.Errorf("%s is negative", raw)
	}
	bits := n.BitLen()
	if !unsigned && n.Sign() < 0 {
		bits = new(big.Int).Add(n, big.NewInt(1)).BitLen()
	}
	limit := t.Size
	if !unsigned {
		limit--
	}
	if bits > limit {
		return nil, fmt.Errorf("%s overflows %s", raw, t.String())
	}

	// go-ethereum packs native types for 8, 16, 32 and 64 bits and *big.Int otherwise
	goType := t.GetType()
	if goType == bigIntType {
		return n, nil
	}
	v := reflect.New(goType).Elem()
	if unsigned {
		v.SetUint(n.Uint64())
	} else {
		v.SetInt(n.Int64())
	}
	return v.Interface(), nil
}

// splitList splits "[a,b,[c,d]]" into its top level elements
func splitList(raw string) ([]string, error) {
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, fmt.Errorf("expected a list like [a,b], got %q", raw)
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return nil, nil
	}

	var (
		items []string
		depth int
		start int
	)
	for i, r := range inner {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", raw)
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in %q", raw)
	}
	return append(items, strings.TrimSpace(inner[start:])), nil
}

// FormatValue formats a decoded value for display
func FormatValue(value any) string {
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case *big.Int:
		return v.String()
	case []byte:
		return hexutil.Encode(v)
	case [32]byte:
		return hexutil.Encode(v[:])
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10)
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10)
		case reflect.Array:
			if rv.Type().Elem().Kind() == reflect.Uint8 {
				b := make([]byte, rv.Len())
				for i := range b {
					b[i] = byte(rv.Index(i).Uint())
				}
				return hexutil.Encode(b)
			}
		}
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
