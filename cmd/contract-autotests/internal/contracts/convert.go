package contracts

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ConvertArgs turns spreadsheet strings into values matching the inputs of
// method. Integers accept decimal or 0x-prefixed hex, bytes are hex and
// array elements are comma separated.
func ConvertArgs(method abi.Method, raw []string) ([]interface{}, error) {
	if len(raw) != len(method.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", method.Name, len(method.Inputs), len(raw))
	}
	args := make([]interface{}, len(raw))
	for i, input := range method.Inputs {
		v, err := convertValue(input.Type, raw[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("argument %s of %s: %w", name, method.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func convertValue(t abi.Type, s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	switch t.T {
	case abi.StringTy:
		return s, nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil
	case abi.IntTy, abi.UintTy:
		return convertInt(t, s)
	case abi.BytesTy:
		return decodeHex(s)
	case abi.FixedBytesTy:
		b, err := decodeHex(s)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		v := reflect.New(t.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		var parts []string
		if s != "" {
			parts = strings.Split(s, ",")
		}
		if t.T == abi.ArrayTy && len(parts) != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(parts))
		}
		var v reflect.Value
		if t.T == abi.SliceTy {
			v = reflect.MakeSlice(t.GetType(), len(parts), len(parts))
		} else {
			v = reflect.New(t.GetType()).Elem()
		}
		for i, part := range parts {
			elem, err := convertValue(*t.Elem, part)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			v.Index(i).Set(reflect.ValueOf(elem))
		}
		return v.Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

func convertInt(t abi.Type, s string) (interface{}, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if !intFits(t, n) {
		return nil, fmt.Errorf("%s overflows %s", s, t.String())
	}
	switch t.GetType().Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := reflect.New(t.GetType()).Elem()
		v.SetInt(n.Int64())
		return v.Interface(), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := reflect.New(t.GetType()).Elem()
		v.SetUint(n.Uint64())
		return v.Interface(), nil
	default:
		return n, nil
	}
}

func intFits(t abi.Type, n *big.Int) bool {
	if t.T == abi.UintTy {
		return n.Sign() >= 0 && n.BitLen() <= t.Size
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	minimum := new(big.Int).Neg(limit)
	return n.Cmp(minimum) >= 0 && n.Cmp(limit) < 0
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q", s)
	}
	return b, nil
}

// FormatValue renders a value unpacked from a call the way it would be
// written in a spreadsheet.
func FormatValue(v interface{}) string {
	switch v := v.(type) {
	case *big.Int:
		return v.String()
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case []byte:
		return hexutil.Encode(v)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return hexutil.Encode(b)
		}
		fallthrough
	case reflect.Slice:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// ValueMatches compares an unpacked value against its expected spreadsheet
// rendering. Hex strings compare case-insensitively.
func ValueMatches(expected string, v interface{}) bool {
	actual := FormatValue(v)
	expected = strings.TrimSpace(expected)
	if strings.HasPrefix(actual, "0x") {
		return strings.EqualFold(actual, expected)
	}
	if n, ok := v.(*big.Int); ok {
		if e, ok := new(big.Int).SetString(expected, 0); ok {
			return n.Cmp(e) == 0
		}
	}
	return actual == expected
}
