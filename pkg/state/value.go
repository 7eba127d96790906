package state

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	KindNone Kind = iota
	KindNumber
	KindString
	KindBool
)

// Value is the tagged union stored in game variables and custom character
// attributes. The zero Value is None.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
}

var None = Value{}

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNone() bool   { return v.kind == KindNone }
func (v Value) Num() float64   { return v.num }
func (v Value) Str() string    { return v.str }
func (v Value) AsBool() bool   { return v.b }

// Truthy applies the engine's truthiness rules: booleans as-is, numbers
// non-zero, strings non-empty, None false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		return v.str != ""
	default:
		return false
	}
}

// String renders the default display form: True/False for booleans, numbers
// with unnecessary trailing zeros trimmed.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	default:
		return "None"
	}
}

// FromAny converts loosely-typed input (parser literals, JSON template
// values) into a Value. Unsupported types map to None.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return None
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case float64:
		return Number(t)
	case string:
		return String(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(n)
	default:
		return None
	}
}

// Equal compares two values. Cross-kind comparison is false except that
// None only equals None.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	*v = FromAny(raw)
	return nil
}
