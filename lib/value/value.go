package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindAbsent Kind = iota // the zero Value
	KindBool
	KindNumber
	KindString
	KindVector
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Vec3 is a 3-component numeric vector.
type Vec3 struct {
	X, Y, Z float64
}

// Entry is one key/value pair. Documents and object values are ordered sequences of entries.
type Entry struct {
	Key   string
	Value Value
}

// Value is an immutable tagged union over absent, bool, number, string,
// vector and object (with non-object fields). The zero Value is absent.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	vec    Vec3
	fields []Entry
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

func Absent() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number creates a number value. Non-finite numbers can be held in memory
// but Encode rejects them.
func Number(f float64) Value { return Value{kind: KindNumber, n: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Vector(x, y, z float64) Value {
	return Value{kind: KindVector, vec: Vec3{X: x, Y: y, Z: z}}
}

// Object creates an object value from the given fields.
// Fields may hold any kind except KindObject; a nested object panics.
// When a field name repeats, the last value wins and the first position is kept.
func Object(fields ...Entry) Value {
	out := make([]Entry, 0, len(fields))
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		if f.Value.kind == KindObject {
			panic(fmt.Sprintf("value: object field %q holds a nested object", f.Key))
		}
		if i, ok := index[f.Key]; ok {
			out[i].Value = f.Value
			continue
		}
		index[f.Key] = len(out)
		out = append(out, f)
	}
	return Value{kind: KindObject, fields: out}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsVector() (Vec3, bool) { return v.vec, v.kind == KindVector }

// Fields returns a copy of the object's fields in order, or nil for other kinds.
func (v Value) Fields() []Entry {
	if v.kind != KindObject {
		return nil
	}
	out := make([]Entry, len(v.fields))
	copy(out, v.fields)
	return out
}

// Field returns the named field of an object value.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Equal reports whether both values hold the same variant and content.
// Field order of objects is ignored.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindVector:
		return v.vec == other.vec
	case KindObject:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for _, f := range v.fields {
			o, ok := other.Field(f.Key)
			if !ok || !f.Value.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for humans: strings unquoted, vectors and objects as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	}
	if v.kind == KindNumber {
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	}
	b, err := appendValue(nil, v)
	if err != nil {
		return fmt.Sprintf("<invalid %s: %v>", v.kind, err)
	}
	return string(b)
}

// MarshalJSON implements json.Marshaler using the property text format.
func (v Value) MarshalJSON() ([]byte, error) {
	return appendValue(nil, v)
}

// UnmarshalJSON implements json.Unmarshaler using the property text format.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
