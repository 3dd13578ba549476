package value

import (
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/tidwall/gjson"
)

// EmptyDocument is the canonical text of a document without entries.
const EmptyDocument = "{}"

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode serializes entries to a JSON object, keeping their order.
// Keys must be unique. Non-finite numbers and strings that are not valid UTF-8
// fail with RetCInvalidValue.
func Encode(entries []Entry) (string, error) {
	seen := make(map[string]struct{}, len(entries))
	buf := make([]byte, 0, 16*len(entries)+2)
	buf, err := appendEntries(buf, entries, seen)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func appendEntries(buf []byte, entries []Entry, seen map[string]struct{}) ([]byte, error) {
	var err error
	buf = append(buf, '{')
	for i, e := range entries {
		if seen != nil {
			if _, dup := seen[e.Key]; dup {
				return nil, store.NewError(store.RetCInvalidValue, fmt.Sprintf("duplicate key '%s'", e.Key))
			}
			seen[e.Key] = struct{}{}
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		if buf, err = appendString(buf, e.Key); err != nil {
			return nil, err
		}
		buf = append(buf, ':')
		if buf, err = appendValue(buf, e.Value); err != nil {
			return nil, fmt.Errorf("key '%s': %w", e.Key, err)
		}
	}
	return append(buf, '}'), nil
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	var err error
	switch v.kind {
	case KindAbsent:
		return append(buf, "null"...), nil
	case KindBool:
		if v.b {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case KindNumber:
		return appendNumber(buf, v.n)
	case KindString:
		return appendString(buf, v.s)
	case KindVector:
		buf = append(buf, `{"x":`...)
		if buf, err = appendNumber(buf, v.vec.X); err != nil {
			return nil, err
		}
		buf = append(buf, `,"y":`...)
		if buf, err = appendNumber(buf, v.vec.Y); err != nil {
			return nil, err
		}
		buf = append(buf, `,"z":`...)
		if buf, err = appendNumber(buf, v.vec.Z); err != nil {
			return nil, err
		}
		return append(buf, '}'), nil
	case KindObject:
		return appendEntries(buf, v.fields, nil)
	}
	return nil, store.NewError(store.RetCInvalidValue, fmt.Sprintf("unknown value kind %d", v.kind))
}

func appendNumber(buf []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, store.NewError(store.RetCInvalidValue, fmt.Sprintf("number %v is not finite", f))
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, store.WrapError(store.RetCInvalidValue, "encode number", err)
	}
	return append(buf, b...), nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	// json.Marshal would silently replace invalid bytes with U+FFFD
	if !utf8.ValidString(s) {
		return nil, store.NewError(store.RetCInvalidValue, fmt.Sprintf("string %q is not valid UTF-8", s))
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, store.WrapError(store.RetCInvalidValue, "encode string", err)
	}
	return append(buf, b...), nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode parses a document in order. A repeated key keeps its first position
// and takes the last value. Text that is not a JSON object, or that holds values
// outside the value union, fails with RetCCorruptData.
func Decode(text string) ([]Entry, error) {
	if !gjson.Valid(text) {
		return nil, store.NewError(store.RetCCorruptData, "persisted text is not valid JSON")
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, store.NewError(store.RetCCorruptData, fmt.Sprintf("persisted text is a %s, not an object", root.Type))
	}
	entries, err := decodeEntries(root, false)
	if err != nil {
		return nil, store.WrapError(store.RetCCorruptData, "decode document", err)
	}
	return entries, nil
}

// ParseValue parses the JSON text of a single value.
// Invalid text fails with RetCInvalidValue.
func ParseValue(text string) (Value, error) {
	if !gjson.Valid(text) {
		return Value{}, store.NewError(store.RetCInvalidValue, "value is not valid JSON")
	}
	v, err := decodeValue(gjson.Parse(text), false)
	if err != nil {
		return Value{}, store.WrapError(store.RetCInvalidValue, "parse value", err)
	}
	return v, nil
}

func decodeEntries(obj gjson.Result, inObject bool) ([]Entry, error) {
	var (
		entries []Entry
		index   = make(map[string]int)
		err     error
	)
	obj.ForEach(func(key, val gjson.Result) bool {
		var v Value
		if v, err = decodeValue(val, inObject); err != nil {
			err = fmt.Errorf("key '%s': %w", key.String(), err)
			return false
		}
		k := key.String()
		if i, ok := index[k]; ok {
			entries[i].Value = v
			return true
		}
		index[k] = len(entries)
		entries = append(entries, Entry{Key: k, Value: v})
		return true
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func decodeValue(r gjson.Result, inObject bool) (Value, error) {
	switch r.Type {
	case gjson.Null:
		return Absent(), nil
	case gjson.True:
		return Bool(true), nil
	case gjson.False:
		return Bool(false), nil
	case gjson.Number:
		if math.IsNaN(r.Num) || math.IsInf(r.Num, 0) {
			return Value{}, fmt.Errorf("number %s is out of range", r.Raw)
		}
		return Number(r.Num), nil
	case gjson.String:
		return String(r.Str), nil
	case gjson.JSON:
		if !r.IsObject() {
			return Value{}, fmt.Errorf("arrays are not supported")
		}
		fields, err := decodeEntries(r, true)
		if err != nil {
			return Value{}, err
		}
		if vec, ok := asVector(fields); ok {
			return vec, nil
		}
		if inObject {
			return Value{}, fmt.Errorf("nested objects are not supported")
		}
		return Object(fields...), nil
	}
	return Value{}, fmt.Errorf("unsupported JSON type %s", r.Type)
}

// asVector maps an object with exactly the numeric fields x, y and z to a vector.
func asVector(fields []Entry) (Value, bool) {
	if len(fields) != 3 {
		return Value{}, false
	}
	var (
		c    [3]float64
		seen int
	)
	for _, f := range fields {
		n, ok := f.Value.AsNumber()
		if !ok {
			return Value{}, false
		}
		switch f.Key {
		case "x":
			c[0], seen = n, seen|1
		case "y":
			c[1], seen = n, seen|2
		case "z":
			c[2], seen = n, seen|4
		default:
			return Value{}, false
		}
	}
	if seen != 7 {
		return Value{}, false
	}
	return Vector(c[0], c[1], c[2]), true
}
