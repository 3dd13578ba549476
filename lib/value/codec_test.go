package value

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ValentinKolb/propdb/lib/store"
)

func entriesEqual(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

// TestRoundTrip checks decode(encode(m)) == m. The one exception is an object whose
// only fields are the numbers x, y and z: it has the text of a vector and decodes as
// one (see TestVectorShapedObject).
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"Empty", []Entry{}},
		{"Strings", []Entry{{"f1", String("b1")}, {"f2", String("b2")}, {"f3", String("b3")}}},
		{"Scalars", []Entry{{"t", Bool(true)}, {"f", Bool(false)}, {"n", Number(-12.5)}, {"big", Number(1e21)}, {"none", Absent()}}},
		{"Vector", []Entry{{"pos", Vector(1.5, -2, 3e-7)}}},
		{"Object", []Entry{
			{"steve", Object(Entry{"name", String("Steve")}, Entry{"phone", Number(1234)})},
			{"alex", Object(Entry{"name", String("Alex")}, Entry{"home", Vector(0, 64, 0)})},
		}},
		{"EmptyObject", []Entry{{"o", Object()}}},
		{"Escapes", []Entry{{"quo\"te", String("line1\nline2\t<&>")}, {"ünï", String("cödé")}}},
		{"EmptyKey", []Entry{{"", String("empty key")}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, err := Encode(tc.entries)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := Decode(text)
			if err != nil {
				t.Fatalf("Decode(%s) failed: %v", text, err)
			}
			if !entriesEqual(tc.entries, decoded) {
				t.Errorf("Round trip mismatch:\n  in:  %v\n  out: %v\n  text: %s", tc.entries, decoded, text)
			}
		})
	}
}

func TestEncodeFormat(t *testing.T) {
	text, err := Encode([]Entry{
		{"b", String("x")},
		{"a", Number(1)},
		{"v", Vector(1, 2, 3)},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	expected := `{"b":"x","a":1,"v":{"x":1,"y":2,"z":3}}`
	if text != expected {
		t.Errorf("Expected %s, got %s", expected, text)
	}

	if text, _ := Encode(nil); text != EmptyDocument {
		t.Errorf("Expected empty document %s, got %s", EmptyDocument, text)
	}
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"NaN", []Entry{{"n", Number(math.NaN())}}},
		{"Inf", []Entry{{"n", Number(math.Inf(1))}}},
		{"VectorInf", []Entry{{"v", Vector(0, math.Inf(-1), 0)}}},
		{"ObjectNaN", []Entry{{"o", Object(Entry{"n", Number(math.NaN())})}}},
		{"DuplicateKey", []Entry{{"a", Bool(true)}, {"a", Bool(false)}}},
		{"InvalidUTF8Value", []Entry{{"k", String("a\xffb")}}},
		{"InvalidUTF8Key", []Entry{{"a\xffb", String("v")}}},
		{"InvalidUTF8Field", []Entry{{"o", Object(Entry{"name", String("\xc3")})}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(tc.entries)
			if !errors.Is(err, store.ErrInvalidValue) {
				t.Errorf("Expected InvalidValue error, got %v", err)
			}
		})
	}
}

func TestDecodeOrderAndDuplicates(t *testing.T) {
	entries, err := Decode(`{"z":1,"a":2,"z":3,"m":4}`)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	expected := []Entry{{"z", Number(3)}, {"a", Number(2)}, {"m", Number(4)}}
	if !entriesEqual(entries, expected) {
		t.Errorf("Expected %v, got %v", expected, entries)
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, text := range []string{EmptyDocument, " { } ", "{\n}"} {
		entries, err := Decode(text)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", text, err)
		}
		if entries == nil || len(entries) != 0 {
			t.Errorf("Expected empty non-nil entries for %q, got %v", text, entries)
		}
	}
}

func TestDecodeCorrupt(t *testing.T) {
	tests := []string{
		"",
		"not json",
		`{"a":`,
		`[1,2,3]`,
		`"string"`,
		`42`,
		`null`,
		`{"a":[1,2]}`,
		`{"a":{"b":{"c":1}}}`,
		`{"a":1e999}`,
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			_, err := Decode(text)
			if !errors.Is(err, store.ErrCorruptData) {
				t.Errorf("Expected CorruptData error for %q, got %v", text, err)
			}
		})
	}
}

func TestVectorDetection(t *testing.T) {
	tests := []struct {
		text     string
		expected Value
	}{
		{`{"v":{"x":1,"y":2,"z":3}}`, Vector(1, 2, 3)},
		{`{"v":{"z":3,"x":1,"y":2}}`, Vector(1, 2, 3)},
		{`{"v":{"x":1,"y":2}}`, Object(Entry{"x", Number(1)}, Entry{"y", Number(2)})},
		{`{"v":{"x":1,"y":2,"z":"3"}}`, Object(Entry{"x", Number(1)}, Entry{"y", Number(2)}, Entry{"z", String("3")})},
		{`{"v":{"x":1,"y":2,"w":3}}`, Object(Entry{"x", Number(1)}, Entry{"y", Number(2)}, Entry{"w", Number(3)})},
		{`{"v":{"x":1,"y":2,"z":3,"w":4}}`, Object(Entry{"x", Number(1)}, Entry{"y", Number(2)}, Entry{"z", Number(3)}, Entry{"w", Number(4)})},
		// vectors may appear inside objects
		{`{"v":{"pos":{"x":0,"y":1,"z":0}}}`, Object(Entry{"pos", Vector(0, 1, 0)})},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			entries, err := Decode(tc.text)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(entries) != 1 || !entries[0].Value.Equal(tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, entries)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(`{"x":1,"y":2,"z":3}`)
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if !v.Equal(Vector(1, 2, 3)) {
		t.Errorf("Expected vector, got %v", v)
	}

	if v, _ := ParseValue(`"bar"`); !v.Equal(String("bar")) {
		t.Errorf("Expected string bar, got %v", v)
	}
	if v, _ := ParseValue(`null`); !v.IsAbsent() {
		t.Errorf("Expected absent, got %v", v)
	}

	if _, err := ParseValue(`{bad`); !errors.Is(err, store.ErrInvalidValue) {
		t.Errorf("Expected InvalidValue error, got %v", err)
	}
}

func TestJSONMarshaling(t *testing.T) {
	in := map[string]Value{"pos": Vector(1, 2, 3)}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(b), `{"x":1,"y":2,"z":3}`) {
		t.Errorf("Unexpected JSON %s", b)
	}

	var out map[string]Value
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !out["pos"].Equal(in["pos"]) {
		t.Errorf("Expected %v, got %v", in["pos"], out["pos"])
	}
}

func TestVectorShapedObject(t *testing.T) {
	in := []Entry{{"o", Object(Entry{"x", Number(1)}, Entry{"y", Number(2)}, Entry{"z", Number(3)})}}
	text, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if entriesEqual(in, decoded) {
		t.Fatalf("Expected the object to change kind on a round trip")
	}
	if v, ok := decoded[0].Value.AsVector(); !ok || v != (Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Expected vector (1,2,3), got %v", decoded[0].Value)
	}

	// one more field, or a non-numeric one, keeps the object
	for _, obj := range []Value{
		Object(Entry{"x", Number(1)}, Entry{"y", Number(2)}, Entry{"z", Number(3)}, Entry{"w", Number(4)}),
		Object(Entry{"x", Number(1)}, Entry{"y", Number(2)}, Entry{"z", String("3")}),
	} {
		text, err := Encode([]Entry{{"o", obj}})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		decoded, err := Decode(text)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if decoded[0].Value.Kind() != KindObject {
			t.Errorf("Expected %s to stay an object, got %s", text, decoded[0].Value.Kind())
		}
	}
}
