package value

import "testing"

func TestZeroValueIsAbsent(t *testing.T) {
	var v Value
	if !v.IsAbsent() || v.Kind() != KindAbsent {
		t.Errorf("Expected zero Value to be absent, got kind %s", v.Kind())
	}
	if !v.Equal(Absent()) {
		t.Errorf("Expected zero Value to equal Absent()")
	}
}

func TestAccessors(t *testing.T) {
	if b, ok := Bool(true).AsBool(); !ok || !b {
		t.Errorf("AsBool mismatch")
	}
	if n, ok := Number(4.5).AsNumber(); !ok || n != 4.5 {
		t.Errorf("AsNumber mismatch")
	}
	if s, ok := String("x").AsString(); !ok || s != "x" {
		t.Errorf("AsString mismatch")
	}
	if vec, ok := Vector(1, 2, 3).AsVector(); !ok || vec != (Vec3{1, 2, 3}) {
		t.Errorf("AsVector mismatch")
	}
	if _, ok := String("x").AsNumber(); ok {
		t.Errorf("Expected AsNumber on a string to fail")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"SameString", String("a"), String("a"), true},
		{"DifferentKind", String("1"), Number(1), false},
		{"Vector", Vector(1, 2, 3), Vector(1, 2, 3), true},
		{"VectorDiff", Vector(1, 2, 3), Vector(1, 2, 4), false},
		{"ObjectOrderIgnored",
			Object(Entry{"a", Number(1)}, Entry{"b", Number(2)}),
			Object(Entry{"b", Number(2)}, Entry{"a", Number(1)}), true},
		{"ObjectMissingField",
			Object(Entry{"a", Number(1)}),
			Object(Entry{"a", Number(1)}, Entry{"b", Number(2)}), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.equal {
				t.Errorf("Equal(%v, %v) = %v, expected %v", tc.a, tc.b, got, tc.equal)
			}
		})
	}
}

func TestObject(t *testing.T) {
	o := Object(Entry{"name", String("steve")}, Entry{"phone", Number(1)}, Entry{"name", String("alex")})

	fields := o.Fields()
	if len(fields) != 2 || fields[0].Key != "name" || fields[1].Key != "phone" {
		t.Fatalf("Unexpected fields %v", fields)
	}
	if name, _ := o.Field("name"); !name.Equal(String("alex")) {
		t.Errorf("Expected last value to win, got %v", name)
	}

	// Fields returns a copy
	fields[0].Value = String("mutated")
	if name, _ := o.Field("name"); !name.Equal(String("alex")) {
		t.Errorf("Mutating Fields() result changed the object")
	}
}

func TestObjectRejectsNesting(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Expected Object to panic on a nested object")
		}
	}()
	Object(Entry{"inner", Object()})
}

func TestString(t *testing.T) {
	tests := []struct {
		v        Value
		expected string
	}{
		{Absent(), "null"},
		{Bool(false), "false"},
		{Number(3), "3"},
		{Number(0.25), "0.25"},
		{String("bar"), "bar"},
		{Vector(1, 2, 3), `{"x":1,"y":2,"z":3}`},
		{Object(Entry{"name", String("steve")}), `{"name":"steve"}`},
	}
	for _, tc := range tests {
		if got := tc.v.String(); got != tc.expected {
			t.Errorf("String() = %q, expected %q", got, tc.expected)
		}
	}
}
