package value

import (
	"errors"
	"math"
	"testing"
)

func mustJSON(t *testing.T, input string) Value {
	t.Helper()
	v, err := FromJSON([]byte(input))
	if err != nil {
		t.Fatalf("FromJSON(%q) error = %v", input, err)
	}
	return v
}

func TestEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    Value
		b    Value
		want bool
	}{
		{name: "null_null", a: Null{}, b: Null{}, want: true},
		{name: "nil_is_null", a: nil, b: Null{}, want: true},
		{name: "int_float_numeric", a: Int(1), b: Float(1.0), want: true},
		{name: "int_int_differs", a: Int(1), b: Int(2), want: false},
		{name: "nan_never_equal", a: Float(math.NaN()), b: Float(math.NaN()), want: false},
		{name: "string_vs_int", a: String("1"), b: Int(1), want: false},
		{name: "arrays", a: Array{Int(1), String("a")}, b: Array{Int(1), String("a")}, want: true},
		{name: "arrays_length", a: Array{Int(1)}, b: Array{Int(1), Int(2)}, want: false},
		{
			name: "objects_ignore_order",
			a:    ObjectOf(Field{"a", Int(1)}, Field{"b", Int(2)}),
			b:    ObjectOf(Field{"b", Int(2)}, Field{"a", Int(1)}),
			want: true,
		},
		{
			name: "objects_missing_key",
			a:    ObjectOf(Field{"a", Int(1)}),
			b:    ObjectOf(Field{"b", Int(1)}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Fatalf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a       Value
		b       Value
		want    int
		ordered bool
	}{
		{name: "ints", a: Int(1), b: Int(2), want: -1, ordered: true},
		{name: "mixed_numbers", a: Float(2.5), b: Int(2), want: 1, ordered: true},
		{name: "strings", a: String("b"), b: String("a"), want: 1, ordered: true},
		{name: "equal_strings", a: String("a"), b: String("a"), want: 0, ordered: true},
		{name: "nan", a: Float(math.NaN()), b: Int(1), ordered: false},
		{name: "mixed_kinds", a: String("1"), b: Int(1), ordered: false},
		{name: "arrays", a: Array{}, b: Array{}, ordered: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ordered := Compare(tt.a, tt.b)
			if ordered != tt.ordered {
				t.Fatalf("Compare() ordered = %v, want %v", ordered, tt.ordered)
			}
			if ordered && got != tt.want {
				t.Fatalf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	inner := ObjectOf(Field{"x", Int(1)})
	original := ObjectOf(Field{"inner", inner}, Field{"list", Array{Int(1)}})

	cloned := Clone(original).(*Object)
	clonedInner, _ := cloned.Get("inner")
	clonedInner.(*Object).Set("x", Int(2))

	if got, _ := inner.Get("x"); !Equal(got, Int(1)) {
		t.Fatalf("original mutated through clone: x = %v", got)
	}
}

func TestObjectOrderAndDelete(t *testing.T) {
	t.Parallel()

	obj := NewObject(0)
	obj.Set("b", Int(1))
	obj.Set("a", Int(2))
	obj.Set("b", Int(3))

	keys := obj.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("Keys() = %v, want [b a]", keys)
	}

	if !obj.Delete("b") {
		t.Fatal("Delete(b) = false, want true")
	}
	if obj.Delete("missing") {
		t.Fatal("Delete(missing) = true, want false")
	}
	if obj.Len() != 1 || obj.Has("b") {
		t.Fatalf("after delete: len = %d, has b = %v", obj.Len(), obj.Has("b"))
	}
}

func TestObjectWithLeavesReceiverUntouched(t *testing.T) {
	t.Parallel()

	base := ObjectOf(Field{"a", Int(1)})
	next := base.With("b", Int(2)).Without("a")

	if base.Len() != 1 || !base.Has("a") {
		t.Fatalf("base changed: %v", base.Keys())
	}
	if next.Len() != 1 || !next.Has("b") {
		t.Fatalf("next = %v, want only b", next.Keys())
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "keeps_key_order", input: `{"z":1,"a":2}`, want: `{"z":1,"a":2}`},
		{name: "int_stays_int", input: `[1,-2]`, want: `[1,-2]`},
		{name: "float_stays_float", input: `[1.0,2.5,1e3]`, want: `[1.0,2.5,1000.0]`},
		{name: "nested", input: `{"a":{"b":[true,null,"x"]}}`, want: `{"a":{"b":[true,null,"x"]}}`},
		{name: "no_html_escape", input: `"<a&b>"`, want: `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := mustJSON(t, tt.input)
			got, err := ToJSON(v)
			if err != nil {
				t.Fatalf("ToJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("ToJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFromJSONKinds(t *testing.T) {
	t.Parallel()

	v := mustJSON(t, `{"i": 10, "f": 10.0}`)
	obj := v.(*Object)

	if got, _ := obj.Get("i"); got.Kind() != KindInt {
		t.Fatalf("i kind = %v, want integer", got.Kind())
	}
	if got, _ := obj.Get("f"); got.Kind() != KindFloat {
		t.Fatalf("f kind = %v, want float", got.Kind())
	}
}

func TestFromJSONErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{``, `{"a":}`, `{} {}`, `[1,`} {
		if _, err := FromJSON([]byte(input)); !errors.Is(err, ErrInvalidJSON) {
			t.Fatalf("FromJSON(%q) error = %v, want ErrInvalidJSON", input, err)
		}
	}
}

func TestToJSONRejectsNaN(t *testing.T) {
	t.Parallel()

	if _, err := ToJSON(Float(math.Inf(1))); !errors.Is(err, ErrNotRepresentable) {
		t.Fatalf("ToJSON(+Inf) error = %v, want ErrNotRepresentable", err)
	}
}

func TestFromGo(t *testing.T) {
	t.Parallel()

	got, err := FromGo(map[string]any{
		"b": []any{1, 2.5, "x", nil, true},
		"a": uint8(3),
	})
	if err != nil {
		t.Fatalf("FromGo() error = %v", err)
	}

	want := mustJSON(t, `{"a":3,"b":[1,2.5,"x",null,true]}`)
	if !Equal(got, want) {
		t.Fatalf("FromGo() = %s, want %s", Stringify(got), Stringify(want))
	}
	if keys := got.(*Object).Keys(); keys[0] != "a" {
		t.Fatalf("FromGo() keys = %v, want sorted", keys)
	}

	if _, err := FromGo(struct{}{}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("FromGo(struct) error = %v, want ErrUnsupportedType", err)
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	if got := Stringify(String("plain")); got != "plain" {
		t.Fatalf("Stringify(string) = %q", got)
	}
	if got := Stringify(Array{Int(1), Float(2)}); got != "[1,2.0]" {
		t.Fatalf("Stringify(array) = %q", got)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
		source string
		want   string
	}{
		{name: "empty_source_is_identity", target: `{"a":1,"b":{"c":2}}`, source: `{}`, want: `{"a":1,"b":{"c":2}}`},
		{name: "source_wins", target: `{"x":1}`, source: `{"x":2}`, want: `{"x":2}`},
		{name: "nested_objects_merge", target: `{"a":{"b":1,"c":2}}`, source: `{"a":{"c":3,"d":4}}`, want: `{"a":{"b":1,"c":3,"d":4}}`},
		{name: "null_removes_key", target: `{"a":1,"b":2}`, source: `{"a":null}`, want: `{"b":2}`},
		{name: "object_replaces_scalar", target: `{"a":1}`, source: `{"a":{"b":1}}`, want: `{"a":{"b":1}}`},
		{name: "non_object_source_replaces", target: `{"a":1}`, source: `[1,2]`, want: `[1,2]`},
		{name: "scalar_target_scalar_source", target: `1`, source: `"x"`, want: `"x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			target := mustJSON(t, tt.target)
			before := Stringify(target)

			got, err := Merge(target, mustJSON(t, tt.source))
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if !Equal(got, mustJSON(t, tt.want)) {
				t.Fatalf("Merge() = %s, want %s", Stringify(got), tt.want)
			}
			if Stringify(target) != before {
				t.Fatalf("Merge() modified target: %s", Stringify(target))
			}
		})
	}

	if _, err := Merge(Int(1), NewObject(0)); !errors.Is(err, ErrNotMergeable) {
		t.Fatalf("Merge(int, record) error = %v, want %v", err, ErrNotMergeable)
	}
}
