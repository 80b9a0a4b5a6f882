package stdlib

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func call(t *testing.T, ctx *Context, qualified string, args ...value.Value) (value.Value, error) {
	t.Helper()
	module, name, ok := strings.Cut(qualified, "::")
	if !ok {
		t.Fatalf("bad function name %q", qualified)
	}
	f, err := Default().Lookup(module, name)
	if err != nil {
		t.Fatalf("Lookup(%s) error = %v", qualified, err)
	}
	return f.Call(ctx, args)
}

func jsonValue(t *testing.T, input string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(input))
	if err != nil {
		t.Fatalf("FromJSON(%q) error = %v", input, err)
	}
	return v
}

func strs(items ...string) value.Array {
	out := make(value.Array, len(items))
	for i, item := range items {
		out[i] = value.String(item)
	}
	return out
}

func TestFunctions(t *testing.T) {
	t.Parallel()

	s := func(v string) value.Value { return value.String(v) }
	i := func(v int64) value.Value { return value.Int(v) }

	tests := []struct {
		name string
		fn   string
		args []value.Value
		want string
	}{
		{name: "string_len_counts_runes", fn: "string::len", args: []value.Value{s("héllo")}, want: `5`},
		{name: "string_bytes", fn: "string::bytes", args: []value.Value{s("héllo")}, want: `6`},
		{name: "string_is_empty", fn: "string::is_empty", args: []value.Value{s("")}, want: `true`},
		{name: "string_lowercase", fn: "string::lowercase", args: []value.Value{s("AbC")}, want: `"abc"`},
		{name: "string_uppercase", fn: "string::uppercase", args: []value.Value{s("AbC")}, want: `"ABC"`},
		{name: "string_capitalize", fn: "string::capitalize", args: []value.Value{s("élan vital")}, want: `"Élan vital"`},
		{name: "string_title", fn: "string::title", args: []value.Value{s("hello wide world")}, want: `"Hello Wide World"`},
		{name: "string_trim", fn: "string::trim", args: []value.Value{s("  x \t")}, want: `"x"`},
		{name: "string_trim_start", fn: "string::trim_start", args: []value.Value{s("  x ")}, want: `"x "`},
		{name: "string_trim_end", fn: "string::trim_end", args: []value.Value{s("  x ")}, want: `"  x"`},
		{name: "string_replace_all_occurrences", fn: "string::replace", args: []value.Value{s("a-b-c"), s("-"), s("+")}, want: `"a+b+c"`},
		{name: "string_contains", fn: "string::contains", args: []value.Value{s("snot badger"), s("badger")}, want: `true`},
		{name: "string_starts_with", fn: "string::starts_with", args: []value.Value{s("snot"), s("sn")}, want: `true`},
		{name: "string_ends_with", fn: "string::ends_with", args: []value.Value{s("snot"), s("sn")}, want: `false`},
		{name: "string_split", fn: "string::split", args: []value.Value{s("a,b,,c"), s(",")}, want: `["a","b","","c"]`},
		{name: "string_substr_runes", fn: "string::substr", args: []value.Value{s("héllo"), i(1), i(3)}, want: `"él"`},
		{name: "string_reverse", fn: "string::reverse", args: []value.Value{s("abç")}, want: `"çba"`},
		{name: "string_format", fn: "string::format", args: []value.Value{s("{} is {{{}}}"), s("x"), i(1)}, want: `"x is {1}"`},
		{name: "string_format_renders_json", fn: "string::format", args: []value.Value{s("v={}"), jsonValue(t, `{"a":[1]}`)}, want: `"v={\"a\":[1]}"`},
		{name: "string_normalize_nfc", fn: "string::normalize", args: []value.Value{s("e\u0301")}, want: `"\u00e9"`},
		{name: "string_contains_any", fn: "string::contains_any", args: []value.Value{s("error: disk full"), strs("warn", "disk")}, want: `true`},
		{name: "string_contains_any_none", fn: "string::contains_any", args: []value.Value{s("all good"), strs("warn", "disk")}, want: `false`},
		{name: "string_contains_any_empty_needles", fn: "string::contains_any", args: []value.Value{s("x"), strs()}, want: `false`},
		{name: "string_find_any_in_order", fn: "string::find_any", args: []value.Value{s("b then a then b"), strs("a", "b")}, want: `["b","a"]`},

		{name: "array_len", fn: "array::len", args: []value.Value{jsonValue(t, `[1,2,3]`)}, want: `3`},
		{name: "array_is_empty", fn: "array::is_empty", args: []value.Value{jsonValue(t, `[]`)}, want: `true`},
		{name: "array_contains_numeric_equality", fn: "array::contains", args: []value.Value{jsonValue(t, `[1,2]`), value.Float(2)}, want: `true`},
		{name: "array_push", fn: "array::push", args: []value.Value{jsonValue(t, `[1]`), i(2)}, want: `[1,2]`},
		{name: "array_concat", fn: "array::concat", args: []value.Value{jsonValue(t, `[1]`), jsonValue(t, `[2,3]`)}, want: `[1,2,3]`},
		{name: "array_join", fn: "array::join", args: []value.Value{strs("a", "b"), s("-")}, want: `"a-b"`},
		{name: "array_flatten_deep", fn: "array::flatten", args: []value.Value{jsonValue(t, `[1,[2,[3,[]]],4]`)}, want: `[1,2,3,4]`},
		{name: "array_reverse", fn: "array::reverse", args: []value.Value{jsonValue(t, `[1,2,3]`)}, want: `[3,2,1]`},
		{name: "array_sort_numbers", fn: "array::sort", args: []value.Value{jsonValue(t, `[3,1.5,2]`)}, want: `[1.5,2,3]`},
		{name: "array_sort_strings", fn: "array::sort", args: []value.Value{strs("b", "a", "c")}, want: `["a","b","c"]`},
		{name: "array_coalesce", fn: "array::coalesce", args: []value.Value{jsonValue(t, `[null,1,null,2]`)}, want: `[1,2]`},
		{name: "array_zip", fn: "array::zip", args: []value.Value{jsonValue(t, `[1,2]`), strs("a", "b")}, want: `[[1,"a"],[2,"b"]]`},
		{name: "array_unzip", fn: "array::unzip", args: []value.Value{jsonValue(t, `[[1,"a"],[2,"b"]]`)}, want: `[[1,2],["a","b"]]`},

		{name: "record_len", fn: "record::len", args: []value.Value{jsonValue(t, `{"a":1,"b":2}`)}, want: `2`},
		{name: "record_is_empty", fn: "record::is_empty", args: []value.Value{jsonValue(t, `{}`)}, want: `true`},
		{name: "record_contains", fn: "record::contains", args: []value.Value{jsonValue(t, `{"a":1}`), s("a")}, want: `true`},
		{name: "record_keys_in_insertion_order", fn: "record::keys", args: []value.Value{jsonValue(t, `{"b":1,"a":2}`)}, want: `["b","a"]`},
		{name: "record_values", fn: "record::values", args: []value.Value{jsonValue(t, `{"b":1,"a":2}`)}, want: `[1,2]`},
		{name: "record_to_array", fn: "record::to_array", args: []value.Value{jsonValue(t, `{"a":1}`)}, want: `[["a",1]]`},
		{name: "record_from_array", fn: "record::from_array", args: []value.Value{jsonValue(t, `[["a",1],["b",2],["a",3]]`)}, want: `{"a":3,"b":2}`},
		{name: "record_select", fn: "record::select", args: []value.Value{jsonValue(t, `{"a":1,"b":2,"c":3}`), strs("a", "c", "z")}, want: `{"a":1,"c":3}`},
		{name: "record_remove", fn: "record::remove", args: []value.Value{jsonValue(t, `{"a":1,"b":2}`), s("a")}, want: `{"b":2}`},
		{name: "record_merge_deep", fn: "record::merge", args: []value.Value{jsonValue(t, `{"a":{"x":1},"b":2}`), jsonValue(t, `{"a":{"y":2},"b":null}`)}, want: `{"a":{"x":1,"y":2}}`},
		{name: "record_rename", fn: "record::rename", args: []value.Value{jsonValue(t, `{"a":1}`), s("a"), s("b")}, want: `{"b":1}`},
		{name: "record_rename_missing", fn: "record::rename", args: []value.Value{jsonValue(t, `{"a":1}`), s("z"), s("b")}, want: `{"a":1}`},

		{name: "math_floor", fn: "math::floor", args: []value.Value{value.Float(1.7)}, want: `1`},
		{name: "math_ceil", fn: "math::ceil", args: []value.Value{value.Float(1.2)}, want: `2`},
		{name: "math_round_half_away", fn: "math::round", args: []value.Value{value.Float(-2.5)}, want: `-3`},
		{name: "math_trunc", fn: "math::trunc", args: []value.Value{value.Float(-2.7)}, want: `-2`},
		{name: "math_floor_int_passthrough", fn: "math::floor", args: []value.Value{i(4)}, want: `4`},
		{name: "math_abs_int", fn: "math::abs", args: []value.Value{i(-4)}, want: `4`},
		{name: "math_abs_float", fn: "math::abs", args: []value.Value{value.Float(-0.5)}, want: `0.5`},
		{name: "math_min", fn: "math::min", args: []value.Value{i(3), value.Float(2.5)}, want: `2.5`},
		{name: "math_max", fn: "math::max", args: []value.Value{i(3), value.Float(2.5)}, want: `3`},
		{name: "math_pow_int", fn: "math::pow", args: []value.Value{i(2), i(10)}, want: `1024`},
		{name: "math_pow_float", fn: "math::pow", args: []value.Value{i(4), value.Float(0.5)}, want: `2.0`},
		{name: "math_sqrt", fn: "math::sqrt", args: []value.Value{i(9)}, want: `3.0`},

		{name: "type_of", fn: "type::of", args: []value.Value{jsonValue(t, `{}`)}, want: `"record"`},
		{name: "type_as_string", fn: "type::as_string", args: []value.Value{jsonValue(t, `[1,"a"]`)}, want: `"[1,\"a\"]"`},
		{name: "type_is_null", fn: "type::is_null", args: []value.Value{value.Null{}}, want: `true`},
		{name: "type_is_number_float", fn: "type::is_number", args: []value.Value{value.Float(1)}, want: `true`},
		{name: "type_is_integer_float", fn: "type::is_integer", args: []value.Value{value.Float(1)}, want: `false`},
		{name: "type_is_record", fn: "type::is_record", args: []value.Value{jsonValue(t, `{}`)}, want: `true`},
		{name: "integer_parse", fn: "integer::parse", args: []value.Value{s("-42")}, want: `-42`},
		{name: "integer_parse_hex", fn: "integer::parse", args: []value.Value{s("0x1f")}, want: `31`},
		{name: "float_parse", fn: "float::parse", args: []value.Value{s("2.5e-1")}, want: `0.25`},

		{name: "json_encode", fn: "json::encode", args: []value.Value{jsonValue(t, `{"b":[1,2.5,null]}`)}, want: `"{\"b\":[1,2.5,null]}"`},
		{name: "json_encode_pretty", fn: "json::encode_pretty", args: []value.Value{jsonValue(t, `{"a":1}`)}, want: `"{\n  \"a\": 1\n}"`},
		{name: "json_decode", fn: "json::decode", args: []value.Value{s(`{"a":[true]}`)}, want: `{"a":[true]}`},
		{name: "json_path", fn: "json::path", args: []value.Value{jsonValue(t, `{"items":[{"n":1},{"n":5}]}`), s("$.items[*].n")}, want: `[1,5]`},
		{name: "json_path_no_nodes", fn: "json::path", args: []value.Value{jsonValue(t, `{"a":1}`), s("$.b")}, want: `[]`},
		{name: "base64_encode", fn: "base64::encode", args: []value.Value{s("snot")}, want: `"c25vdA=="`},
		{name: "base64_decode", fn: "base64::decode", args: []value.Value{s("c25vdA==")}, want: `"snot"`},

		{name: "re_is_match", fn: "re::is_match", args: []value.Value{s(`^\d+$`), s("123")}, want: `true`},
		{name: "re_replace_first", fn: "re::replace", args: []value.Value{s(`(\d)`), s("a1b2"), s("<$1>")}, want: `"a<1>b2"`},
		{name: "re_replace_no_match", fn: "re::replace", args: []value.Value{s(`x`), s("abc"), s("y")}, want: `"abc"`},
		{name: "re_replace_all", fn: "re::replace_all", args: []value.Value{s(`\d`), s("a1b2"), s("#")}, want: `"a#b#"`},
		{name: "re_split", fn: "re::split", args: []value.Value{s(`\s*,\s*`), s("a , b,c")}, want: `["a","b","c"]`},

		{name: "chash_jump_single_bucket", fn: "chash::jump", args: []value.Value{s("key"), i(1)}, want: `0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := call(t, nil, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("%s error = %v", tt.fn, err)
			}
			want := jsonValue(t, tt.want)
			if !value.Equal(got, want) || value.KindOf(got) != value.KindOf(want) {
				t.Fatalf("%s = %s (%s), want %s", tt.fn, value.Stringify(got), value.KindOf(got), tt.want)
			}
		})
	}
}

func TestFunctionErrors(t *testing.T) {
	t.Parallel()

	s := func(v string) value.Value { return value.String(v) }

	tests := []struct {
		name    string
		fn      string
		args    []value.Value
		wantErr error
	}{
		{name: "arity_too_few", fn: "string::replace", args: []value.Value{s("a"), s("b")}, wantErr: ErrArity},
		{name: "arity_too_many", fn: "string::len", args: []value.Value{s("a"), s("b")}, wantErr: ErrArity},
		{name: "wrong_type", fn: "string::len", args: []value.Value{value.Int(1)}, wantErr: ErrBadArgument},
		{name: "substr_out_of_range", fn: "string::substr", args: []value.Value{s("abc"), value.Int(2), value.Int(9)}, wantErr: ErrBadArgument},
		{name: "format_missing_argument", fn: "string::format", args: []value.Value{s("{} {}"), s("x")}, wantErr: ErrBadArgument},
		{name: "format_extra_argument", fn: "string::format", args: []value.Value{s("{}"), s("x"), s("y")}, wantErr: ErrBadArgument},
		{name: "format_unmatched_brace", fn: "string::format", args: []value.Value{s("{x")}, wantErr: ErrBadArgument},
		{name: "join_non_strings", fn: "array::join", args: []value.Value{value.Array{value.Int(1)}, s(",")}, wantErr: ErrBadArgument},
		{name: "sort_mixed", fn: "array::sort", args: []value.Value{value.Array{value.Int(1), s("a")}}, wantErr: ErrBadArgument},
		{name: "zip_length_mismatch", fn: "array::zip", args: []value.Value{value.Array{value.Int(1)}, value.Array{}}, wantErr: ErrBadArgument},
		{name: "from_array_bad_pair", fn: "record::from_array", args: []value.Value{value.Array{value.Int(1)}}, wantErr: ErrBadArgument},
		{name: "sqrt_negative", fn: "math::sqrt", args: []value.Value{value.Int(-1)}, wantErr: ErrBadArgument},
		{name: "integer_parse_garbage", fn: "integer::parse", args: []value.Value{s("12a")}, wantErr: ErrBadArgument},
		{name: "float_parse_nan", fn: "float::parse", args: []value.Value{s("NaN")}, wantErr: ErrBadArgument},
		{name: "json_decode_invalid", fn: "json::decode", args: []value.Value{s("{")}, wantErr: ErrBadArgument},
		{name: "json_path_invalid", fn: "json::path", args: []value.Value{value.Null{}, s("$[")}, wantErr: ErrBadArgument},
		{name: "base64_decode_invalid", fn: "base64::decode", args: []value.Value{s("!!")}, wantErr: ErrBadArgument},
		{name: "re_invalid_pattern", fn: "re::is_match", args: []value.Value{s("("), s("x")}, wantErr: ErrBadArgument},
		{name: "chash_zero_buckets", fn: "chash::jump", args: []value.Value{s("k"), value.Int(0)}, wantErr: ErrBadArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := call(t, nil, tt.fn, tt.args...); !errors.Is(err, tt.wantErr) {
				t.Fatalf("%s error = %v, want %v", tt.fn, err, tt.wantErr)
			}
		})
	}
}

func TestErrorsNameTheFunction(t *testing.T) {
	t.Parallel()

	_, err := call(t, nil, "math::sqrt", value.Int(-1))
	if err == nil || !strings.HasPrefix(err.Error(), "math::sqrt: ") {
		t.Fatalf("error = %v, want math::sqrt prefix", err)
	}
}

func TestContextFunctions(t *testing.T) {
	t.Parallel()

	fixed := time.Unix(0, 1234)
	ctx := &Context{
		Hostname: "host-a",
		Instance: "main",
		IngestNS: 99,
		Origin:   "tcp://10.0.0.1:4242",
		Now:      func() time.Time { return fixed },
	}

	tests := []struct {
		fn   string
		want value.Value
	}{
		{fn: "system::hostname", want: value.String("host-a")},
		{fn: "system::instance", want: value.String("main")},
		{fn: "system::ingest_ns", want: value.Int(99)},
		{fn: "system::origin", want: value.String("tcp://10.0.0.1:4242")},
		{fn: "system::nanotime", want: value.Int(1234)},
	}

	for _, tt := range tests {
		got, err := call(t, ctx, tt.fn)
		if err != nil {
			t.Fatalf("%s error = %v", tt.fn, err)
		}
		if !value.Equal(got, tt.want) {
			t.Fatalf("%s = %v, want %v", tt.fn, got, tt.want)
		}
	}

	if got, err := call(t, nil, "system::hostname"); err != nil || !value.Equal(got, value.String("")) {
		t.Fatalf("system::hostname with nil context = (%v, %v)", got, err)
	}
}

func TestImpureFunctionsAreMarked(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"system::hostname", "system::nanotime", "uuid::v4"} {
		module, fn, _ := strings.Cut(name, "::")
		f, err := Default().Lookup(module, fn)
		if err != nil {
			t.Fatalf("Lookup(%s) error = %v", name, err)
		}
		if f.Pure {
			t.Fatalf("%s is marked pure", name)
		}
	}

	f, err := Default().Lookup("string", "len")
	if err != nil || !f.Pure {
		t.Fatalf("string::len should be pure, got (%v, %v)", f, err)
	}
}

func TestUUIDv4(t *testing.T) {
	t.Parallel()

	a, err := call(t, nil, "uuid::v4")
	if err != nil {
		t.Fatalf("uuid::v4 error = %v", err)
	}
	b, _ := call(t, nil, "uuid::v4")
	id, ok := a.(value.String)
	if !ok || len(id) != 36 || id[14] != '4' {
		t.Fatalf("uuid::v4 = %v, want a version 4 UUID", a)
	}
	if value.Equal(a, b) {
		t.Fatalf("uuid::v4 returned %v twice", a)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	_, err := Default().Lookup("string", "upper")
	if !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("Lookup error = %v, want %v", err, ErrUnknownFunction)
	}
	if !strings.Contains(err.Error(), "did you mean string::uppercase") {
		t.Fatalf("Lookup error = %v, want a suggestion", err)
	}

	_, err = Default().Lookup("zzz", "qqqqqqqq")
	if !errors.Is(err, ErrUnknownFunction) || strings.Contains(err.Error(), "did you mean") {
		t.Fatalf("Lookup error = %v, want no suggestion", err)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	double := pure("host", "double", 1, func(args []value.Value) (value.Value, error) {
		n, err := asInt(args, 0)
		if err != nil {
			return nil, err
		}
		return value.Int(n * 2), nil
	})
	if err := r.Register(double); err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if err := r.Register(double); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second Register error = %v, want %v", err, ErrDuplicate)
	}
	if err := r.Register(Function{Module: "host", Name: "broken"}); !errors.Is(err, ErrBadArgument) {
		t.Fatalf("Register without Fn error = %v, want %v", err, ErrBadArgument)
	}
	if err := r.Register(Function{Module: "host", Name: "bad", MinArgs: 2, MaxArgs: 1, Fn: double.Fn}); !errors.Is(err, ErrBadArgument) {
		t.Fatalf("Register with inverted arity error = %v, want %v", err, ErrBadArgument)
	}

	f, err := r.Lookup("host", "double")
	if err != nil {
		t.Fatalf("Lookup error = %v", err)
	}
	got, err := f.Call(nil, []value.Value{value.Int(21)})
	if err != nil || !value.Equal(got, value.Int(42)) {
		t.Fatalf("Call = (%v, %v), want 42", got, err)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "host::double" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestBoundedCache(t *testing.T) {
	t.Parallel()

	compiled := 0
	var mu sync.Mutex
	cache := newBoundedCache(2, func(key string) (string, error) {
		mu.Lock()
		compiled++
		mu.Unlock()
		if key == "bad" {
			return "", errors.New("bad key")
		}
		return strings.ToUpper(key), nil
	})

	for _, key := range []string{"a", "a", "b", "c", "a"} {
		got, err := cache.Get(key)
		if err != nil || got != strings.ToUpper(key) {
			t.Fatalf("Get(%q) = (%q, %v)", key, got, err)
		}
		if cache.Len() > 2 {
			t.Fatalf("Len() = %d, want at most 2", cache.Len())
		}
	}
	if _, err := cache.Get("bad"); err == nil {
		t.Fatal("Get(bad) expected error")
	}
	if compiled < 4 {
		t.Fatalf("compiled %d times, want at least 4", compiled)
	}

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get("x"); err != nil {
				t.Errorf("Get(x) error = %v", err)
			}
		}()
	}
	wg.Wait()
}
