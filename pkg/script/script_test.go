package script

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mfelsche/tremor-runtime/pkg/value"
)

func mustCompile(t *testing.T, src string, opts ...Option) *Script {
	t.Helper()
	s, err := Compile(src, opts...)
	if err != nil {
		t.Fatalf("Compile() error = %v\n%s", err, Render(src, err))
	}
	return s
}

func jsonValue(t *testing.T, input string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(input))
	if err != nil {
		t.Fatalf("FromJSON(%q) error = %v", input, err)
	}
	return v
}

func TestRunOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		event string
		kind  Kind
		value string
		port  string
	}{
		{name: "emit_event", src: "let event.seen = true; emit", event: "{}", kind: Emit, value: `{"seen":true}`, port: "out"},
		{name: "emit_to_port", src: `emit event.a => "side"`, event: `{"a":1}`, kind: Emit, value: "1", port: "side"},
		{name: "implicit_emit", src: "event.a + 1", event: `{"a":1}`, kind: Emit, value: "2", port: "out"},
		{name: "drop", src: `drop "filtered"`, event: `{"a":1}`, kind: Drop, value: `{"a":1}`},
		{name: "error", src: "event.a + 1", event: `{"a":"x"}`, kind: Error, value: `{"a":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := mustCompile(t, tt.src).Run(&Event{Value: jsonValue(t, tt.event)}, Context{})
			if out.Kind != tt.kind {
				t.Fatalf("Kind = %s (err %v), want %s", out.Kind, out.Err, tt.kind)
			}
			if !value.Equal(out.Value, jsonValue(t, tt.value)) {
				t.Fatalf("Value = %s, want %s", value.Stringify(out.Value), tt.value)
			}
			if out.Port != tt.port {
				t.Fatalf("Port = %q, want %q", out.Port, tt.port)
			}
			if (out.Kind == Error) != (out.Err != nil) {
				t.Fatalf("Err = %v with kind %s", out.Err, out.Kind)
			}
		})
	}
}

func TestRuntimeErrorsAreTyped(t *testing.T) {
	t.Parallel()

	out := mustCompile(t, "event.missing").Run(&Event{Value: value.NewObject(0)}, Context{})
	var runtimeErr *RuntimeError
	if !errors.As(out.Err, &runtimeErr) {
		t.Fatalf("Err = %v, want *RuntimeError", out.Err)
	}
	if runtimeErr.Code() != "missing_field" {
		t.Fatalf("Code() = %q, want missing_field", runtimeErr.Code())
	}
	if !errors.Is(out.Err, ErrRuntime) {
		t.Fatalf("Err = %v, want ErrRuntime", out.Err)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		sentinel error
		render   string
	}{
		{name: "syntax", src: "let a = (1 + 2", sentinel: ErrSyntax, render: "^"},
		{name: "unknown_function", src: "let a = 1;\nstring::shout(a)", sentinel: ErrCompile, render: "   2 | string::shout(a)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Compile(tt.src)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("Compile() error = %v, want %v", err, tt.sentinel)
			}
			if len(Diagnostics(err)) == 0 {
				t.Fatal("Diagnostics() is empty")
			}
			if rendered := Render(tt.src, err); !strings.Contains(rendered, tt.render) {
				t.Fatalf("Render() = %q, want it to contain %q", rendered, tt.render)
			}
		})
	}
}

func TestEventAndContextFacts(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 1234)
	s := mustCompile(t, `{
		"host": system::hostname(),
		"instance": system::instance(),
		"ingest": system::ingest_ns(),
		"origin": system::origin(),
		"now": system::nanotime(),
		"topic": $topic
	}`)

	ev := &Event{
		Value:    value.Null{},
		Meta:     value.ObjectOf(value.Field{Key: "topic", Value: value.String("logs")}),
		IngestNS: 99,
		Origin:   "file:///var/log/app.log",
	}
	out := s.Run(ev, Context{Hostname: "node-1", Instance: "main", Now: func() time.Time { return now }})

	want := jsonValue(t, `{"host":"node-1","instance":"main","ingest":99,"origin":"file:///var/log/app.log","now":1234,"topic":"logs"}`)
	if !value.Equal(out.Value, want) {
		t.Fatalf("Value = %s, want %s", value.Stringify(out.Value), value.Stringify(want))
	}
}

func TestRunLeavesEventUntouched(t *testing.T) {
	t.Parallel()

	s := mustCompile(t, `let event.a = 2; let $m = true; emit`)
	ev := &Event{Value: jsonValue(t, `{"a":1}`), Meta: value.NewObject(0)}

	out := s.Run(ev, Context{})
	if !value.Equal(ev.Value, jsonValue(t, `{"a":1}`)) || ev.Meta.Len() != 0 {
		t.Fatalf("event changed: %s %s", value.Stringify(ev.Value), value.Stringify(ev.Meta))
	}
	if !value.Equal(out.Meta, jsonValue(t, `{"m":true}`)) {
		t.Fatalf("Meta = %s", value.Stringify(out.Meta))
	}
}

func TestNilEvent(t *testing.T) {
	t.Parallel()

	out := mustCompile(t, "type::of(event)").Run(nil, Context{})
	if !value.Equal(out.Value, value.String("null")) {
		t.Fatalf("Value = %s, want \"null\"", value.Stringify(out.Value))
	}
}

func TestImportsAndExports(t *testing.T) {
	t.Parallel()

	s := mustCompile(t, "import limit; export over; let over = event > limit; emit", WithImports(map[string]value.Value{
		"limit": value.Int(10),
	}))
	out := s.Run(&Event{Value: value.Int(11)}, Context{})
	if got, _ := out.Exports.Get("over"); !value.Equal(got, value.Bool(true)) {
		t.Fatalf("Exports = %s", value.Stringify(out.Exports))
	}

	if _, err := Compile("import limit; limit"); !errors.Is(err, ErrCompile) {
		t.Fatalf("Compile() without imports error = %v, want compile error", err)
	}
}

func TestMaxDepth(t *testing.T) {
	t.Parallel()

	out := mustCompile(t, "[[[event]]]", WithMaxDepth(2)).Run(&Event{Value: value.Int(1)}, Context{})
	if out.Kind != Error {
		t.Fatalf("Kind = %s, want error", out.Kind)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()

	src := `match event of case %{a > 1} => let $big = true; emit default => drop end`
	formatted, err := Format(src)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	again, err := Format(formatted)
	if err != nil {
		t.Fatalf("Format(formatted) error = %v", err)
	}
	if again != formatted {
		t.Fatalf("Format is not stable:\n%s\n---\n%s", formatted, again)
	}

	original := mustCompile(t, src)
	reformatted := mustCompile(t, formatted)
	if reformatted.Source() != formatted || original.Source() != src {
		t.Fatal("Source() does not return the compiled source")
	}
	for _, event := range []string{`{"a":2}`, `{"a":0}`, `{}`} {
		a := original.Run(&Event{Value: jsonValue(t, event)}, Context{})
		b := reformatted.Run(&Event{Value: jsonValue(t, event)}, Context{})
		if a.Kind != b.Kind || !value.Equal(a.Value, b.Value) || !value.Equal(a.Meta, b.Meta) {
			t.Fatalf("event %s: %s %s, want %s %s", event, b.Kind, value.Stringify(b.Value), a.Kind, value.Stringify(a.Value))
		}
	}
}
