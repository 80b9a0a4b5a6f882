package evaluator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mfelsche/tremor-runtime/internal/ast"
	"github.com/mfelsche/tremor-runtime/internal/diagnostics"
	"github.com/mfelsche/tremor-runtime/internal/parser"
	"github.com/mfelsche/tremor-runtime/pkg/value"
)

const classification = `
match event of
  case %{application == "app1"} => let $classification = "applog_app1"; let $rate = 1250
  case %{application == "app2"} => let $classification = "applog_app2"; let $rate = 2500
  case %{application == "app3"} => let $classification = "applog_app3"; let $rate = 18750
  case %{present index_type} => let $classification = "logs_#{event.index_type}"; let $rate = 50
  default => let $classification = "default"; let $rate = 250
end;
let $below = 10;
event
`

func TestClassificationIsIdempotent(t *testing.T) {
	t.Parallel()

	prog := compile(t, classification, Options{})
	event := jsonValue(t, `{"application":"app2"}`)
	want := jsonValue(t, `{"classification":"applog_app2","rate":2500,"below":10}`)

	for i := 0; i < 3; i++ {
		got := prog.Run(Input{Event: event, Meta: value.NewObject(0)})
		if got.Disposition != Emit {
			t.Fatalf("run %d: Disposition = %s (err %v), want emit", i, got.Disposition, got.Err)
		}
		assertValue(t, "Meta", got.Meta, want)
		assertValue(t, "Value", got.Value, event)
	}
}

func TestPatchProperties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		op      string
		event   string
		wantErr bool
	}{
		{name: "insert_missing", op: "insert", event: "{}"},
		{name: "insert_existing", op: "insert", event: `{"k":0}`, wantErr: true},
		{name: "update_existing", op: "update", event: `{"k":0}`},
		{name: "update_missing", op: "update", event: "{}", wantErr: true},
		{name: "upsert_missing", op: "upsert", event: "{}"},
		{name: "upsert_existing", op: "upsert", event: `{"k":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := runJSON(t, fmt.Sprintf(`patch event of %s "k" => 1 end`, tt.op), tt.event)
			if tt.wantErr {
				if code := diagnostics.CodeOf(got.Err); code != diagnostics.CodePatchFailed {
					t.Fatalf("code = %q, want %q", code, diagnostics.CodePatchFailed)
				}
				return
			}
			if got.Err != nil {
				t.Fatalf("Err = %v", got.Err)
			}
			v, _ := got.Value.(*value.Object).Get("k")
			assertValue(t, "k", v, value.Int(1))
		})
	}
}

func TestMergeProperties(t *testing.T) {
	t.Parallel()

	for _, event := range []string{`{}`, `{"a":1}`, `{"a":{"b":[1,2]},"c":"x"}`} {
		got := runJSON(t, "merge event of {} end", event)
		assertValue(t, "merge A of {}", got.Value, jsonValue(t, event))
	}

	got := runJSON(t, `merge {"x": 1} of {"x": 2} end`, "")
	assertValue(t, "right bias", got.Value, jsonValue(t, `{"x":2}`))
}

func TestFirstMatchWins(t *testing.T) {
	t.Parallel()

	src := `
match event of
  case %{present a} => let $hit = "p1"
  case %{a == 1} => let $hit = "p2"
  default => let $hit = "default"
end;
$hit`

	got := runJSON(t, src, `{"a":1}`)
	assertValue(t, "hit", got.Value, value.String("p1"))
}

func TestGlobAndCIDRPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		event string
		want  bool
	}{
		{name: "info_glob_matches_info", src: `%{msg ~= glob|*info*|}`, event: `{"msg":"application info here"}`, want: true},
		{name: "info_glob_rejects_error", src: `%{msg ~= glob|*info*|}`, event: `{"msg":"application ERROR here"}`},
		{name: "error_glob_matches_error", src: `%{msg ~= glob|*ERROR*|}`, event: `{"msg":"application ERROR here"}`, want: true},
		{name: "error_glob_rejects_info", src: `%{msg ~= glob|*ERROR*|}`, event: `{"msg":"application info here"}`},
		{name: "cidr_in_range", src: `%{ip ~= cidr|10.22.0.0/24|}`, event: `{"ip":"10.22.0.5"}`, want: true},
		{name: "cidr_out_of_range", src: `%{ip ~= cidr|10.22.0.0/24|}`, event: `{"ip":"10.23.0.5"}`},
		{name: "any_cidr_accepts_address", src: `~cidr||`, event: `"192.168.1.1"`, want: true},
		{name: "any_cidr_accepts_prefix", src: `~cidr||`, event: `"10.0.0.0/8"`, want: true},
		{name: "any_cidr_rejects_text", src: `~cidr||`, event: `"not an address"`},
		{name: "non_string_never_matches", src: `~glob|*|`, event: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := fmt.Sprintf("match event of case %s => true default => false end", tt.src)
			got := runJSON(t, src, tt.event)
			if got.Err != nil {
				t.Fatalf("Err = %v", got.Err)
			}
			assertValue(t, "matched", got.Value, value.Bool(tt.want))
		})
	}
}

func TestCIDRYieldsPrefixAndMask(t *testing.T) {
	t.Parallel()

	got := runJSON(t, "match event of case net = ~cidr|| => net end", `"10.22.0.0/16"`)
	assertValue(t, "Value", got.Value, jsonValue(t, `{"prefix":[10,22,0,0],"mask":[255,255,0,0]}`))
}

func TestAllDropScriptsNeverEmit(t *testing.T) {
	t.Parallel()

	prog := compile(t, `
match event of
  case %{level == "debug"} => drop "debug"
  case %{present level} => drop
  default => drop "unknown"
end`, Options{})

	for _, event := range []string{`{"level":"debug"}`, `{"level":"info"}`, `{}`, `1`, `[]`} {
		if got := prog.Run(Input{Event: jsonValue(t, event)}); got.Disposition != Drop {
			t.Fatalf("event %s: Disposition = %s, want drop", event, got.Disposition)
		}
	}
}

func TestFormattedSourceBehavesTheSame(t *testing.T) {
	t.Parallel()

	sources := []string{
		classification,
		`let event.tags = for event.labels of case (k, v) when v != null => "#{k}=#{v}" end; emit event => "tagged"`,
		`patch event of insert "seen" => true; default => {"level": "info"} end`,
		`match event of case r = %{msg ~= dissect|%{level} %{text}|} => r.msg case %[_, ...rest] => rest default => drop end`,
	}
	events := []string{
		`{"application":"app2"}`,
		`{"index_type":"web","labels":{"a":1,"b":null}}`,
		`{"msg":"warn disk full"}`,
		`[1,2,3]`,
		`{"labels":[]}`,
	}

	for i, src := range sources {
		original := compile(t, src, Options{})

		script, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("source %d: Parse() error = %v", i, err)
		}
		formatted := ast.Format(script)
		reparsed := compile(t, formatted, Options{})

		for _, event := range events {
			want := original.Run(Input{Event: jsonValue(t, event)})
			got := reparsed.Run(Input{Event: jsonValue(t, event)})
			if got.Disposition != want.Disposition || got.Port != want.Port {
				t.Fatalf("source %d, event %s: got %s/%s, want %s/%s\n%s", i, event, got.Disposition, got.Port, want.Disposition, want.Port, formatted)
			}
			if diagnostics.CodeOf(got.Err) != diagnostics.CodeOf(want.Err) {
				t.Fatalf("source %d, event %s: error %v, want %v", i, event, got.Err, want.Err)
			}
			assertValue(t, "Value", got.Value, want.Value)
			assertValue(t, "Meta", got.Meta, want.Meta)
		}
	}
}

func TestProgramIsSafeForConcurrentRuns(t *testing.T) {
	t.Parallel()

	prog := compile(t, classification, Options{})
	apps := []string{"app1", "app2", "app3", "other"}
	want := []string{"applog_app1", "applog_app2", "applog_app3", "default"}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				n := (worker + i) % len(apps)
				event := value.ObjectOf(value.Field{Key: "application", Value: value.String(apps[n])})
				got := prog.Run(Input{Event: event})
				class, _ := got.Meta.Get("classification")
				if !value.Equal(class, value.String(want[n])) {
					errs <- fmt.Errorf("worker %d: classification = %v, want %s", worker, class, want[n])
					return
				}
			}
		}(worker)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
