package pathing

import (
	"path/filepath"
	"slices"
	"testing"
)

func TestIsAbsoluteLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "empty", path: "", want: false},
		{name: "relative", path: "classify.tremor", want: false},
		{name: "dot_relative", path: "./scripts/classify.tremor", want: false},
		{name: "posix_absolute", path: "/etc/tremor/classify.tremor", want: true},
		{name: "padded_absolute", path: "  /etc/tremor/classify.tremor ", want: true},
		{name: "windows_drive_backslash", path: `C:\tremor\classify.tremor`, want: true},
		{name: "windows_drive_slash", path: `C:/tremor/classify.tremor`, want: true},
		{name: "unc_backslash", path: `\\server\share\classify.tremor`, want: true},
		{name: "unc_slash", path: `//server/share/classify.tremor`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsAbsoluteLike(tt.path); got != tt.want {
				t.Fatalf("IsAbsoluteLike(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		baseDir string
		want    string
	}{
		{name: "relative", path: "classify.tremor", baseDir: "suites", want: filepath.Join("suites", "classify.tremor")},
		{name: "nested_relative", path: "../scripts/classify.tremor", baseDir: "suites", want: filepath.Join("scripts", "classify.tremor")},
		{name: "absolute", path: "/srv/classify.tremor", baseDir: "suites", want: "/srv/classify.tremor"},
		{name: "stdin", path: "-", baseDir: "suites", want: "-"},
		{name: "empty", path: "  ", baseDir: "suites", want: ""},
		{name: "no_base", path: "classify.tremor", baseDir: "", want: "classify.tremor"},
		{name: "trimmed", path: " classify.tremor\n", baseDir: "suites", want: filepath.Join("suites", "classify.tremor")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Resolve(tt.path, tt.baseDir); got != tt.want {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tt.path, tt.baseDir, got, tt.want)
			}
		})
	}
}

func TestResolveAll(t *testing.T) {
	t.Parallel()

	got := ResolveAll([]string{"a.json", "-", "/tmp/b.json"}, "events")
	want := []string{filepath.Join("events", "a.json"), "-", "/tmp/b.json"}
	if !slices.Equal(got, want) {
		t.Fatalf("ResolveAll = %q, want %q", got, want)
	}
	if ResolveAll(nil, "events") != nil {
		t.Fatal("ResolveAll(nil) should stay nil")
	}
}
