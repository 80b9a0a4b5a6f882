package pathing

import (
	"path/filepath"
	"strings"
)

// Stdin is the path that names standard input rather than a file.
const Stdin = "-"

// Normalize trims path-like input from config and suite fields.
func Normalize(path string) string {
	return strings.TrimSpace(path)
}

// IsAbsoluteLike reports whether the path should be treated as absolute
// regardless of host OS path semantics.
func IsAbsoluteLike(path string) bool {
	path = Normalize(path)
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) {
		return true
	}
	if strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, `//`) {
		return true
	}
	if strings.HasPrefix(path, "/") {
		return true
	}
	if len(path) >= 3 && isASCIIAlpha(path[0]) && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return true
	}

	return false
}

// Resolve resolves a possibly-relative path against baseDir, usually the
// directory of the file that referenced it. Absolute-like paths, empty paths
// and Stdin are returned unchanged.
func Resolve(path string, baseDir string) string {
	path = Normalize(path)
	if path == "" || path == Stdin {
		return path
	}
	if IsAbsoluteLike(path) || Normalize(baseDir) == "" {
		return path
	}

	return filepath.Join(baseDir, path)
}

// ResolveAll resolves every path against baseDir.
func ResolveAll(paths []string, baseDir string) []string {
	if paths == nil {
		return nil
	}
	resolved := make([]string, len(paths))
	for i, path := range paths {
		resolved[i] = Resolve(path, baseDir)
	}
	return resolved
}

func isASCIIAlpha(char byte) bool {
	return (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z')
}
