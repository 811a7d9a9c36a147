package model

import (
	"path/filepath"
	"runtime"
)

// Path represents a file system path.
type Path string

// SourceSet is the ordered list of source files submitted to one build.
// It is immutable once handed to a compile call and must be non-empty.
type SourceSet []Path

// Validate reports whether the set can be submitted to a build.
func (s SourceSet) Validate() error {
	if len(s) == 0 {
		return &ValidationError{Reason: "source set is empty"}
	}

	for i, p := range s {
		if p == "" {
			return &ValidationError{Reason: "source path is empty", Index: i}
		}
	}

	return nil
}

// Strings returns the paths as plain strings, preserving order.
func (s SourceSet) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}

	return out
}

// Target names the artifact one build produces. It is unique per test
// invocation; the harness derives a distinct working directory per target so
// concurrent builds of different targets never share on-disk state.
type Target string

// Validate reports whether the target can name an artifact.
func (t Target) Validate() error {
	if t == "" {
		return &ValidationError{Reason: "target name is empty"}
	}

	if string(t) != filepath.Base(string(t)) {
		return &ValidationError{Reason: "target name must not contain path separators"}
	}

	return nil
}

// Artifact derives the loadable module path for this target inside dir,
// following the platform's shared-library naming convention.
func (t Target) Artifact(dir Path) Path {
	return Path(filepath.Join(string(dir), string(t)+sharedLibSuffix()))
}

func sharedLibSuffix() string {
	switch runtime.GOOS {
	case "darwin":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}
