package model

import (
	"fmt"
	"strings"
)

// The harness error taxonomy. Each stage of the compile→load→bind→invoke
// pipeline fails with exactly one of these types; none are retried and none
// are downgraded to warnings. A signature/ABI mismatch is deliberately absent:
// it is undefined behavior at call time, not a detectable error class.

// ValidationError reports a malformed input (empty source set, bad target
// name, invalid or duplicate declaration) before any work starts.
type ValidationError struct {
	Reason string
	Index  int
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

// BuildError reports that the external compiler/linker exited non-zero, or
// claimed success without producing the expected artifact. It carries the
// full diagnostic output so a test author can read the compiler's own words.
type BuildError struct {
	Target   Target
	Command  []string
	ExitCode int
	Output   string
	Artifact Path
	Missing  bool // zero exit but no artifact on disk
}

func (e *BuildError) Error() string {
	if e.Missing {
		return fmt.Sprintf("build %s: compiler exited 0 but produced no artifact at %s", e.Target, e.Artifact)
	}

	msg := fmt.Sprintf("build %s: %s exited %d", e.Target, strings.Join(e.Command, " "), e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}

	return msg
}

// LoadError reports that the produced module could not be opened: missing
// file, wrong format or ABI for this process, or unresolved external
// dependencies. Detail is the platform loader's diagnostic, verbatim.
type LoadError struct {
	Path   Path
	Detail string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s", e.Path, e.Detail)
}

// SymbolError reports a declared symbol absent from the module's export
// table. Available lists the module's dynamic exports when they could be
// read, so the author can spot mangling or spelling mistakes.
type SymbolError struct {
	Path      Path
	Symbol    string
	Detail    string
	Available []string
}

func (e *SymbolError) Error() string {
	msg := fmt.Sprintf("symbol %q not found in %s", e.Symbol, e.Path)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	if len(e.Available) > 0 {
		msg += "\navailable exports: " + strings.Join(e.Available, ", ")
	}

	return msg
}

// UnloadedError reports use of a module after it was released: a second
// Close, a bind, or an invocation through a callable whose module is gone.
type UnloadedError struct {
	Path Path
	Op   string
}

func (e *UnloadedError) Error() string {
	return fmt.Sprintf("%s %s: module already unloaded", e.Op, e.Path)
}

// CallError reports a malformed invocation: wrong argument count, an
// argument that cannot represent the declared tag, or an integer outside the
// declared width's range. The native call is never attempted.
type CallError struct {
	Symbol string
	Reason string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s: %s", e.Symbol, e.Reason)
}
