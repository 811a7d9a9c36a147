// Package adapter contains the infrastructure adapters for the harness:
// external compiler invocation, working-directory management, dynamic
// loading, and build-report persistence.
package adapter

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	m "github.com/toabey/gnat-llvm/internal/model"
)

// DefaultCompileTimeout bounds a child compiler process when the caller does
// not say otherwise.
const DefaultCompileTimeout = 2 * time.Minute

// CompilerAdapter abstracts the external compiler/linker invocation that
// turns a source set into one loadable module.
type CompilerAdapter interface {
	// Compile runs the configured compiler on sources inside workDir and
	// returns the artifact path for target. The report is filled in for both
	// outcomes; on failure err is a *model.BuildError and no artifact path
	// is returned.
	Compile(ctx context.Context, workDir m.Path, sources m.SourceSet, target m.Target, opts m.BuildOptions) (m.Path, m.BuildReport, error)
}

// LocalCompilerAdapter invokes one configured compiler command via os/exec.
// The toolchain itself is an external collaborator: the adapter only builds
// the command line, captures diagnostics, and verifies the artifact.
type LocalCompilerAdapter struct {
	command string
	flags   []string
	timeout time.Duration
}

// NewLocalCompilerAdapter constructs an adapter around the given compiler
// command and its default flags.
func NewLocalCompilerAdapter(command string, flags []string) *LocalCompilerAdapter {
	return &LocalCompilerAdapter{
		command: command,
		flags:   flags,
		timeout: DefaultCompileTimeout,
	}
}

// Compile runs `<command> <flags> <extra flags> -o <artifact> <sources>` to
// completion, blocking the caller. A non-zero exit, or a zero exit without
// the artifact on disk, is a *model.BuildError carrying the compiler's
// combined stdout/stderr and exit code. Partial artifacts are left in place
// for post-mortem inspection.
func (a *LocalCompilerAdapter) Compile(
	ctx context.Context,
	workDir m.Path,
	sources m.SourceSet,
	target m.Target,
	opts m.BuildOptions,
) (m.Path, m.BuildReport, error) {
	artifact := target.Artifact(workDir)

	// The child runs inside workDir so intermediate objects land there;
	// sources are resolved against the caller's directory first.
	absSources, err := absolutePaths(sources)
	if err != nil {
		return "", m.BuildReport{Target: target, WorkDir: workDir}, err
	}

	args := make([]string, 0, len(a.flags)+len(opts.Flags)+2+len(absSources))
	args = append(args, a.flags...)
	args = append(args, opts.Flags...)
	args = append(args, "-o", string(artifact))
	args = append(args, absSources...)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = a.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.command, args...)
	cmd.Dir = string(workDir)

	var out bytes.Buffer

	cmd.Stdout = &out
	cmd.Stderr = &out

	started := time.Now()
	runErr := cmd.Run()

	report := m.BuildReport{
		Target:    target,
		Command:   append([]string{a.command}, args...),
		Output:    out.String(),
		Artifact:  artifact,
		WorkDir:   workDir,
		StartedAt: started,
		Duration:  time.Since(started),
	}

	if runErr != nil {
		report.ExitCode = exitCode(runErr)

		slog.Debug("compiler failed",
			"target", target, "exit", report.ExitCode, "error", runErr)

		return "", report, &m.BuildError{
			Target:   target,
			Command:  report.Command,
			ExitCode: report.ExitCode,
			Output:   report.Output,
			Artifact: artifact,
		}
	}

	// A compiler that claims success but leaves no artifact is still a build
	// failure, never a loader failure.
	if _, err := os.Stat(string(artifact)); err != nil {
		return "", report, &m.BuildError{
			Target:   target,
			Command:  report.Command,
			Output:   report.Output,
			Artifact: artifact,
			Missing:  true,
		}
	}

	report.Succeeded = true

	slog.Debug("compiled module",
		"target", target, "artifact", artifact, "duration", report.Duration)

	return artifact, report, nil
}

func absolutePaths(sources m.SourceSet) ([]string, error) {
	out := make([]string, len(sources))

	for i, s := range sources {
		abs, err := filepath.Abs(string(s))
		if err != nil {
			return nil, err
		}

		out[i] = abs
	}

	return out, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}
