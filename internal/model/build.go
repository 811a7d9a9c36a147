package model

import "time"

// BuildOptions carries the knobs the configuration allows a caller to pass
// through to the external compiler. Anything beyond this is the compiler's
// business, not the harness's.
type BuildOptions struct {
	// Flags are extra command-line flags appended after the configured
	// defaults (optimization level, include paths, ...).
	Flags []string

	// Timeout bounds the child compiler process. Zero means the adapter's
	// default.
	Timeout time.Duration
}

// BuildReport records one compiler invocation for post-mortem inspection.
// Reports are produced for failed builds too; diagnosing a broken testcase
// is the whole point of keeping them.
type BuildReport struct {
	Target    Target        `yaml:"target"`
	Command   []string      `yaml:"command"`
	ExitCode  int           `yaml:"exit_code"`
	Output    string        `yaml:"output"`
	Artifact  Path          `yaml:"artifact"`
	WorkDir   Path          `yaml:"work_dir"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`
	Succeeded bool          `yaml:"succeeded"`
}
