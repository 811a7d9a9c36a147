// Package domain implements the harness façade: compile a source set with
// the external compiler, load the produced module, bind each declared symbol
// and hand the callables back to test code.
package domain

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/toabey/gnat-llvm/internal/adapter"
	m "github.com/toabey/gnat-llvm/internal/model"
)

// BuildRequest is one independent compile-load-bind unit for BuildAll.
type BuildRequest struct {
	Sources m.SourceSet
	Target  m.Target
	Decls   []m.Func
	Options m.BuildOptions
}

// Session is the result of one BuildAndLoad call. It owns the loaded module
// and the working directory; Callables are valid until Close. Callables are
// ordered positionally, one per declaration.
type Session struct {
	Callables []adapter.BoundCallable
	Report    m.BuildReport

	module  adapter.LoadedModule
	workDir m.Path
	cleanup func(m.Path) error
	closed  bool
}

// Close releases the loaded module and, when artifacts are not being kept,
// the working directory. Callables bound in this session are invalid
// afterwards. Closing twice surfaces the loader's UnloadedError.
func (s *Session) Close() error {
	if s.closed {
		return &m.UnloadedError{Path: s.workDir, Op: "close session"}
	}

	s.closed = true

	var err error
	if s.module != nil {
		err = s.module.Close()
	}

	if s.cleanup != nil {
		if cleanupErr := s.cleanup(s.workDir); cleanupErr != nil && err == nil {
			err = cleanupErr
		}
	}

	return err
}

// Harness orchestrates compiler, loader and binder for test code.
type Harness interface {
	// BuildAndLoad compiles sources into one module named by target, loads
	// it, and binds every declaration against it. All-or-nothing: any stage
	// failure aborts with that stage's error and no callables escape. Every
	// call recompiles; nothing is cached across calls.
	BuildAndLoad(ctx context.Context, sources m.SourceSet, target m.Target, decls []m.Func, opts m.BuildOptions) (*Session, error)

	// BuildAll runs independent requests concurrently, each in its own
	// working directory. Sessions come back in request order; the first
	// failure cancels the rest.
	BuildAll(ctx context.Context, requests []BuildRequest) ([]*Session, error)
}

// Config carries the harness policies the CLI/config layer decides.
type Config struct {
	// KeepArtifacts leaves working directories in place after Session.Close
	// for post-mortem inspection. Default true: this is a test harness.
	KeepArtifacts bool

	// ReportDir is where build reports are persisted; empty disables the
	// store.
	ReportDir m.Path
}

type harness struct {
	compiler  adapter.CompilerAdapter
	workspace adapter.WorkspaceAdapter
	loader    adapter.LoaderAdapter
	reports   adapter.ReportStore
	cfg       Config
}

// NewHarness constructs a Harness from its adapters.
func NewHarness(
	compiler adapter.CompilerAdapter,
	workspace adapter.WorkspaceAdapter,
	loader adapter.LoaderAdapter,
	reports adapter.ReportStore,
	cfg Config,
) Harness {
	return &harness{
		compiler:  compiler,
		workspace: workspace,
		loader:    loader,
		reports:   reports,
		cfg:       cfg,
	}
}

func (h *harness) BuildAndLoad(
	ctx context.Context,
	sources m.SourceSet,
	target m.Target,
	decls []m.Func,
	opts m.BuildOptions,
) (*Session, error) {
	if err := sources.Validate(); err != nil {
		return nil, err
	}

	if err := target.Validate(); err != nil {
		return nil, err
	}

	if err := m.ValidateFuncs(decls); err != nil {
		return nil, err
	}

	workDir, err := h.workspace.CreateWorkDir(target)
	if err != nil {
		return nil, fmt.Errorf("prepare workspace for %s: %w", target, err)
	}

	artifact, report, err := h.compiler.Compile(ctx, workDir, sources, target, opts)
	h.saveReport(report)

	if err != nil {
		// Partial build output stays on disk for diagnosis.
		slog.Error("build failed", "target", target, "workDir", workDir, "error", err)
		return nil, err
	}

	module, err := h.loader.Load(artifact)
	if err != nil {
		slog.Error("load failed", "artifact", artifact, "error", err)
		return nil, err
	}

	callables := make([]adapter.BoundCallable, 0, len(decls))

	for _, decl := range decls {
		c, err := module.Bind(decl)
		if err != nil {
			// All-or-nothing: a test relying on a missing symbol must fail
			// immediately, not receive a partially usable list.
			if closeErr := module.Close(); closeErr != nil {
				slog.Warn("unload after failed bind", "artifact", artifact, "error", closeErr)
			}

			return nil, err
		}

		callables = append(callables, c)
	}

	slog.Debug("module ready",
		"target", target, "artifact", artifact, "callables", len(callables))

	session := &Session{
		Callables: callables,
		Report:    report,
		module:    module,
		workDir:   workDir,
	}

	if !h.cfg.KeepArtifacts {
		session.cleanup = h.workspace.RemoveAll
	}

	return session, nil
}

func (h *harness) BuildAll(ctx context.Context, requests []BuildRequest) ([]*Session, error) {
	sessions := make([]*Session, len(requests))

	group, groupCtx := errgroup.WithContext(ctx)

	for i, req := range requests {
		i, req := i, req
		group.Go(func() error {
			s, err := h.BuildAndLoad(groupCtx, req.Sources, req.Target, req.Decls, req.Options)
			if err != nil {
				return err
			}

			sessions[i] = s

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		// Release whatever finished before the failure.
		for _, s := range sessions {
			if s != nil {
				_ = s.Close()
			}
		}

		return nil, err
	}

	return sessions, nil
}

func (h *harness) saveReport(report m.BuildReport) {
	if h.reports == nil || h.cfg.ReportDir == "" || report.Target == "" {
		return
	}

	if err := h.reports.AppendReport(h.cfg.ReportDir, report); err != nil {
		slog.Warn("persist build report", "target", report.Target, "error", err)
	}
}
