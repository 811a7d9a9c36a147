package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toabey/gnat-llvm/internal/adapter"
	m "github.com/toabey/gnat-llvm/internal/model"
)

// Hand-rolled fakes: the domain layer is exercised without a compiler or
// dlopen in the loop.

type fakeCompiler struct {
	calls int
	fail  bool
}

func (f *fakeCompiler) Compile(
	_ context.Context,
	workDir m.Path,
	_ m.SourceSet,
	target m.Target,
	_ m.BuildOptions,
) (m.Path, m.BuildReport, error) {
	f.calls++

	artifact := target.Artifact(workDir)
	report := m.BuildReport{Target: target, Artifact: artifact, WorkDir: workDir}

	if f.fail {
		report.ExitCode = 1
		report.Output = "short.adb:3:08: undefined symbol"

		return "", report, &m.BuildError{
			Target:   target,
			ExitCode: 1,
			Output:   report.Output,
		}
	}

	report.Succeeded = true

	return artifact, report, nil
}

type fakeWorkspace struct {
	created []m.Target
	removed []m.Path
}

func (f *fakeWorkspace) CreateWorkDir(target m.Target) (m.Path, error) {
	f.created = append(f.created, target)
	return m.Path("/work/" + string(target)), nil
}

func (f *fakeWorkspace) RemoveAll(path m.Path) error {
	f.removed = append(f.removed, path)
	return nil
}

type fakeCallable struct {
	decl m.Func
}

func (f *fakeCallable) Call(_ ...any) (any, error) { return int32(1), nil }
func (f *fakeCallable) Decl() m.Func               { return f.decl }

type fakeModule struct {
	path    m.Path
	missing map[string]bool
	closed  int
}

func (f *fakeModule) Bind(decl m.Func) (adapter.BoundCallable, error) {
	if f.missing[decl.Symbol] {
		return nil, &m.SymbolError{Path: f.path, Symbol: decl.Symbol}
	}

	return &fakeCallable{decl: decl}, nil
}

func (f *fakeModule) Close() error {
	f.closed++
	if f.closed > 1 {
		return &m.UnloadedError{Path: f.path, Op: "unload"}
	}

	return nil
}

func (f *fakeModule) Path() m.Path { return f.path }

type fakeLoader struct {
	fail    bool
	modules []*fakeModule
	missing map[string]bool
}

func (f *fakeLoader) Load(path m.Path) (adapter.LoadedModule, error) {
	if f.fail {
		return nil, &m.LoadError{Path: path, Detail: "invalid ELF header"}
	}

	mod := &fakeModule{path: path, missing: f.missing}
	f.modules = append(f.modules, mod)

	return mod, nil
}

type recordingStore struct {
	reports []m.BuildReport
}

func (r *recordingStore) AppendReport(_ m.Path, report m.BuildReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func (r *recordingStore) LoadReports(_ m.Path) ([]m.BuildReport, error) {
	return r.reports, nil
}

func newTestHarness(compiler *fakeCompiler, loader *fakeLoader, cfg Config) (Harness, *fakeWorkspace, *recordingStore) {
	ws := &fakeWorkspace{}
	store := &recordingStore{}

	return NewHarness(compiler, ws, loader, store, cfg), ws, store
}

func declsFixture() []m.Func {
	return []m.Func{
		m.NewFunc("short__test", m.Int32),
		m.NewFunc("short__other", m.Int64, m.Int64),
	}
}

func TestBuildAndLoad_ReturnsCallablesInDeclOrder(t *testing.T) {
	compiler := &fakeCompiler{}
	loader := &fakeLoader{}
	h, _, store := newTestHarness(compiler, loader, Config{KeepArtifacts: true, ReportDir: "/reports"})

	decls := declsFixture()

	session, err := h.BuildAndLoad(context.Background(), m.SourceSet{"short.adb"}, "compare", decls, m.BuildOptions{})
	require.NoError(t, err)

	defer func() { require.NoError(t, session.Close()) }()

	require.Len(t, session.Callables, len(decls))

	for i, c := range session.Callables {
		assert.Equal(t, decls[i], c.Decl())
	}

	require.Len(t, store.reports, 1)
	assert.True(t, store.reports[0].Succeeded)
}

func TestBuildAndLoad_FreshBuildEveryCall(t *testing.T) {
	compiler := &fakeCompiler{}
	loader := &fakeLoader{}
	h, ws, _ := newTestHarness(compiler, loader, Config{KeepArtifacts: true})

	for i := 0; i < 3; i++ {
		session, err := h.BuildAndLoad(context.Background(), m.SourceSet{"short.adb"}, "compare", nil, m.BuildOptions{})
		require.NoError(t, err)
		require.NoError(t, session.Close())
	}

	assert.Equal(t, 3, compiler.calls)
	assert.Len(t, ws.created, 3)
}

func TestBuildAndLoad_BuildFailure(t *testing.T) {
	compiler := &fakeCompiler{fail: true}
	loader := &fakeLoader{}
	h, _, store := newTestHarness(compiler, loader, Config{KeepArtifacts: true, ReportDir: "/reports"})

	_, err := h.BuildAndLoad(context.Background(), m.SourceSet{"short.adb"}, "compare", declsFixture(), m.BuildOptions{})
	require.Error(t, err)

	var buildErr *m.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.NotEmpty(t, buildErr.Output)

	// Nothing got loaded, but the failed build was still reported.
	assert.Empty(t, loader.modules)
	require.Len(t, store.reports, 1)
	assert.False(t, store.reports[0].Succeeded)
}

func TestBuildAndLoad_LoadFailure(t *testing.T) {
	h, _, _ := newTestHarness(&fakeCompiler{}, &fakeLoader{fail: true}, Config{KeepArtifacts: true})

	_, err := h.BuildAndLoad(context.Background(), m.SourceSet{"short.adb"}, "compare", nil, m.BuildOptions{})

	var loadErr *m.LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestBuildAndLoad_MissingSymbolIsAllOrNothing(t *testing.T) {
	loader := &fakeLoader{missing: map[string]bool{"does_not_exist": true}}
	h, _, _ := newTestHarness(&fakeCompiler{}, loader, Config{KeepArtifacts: true})

	decls := []m.Func{
		m.NewFunc("short__test", m.Int32),
		m.NewFunc("does_not_exist", m.Int32),
	}

	_, err := h.BuildAndLoad(context.Background(), m.SourceSet{"short.adb"}, "compare", decls, m.BuildOptions{})
	require.Error(t, err)

	var symErr *m.SymbolError
	require.ErrorAs(t, err, &symErr)
	assert.Equal(t, "does_not_exist", symErr.Symbol)
	assert.Contains(t, err.Error(), "does_not_exist")

	// The module was released; no partial callables escaped.
	require.Len(t, loader.modules, 1)
	assert.Equal(t, 1, loader.modules[0].closed)
}

func TestBuildAndLoad_ValidatesInputsBeforeCompiling(t *testing.T) {
	compiler := &fakeCompiler{}
	h, _, _ := newTestHarness(compiler, &fakeLoader{}, Config{})

	var invalid *m.ValidationError

	_, err := h.BuildAndLoad(context.Background(), m.SourceSet{}, "compare", nil, m.BuildOptions{})
	require.ErrorAs(t, err, &invalid)

	_, err = h.BuildAndLoad(context.Background(), m.SourceSet{"a.adb"}, "", nil, m.BuildOptions{})
	require.ErrorAs(t, err, &invalid)

	dup := []m.Func{m.NewFunc("f", m.Int32), m.NewFunc("f", m.Int64)}
	_, err = h.BuildAndLoad(context.Background(), m.SourceSet{"a.adb"}, "compare", dup, m.BuildOptions{})
	require.ErrorAs(t, err, &invalid)

	assert.Zero(t, compiler.calls)
}

func TestSessionClose_Policies(t *testing.T) {
	t.Run("keep artifacts", func(t *testing.T) {
		h, ws, _ := newTestHarness(&fakeCompiler{}, &fakeLoader{}, Config{KeepArtifacts: true})

		session, err := h.BuildAndLoad(context.Background(), m.SourceSet{"a.adb"}, "compare", nil, m.BuildOptions{})
		require.NoError(t, err)
		require.NoError(t, session.Close())

		assert.Empty(t, ws.removed)
	})

	t.Run("scrub work dir", func(t *testing.T) {
		h, ws, _ := newTestHarness(&fakeCompiler{}, &fakeLoader{}, Config{KeepArtifacts: false})

		session, err := h.BuildAndLoad(context.Background(), m.SourceSet{"a.adb"}, "compare", nil, m.BuildOptions{})
		require.NoError(t, err)
		require.NoError(t, session.Close())

		require.Len(t, ws.removed, 1)
	})

	t.Run("double close", func(t *testing.T) {
		h, _, _ := newTestHarness(&fakeCompiler{}, &fakeLoader{}, Config{KeepArtifacts: true})

		session, err := h.BuildAndLoad(context.Background(), m.SourceSet{"a.adb"}, "compare", nil, m.BuildOptions{})
		require.NoError(t, err)
		require.NoError(t, session.Close())

		var gone *m.UnloadedError
		require.ErrorAs(t, session.Close(), &gone)
	})
}

func TestBuildAll_SessionsInRequestOrder(t *testing.T) {
	h, ws, _ := newTestHarness(&fakeCompiler{}, &fakeLoader{}, Config{KeepArtifacts: true})

	requests := []BuildRequest{
		{Sources: m.SourceSet{"a.adb"}, Target: "alpha", Decls: []m.Func{m.NewFunc("a", m.Int32)}},
		{Sources: m.SourceSet{"b.adb"}, Target: "beta", Decls: []m.Func{m.NewFunc("b", m.Int32)}},
		{Sources: m.SourceSet{"c.adb"}, Target: "gamma", Decls: []m.Func{m.NewFunc("c", m.Int32)}},
	}

	sessions, err := h.BuildAll(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	for i, s := range sessions {
		assert.Equal(t, requests[i].Target, s.Report.Target)
		require.NoError(t, s.Close())
	}

	// Each target got its own working directory.
	assert.ElementsMatch(t, []m.Target{"alpha", "beta", "gamma"}, ws.created)
}

func TestBuildAll_FailureReleasesFinishedSessions(t *testing.T) {
	loader := &fakeLoader{missing: map[string]bool{"nope": true}}
	h, _, _ := newTestHarness(&fakeCompiler{}, loader, Config{KeepArtifacts: true})

	requests := []BuildRequest{
		{Sources: m.SourceSet{"a.adb"}, Target: "alpha"},
		{Sources: m.SourceSet{"b.adb"}, Target: "beta", Decls: []m.Func{m.NewFunc("nope", m.Int32)}},
	}

	_, err := h.BuildAll(context.Background(), requests)
	require.Error(t, err)

	for _, mod := range loader.modules {
		assert.GreaterOrEqual(t, mod.closed, 1)
	}
}
