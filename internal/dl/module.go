//go:build linux && cgo

package dl

import (
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/toabey/gnat-llvm/internal/model"
)

// The OS associates one loaded instance per distinct path within a process,
// so loaded modules are a process-wide resource. The registry models that
// explicitly: entries are keyed by resolved artifact path and reference
// counted, and the OS handle is dlclosed only when the last open view goes
// away.
var (
	registryMu sync.Mutex
	registry   = make(map[string]*libEntry)
)

type libEntry struct {
	handle unsafe.Pointer
	refs   int
}

// Module is one open view of a loaded artifact. Each view must be closed
// exactly once; callables bound through it hold a non-owning reference and
// fail with UnloadedError once it is closed.
type Module struct {
	path  string
	entry *libEntry

	mu     sync.Mutex
	closed bool
	allocs []func() // C-heap cleanup for bound callables
}

// Open loads the artifact at path into the process. The path is resolved to
// an absolute one first so relative and absolute spellings of the same
// artifact share one OS handle.
func Open(path model.Path) (*Module, error) {
	resolved, err := filepath.Abs(string(path))
	if err != nil {
		return nil, &model.LoadError{Path: path, Detail: err.Error()}
	}

	// dlopen reports a missing file and a malformed one the same way; check
	// existence first so the common case reads clearly.
	if _, err := os.Stat(resolved); err != nil {
		return nil, &model.LoadError{Path: path, Detail: err.Error()}
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	entry, ok := registry[resolved]
	if !ok {
		h, detail := dlopen(resolved)
		if h == nil {
			return nil, &model.LoadError{Path: path, Detail: detail}
		}

		entry = &libEntry{handle: h}
		registry[resolved] = entry
	}

	entry.refs++

	return &Module{path: resolved, entry: entry}, nil
}

// Path returns the resolved artifact path this view refers to.
func (m *Module) Path() model.Path {
	return model.Path(m.path)
}

// Close releases this view. The underlying OS handle is unloaded when the
// last view of the artifact closes. Closing twice is an UnloadedError, not a
// no-op: a double close means the caller's ownership accounting is wrong.
func (m *Module) Close() error {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return &model.UnloadedError{Path: model.Path(m.path), Op: "unload"}
	}

	m.closed = true
	allocs := m.allocs
	m.allocs = nil
	m.mu.Unlock()

	for _, free := range allocs {
		free()
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	m.entry.refs--
	if m.entry.refs > 0 {
		return nil
	}

	delete(registry, m.path)

	return dlclose(m.entry.handle)
}

// Bind resolves decl's symbol in the module's export table and wraps it in a
// Callable that performs a calling-convention-correct invocation per the
// declared tags. The declaration is trusted; see model.Func.
func (m *Module) Bind(decl model.Func) (*Callable, error) {
	if err := decl.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, &model.UnloadedError{Path: model.Path(m.path), Op: "bind"}
	}

	sym, detail := dlsym(m.entry.handle, decl.Symbol)
	if sym == nil && detail != "" {
		return nil, &model.SymbolError{
			Path:   model.Path(m.path),
			Symbol: decl.Symbol,
			Detail: detail,
		}
	}

	cif, typesVec, err := prepCIF(decl)
	if err != nil {
		return nil, err
	}

	m.allocs = append(m.allocs, func() { freeCIF(cif, typesVec) })

	return &Callable{mod: m, decl: decl, sym: sym, cif: cif}, nil
}

func (m *Module) alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return !m.closed
}
