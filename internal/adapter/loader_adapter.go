package adapter

import (
	"errors"

	"github.com/toabey/gnat-llvm/internal/dl"
	m "github.com/toabey/gnat-llvm/internal/model"
)

// LoaderAdapter abstracts the platform dynamic-loading facility so the
// domain layer can be exercised without dlopen.
type LoaderAdapter interface {
	// Load opens the artifact at path into the current process.
	Load(path m.Path) (LoadedModule, error)
}

// LoadedModule is one open view of a loaded artifact. It owns the OS-level
// handle view exclusively and must be closed exactly once; bound callables
// hold a non-owning reference and are invalid afterwards.
type LoadedModule interface {
	// Bind resolves decl's symbol and wraps it per the declared signature.
	Bind(decl m.Func) (BoundCallable, error)

	// Close releases the view. A second Close is a *model.UnloadedError.
	Close() error

	// Path returns the resolved artifact path.
	Path() m.Path
}

// BoundCallable is a resolved symbol plus its declared signature, directly
// invocable with positional arguments matching the declaration.
type BoundCallable interface {
	Call(args ...any) (any, error)
	Decl() m.Func
}

// LocalLoaderAdapter backs LoaderAdapter with the real dynamic loader in
// internal/dl and decorates symbol misses with the module's dynamic export
// table when it can be read.
type LocalLoaderAdapter struct{}

// NewLocalLoaderAdapter constructs a LocalLoaderAdapter.
func NewLocalLoaderAdapter() *LocalLoaderAdapter {
	return &LocalLoaderAdapter{}
}

// Load opens the artifact at path.
func (a *LocalLoaderAdapter) Load(path m.Path) (LoadedModule, error) {
	mod, err := dl.Open(path)
	if err != nil {
		return nil, err
	}

	return &localModule{mod: mod}, nil
}

type localModule struct {
	mod *dl.Module
}

func (l *localModule) Bind(decl m.Func) (BoundCallable, error) {
	c, err := l.mod.Bind(decl)
	if err != nil {
		var symErr *m.SymbolError
		if errors.As(err, &symErr) && len(symErr.Available) == 0 {
			// Best effort: the list is diagnostic sugar, a read failure
			// must not mask the real error.
			if exports, readErr := ReadExports(l.mod.Path()); readErr == nil {
				symErr.Available = exports
			}
		}

		return nil, err
	}

	return c, nil
}

func (l *localModule) Close() error {
	return l.mod.Close()
}

func (l *localModule) Path() m.Path {
	return l.mod.Path()
}
