//go:build !linux || !cgo

// Package dl opens compiled modules with the platform dynamic loader. Only
// the linux/cgo implementation exists today; elsewhere every load fails with
// a LoadError naming the limitation.
package dl

import "github.com/toabey/gnat-llvm/internal/model"

const unsupported = "dynamic loading requires linux and cgo"

// Module is one open view of a loaded artifact.
type Module struct{}

// Callable is a resolved symbol plus its declared signature.
type Callable struct{}

// Open always fails on this platform.
func Open(path model.Path) (*Module, error) {
	return nil, &model.LoadError{Path: path, Detail: unsupported}
}

// Path returns the resolved artifact path this view refers to.
func (m *Module) Path() model.Path { return "" }

// Close releases this view.
func (m *Module) Close() error {
	return &model.UnloadedError{Op: "unload"}
}

// Bind resolves a declared symbol.
func (m *Module) Bind(decl model.Func) (*Callable, error) {
	return nil, &model.LoadError{Detail: unsupported}
}

// Decl returns the declaration this callable was bound with.
func (c *Callable) Decl() model.Func { return model.Func{} }

// Call invokes the symbol.
func (c *Callable) Call(args ...any) (any, error) {
	return nil, &model.CallError{Reason: unsupported}
}
