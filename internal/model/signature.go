package model

import "fmt"

// TypeTag identifies one ABI-level value category a declared signature can
// use. Tags drive argument and return marshaling; they are the only type
// information the harness has, since the compiled module's real signatures
// are never introspected.
type TypeTag uint8

// Supported ABI categories.
const (
	// Void is only valid as a return tag.
	Void TypeTag = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	// Pointer covers raw addresses and opaque handles.
	Pointer
)

var tagNames = map[TypeTag]string{
	Void:    "void",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	Pointer: "pointer",
}

func (t TypeTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}

	return fmt.Sprintf("typetag(%d)", uint8(t))
}

// ParseTypeTag maps the textual tag names used by the CLI and config files
// back to tags.
func ParseTypeTag(name string) (TypeTag, error) {
	for tag, n := range tagNames {
		if n == name {
			return tag, nil
		}
	}

	return Void, fmt.Errorf("unknown type tag %q", name)
}

// Bits returns the value width of the tag, or 0 for void.
func (t TypeTag) Bits() int {
	switch t {
	case Int8, Uint8:
		return 8
	case Int16, Uint16:
		return 16
	case Int32, Uint32, Float32:
		return 32
	case Int64, Uint64, Float64, Pointer:
		return 64
	case Void:
		return 0
	}

	return 0
}

// Signed reports whether the tag is a signed integer category.
func (t TypeTag) Signed() bool {
	switch t {
	case Int8, Int16, Int32, Int64:
		return true
	}

	return false
}

// Integer reports whether the tag is any fixed-width integer category.
func (t TypeTag) Integer() bool {
	switch t {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	}

	return false
}

// Float reports whether the tag is a floating-point category.
func (t TypeTag) Float() bool {
	return t == Float32 || t == Float64
}

func (t TypeTag) valid() bool {
	_, ok := tagNames[t]
	return ok
}

// Func declares the calling signature of one exported symbol: the symbol
// name, the ordered argument tags, and the return tag. Declarations are
// trusted as-is. A declaration that does not match the symbol's real compiled
// signature is undefined behavior at the ABI level when the callable is
// invoked (crash, corrupted memory, or a wrong value); the harness cannot
// and does not detect it.
type Func struct {
	Symbol string
	Args   []TypeTag
	Ret    TypeTag
}

// NewFunc builds a declaration for symbol returning ret and taking args in
// the given order.
func NewFunc(symbol string, ret TypeTag, args ...TypeTag) Func {
	return Func{Symbol: symbol, Args: args, Ret: ret}
}

// Validate checks the declaration shape: non-empty symbol, known tags, and
// no void arguments.
func (f Func) Validate() error {
	if f.Symbol == "" {
		return &ValidationError{Reason: "symbol name is empty"}
	}

	if !f.Ret.valid() {
		return &ValidationError{Reason: fmt.Sprintf("symbol %s: invalid return tag", f.Symbol)}
	}

	for i, a := range f.Args {
		if !a.valid() || a == Void {
			return &ValidationError{
				Reason: fmt.Sprintf("symbol %s: invalid argument tag %s", f.Symbol, a),
				Index:  i,
			}
		}
	}

	return nil
}

func (f Func) String() string {
	sig := f.Symbol + "("
	for i, a := range f.Args {
		if i > 0 {
			sig += ", "
		}

		sig += a.String()
	}

	return sig + ") " + f.Ret.String()
}

// ValidateFuncs validates each declaration and rejects duplicate symbol
// names within one bind request. Ambiguous resolution is an error, never a
// silent pick of the first match.
func ValidateFuncs(decls []Func) error {
	seen := make(map[string]struct{}, len(decls))

	for _, d := range decls {
		if err := d.Validate(); err != nil {
			return err
		}

		if _, dup := seen[d.Symbol]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate symbol %s in one bind request", d.Symbol)}
		}

		seen[d.Symbol] = struct{}{}
	}

	return nil
}
