//go:build linux && cgo

// Package dl opens compiled modules with the platform dynamic loader and
// turns caller-declared signatures into directly invocable functions via
// libffi. All C references live in this file; the rest of the package works
// through opaque pointers.
package dl

/*
#cgo LDFLAGS: -ldl
#cgo pkg-config: libffi
#include <ffi.h>
#include <dlfcn.h>
#include <stdlib.h>

// RTLD_NOW so unresolved externals surface as a load failure instead of a
// crash at first call.
static void* gl_dlopen(const char* path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}
static const char* gl_dlerror(void) {
	return dlerror();
}
static int gl_dlclose(void* h) {
	return dlclose(h);
}

// Clear dlerror, call dlsym, and return the error (if any) alongside the
// symbol, so a legitimately-NULL symbol is distinguishable from a miss.
static void* gl_dlsym_clear(void* h, const char* name, char** err) {
	dlerror();
	void* p = dlsym(h, name);
	char* e = dlerror();
	if (e) { if (err) *err = e; return NULL; }
	if (err) *err = NULL;
	return p;
}

// ffi_call wrapper: accept a generic void* fn to avoid cgo's function-pointer
// type constraints at the call site.
static void gl_ffi_call(ffi_cif* cif, void* fn, void* rvalue, void** avalue) {
	ffi_call(cif, (void (*)(void))fn, rvalue, avalue);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/toabey/gnat-llvm/internal/model"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// dlerr returns the last dlerror as a Go string, or a fallback label.
func dlerr() string {
	errC := C.gl_dlerror()
	if errC != nil {
		return C.GoString(errC)
	}

	return "unknown dlerror"
}

func dlopen(path string) (unsafe.Pointer, string) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	h := C.gl_dlopen(cs)
	if h == nil {
		return nil, dlerr()
	}

	return unsafe.Pointer(h), ""
}

func dlclose(h unsafe.Pointer) error {
	if int(C.gl_dlclose(h)) != 0 {
		return fmt.Errorf("dlclose failed: %s", dlerr())
	}

	return nil
}

// dlsym resolves name in h. A miss comes back as a non-empty detail string
// rather than an error type; the caller owns the error taxonomy.
func dlsym(h unsafe.Pointer, name string) (unsafe.Pointer, string) {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))

	var cerr *C.char

	p := C.gl_dlsym_clear(h, cs, &cerr)
	if cerr != nil {
		return nil, C.GoString(cerr)
	}

	return p, ""
}

func cMalloc(n uintptr) unsafe.Pointer { return C.malloc(C.size_t(n)) }
func cFree(p unsafe.Pointer)           { C.free(p) }

func ffiTypeFor(tag model.TypeTag) (*C.ffi_type, error) {
	switch tag {
	case model.Void:
		return &C.ffi_type_void, nil
	case model.Int8:
		return &C.ffi_type_sint8, nil
	case model.Uint8:
		return &C.ffi_type_uint8, nil
	case model.Int16:
		return &C.ffi_type_sint16, nil
	case model.Uint16:
		return &C.ffi_type_uint16, nil
	case model.Int32:
		return &C.ffi_type_sint32, nil
	case model.Uint32:
		return &C.ffi_type_uint32, nil
	case model.Int64:
		return &C.ffi_type_sint64, nil
	case model.Uint64:
		return &C.ffi_type_uint64, nil
	case model.Float32:
		return &C.ffi_type_float, nil
	case model.Float64:
		return &C.ffi_type_double, nil
	case model.Pointer:
		return &C.ffi_type_pointer, nil
	}

	return nil, fmt.Errorf("unsupported type tag %s", tag)
}

// prepCIF allocates a C-heap call interface for the declared signature plus
// the C-heap ffi_type** argument vector libffi reads on every call. The
// caller frees both with freeCIF when the owning module closes.
func prepCIF(decl model.Func) (cif, typesVec unsafe.Pointer, err error) {
	rty, err := ffiTypeFor(decl.Ret)
	if err != nil {
		return nil, nil, err
	}

	n := len(decl.Args)

	var types **C.ffi_type

	if n > 0 {
		mem := C.malloc(C.size_t(n) * C.size_t(ptrSize))
		if mem == nil {
			return nil, nil, fmt.Errorf("ffi_prep_cif: out of memory")
		}

		vec := (*[1<<30 - 1]*C.ffi_type)(mem)[:n:n]

		for i, a := range decl.Args {
			at, err := ffiTypeFor(a)
			if err != nil {
				C.free(mem)
				return nil, nil, fmt.Errorf("arg[%d]: %w", i, err)
			}

			vec[i] = at
		}

		types = (**C.ffi_type)(mem)
	}

	c := (*C.ffi_cif)(C.malloc(C.size_t(unsafe.Sizeof(C.ffi_cif{}))))
	if c == nil {
		if types != nil {
			C.free(unsafe.Pointer(types))
		}

		return nil, nil, fmt.Errorf("ffi_prep_cif: out of memory")
	}

	if st := C.ffi_prep_cif(c, C.FFI_DEFAULT_ABI, C.uint(n), rty, types); st != C.FFI_OK {
		C.free(unsafe.Pointer(c))

		if types != nil {
			C.free(unsafe.Pointer(types))
		}

		return nil, nil, fmt.Errorf("ffi_prep_cif failed: status %d", int(st))
	}

	return unsafe.Pointer(c), unsafe.Pointer(types), nil
}

func freeCIF(cif, typesVec unsafe.Pointer) {
	if cif != nil {
		C.free(cif)
	}

	if typesVec != nil {
		C.free(typesVec)
	}
}

// ffiCall performs the native call. rvalue must point to at least
// sizeof(ffi_arg) bytes; argv is a C-heap void** vector with one slot per
// declared argument.
func ffiCall(cif, fn, rvalue, argv unsafe.Pointer) {
	C.gl_ffi_call((*C.ffi_cif)(cif), fn, rvalue, (*unsafe.Pointer)(argv))
}
