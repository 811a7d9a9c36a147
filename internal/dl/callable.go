//go:build linux && cgo

package dl

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/toabey/gnat-llvm/internal/model"
)

// Callable is a resolved symbol address plus its declared signature. It is
// stateless beyond that and safe to invoke repeatedly; thread-safety of an
// invocation is whatever the underlying symbol provides.
type Callable struct {
	mod  *Module
	decl model.Func
	sym  unsafe.Pointer
	cif  unsafe.Pointer
}

// Decl returns the declaration this callable was bound with.
func (c *Callable) Decl() model.Func {
	return c.decl
}

// Call invokes the symbol with exactly the declared argument count and
// order. Each argument is marshaled into the ABI slot implied by its tag at
// the exact declared bit width and signedness; the raw return value is
// marshaled back into the declared Go type (int32 -> int32, pointer ->
// unsafe.Pointer, void -> nil). A declaration that does not match the real
// compiled signature is undefined behavior here, not a detectable error.
func (c *Callable) Call(args ...any) (any, error) {
	if !c.mod.alive() {
		return nil, &model.UnloadedError{Path: c.mod.Path(), Op: "invoke " + c.decl.Symbol}
	}

	n := len(c.decl.Args)
	if len(args) != n {
		return nil, &model.CallError{
			Symbol: c.decl.Symbol,
			Reason: fmt.Sprintf("expected %d argument(s), got %d", n, len(args)),
		}
	}

	var argv unsafe.Pointer

	if n > 0 {
		argv = cMalloc(uintptr(n) * ptrSize)
		defer cFree(argv)

		slots := (*[1<<30 - 1]unsafe.Pointer)(argv)[:n:n]

		for i := range slots {
			slots[i] = cMalloc(8)
			defer cFree(slots[i])
		}

		for i, tag := range c.decl.Args {
			if err := writeArg(slots[i], tag, args[i]); err != nil {
				return nil, &model.CallError{
					Symbol: c.decl.Symbol,
					Reason: fmt.Sprintf("argument %d (%s): %v", i, tag, err),
				}
			}
		}
	}

	// libffi widens integral returns narrower than ffi_arg into the full
	// slot, so the slot is always register sized and read back whole.
	var rvalue unsafe.Pointer
	if c.decl.Ret != model.Void {
		rvalue = cMalloc(8)
		defer cFree(rvalue)
	}

	ffiCall(c.cif, c.sym, rvalue, argv)

	return readRet(rvalue, c.decl.Ret), nil
}

// writeArg stores v into an ABI argument slot at tag's exact width. Integer
// values of any Go kind are accepted but must fit the declared
// width/signedness; nothing is silently truncated or re-signed.
func writeArg(slot unsafe.Pointer, tag model.TypeTag, v any) error {
	switch {
	case tag.Integer():
		return writeInt(slot, tag, v)
	case tag.Float():
		return writeFloat(slot, tag, v)
	case tag == model.Pointer:
		return writePtr(slot, v)
	}

	return fmt.Errorf("unsupported argument tag %s", tag)
}

func writeInt(slot unsafe.Pointer, tag model.TypeTag, v any) error {
	sval, uval, unsigned, ok := coerceInt(v)
	if !ok {
		return fmt.Errorf("expected an integer, got %T", v)
	}

	if tag.Signed() {
		minV, maxV := signedRange(tag.Bits())

		if unsigned {
			if uval > uint64(maxV) {
				return fmt.Errorf("value %d out of range for %s", uval, tag)
			}

			sval = int64(uval)
		} else if sval < minV || sval > maxV {
			return fmt.Errorf("value %d out of range for %s", sval, tag)
		}

		switch tag.Bits() {
		case 8:
			*(*int8)(slot) = int8(sval)
		case 16:
			*(*int16)(slot) = int16(sval)
		case 32:
			*(*int32)(slot) = int32(sval)
		case 64:
			*(*int64)(slot) = sval
		}

		return nil
	}

	if !unsigned {
		if sval < 0 {
			return fmt.Errorf("negative value %d for %s", sval, tag)
		}

		uval = uint64(sval)
	}

	if maxV := unsignedMax(tag.Bits()); uval > maxV {
		return fmt.Errorf("value %d out of range for %s", uval, tag)
	}

	switch tag.Bits() {
	case 8:
		*(*uint8)(slot) = uint8(uval)
	case 16:
		*(*uint16)(slot) = uint16(uval)
	case 32:
		*(*uint32)(slot) = uint32(uval)
	case 64:
		*(*uint64)(slot) = uval
	}

	return nil
}

func writeFloat(slot unsafe.Pointer, tag model.TypeTag, v any) error {
	var f float64

	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	default:
		if sval, uval, unsigned, ok := coerceInt(v); ok {
			if unsigned {
				f = float64(uval)
			} else {
				f = float64(sval)
			}

			break
		}

		return fmt.Errorf("expected a number, got %T", v)
	}

	if tag == model.Float32 {
		*(*float32)(slot) = float32(f)
	} else {
		*(*float64)(slot) = f
	}

	return nil
}

func writePtr(slot unsafe.Pointer, v any) error {
	switch x := v.(type) {
	case nil:
		*(*unsafe.Pointer)(slot) = nil
	case unsafe.Pointer:
		*(*unsafe.Pointer)(slot) = x
	case uintptr:
		*(*uintptr)(slot) = x
	default:
		return fmt.Errorf("expected unsafe.Pointer, uintptr or nil, got %T", v)
	}

	return nil
}

func coerceInt(v any) (sval int64, uval uint64, unsigned, ok bool) {
	switch x := v.(type) {
	case int:
		return int64(x), 0, false, true
	case int8:
		return int64(x), 0, false, true
	case int16:
		return int64(x), 0, false, true
	case int32:
		return int64(x), 0, false, true
	case int64:
		return x, 0, false, true
	case uint:
		return 0, uint64(x), true, true
	case uint8:
		return 0, uint64(x), true, true
	case uint16:
		return 0, uint64(x), true, true
	case uint32:
		return 0, uint64(x), true, true
	case uint64:
		return 0, x, true, true
	case uintptr:
		return 0, uint64(x), true, true
	}

	return 0, 0, false, false
}

func signedRange(bits int) (int64, int64) {
	switch bits {
	case 8:
		return math.MinInt8, math.MaxInt8
	case 16:
		return math.MinInt16, math.MaxInt16
	case 32:
		return math.MinInt32, math.MaxInt32
	}

	return math.MinInt64, math.MaxInt64
}

func unsignedMax(bits int) uint64 {
	switch bits {
	case 8:
		return math.MaxUint8
	case 16:
		return math.MaxUint16
	case 32:
		return math.MaxUint32
	}

	return math.MaxUint64
}

// readRet interprets the raw return slot per the declared tag. Integral
// returns come back widened to a full ffi_arg, so the slot is read whole and
// truncated to the declared width.
func readRet(rvalue unsafe.Pointer, tag model.TypeTag) any {
	if tag == model.Void || rvalue == nil {
		return nil
	}

	switch tag {
	case model.Int8:
		return int8(*(*int64)(rvalue))
	case model.Int16:
		return int16(*(*int64)(rvalue))
	case model.Int32:
		return int32(*(*int64)(rvalue))
	case model.Int64:
		return *(*int64)(rvalue)
	case model.Uint8:
		return uint8(*(*uint64)(rvalue))
	case model.Uint16:
		return uint16(*(*uint64)(rvalue))
	case model.Uint32:
		return uint32(*(*uint64)(rvalue))
	case model.Uint64:
		return *(*uint64)(rvalue)
	case model.Float32:
		return *(*float32)(rvalue)
	case model.Float64:
		return *(*float64)(rvalue)
	case model.Pointer:
		return *(*unsafe.Pointer)(rvalue)
	}

	return nil
}
