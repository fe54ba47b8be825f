// Package ir defines the minimal typed SSA-form intermediate representation
// that the loop2cilk pass operates on.
//
// There is no off-the-shelf Go library for an IR with Tapir-style
// Detach/Sync/Reattach terminators (golang.org/x/tools/go/ssa has none), so
// this package provides its own: a small, self-contained value/instruction
// graph in the shape of golang.org/x/tools/go/ssa, with the addition of the
// fork/join terminators the pass is built to recognise.
package ir

import "fmt"

// Type is the type of an ir.Value. Only the scalar/pointer/function shapes
// the pass and its collaborators need are modelled; there is no aggregate
// or interface type.
type Type interface {
	String() string
}

// IntType is a signed or unsigned integer type of a fixed bit width.
type IntType struct {
	Bits   int
	Signed bool
}

func (t IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Bits)
	}
	return fmt.Sprintf("u%d", t.Bits)
}

// I32, I64, U32 and U64 are the only integer widths the emitted runtime
// ABI understands as a trip-count type.
var (
	I32 = IntType{Bits: 32, Signed: true}
	I64 = IntType{Bits: 64, Signed: true}
	U32 = IntType{Bits: 32, Signed: false}
	U64 = IntType{Bits: 64, Signed: false}
)

// PointerType is a pointer to Elem, used for Alloc results and closure
// arguments.
type PointerType struct{ Elem Type }

func (t PointerType) String() string { return "*" + t.Elem.String() }

// FuncType is the signature of a callable value: a single parameter of
// type Param (for an outlined function, the loop's iteration index), no
// result.
type FuncType struct{ Param Type }

func (t FuncType) String() string { return fmt.Sprintf("func(%s)", t.Param) }

// Bits returns the bit width of an integer type, or 0 if t is not an
// IntType. Used by the canonicalizer to pick the 32/64-bit runtime entry
// point, and to detect an unsupported width as WidthMismatch.
func Bits(t Type) int {
	if it, ok := t.(IntType); ok {
		return it.Bits
	}
	return 0
}

// Signed reports whether t is a signed integer type.
func Signed(t Type) bool {
	it, ok := t.(IntType)
	return ok && it.Signed
}
