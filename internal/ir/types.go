// Package ir implements the compiler's in-memory intermediate
// representation: interned types, SSA values, instructions, regions,
// functions and programs, and the per-opcode verifier.
package ir

import "fmt"

// AddressSpace is the address space a memref or alloca lives in.
type AddressSpace uint8

const (
	AddressSpaceGlobal AddressSpace = iota
	AddressSpaceLocal
)

func (a AddressSpace) String() string {
	if a == AddressSpaceLocal {
		return "local"
	}
	return "global"
}

// MatrixUse tags which role a coopmatrix fragment plays.
type MatrixUse uint8

const (
	MatrixUseA MatrixUse = iota
	MatrixUseB
	MatrixUseAcc
)

func (u MatrixUse) String() string {
	switch u {
	case MatrixUseA:
		return "a"
	case MatrixUseB:
		return "b"
	default:
		return "acc"
	}
}

// Dynamic is the sentinel used in shape/stride/offset entries whose
// extent is only known at run time.
const Dynamic int64 = -1

// TypeKind discriminates the Type sum type.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeIndex
	TypeInteger
	TypeFloat
	TypeComplex
	TypeMemref
	TypeGroup
	TypeCoopMatrix
	TypeFunction
)

// FloatKind distinguishes the float-component width, including bf16.
type FloatKind uint8

const (
	Float16 FloatKind = iota
	Float32
	Float64
	BFloat16
)

func (f FloatKind) bits() int {
	switch f {
	case Float16, BFloat16:
		return 16
	case Float32:
		return 32
	default:
		return 64
	}
}

// Bits returns the component's bit width: 16 for f16/bf16, 32 for f32,
// 64 for f64. Used by the stack-assignment pass to size allocas and by
// OpenCL-C lowering to pick the matching builtin scalar type.
func (f FloatKind) Bits() int { return f.bits() }

func (f FloatKind) String() string {
	switch f {
	case Float16:
		return "f16"
	case BFloat16:
		return "bf16"
	case Float32:
		return "f32"
	default:
		return "f64"
	}
}

// Type is an interned, structurally-equal handle. Two Types compare equal
// with == iff they were produced by the same Context for structurally
// equal arguments. Do not construct a
// Type literal outside this package; always go through a Context getter.
type Type struct {
	ctx *Context
	key typeKey
}

// typeKey is the structural identity of a type, used as a map key by the
// Context's intern table.
type typeKey struct {
	kind TypeKind

	intWidth  uint8
	floatKind FloatKind

	// memref
	eltKey    string // element's canonical key.String(), see typeChildren
	shape     string // canonical-encoded []int64, see encodeDims
	stride    string
	addrspace AddressSpace

	// group
	groupOfKey  string // backing memref's canonical key.String()
	groupOffset int64

	// coopmatrix
	componentKey string // component's canonical key.String()
	rows         int64
	cols         int64
	use          MatrixUse

	// function
	params    string // canonical-encoded []typeKey
	resultKey string // result's canonical key.String()
}

// typeKey embeds its nested types (elt, groupOf, component, result) by
// their canonical key.String() rather than by value or pointer: a typeKey
// field of type typeKey would be a self-referential struct (invalid), and
// a *typeKey field would make interning compare pointer identity instead
// of structure (two calls building the same nested type never share an
// address). The actual nested Type handles needed by accessors like
// Element() and Component() live in Context.children, keyed by this same
// typeKey once it's been interned.

func (k typeKey) String() string {
	switch k.kind {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeIndex:
		return "index"
	case TypeInteger:
		return fmt.Sprintf("i%d", k.intWidth)
	case TypeFloat:
		return k.floatKind.String()
	case TypeComplex:
		return "c" + k.floatKind.String()[1:]
	case TypeMemref:
		return fmt.Sprintf("memref<%s,%s,%s,%s>", k.eltKey, k.shape, k.stride, k.addrspace)
	case TypeGroup:
		return fmt.Sprintf("group<%s,offset=%d>", k.groupOfKey, k.groupOffset)
	case TypeCoopMatrix:
		return fmt.Sprintf("coopmatrix<%s,%dx%d,%s>", k.componentKey, k.rows, k.cols, k.use)
	case TypeFunction:
		return fmt.Sprintf("(%s)->%s", k.params, k.resultKey)
	default:
		return "<invalid type>"
	}
}

// Kind returns the sum-type discriminant.
func (t Type) Kind() TypeKind { return t.key.kind }

func (t Type) String() string { return t.key.String() }

// IsNumber reports whether t is in the `number` capability group: an
// integer, float, or complex type.
func (t Type) IsNumber() bool {
	switch t.key.kind {
	case TypeInteger, TypeFloat, TypeComplex:
		return true
	default:
		return false
	}
}

func (t Type) IsInteger() bool    { return t.key.kind == TypeInteger }
func (t Type) IsFloat() bool      { return t.key.kind == TypeFloat }
func (t Type) IsComplex() bool    { return t.key.kind == TypeComplex }
func (t Type) IsBool() bool       { return t.key.kind == TypeBool }
func (t Type) IsIndex() bool      { return t.key.kind == TypeIndex }
func (t Type) IsMemref() bool     { return t.key.kind == TypeMemref }
func (t Type) IsGroup() bool      { return t.key.kind == TypeGroup }
func (t Type) IsCoopMatrix() bool { return t.key.kind == TypeCoopMatrix }

// IntWidth returns the integer bit width; only meaningful when IsInteger().
func (t Type) IntWidth() int { return int(t.key.intWidth) }

// FloatKind returns the float/complex component width; meaningful when
// IsFloat() or IsComplex().
func (t Type) FloatKind() FloatKind { return t.key.floatKind }

// Element returns the element (number) type of a memref, or the backing
// memref type of a group.
func (t Type) Element() Type {
	switch t.key.kind {
	case TypeMemref:
		return t.ctx.children[t.key].elt
	case TypeGroup:
		return t.ctx.children[t.key].groupOf
	default:
		panic("Element() on non-memref/group type")
	}
}

// Shape returns the memref's static shape (Dynamic for run-time extents).
func (t Type) Shape() []int64 {
	if t.key.kind != TypeMemref {
		panic("Shape() on non-memref type")
	}
	return decodeDims(t.key.shape)
}

// Stride returns the memref's static stride.
func (t Type) Stride() []int64 {
	if t.key.kind != TypeMemref {
		panic("Stride() on non-memref type")
	}
	return decodeDims(t.key.stride)
}

// Dim returns the memref's order (number of modes).
func (t Type) Dim() int {
	if t.key.kind != TypeMemref {
		panic("Dim() on non-memref type")
	}
	return len(decodeDims(t.key.shape))
}

func (t Type) AddressSpace() AddressSpace {
	if t.key.kind != TypeMemref {
		panic("AddressSpace() on non-memref type")
	}
	return t.key.addrspace
}

// GroupOffset returns the group's static offset (Dynamic if run-time known).
func (t Type) GroupOffset() int64 {
	if t.key.kind != TypeGroup {
		panic("GroupOffset() on non-group type")
	}
	return t.key.groupOffset
}

func (t Type) Rows() int64 {
	if t.key.kind != TypeCoopMatrix {
		panic("Rows() on non-coopmatrix type")
	}
	return t.key.rows
}

func (t Type) Cols() int64 {
	if t.key.kind != TypeCoopMatrix {
		panic("Cols() on non-coopmatrix type")
	}
	return t.key.cols
}

func (t Type) Use() MatrixUse {
	if t.key.kind != TypeCoopMatrix {
		panic("Use() on non-coopmatrix type")
	}
	return t.key.use
}

// Component is the scalar type held by a coopmatrix fragment.
func (t Type) Component() Type {
	if t.key.kind != TypeCoopMatrix {
		panic("Component() on non-coopmatrix type")
	}
	return t.ctx.children[t.key].component
}

func encodeDims(dims []int64) string {
	s := make([]byte, 0, len(dims)*4)
	for _, d := range dims {
		s = append(s, []byte(fmt.Sprintf("%d,", d))...)
	}
	return string(s)
}

func decodeDims(s string) []int64 {
	if s == "" {
		return nil
	}
	var out []int64
	var cur int64
	neg := false
	started := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '-':
			neg = true
		case c >= '0' && c <= '9':
			cur = cur*10 + int64(c-'0')
			started = true
		case c == ',':
			if started {
				if neg {
					cur = -cur
				}
				out = append(out, cur)
			}
			cur, neg, started = 0, false, false
		}
	}
	return out
}
