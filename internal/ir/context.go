package ir

import (
	tcerrors "tinytc/internal/errors"
)

// Context is the process-scoped owner of every interned Type and the
// sink for diagnostics raised while building or verifying IR attached to
// it. A Context is not safe for concurrent mutation from multiple
// goroutines; callers coordinate externally.
type Context struct {
	interned map[typeKey]Type
	// children holds the nested Type handles a composite typeKey's
	// canonical-string fields (eltKey, groupOfKey, componentKey, resultKey)
	// can't carry directly, recorded once when that key is first interned.
	children map[typeKey]typeChildren
	reporter tcerrors.Reporter
	// nextValueID hands out globally-unique anonymous value names within
	// this context.
	nextValueID uint64
}

// typeChildren is the side table entry for a composite type's constituent
// Types, looked up by the same typeKey used to intern it.
type typeChildren struct {
	elt       Type
	groupOf   Type
	component Type
	params    []Type
	result    Type
}

// NewContext creates a fresh, empty context. reporter may be nil, in
// which case diagnostics are discarded (tcerrors.NopReporter).
func NewContext(reporter tcerrors.Reporter) *Context {
	if reporter == nil {
		reporter = tcerrors.NopReporter
	}
	return &Context{
		interned: make(map[typeKey]Type),
		children: make(map[typeKey]typeChildren),
		reporter: reporter,
	}
}

// Report forwards a diagnostic to the context's reporter.
func (c *Context) Report(message string, loc *tcerrors.Location, hostCtx any) {
	c.reporter(message, loc, hostCtx)
}

func (c *Context) intern(key typeKey) Type {
	if t, ok := c.interned[key]; ok {
		return t
	}
	t := Type{ctx: c, key: key}
	c.interned[key] = t
	return t
}

// internWithChildren interns key like intern, additionally recording the
// nested Type handles a composite key's accessors (Element, Component,
// ...) reconstruct later. Children are only recorded on the first call for
// a given key, matching the intern-once semantics of the type itself.
func (c *Context) internWithChildren(key typeKey, children typeChildren) Type {
	if t, ok := c.interned[key]; ok {
		return t
	}
	t := Type{ctx: c, key: key}
	c.interned[key] = t
	c.children[key] = children
	return t
}

func (c *Context) Void() Type  { return c.intern(typeKey{kind: TypeVoid}) }
func (c *Context) Bool() Type  { return c.intern(typeKey{kind: TypeBool}) }
func (c *Context) Index() Type { return c.intern(typeKey{kind: TypeIndex}) }

func (c *Context) Integer(width int) Type {
	switch width {
	case 8, 16, 32, 64:
	default:
		panic("integer width must be one of 8,16,32,64")
	}
	return c.intern(typeKey{kind: TypeInteger, intWidth: uint8(width)})
}

func (c *Context) I8() Type  { return c.Integer(8) }
func (c *Context) I16() Type { return c.Integer(16) }
func (c *Context) I32() Type { return c.Integer(32) }
func (c *Context) I64() Type { return c.Integer(64) }

func (c *Context) Float(kind FloatKind) Type {
	return c.intern(typeKey{kind: TypeFloat, floatKind: kind})
}

func (c *Context) F16() Type  { return c.Float(Float16) }
func (c *Context) BF16() Type { return c.Float(BFloat16) }
func (c *Context) F32() Type  { return c.Float(Float32) }
func (c *Context) F64() Type  { return c.Float(Float64) }

// Complex returns the complex type with the given float component kind.
// component must be Float32 or Float64.
func (c *Context) Complex(component FloatKind) Type {
	if component != Float32 && component != Float64 {
		panic("complex component must be f32 or f64")
	}
	return c.intern(typeKey{kind: TypeComplex, floatKind: component})
}

func (c *Context) C32() Type { return c.Complex(Float32) }
func (c *Context) C64() Type { return c.Complex(Float64) }

// Memref returns the interned memref(element, shape, stride, addrspace)
// type. dim := len(shape) must equal len(stride); every static shape
// entry must be >=0 or Dynamic; element must be a number type.
func (c *Context) Memref(elt Type, shape, stride []int64, as AddressSpace) Type {
	if elt.ctx != c {
		panic("Memref: element type from a different context")
	}
	if !elt.IsNumber() {
		panic("Memref: element type must be a number")
	}
	if len(shape) != len(stride) {
		panic("Memref: len(shape) must equal len(stride)")
	}
	for _, s := range shape {
		if s < 0 && s != Dynamic {
			panic("Memref: static shape entries must be >=0 or Dynamic")
		}
	}
	key := typeKey{
		kind:      TypeMemref,
		eltKey:    elt.key.String(),
		shape:     encodeDims(shape),
		stride:    encodeDims(stride),
		addrspace: as,
	}
	return c.internWithChildren(key, typeChildren{elt: elt})
}

// Group returns the interned group(of, offset) type. of must be a memref;
// offset must be >=0 or Dynamic.
func (c *Context) Group(of Type, offset int64) Type {
	if of.ctx != c {
		panic("Group: element type from a different context")
	}
	if !of.IsMemref() {
		panic("Group: `of` must be a memref")
	}
	if offset < 0 && offset != Dynamic {
		panic("Group: offset must be >=0 or Dynamic")
	}
	key := typeKey{kind: TypeGroup, groupOfKey: of.key.String(), groupOffset: offset}
	return c.internWithChildren(key, typeChildren{groupOf: of})
}

// CoopMatrix returns the interned coopmatrix(component, rows, cols, use)
// type. rows, cols must be >0; component must be a number.
func (c *Context) CoopMatrix(component Type, rows, cols int64, use MatrixUse) Type {
	if component.ctx != c {
		panic("CoopMatrix: component type from a different context")
	}
	if !component.IsNumber() {
		panic("CoopMatrix: component must be a number")
	}
	if rows <= 0 || cols <= 0 {
		panic("CoopMatrix: rows and cols must be >0")
	}
	key := typeKey{kind: TypeCoopMatrix, componentKey: component.key.String(), rows: rows, cols: cols, use: use}
	return c.internWithChildren(key, typeChildren{component: component})
}

// Function returns the interned (params...)->result function type.
func (c *Context) Function(params []Type, result Type) Type {
	s := ""
	for _, p := range params {
		if p.ctx != c {
			panic("Function: parameter type from a different context")
		}
		s += p.key.String() + ","
	}
	if result.ctx != c {
		panic("Function: result type from a different context")
	}
	key := typeKey{kind: TypeFunction, params: s, resultKey: result.key.String()}
	return c.internWithChildren(key, typeChildren{params: append([]Type(nil), params...), result: result})
}

// freshID returns a new, context-unique counter value, used for
// auto-naming anonymous SSA values (%0, %1, ...) in the builder.
func (c *Context) freshID() uint64 {
	c.nextValueID++
	return c.nextValueID - 1
}
