package ir

// Promote implements the scalar promotion lattice:
// integer->integer widens to the wider width; integer->float goes to at
// least f32; complex(f) absorbs f. Returns the zero Type (Kind() ==
// TypeVoid's zero value is indistinguishable, so callers must check ok)
// when a and b do not have a defined promotion.
func Promote(a, b Type) (Type, bool) {
	if a.ctx == nil || b.ctx == nil || a.ctx != b.ctx {
		return Type{}, false
	}
	if !a.IsNumber() || !b.IsNumber() {
		return Type{}, false
	}
	ctx := a.ctx

	// complex(f) absorbs f: if either side is complex, the result is
	// complex over the wider of the two float components.
	if a.IsComplex() || b.IsComplex() {
		// an integer operand is absorbed at its minimum promotion target
		// (f32) before taking the wider of the two components.
		fa := componentFloatKind(a)
		fb := componentFloatKind(b)
		return ctx.Complex(widerFloat(fa, fb)), true
	}

	switch {
	case a.IsInteger() && b.IsInteger():
		if a.IntWidth() >= b.IntWidth() {
			return a, true
		}
		return b, true
	case a.IsFloat() && b.IsFloat():
		return ctx.Float(widerFloat(a.FloatKind(), b.FloatKind())), true
	case a.IsInteger() && b.IsFloat():
		return ctx.Float(widerFloat(Float32, b.FloatKind())), true
	case a.IsFloat() && b.IsInteger():
		return ctx.Float(widerFloat(a.FloatKind(), Float32)), true
	default:
		return Type{}, false
	}
}

// componentFloatKind returns the float component to use when absorbing a
// into a complex promotion: the type's own component if it is
// float/complex, or Float32 as the integer's minimum promotion target.
func componentFloatKind(t Type) FloatKind {
	switch t.Kind() {
	case TypeComplex, TypeFloat:
		return t.FloatKind()
	default:
		return Float32
	}
}

// widerFloat orders f16 < bf16 < f32 < f64 by bit width, with bf16 treated
// as equal-width-but-distinct from f16 (bf16 never narrows below f32 in
// a mixed promotion since BLAS ops only ever promote, never narrow).
func widerFloat(a, b FloatKind) FloatKind {
	rank := func(f FloatKind) int {
		switch f {
		case Float16:
			return 0
		case BFloat16:
			return 1
		case Float32:
			return 2
		default:
			return 3
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// Promotable reports whether promote(a,b) == b, i.e. a can be promoted
// into b without information loss beyond what promotion already implies.
func Promotable(a, b Type) bool {
	p, ok := Promote(a, b)
	return ok && p == b
}

// forbiddenCast tables: complex->real and float->complex narrowing are
// forbidden; everything else is permissive.
func isCastAllowed(src, dst Type) bool {
	if src.ctx == nil || dst.ctx == nil || src.ctx != dst.ctx {
		return false
	}
	if !src.IsNumber() || !dst.IsNumber() {
		return src.Kind() == dst.Kind()
	}
	if src.IsComplex() && !dst.IsComplex() {
		return false // complex -> real forbidden
	}
	if !src.IsComplex() && dst.IsComplex() {
		// float/int -> complex: allowed only when not narrowing, i.e.
		// dst's component is at least as wide as a sensible promotion of
		// src would require. We treat any non-narrowing widening as
		// allowed and any deliberate narrowing (e.g. f64 -> c32) as
		// forbidden.
		if src.IsFloat() && src.FloatKind() == Float64 && dst.FloatKind() == Float32 {
			return false
		}
		return true
	}
	return true
}

// IsCastAllowed reports whether a `cast` instruction may convert src to
// dst.
func IsCastAllowed(src, dst Type) bool { return isCastAllowed(src, dst) }
