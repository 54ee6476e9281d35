package ir_test

import (
	"testing"

	"tinytc/internal/ir"
)

// intern(a) == intern(b) iff a and b are structurally equal.
func TestTypeInterningEquality(t *testing.T) {
	ctx := ir.NewContext(nil)

	if ctx.Void() != ctx.Void() {
		t.Fatal("void != void")
	}

	m12 := ctx.Memref(ctx.F32(), []int64{1, 2}, []int64{1, 1}, ir.AddressSpaceGlobal)
	m23 := ctx.Memref(ctx.F32(), []int64{2, 3}, []int64{1, 2}, ir.AddressSpaceGlobal)
	if m12 == m23 {
		t.Fatal("memref<f32,[1,2]> == memref<f32,[2,3]>, want distinct")
	}

	m12f64 := ctx.Memref(ctx.F64(), []int64{1, 2}, []int64{1, 1}, ir.AddressSpaceGlobal)
	if m12 == m12f64 {
		t.Fatal("memref<f32,[1,2]> == memref<f64,[1,2]>, want distinct")
	}

	g := ctx.Group(m12, 0)
	if g == m12 {
		t.Fatal("group(memref<f32,[1,2]>) == memref<f32,[1,2]>, want distinct")
	}

	// repeated identical arguments intern to the same handle
	m12Again := ctx.Memref(ctx.F32(), []int64{1, 2}, []int64{1, 1}, ir.AddressSpaceGlobal)
	if m12 != m12Again {
		t.Fatal("identical memref arguments did not intern to the same handle")
	}
}

// TestGroupAndFunctionInterningEquality guards against typeKey embedding
// its nested types by pointer: two Group/Function calls built from
// independently-constructed but structurally identical arguments must
// still intern to the same handle.
func TestGroupAndFunctionInterningEquality(t *testing.T) {
	ctx := ir.NewContext(nil)

	m1 := ctx.Memref(ctx.F32(), []int64{1, 2}, []int64{1, 1}, ir.AddressSpaceGlobal)
	m2 := ctx.Memref(ctx.F32(), []int64{1, 2}, []int64{1, 1}, ir.AddressSpaceGlobal)
	g1 := ctx.Group(m1, 0)
	g2 := ctx.Group(m2, 0)
	if g1 != g2 {
		t.Fatal("Group() over structurally identical memrefs did not intern to the same handle")
	}
	if g1.Element() != m1 {
		t.Fatal("Group.Element() did not recover the backing memref type")
	}

	f1 := ctx.Function([]ir.Type{ctx.F32(), ctx.Index()}, ctx.Bool())
	f2 := ctx.Function([]ir.Type{ctx.F32(), ctx.Index()}, ctx.Bool())
	if f1 != f2 {
		t.Fatal("Function() over structurally identical params/result did not intern to the same handle")
	}
}

func TestTypeInterningAcrossContexts(t *testing.T) {
	c1 := ir.NewContext(nil)
	c2 := ir.NewContext(nil)
	a := c1.F32()
	b := c2.F32()
	if a == b {
		t.Fatal("types from distinct contexts compared equal")
	}
}

func TestMemrefDimAndAccessors(t *testing.T) {
	ctx := ir.NewContext(nil)
	elt := ctx.F64()
	shape := []int64{27, 71, 43}
	stride := []int64{1, 27, 27 * 71}
	m := ctx.Memref(elt, shape, stride, ir.AddressSpaceGlobal)
	if m.Dim() != 3 {
		t.Fatalf("Dim() = %d, want 3", m.Dim())
	}
	if got := m.Shape(); !equalDims(got, shape) {
		t.Fatalf("Shape() = %v, want %v", got, shape)
	}
	if got := m.Stride(); !equalDims(got, stride) {
		t.Fatalf("Stride() = %v, want %v", got, stride)
	}
	if m.Element() != elt {
		t.Fatal("Element() mismatch")
	}
	if m.AddressSpace() != ir.AddressSpaceGlobal {
		t.Fatal("AddressSpace() mismatch")
	}
}

func TestMemrefDynamicShape(t *testing.T) {
	ctx := ir.NewContext(nil)
	m1 := ctx.Memref(ctx.F32(), []int64{ir.Dynamic, ir.Dynamic}, []int64{1, ir.Dynamic}, ir.AddressSpaceGlobal)
	m2 := ctx.Memref(ctx.F32(), []int64{ir.Dynamic, ir.Dynamic}, []int64{1, ir.Dynamic}, ir.AddressSpaceGlobal)
	if m1 != m2 {
		t.Fatal("two dynamic memrefs with identical shape encodings should intern equal")
	}
}

func TestCoopMatrixAccessors(t *testing.T) {
	ctx := ir.NewContext(nil)
	cm := ctx.CoopMatrix(ctx.F32(), 8, 16, ir.MatrixUseA)
	if cm.Rows() != 8 || cm.Cols() != 16 || cm.Use() != ir.MatrixUseA {
		t.Fatalf("unexpected coopmatrix accessors: rows=%d cols=%d use=%s", cm.Rows(), cm.Cols(), cm.Use())
	}
	if cm.Component() != ctx.F32() {
		t.Fatal("Component() mismatch")
	}
}

func TestGroupOffset(t *testing.T) {
	ctx := ir.NewContext(nil)
	m := ctx.Memref(ctx.F32(), []int64{4}, []int64{1}, ir.AddressSpaceGlobal)
	g := ctx.Group(m, ir.Dynamic)
	if g.GroupOffset() != ir.Dynamic {
		t.Fatalf("GroupOffset() = %d, want Dynamic", g.GroupOffset())
	}
}

func TestPromotionLattice(t *testing.T) {
	ctx := ir.NewContext(nil)

	if got, ok := ir.Promote(ctx.I32(), ctx.I64()); !ok || got != ctx.I64() {
		t.Fatalf("Promote(i32,i64) = %v,%v, want i64,true", got, ok)
	}
	if got, ok := ir.Promote(ctx.I32(), ctx.F32()); !ok || got != ctx.F32() {
		t.Fatalf("Promote(i32,f32) = %v,%v, want f32,true", got, ok)
	}
	if got, ok := ir.Promote(ctx.F32(), ctx.C32()); !ok || got != ctx.C32() {
		t.Fatalf("Promote(f32,c32) = %v,%v, want c32,true", got, ok)
	}
	if _, ok := ir.Promote(ctx.Bool(), ctx.F32()); ok {
		t.Fatal("Promote(bool,f32) should have no defined promotion")
	}

	if !ir.Promotable(ctx.I32(), ctx.I64()) {
		t.Fatal("Promotable(i32,i64) should hold")
	}
	if ir.Promotable(ctx.I64(), ctx.I32()) {
		t.Fatal("Promotable(i64,i32) should not hold (i64 does not promote into i32)")
	}
}

func TestCastAllowedTable(t *testing.T) {
	ctx := ir.NewContext(nil)
	if ir.IsCastAllowed(ctx.C32(), ctx.F32()) {
		t.Fatal("complex -> real cast should be forbidden")
	}
	if ir.IsCastAllowed(ctx.F64(), ctx.C32()) {
		t.Fatal("f64 -> c32 narrowing cast should be forbidden")
	}
	if !ir.IsCastAllowed(ctx.F32(), ctx.C64()) {
		t.Fatal("f32 -> c64 widening cast should be allowed")
	}
	if !ir.IsCastAllowed(ctx.I32(), ctx.F32()) {
		t.Fatal("i32 -> f32 cast should be allowed")
	}
}

func equalDims(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
