package passes

import (
	"strings"
	"testing"

	tcerrors "tinytc/internal/errors"
	"tinytc/internal/builder"
	"tinytc/internal/ir"
)

func buildAxpyProgram(t *testing.T) *ir.Program {
	t.Helper()
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	f32 := ctx.F32()
	vecTy := ctx.Memref(f32, []int64{ir.Dynamic}, []int64{1}, ir.AddressSpaceGlobal)
	fn, rb := b.CreateFunction("axpy", []ir.Type{f32, vecTy, vecTy})
	alpha := fn.Param(0)
	a := fn.Param(1)
	out := fn.Param(2)
	beta, err := rb.ConstantOne(f32, tcerrors.Location{})
	if err != nil {
		t.Fatalf("ConstantOne: %v", err)
	}
	if err := rb.Axpby(alpha, a, beta, out, false, tcerrors.Location{}); err != nil {
		t.Fatalf("Axpby: %v", err)
	}
	return b.Program()
}

func TestLowerProgramEmitsKernel(t *testing.T) {
	prog := buildAxpyProgram(t)
	mod := LowerProgram(prog)
	if !strings.Contains(mod.Source, "__kernel void axpy(") {
		t.Errorf("expected kernel signature in output:\n%s", mod.Source)
	}
	if !strings.Contains(mod.Source, "for (long") {
		t.Errorf("expected a loop nest for axpby lowering:\n%s", mod.Source)
	}
}

func TestLowerProgramDeterministic(t *testing.T) {
	prog1 := buildAxpyProgram(t)
	prog2 := buildAxpyProgram(t)
	mod1 := LowerProgram(prog1)
	mod2 := LowerProgram(prog2)
	if mod1.Source != mod2.Source {
		t.Error("expected identical lowering output for structurally identical programs")
	}
}

// A subview's offset must survive into the generated pointer arithmetic:
// slicing batch element i of a stride-100 batch mode has to shift the
// base pointer by i*100, not alias it (the recipe layer's batch loop
// depends on this).
func TestLowerSubviewMaterializesOffset(t *testing.T) {
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	f32 := ctx.F32()
	batched := ctx.Memref(f32, []int64{4, ir.Dynamic}, []int64{1, 100}, ir.AddressSpaceGlobal)
	sliceTy := ctx.Memref(f32, []int64{4}, []int64{1}, ir.AddressSpaceGlobal)
	fn, rb := b.CreateFunction("slice", []ir.Type{batched})
	loc := tcerrors.Location{}

	idx, err := rb.Constant(int64(3), ctx.Index(), loc)
	if err != nil {
		t.Fatalf("Constant: %v", err)
	}
	sv, err := rb.Subview(fn.Param(0), []int64{0, ir.Dynamic}, []int64{4, 0}, []*ir.Value{idx}, nil, sliceTy, loc)
	if err != nil {
		t.Fatalf("Subview: %v", err)
	}
	zero, err := rb.Constant(int64(0), ctx.Index(), loc)
	if err != nil {
		t.Fatalf("Constant: %v", err)
	}
	if _, err := rb.Load(sv, []*ir.Value{zero}, f32, loc); err != nil {
		t.Fatalf("Load: %v", err)
	}

	mod := LowerProgram(b.Program())
	if !strings.Contains(mod.Source, "*100") {
		t.Errorf("expected the batch-mode stride to appear in the subview's pointer arithmetic:\n%s", mod.Source)
	}
}

// cooperative_matrix_mul_add must emit a real per-lane multiply-
// accumulate over K, pulling B's lane-distributed rows through
// sub_group_broadcast, not merely alias the accumulator.
func TestLowerCoopMulAddEmitsMAC(t *testing.T) {
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	f32 := ctx.F32()
	aMem := ctx.Memref(f32, []int64{16, 8}, []int64{1, 16}, ir.AddressSpaceGlobal)
	bMem := ctx.Memref(f32, []int64{8, 16}, []int64{1, 8}, ir.AddressSpaceGlobal)
	cMem := ctx.Memref(f32, []int64{16, 16}, []int64{1, 16}, ir.AddressSpaceGlobal)
	fn, rb := b.CreateFunction("mac", []ir.Type{aMem, bMem, cMem})
	loc := tcerrors.Location{}

	zero, err := rb.Constant(int64(0), ctx.Index(), loc)
	if err != nil {
		t.Fatalf("Constant: %v", err)
	}
	pos := []*ir.Value{zero, zero}
	aFrag, err := rb.CoopMatrixLoad(fn.Param(0), pos, ctx.CoopMatrix(f32, 16, 8, ir.MatrixUseA), loc)
	if err != nil {
		t.Fatalf("CoopMatrixLoad A: %v", err)
	}
	bFrag, err := rb.CoopMatrixLoad(fn.Param(1), pos, ctx.CoopMatrix(f32, 8, 16, ir.MatrixUseB), loc)
	if err != nil {
		t.Fatalf("CoopMatrixLoad B: %v", err)
	}
	cFrag, err := rb.CoopMatrixLoad(fn.Param(2), pos, ctx.CoopMatrix(f32, 16, 16, ir.MatrixUseAcc), loc)
	if err != nil {
		t.Fatalf("CoopMatrixLoad C: %v", err)
	}
	res, err := rb.CoopMatrixMulAdd(aFrag, bFrag, cFrag, ctx.CoopMatrix(f32, 16, 16, ir.MatrixUseAcc), loc)
	if err != nil {
		t.Fatalf("CoopMatrixMulAdd: %v", err)
	}
	if err := rb.CoopMatrixStore(res, fn.Param(2), pos, loc); err != nil {
		t.Fatalf("CoopMatrixStore: %v", err)
	}

	mod := LowerProgram(b.Program())
	if !strings.Contains(mod.Source, "sub_group_broadcast(") {
		t.Errorf("expected B rows to be shared via sub_group_broadcast:\n%s", mod.Source)
	}
	if !strings.Contains(mod.Source, "+=") {
		t.Errorf("expected a multiply-accumulate over K:\n%s", mod.Source)
	}
	found := false
	for _, e := range mod.Extensions {
		if e == "cl_khr_subgroups" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected cl_khr_subgroups extension, got %v", mod.Extensions)
	}
}

func TestFloat64UseRequiresExtension(t *testing.T) {
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	f64 := ctx.F64()
	globalTy := ctx.Memref(f64, []int64{4}, []int64{1}, ir.AddressSpaceGlobal)
	localTy := ctx.Memref(f64, []int64{4}, []int64{1}, ir.AddressSpaceLocal)
	fn, rb := b.CreateFunction("f64k", []ir.Type{globalTy})
	_ = fn
	_, err := rb.Alloca(localTy, tcerrors.Location{})
	if err != nil {
		t.Fatalf("Alloca: %v", err)
	}
	mod := LowerProgram(b.Program())
	found := false
	for _, e := range mod.Extensions {
		if e == "cl_khr_fp64" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected cl_khr_fp64 extension, got %v", mod.Extensions)
	}
}
