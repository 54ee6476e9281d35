package analysis

import (
	"testing"

	tcerrors "tinytc/internal/errors"
	"tinytc/internal/ir"
)

func TestInsertLifetimeStopsAfterLastUse(t *testing.T) {
	ctx := ir.NewContext(nil)
	body := ir.NewProgram(ctx)
	_ = body
	fn := ir.NewFunction(ctx, "f", nil)
	region := fn.Body()

	memTy := ctx.Memref(ctx.F32(), []int64{4}, []int64{1}, ir.AddressSpaceLocal)
	alloca := ir.NewInst(ctx, ir.OpAlloca, tcerrors.Location{}, nil, []ir.Type{memTy})
	region.Append(alloca)

	idxTy := ctx.Index()
	idx := ir.NewInst(ctx, ir.OpConstant, tcerrors.Location{}, nil, []ir.Type{idxTy})
	idx.Attrs.Immediate = int64(0)
	region.Append(idx)

	store := ir.NewInst(ctx, ir.OpStore, tcerrors.Location{}, []*ir.Value{idx.Result(0), alloca.Result(0), idx.Result(0)}, nil)
	region.Append(store)

	trailing := ir.NewInst(ctx, ir.OpConstant, tcerrors.Location{}, nil, []ir.Type{idxTy})
	trailing.Attrs.Immediate = int64(1)
	region.Append(trailing)

	InsertLifetimeStops(ctx, region)

	storeIdx := region.IndexOf(store)
	if storeIdx < 0 {
		t.Fatal("store missing from region after lifetime pass")
	}
	next := region.Inst(storeIdx + 1)
	if next.Op != ir.OpLifetimeStop {
		t.Errorf("expected lifetime_stop immediately after last use, got op %v", next.Op)
	}
	if next.Operand(0) != alloca.Result(0) {
		t.Error("lifetime_stop does not reference the alloca'd value")
	}
}

// TestInsertLifetimeStopsThroughSubview checks that liveness tracks
// view-producing chains: a store through
// a subview of the alloca must keep the alloca live until that store, not
// just until the subview instruction that created the view.
func TestInsertLifetimeStopsThroughSubview(t *testing.T) {
	ctx := ir.NewContext(nil)
	fn := ir.NewFunction(ctx, "f", nil)
	region := fn.Body()

	memTy := ctx.Memref(ctx.F32(), []int64{8}, []int64{1}, ir.AddressSpaceLocal)
	alloca := ir.NewInst(ctx, ir.OpAlloca, tcerrors.Location{}, nil, []ir.Type{memTy})
	region.Append(alloca)

	idxTy := ctx.Index()
	idx := ir.NewInst(ctx, ir.OpConstant, tcerrors.Location{}, nil, []ir.Type{idxTy})
	idx.Attrs.Immediate = int64(0)
	region.Append(idx)

	subTy := ctx.Memref(ctx.F32(), []int64{4}, []int64{1}, ir.AddressSpaceLocal)
	sub := ir.NewInst(ctx, ir.OpSubview, tcerrors.Location{}, []*ir.Value{alloca.Result(0)}, []ir.Type{subTy})
	sub.Attrs.StaticOffsets = []int64{0}
	sub.Attrs.StaticSizes = []int64{4}
	region.Append(sub)

	trailing := ir.NewInst(ctx, ir.OpConstant, tcerrors.Location{}, nil, []ir.Type{idxTy})
	trailing.Attrs.Immediate = int64(1)
	region.Append(trailing)

	store := ir.NewInst(ctx, ir.OpStore, tcerrors.Location{}, []*ir.Value{idx.Result(0), sub.Result(0), idx.Result(0)}, nil)
	region.Append(store)

	InsertLifetimeStops(ctx, region)

	storeIdx := region.IndexOf(store)
	if storeIdx < 0 {
		t.Fatal("store missing from region after lifetime pass")
	}
	next := region.Inst(storeIdx + 1)
	if next.Op != ir.OpLifetimeStop {
		t.Errorf("expected lifetime_stop immediately after the store through the subview, got op %v", next.Op)
	}
	if next.Operand(0) != alloca.Result(0) {
		t.Error("lifetime_stop does not reference the alloca'd value")
	}
}
