package builder

import (
	tcerrors "tinytc/internal/errors"
	"tinytc/internal/ir"
)

// Constant builds a `constant` instruction carrying imm (bool, int64,
// float64, or complex128) typed as typ.
func (rb *RegionBuilder) Constant(imm any, typ ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpConstant, loc, nil, []ir.Type{typ})
	inst.Attrs.Immediate = imm
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// ConstantZero is the `constant_zero` shortcut.
func (rb *RegionBuilder) ConstantZero(typ ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	return rb.Constant(zeroImmediateFor(typ), typ, loc)
}

// ConstantOne is the `constant_one` shortcut.
func (rb *RegionBuilder) ConstantOne(typ ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	return rb.Constant(oneImmediateFor(typ), typ, loc)
}

func zeroImmediateFor(typ ir.Type) any {
	switch {
	case typ.IsBool():
		return false
	case typ.IsFloat():
		return float64(0)
	case typ.IsComplex():
		return complex(0, 0)
	default:
		return int64(0)
	}
}

func oneImmediateFor(typ ir.Type) any {
	switch {
	case typ.IsBool():
		return true
	case typ.IsFloat():
		return float64(1)
	case typ.IsComplex():
		return complex(1, 0)
	default:
		return int64(1)
	}
}

// Alloca builds an `alloca` instruction allocating a local-address-space
// memref of shape/stride/element type described by typ.
func (rb *RegionBuilder) Alloca(typ ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpAlloca, loc, nil, []ir.Type{typ})
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// Load builds a `load` of obj at the given indices.
func (rb *RegionBuilder) Load(obj *ir.Value, indices []*ir.Value, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	operands := append([]*ir.Value{obj}, indices...)
	inst := ir.NewInst(rb.ctx, ir.OpLoad, loc, operands, []ir.Type{resultType})
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// Store builds a `store` of val into obj at the given indices.
func (rb *RegionBuilder) Store(val, obj *ir.Value, indices []*ir.Value, loc tcerrors.Location) error {
	operands := append([]*ir.Value{val, obj}, indices...)
	inst := ir.NewInst(rb.ctx, ir.OpStore, loc, operands, nil)
	return rb.build(inst)
}

// Subview builds a `subview` of operand with the given static offsets and
// sizes (Dynamic entries consumed, in order, from dynOffsets/dynSizes),
// producing a memref of resultType.
func (rb *RegionBuilder) Subview(operand *ir.Value, staticOffsets, staticSizes []int64, dynOffsets, dynSizes []*ir.Value, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	operands := append([]*ir.Value{operand}, append(append([]*ir.Value{}, dynOffsets...), dynSizes...)...)
	inst := ir.NewInst(rb.ctx, ir.OpSubview, loc, operands, []ir.Type{resultType})
	inst.Attrs.StaticOffsets = staticOffsets
	inst.Attrs.StaticSizes = staticSizes
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// Expand builds an `expand` splitting operand's mode into the given new
// static shape.
func (rb *RegionBuilder) Expand(operand *ir.Value, mode int, newShape []int64, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpExpand, loc, []*ir.Value{operand}, []ir.Type{resultType})
	inst.Attrs.ExpandMode = mode
	inst.Attrs.ExpandShape = newShape
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// Fuse builds a `fuse` merging operand's [from,to] modes into one.
func (rb *RegionBuilder) Fuse(operand *ir.Value, from, to int, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpFuse, loc, []*ir.Value{operand}, []ir.Type{resultType})
	inst.Attrs.FuseFrom = from
	inst.Attrs.FuseTo = to
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// Cast builds a `cast` of operand to resultType.
func (rb *RegionBuilder) Cast(operand *ir.Value, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpCast, loc, []*ir.Value{operand}, []ir.Type{resultType})
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// blasA3 is the shared constructor for gemm/gemv/ger: operand layout is
// [alpha, A, B, beta, C], matching ir.BLASA3View.
func (rb *RegionBuilder) blasA3(op ir.Opcode, alpha, a, b, beta, c *ir.Value, transA, transB bool, loc tcerrors.Location) error {
	inst := ir.NewInst(rb.ctx, op, loc, []*ir.Value{alpha, a, b, beta, c}, nil)
	inst.Attrs.TransA = transA
	inst.Attrs.TransB = transB
	return rb.build(inst)
}

// Gemm builds `C <- alpha*op(A)*op(B) + beta*C`.
func (rb *RegionBuilder) Gemm(alpha, a, b, beta, c *ir.Value, transA, transB bool, loc tcerrors.Location) error {
	return rb.blasA3(ir.OpGemm, alpha, a, b, beta, c, transA, transB, loc)
}

// Gemv builds `C <- alpha*op(A)*B + beta*C` with a vector B/C.
func (rb *RegionBuilder) Gemv(alpha, a, b, beta, c *ir.Value, transA bool, loc tcerrors.Location) error {
	return rb.blasA3(ir.OpGemv, alpha, a, b, beta, c, transA, false, loc)
}

// Ger builds the rank-1 update `C <- alpha*A(x)B + beta*C`.
func (rb *RegionBuilder) Ger(alpha, a, b, beta, c *ir.Value, loc tcerrors.Location) error {
	return rb.blasA3(ir.OpGer, alpha, a, b, beta, c, false, false, loc)
}

// blasA2 is the shared constructor for axpby/sum/cumsum/hadamard:
// operand layout [alpha, A, beta, B], matching ir.BLASA2View.
func (rb *RegionBuilder) blasA2(op ir.Opcode, alpha, a, beta, b *ir.Value, transA bool, mode int, loc tcerrors.Location) error {
	inst := ir.NewInst(rb.ctx, op, loc, []*ir.Value{alpha, a, beta, b}, nil)
	inst.Attrs.TransA = transA
	inst.Attrs.Mode = mode
	return rb.build(inst)
}

// Hadamard builds the elementwise product `B <- alpha*(A .* B) + beta*B`.
func (rb *RegionBuilder) Hadamard(alpha, a, beta, b *ir.Value, loc tcerrors.Location) error {
	return rb.blasA2(ir.OpHadamard, alpha, a, beta, b, false, 0, loc)
}

// Axpby builds `B <- alpha*op(A) + beta*B`.
func (rb *RegionBuilder) Axpby(alpha, a, beta, b *ir.Value, transA bool, loc tcerrors.Location) error {
	return rb.blasA2(ir.OpAxpby, alpha, a, beta, b, transA, 0, loc)
}

// Sum builds `B <- alpha*reduce(op(A)) + beta*B`.
func (rb *RegionBuilder) Sum(alpha, a, beta, b *ir.Value, transA bool, loc tcerrors.Location) error {
	return rb.blasA2(ir.OpSum, alpha, a, beta, b, transA, 0, loc)
}

// Cumsum builds `B <- alpha*cumsum(A, mode) + beta*B`.
func (rb *RegionBuilder) Cumsum(alpha, a, beta, b *ir.Value, mode int, loc tcerrors.Location) error {
	return rb.blasA2(ir.OpCumsum, alpha, a, beta, b, false, mode, loc)
}

// CoopMatrixLoad loads a coopmatrix fragment from a memref at (pos0, pos1).
func (rb *RegionBuilder) CoopMatrixLoad(operand *ir.Value, pos []*ir.Value, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	operands := append([]*ir.Value{operand}, pos...)
	inst := ir.NewInst(rb.ctx, ir.OpCoopMatrixLoad, loc, operands, []ir.Type{resultType})
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// CoopMatrixStore stores a coopmatrix fragment into a memref.
func (rb *RegionBuilder) CoopMatrixStore(val, operand *ir.Value, pos []*ir.Value, loc tcerrors.Location) error {
	operands := append([]*ir.Value{val, operand}, pos...)
	inst := ir.NewInst(rb.ctx, ir.OpCoopMatrixStore, loc, operands, nil)
	return rb.build(inst)
}

// CoopMatrixMulAdd builds `C <- A*B + C` (fragments).
func (rb *RegionBuilder) CoopMatrixMulAdd(a, b, c *ir.Value, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpCoopMatrixMulAdd, loc, []*ir.Value{a, b, c}, []ir.Type{resultType})
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// CoopMatrixScale builds `result <- scalar * matrix`.
func (rb *RegionBuilder) CoopMatrixScale(scalar, matrix *ir.Value, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpCoopMatrixScale, loc, []*ir.Value{scalar, matrix}, []ir.Type{matrix.Type()})
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// CoopMatrixReduce builds a row/column reduction of a coopmatrix fragment.
// mode 0 selects column, mode 1 selects row.
func (rb *RegionBuilder) CoopMatrixReduce(operand *ir.Value, mode int, resultType ir.Type, loc tcerrors.Location) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpCoopMatrixReduce, loc, []*ir.Value{operand}, []ir.Type{resultType})
	inst.Attrs.Mode = mode
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// CoopMatrixApply opens an spmd child region operating element-wise over
// operand's fragment; bodyFn receives a RegionBuilder for that region and
// the per-lane scalar Value, and must build a `yield` of the transformed
// scalar.
func (rb *RegionBuilder) CoopMatrixApply(operand *ir.Value, elementType ir.Type, resultType ir.Type, loc tcerrors.Location, bodyFn func(body *RegionBuilder, elem *ir.Value) error) (*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpCoopMatrixApply, loc, []*ir.Value{operand}, []ir.Type{resultType})
	region := inst.AddRegion(ir.RegionSPMD)
	elem := region.AddParam(elementType)
	body := &RegionBuilder{ctx: rb.ctx, region: region}
	if err := bodyFn(body, elem); err != nil {
		return nil, err
	}
	if err := rb.build(inst); err != nil {
		return nil, err
	}
	return inst.Result(0), nil
}

// Barrier builds a `barrier` with the given fence mask.
func (rb *RegionBuilder) Barrier(fence uint8, loc tcerrors.Location) error {
	inst := ir.NewInst(rb.ctx, ir.OpBarrier, loc, nil, nil)
	inst.Attrs.Fence = fence
	return rb.build(inst)
}

// Yield terminates an if/for/foreach/parallel body with the values it
// hands back to the enclosing instruction's results.
func (rb *RegionBuilder) Yield(values []*ir.Value, loc tcerrors.Location) error {
	inst := ir.NewInst(rb.ctx, ir.OpYield, loc, values, nil)
	return rb.build(inst)
}

// For builds a `for` loop. bodyFn receives a RegionBuilder positioned at
// the loop body plus the induction variable and iter-arg parameter
// values (in [iv, iter_args...] order), and must build a
// `Yield` of the next iteration's iter-args. A nil step defaults to a
// constant 1 of the bounds' type.
func (rb *RegionBuilder) For(from, to, step *ir.Value, initArgs []*ir.Value, loc tcerrors.Location, bodyFn func(body *RegionBuilder, iv *ir.Value, iterArgs []*ir.Value) error) ([]*ir.Value, error) {
	if step == nil {
		var err error
		step, err = rb.Constant(int64(1), from.Type(), loc)
		if err != nil {
			return nil, err
		}
	}
	resultTypes := make([]ir.Type, len(initArgs))
	for i, a := range initArgs {
		resultTypes[i] = a.Type()
	}
	operands := []*ir.Value{from, to, step}
	operands = append(operands, initArgs...)
	inst := ir.NewInst(rb.ctx, ir.OpFor, loc, operands, resultTypes)
	region := inst.AddRegion(ir.RegionCollective)
	if err := ir.Verify(inst); err != nil {
		rb.ctx.Report(err.Error(), &inst.Loc, nil)
		return nil, err
	}
	body := &RegionBuilder{ctx: rb.ctx, region: region}
	params := region.Params()
	if err := bodyFn(body, params[0], params[1:]); err != nil {
		return nil, err
	}
	rb.region.Append(inst)
	return inst.Results(), nil
}

// foreachOrParallel is the shared constructor for foreach/parallel.
func (rb *RegionBuilder) foreachOrParallel(op ir.Opcode, from, to *ir.Value, loc tcerrors.Location, bodyFn func(body *RegionBuilder, iv *ir.Value) error) error {
	inst := ir.NewInst(rb.ctx, op, loc, []*ir.Value{from, to}, nil)
	region := inst.AddRegion(ir.RegionSPMD)
	if err := ir.Verify(inst); err != nil {
		rb.ctx.Report(err.Error(), &inst.Loc, nil)
		return err
	}
	body := &RegionBuilder{ctx: rb.ctx, region: region}
	if err := bodyFn(body, region.Params()[0]); err != nil {
		return err
	}
	rb.region.Append(inst)
	return nil
}

// Foreach builds a `foreach [from,to)` SPMD loop over work-items.
func (rb *RegionBuilder) Foreach(from, to *ir.Value, loc tcerrors.Location, bodyFn func(body *RegionBuilder, iv *ir.Value) error) error {
	return rb.foreachOrParallel(ir.OpForeach, from, to, loc, bodyFn)
}

// Parallel builds a `parallel` SPMD region over the work-group's lanes.
func (rb *RegionBuilder) Parallel(from, to *ir.Value, loc tcerrors.Location, bodyFn func(body *RegionBuilder, iv *ir.Value) error) error {
	return rb.foreachOrParallel(ir.OpParallel, from, to, loc, bodyFn)
}

// If builds structured `if`/`then`/`else`. elseFn may be nil, in which
// case the else arm is left empty.
func (rb *RegionBuilder) If(cond *ir.Value, resultTypes []ir.Type, loc tcerrors.Location, thenFn func(body *RegionBuilder) error, elseFn func(body *RegionBuilder) error) ([]*ir.Value, error) {
	inst := ir.NewInst(rb.ctx, ir.OpIf, loc, []*ir.Value{cond}, resultTypes)
	thenRegion := inst.AddRegion(ir.RegionCollective)
	elseRegion := inst.AddRegion(ir.RegionCollective)
	if err := ir.Verify(inst); err != nil {
		rb.ctx.Report(err.Error(), &inst.Loc, nil)
		return nil, err
	}
	thenBody := &RegionBuilder{ctx: rb.ctx, region: thenRegion}
	if err := thenFn(thenBody); err != nil {
		return nil, err
	}
	if elseFn != nil {
		elseBody := &RegionBuilder{ctx: rb.ctx, region: elseRegion}
		if err := elseFn(elseBody); err != nil {
			return nil, err
		}
	}
	rb.region.Append(inst)
	return inst.Results(), nil
}
