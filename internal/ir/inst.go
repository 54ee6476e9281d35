package ir

import tcerrors "tinytc/internal/errors"

// Fence bits for `barrier`.
const (
	FenceGlobal uint8 = 1 << iota
	FenceLocal
)

// InstAttrs holds every opcode's static properties in one struct. Only
// the fields relevant to Op are meaningful; the grouped view accessors on
// Inst (AsBLASA3, AsBLASA2, AsLoop, AsBuiltin) expose the subset that
// applies to a given instruction family.
type InstAttrs struct {
	// constant: the immediate, one of bool, int64, float64, complex128.
	Immediate any

	// subview: len == operand memref's dim; Dynamic entries are resolved
	// from the trailing dynamic-offset/dynamic-size operands in order.
	StaticOffsets []int64
	StaticSizes   []int64

	// expand: splits ExpandMode into len(ExpandShape) new modes whose
	// static product equals the original mode's extent (or Dynamic).
	ExpandMode  int
	ExpandShape []int64

	// fuse: merges modes [FuseFrom, FuseTo] into one.
	FuseFrom int
	FuseTo   int

	// BLAS transpose flags. gemm uses both; gemv/axpby/sum use TransA
	// only; ger/hadamard/cumsum use neither.
	TransA bool
	TransB bool

	// cumsum's scan mode, or cooperative_matrix_reduce's row/column mode
	// (0 selects column, 1 selects row).
	Mode int

	// barrier's fence mask, a combination of FenceGlobal|FenceLocal.
	Fence uint8

	// alloca's scratch-memory placement, assigned by the stack pass.
	// StackOffset is -1 until assigned; [LiveStart, LiveEnd) is the byte
	// interval the allocation occupies, consulted by alias analysis to
	// detect reused slots.
	StackOffset int64
	LiveStart   int64
	LiveEnd     int64
}

// Inst is a single IR instruction: an opcode, its operand uses, result
// values, child regions, source location and static properties. The
// invariant that setup_and_check's constraints
// hold is enforced at construction by the builder (internal/builder) and
// may be re-checked after mutation via Verify in verify.go.
type Inst struct {
	Op       Opcode
	Loc      tcerrors.Location
	ctx      *Context
	operands []*Use
	results  []*Value
	regions  []*Region
	parent   *Region

	Attrs InstAttrs
}

// newInst allocates an instruction with the given operand values and
// result types, wiring up use-list back-pointers. It does not run
// setup_and_check and does not attach the instruction to a region; the
// builder does both after populating Attrs and child regions.
func newInst(ctx *Context, op Opcode, loc tcerrors.Location, operands []*Value, resultTypes []Type) *Inst {
	inst := &Inst{Op: op, Loc: loc, ctx: ctx, Attrs: InstAttrs{StackOffset: -1}}
	inst.operands = make([]*Use, len(operands))
	for i, v := range operands {
		inst.operands[i] = newUse(inst, v)
	}
	inst.results = make([]*Value, len(resultTypes))
	for i, t := range resultTypes {
		inst.results[i] = newValue(ctx, t)
		inst.results[i].def = inst
	}
	return inst
}

func (i *Inst) Context() *Context { return i.ctx }

// Operand returns the idx'th operand's current value.
func (i *Inst) Operand(idx int) *Value { return i.operands[idx].Value() }

// Operands returns the live value behind every operand slot, in order.
func (i *Inst) Operands() []*Value {
	out := make([]*Value, len(i.operands))
	for idx, u := range i.operands {
		out[idx] = u.Value()
	}
	return out
}

// NumOperands is the operand count.
func (i *Inst) NumOperands() int { return len(i.operands) }

// SetOperand repoints the idx'th operand slot at a new value, keeping
// use-lists consistent.
func (i *Inst) SetOperand(idx int, v *Value) { i.operands[idx].Set(v) }

// Result returns the idx'th result value.
func (i *Inst) Result(idx int) *Value { return i.results[idx] }

// Results returns every result value, in order.
func (i *Inst) Results() []*Value { return i.results }

// NumResults is the result count.
func (i *Inst) NumResults() int { return len(i.results) }

// Regions returns every child region, in order.
func (i *Inst) Regions() []*Region { return i.regions }

// Region returns the idx'th child region.
func (i *Inst) Region(idx int) *Region { return i.regions[idx] }

// addRegion creates and attaches a new child region of the given kind,
// returning it. Used by the builder while constructing structured
// control-flow instructions (for/foreach/parallel/if).
func (i *Inst) addRegion(kind RegionKind) *Region {
	r := newRegion(i.ctx, kind)
	r.defInst = i
	i.regions = append(i.regions, r)
	return r
}

// Parent returns the region this instruction currently belongs to, or
// nil if detached.
func (i *Inst) Parent() *Region { return i.parent }

// destroy splices every operand use out of its value's use list and
// recursively destroys child regions. It does not remove i from its
// parent region's instruction list; callers use Region.Remove for that.
func (i *Inst) destroy() {
	for _, u := range i.operands {
		u.release()
	}
	for _, r := range i.regions {
		r.destroy()
	}
}

// BLASA3View exposes the fields relevant to the 3-operand BLAS family
// (gemm: C <- alpha*op(A)*op(B) + beta*C; gemv, ger share the shape).
// Valid only when Op is OpGemm, OpGemv, or OpGer.
type BLASA3View struct{ inst *Inst }

func (i *Inst) AsBLASA3() BLASA3View {
	switch i.Op {
	case OpGemm, OpGemv, OpGer:
	default:
		panic("AsBLASA3 called on non-BLAS-A3 instruction")
	}
	return BLASA3View{i}
}

func (v BLASA3View) TransA() bool  { return v.inst.Attrs.TransA }
func (v BLASA3View) TransB() bool  { return v.inst.Attrs.TransB }
func (v BLASA3View) Alpha() *Value { return v.inst.Operand(0) }
func (v BLASA3View) A() *Value     { return v.inst.Operand(1) }
func (v BLASA3View) B() *Value     { return v.inst.Operand(2) }
func (v BLASA3View) Beta() *Value  { return v.inst.Operand(3) }
func (v BLASA3View) C() *Value     { return v.inst.Operand(4) }

// BLASA2View exposes the fields relevant to the 2-operand BLAS family
// (axpby, sum, cumsum; hadamard also fits the elementwise two-source shape
// but uses no trans flag). Valid only for those opcodes.
type BLASA2View struct{ inst *Inst }

func (i *Inst) AsBLASA2() BLASA2View {
	switch i.Op {
	case OpAxpby, OpSum, OpCumsum, OpHadamard:
	default:
		panic("AsBLASA2 called on non-BLAS-A2 instruction")
	}
	return BLASA2View{i}
}

func (v BLASA2View) TransA() bool  { return v.inst.Attrs.TransA }
func (v BLASA2View) Alpha() *Value { return v.inst.Operand(0) }
func (v BLASA2View) A() *Value     { return v.inst.Operand(1) }
func (v BLASA2View) Beta() *Value  { return v.inst.Operand(2) }
func (v BLASA2View) B() *Value     { return v.inst.Operand(3) }
func (v BLASA2View) Mode() int     { return v.inst.Attrs.Mode }

// LoopView exposes the fields relevant to structured loops: for, foreach,
// parallel.
type LoopView struct{ inst *Inst }

func (i *Inst) AsLoop() LoopView {
	switch i.Op {
	case OpFor, OpForeach, OpParallel:
	default:
		panic("AsLoop called on non-loop instruction")
	}
	return LoopView{i}
}

func (v LoopView) From() *Value { return v.inst.Operand(0) }
func (v LoopView) To() *Value   { return v.inst.Operand(1) }

// Step is present only on `for`, always as the third operand; the
// builder synthesizes a constant 1 when the caller does not supply one,
// so the operand layout never has to disambiguate a step from the first
// iter-arg.
func (v LoopView) Step() *Value {
	if v.inst.Op != OpFor {
		return nil
	}
	return v.inst.Operand(2)
}

// InitArgs are the loop-carried initial values following from/to/step.
func (v LoopView) InitArgs() []*Value {
	base := 2
	if v.inst.Op == OpFor {
		base = 3
	}
	return v.inst.Operands()[base:]
}

func (v LoopView) Body() *Region { return v.inst.regions[0] }

// BuiltinView exposes the remaining opcode-specific static properties:
// constant/subview/expand/fuse/barrier.
type BuiltinView struct{ inst *Inst }

func (i *Inst) AsBuiltin() BuiltinView { return BuiltinView{i} }

func (v BuiltinView) Immediate() any          { return v.inst.Attrs.Immediate }
func (v BuiltinView) StaticOffsets() []int64  { return v.inst.Attrs.StaticOffsets }
func (v BuiltinView) StaticSizes() []int64    { return v.inst.Attrs.StaticSizes }
func (v BuiltinView) ExpandMode() int         { return v.inst.Attrs.ExpandMode }
func (v BuiltinView) ExpandShape() []int64    { return v.inst.Attrs.ExpandShape }
func (v BuiltinView) FuseFrom() int           { return v.inst.Attrs.FuseFrom }
func (v BuiltinView) FuseTo() int             { return v.inst.Attrs.FuseTo }
func (v BuiltinView) Fence() uint8            { return v.inst.Attrs.Fence }
