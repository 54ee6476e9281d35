package ir

// RegionKind classifies how the lanes of a work-group execute a region's
// instruction stream.
type RegionKind uint8

const (
	// RegionCollective: every lane cooperatively participates; all lanes
	// must reach the same collective ops in the same order. Default.
	RegionCollective RegionKind = iota
	// RegionSPMD: each lane runs independently; no collective ops allowed.
	RegionSPMD
	// RegionMixed: contains both collective and SPMD nested regions. The
	// verifier never assigns it; the CFG's kind merge passes it through
	// when a region already carries it.
	RegionMixed
)

func (k RegionKind) String() string {
	switch k {
	case RegionSPMD:
		return "spmd"
	case RegionMixed:
		return "mixed"
	default:
		return "collective"
	}
}

// Region is an ordered intrusive list of instructions plus an ordered
// list of region parameters. An instruction belongs to at most one
// region; Insert/Remove update both the instruction list
// and (via Inst.destroy) use-list invariants.
type Region struct {
	ctx     *Context
	kind    RegionKind
	defInst *Inst // nil for a function body region
	params  []*Value
	insts   []*Inst
}

func newRegion(ctx *Context, kind RegionKind) *Region {
	return &Region{ctx: ctx, kind: kind}
}

func (r *Region) Kind() RegionKind     { return r.kind }
func (r *Region) SetKind(k RegionKind) { r.kind = k }
func (r *Region) DefiningInst() *Inst  { return r.defInst }
func (r *Region) Params() []*Value     { return r.params }
func (r *Region) Param(idx int) *Value { return r.params[idx] }
func (r *Region) NumParams() int       { return len(r.params) }
func (r *Region) Insts() []*Inst       { return r.insts }
func (r *Region) NumInsts() int        { return len(r.insts) }
func (r *Region) Inst(idx int) *Inst   { return r.insts[idx] }

// Empty reports whether the region has no instructions (used by the
// OpenCL-C lowering of `if` to omit an empty else arm).
func (r *Region) Empty() bool { return len(r.insts) == 0 }

// addParam appends a new region parameter value of the given type,
// returning it. Used by for/foreach/parallel construction to create the
// induction variable and iter-arg parameters.
func (r *Region) addParam(typ Type) *Value {
	v := newValue(r.ctx, typ)
	r.params = append(r.params, v)
	return v
}

// Append adds inst to the end of the region's instruction list, setting
// its parent pointer. The caller (builder) is responsible for having run
// setup_and_check first.
func (r *Region) Append(inst *Inst) {
	inst.parent = r
	r.insts = append(r.insts, inst)
}

// Insert places inst immediately before the instruction currently at
// position idx (or at the end if idx == len(r.insts)).
func (r *Region) Insert(idx int, inst *Inst) {
	inst.parent = r
	r.insts = append(r.insts, nil)
	copy(r.insts[idx+1:], r.insts[idx:])
	r.insts[idx] = inst
}

// IndexOf returns inst's position in the region, or -1 if it is not a
// direct child.
func (r *Region) IndexOf(inst *Inst) int {
	for idx, i := range r.insts {
		if i == inst {
			return idx
		}
	}
	return -1
}

// Remove splices inst out of the region's instruction list and destroys
// it (releasing its operand uses and recursively destroying its child
// regions). It is a programmer error to call Remove on an instruction
// whose results still have uses outside of what is being removed.
func (r *Region) Remove(inst *Inst) {
	idx := r.IndexOf(inst)
	if idx < 0 {
		return
	}
	r.insts = append(r.insts[:idx], r.insts[idx+1:]...)
	inst.destroy()
	inst.parent = nil
}

func (r *Region) destroy() {
	for _, inst := range r.insts {
		inst.destroy()
	}
}
