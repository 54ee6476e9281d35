// Package passes implements the IR-to-IR and IR-to-text lowering passes
// that run after analysis.Analyze/Build: barrier insertion, work-group
// size selection, and OpenCL-C code generation.
package passes

import (
	"tinytc/internal/analysis"
	tcerrors "tinytc/internal/errors"
	"tinytc/internal/ir"
)

// memrefAccesses returns the memref values inst reads and writes. For
// structured control flow the accesses of every nested region surface
// here too, so a hazard between a pending write and a loop that reads it
// gets its barrier at the merge point in front of the loop instruction
// rather than (illegally, for spmd bodies) inside it.
func memrefAccesses(inst *ir.Inst) (reads, writes []*ir.Value) {
	switch inst.Op {
	case ir.OpLoad:
		reads = append(reads, inst.Operand(0))
	case ir.OpStore:
		writes = append(writes, inst.Operand(1))
	case ir.OpGemm, ir.OpGemv, ir.OpGer:
		v := inst.AsBLASA3()
		reads = append(reads, v.A(), v.B())
		writes = append(writes, v.C())
		reads = append(reads, v.C())
	case ir.OpHadamard, ir.OpAxpby, ir.OpSum, ir.OpCumsum:
		v := inst.AsBLASA2()
		reads = append(reads, v.A())
		writes = append(writes, v.B())
		reads = append(reads, v.B())
	case ir.OpCoopMatrixLoad:
		reads = append(reads, inst.Operand(0))
	case ir.OpCoopMatrixStore:
		writes = append(writes, inst.Operand(1))
	}
	for _, child := range inst.Regions() {
		r, w := regionAccesses(child)
		reads = append(reads, r...)
		writes = append(writes, w...)
	}
	return
}

func regionAccesses(region *ir.Region) (reads, writes []*ir.Value) {
	for _, inst := range region.Insts() {
		r, w := memrefAccesses(inst)
		reads = append(reads, r...)
		writes = append(writes, w...)
	}
	return
}

// InsertBarriers walks body and inserts `barrier` instructions wherever
// an instruction reads or writes a shared-address-space memref that may
// alias one written since the last barrier with the matching fence
// bit. The pass consults the CFG's
// per-node region kind and never emits a barrier inside an spmd region;
// hazards raised by spmd bodies are fenced at the enclosing collective
// merge point instead. Re-running this pass on its own output is a
// no-op: every hazard it would insert a barrier for is already covered
// by one inserted on the prior run.
func InsertBarriers(ctx *ir.Context, aa *analysis.Result, body *ir.Region) {
	g := analysis.Build(body)
	barrierInsertRegion(ctx, aa, g, body)
}

func barrierInsertRegion(ctx *ir.Context, aa *analysis.Result, g *analysis.Graph, region *ir.Region) {
	entry := g.Entry(region)
	if entry == nil {
		return
	}
	if g.EnclosingKind(entry) == ir.RegionSPMD {
		return
	}

	var pendingLocal []*ir.Value
	var pendingGlobal []*ir.Value

	// A loop body re-enters through the back edge: its own writes are
	// pending when its first instruction runs again, so seed them.
	if def := region.DefiningInst(); def != nil && def.Op == ir.OpFor {
		_, writes := regionAccesses(region)
		for _, w := range writes {
			if !w.Type().IsMemref() {
				continue
			}
			switch w.Type().AddressSpace() {
			case ir.AddressSpaceLocal:
				pendingLocal = append(pendingLocal, w)
			case ir.AddressSpaceGlobal:
				pendingGlobal = append(pendingGlobal, w)
			}
		}
	}

	insts := region.Insts()
	for idx := 0; idx < len(insts); idx++ {
		inst := insts[idx]

		if inst.Op == ir.OpBarrier {
			if inst.Attrs.Fence&ir.FenceLocal != 0 {
				pendingLocal = nil
			}
			if inst.Attrs.Fence&ir.FenceGlobal != 0 {
				pendingGlobal = nil
			}
			continue
		}

		reads, writes := memrefAccesses(inst)
		needLocal := hazard(aa, reads, writes, pendingLocal, ir.AddressSpaceLocal)
		needGlobal := hazard(aa, reads, writes, pendingGlobal, ir.AddressSpaceGlobal)

		if needLocal || needGlobal {
			var fence uint8
			if needLocal {
				fence |= ir.FenceLocal
			}
			if needGlobal {
				fence |= ir.FenceGlobal
			}
			b := ir.NewInst(ctx, ir.OpBarrier, tcerrors.Location{}, nil, nil)
			b.Attrs.Fence = fence
			region.Insert(idx, b)
			insts = region.Insts()
			if fence&ir.FenceLocal != 0 {
				pendingLocal = nil
			}
			if fence&ir.FenceGlobal != 0 {
				pendingGlobal = nil
			}
			idx++ // re-point at the original instruction, now shifted by one
		}

		for _, w := range writes {
			if !w.Type().IsMemref() {
				continue
			}
			switch w.Type().AddressSpace() {
			case ir.AddressSpaceLocal:
				pendingLocal = append(pendingLocal, w)
			case ir.AddressSpaceGlobal:
				pendingGlobal = append(pendingGlobal, w)
			}
		}

		for _, child := range inst.Regions() {
			barrierInsertRegion(ctx, aa, g, child)
		}
	}
}

func hazard(aa *analysis.Result, reads, writes, pending []*ir.Value, space ir.AddressSpace) bool {
	if len(pending) == 0 {
		return false
	}
	check := func(v *ir.Value) bool {
		if !v.Type().IsMemref() || v.Type().AddressSpace() != space {
			return false
		}
		for _, p := range pending {
			if aa.MayAlias(v, p) {
				return true
			}
		}
		return false
	}
	for _, r := range reads {
		if check(r) {
			return true
		}
	}
	for _, w := range writes {
		if check(w) {
			return true
		}
	}
	return false
}
