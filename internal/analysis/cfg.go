package analysis

import "tinytc/internal/ir"

// Graph is the control-flow graph of a region tree. tinytc has no
// explicit branch instruction: all
// control flow is structured (if/for/foreach/parallel), so the graph is
// built directly from region nesting rather than from a basic-block
// partition. Nodes are instructions; edges capture sequencing within a
// region plus the entry/exit/back-edges structured control flow implies.
type Graph struct {
	succ map[*ir.Inst][]*ir.Inst
	pred map[*ir.Inst][]*ir.Inst
	// Entry/Exit record the first/last instruction reachable within a
	// region, used when wiring a parent construct's edges to its body.
	entry map[*ir.Region]*ir.Inst
	exit  map[*ir.Region][]*ir.Inst
	// kind records, per node, the maximum region kind of any enclosing
	// region; the barrier pass consults it to avoid
	// emitting collective barriers inside spmd regions.
	kind map[*ir.Inst]ir.RegionKind
}

// Build constructs the control-flow graph of every instruction reachable
// from body.
func Build(body *ir.Region) *Graph {
	g := &Graph{
		succ:  make(map[*ir.Inst][]*ir.Inst),
		pred:  make(map[*ir.Inst][]*ir.Inst),
		entry: make(map[*ir.Region]*ir.Inst),
		exit:  make(map[*ir.Region][]*ir.Inst),
		kind:  make(map[*ir.Inst]ir.RegionKind),
	}
	g.wireRegion(body, body.Kind())
	return g
}

// maxKind orders region kinds by how much they constrain the lanes: spmd
// dominates (once any enclosing region diverges, everything inside is
// divergent), then mixed, then collective.
func maxKind(a, b ir.RegionKind) ir.RegionKind {
	if a == ir.RegionSPMD || b == ir.RegionSPMD {
		return ir.RegionSPMD
	}
	if a == ir.RegionMixed || b == ir.RegionMixed {
		return ir.RegionMixed
	}
	return ir.RegionCollective
}

func (g *Graph) addEdge(from, to *ir.Inst) {
	if from == nil || to == nil {
		return
	}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
}

// wireRegion connects consecutive instructions in region and recurses
// into child regions, returning region's entry and exit instructions
// (exit may list multiple instructions if the last instruction is itself
// a branching construct whose arms both fall through).
func (g *Graph) wireRegion(region *ir.Region, enclosing ir.RegionKind) (*ir.Inst, []*ir.Inst) {
	kind := maxKind(enclosing, region.Kind())
	insts := region.Insts()
	if len(insts) == 0 {
		return nil, nil
	}
	var prevExits []*ir.Inst
	var entry *ir.Inst
	for idx, inst := range insts {
		if idx == 0 {
			entry = inst
		}
		g.kind[inst] = kind
		for _, p := range prevExits {
			g.addEdge(p, inst)
		}
		selfExits := g.wireInst(inst, kind)
		prevExits = selfExits
	}
	g.entry[region] = entry
	g.exit[region] = prevExits
	return entry, prevExits
}

// wireInst wires inst's internal region structure (if any) and returns
// the set of instructions control may fall through to after inst.
func (g *Graph) wireInst(inst *ir.Inst, enclosing ir.RegionKind) []*ir.Inst {
	switch inst.Op {
	case ir.OpIf:
		var exits []*ir.Inst
		for _, region := range inst.Regions() {
			entry, regionExits := g.wireRegion(region, enclosing)
			if entry != nil {
				g.addEdge(inst, entry)
				exits = append(exits, regionExits...)
			} else {
				exits = append(exits, inst)
			}
		}
		if len(exits) == 0 {
			exits = []*ir.Inst{inst}
		}
		return exits
	case ir.OpFor, ir.OpForeach, ir.OpParallel:
		body := inst.Region(0)
		entry, bodyExits := g.wireRegion(body, enclosing)
		if entry != nil {
			g.addEdge(inst, entry)
			for _, e := range bodyExits {
				g.addEdge(e, inst) // back edge
			}
		}
		return []*ir.Inst{inst}
	default:
		for _, region := range inst.Regions() {
			g.wireRegion(region, enclosing)
		}
		return []*ir.Inst{inst}
	}
}

// Successors returns the instructions control may flow to immediately
// after inst.
func (g *Graph) Successors(inst *ir.Inst) []*ir.Inst { return g.succ[inst] }

// Predecessors returns the instructions that may flow into inst.
func (g *Graph) Predecessors(inst *ir.Inst) []*ir.Inst { return g.pred[inst] }

// Entry returns the first instruction of region, or nil if empty.
func (g *Graph) Entry(region *ir.Region) *ir.Inst { return g.entry[region] }

// EnclosingKind returns the maximum region kind of any region enclosing
// inst at the time the graph was built. Instructions inserted after Build
// default to collective.
func (g *Graph) EnclosingKind(inst *ir.Inst) ir.RegionKind { return g.kind[inst] }
