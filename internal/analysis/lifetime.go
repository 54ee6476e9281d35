package analysis

import (
	tcerrors "tinytc/internal/errors"
	"tinytc/internal/ir"
)

// InsertLifetimeStops walks body and, for every `alloca` result, appends
// a `lifetime_stop` instruction immediately after its last use in the
// same region as the alloca. This lets the stack-assignment pass
// (stack.go) reclaim an alloca's slot as
// soon as the region that owns it is done reading or writing it, rather
// than holding it live until the end of the function.
//
// Nested regions (loop bodies, if-arms) are processed first so an
// alloca's own lifetime_stop, once placed, does not get mistaken for a
// later use of some enclosing alloca.
func InsertLifetimeStops(ctx *ir.Context, body *ir.Region) {
	for _, inst := range body.Insts() {
		for _, child := range inst.Regions() {
			InsertLifetimeStops(ctx, child)
		}
	}

	// Snapshot before mutating: Insert shifts indices as we go, so we
	// compute every stop-point against the region's state as of entry to
	// this call and insert from the back to keep earlier indices valid.
	type stop struct {
		after *ir.Inst
		value *ir.Value
	}
	var stops []stop
	for _, inst := range body.Insts() {
		if inst.Op != ir.OpAlloca {
			continue
		}
		v := inst.Result(0)
		last := lastUseWithin(body, v)
		if last == nil {
			last = inst
		}
		stops = append(stops, stop{after: last, value: v})
	}

	for i := len(stops) - 1; i >= 0; i-- {
		s := stops[i]
		idx := body.IndexOf(s.after)
		if idx < 0 {
			continue
		}
		lsInst := ir.NewInst(ctx, ir.OpLifetimeStop, tcerrors.Location{}, []*ir.Value{s.value}, nil)
		body.Insert(idx+1, lsInst)
	}
}

// lastUseWithin finds the instruction directly inside region whose
// subtree contains the use of v, or of any view derived from v through a
// subview/expand/fuse/cast chain, with the greatest index in
// region's instruction list. A view-producing instruction is itself a use
// of v but not the last one that matters: the view's own later uses keep
// v's root alive until they're done too.
func lastUseWithin(region *ir.Region, v *ir.Value) *ir.Inst {
	var best *ir.Inst
	bestIdx := -1
	consider := func(use *ir.Use) {
		top, ok := topLevelAncestor(use.Owner(), region)
		if !ok {
			return
		}
		idx := region.IndexOf(top)
		if idx > bestIdx {
			bestIdx = idx
			best = top
		}
	}
	for _, use := range v.Uses() {
		consider(use)
	}
	for _, view := range rootedViews(region, v) {
		for _, use := range view.Uses() {
			consider(use)
		}
	}
	return best
}

// rootedViews collects every memref-typed value defined anywhere in
// region's subtree (including nested regions) whose analysis.Root traces
// back to v, i.e. every subview/expand/fuse/cast result built on top of
// v, directly or transitively.
func rootedViews(region *ir.Region, v *ir.Value) []*ir.Value {
	var out []*ir.Value
	var walk func(r *ir.Region)
	walk = func(r *ir.Region) {
		for _, inst := range r.Insts() {
			for _, res := range inst.Results() {
				if res.Type().IsMemref() && res != v && Root(res) == v {
					out = append(out, res)
				}
			}
			for _, child := range inst.Regions() {
				walk(child)
			}
		}
	}
	walk(region)
	return out
}

// topLevelAncestor walks inst's parent-region chain up to region,
// returning the instruction directly owned by region whose subtree
// contains inst.
func topLevelAncestor(inst *ir.Inst, region *ir.Region) (*ir.Inst, bool) {
	cur := inst
	for {
		parent := cur.Parent()
		if parent == nil {
			return nil, false
		}
		if parent == region {
			return cur, true
		}
		defInst := parent.DefiningInst()
		if defInst == nil {
			return nil, false
		}
		cur = defInst
	}
}
