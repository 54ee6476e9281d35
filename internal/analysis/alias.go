// Package analysis implements the compiler's IR analyses: alias
// roots, control-flow graph construction over structured regions,
// lifetime-stop placement, and stack-slot assignment. All four operate
// read-only over internal/ir and are consumed by internal/passes.
package analysis

import "tinytc/internal/ir"

// Root traces operand through the chain of view-producing instructions
// (subview, expand, fuse, cast) back to the memref it ultimately views:
// an alloca result or a function/region parameter.
// Two memref values can only alias if Root reports the same value for
// both.
func Root(v *ir.Value) *ir.Value {
	for {
		def := v.DefiningInst()
		if def == nil {
			return v // block/function parameter: itself a root
		}
		switch def.Op {
		case ir.OpSubview, ir.OpExpand, ir.OpFuse, ir.OpCast:
			v = def.Operand(0)
		default:
			return v // alloca, load result used as a memref, etc.
		}
	}
}

// MayAlias reports whether a and b might refer to overlapping memory:
// true exactly when their roots match. Distinct roots (e.g. two
// separate allocas, or a function parameter vs. an alloca) never alias
// by this check since tinytc forbids pointer arithmetic that could cross
// them; overlap of distinct allocas' stack slots is reported by
// Result.MayAlias instead.
func MayAlias(a, b *ir.Value) bool {
	ra, rb := Root(a), Root(b)
	return ra == rb
}

// stackRange is an alloca's assigned scratch-buffer footprint
// ([offset, offset+size)), as written by AssignStackOffsets.
type stackRange struct {
	offset, size int64
}

// Result is the aa_results record for a function: the memoized root of
// every memref value and the assigned stack range of every alloca.
// Computed once after stack assignment and consulted by barrier
// insertion.
type Result struct {
	roots  map[*ir.Value]*ir.Value
	ranges map[*ir.Value]stackRange
}

// Analyze walks every instruction transitively reachable from body and
// memoizes the root of each memref-typed value it produces, plus the
// stack-slot footprint of every alloca. Must run after
// AssignStackOffsets so distinct allocas whose scratch ranges overlap
// are reported as aliasing even though they have
// different roots.
func Analyze(body *ir.Region) *Result {
	r := &Result{roots: make(map[*ir.Value]*ir.Value), ranges: make(map[*ir.Value]stackRange)}
	r.walk(body)
	return r
}

func (r *Result) walk(region *ir.Region) {
	for _, p := range region.Params() {
		if p.Type().IsMemref() {
			r.roots[p] = Root(p)
		}
	}
	for _, inst := range region.Insts() {
		for _, res := range inst.Results() {
			if res.Type().IsMemref() {
				r.roots[res] = Root(res)
			}
		}
		if inst.Op == ir.OpAlloca && inst.Attrs.StackOffset >= 0 {
			r.ranges[inst.Result(0)] = stackRange{offset: inst.Attrs.LiveStart, size: inst.Attrs.LiveEnd - inst.Attrs.LiveStart}
		}
		for _, child := range inst.Regions() {
			r.walk(child)
		}
	}
}

// RootOf returns the memoized root for v, falling back to a fresh trace
// if v was not visited by Analyze (e.g. a value created after the
// analysis ran).
func (r *Result) RootOf(v *ir.Value) *ir.Value {
	if root, ok := r.roots[v]; ok {
		return root
	}
	return Root(v)
}

// MayAlias reports whether a and b may overlap, using the memoized roots,
// falling back to stack-range overlap when the roots differ but both are
// distinct stack allocations whose assigned scratch-buffer ranges overlap.
func (r *Result) MayAlias(a, b *ir.Value) bool {
	ra, rb := r.RootOf(a), r.RootOf(b)
	if ra == rb {
		return true
	}
	rangeA, okA := r.ranges[ra]
	rangeB, okB := r.ranges[rb]
	if !okA || !okB {
		return false
	}
	return rangeA.offset < rangeB.offset+rangeB.size && rangeB.offset < rangeA.offset+rangeA.size
}
