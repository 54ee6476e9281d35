package ir

import tcerrors "tinytc/internal/errors"

// This file is the seam internal/builder uses to construct IR: it
// exports just enough of the otherwise-private construction machinery
// (newInst, Inst.addRegion, Region.addParam) for the builder package to
// assemble an instruction's operands/results/regions/attrs before
// Verify runs, without handing out the ability to bypass use-list
// bookkeeping.

// NewInst allocates (but does not verify or attach) an instruction of
// the given opcode, wiring operand uses and allocating result values.
// Callers (internal/builder) populate Attrs and child regions via
// AddRegion before calling Verify and Region.Append/Insert.
func NewInst(ctx *Context, op Opcode, loc tcerrors.Location, operands []*Value, resultTypes []Type) *Inst {
	return newInst(ctx, op, loc, operands, resultTypes)
}

// AddRegion attaches a new child region of the given kind to inst,
// returning it so the builder can populate its instruction list.
func (i *Inst) AddRegion(kind RegionKind) *Region { return i.addRegion(kind) }

// AddParam appends a new region parameter of the given type. Ordinarily
// Verify assigns for/foreach/parallel's body parameters itself; AddParam
// is exposed for `if`-less constructs the builder assembles directly
// (e.g. a region built stand-alone before being attached to its defining
// instruction).
func (r *Region) AddParam(typ Type) *Value { return r.addParam(typ) }

// NewValue constructs a detached value, used by the builder for the rare
// case where a value must exist before any instruction references it.
func NewValue(ctx *Context, typ Type) *Value { return newValue(ctx, typ) }
