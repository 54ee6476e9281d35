// Package builder implements the programmatic construction API for
// tinytc programs: Program -> Function ->
// Region -> Instruction, running the verifier at every instruction and
// returning SSA results. A stateful object threads the current insertion
// scope over internal/ir.
package builder

import (
	"tinytc/internal/ir"
)

// Builder owns the Program under construction and the Context it is
// rooted in.
type Builder struct {
	ctx  *ir.Context
	prog *ir.Program
}

// New creates a builder for a fresh program over ctx.
func New(ctx *ir.Context) *Builder {
	return &Builder{ctx: ctx, prog: ir.NewProgram(ctx)}
}

func (b *Builder) Context() *ir.Context { return b.ctx }
func (b *Builder) Program() *ir.Program { return b.prog }

// CreateFunction declares a new function in the program and returns a
// RegionBuilder positioned at its body, ready to append instructions.
func (b *Builder) CreateFunction(name string, paramTypes []ir.Type) (*ir.Function, *RegionBuilder) {
	fn := ir.NewFunction(b.ctx, name, paramTypes)
	b.prog.AddFunction(fn)
	return fn, &RegionBuilder{ctx: b.ctx, region: fn.Body()}
}

// RegionBuilder is an insertion point: appending an instruction here adds
// it to the end of the wrapped Region's instruction list after running
// setup_and_check. Each "create X" method corresponds to one opcode.
type RegionBuilder struct {
	ctx    *ir.Context
	region *ir.Region
}

func (rb *RegionBuilder) Region() *ir.Region { return rb.region }

// build constructs inst, verifies it, and appends it to the region,
// returning an error if setup_and_check failed (the instruction is still
// constructed; errors accumulate and the caller decides, rather than
// panicking). Verify failures are also forwarded to the
// context's error reporter so a host can collect diagnostics without
// threading every builder call's error itself.
func (rb *RegionBuilder) build(inst *ir.Inst) error {
	if err := ir.Verify(inst); err != nil {
		rb.ctx.Report(err.Error(), &inst.Loc, nil)
		return err
	}
	rb.region.Append(inst)
	return nil
}
