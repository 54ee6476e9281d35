package passes

import (
	"fmt"
	"io"
	"strings"

	"github.com/kr/pretty"
	"tinytc/internal/ir"
)

// DumpIR renders prog as an indented textual listing, one function per
// block and one instruction per line, disassembler style. The Attrs
// fields the instruction's opcode uses are appended after its operands;
// a constant's immediate is formatted via kr/pretty.
func DumpIR(w io.Writer, prog *ir.Program) {
	for _, fn := range prog.Functions() {
		fmt.Fprintf(w, "func @%s(", fn.Name)
		for i, t := range fn.ParamTypes {
			if i > 0 {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprintf(w, "%s %s", fn.Param(i).Name(), t)
		}
		fmt.Fprintf(w, ") {\n")
		dumpRegion(w, fn.Body(), 1)
		fmt.Fprintf(w, "}\n")
	}
}

func dumpRegion(w io.Writer, region *ir.Region, depth int) {
	indent := strings.Repeat("  ", depth)
	if region.NumParams() > 0 {
		names := make([]string, region.NumParams())
		for i := 0; i < region.NumParams(); i++ {
			p := region.Param(i)
			names[i] = fmt.Sprintf("%s: %s", p.Name(), p.Type())
		}
		fmt.Fprintf(w, "%s^(%s)\n", indent, strings.Join(names, ", "))
	}
	for _, inst := range region.Insts() {
		dumpInst(w, inst, depth)
	}
}

func dumpInst(w io.Writer, inst *ir.Inst, depth int) {
	indent := strings.Repeat("  ", depth)
	results := make([]string, inst.NumResults())
	for i := range results {
		r := inst.Result(i)
		results[i] = fmt.Sprintf("%s: %s", r.Name(), r.Type())
	}
	operands := make([]string, inst.NumOperands())
	for i := range operands {
		operands[i] = inst.Operand(i).Name()
	}

	lhs := ""
	if len(results) > 0 {
		lhs = strings.Join(results, ", ") + " = "
	}
	fmt.Fprintf(w, "%s%s%s(%s)", indent, lhs, inst.Op, strings.Join(operands, ", "))
	if extra := nonDefaultAttrs(inst); extra != "" {
		fmt.Fprintf(w, " %s", extra)
	}
	fmt.Fprintln(w)

	for _, region := range inst.Regions() {
		fmt.Fprintf(w, "%s  kind=%s\n", indent, region.Kind())
		dumpRegion(w, region, depth+2)
	}
}

// nonDefaultAttrs formats the subset of Attrs this opcode actually
// uses (the same grouping as the view accessors in inst.go), including
// zero values; an alloca prints its offset only once assigned, and
// opcodes without attributes (e.g. load) print nothing.
func nonDefaultAttrs(inst *ir.Inst) string {
	switch inst.Op {
	case ir.OpConstant:
		return fmt.Sprintf("imm=%# v", pretty.Formatter(inst.Attrs.Immediate))
	case ir.OpSubview:
		return fmt.Sprintf("offsets=%v sizes=%v", inst.Attrs.StaticOffsets, inst.Attrs.StaticSizes)
	case ir.OpExpand:
		return fmt.Sprintf("mode=%d shape=%v", inst.Attrs.ExpandMode, inst.Attrs.ExpandShape)
	case ir.OpFuse:
		return fmt.Sprintf("from=%d to=%d", inst.Attrs.FuseFrom, inst.Attrs.FuseTo)
	case ir.OpGemm:
		return fmt.Sprintf("transA=%v transB=%v", inst.Attrs.TransA, inst.Attrs.TransB)
	case ir.OpGemv, ir.OpAxpby, ir.OpSum:
		return fmt.Sprintf("transA=%v", inst.Attrs.TransA)
	case ir.OpCumsum, ir.OpCoopMatrixReduce:
		return fmt.Sprintf("mode=%d", inst.Attrs.Mode)
	case ir.OpBarrier:
		return fmt.Sprintf("fence=%#x", inst.Attrs.Fence)
	case ir.OpAlloca:
		if inst.Attrs.StackOffset >= 0 {
			return fmt.Sprintf("offset=%d", inst.Attrs.StackOffset)
		}
	}
	return ""
}
