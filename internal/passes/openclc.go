package passes

import (
	"fmt"
	"sort"
	"strings"

	"tinytc/internal/ir"
)

// extensionSet accumulates the OpenCL extension pragmas a kernel needs,
// deduplicated and emitted in sorted order so recompiling the same
// program twice produces byte-identical source.
type extensionSet map[string]struct{}

func (e extensionSet) add(name string) { e[name] = struct{}{} }

func (e extensionSet) sorted() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Module is the textual OpenCL-C translation unit produced for a
// program: one kernel per function, plus the union of every function's
// required extensions.
type Module struct {
	Source     string
	Extensions []string
}

// LowerProgram lowers every function in prog to a single OpenCL-C
// translation unit.
func LowerProgram(prog *ir.Program) Module {
	exts := make(extensionSet)
	var body strings.Builder
	for _, fn := range prog.Functions() {
		l := &lowerer{exts: exts, names: make(map[*ir.Value]string)}
		l.lowerFunction(fn)
		body.WriteString(l.out.String())
		body.WriteString("\n")
	}

	var out strings.Builder
	for _, e := range exts.sorted() {
		fmt.Fprintf(&out, "#pragma OPENCL EXTENSION %s : enable\n", e)
	}
	out.WriteString(body.String())
	return Module{Source: out.String(), Extensions: exts.sorted()}
}

type lowerer struct {
	exts    extensionSet
	out     strings.Builder
	names   map[*ir.Value]string
	nextTmp int
	indent  int
}

func (l *lowerer) writeIndent() {
	l.out.WriteString(strings.Repeat("    ", l.indent))
}

func (l *lowerer) line(format string, args ...any) {
	l.writeIndent()
	fmt.Fprintf(&l.out, format, args...)
	l.out.WriteString("\n")
}

func (l *lowerer) nameOf(v *ir.Value) string {
	if n, ok := l.names[v]; ok {
		return n
	}
	l.nextTmp++
	n := fmt.Sprintf("v%d", l.nextTmp)
	l.names[v] = n
	return n
}

// scalarType maps an ir.Type to its OpenCL-C spelling, recording any
// extension the type requires.
func (l *lowerer) scalarType(t ir.Type) string {
	switch {
	case t.IsBool():
		return "bool"
	case t.IsIndex():
		return "long"
	case t.IsInteger():
		switch t.IntWidth() {
		case 8:
			return "char"
		case 16:
			return "short"
		case 32:
			return "int"
		default:
			return "long"
		}
	case t.IsFloat():
		switch t.FloatKind() {
		case ir.Float16:
			l.exts.add("cl_khr_fp16")
			return "half"
		case ir.BFloat16:
			return "ushort" // bf16 has no native OpenCL-C type; stored raw
		case ir.Float64:
			l.exts.add("cl_khr_fp64")
			return "double"
		default:
			return "float"
		}
	case t.IsComplex():
		if t.FloatKind() == ir.Float64 {
			l.exts.add("cl_khr_fp64")
			return "double2"
		}
		return "float2"
	default:
		return "void"
	}
}

func (l *lowerer) pointerType(t ir.Type) string {
	as := "__global"
	if t.AddressSpace() == ir.AddressSpaceLocal {
		as = "__local"
	}
	return fmt.Sprintf("%s %s*", as, l.scalarType(t.Element()))
}

func (l *lowerer) lowerFunction(fn *ir.Function) {
	wg := fn.ChosenWorkGroupSize
	if wg.IsAuto() {
		wg = fn.WorkGroupSize
	}
	if !wg.IsAuto() {
		l.line("__attribute__((reqd_work_group_size(%d, %d, 1)))", wg.X, wg.Y)
	}
	params := make([]string, len(fn.ParamTypes))
	for i, t := range fn.ParamTypes {
		name := l.nameOf(fn.Param(i))
		switch {
		case t.IsMemref():
			params[i] = fmt.Sprintf("%s %s", l.pointerType(t), name)
		case t.IsGroup():
			// a group is a batch of memrefs: one device pointer per element.
			params[i] = fmt.Sprintf("%s const* %s", l.pointerType(t.Element()), name)
		default:
			params[i] = fmt.Sprintf("%s %s", l.scalarType(t), name)
		}
	}
	l.line("__kernel void %s(%s) {", fn.Name, strings.Join(params, ", "))
	l.indent++
	l.lowerRegion(fn.Body())
	l.indent--
	l.line("}")
}

func (l *lowerer) lowerRegion(region *ir.Region) {
	for _, inst := range region.Insts() {
		l.lowerInst(inst)
	}
}

func (l *lowerer) lowerInst(inst *ir.Inst) {
	switch inst.Op {
	case ir.OpConstant:
		l.lowerConstant(inst)
	case ir.OpAlloca:
		l.lowerAlloca(inst)
	case ir.OpLoad:
		l.lowerLoad(inst)
	case ir.OpStore:
		l.lowerStore(inst)
	case ir.OpSubview:
		l.lowerSubview(inst)
	case ir.OpExpand, ir.OpFuse:
		// Pure reinterpretations of an existing pointer at offset zero:
		// alias the name, no code emitted. The reshaped strides are read
		// off the result type by later load/store lowering.
		l.names[inst.Result(0)] = l.nameOf(inst.Operand(0))
	case ir.OpCast:
		l.lowerCast(inst)
	case ir.OpGemm:
		l.lowerGemm(inst)
	case ir.OpGemv:
		l.lowerGemv(inst)
	case ir.OpGer:
		l.lowerGer(inst)
	case ir.OpHadamard:
		l.lowerHadamard(inst)
	case ir.OpAxpby:
		l.lowerAxpby(inst)
	case ir.OpSum:
		l.lowerSum(inst)
	case ir.OpCumsum:
		l.lowerCumsum(inst)
	case ir.OpCoopMatrixLoad:
		l.lowerCoopLoad(inst)
	case ir.OpCoopMatrixStore:
		l.lowerCoopStore(inst)
	case ir.OpCoopMatrixMulAdd:
		l.lowerCoopMulAdd(inst)
	case ir.OpCoopMatrixScale:
		l.lowerCoopScale(inst)
	case ir.OpCoopMatrixApply:
		l.lowerCoopApply(inst)
	case ir.OpCoopMatrixReduce:
		l.lowerCoopReduce(inst)
	case ir.OpFor:
		l.lowerFor(inst)
	case ir.OpForeach:
		l.lowerForeachOrParallel(inst, "get_global_id")
	case ir.OpParallel:
		l.lowerForeachOrParallel(inst, "get_local_id")
	case ir.OpIf:
		l.lowerIf(inst)
	case ir.OpBarrier:
		l.lowerBarrier(inst)
	case ir.OpYield, ir.OpLifetimeStop, ir.OpUndef:
		// No runtime effect: yield's values are wired by the enclosing
		// construct's lowering, lifetime_stop only matters to the stack
		// pass, and undef never needs to materialize a value.
	}
}

func (l *lowerer) lowerConstant(inst *ir.Inst) {
	name := l.nameOf(inst.Result(0))
	typ := l.scalarType(inst.Result(0).Type())
	l.line("%s %s = %s;", typ, name, formatImmediate(inst.Attrs.Immediate, inst.Result(0).Type()))
}

func formatImmediate(imm any, t ir.Type) string {
	switch v := imm.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case complex128:
		return fmt.Sprintf("(%g, %g)", real(v), imag(v))
	default:
		return "0"
	}
}

// lowerAlloca declares a work-group-shared local array. Allocas are
// always address-space local (verify.go enforces this); the stack pass's
// StackOffset is not consulted and every alloca gets its own array,
// since OpenCL-C gives no portable way to alias two __local arrays over
// the same bytes.
func (l *lowerer) lowerAlloca(inst *ir.Inst) {
	name := l.nameOf(inst.Result(0))
	elem := l.scalarType(inst.Result(0).Type().Element())
	size := int64(1)
	for _, s := range inst.Result(0).Type().Shape() {
		if s > 0 {
			size *= s
		}
	}
	l.line("__local %s %s[%d];", elem, name, size)
}

func (l *lowerer) indexExpr(obj *ir.Value, indices []*ir.Value) string {
	t := obj.Type()
	stride := t.Stride()
	terms := make([]string, 0, len(indices))
	for i, idx := range indices {
		s := int64(1)
		if i < len(stride) {
			s = stride[i]
		}
		terms = append(terms, fmt.Sprintf("%s*%d", l.nameOf(idx), s))
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.Join(terms, " + ")
}

func (l *lowerer) lowerLoad(inst *ir.Inst) {
	obj := inst.Operand(0)
	indices := inst.Operands()[1:]
	name := l.nameOf(inst.Result(0))
	if obj.Type().IsGroup() {
		// load on a group picks the batch element's base pointer, shifted
		// by the group's static offset.
		expr := fmt.Sprintf("%s[%s]", l.nameOf(obj), l.nameOf(indices[0]))
		if off := obj.Type().GroupOffset(); off > 0 {
			expr = fmt.Sprintf("%s + %d", expr, off)
		}
		l.line("%s %s = %s;", l.pointerType(obj.Type().Element()), name, expr)
		return
	}
	typ := l.scalarType(inst.Result(0).Type())
	l.line("%s %s = %s[%s];", typ, name, l.nameOf(obj), l.indexExpr(obj, indices))
}

func (l *lowerer) lowerStore(inst *ir.Inst) {
	val := inst.Operand(0)
	obj := inst.Operand(1)
	indices := inst.Operands()[2:]
	l.line("%s[%s] = %s;", l.nameOf(obj), l.indexExpr(obj, indices), l.nameOf(val))
}

// lowerSubview materializes the view as a shifted pointer: base plus the
// per-mode offsets scaled by the operand's strides, with Dynamic offsets
// consuming the trailing dynamic operands in declaration order.
func (l *lowerer) lowerSubview(inst *ir.Inst) {
	operand := inst.Operand(0)
	stride := operand.Type().Stride()
	b := inst.AsBuiltin()
	terms := []string{l.nameOf(operand)}
	dynIdx := 1
	for m, off := range b.StaticOffsets() {
		switch {
		case off == ir.Dynamic:
			terms = append(terms, fmt.Sprintf("%s*%d", l.nameOf(inst.Operand(dynIdx)), stride[m]))
			dynIdx++
		case off != 0:
			terms = append(terms, fmt.Sprintf("%d", off*stride[m]))
		}
	}
	l.line("%s %s = %s;", l.pointerType(inst.Result(0).Type()), l.nameOf(inst.Result(0)), strings.Join(terms, " + "))
}

func (l *lowerer) lowerCast(inst *ir.Inst) {
	name := l.nameOf(inst.Result(0))
	typ := l.scalarType(inst.Result(0).Type())
	l.line("%s %s = (%s)%s;", typ, name, typ, l.nameOf(inst.Operand(0)))
}

// blasLoopNest emits `for (m...) for (n...) C[m][n] = alpha*expr + beta*C[m][n];`
// against the recorded strides of a and c, used by gemm/gemv/ger.
func (l *lowerer) blasLoopNest(alpha, a, b, beta, c *ir.Value, transA, transB bool, expr func(i, j string) string) {
	m := l.tmp()
	n := l.tmp()
	mExtent := c.Type().Shape()[0]
	nExtent := int64(1)
	if c.Type().Dim() > 1 {
		nExtent = c.Type().Shape()[1]
	}
	l.line("for (long %s = 0; %s < %d; %s++) {", m, m, mExtent, m)
	l.indent++
	if c.Type().Dim() > 1 {
		l.line("for (long %s = 0; %s < %d; %s++) {", n, n, nExtent, n)
		l.indent++
	}
	cStride := c.Type().Stride()
	cIdx := fmt.Sprintf("%d*%s", cStride[0], m)
	if c.Type().Dim() > 1 {
		cIdx = fmt.Sprintf("%s + %d*%s", cIdx, cStride[1], n)
	}
	rhs := expr(m, n)
	l.line("%s[%s] = %s*(%s) + %s*%s[%s];", l.nameOf(c), cIdx, l.nameOf(alpha), rhs, l.nameOf(beta), l.nameOf(c), cIdx)
	if c.Type().Dim() > 1 {
		l.indent--
		l.line("}")
	}
	l.indent--
	l.line("}")
}

func (l *lowerer) tmp() string {
	l.nextTmp++
	return fmt.Sprintf("i%d", l.nextTmp)
}

func (l *lowerer) lowerGemm(inst *ir.Inst) {
	v := inst.AsBLASA3()
	aStride := v.A().Type().Stride()
	bStride := v.B().Type().Stride()
	ak, bk := 1, 0
	if v.TransA() {
		ak = 0
	}
	if v.TransB() {
		bk = 1
	}
	kExtent := v.A().Type().Shape()[ak]
	l.blasLoopNest(v.Alpha(), v.A(), v.B(), v.Beta(), v.C(), v.TransA(), v.TransB(), func(m, n string) string {
		k := l.tmp()
		acc := l.tmp()
		aIdx := fmt.Sprintf("%s*%d + %s*%d", m, aStride[1-ak], k, aStride[ak])
		bIdx := fmt.Sprintf("%s*%d + %s*%d", k, bStride[bk], n, bStride[1-bk])
		return fmt.Sprintf("({ %s %s = 0; for (long %s = 0; %s < %d; %s++) { %s += %s[%s] * %s[%s]; } %s; })",
			l.scalarType(v.C().Type().Element()), acc, k, k, kExtent, k, acc, l.nameOf(v.A()), aIdx, l.nameOf(v.B()), bIdx, acc)
	})
}

func (l *lowerer) lowerGemv(inst *ir.Inst) {
	v := inst.AsBLASA3()
	aStride := v.A().Type().Stride()
	ak := 1
	if v.TransA() {
		ak = 0
	}
	kExtent := v.A().Type().Shape()[ak]
	bStride := v.B().Type().Stride()
	l.blasLoopNest(v.Alpha(), v.A(), v.B(), v.Beta(), v.C(), v.TransA(), false, func(m, _ string) string {
		k := l.tmp()
		acc := l.tmp()
		aIdx := fmt.Sprintf("%s*%d + %s*%d", m, aStride[1-ak], k, aStride[ak])
		return fmt.Sprintf("({ %s %s = 0; for (long %s = 0; %s < %d; %s++) { %s += %s[%s] * %s[%s*%d]; } %s; })",
			l.scalarType(v.C().Type().Element()), acc, k, k, kExtent, k, acc, l.nameOf(v.A()), aIdx, l.nameOf(v.B()), k, bStride[0], acc)
	})
}

func (l *lowerer) lowerGer(inst *ir.Inst) {
	v := inst.AsBLASA3()
	aStride := v.A().Type().Stride()
	bStride := v.B().Type().Stride()
	l.blasLoopNest(v.Alpha(), v.A(), v.B(), v.Beta(), v.C(), false, false, func(m, n string) string {
		return fmt.Sprintf("%s[%s*%d] * %s[%s*%d]", l.nameOf(v.A()), m, aStride[0], l.nameOf(v.B()), n, bStride[0])
	})
}

func (l *lowerer) blasA2LoopNest(alpha, a, beta, b *ir.Value, expr func(idx string) string) {
	i := l.tmp()
	extent := b.Type().Shape()[0]
	bStride := b.Type().Stride()
	l.line("for (long %s = 0; %s < %d; %s++) {", i, i, extent, i)
	l.indent++
	l.line("%s[%s*%d] = %s*(%s) + %s*%s[%s*%d];", l.nameOf(b), i, bStride[0], l.nameOf(alpha), expr(i), l.nameOf(beta), l.nameOf(b), i, bStride[0])
	l.indent--
	l.line("}")
}

func (l *lowerer) lowerHadamard(inst *ir.Inst) {
	v := inst.AsBLASA2()
	aStride := v.A().Type().Stride()
	l.blasA2LoopNest(v.Alpha(), v.A(), v.Beta(), v.B(), func(i string) string {
		return fmt.Sprintf("%s[%s*%d] * %s[%s]", l.nameOf(v.A()), i, aStride[0], l.nameOf(v.B()), i)
	})
}

func (l *lowerer) lowerAxpby(inst *ir.Inst) {
	v := inst.AsBLASA2()
	aStride := v.A().Type().Stride()
	l.blasA2LoopNest(v.Alpha(), v.A(), v.Beta(), v.B(), func(i string) string {
		return fmt.Sprintf("%s[%s*%d]", l.nameOf(v.A()), i, aStride[0])
	})
}

func (l *lowerer) lowerSum(inst *ir.Inst) {
	v := inst.AsBLASA2()
	name := l.nameOf(v.B())
	extent := v.A().Type().Shape()[0]
	aStride := v.A().Type().Stride()
	acc := l.tmp()
	i := l.tmp()
	l.line("%s %s = 0;", l.scalarType(v.B().Type().Element()), acc)
	l.line("for (long %s = 0; %s < %d; %s++) { %s += %s[%s*%d]; }", i, i, extent, i, acc, l.nameOf(v.A()), i, aStride[0])
	l.line("%s[0] = %s*%s + %s*%s[0];", name, l.nameOf(v.Alpha()), acc, l.nameOf(v.Beta()), name)
}

func (l *lowerer) lowerCumsum(inst *ir.Inst) {
	v := inst.AsBLASA2()
	extent := v.A().Type().Shape()[0]
	aStride := v.A().Type().Stride()
	bStride := v.B().Type().Stride()
	acc := l.tmp()
	i := l.tmp()
	l.line("%s %s = 0;", l.scalarType(v.B().Type().Element()), acc)
	l.line("for (long %s = 0; %s < %d; %s++) {", i, i, extent, i)
	l.indent++
	l.line("%s += %s[%s*%d];", acc, l.nameOf(v.A()), i, aStride[0])
	l.line("%s[%s*%d] = %s*%s + %s*%s[%s*%d];", l.nameOf(v.B()), i, bStride[0], l.nameOf(v.Alpha()), acc, l.nameOf(v.Beta()), l.nameOf(v.B()), i, bStride[0])
	l.indent--
	l.line("}")
}

// Coopmatrix fragments lower to a flat per-lane register array indexed
// by [row/subgroup_size][col], a register-blocking layout rather than a
// struct type.

func (l *lowerer) coopArrayDecl(v *ir.Value) string {
	t := v.Type()
	rowsPerLane := (t.Rows() + 15) / 16 // assume a 16-lane subgroup absent a sharper hint
	return fmt.Sprintf("%s %s[%d][%d]", l.scalarType(t.Component()), l.nameOf(v), rowsPerLane, t.Cols())
}

func (l *lowerer) lowerCoopLoad(inst *ir.Inst) {
	obj := inst.Operand(0)
	resultTy := inst.Result(0).Type()
	l.exts.add("cl_khr_subgroups")
	l.line("%s;", l.coopArrayDecl(inst.Result(0)))
	rowsPerLane := (resultTy.Rows() + 15) / 16
	i := l.tmp()
	j := l.tmp()
	stride := obj.Type().Stride()
	l.line("for (long %s = 0; %s < %d; %s++) {", i, i, rowsPerLane, i)
	l.indent++
	l.line("for (long %s = 0; %s < %d; %s++) {", j, j, resultTy.Cols(), j)
	l.indent++
	l.line("%s[%s][%s] = %s[(%s*16+get_sub_group_local_id())*%d + %s*%d];",
		l.nameOf(inst.Result(0)), i, j, l.nameOf(obj), i, stride[0], j, stride[1])
	l.indent--
	l.line("}")
	l.indent--
	l.line("}")
}

func (l *lowerer) lowerCoopStore(inst *ir.Inst) {
	val := inst.Operand(0)
	obj := inst.Operand(1)
	t := val.Type()
	l.exts.add("cl_khr_subgroups")
	rowsPerLane := (t.Rows() + 15) / 16
	i := l.tmp()
	j := l.tmp()
	stride := obj.Type().Stride()
	l.line("for (long %s = 0; %s < %d; %s++) {", i, i, rowsPerLane, i)
	l.indent++
	l.line("for (long %s = 0; %s < %d; %s++) {", j, j, t.Cols(), j)
	l.indent++
	l.line("%s[(%s*16+get_sub_group_local_id())*%d + %s*%d] = %s[%s][%s];",
		l.nameOf(obj), i, stride[0], j, stride[1], l.nameOf(val), i, j)
	l.indent--
	l.line("}")
	l.indent--
	l.line("}")
}

// lowerCoopMulAdd emits the per-lane multiply-accumulate over the K
// dimension. A's and C's rows are distributed across the subgroup's
// lanes, so A[i][k] and C[i][j] are this lane's own registers; B's rows
// are distributed the same way, so the lane holding row k hands its
// B[k][j] to everyone through sub_group_broadcast (k is loop-uniform).
func (l *lowerer) lowerCoopMulAdd(inst *ir.Inst) {
	a := inst.Operand(0)
	b := inst.Operand(1)
	c := inst.Operand(2)
	result := inst.Result(0)
	t := result.Type()
	rowsPerLane := (t.Rows() + 15) / 16
	kExtent := a.Type().Cols()
	l.exts.add("cl_khr_subgroups")
	l.line("%s;", l.coopArrayDecl(result))
	i := l.tmp()
	j := l.tmp()
	k := l.tmp()
	acc := l.tmp()
	l.line("for (long %s = 0; %s < %d; %s++) {", i, i, rowsPerLane, i)
	l.indent++
	l.line("for (long %s = 0; %s < %d; %s++) {", j, j, t.Cols(), j)
	l.indent++
	l.line("%s %s = %s[%s][%s];", l.scalarType(t.Component()), acc, l.nameOf(c), i, j)
	l.line("for (long %s = 0; %s < %d; %s++) {", k, k, kExtent, k)
	l.indent++
	l.line("%s += %s[%s][%s] * sub_group_broadcast(%s[%s/16][%s], %s %% 16);",
		acc, l.nameOf(a), i, k, l.nameOf(b), k, j, k)
	l.indent--
	l.line("}")
	l.line("%s[%s][%s] = %s;", l.nameOf(result), i, j, acc)
	l.indent--
	l.line("}")
	l.indent--
	l.line("}")
}

func (l *lowerer) lowerCoopScale(inst *ir.Inst) {
	scalar := inst.Operand(0)
	matrix := inst.Operand(1)
	t := matrix.Type()
	rowsPerLane := (t.Rows() + 15) / 16
	l.line("%s;", l.coopArrayDecl(inst.Result(0)))
	i := l.tmp()
	j := l.tmp()
	l.line("for (long %s = 0; %s < %d; %s++) for (long %s = 0; %s < %d; %s++) %s[%s][%s] = %s * %s[%s][%s];",
		i, i, rowsPerLane, i, j, j, t.Cols(), j,
		l.nameOf(inst.Result(0)), i, j, l.nameOf(scalar), l.nameOf(matrix), i, j)
}

func (l *lowerer) lowerCoopApply(inst *ir.Inst) {
	operand := inst.Operand(0)
	t := operand.Type()
	rowsPerLane := (t.Rows() + 15) / 16
	l.line("%s;", l.coopArrayDecl(inst.Result(0)))
	i := l.tmp()
	j := l.tmp()
	l.line("for (long %s = 0; %s < %d; %s++) {", i, i, rowsPerLane, i)
	l.indent++
	l.line("for (long %s = 0; %s < %d; %s++) {", j, j, t.Cols(), j)
	l.indent++
	region := inst.Region(0)
	elem := region.Param(0)
	l.names[elem] = fmt.Sprintf("%s[%s][%s]", l.nameOf(operand), i, j)
	for _, bodyInst := range region.Insts() {
		if bodyInst.Op == ir.OpYield {
			l.line("%s[%s][%s] = %s;", l.nameOf(inst.Result(0)), i, j, l.nameOf(bodyInst.Operand(0)))
			continue
		}
		l.lowerInst(bodyInst)
	}
	l.indent--
	l.line("}")
	l.indent--
	l.line("}")
}

// lowerCoopReduce implements the row/column convention: mode 1 ("row")
// reduces along columns, producing
// one value per row; mode 0 ("column") reduces along rows, producing one
// value per column.
func (l *lowerer) lowerCoopReduce(inst *ir.Inst) {
	operand := inst.Operand(0)
	t := operand.Type()
	rowsPerLane := (t.Rows() + 15) / 16
	result := inst.Result(0)
	comp := l.scalarType(t.Component())
	l.exts.add("cl_khr_subgroups")
	switch inst.Attrs.Mode {
	case 1: // row: reduce across columns
		l.line("%s %s[%d];", comp, l.nameOf(result), rowsPerLane)
		i := l.tmp()
		j := l.tmp()
		l.line("for (long %s = 0; %s < %d; %s++) {", i, i, rowsPerLane, i)
		l.indent++
		l.line("%s acc%s = 0;", comp, i)
		l.line("for (long %s = 0; %s < %d; %s++) { acc%s += %s[%s][%s]; }", j, j, t.Cols(), j, i, l.nameOf(operand), i, j)
		l.line("%s[%s] = acc%s;", l.nameOf(result), i, i)
		l.indent--
		l.line("}")
	default: // column: reduce across rows (and across lanes within a row-group)
		l.line("%s %s[%d];", comp, l.nameOf(result), t.Cols())
		j := l.tmp()
		i := l.tmp()
		l.line("for (long %s = 0; %s < %d; %s++) {", j, j, t.Cols(), j)
		l.indent++
		l.line("%s acc%s = 0;", comp, j)
		l.line("for (long %s = 0; %s < %d; %s++) { acc%s += %s[%s][%s]; }", i, i, rowsPerLane, i, j, l.nameOf(operand), i, j)
		l.line("%s[%s] = sub_group_reduce_add(acc%s);", l.nameOf(result), j, j)
		l.indent--
		l.line("}")
	}
}

func (l *lowerer) lowerFor(inst *ir.Inst) {
	v := inst.AsLoop()
	body := v.Body()
	from := l.nameOf(v.From())
	to := l.nameOf(v.To())
	iv := body.Param(0)
	ivName := l.nameOf(iv)
	step := "1"
	if s := v.Step(); s != nil {
		step = l.nameOf(s)
	}

	results := make([]string, inst.NumResults())
	iterParams := body.Params()[1:]
	initArgs := v.InitArgs()
	for i, r := range inst.Results() {
		name := l.nameOf(r)
		results[i] = name
		l.line("%s %s = %s;", l.scalarType(r.Type()), name, l.nameOf(initArgs[i]))
		l.names[iterParams[i]] = name
	}

	l.line("for (long %s = %s; %s < %s; %s += %s) {", ivName, from, ivName, to, ivName, step)
	l.indent++
	for _, bodyInst := range body.Insts() {
		if bodyInst.Op == ir.OpYield {
			for i, yv := range bodyInst.Operands() {
				l.line("%s = %s;", results[i], l.nameOf(yv))
			}
			continue
		}
		l.lowerInst(bodyInst)
	}
	l.indent--
	l.line("}")
}

func (l *lowerer) lowerForeachOrParallel(inst *ir.Inst, idFn string) {
	v := inst.AsLoop()
	body := v.Body()
	iv := body.Param(0)
	ivName := l.nameOf(iv)
	l.line("{")
	l.indent++
	l.line("long %s = %s(0);", ivName, idFn)
	l.line("if (%s >= %s && %s < %s) {", ivName, l.nameOf(v.From()), ivName, l.nameOf(v.To()))
	l.indent++
	l.lowerRegion(body)
	l.indent--
	l.line("}")
	l.indent--
	l.line("}")
}

func (l *lowerer) lowerIf(inst *ir.Inst) {
	results := make([]string, inst.NumResults())
	for i, r := range inst.Results() {
		name := l.nameOf(r)
		results[i] = name
		l.line("%s %s;", l.scalarType(r.Type()), name)
	}
	l.line("if (%s) {", l.nameOf(inst.Operand(0)))
	l.indent++
	l.lowerIfArm(inst.Region(0), results)
	l.indent--
	if len(inst.Regions()) > 1 && !inst.Region(1).Empty() {
		l.line("} else {")
		l.indent++
		l.lowerIfArm(inst.Region(1), results)
		l.indent--
	}
	l.line("}")
}

func (l *lowerer) lowerIfArm(region *ir.Region, results []string) {
	for _, inst := range region.Insts() {
		if inst.Op == ir.OpYield {
			for i, yv := range inst.Operands() {
				l.line("%s = %s;", results[i], l.nameOf(yv))
			}
			continue
		}
		l.lowerInst(inst)
	}
}

func (l *lowerer) lowerBarrier(inst *ir.Inst) {
	var flags []string
	if inst.Attrs.Fence&ir.FenceLocal != 0 {
		flags = append(flags, "CLK_LOCAL_MEM_FENCE")
	}
	if inst.Attrs.Fence&ir.FenceGlobal != 0 {
		flags = append(flags, "CLK_GLOBAL_MEM_FENCE")
	}
	if len(flags) == 0 {
		flags = []string{"CLK_LOCAL_MEM_FENCE"}
	}
	l.line("work_group_barrier(%s);", strings.Join(flags, " | "))
}
