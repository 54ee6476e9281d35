package ir

import (
	"fmt"

	tcerrors "tinytc/internal/errors"
)

// Verify runs setup_and_check for inst: it validates every shape/type/
// address-space/use-class rule for inst's opcode and, for the opcodes
// that need it, assigns child-region parameter types and
// region kinds. It is deterministic and side-effect-free except for
// those two mutations and alloca's reset of its StackOffset to -1
// (unassigned). The builder calls Verify immediately after
// constructing every instruction; callers
// may re-run it after mutating operands.
func Verify(inst *Inst) error {
	switch inst.Op {
	case OpConstant:
		return verifyConstant(inst)
	case OpAlloca:
		return verifyAlloca(inst)
	case OpLoad:
		return verifyLoad(inst)
	case OpStore:
		return verifyStore(inst)
	case OpSubview:
		return verifySubview(inst)
	case OpExpand:
		return verifyExpand(inst)
	case OpFuse:
		return verifyFuse(inst)
	case OpCast:
		return verifyCast(inst)
	case OpGemm:
		return verifyGemm(inst)
	case OpGemv:
		return verifyGemv(inst)
	case OpGer:
		return verifyGer(inst)
	case OpHadamard:
		return verifyHadamard(inst)
	case OpAxpby:
		return verifyAxpby(inst)
	case OpSum:
		return verifySum(inst)
	case OpCumsum:
		return verifyCumsum(inst)
	case OpCoopMatrixLoad:
		return verifyCoopMatrixLoad(inst)
	case OpCoopMatrixStore:
		return verifyCoopMatrixStore(inst)
	case OpCoopMatrixMulAdd:
		return verifyCoopMatrixMulAdd(inst)
	case OpCoopMatrixScale:
		return verifyCoopMatrixScale(inst)
	case OpCoopMatrixApply:
		return verifyCoopMatrixApply(inst)
	case OpCoopMatrixReduce:
		return verifyCoopMatrixReduce(inst)
	case OpFor:
		return verifyFor(inst)
	case OpForeach, OpParallel:
		return verifyForeachParallel(inst)
	case OpIf:
		return verifyIf(inst)
	case OpYield:
		return nil
	case OpBarrier:
		return verifyBarrier(inst)
	case OpLifetimeStop, OpUndef:
		return nil
	default:
		return raise(inst, tcerrors.IRExpectedNumber, fmt.Sprintf("unhandled opcode %s in verifier", inst.Op))
	}
}

func raise(inst *Inst, kind tcerrors.Kind, msg string, values ...tcerrors.ValueInfo) error {
	return tcerrors.New(kind, inst.Loc, msg, values...)
}

func vi(label string, v *Value) tcerrors.ValueInfo {
	return tcerrors.ValueInfo{Label: label, Type: v.Type().String()}
}

func requireMemref(inst *Inst, label string, v *Value) error {
	if !v.Type().IsMemref() {
		return raise(inst, tcerrors.IRExpectedMemref, label+" must be a memref", vi(label, v))
	}
	return nil
}

func requireMemrefOrder(inst *Inst, label string, v *Value, orders ...int) error {
	if err := requireMemref(inst, label, v); err != nil {
		return err
	}
	dim := v.Type().Dim()
	for _, o := range orders {
		if dim == o {
			return nil
		}
	}
	kind := tcerrors.IRExpectedMemrefOrder012
	switch len(orders) {
	case 1:
		switch orders[0] {
		case 0:
			kind = tcerrors.IRExpectedMemrefOrder0
		case 1:
			kind = tcerrors.IRExpectedMemrefOrder1
		case 2:
			kind = tcerrors.IRExpectedMemrefOrder2
		}
	case 2:
		if orders[0] == 0 && orders[1] == 1 {
			kind = tcerrors.IRExpectedMemrefOrder0Or1
		} else if orders[0] == 1 && orders[1] == 2 {
			kind = tcerrors.IRExpectedMemrefOrder1Or2
		}
	}
	return raise(inst, kind, fmt.Sprintf("%s must have order in %v, got %d", label, orders, dim), vi(label, v))
}

func requireNumber(inst *Inst, label string, v *Value) error {
	if !v.Type().IsNumber() {
		return raise(inst, tcerrors.IRExpectedNumber, label+" must be a number", vi(label, v))
	}
	return nil
}

func requireIndex(inst *Inst, label string, v *Value) error {
	if !v.Type().IsIndex() {
		return raise(inst, tcerrors.IRExpectedIndex, label+" must be index", vi(label, v))
	}
	return nil
}

func requireBool(inst *Inst, label string, v *Value) error {
	if !v.Type().IsBool() {
		return raise(inst, tcerrors.IRExpectedBoolean, label+" must be bool", vi(label, v))
	}
	return nil
}

func requireSameAddressSpace(inst *Inst, la string, a *Value, lb string, b *Value) error {
	if a.Type().AddressSpace() != b.Type().AddressSpace() {
		return raise(inst, tcerrors.IRAddressSpaceMismatch,
			fmt.Sprintf("%s and %s must share an address space", la, lb), vi(la, a), vi(lb, b))
	}
	return nil
}

// ---- memref/alloca/memory ops ----

func verifyConstant(inst *Inst) error {
	rt := inst.Result(0).Type()
	// a coopmatrix constant is a splat: the immediate's variant must
	// match the component type.
	target := rt
	if rt.IsCoopMatrix() {
		target = rt.Component()
	}
	switch inst.AsBuiltin().Immediate().(type) {
	case bool:
		if !target.IsBool() {
			return raise(inst, tcerrors.IRConstantMismatch, "bool immediate requires bool result type")
		}
	case int64:
		if !target.IsInteger() && !target.IsIndex() {
			return raise(inst, tcerrors.IRConstantMismatch, "integer immediate requires an integer or index result type")
		}
	case float64:
		if !target.IsFloat() {
			return raise(inst, tcerrors.IRConstantMismatch, "float immediate requires a float result type")
		}
	case complex128:
		if !target.IsComplex() {
			return raise(inst, tcerrors.IRConstantMismatch, "complex immediate requires a complex result type")
		}
	default:
		return raise(inst, tcerrors.IRConstantMismatch, "unsupported immediate for result type")
	}
	return nil
}

func verifyAlloca(inst *Inst) error {
	rt := inst.Result(0).Type()
	if !rt.IsMemref() || rt.AddressSpace() != AddressSpaceLocal {
		return raise(inst, tcerrors.IRExpectedLocalAddressSpace, "alloca result must be a memref in address space local")
	}
	inst.Attrs.StackOffset = -1
	return nil
}

func verifyLoad(inst *Inst) error {
	obj := inst.Operand(0)
	rest := inst.Operands()[1:]
	switch {
	case obj.Type().IsMemref():
		if len(rest) != obj.Type().Dim() {
			return raise(inst, tcerrors.IRInvalidNumberOfIndices,
				fmt.Sprintf("load on memref needs %d indices, got %d", obj.Type().Dim(), len(rest)))
		}
		if inst.Result(0).Type() != obj.Type().Element() {
			return raise(inst, tcerrors.IROperandTypeMustMatchReturnType, "load result type must match memref element type")
		}
	case obj.Type().IsGroup():
		if len(rest) != 1 {
			return raise(inst, tcerrors.IRInvalidNumberOfIndices, "load on group needs exactly one index")
		}
		if inst.Result(0).Type() != obj.Type().Element() {
			return raise(inst, tcerrors.IROperandTypeMustMatchReturnType, "load on group must yield the group's memref type")
		}
	default:
		return raise(inst, tcerrors.IRExpectedMemrefOrGroup, "load operand must be a memref or group")
	}
	for idx, iv := range rest {
		if err := requireIndex(inst, fmt.Sprintf("index %d", idx), iv); err != nil {
			return err
		}
	}
	return nil
}

func verifyStore(inst *Inst) error {
	val := inst.Operand(0)
	obj := inst.Operand(1)
	rest := inst.Operands()[2:]
	switch {
	case obj.Type().IsMemref():
		if len(rest) != obj.Type().Dim() {
			return raise(inst, tcerrors.IRInvalidNumberOfIndices,
				fmt.Sprintf("store on memref needs %d indices, got %d", obj.Type().Dim(), len(rest)))
		}
		if val.Type() != obj.Type().Element() {
			return raise(inst, tcerrors.IROperandTypeMustMatchReturnType, "stored value type must match memref element type")
		}
	case obj.Type().IsGroup():
		if len(rest) != 1 {
			return raise(inst, tcerrors.IRInvalidNumberOfIndices, "store on group needs exactly one index")
		}
	default:
		return raise(inst, tcerrors.IRExpectedMemrefOrGroup, "store operand must be a memref or group")
	}
	for idx, iv := range rest {
		if err := requireIndex(inst, fmt.Sprintf("index %d", idx), iv); err != nil {
			return err
		}
	}
	return nil
}

func verifySubview(inst *Inst) error {
	operand := inst.Operand(0)
	if err := requireMemref(inst, "operand", operand); err != nil {
		return err
	}
	b := inst.AsBuiltin()
	dim := operand.Type().Dim()
	if len(b.StaticOffsets()) != dim || len(b.StaticSizes()) != dim {
		return raise(inst, tcerrors.IRInvalidSlice,
			fmt.Sprintf("subview needs %d static offsets and sizes, got %d/%d", dim, len(b.StaticOffsets()), len(b.StaticSizes())))
	}
	dynOffsets, dynSizes := 0, 0
	for _, o := range b.StaticOffsets() {
		if o == Dynamic {
			dynOffsets++
		}
	}
	for _, s := range b.StaticSizes() {
		if s == Dynamic {
			dynSizes++
		}
	}
	// operands beyond index 0 are the dynamic offset/size values, in that order
	numDynOperands := inst.NumOperands() - 1
	if numDynOperands != dynOffsets+dynSizes {
		return raise(inst, tcerrors.IRInvalidSlice, "dynamic offset/size operand count must match Dynamic entries")
	}
	stride := operand.Type().Stride()
	var newShape, newStride []int64
	for m := 0; m < dim; m++ {
		size := b.StaticSizes()[m]
		if size == 0 {
			continue // dropped mode
		}
		newShape = append(newShape, size)
		newStride = append(newStride, stride[m])
	}
	rt := inst.Result(0).Type()
	want := operand.Type().ctx.Memref(operand.Type().Element(), newShape, newStride, operand.Type().AddressSpace())
	if rt != want {
		return raise(inst, tcerrors.IRSubviewMismatch, "subview result type does not match computed shape/stride")
	}
	return nil
}

func verifyExpand(inst *Inst) error {
	operand := inst.Operand(0)
	if err := requireMemref(inst, "operand", operand); err != nil {
		return err
	}
	b := inst.AsBuiltin()
	if len(b.ExpandShape()) < 2 {
		return raise(inst, tcerrors.IRExpandShapeOrderTooSmall, "expand must split into at least 2 modes")
	}
	shape := operand.Type().Shape()
	if b.ExpandMode() < 0 || b.ExpandMode() >= len(shape) {
		return raise(inst, tcerrors.IROutOfBounds, "expand mode out of range")
	}
	orig := shape[b.ExpandMode()]
	if orig != Dynamic {
		prod := int64(1)
		hasDyn := false
		for _, s := range b.ExpandShape() {
			if s == Dynamic {
				hasDyn = true
				continue
			}
			prod *= s
		}
		if !hasDyn && prod != orig {
			return raise(inst, tcerrors.IRExpandShapeMismatch, "product of new static shapes must equal original mode's extent")
		}
	}
	return nil
}

func verifyFuse(inst *Inst) error {
	operand := inst.Operand(0)
	if err := requireMemref(inst, "operand", operand); err != nil {
		return err
	}
	b := inst.AsBuiltin()
	dim := operand.Type().Dim()
	if b.FuseFrom() < 0 || b.FuseTo() >= dim || b.FuseFrom() > b.FuseTo() {
		return raise(inst, tcerrors.IRFromToMismatch, "fuse [from,to] range is invalid for operand's order")
	}
	return nil
}

func verifyCast(inst *Inst) error {
	src := inst.Operand(0).Type()
	dst := inst.Result(0).Type()
	if src.IsCoopMatrix() && dst.IsCoopMatrix() {
		if src.Rows() != dst.Rows() || src.Cols() != dst.Cols() {
			return raise(inst, tcerrors.IRInvalidShape, "coopmatrix cast must preserve rows/cols")
		}
		if src.Use() != dst.Use() && !(src.Use() == MatrixUseAcc && (dst.Use() == MatrixUseA || dst.Use() == MatrixUseB)) {
			return raise(inst, tcerrors.IRInvalidMatrixUse, "coopmatrix cast may only convert use acc -> a|b")
		}
		return nil
	}
	if !IsCastAllowed(src, dst) {
		return raise(inst, tcerrors.IRForbiddenCast, fmt.Sprintf("cast from %s to %s is forbidden", src, dst))
	}
	return nil
}

// ---- BLAS family ----

func verifyGemm(inst *Inst) error {
	v := inst.AsBLASA3()
	A, B, C := v.A(), v.B(), v.C()
	if err := requireMemrefOrder(inst, "A", A, 2); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "B", B, 2); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "C", C, 2); err != nil {
		return err
	}
	if err := requireSameAddressSpace(inst, "A", A, "C", C); err != nil {
		return err
	}
	ab, ok := Promote(A.Type().Element(), B.Type().Element())
	if !ok {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A and B element types have no defined promotion")
	}
	if !Promotable(ab, C.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A*B is not promotable into C's element type")
	}
	if !Promotable(v.Alpha().Type(), ab) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "alpha is not promotable into A*B")
	}
	if !Promotable(v.Beta().Type(), C.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "beta is not promotable into C")
	}
	ak := 1
	if v.TransA() {
		ak = 0
	}
	bk := 0
	if v.TransB() {
		bk = 1
	}
	as, bs, cs := A.Type().Shape(), B.Type().Shape(), C.Type().Shape()
	m, n := cs[0], cs[1]
	if !dimsCompatible(as[1-ak], m) {
		return raise(inst, tcerrors.IRIncompatibleShapes, "A's M dimension does not match C")
	}
	if !dimsCompatible(bs[bk], as[ak]) {
		return raise(inst, tcerrors.IRIncompatibleShapes, "A and B's K dimension do not match")
	}
	if !dimsCompatible(bs[1-bk], n) {
		return raise(inst, tcerrors.IRIncompatibleShapes, "B's N dimension does not match C")
	}
	return nil
}

func dimsCompatible(a, b int64) bool { return a == Dynamic || b == Dynamic || a == b }

func verifyGemv(inst *Inst) error {
	v := inst.AsBLASA3()
	A, B, C := v.A(), v.B(), v.C()
	if err := requireMemrefOrder(inst, "A", A, 2); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "B", B, 1); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "C", C, 1); err != nil {
		return err
	}
	ab, ok := Promote(A.Type().Element(), B.Type().Element())
	if !ok || !Promotable(ab, C.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A*B is not promotable into C")
	}
	ak := 1
	if v.TransA() {
		ak = 0
	}
	as, bs, cs := A.Type().Shape(), B.Type().Shape(), C.Type().Shape()
	if !dimsCompatible(as[1-ak], cs[0]) {
		return raise(inst, tcerrors.IRIncompatibleShapes, "A's M dimension does not match C")
	}
	if !dimsCompatible(as[ak], bs[0]) {
		return raise(inst, tcerrors.IRIncompatibleShapes, "A's K dimension does not match B")
	}
	return nil
}

func verifyGer(inst *Inst) error {
	v := inst.AsBLASA3()
	A, B, C := v.A(), v.B(), v.C()
	if err := requireMemrefOrder(inst, "A", A, 1); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "B", B, 1); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "C", C, 2); err != nil {
		return err
	}
	ab, ok := Promote(A.Type().Element(), B.Type().Element())
	if !ok || !Promotable(ab, C.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A*B is not promotable into C")
	}
	as, bs, cs := A.Type().Shape(), B.Type().Shape(), C.Type().Shape()
	if !dimsCompatible(as[0], cs[0]) || !dimsCompatible(bs[0], cs[1]) {
		return raise(inst, tcerrors.IRIncompatibleShapes, "A, B shapes do not match C's M,N")
	}
	return nil
}

func verifyHadamard(inst *Inst) error {
	v := inst.AsBLASA2()
	A, B := v.A(), v.B()
	if err := requireMemrefOrder(inst, "A", A, 0, 1, 2); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "B", B, 0, 1, 2); err != nil {
		return err
	}
	if A.Type().Dim() != B.Type().Dim() {
		return raise(inst, tcerrors.IRIncompatibleShapes, "hadamard operands must share order")
	}
	ab, ok := Promote(A.Type().Element(), B.Type().Element())
	if !ok {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A and B have no defined promotion")
	}
	if !Promotable(ab, B.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A*B is not promotable into B")
	}
	if !Promotable(v.Alpha().Type(), ab) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "alpha is not promotable into A*B")
	}
	if !Promotable(v.Beta().Type(), B.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "beta is not promotable into B")
	}
	return nil
}

func verifyAxpby(inst *Inst) error {
	v := inst.AsBLASA2()
	A, B := v.A(), v.B()
	if err := requireMemrefOrder(inst, "A", A, 0, 1, 2); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "B", B, 0, 1, 2); err != nil {
		return err
	}
	if A.Type().Dim() != B.Type().Dim() {
		return raise(inst, tcerrors.IRIncompatibleShapes, "axpby operands must share order")
	}
	if !Promotable(A.Type().Element(), B.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A is not promotable into B")
	}
	if !Promotable(v.Alpha().Type(), A.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "alpha is not promotable into A")
	}
	if !Promotable(v.Beta().Type(), B.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "beta is not promotable into B")
	}
	return nil
}

func verifySum(inst *Inst) error {
	v := inst.AsBLASA2()
	A, B := v.A(), v.B()
	if err := requireMemrefOrder(inst, "A", A, 1, 2); err != nil {
		return err
	}
	if err := requireMemrefOrder(inst, "B", B, 0, 1); err != nil {
		return err
	}
	if B.Type().Dim() != A.Type().Dim()-1 {
		return raise(inst, tcerrors.IRIncompatibleShapes, "sum must reduce to an order one smaller")
	}
	if !Promotable(A.Type().Element(), B.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A is not promotable into B")
	}
	return nil
}

func verifyCumsum(inst *Inst) error {
	v := inst.AsBLASA2()
	A, B := v.A(), v.B()
	if err := requireMemrefOrder(inst, "A", A, 1, 2); err != nil {
		return err
	}
	if A.Type().Dim() != B.Type().Dim() {
		return raise(inst, tcerrors.IRIncompatibleShapes, "cumsum operands must share order")
	}
	if v.Mode() < 0 || v.Mode() >= A.Type().Dim() {
		return raise(inst, tcerrors.IROutOfBounds, "cumsum mode out of range")
	}
	if !Promotable(A.Type().Element(), B.Type().Element()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A is not promotable into B")
	}
	return nil
}

// ---- cooperative matrix ----

func verifyCoopMatrixLoad(inst *Inst) error {
	operand := inst.Operand(0)
	if err := requireMemrefOrder(inst, "operand", operand, 2); err != nil {
		return err
	}
	rt := inst.Result(0).Type()
	if !rt.IsCoopMatrix() {
		return raise(inst, tcerrors.IRExpectedCoopMatrix, "result must be a coopmatrix")
	}
	if operand.Type().Element() != rt.Component() {
		return raise(inst, tcerrors.IRNumberMismatch, "memref element type must match coopmatrix component")
	}
	for idx, pos := range inst.Operands()[1:] {
		if err := requireIndex(inst, fmt.Sprintf("position %d", idx), pos); err != nil {
			return err
		}
	}
	return nil
}

func verifyCoopMatrixStore(inst *Inst) error {
	val := inst.Operand(0)
	operand := inst.Operand(1)
	if !val.Type().IsCoopMatrix() {
		return raise(inst, tcerrors.IRExpectedCoopMatrix, "stored value must be a coopmatrix")
	}
	if err := requireMemrefOrder(inst, "operand", operand, 2); err != nil {
		return err
	}
	if operand.Type().Element() != val.Type().Component() {
		return raise(inst, tcerrors.IRNumberMismatch, "memref element type must match coopmatrix component")
	}
	for idx, pos := range inst.Operands()[2:] {
		if err := requireIndex(inst, fmt.Sprintf("position %d", idx), pos); err != nil {
			return err
		}
	}
	return nil
}

func verifyCoopMatrixMulAdd(inst *Inst) error {
	A, B, C := inst.Operand(0), inst.Operand(1), inst.Operand(2)
	for i, label := range []string{"A", "B", "C"} {
		if !inst.Operand(i).Type().IsCoopMatrix() {
			return raise(inst, tcerrors.IRExpectedCoopMatrix, label+" must be a coopmatrix")
		}
	}
	if A.Type().Use() != MatrixUseA {
		return raise(inst, tcerrors.IRInvalidMatrixUse, "A must have use=a")
	}
	if B.Type().Use() != MatrixUseB {
		return raise(inst, tcerrors.IRInvalidMatrixUse, "B must have use=b")
	}
	if C.Type().Use() != MatrixUseAcc {
		return raise(inst, tcerrors.IRInvalidMatrixUse, "C must have use=acc")
	}
	rt := inst.Result(0).Type()
	if rt.Use() != MatrixUseAcc {
		return raise(inst, tcerrors.IRInvalidMatrixUse, "result must have use=acc")
	}
	if A.Type().Cols() != B.Type().Rows() {
		return raise(inst, tcerrors.IRIncompatibleShapes, "A's K must equal B's K")
	}
	if A.Type().Rows() != C.Type().Rows() || B.Type().Cols() != C.Type().Cols() {
		return raise(inst, tcerrors.IRIncompatibleShapes, "A,B shapes must produce C's M x N")
	}
	if C.Type().Rows() != rt.Rows() || C.Type().Cols() != rt.Cols() {
		return raise(inst, tcerrors.IRIncompatibleShapes, "result shape must match C")
	}
	ab, ok := Promote(A.Type().Component(), B.Type().Component())
	if !ok || !Promotable(ab, C.Type().Component()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "A*B component is not promotable into C")
	}
	if !IsCastAllowed(C.Type().Component(), rt.Component()) {
		return raise(inst, tcerrors.IRForbiddenCast, "result component is not cast-allowed from C's")
	}
	return nil
}

func verifyCoopMatrixScale(inst *Inst) error {
	scalar, mat := inst.Operand(0), inst.Operand(1)
	if !requireNumberOK(scalar) {
		return raise(inst, tcerrors.IRExpectedNumber, "scale factor must be a number")
	}
	if !mat.Type().IsCoopMatrix() {
		return raise(inst, tcerrors.IRExpectedCoopMatrix, "operand must be a coopmatrix")
	}
	if !Promotable(scalar.Type(), mat.Type().Component()) {
		return raise(inst, tcerrors.IRForbiddenPromotion, "scale factor is not promotable into matrix component")
	}
	rt := inst.Result(0).Type()
	if rt != mat.Type() {
		return raise(inst, tcerrors.IROperandTypeMustMatchReturnType, "result type must match operand")
	}
	return nil
}

func requireNumberOK(v *Value) bool { return v.Type().IsNumber() }

func verifyCoopMatrixApply(inst *Inst) error {
	operand := inst.Operand(0)
	if !operand.Type().IsCoopMatrix() {
		return raise(inst, tcerrors.IRExpectedCoopMatrix, "operand must be a coopmatrix")
	}
	inst.regions[0].SetKind(RegionSPMD)
	return checkNoCollectiveInSPMD(inst.regions[0])
}

func verifyCoopMatrixReduce(inst *Inst) error {
	operand := inst.Operand(0)
	if !operand.Type().IsCoopMatrix() {
		return raise(inst, tcerrors.IRExpectedCoopMatrix, "operand must be a coopmatrix")
	}
	if inst.Attrs.Mode != 0 && inst.Attrs.Mode != 1 {
		return raise(inst, tcerrors.IROutOfBounds, "reduce mode must select row or column")
	}
	return nil
}

// ---- structured control flow ----

func verifyFor(inst *Inst) error {
	if inst.NumOperands() < 3 {
		return raise(inst, tcerrors.IRExpectedInt, "for requires from, to and step operands")
	}
	v := inst.AsLoop()
	from, to := v.From(), v.To()
	if !from.Type().IsInteger() && !from.Type().IsIndex() {
		return raise(inst, tcerrors.IRExpectedInt, "for's lower bound must be an integer or index")
	}
	if from.Type() != to.Type() {
		return raise(inst, tcerrors.IRNumberMismatch, "for's bounds must share a type")
	}
	if v.Step().Type() != from.Type() {
		return raise(inst, tcerrors.IRNumberMismatch, "for's step must share the bounds' type")
	}
	initArgs := v.InitArgs()
	if inst.NumResults() != len(initArgs) {
		return raise(inst, tcerrors.IRInitReturnTypeMismatch, "for must yield as many results as it has loop-carried iter-args")
	}
	for i, res := range inst.Results() {
		if res.Type() != initArgs[i].Type() {
			return raise(inst, tcerrors.IRInitReturnTypeMismatch, "for's init type must match its result type")
		}
	}
	body := v.Body()
	if len(body.params) == 0 {
		body.addParam(from.Type())
		for _, a := range initArgs {
			body.addParam(a.Type())
		}
	}
	return nil
}

func verifyForeachParallel(inst *Inst) error {
	v := inst.AsLoop()
	from, to := v.From(), v.To()
	if from.Type() != to.Type() {
		return raise(inst, tcerrors.IRNumberMismatch, "bounds must share a type")
	}
	body := v.Body()
	body.SetKind(RegionSPMD)
	if len(body.params) == 0 {
		body.addParam(from.Type())
	}
	return checkNoCollectiveInSPMD(body)
}

func checkNoCollectiveInSPMD(r *Region) error {
	for _, i := range r.insts {
		if i.Op.IsCollective() {
			return raise(i, tcerrors.IRExpectedNumber, fmt.Sprintf("%s is collective and illegal inside an spmd region", i.Op))
		}
		for _, child := range i.regions {
			if child.kind != RegionSPMD {
				if err := checkNoCollectiveInSPMD(child); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func verifyIf(inst *Inst) error {
	cond := inst.Operand(0)
	if err := requireBool(inst, "condition", cond); err != nil {
		return err
	}
	for _, rt := range resultTypesOf(inst) {
		if !rt.IsNumber() && !rt.IsBool() && !rt.IsCoopMatrix() {
			return raise(inst, tcerrors.IRExpectedNumber, "if's yielded results must be number/bool/coopmatrix")
		}
	}
	return nil
}

func resultTypesOf(inst *Inst) []Type {
	out := make([]Type, inst.NumResults())
	for i, r := range inst.Results() {
		out[i] = r.Type()
	}
	return out
}

func verifyBarrier(inst *Inst) error {
	if inst.Attrs.Fence == 0 {
		return raise(inst, tcerrors.IRInvalidShape, "barrier must set at least one fence bit")
	}
	return nil
}
