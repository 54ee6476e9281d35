package builder_test

import (
	"strings"
	"testing"

	"tinytc/internal/builder"
	tcerrors "tinytc/internal/errors"
	"tinytc/internal/ir"
)

func TestCreateFunctionExposesParams(t *testing.T) {
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	f32 := ctx.F32()
	vecTy := ctx.Memref(f32, []int64{8}, []int64{1}, ir.AddressSpaceGlobal)

	fn, rb := b.CreateFunction("k", []ir.Type{f32, vecTy})
	if fn.Param(0).Type() != f32 || fn.Param(1).Type() != vecTy {
		t.Fatal("function parameter types do not match declaration")
	}
	if rb.Region() != fn.Body() {
		t.Fatal("region builder is not positioned at the function body")
	}
	if b.Program().FunctionByName("k") != fn {
		t.Fatal("program does not list the created function")
	}
}

func TestConstantShortcuts(t *testing.T) {
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	_, rb := b.CreateFunction("k", nil)

	zero, err := rb.ConstantZero(ctx.F32(), tcerrors.Location{})
	if err != nil {
		t.Fatalf("ConstantZero: %v", err)
	}
	if zero.Type() != ctx.F32() {
		t.Fatalf("ConstantZero type = %v, want f32", zero.Type())
	}
	one, err := rb.ConstantOne(ctx.I64(), tcerrors.Location{})
	if err != nil {
		t.Fatalf("ConstantOne: %v", err)
	}
	if imm := one.DefiningInst().Attrs.Immediate; imm != int64(1) {
		t.Fatalf("ConstantOne immediate = %v, want int64(1)", imm)
	}
}

// The builder appends each verified instruction in program order and
// returns its SSA results.
func TestForSynthesizesStepAndWiresIterArgs(t *testing.T) {
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	_, rb := b.CreateFunction("k", nil)
	idx := ctx.Index()
	loc := tcerrors.Location{}

	from, _ := rb.ConstantZero(idx, loc)
	to, _ := rb.Constant(int64(10), idx, loc)
	acc, _ := rb.ConstantZero(ctx.I32(), loc)

	results, err := rb.For(from, to, nil, []*ir.Value{acc}, loc, func(body *builder.RegionBuilder, iv *ir.Value, iterArgs []*ir.Value) error {
		if iv.Type() != idx {
			t.Errorf("induction variable type = %v, want index", iv.Type())
		}
		if len(iterArgs) != 1 || iterArgs[0].Type() != ctx.I32() {
			t.Errorf("unexpected iter-args: %v", iterArgs)
		}
		return body.Yield(iterArgs, loc)
	})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if len(results) != 1 || results[0].Type() != ctx.I32() {
		t.Fatalf("for results = %v, want one i32", results)
	}

	region := rb.Region()
	forInst := region.Inst(region.NumInsts() - 1)
	if forInst.Op != ir.OpFor {
		t.Fatalf("last instruction is %v, want for", forInst.Op)
	}
	step := forInst.AsLoop().Step()
	if step == nil || step.Type() != idx {
		t.Fatal("expected a synthesized index-typed step operand")
	}
	if got := forInst.AsLoop().InitArgs(); len(got) != 1 || got[0] != acc {
		t.Fatalf("InitArgs = %v, want [acc]", got)
	}
}

func TestIfBuildsBothArms(t *testing.T) {
	ctx := ir.NewContext(nil)
	b := builder.New(ctx)
	_, rb := b.CreateFunction("k", nil)
	loc := tcerrors.Location{}

	cond, _ := rb.ConstantOne(ctx.Bool(), loc)
	thenVal, _ := rb.Constant(int64(1), ctx.I32(), loc)
	elseVal, _ := rb.Constant(int64(2), ctx.I32(), loc)

	results, err := rb.If(cond, []ir.Type{ctx.I32()}, loc,
		func(body *builder.RegionBuilder) error { return body.Yield([]*ir.Value{thenVal}, loc) },
		func(body *builder.RegionBuilder) error { return body.Yield([]*ir.Value{elseVal}, loc) })
	if err != nil {
		t.Fatalf("If: %v", err)
	}
	if len(results) != 1 || results[0].Type() != ctx.I32() {
		t.Fatalf("if results = %v, want one i32", results)
	}
	region := rb.Region()
	ifInst := region.Inst(region.NumInsts() - 1)
	if len(ifInst.Regions()) != 2 {
		t.Fatalf("if has %d regions, want 2", len(ifInst.Regions()))
	}
	if ifInst.Region(0).Empty() || ifInst.Region(1).Empty() {
		t.Fatal("both arms should carry their yield")
	}
}

// A failed setup_and_check is returned to the caller and forwarded to
// the context's error reporter.
func TestBuildFailureReachesReporter(t *testing.T) {
	var reported []string
	reporter := func(msg string, loc *tcerrors.Location, hostCtx any) {
		reported = append(reported, msg)
	}
	ctx := ir.NewContext(reporter)
	b := builder.New(ctx)
	_, rb := b.CreateFunction("k", nil)

	globalTy := ctx.Memref(ctx.F32(), []int64{4}, []int64{1}, ir.AddressSpaceGlobal)
	_, err := rb.Alloca(globalTy, tcerrors.Location{})
	if err == nil {
		t.Fatal("alloca of a global memref should fail verification")
	}
	if len(reported) != 1 || !strings.Contains(reported[0], "ir_expected_local_address_space") {
		t.Fatalf("expected one reported diagnostic naming the kind, got %v", reported)
	}
	if rb.Region().NumInsts() != 0 {
		t.Fatal("failed instruction must not be appended to the region")
	}
}
