package recipe

import (
	"testing"

	"tinytc/internal/codegen"
	"tinytc/internal/deviceinfo"
	"tinytc/internal/ir"
)

func testDeviceInfo() deviceinfo.Info {
	return deviceinfo.NewIntelPVCInfo()
}

// echoCompiler is a stand-in ExternalCompiler: it returns the source
// text itself as the compiled binary, enough to exercise Compile's
// option assembly and Binary plumbing without a system OpenCL-C
// dependency.
type echoCompiler struct{}

func (echoCompiler) Compile(source string, options []string, format codegen.BundleFormat) ([]byte, error) {
	return []byte(source), nil
}

func TestSmallGEMMBatched(t *testing.T) {
	ctx := ir.NewContext(nil)
	rec, err := SmallGEMMBatched(ctx, ctx.F32(), false, false,
		20, 5, 56, // m, n, k
		20, 20*56, // ldA, strideA
		56, 56*5, // ldB, strideB
		20, 20*5, // ldC, strideC
		testDeviceInfo(), echoCompiler{}, codegen.BundleNative, false)
	if err != nil {
		t.Fatalf("SmallGEMMBatched: %v", err)
	}
	if rec.KernelName != "small_gemm_batched" {
		t.Errorf("KernelName = %q, want small_gemm_batched", rec.KernelName)
	}
	meta, ok := rec.Binary.Kernels[rec.KernelName]
	if !ok {
		t.Fatalf("no kernel metadata for %q", rec.KernelName)
	}
	if !testDeviceInfo().SupportsSubgroupSize(meta.SubgroupSize) {
		t.Errorf("chosen subgroup size %d is not one of the device's supported sizes", meta.SubgroupSize)
	}
	fn := rec.Program.Functions()[0]
	if len(fn.Body().Insts()) == 0 {
		t.Error("expected the batch loop to be the function body's instruction")
	}
}

func TestSmallGEMMBatchedTransposed(t *testing.T) {
	ctx := ir.NewContext(nil)
	_, err := SmallGEMMBatched(ctx, ctx.F32(), true, true,
		20, 5, 56,
		56, 56*20, // ldA, strideA swap with transA
		5, 5*56, // ldB, strideB swap with transB
		20, 20*5,
		testDeviceInfo(), echoCompiler{}, codegen.BundleNative, false)
	if err != nil {
		t.Fatalf("SmallGEMMBatched(transA, transB): %v", err)
	}
}

func TestAxpby(t *testing.T) {
	ctx := ir.NewContext(nil)
	rec, err := Axpby(ctx, ctx.F32(), 256, 1, 1, testDeviceInfo(), echoCompiler{}, codegen.BundleNative, false)
	if err != nil {
		t.Fatalf("Axpby: %v", err)
	}
	if rec.KernelName != "axpby_batched" {
		t.Errorf("KernelName = %q, want axpby_batched", rec.KernelName)
	}
}

func TestSum(t *testing.T) {
	ctx := ir.NewContext(nil)
	rec, err := Sum(ctx, ctx.F32(), 256, 1, 1, testDeviceInfo(), echoCompiler{}, codegen.BundleNative, false)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if rec.KernelName != "sum_batched" {
		t.Errorf("KernelName = %q, want sum_batched", rec.KernelName)
	}
}

func TestCumsum(t *testing.T) {
	ctx := ir.NewContext(nil)
	rec, err := Cumsum(ctx, ctx.F32(), 256, 1, 1, testDeviceInfo(), echoCompiler{}, codegen.BundleNative, false)
	if err != nil {
		t.Fatalf("Cumsum: %v", err)
	}
	if rec.KernelName != "cumsum_batched" {
		t.Errorf("KernelName = %q, want cumsum_batched", rec.KernelName)
	}
}

func TestHandlerSubmitBindsArgsInOrder(t *testing.T) {
	ctx := ir.NewContext(nil)
	rec, err := Axpby(ctx, ctx.F32(), 256, 1, 1, testDeviceInfo(), echoCompiler{}, codegen.BundleNative, false)
	if err != nil {
		t.Fatalf("Axpby: %v", err)
	}
	h := rec.NewHandler()
	h.SetArgs(1.0, "A-ptr", 0.5, "B-ptr", int64(4))

	cl := &recordingCommandList{}
	ev, err := h.Submit(cl, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ev.Name != rec.KernelName {
		t.Errorf("event name = %q, want %q", ev.Name, rec.KernelName)
	}
	if len(cl.gotArgs) != 5 {
		t.Fatalf("got %d args, want 5", len(cl.gotArgs))
	}
}

type recordingCommandList struct {
	gotArgs []any
}

func (c *recordingCommandList) Enqueue(kernelName string, binary *codegen.Binary, args []any, depEvents []Event) (Event, error) {
	c.gotArgs = args
	return NewEvent(kernelName), nil
}
