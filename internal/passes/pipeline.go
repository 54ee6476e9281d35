package passes

import (
	"tinytc/internal/analysis"
	"tinytc/internal/deviceinfo"
	"tinytc/internal/ir"
)

// KernelInfo is the subgroup size and work-group size a pipeline run
// chose for one function, mirroring codegen.KernelMetadata's shape
// without importing codegen (which itself depends on passes.Module).
type KernelInfo struct {
	SubgroupSize  uint32
	WorkGroupSize [2]uint32
}

// Run drives the fixed compilation pass order over every function in
// prog: lifetime-stop insertion, stack-slot assignment, alias analysis,
// barrier insertion, and work-group-size selection,
// each function in isolation, followed by one program-wide lowering to
// OpenCL-C. The order matters: lifetime stops must exist before stack
// assignment derives overlap intervals, and alias analysis must run
// after lifetime/stack change the IR but before barrier
// insertion consults it.
func Run(prog *ir.Program, info deviceinfo.Info) (Module, map[string]KernelInfo, uint32) {
	kernels := make(map[string]KernelInfo, prog.NumFunctions())
	var features uint32

	for _, fn := range prog.Functions() {
		body := fn.Body()

		analysis.InsertLifetimeStops(fn.Context(), body)
		analysis.AssignStackOffsets(body)

		aa := analysis.Analyze(body)
		InsertBarriers(fn.Context(), aa, body)

		SelectWorkGroupSize(fn, info)

		kernels[fn.Name] = KernelInfo{
			SubgroupSize:  fn.ChosenSubgroupSize,
			WorkGroupSize: [2]uint32{fn.ChosenWorkGroupSize.X, fn.ChosenWorkGroupSize.Y},
		}
		features |= uint32(fn.RequiredFeatures)
	}

	return LowerProgram(prog), kernels, features
}
