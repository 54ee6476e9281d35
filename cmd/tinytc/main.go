// Command tinytc is a thin host-side driver over the compiler core
// (internal/ir, internal/builder, internal/passes, internal/codegen,
// internal/recipe). It is not part of the compiler core itself; it
// exists only to exercise the library end to end the way a real host
// application would: build or bake a recipe, run it through the pass
// pipeline, hand the lowered source to an external compiler, and report
// what came out.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"tinytc/internal/codegen"
	"tinytc/internal/deviceinfo"
	tcerrors "tinytc/internal/errors"
	"tinytc/internal/ir"
	"tinytc/internal/passes"
	"tinytc/internal/recipe"
)

const usage = `tinytc - tensor kernel compiler driver

usage:
  tinytc dump                 build a sample batched-GEMM program and print its IR
  tinytc compile               bake the small_gemm_batched recipe and print its kernel metadata
  tinytc bench N               bake N recipes (gemm/axpby/sum/cumsum, round-robin) concurrently and report failures
`

func main() { os.Exit(run()) }

// run is factored out of main so the test binary can re-enter it via
// testscript.RunMain (cmd/tinytc/main_test.go) instead of forking a
// subprocess per assertion.
func run() int {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	var err error
	switch os.Args[1] {
	case "dump":
		err = runDump()
	case "compile":
		err = runCompile()
	case "bench":
		err = runBench(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, renderErr(err))
		return 1
	}
	return 0
}

// renderErr colorizes a *tcerrors.CompilationError's rendered form when
// stderr is a terminal; plain error values print as-is.
func renderErr(err error) string {
	var ce *tcerrors.CompilationError
	msg := err.Error()
	if ce2, ok := err.(*tcerrors.CompilationError); ok {
		ce = ce2
		msg = ce.Render("")
	}
	if ce == nil || !isatty.IsTerminal(os.Stderr.Fd()) {
		return msg
	}
	const red, reset = "\x1b[31m", "\x1b[0m"
	return red + msg + reset
}

func demoDeviceInfo() deviceinfo.Info {
	info := deviceinfo.NewIntelPVCInfo()
	info.Name = "demo-gpu"
	return info
}

// stubCompiler implements codegen.ExternalCompiler without invoking a
// real OpenCL-C toolchain: it returns the source bytes themselves as the
// "binary", which is enough to exercise Compile's option assembly and
// cache-key plumbing without a system dependency. A production host
// replaces this with a binding to its ICD loader.
type stubCompiler struct{}

func (stubCompiler) Compile(source string, options []string, format codegen.BundleFormat) ([]byte, error) {
	return []byte(source), nil
}

func runDump() error {
	r, err := buildDemoRecipeProgram()
	if err != nil {
		return err
	}
	passes.DumpIR(os.Stdout, r)
	return nil
}

func buildDemoRecipeProgram() (*ir.Program, error) {
	ctx := ir.NewContext(nil)
	rec, err := recipe.SmallGEMMBatched(ctx, ctx.F32(), false, false,
		20, 5, 56, /* M, N, K */
		20, 20*56, /* ldA, strideA */
		56, 56*5, /* ldB, strideB */
		20, 20*5, /* ldC, strideC */
		demoDeviceInfo(), stubCompiler{}, codegen.BundleNative, false)
	if err != nil {
		return nil, err
	}
	return rec.Program, nil
}

func runCompile() error {
	ctx := ir.NewContext(nil)
	rec, err := recipe.SmallGEMMBatched(ctx, ctx.F32(), false, false,
		20, 5, 56,
		20, 20*56,
		56, 56*5,
		20, 20*5,
		demoDeviceInfo(), stubCompiler{}, codegen.BundleNative, false)
	if err != nil {
		return err
	}
	fmt.Printf("kernel %q: format=%s bytes=%d core_features=%#x\n", rec.KernelName, rec.Binary.Format, len(rec.Binary.Data), rec.Binary.CoreFeatures)
	for name, meta := range rec.Binary.Kernels {
		fmt.Printf("  %s: subgroup=%d work_group=%dx%d\n", name, meta.SubgroupSize, meta.WorkGroupSize[0], meta.WorkGroupSize[1])
	}
	return nil
}

// runBench bakes n recipes concurrently, one Context per recipe. Reports the first
// failure, if any, via errgroup.
func runBench(args []string) error {
	n := 8
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
			return fmt.Errorf("invalid count %q: %w", args[0], err)
		}
	}

	info := demoDeviceInfo()
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			ctx := ir.NewContext(nil)
			var err error
			switch i % 4 {
			case 0:
				_, err = recipe.SmallGEMMBatched(ctx, ctx.F32(), false, false, 20, 5, 56, 20, 20*56, 56, 56*5, 20, 20*5, info, stubCompiler{}, codegen.BundleNative, false)
			case 1:
				_, err = recipe.Axpby(ctx, ctx.F32(), 256, 1, 1, info, stubCompiler{}, codegen.BundleNative, false)
			case 2:
				_, err = recipe.Sum(ctx, ctx.F32(), 256, 1, 1, info, stubCompiler{}, codegen.BundleNative, false)
			case 3:
				_, err = recipe.Cumsum(ctx, ctx.F32(), 256, 1, 1, info, stubCompiler{}, codegen.BundleNative, false)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("baked %d recipes across %d contexts\n", n, n)
	return nil
}
