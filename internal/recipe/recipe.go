// Package recipe packages recurring kernels as parameterized templates
// with baked argument-setting helpers:
// small_gemm_batched, axpby, sum, cumsum. Each constructor builds a
// one-function program via internal/builder, runs it through the fixed
// pass pipeline (internal/passes.Run) and an external compiler
// (internal/codegen), and returns a Recipe wrapping the resulting
// precompiled Binary: a "build once, bind args many times" split between
// compile-time construction and runtime submission.
package recipe

import (
	"fmt"

	"github.com/google/uuid"

	"tinytc/internal/builder"
	"tinytc/internal/codegen"
	tcerrors "tinytc/internal/errors"
	"tinytc/internal/deviceinfo"
	"tinytc/internal/ir"
	"tinytc/internal/passes"
)

// Recipe is a compiled, reusable kernel template.
type Recipe struct {
	Program    *ir.Program
	KernelName string
	Binary     *codegen.Binary
}

// CommandList is the runtime submission surface a Handler enqueues work
// onto. Backends (OpenCL, Level Zero, SYCL) provide a concrete
// implementation; recipe itself stays backend-agnostic.
type CommandList interface {
	Enqueue(kernelName string, binary *codegen.Binary, args []any, depEvents []Event) (Event, error)
}

// Event is an opaque backend-specific completion token. Its ID is a
// uuid rather than a small integer: handlers from independent Recipes
// may be submitted to the same command list concurrently and the event
// is a host-side bookkeeping token, not part of the deterministic
// compiled output, so collision-free generation matters more than a
// compact encoding.
type Event struct {
	ID   uuid.UUID
	Name string
}

// NewEvent creates a completion token for the kernel named name. Backend
// CommandList implementations call this when they enqueue a kernel.
func NewEvent(name string) Event {
	return Event{ID: uuid.New(), Name: name}
}

// Handler binds runtime arguments to a Recipe and submits it.
type Handler struct {
	recipe *Recipe
	args   []any
}

// NewHandler creates a handler bound to r with no arguments set.
func (r *Recipe) NewHandler() *Handler {
	return &Handler{recipe: r}
}

// SetArgs records the kernel's runtime argument list in declaration
// order (alpha, A, B, beta, C, howmany for small_gemm_batched; alpha, A,
// beta, B, howmany for the others).
// Memory arguments are backend pointers; howmany and alpha/beta are
// passed by value.
func (h *Handler) SetArgs(args ...any) {
	h.args = append([]any{}, args...)
}

// Submit enqueues the bound kernel on cmdList, returning the completion
// event it reports.
func (h *Handler) Submit(cmdList CommandList, depEvents []Event) (Event, error) {
	return cmdList.Enqueue(h.recipe.KernelName, h.recipe.Binary, h.args, depEvents)
}

// compile runs prog through the fixed pass pipeline and hands the
// resulting OpenCL-C module to compiler, returning the baked Recipe.
func compile(prog *ir.Program, kernelName string, info deviceinfo.Info, compiler codegen.ExternalCompiler, format codegen.BundleFormat, levelZero bool) (*Recipe, error) {
	module, kernels, features := passes.Run(prog, info)
	metadata := make(map[string]codegen.KernelMetadata, len(kernels))
	for name, k := range kernels {
		metadata[name] = codegen.KernelMetadata{SubgroupSize: k.SubgroupSize, WorkGroupSize: k.WorkGroupSize}
	}
	req := codegen.Request{Module: module, Info: info, Kernels: metadata, CoreFeatures: features, Format: format}
	binary, err := codegen.Compile(compiler, req, levelZero)
	if err != nil {
		// surface the backend log through the context's error reporter as
		// well as the returned error, so hosts that only wired a reporter
		// still see why the bake failed.
		prog.Context().Report(err.Error(), nil, nil)
		return nil, err
	}
	return &Recipe{Program: prog, KernelName: kernelName, Binary: binary}, nil
}

// batchSlice subviews operand's trailing Dynamic batch mode away at
// index iv, dropping it and keeping the leading len(keptShape) modes
// unchanged, producing an order-(operand.Dim()-1) global memref.
func batchSlice(rb *builder.RegionBuilder, ctx *ir.Context, elt ir.Type, operand, iv *ir.Value, keptShape, keptStride []int64, loc tcerrors.Location) (*ir.Value, error) {
	staticOffsets := make([]int64, len(keptShape)+1)
	staticSizes := make([]int64, len(keptShape)+1)
	for m := range keptShape {
		staticOffsets[m] = 0
		staticSizes[m] = keptShape[m]
	}
	staticOffsets[len(keptShape)] = ir.Dynamic
	staticSizes[len(keptShape)] = 0
	resultType := ctx.Memref(elt, keptShape, keptStride, ir.AddressSpaceGlobal)
	return rb.Subview(operand, staticOffsets, staticSizes, []*ir.Value{iv}, nil, resultType, loc)
}

// SmallGEMMBatched builds a one-function program computing `howmany`
// independent `C <- alpha*op(A)*op(B) + beta*C` GEMMs.
// A, B, C each carry a trailing batch mode of
// runtime extent (the `howmany` function parameter) with the given
// strides; the kernel iterates it with a `for` loop (whose body stays
// collective, so the GEMM inside it is legal) and slices out one 2-D
// operand triple per iteration via `subview`.
func SmallGEMMBatched(ctx *ir.Context, elt ir.Type, transA, transB bool, m, n, k, ldA, strideA, ldB, strideB, ldC, strideC int64, info deviceinfo.Info, compiler codegen.ExternalCompiler, format codegen.BundleFormat, levelZero bool) (*Recipe, error) {
	aRows, aCols := m, k
	if transA {
		aRows, aCols = k, m
	}
	bRows, bCols := k, n
	if transB {
		bRows, bCols = n, k
	}

	b := builder.New(ctx)
	scalar := elt
	aTy := ctx.Memref(elt, []int64{aRows, aCols, ir.Dynamic}, []int64{1, ldA, strideA}, ir.AddressSpaceGlobal)
	bTy := ctx.Memref(elt, []int64{bRows, bCols, ir.Dynamic}, []int64{1, ldB, strideB}, ir.AddressSpaceGlobal)
	cTy := ctx.Memref(elt, []int64{m, n, ir.Dynamic}, []int64{1, ldC, strideC}, ir.AddressSpaceGlobal)

	fn, rb := b.CreateFunction("small_gemm_batched", []ir.Type{scalar, aTy, bTy, scalar, cTy, ctx.Index()})
	alpha, aArg, bArg, beta, cArg, howmany := fn.Param(0), fn.Param(1), fn.Param(2), fn.Param(3), fn.Param(4), fn.Param(5)

	loc := tcerrors.Location{}
	zero, err := rb.Constant(int64(0), ctx.Index(), loc)
	if err != nil {
		return nil, err
	}
	_, err = rb.For(zero, howmany, nil, nil, loc, func(body *builder.RegionBuilder, iv *ir.Value, _ []*ir.Value) error {
		aSlice, err := batchSlice(body, ctx, elt, aArg, iv, []int64{aRows, aCols}, []int64{1, ldA}, loc)
		if err != nil {
			return err
		}
		bSlice, err := batchSlice(body, ctx, elt, bArg, iv, []int64{bRows, bCols}, []int64{1, ldB}, loc)
		if err != nil {
			return err
		}
		cSlice, err := batchSlice(body, ctx, elt, cArg, iv, []int64{m, n}, []int64{1, ldC}, loc)
		if err != nil {
			return err
		}
		return body.Gemm(alpha, aSlice, bSlice, beta, cSlice, transA, transB, loc)
	})
	if err != nil {
		return nil, fmt.Errorf("building small_gemm_batched: %w", err)
	}
	return compile(b.Program(), fn.Name, info, compiler, format, levelZero)
}

// Axpby builds a one-function program computing `howmany` independent
// `B <- alpha*op(A) + beta*B` updates over length-n vectors.
func Axpby(ctx *ir.Context, elt ir.Type, n, strideA, strideB int64, info deviceinfo.Info, compiler codegen.ExternalCompiler, format codegen.BundleFormat, levelZero bool) (*Recipe, error) {
	b := builder.New(ctx)
	scalar := elt
	aTy := ctx.Memref(elt, []int64{n, ir.Dynamic}, []int64{1, strideA}, ir.AddressSpaceGlobal)
	bTy := ctx.Memref(elt, []int64{n, ir.Dynamic}, []int64{1, strideB}, ir.AddressSpaceGlobal)

	fn, rb := b.CreateFunction("axpby_batched", []ir.Type{scalar, aTy, scalar, bTy, ctx.Index()})
	alpha, aArg, beta, bArg, howmany := fn.Param(0), fn.Param(1), fn.Param(2), fn.Param(3), fn.Param(4)

	loc := tcerrors.Location{}
	zero, err := rb.Constant(int64(0), ctx.Index(), loc)
	if err != nil {
		return nil, err
	}
	_, err = rb.For(zero, howmany, nil, nil, loc, func(body *builder.RegionBuilder, iv *ir.Value, _ []*ir.Value) error {
		aSlice, err := batchSlice(body, ctx, elt, aArg, iv, []int64{n}, []int64{1}, loc)
		if err != nil {
			return err
		}
		bSlice, err := batchSlice(body, ctx, elt, bArg, iv, []int64{n}, []int64{1}, loc)
		if err != nil {
			return err
		}
		return body.Axpby(alpha, aSlice, beta, bSlice, false, loc)
	})
	if err != nil {
		return nil, fmt.Errorf("building axpby: %w", err)
	}
	return compile(b.Program(), fn.Name, info, compiler, format, levelZero)
}

// Sum builds a one-function program computing `howmany` independent
// `b <- alpha*sum(A) + beta*b` reductions of a length-n vector into a
// scalar.
func Sum(ctx *ir.Context, elt ir.Type, n, strideA, strideB int64, info deviceinfo.Info, compiler codegen.ExternalCompiler, format codegen.BundleFormat, levelZero bool) (*Recipe, error) {
	b := builder.New(ctx)
	scalar := elt
	aTy := ctx.Memref(elt, []int64{n, ir.Dynamic}, []int64{1, strideA}, ir.AddressSpaceGlobal)
	bTy := ctx.Memref(elt, []int64{ir.Dynamic}, []int64{strideB}, ir.AddressSpaceGlobal)

	fn, rb := b.CreateFunction("sum_batched", []ir.Type{scalar, aTy, scalar, bTy, ctx.Index()})
	alpha, aArg, beta, bArg, howmany := fn.Param(0), fn.Param(1), fn.Param(2), fn.Param(3), fn.Param(4)

	loc := tcerrors.Location{}
	zero, err := rb.Constant(int64(0), ctx.Index(), loc)
	if err != nil {
		return nil, err
	}
	_, err = rb.For(zero, howmany, nil, nil, loc, func(body *builder.RegionBuilder, iv *ir.Value, _ []*ir.Value) error {
		aSlice, err := batchSlice(body, ctx, elt, aArg, iv, []int64{n}, []int64{1}, loc)
		if err != nil {
			return err
		}
		bSlice, err := batchSlice(body, ctx, elt, bArg, iv, nil, nil, loc)
		if err != nil {
			return err
		}
		return body.Sum(alpha, aSlice, beta, bSlice, false, loc)
	})
	if err != nil {
		return nil, fmt.Errorf("building sum: %w", err)
	}
	return compile(b.Program(), fn.Name, info, compiler, format, levelZero)
}

// Cumsum builds a one-function program computing `howmany` independent
// `B <- alpha*cumsum(A, mode=0) + beta*B` prefix sums over length-n
// vectors.
func Cumsum(ctx *ir.Context, elt ir.Type, n, strideA, strideB int64, info deviceinfo.Info, compiler codegen.ExternalCompiler, format codegen.BundleFormat, levelZero bool) (*Recipe, error) {
	b := builder.New(ctx)
	scalar := elt
	aTy := ctx.Memref(elt, []int64{n, ir.Dynamic}, []int64{1, strideA}, ir.AddressSpaceGlobal)
	bTy := ctx.Memref(elt, []int64{n, ir.Dynamic}, []int64{1, strideB}, ir.AddressSpaceGlobal)

	fn, rb := b.CreateFunction("cumsum_batched", []ir.Type{scalar, aTy, scalar, bTy, ctx.Index()})
	alpha, aArg, beta, bArg, howmany := fn.Param(0), fn.Param(1), fn.Param(2), fn.Param(3), fn.Param(4)

	loc := tcerrors.Location{}
	zero, err := rb.Constant(int64(0), ctx.Index(), loc)
	if err != nil {
		return nil, err
	}
	_, err = rb.For(zero, howmany, nil, nil, loc, func(body *builder.RegionBuilder, iv *ir.Value, _ []*ir.Value) error {
		aSlice, err := batchSlice(body, ctx, elt, aArg, iv, []int64{n}, []int64{1}, loc)
		if err != nil {
			return err
		}
		bSlice, err := batchSlice(body, ctx, elt, bArg, iv, []int64{n}, []int64{1}, loc)
		if err != nil {
			return err
		}
		return body.Cumsum(alpha, aSlice, beta, bSlice, 0, loc)
	})
	if err != nil {
		return nil, fmt.Errorf("building cumsum: %w", err)
	}
	return compile(b.Program(), fn.Name, info, compiler, format, levelZero)
}
