// Package codegen turns the OpenCL-C text produced by internal/passes
// into a compiled device binary plus per-kernel metadata. The actual
// OpenCL-C -> SPIR-V/native compile step
// is delegated to an external compiler the host links against (the ICD
// loader, a SYCL/Level-Zero runtime, ...); this package only assembles
// the compiler options, wraps failures, and derives a deterministic
// cache key, splitting "build the request" from "hand it to the
// runtime."
package codegen

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"tinytc/internal/deviceinfo"
	"tinytc/internal/ir"
	"tinytc/internal/passes"
)

// BundleFormat selects the binary container an external compile targets.
type BundleFormat int

const (
	BundleSPIRV BundleFormat = iota
	BundleNative
)

func (f BundleFormat) String() string {
	if f == BundleNative {
		return "native"
	}
	return "spirv"
}

// KernelMetadata is the subgroup size and work-group size a kernel was
// compiled against, returned alongside the binary.
type KernelMetadata struct {
	SubgroupSize  uint32
	WorkGroupSize [2]uint32
}

// Binary is the compiled output of a program: a byte vector (SPIR-V
// module or native device ELF) plus per-kernel metadata and the
// core-feature mask that was active.
type Binary struct {
	Format       BundleFormat
	Data         []byte
	Kernels      map[string]KernelMetadata
	CoreFeatures uint32
}

// ExternalCompiler invokes whatever OpenCL-C front end the host has
// available, returning the compiled module bytes.
type ExternalCompiler interface {
	Compile(source string, options []string, format BundleFormat) ([]byte, error)
}

// Request bundles everything CompileModule needs beyond the lowered
// source: the device it targets, the kernel metadata to report, and the
// required feature set used to pick compiler flags.
type Request struct {
	Module       passes.Module
	Info         deviceinfo.Info
	Kernels      map[string]KernelMetadata
	CoreFeatures uint32
	Format       BundleFormat
}

// Options assembles the mandatory and feature-conditional compiler
// options: `-cl-std=CL2.0 -cl-mad-enable` always, plus a
// large-register-file flag whose spelling depends on the target runtime
// family.
func Options(req Request, levelZero bool) []string {
	opts := []string{"-cl-std=CL2.0", "-cl-mad-enable"}
	if req.CoreFeatures&uint32(ir.FeatureLargeRegisterFile) != 0 {
		if levelZero {
			opts = append(opts, "-ze-opt-large-register-file")
		} else {
			opts = append(opts, "-cl-intel-256-GRF-per-thread")
		}
	}
	for _, ext := range req.Module.Extensions {
		opts = append(opts, fmt.Sprintf("-D__OPENCL_EXTENSION_%s__=1", ext))
	}
	return opts
}

// Compile runs an external compiler over req's lowered module, returning
// the resulting Binary. Compiler failures are wrapped with the source's
// cache key so a build failure log line can be correlated with a cached
// artifact from a prior successful run of the same input.
func Compile(compiler ExternalCompiler, req Request, levelZero bool) (*Binary, error) {
	opts := Options(req, levelZero)
	data, err := compiler.Compile(req.Module.Source, opts, req.Format)
	if err != nil {
		key := CacheKey(req.Module.Source, opts)
		return nil, errors.Wrapf(err, "compiling OpenCL-C module (cache key %x)", key[:8])
	}
	return &Binary{
		Format:       req.Format,
		Data:         data,
		Kernels:      req.Kernels,
		CoreFeatures: req.CoreFeatures,
	}, nil
}

// CacheKey derives a deterministic content-addressed key from a lowered
// module's source text and the exact compiler options it was built with.
// Compile puts it in the error it returns when the external compiler
// fails; no cache is kept, so every Compile call invokes the external
// compiler. blake2b is used rather
// than a CRC or FNV hash because
// it resists accidental collisions between structurally similar kernels
// without the setup cost of a general-purpose cryptographic hash.
func CacheKey(source string, options []string) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(source))
	for _, o := range options {
		h.Write([]byte{0})
		h.Write([]byte(o))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
