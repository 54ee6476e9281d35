// Package deviceinfo holds the target-device capability record consumed
// (read-only) by internal/passes and internal/codegen. tinytc does not
// enumerate devices itself; a host application fills in an Info from
// whatever platform query API it has (OpenCL, Level Zero, ...) and
// passes it into the compiler.
package deviceinfo

import (
	"github.com/dustin/go-humanize"

	"tinytc/internal/ir"
)

// IPVersion identifies a GPU IP generation, used to select
// microarchitecture-specific recipe variants.
type IPVersion uint32

// Info is the capability record a compilation targets.
// NumRegistersPerThread is the baseline (small-GRF) register count; the
// FeatureLargeRegisterFile bit in CoreFeatures doubles it and halves the
// per-EU thread count in GetCoreConfig.
type Info struct {
	Name                  string
	IPVersion             IPVersion
	SubgroupSizes         []uint32 // sorted ascending
	RegisterSize          uint32   // bytes per register
	NumRegistersPerThread uint32
	NumEUsPerSubslice     uint32
	NumThreadsPerEU       uint32
	LocalMemorySize       uint64 // bytes
	CoreFeatures          uint32
}

// NewIntelPVCInfo returns the capability record of a Ponte Vecchio
// subslice: 8 EUs of 8 threads, 128 registers of 64 bytes per thread,
// 128 KiB of shared local memory, subgroup sizes 16 and 32.
func NewIntelPVCInfo() Info {
	return Info{
		Name:                  "pvc",
		IPVersion:             1,
		SubgroupSizes:         []uint32{16, 32},
		RegisterSize:          64,
		NumRegistersPerThread: 128,
		NumEUsPerSubslice:     8,
		NumThreadsPerEU:       8,
		LocalMemorySize:       128 * 1024,
	}
}

// DefaultSubgroupSize returns the first (smallest) supported subgroup
// size, used as a starting point by the work-group size selection pass
// when a function does not pin one.
func (i Info) DefaultSubgroupSize() uint32 {
	if len(i.SubgroupSizes) == 0 {
		return 0
	}
	best := i.SubgroupSizes[0]
	for _, s := range i.SubgroupSizes[1:] {
		if s < best {
			best = s
		}
	}
	return best
}

// SupportsSubgroupSize reports whether sg is among the device's
// supported subgroup sizes.
func (i Info) SupportsSubgroupSize(sg uint32) bool {
	for _, s := range i.SubgroupSizes {
		if s == sg {
			return true
		}
	}
	return false
}

// effectiveRegistersPerThread is the per-thread register count after the
// large-register-file feature is applied.
func (i Info) effectiveRegistersPerThread() uint32 {
	if i.CoreFeatures&uint32(ir.FeatureLargeRegisterFile) != 0 {
		return 2 * i.NumRegistersPerThread
	}
	return i.NumRegistersPerThread
}

// RegisterSpaceBytes is the register file size available to a single
// work-item's thread, including the large-register-file doubling, used
// by the register-blocking heuristics in internal/passes/workgroup.go.
func (i Info) RegisterSpaceBytes() uint64 {
	return uint64(i.RegisterSize) * uint64(i.effectiveRegistersPerThread())
}

// String renders a human-readable summary, using go-humanize for the
// byte-size fields so large local-memory sizes don't print as raw
// integers in diagnostics and -v CLI output.
func (i Info) String() string {
	return i.Name + " (local memory " + humanize.Bytes(i.LocalMemorySize) +
		", register file " + humanize.Bytes(i.RegisterSpaceBytes()) + " per thread)"
}

// FeatureSupported reports whether a required-feature bitset is fully
// covered by this device's CoreFeatures, gating whether a function
// compiled with RequiredFeatures can run on this device at all.
func (i Info) FeatureSupported(required uint32) bool {
	return i.CoreFeatures&required == required
}

// CoreConfig resolves the subgroup-size-dependent resources of a
// compile: the max work-item count a work-group may use at that subgroup
// size, the local-memory budget, and the per-thread register space,
// adjusted for the large-register-file feature.
type CoreConfig struct {
	SubgroupSize         uint32
	MaxNumberOfWorkItems uint32
	LocalMemorySize      uint64
	RegisterSpace        uint64
	IPVersion            IPVersion
	CoreFeatures         uint32
}

// GetCoreConfig builds the CoreConfig for compiling at subgroup size
// sgs. The per-EU thread count shrinks on two axes: a thread that holds
// the doubled large-register-file register set displaces a neighbor, and
// a subgroup wider than the narrowest supported size occupies
// proportionally more of the EU. The work-item budget is the surviving
// thread count times the EUs of a subslice times the subgroup size.
func (i Info) GetCoreConfig(sgs uint32) CoreConfig {
	threadsPerEU := i.NumThreadsPerEU
	if regs := i.effectiveRegistersPerThread(); regs > 0 {
		threadsDueToRegisterUse := i.NumThreadsPerEU * i.NumRegistersPerThread / regs
		if threadsDueToRegisterUse < threadsPerEU {
			threadsPerEU = threadsDueToRegisterUse
		}
	}
	if sgs > 0 && len(i.SubgroupSizes) > 0 {
		threadsDueToSubgroupSize := i.NumThreadsPerEU * i.SubgroupSizes[0] / sgs
		if threadsDueToSubgroupSize < threadsPerEU {
			threadsPerEU = threadsDueToSubgroupSize
		}
	}
	return CoreConfig{
		SubgroupSize:         sgs,
		MaxNumberOfWorkItems: threadsPerEU * i.NumEUsPerSubslice * sgs,
		LocalMemorySize:      i.LocalMemorySize,
		RegisterSpace:        i.RegisterSpaceBytes(),
		IPVersion:            i.IPVersion,
		CoreFeatures:         i.CoreFeatures,
	}
}
