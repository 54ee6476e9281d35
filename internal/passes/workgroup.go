package passes

import (
	"tinytc/internal/deviceinfo"
	"tinytc/internal/ir"
)

// Tiling is a (m_tiles, n_tiles) work-group partition of a GEMM-shaped
// instruction's output over a device's subgroups.
type Tiling struct {
	MTiles, NTiles uint32
}

// NumberOfWorkItems is the work-group's total lane count at the given
// subgroup size.
func (t Tiling) NumberOfWorkItems(subgroupSize uint32) uint32 {
	return t.MTiles * t.NTiles * subgroupSize
}

// BlasShape is the element type and (M, N) output extent of a BLAS
// operation, the input to work-group size selection. M, N may be
// ir.Dynamic.
type BlasShape struct {
	Element ir.Type
	M, N    int64
}

// maxKUnrolling is the deepest K-loop unroll the GEMM code generator
// emits; the register-blocking model reserves operand registers for it.
const maxKUnrolling = 8

// scalarSizeBytes returns the byte width of a scalar (number) type.
func scalarSizeBytes(t ir.Type) uint32 {
	switch {
	case t.IsInteger():
		return uint32(t.IntWidth()) / 8
	case t.IsFloat():
		return uint32(t.FloatKind().Bits()) / 8
	case t.IsComplex():
		return uint32(t.FloatKind().Bits()) / 4
	default:
		return 8 // index
	}
}

// RegisterBlock is the (blockM, blockN) factor pair returned by
// MaxRegisterBlockGemm: blockM subgroup-rows of the C accumulator are
// held resident while blockN accumulator columns are computed per lane.
type RegisterBlock struct {
	BlockM          uint32
	BlockNRegisters uint32
}

// MaxRegisterBlockGemm returns the (row_blocks, cols) register block of
// a GEMM on cScalarSize-byte scalars that maximizes arithmetic intensity
//
//	row_blocks*sgs*cols / (row_blocks*sgs + cols)
//
// subject to the register budget. Half the register space is left to
// the OpenCL compiler; the other half must hold the C block plus the A
// and B operands of a K-unrolled inner loop:
//
//	row_blocks*sgs*(cols + maxKUnrolling) + cols*maxKUnrolling scalars.
func MaxRegisterBlockGemm(cScalarSize, subgroupSize, registerSpace uint32) RegisterBlock {
	if cScalarSize == 0 || subgroupSize == 0 {
		return RegisterBlock{BlockM: 1, BlockNRegisters: 1}
	}
	sgs := int64(subgroupSize)
	maxScalars := int64(registerSpace) / int64(2*cScalarSize)

	maxRowBlocks := (maxScalars - maxKUnrolling) / (sgs * (1 + maxKUnrolling))
	maxCols := func(rowBlocks int64) int64 {
		return (maxScalars - rowBlocks*sgs*maxKUnrolling) / (rowBlocks*sgs + maxKUnrolling)
	}
	intensity := func(rowBlocks, cols int64) float64 {
		return float64(rowBlocks*sgs*cols) / float64(rowBlocks*sgs+cols)
	}

	best := RegisterBlock{BlockM: 1, BlockNRegisters: 1}
	bestIntensity := 0.0
	for r := int64(1); r <= maxRowBlocks; r++ {
		for c := int64(1); c <= maxCols(r); c++ {
			if ai := intensity(r, c); ai > bestIntensity {
				bestIntensity = ai
				best = RegisterBlock{BlockM: uint32(r), BlockNRegisters: uint32(c)}
			}
		}
	}
	return best
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// floorPow2 rounds x down to a power of two (minimum 1).
func floorPow2(x int64) int64 {
	if x < 1 {
		return 1
	}
	p := int64(1)
	for p*2 <= x {
		p *= 2
	}
	return p
}

// SuggestLocalTiling picks the (m_tiles, n_tiles) partition of shape
// over cfg's work-item budget. Each tile covers one register block of
// the C matrix (BlockM*sgs rows by BlockN columns); the tile counts
// start at the power of two below the per-dimension demand and the
// larger dimension is halved until the subgroup count fits
// MaxNumberOfWorkItems/sgs. Dynamic shapes get the fixed 4x8 tiling,
// capped the same way.
func SuggestLocalTiling(shape BlasShape, cfg deviceinfo.CoreConfig) Tiling {
	if cfg.SubgroupSize == 0 {
		return Tiling{MTiles: 1, NTiles: 1}
	}
	maxThreads := int64(cfg.MaxNumberOfWorkItems / cfg.SubgroupSize)
	if maxThreads < 1 {
		maxThreads = 1
	}

	var mt, nt int64
	if shape.M == ir.Dynamic || shape.N == ir.Dynamic {
		mt, nt = 4, 8
	} else {
		block := MaxRegisterBlockGemm(scalarSizeBytes(shape.Element), cfg.SubgroupSize, uint32(cfg.RegisterSpace))
		rows := int64(block.BlockM) * int64(cfg.SubgroupSize)
		cols := int64(block.BlockNRegisters)
		mt = floorPow2(ceilDiv(shape.M, rows))
		nt = floorPow2(ceilDiv(shape.N, cols))
	}

	for mt*nt > maxThreads {
		switch {
		case mt >= nt && mt > 1:
			mt /= 2
		case nt > 1:
			nt /= 2
		default:
			return Tiling{MTiles: 1, NTiles: 1}
		}
	}
	return Tiling{MTiles: uint32(mt), NTiles: uint32(nt)}
}

// SelectWorkGroupSize fills in fn.ChosenWorkGroupSize and
// fn.ChosenSubgroupSize when fn declares an automatic (0,0) work-group
// size, by scanning its body for GEMM-shaped instructions and tiling the
// dominant (largest-area) shape found. Functions with an explicit
// work-group size get their declared work-group size and subgroup hint
// copied into those fields unchanged.
func SelectWorkGroupSize(fn *ir.Function, info deviceinfo.Info) {
	if !fn.WorkGroupSize.IsAuto() {
		fn.ChosenWorkGroupSize = fn.WorkGroupSize
		fn.ChosenSubgroupSize = fn.SubgroupHint
		return
	}

	sgs := fn.SubgroupHint
	if sgs == 0 {
		sgs = info.DefaultSubgroupSize()
	}

	shape := BlasShape{Element: fn.Context().F32(), M: 1, N: 1}
	bestArea := int64(-1)
	scanRegion(fn.Body(), func(inst *ir.Inst) {
		if inst.Op != ir.OpGemm {
			return
		}
		v := inst.AsBLASA3()
		c := v.C()
		if !c.Type().IsMemref() || c.Type().Dim() != 2 {
			return
		}
		cShape := c.Type().Shape()
		m, n := cShape[0], cShape[1]
		area := m * n
		if m == ir.Dynamic || n == ir.Dynamic {
			area = 1 << 30 // treat dynamic shapes as dominant
		}
		if area > bestArea {
			bestArea = area
			shape = BlasShape{Element: c.Type().Element(), M: m, N: n}
		}
	})

	cfg := info.GetCoreConfig(sgs)
	tiling := SuggestLocalTiling(shape, cfg)
	fn.ChosenWorkGroupSize = ir.WorkGroupSize{X: tiling.MTiles * sgs, Y: tiling.NTiles}
	fn.ChosenSubgroupSize = sgs
}

func scanRegion(region *ir.Region, visit func(*ir.Inst)) {
	for _, inst := range region.Insts() {
		visit(inst)
		for _, child := range inst.Regions() {
			scanRegion(child, visit)
		}
	}
}
