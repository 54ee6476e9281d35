package ir

// Opcode identifies an instruction's operation: a flat byte-sized enum
// with one constant per operation, grouped by family with comments
// instead of separate types.
type Opcode uint8

const (
	// Builtins / constants
	OpConstant Opcode = iota
	OpUndef

	// Memory
	OpAlloca
	OpLoad
	OpStore
	OpSubview
	OpExpand
	OpFuse
	OpCast

	// BLAS family (3-operand: A, B -> C; hadamard is the 2-operand
	// elementwise A, B -> B)
	OpGemm
	OpGemv
	OpGer
	OpHadamard

	// BLAS family (2-operand: A -> C, or reduction)
	OpAxpby
	OpSum
	OpCumsum

	// Cooperative matrix
	OpCoopMatrixLoad
	OpCoopMatrixStore
	OpCoopMatrixMulAdd
	OpCoopMatrixScale
	OpCoopMatrixApply
	OpCoopMatrixReduce

	// Structured control flow
	OpFor
	OpForeach
	OpParallel
	OpIf
	OpYield

	// Synchronization
	OpBarrier

	// Pseudo-instructions inserted by analyses/passes
	OpLifetimeStop
)

var opcodeNames = map[Opcode]string{
	OpConstant:         "constant",
	OpUndef:            "undef",
	OpAlloca:           "alloca",
	OpLoad:             "load",
	OpStore:            "store",
	OpSubview:          "subview",
	OpExpand:           "expand",
	OpFuse:             "fuse",
	OpCast:             "cast",
	OpGemm:             "gemm",
	OpGemv:             "gemv",
	OpGer:              "ger",
	OpHadamard:         "hadamard",
	OpAxpby:            "axpby",
	OpSum:              "sum",
	OpCumsum:           "cumsum",
	OpCoopMatrixLoad:   "cooperative_matrix_load",
	OpCoopMatrixStore:  "cooperative_matrix_store",
	OpCoopMatrixMulAdd: "cooperative_matrix_mul_add",
	OpCoopMatrixScale:  "cooperative_matrix_scale",
	OpCoopMatrixApply:  "cooperative_matrix_apply",
	OpCoopMatrixReduce: "cooperative_matrix_reduce",
	OpFor:              "for",
	OpForeach:          "foreach",
	OpParallel:         "parallel",
	OpIf:               "if",
	OpYield:            "yield",
	OpBarrier:          "barrier",
	OpLifetimeStop:     "lifetime_stop",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "<unknown opcode>"
}

// blasShapedOps is the set named by the GLOSSARY's "BLAS-shaped
// instruction".
var blasShapedOps = map[Opcode]bool{
	OpAxpby: true, OpSum: true, OpCumsum: true,
	OpGemm: true, OpGemv: true, OpGer: true, OpHadamard: true,
}

func (op Opcode) IsBLASShaped() bool { return blasShapedOps[op] }

// collectiveOps is the set of opcodes classified "collective" by the
// verifier: illegal inside SPMD regions.
var collectiveOps = map[Opcode]bool{
	OpGemm: true, OpGemv: true, OpGer: true, OpHadamard: true,
	OpAlloca: true, OpBarrier: true, OpCumsum: true, OpSum: true,
}

// IsCollective reports whether op must run cooperatively across every
// lane of its enclosing region, vs. IsReplicated (every lane runs it
// independently).
func (op Opcode) IsCollective() bool { return collectiveOps[op] }
func (op Opcode) IsReplicated() bool { return !collectiveOps[op] }

// spmdOps is the set of opcodes whose single child region the verifier
// marks RegionSPMD.
var spmdOps = map[Opcode]bool{
	OpForeach: true, OpParallel: true, OpCoopMatrixApply: true,
}

func (op Opcode) ForcesSPMDRegion() bool { return spmdOps[op] }
