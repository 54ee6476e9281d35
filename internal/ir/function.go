package ir

// CoreFeature is a bit in the required-feature flag set a function may
// demand of the target device.
type CoreFeature uint32

const (
	FeatureLargeRegisterFile CoreFeature = 1 << iota
)

// WorkGroupSize is the (x, y) extent of a function's work-group. The zero
// value (0,0) means "pick heuristically".
type WorkGroupSize struct {
	X, Y uint32
}

// IsAuto reports whether the work-group size is the "pick heuristically"
// sentinel (0,0).
func (w WorkGroupSize) IsAuto() bool { return w.X == 0 && w.Y == 0 }

// Function is a named entity with a body region, a declared work-group
// size, a subgroup-size hint, and required core features.
type Function struct {
	ctx              *Context
	Name             string
	ParamTypes       []Type
	body             *Region
	params           []*Value
	WorkGroupSize    WorkGroupSize
	SubgroupHint     uint32 // 0 == unconstrained
	RequiredFeatures CoreFeature

	// ChosenWorkGroupSize/ChosenSubgroupSize are filled in by the work-group
	// size selection pass (internal/passes): computed when
	// WorkGroupSize.IsAuto(), otherwise copied from WorkGroupSize and
	// SubgroupHint.
	ChosenWorkGroupSize WorkGroupSize
	ChosenSubgroupSize  uint32
}

// NewFunction constructs a function named name with the given parameter
// types, whose body is a fresh collective region carrying one parameter
// value per paramTypes entry. Used by the builder (internal/builder).
func NewFunction(ctx *Context, name string, paramTypes []Type) *Function {
	return newFunction(ctx, name, paramTypes)
}

func newFunction(ctx *Context, name string, paramTypes []Type) *Function {
	f := &Function{ctx: ctx, Name: name, ParamTypes: paramTypes}
	f.body = newRegion(ctx, RegionCollective)
	f.params = make([]*Value, len(paramTypes))
	for i, t := range paramTypes {
		f.params[i] = f.body.addParam(t)
	}
	return f
}

func (f *Function) Context() *Context { return f.ctx }
func (f *Function) Body() *Region     { return f.body }
func (f *Function) Params() []*Value  { return f.params }
func (f *Function) Param(idx int) *Value { return f.params[idx] }

// HasFeature reports whether the required feature set includes feat.
func (f *Function) HasFeature(feat CoreFeature) bool { return f.RequiredFeatures&feat != 0 }
