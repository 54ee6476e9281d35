package ir

// Program is an ordered list of functions sharing one Context.
type Program struct {
	ctx   *Context
	funcs []*Function
}

// NewProgram creates an empty program owned by ctx.
func NewProgram(ctx *Context) *Program {
	return &Program{ctx: ctx}
}

func (p *Program) Context() *Context { return p.ctx }

func (p *Program) Functions() []*Function { return p.funcs }

func (p *Program) Function(idx int) *Function { return p.funcs[idx] }

func (p *Program) NumFunctions() int { return len(p.funcs) }

// FunctionByName returns the first function with the given name, or nil.
func (p *Program) FunctionByName(name string) *Function {
	for _, f := range p.funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddFunction appends a newly constructed function to the program. Used
// by the builder (internal/builder).
func (p *Program) AddFunction(f *Function) { p.funcs = append(p.funcs, f) }
