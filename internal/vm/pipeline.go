package vm

import (
	"fmt"

	"github.com/ffcd00/tlox/internal/pipeline"
)

// CompileProcessor compiles ctx.SourceCode into a top-level function stored
// in ctx.Program.
type CompileProcessor struct {
	VM *VM
}

func (p *CompileProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	fn, err := p.VM.Compile(ctx.SourceCode)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Program = fn
	return ctx
}

// RunProcessor runs the function left in ctx.Program by CompileProcessor.
type RunProcessor struct {
	VM *VM
}

func (p *RunProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	fn, ok := ctx.Program.(*ObjFunction)
	if !ok {
		ctx.AddError(fmt.Errorf("nothing to run: program is %T", ctx.Program))
		return ctx
	}
	ctx.AddError(p.VM.Run(fn))
	return ctx
}

// NewPipeline builds the read, compile and run stages against v.
func NewPipeline(v *VM) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.SourceReader{},
		&CompileProcessor{VM: v},
		&RunProcessor{VM: v},
	).WithLogger(v.log)
}
