// Package pipeline chains the stages that take a program from a file or a
// REPL line to its execution.
package pipeline

import (
	"github.com/sirupsen/logrus"
)

// Processor is one stage of a pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
	log        logrus.FieldLogger
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors, log: logrus.StandardLogger()}
}

// WithLogger sets the logger used for stage events.
func (p *Pipeline) WithLogger(log logrus.FieldLogger) *Pipeline {
	p.log = log
	return p
}

// Run executes the pipeline. A stage that records an error stops it: later
// stages consume what the failed one would have produced.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for i, processor := range p.processors {
		ctx = processor.Process(ctx)
		if ctx.Failed() {
			p.log.WithFields(logrus.Fields{
				"stage": i,
				"file":  ctx.FilePath,
			}).Debug("pipeline stopped")
			break
		}
	}
	return ctx
}
