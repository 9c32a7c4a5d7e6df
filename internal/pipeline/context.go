package pipeline

import (
	"errors"
	"io/fs"
	"os"

	"github.com/hashicorp/go-multierror"
)

// PipelineContext carries one program through the stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string

	// Program is the artifact of the latest stage, such as the compiled
	// top-level function.
	Program interface{}

	Errors []error
}

func NewPipelineContext(sourceCode string) *PipelineContext {
	return &PipelineContext{SourceCode: sourceCode}
}

// AddError records a stage failure.
func (c *PipelineContext) AddError(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

func (c *PipelineContext) Failed() bool {
	return len(c.Errors) > 0
}

// Err combines the recorded errors, or returns nil if there are none.
func (c *PipelineContext) Err() error {
	if len(c.Errors) == 0 {
		return nil
	}
	return multierror.Append(nil, c.Errors...).ErrorOrNil()
}

// IsIOError reports whether err came from reading the source.
func IsIOError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

// SourceReader loads SourceCode from FilePath. It does nothing when the
// source is already set.
type SourceReader struct{}

func (SourceReader) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.SourceCode != "" || ctx.FilePath == "" {
		return ctx
	}
	data, err := os.ReadFile(ctx.FilePath)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.SourceCode = string(data)
	return ctx
}
