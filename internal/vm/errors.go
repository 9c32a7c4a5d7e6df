package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ffcd00/tlox/internal/config"
	"github.com/hashicorp/go-multierror"
)

// InterpretResult is the outcome of running one program.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// ResultOf classifies an error returned by Compile or Run.
func ResultOf(err error) InterpretResult {
	if err == nil {
		return InterpretOK
	}
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return InterpretRuntimeError
	}
	return InterpretCompileError
}

// CompileError is one diagnostic reported by the compiler.
type CompileError struct {
	Line    int
	Where   string // " at 'x'", " at end" or "" for lexical errors
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// CompileErrors unpacks the individual diagnostics from an error returned by
// Compile.
func CompileErrors(err error) []*CompileError {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		var single *CompileError
		if errors.As(err, &single) {
			return []*CompileError{single}
		}
		return nil
	}
	out := make([]*CompileError, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		var ce *CompileError
		if errors.As(e, &ce) {
			out = append(out, ce)
		}
	}
	return out
}

func formatCompileErrors(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// TraceLine is one frame of a runtime error's call stack.
type TraceLine struct {
	Line     int
	Function string // empty for the top-level script
}

func (t TraceLine) String() string {
	if t.Function == "" {
		return fmt.Sprintf("[line %d] in %s", t.Line, config.ScriptName)
	}
	return fmt.Sprintf("[line %d] in %s()", t.Line, t.Function)
}

// RuntimeError aborts a run. Trace lists the live frames innermost first.
type RuntimeError struct {
	Message string
	Trace   []TraceLine
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString("runtime error: ")
	sb.WriteString(e.Message)
	for _, t := range e.Trace {
		sb.WriteString("\n")
		sb.WriteString(t.String())
	}
	return sb.String()
}

// Sentinels raised by operand checks inside the dispatch loop. The loop turns
// them into a RuntimeError carrying the same message.
var (
	errOperandsNumbers    = errors.New("Operands must be numbers")
	errOperandNumber      = errors.New("Operand must be a number")
	errOperandsAddable    = errors.New("Operands must be two numbers or two strings")
	errNotCallable        = errors.New("Can only call functions and classes")
	errStackOverflow      = errors.New("Stack overflow")
	errPropertyNonObject  = errors.New("Only instances have properties")
	errFieldOnNonInstance = errors.New("Only instances have fields")
)
