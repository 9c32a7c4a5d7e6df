// Package cli is the tlox command line: a REPL with no arguments, or a file
// runner with one.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ffcd00/tlox/internal/config"
	"github.com/ffcd00/tlox/internal/pipeline"
	"github.com/ffcd00/tlox/internal/vm"
	"github.com/sirupsen/logrus"
)

const usage = "Usage: tlox [path]"

// Run is the process entry point.
func Run() {
	os.Exit(Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Main runs the command with args (program name excluded) and returns the
// process exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintln(stderr, usage)
		return config.ExitUsage
	}

	opts := loadOptions(stderr)
	logger := newLogger(opts, stderr)
	machine := vm.New(
		vm.WithOutput(stdout),
		vm.WithErrorOutput(stderr),
		vm.WithLogger(logger),
		vm.WithConfig(opts),
	)

	if len(args) == 0 {
		return repl(machine, opts, stdin, stdout)
	}
	return runFile(machine, args[0], stderr)
}

// loadOptions resolves lox.yaml from the working directory. A broken file
// is reported and the defaults are used.
func loadOptions(stderr io.Writer) *config.Options {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	opts, err := config.Resolve(wd)
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
		return config.DefaultOptions()
	}
	return opts
}

func newLogger(opts *config.Options, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(opts.Level())
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger
}

// runFile interprets one source file and maps the outcome to an exit code.
func runFile(machine *vm.VM, path string, stderr io.Writer) int {
	ctx := pipeline.NewPipelineContext("")
	ctx.FilePath = path

	err := vm.NewPipeline(machine).Run(ctx).Err()
	switch {
	case err == nil:
		return 0
	case pipeline.IsIOError(err):
		fmt.Fprintf(stderr, "Could not read file \"%s\": %v\n", path, err)
		return config.ExitIOError
	}

	switch vm.ResultOf(err) {
	case vm.InterpretRuntimeError:
		return config.ExitRuntimeError
	default:
		return config.ExitCompileError
	}
}
