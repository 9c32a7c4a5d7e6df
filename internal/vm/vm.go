package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ffcd00/tlox/internal/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// CallFrame represents a single ongoing function call
type CallFrame struct {
	closure *ObjClosure // The closure being executed
	chunk   *Chunk      // Shortcut to closure.Function.Chunk
	ip      int         // Instruction pointer within this frame's chunk
	base    int         // Stack index of slot 0 (the callee or receiver)
}

// VM is the virtual machine that executes bytecode. A VM is not safe for
// concurrent use; run independent programs on independent VMs.
type VM struct {
	// stack is allocated once at full capacity and never grows, so open
	// upvalues can point straight into it.
	stack []Value
	sp    int // Stack pointer (points to next free slot)

	frames     []CallFrame
	frameCount int
	frame      *CallFrame // Current frame (for convenience)

	globals map[*ObjString]Value
	strings *StringTable

	// openUpvalues holds the upvalues still aliasing stack slots, sorted by
	// slot in ascending order. At most one exists per slot.
	openUpvalues []*ObjUpvalue

	out    io.Writer // print sink (defaults to os.Stdout)
	errOut io.Writer // diagnostics sink (defaults to os.Stderr)

	id  uuid.UUID
	log *logrus.Entry

	framesMax      int
	traceExecution bool
	printCode      bool
}

// Option configures a VM.
type Option func(*VM)

// WithOutput sets the sink for `print`.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithErrorOutput sets the sink for compile and runtime errors.
func WithErrorOutput(w io.Writer) Option {
	return func(vm *VM) { vm.errOut = w }
}

// WithLogger sets the logger; the VM tags its entries with its id.
func WithLogger(log logrus.FieldLogger) Option {
	return func(vm *VM) { vm.log = log.WithField("vm", vm.id.String()) }
}

// WithMaxFrames bounds the call depth.
func WithMaxFrames(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.framesMax = n
		}
	}
}

// WithTraceExecution logs every instruction and the stack before it runs.
func WithTraceExecution(enabled bool) Option {
	return func(vm *VM) { vm.traceExecution = enabled }
}

// WithPrintCode logs the disassembly of every compiled function.
func WithPrintCode(enabled bool) Option {
	return func(vm *VM) { vm.printCode = enabled }
}

// WithConfig applies the debug switches and limits from a loaded config.
func WithConfig(opts *config.Options) Option {
	return func(vm *VM) {
		if opts == nil {
			return
		}
		WithMaxFrames(opts.MaxFrames)(vm)
		vm.traceExecution = opts.TraceExecution
		vm.printCode = opts.PrintCode
	}
}

// New creates a VM with empty globals and string table.
func New(opts ...Option) *VM {
	vm := &VM{
		globals:   make(map[*ObjString]Value),
		strings:   NewStringTable(),
		out:       os.Stdout,
		errOut:    os.Stderr,
		id:        uuid.New(),
		framesMax: config.DefaultFramesMax,
	}
	vm.log = logrus.StandardLogger().WithField("vm", vm.id.String())

	for _, opt := range opts {
		opt(vm)
	}

	vm.stack = make([]Value, vm.framesMax*config.UINT8Count)
	vm.frames = make([]CallFrame, vm.framesMax)
	return vm
}

// SetOutput sets the output writer for print
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetErrorOutput sets the writer for compile and runtime errors.
func (vm *VM) SetErrorOutput(w io.Writer) {
	vm.errOut = w
}

// ID identifies this VM in log entries.
func (vm *VM) ID() uuid.UUID {
	return vm.id
}

// Strings returns the intern table shared by this VM and its compiler.
func (vm *VM) Strings() *StringTable {
	return vm.strings
}

// Globals returns a snapshot of the global variables by name.
func (vm *VM) Globals() map[string]Value {
	out := make(map[string]Value, len(vm.globals))
	for name, value := range vm.globals {
		out[name.Chars] = value
	}
	return out
}

// Global looks up one global variable.
func (vm *VM) Global(name string) (Value, bool) {
	key, ok := vm.strings.Lookup(name)
	if !ok {
		return NilVal(), false
	}
	value, ok := vm.globals[key]
	return value, ok
}

// Reset returns the VM to its freshly created state: no globals, no
// interned strings, empty stack.
func (vm *VM) Reset() {
	vm.resetStack()
	vm.globals = make(map[*ObjString]Value)
	vm.strings.Clear()
}

func (vm *VM) resetStack() {
	for i := 0; i < vm.sp; i++ {
		vm.stack[i] = Value{}
	}
	vm.sp = 0
	vm.frameCount = 0
	vm.frame = nil
	vm.openUpvalues = vm.openUpvalues[:0]
}

// Compile compiles source against this VM's string table with its output
// and debug settings.
func (vm *VM) Compile(source string) (*ObjFunction, error) {
	return Compile(source, vm.strings,
		WithCompileErrorOutput(vm.errOut),
		WithCompileLogger(vm.log),
		WithCompilePrintCode(vm.printCode),
	)
}

// Interpret compiles and runs one program. Globals and interned strings
// persist across calls, which is what the REPL relies on.
func (vm *VM) Interpret(source string) InterpretResult {
	fn, err := vm.Compile(source)
	if err != nil {
		vm.log.WithField("errors", len(CompileErrors(err))).Debug("compile failed")
		return InterpretCompileError
	}
	return ResultOf(vm.Run(fn))
}

// Run executes a compiled top-level function to completion. A runtime error
// is reported to the error output, the stack is reset, and the error is
// returned as a *RuntimeError.
func (vm *VM) Run(fn *ObjFunction) error {
	vm.resetStack()
	vm.log.Debug("run started")

	closure := newClosure(fn)
	vm.push(ObjVal(closure))
	if err := vm.call(closure, 0); err != nil {
		return vm.runtimeError(err)
	}

	if err := vm.execute(); err != nil {
		return vm.runtimeError(err)
	}
	vm.log.Debug("run finished")
	return nil
}

// execute is the main interpreter loop
func (vm *VM) execute() (err error) {
	// push panics when a frame outgrows the fixed stack.
	defer func() {
		if r := recover(); r != nil {
			if r != errStackOverflow {
				panic(r)
			}
			err = errStackOverflow
		}
	}()

	for {
		done, stepErr := vm.step()
		if stepErr != nil {
			return stepErr
		}
		if done {
			return nil
		}
	}
}

// Stack operations

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		panic(errStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// Read helpers

func (vm *VM) readByte() byte {
	b := vm.frame.chunk.Code[vm.frame.ip]
	vm.frame.ip++
	return b
}

func (vm *VM) readShort() int {
	v := vm.frame.chunk.ReadShort(vm.frame.ip)
	vm.frame.ip += 2
	return v
}

func (vm *VM) readConstant() Value {
	return vm.frame.chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *ObjString {
	return vm.readConstant().AsString()
}

// runtimeError turns err into a *RuntimeError with the current call stack,
// reports it and resets the stack so the VM can run again.
func (vm *VM) runtimeError(err error) *RuntimeError {
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		rtErr = &RuntimeError{Message: err.Error()}
	}

	rtErr.Trace = make([]TraceLine, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		// ip already points past the failing instruction.
		rtErr.Trace = append(rtErr.Trace, TraceLine{
			Line:     frame.chunk.LineAt(frame.ip - 1),
			Function: frame.closure.Function.DisplayName(),
		})
	}

	fmt.Fprintln(vm.errOut, rtErr.Error())
	vm.log.WithField("error", rtErr.Message).Debug("run aborted")
	vm.resetStack()
	return rtErr
}

// runtimeErrorf builds a runtime error with a formatted message.
func runtimeErrorf(format string, args ...interface{}) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// captureUpvalue returns the open upvalue for a stack slot, creating it if
// no closure has captured that slot yet.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	i, found := slices.BinarySearchFunc(vm.openUpvalues, slot, func(uv *ObjUpvalue, slot int) int {
		return uv.Slot - slot
	})
	if found {
		return vm.openUpvalues[i]
	}

	created := &ObjUpvalue{Slot: slot, Location: &vm.stack[slot]}
	vm.openUpvalues = slices.Insert(vm.openUpvalues, i, created)
	return created
}

// closeUpvalues closes all upvalues that point to stack slots >= lastSlot.
func (vm *VM) closeUpvalues(lastSlot int) {
	n := len(vm.openUpvalues)
	for n > 0 && vm.openUpvalues[n-1].Slot >= lastSlot {
		vm.openUpvalues[n-1].close()
		vm.openUpvalues[n-1] = nil
		n--
	}
	vm.openUpvalues = vm.openUpvalues[:n]
}

// traceInstruction logs the stack and the instruction about to run.
func (vm *VM) traceInstruction() {
	var sb strings.Builder
	sb.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		sb.WriteString("[ ")
		sb.WriteString(vm.stack[i].String())
		sb.WriteString(" ]")
	}
	text, _ := DisassembleInstruction(vm.frame.chunk, vm.frame.ip)
	vm.log.Tracef("%s\n%s", sb.String(), text)
}
