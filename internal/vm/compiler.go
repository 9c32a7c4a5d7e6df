package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/ffcd00/tlox/internal/config"
	"github.com/ffcd00/tlox/internal/lexer"
	"github.com/ffcd00/tlox/internal/token"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Local represents a local variable during compilation
type Local struct {
	Name       token.Token
	Depth      int  // Scope depth where this local was declared, or uninitialized
	IsCaptured bool // True if captured by a nested function (needs to become upvalue)
}

// uninitialized marks a local that is declared but whose initializer is
// still being compiled.
const uninitialized = -1

// Upvalue represents a captured variable from an enclosing scope
type Upvalue struct {
	Index   uint8 // Index of the local/upvalue in enclosing scope
	IsLocal bool  // True if captures a local, false if captures another upvalue
}

// FunctionType distinguishes top-level code from functions
type FunctionType int

const (
	TYPE_SCRIPT FunctionType = iota
	TYPE_FUNCTION
	TYPE_METHOD
	TYPE_INITIALIZER
)

// funcState is the per-function part of compilation: the function being
// filled in, its locals, upvalues and scope depth.
type funcState struct {
	function *ObjFunction
	funcType FunctionType

	locals     []Local
	upvalues   []Upvalue
	scopeDepth int // Current scope depth (0 = globals)

	// constants dedups literal and name constants within this chunk
	constants map[Value]int
}

// parser is the state shared by every function being compiled: the token
// window and the error flags.
type parser struct {
	lexer    *lexer.Lexer
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool // suppress cascading reports until the next statement
	errors    *multierror.Error
}

// Compiler compiles Lox source straight to bytecode in one pass.
type Compiler struct {
	parser

	// states is the stack of functions being compiled; the last one is
	// active. Nested `fun` bodies push, finishing them pops.
	states []*funcState

	// classDepth counts the class bodies enclosing the current token, for
	// rejecting `this` outside methods.
	classDepth int

	strings *StringTable

	// Diagnostics sink (defaults to os.Stderr)
	errOut io.Writer

	log       logrus.FieldLogger
	printCode bool
}

// CompileOption configures a Compiler.
type CompileOption func(*Compiler)

// WithCompileErrorOutput sets where compile errors are reported as they are found.
func WithCompileErrorOutput(w io.Writer) CompileOption {
	return func(c *Compiler) {
		if w != nil {
			c.errOut = w
		}
	}
}

// WithCompileLogger sets the logger used for debug output.
func WithCompileLogger(log logrus.FieldLogger) CompileOption {
	return func(c *Compiler) {
		if log != nil {
			c.log = log
		}
	}
}

// WithCompilePrintCode enables logging the disassembly of each finished function.
func WithCompilePrintCode(enabled bool) CompileOption {
	return func(c *Compiler) {
		c.printCode = enabled
	}
}

// NewCompiler creates a compiler interning into strings. Pass the VM's table
// so constants and runtime strings share identity.
func NewCompiler(strings *StringTable, opts ...CompileOption) *Compiler {
	if strings == nil {
		strings = NewStringTable()
	}
	c := &Compiler{
		strings: strings,
		errOut:  os.Stderr,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles a whole program into the implicit top-level function.
// Every error found is reported; if there was any, the function is nil and
// the error is a *multierror.Error of *CompileError.
func (c *Compiler) Compile(source string) (*ObjFunction, error) {
	c.parser = parser{lexer: lexer.New(source)}
	c.states = c.states[:0]
	c.classDepth = 0
	c.pushState(TYPE_SCRIPT)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	fn, _ := c.popState()
	if c.hadError {
		c.errors.ErrorFormat = formatCompileErrors
		return nil, c.errors
	}
	return fn, nil
}

// Compile is a shorthand for NewCompiler(strings, opts...).Compile(source).
func Compile(source string, strings *StringTable, opts ...CompileOption) (*ObjFunction, error) {
	return NewCompiler(strings, opts...).Compile(source)
}

func (c *Compiler) state() *funcState {
	return c.states[len(c.states)-1]
}

func (c *Compiler) currentChunk() *Chunk {
	return c.state().function.Chunk
}

// pushState starts compiling a new function body. Slot 0 of every frame
// holds the callee itself, so it is reserved: nameless for functions, and
// named `this` for methods, whose slot 0 holds the receiver.
func (c *Compiler) pushState(funcType FunctionType) {
	st := &funcState{
		function:  newFunction(),
		funcType:  funcType,
		locals:    make([]Local, 0, config.UINT8Count),
		constants: make(map[Value]int),
	}
	if funcType != TYPE_SCRIPT {
		st.function.Name = c.strings.Intern(c.previous.Lexeme)
	}
	slotZero := Local{Depth: 0}
	if funcType == TYPE_METHOD || funcType == TYPE_INITIALIZER {
		slotZero.Name = token.Token{Type: token.THIS, Lexeme: "this"}
	}
	st.locals = append(st.locals, slotZero)
	c.states = append(c.states, st)
}

// popState finishes the active function with an implicit `return nil` and
// returns it with the upvalues its OP_CLOSURE must describe.
func (c *Compiler) popState() (*ObjFunction, []Upvalue) {
	c.emitReturn()
	st := c.state()
	fn := st.function
	fn.UpvalueCount = len(st.upvalues)

	if c.printCode && !c.hadError {
		name := fn.DisplayName()
		if name == "" {
			name = "<script>"
		}
		c.log.Debugf("\n%s", Disassemble(fn.Chunk, name))
	}

	c.states = c.states[:len(c.states)-1]
	return fn, st.upvalues
}

// Token window

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lexer.NextToken()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.TokenType) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.TokenType, message string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// Error reporting

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	err := &CompileError{Line: tok.Line, Message: message}
	switch tok.Type {
	case token.EOF:
		err.Where = " at end"
	case token.ERROR:
		// The message already describes the bad lexeme.
	default:
		err.Where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}

	fmt.Fprintln(c.errOut, err.Error())
	c.errors = multierror.Append(c.errors, err)
}

// synchronize skips tokens until something that looks like a statement
// boundary so one mistake reports one error.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}
