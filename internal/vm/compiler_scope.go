package vm

import (
	"math"

	"github.com/ffcd00/tlox/internal/config"
	"github.com/ffcd00/tlox/internal/token"
	"golang.org/x/exp/slices"
)

// beginScope starts a new scope
func (c *Compiler) beginScope() {
	c.state().scopeDepth++
}

// endScope ends the current scope and emits cleanup code: a POP for each
// local declared in it, or CLOSE_UPVALUE when a closure captured it.
func (c *Compiler) endScope() {
	st := c.state()
	st.scopeDepth--

	for len(st.locals) > 0 && st.locals[len(st.locals)-1].Depth > st.scopeDepth {
		if st.locals[len(st.locals)-1].IsCaptured {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
		st.locals = st.locals[:len(st.locals)-1]
	}
}

// addLocal adds a local variable to the current scope, not yet usable.
func (c *Compiler) addLocal(name token.Token) {
	st := c.state()
	if len(st.locals) == config.UINT8Count {
		c.error("Too many local variables in function")
		return
	}
	st.locals = append(st.locals, Local{Name: name, Depth: uninitialized})
}

// declareVariable records a local for the name just consumed. Globals are
// late bound and need no declaration.
func (c *Compiler) declareVariable() {
	st := c.state()
	if st.scopeDepth == 0 {
		return
	}

	name := c.previous
	for i := len(st.locals) - 1; i >= 0; i-- {
		local := &st.locals[i]
		if local.Depth != uninitialized && local.Depth < st.scopeDepth {
			break
		}
		if local.Name.Lexeme == name.Lexeme {
			c.error("Already a variable with this name in this scope")
		}
	}

	c.addLocal(name)
}

// parseVariable consumes a variable name and declares it. It returns the
// name constant for globals, or 0 for locals.
func (c *Compiler) parseVariable(errorMessage string) byte {
	c.consume(token.IDENTIFIER, errorMessage)

	c.declareVariable()
	if c.state().scopeDepth > 0 {
		return 0
	}

	return c.identifierConstant(c.previous)
}

func (c *Compiler) markInitialized() {
	st := c.state()
	if st.scopeDepth == 0 {
		return
	}
	st.locals[len(st.locals)-1].Depth = st.scopeDepth
}

// defineVariable makes a declared variable usable. A local's value is
// already in its slot; a global is popped into the globals table.
func (c *Compiler) defineVariable(global byte) {
	if c.state().scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(OP_DEFINE_GLOBAL), global)
}

func (c *Compiler) identifierConstant(name token.Token) byte {
	return c.makeConstant(ObjVal(c.strings.Intern(name.Lexeme)))
}

// resolveLocal looks up name in the locals of states[depth], innermost
// first. It returns the slot, or -1 if there is no such local.
func (c *Compiler) resolveLocal(depth int, name token.Token) int {
	st := c.states[depth]
	for i := len(st.locals) - 1; i >= 0; i-- {
		local := &st.locals[i]
		if local.Name.Lexeme == name.Lexeme {
			if local.Depth == uninitialized {
				c.error("Can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue looks for name in the functions enclosing states[depth],
// threading an upvalue through every function in between. It returns the
// upvalue index in states[depth], or -1 for a global.
func (c *Compiler) resolveUpvalue(depth int, name token.Token) int {
	if depth == 0 {
		return -1
	}

	if local := c.resolveLocal(depth-1, name); local != -1 {
		c.states[depth-1].locals[local].IsCaptured = true
		return c.addUpvalue(depth, uint8(local), true)
	}

	if upvalue := c.resolveUpvalue(depth-1, name); upvalue != -1 {
		return c.addUpvalue(depth, uint8(upvalue), false)
	}

	return -1
}

// addUpvalue adds an upvalue to the function at states[depth], reusing an
// existing entry for the same variable.
func (c *Compiler) addUpvalue(depth int, index uint8, isLocal bool) int {
	st := c.states[depth]
	uv := Upvalue{Index: index, IsLocal: isLocal}
	if i := slices.Index(st.upvalues, uv); i != -1 {
		return i
	}

	if len(st.upvalues) == config.UINT8Count {
		c.error("Too many closure variables in function")
		return 0
	}

	st.upvalues = append(st.upvalues, uv)
	return len(st.upvalues) - 1
}

// emit helpers

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitBytes(bytes ...byte) {
	for _, b := range bytes {
		c.emitByte(b)
	}
}

func (c *Compiler) emitOp(op Opcode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitOps(ops ...Opcode) {
	for _, op := range ops {
		c.emitOp(op)
	}
}

// emitReturn emits the implicit return at the end of a body: the receiver
// for initializers, nil otherwise.
func (c *Compiler) emitReturn() {
	if c.state().funcType == TYPE_INITIALIZER {
		c.emitBytes(byte(OP_GET_LOCAL), 0)
	} else {
		c.emitOp(OP_NIL)
	}
	c.emitOp(OP_RETURN)
}

// makeConstant adds value to the current chunk's pool, reusing the slot of
// an equal number or string constant emitted earlier in the same function.
func (c *Compiler) makeConstant(value Value) byte {
	st := c.state()
	dedup := value.IsNumber() || value.IsString()
	if dedup {
		if index, ok := st.constants[value]; ok {
			return byte(index)
		}
	}

	index := c.currentChunk().AddConstant(value)
	if index > math.MaxUint8 {
		c.error("Too many constants in one chunk")
		return 0
	}
	if dedup {
		st.constants[value] = index
	}
	return byte(index)
}

func (c *Compiler) emitConstant(value Value) {
	c.emitBytes(byte(OP_CONSTANT), c.makeConstant(value))
}

// emitJump writes a jump with a placeholder operand and returns the offset
// of that operand for patchJump.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitBytes(0xff, 0xff)
	return c.currentChunk().Len() - 2
}

// patchJump points the jump whose operand is at offset to the current end
// of the chunk.
func (c *Compiler) patchJump(offset int) {
	chunk := c.currentChunk()
	// -2 to adjust for the jump offset itself.
	jump := chunk.Len() - offset - 2

	if jump > math.MaxUint16 {
		c.error("Too much code to jump over")
	}

	chunk.Code[offset] = byte((jump >> 8) & 0xff)
	chunk.Code[offset+1] = byte(jump & 0xff)
}

// emitLoop writes a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)

	offset := c.currentChunk().Len() - loopStart + 2
	if offset > math.MaxUint16 {
		c.error("Loop body too large")
	}

	c.emitBytes(byte((offset>>8)&0xff), byte(offset&0xff))
}
