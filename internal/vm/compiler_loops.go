package vm

import "github.com/ffcd00/tlox/internal/token"

func (c *Compiler) whileStatement() {
	loopStart := c.currentChunk().Len()
	c.consume(token.LEFT_PAREN, "Expect '(' after 'while'")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition")

	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(OP_POP)
}

// forStatement compiles
//
//	for (init; cond; incr) body
//
// as
//
//	init
//	start: cond; JUMP_IF_FALSE exit; POP
//	       JUMP body
//	incr:  incr; POP; LOOP start
//	body:  body; LOOP incr
//	exit:  POP
//
// When init declares a variable, the body gets its own copy of it in an
// extra scope, written back before the increment. Closures made in the body
// therefore capture the value of that iteration.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LEFT_PAREN, "Expect '(' after 'for'")

	loopVar := -1
	switch {
	case c.match(token.SEMICOLON):
		// No initializer.
	case c.match(token.VAR):
		c.varDeclaration()
		loopVar = len(c.state().locals) - 1
	default:
		c.expressionStatement()
	}

	loopStart := c.currentChunk().Len()
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition")

		// Jump out of the loop if the condition is false.
		exitJump = c.emitJump(OP_JUMP_IF_FALSE)
		c.emitOp(OP_POP)
	}

	if !c.match(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(OP_JUMP)
		incrementStart := c.currentChunk().Len()
		c.expression()
		c.emitOp(OP_POP)
		c.consume(token.RIGHT_PAREN, "Expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	if loopVar >= 0 {
		c.forBody(loopVar)
	} else {
		c.statement()
	}
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(OP_POP)
	}

	c.endScope()
}

// forBody compiles the loop body against a fresh copy of the loop variable
// in slot loopVar.
func (c *Compiler) forBody(loopVar int) {
	st := c.state()
	name := st.locals[loopVar].Name

	c.beginScope()
	c.emitBytes(byte(OP_GET_LOCAL), byte(loopVar))
	c.addLocal(name)
	c.markInitialized()
	inner := len(st.locals) - 1

	c.statement()

	c.emitBytes(byte(OP_GET_LOCAL), byte(inner))
	c.emitBytes(byte(OP_SET_LOCAL), byte(loopVar))
	c.emitOp(OP_POP)
	c.endScope()
}
