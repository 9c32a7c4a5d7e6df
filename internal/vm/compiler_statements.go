package vm

import (
	"github.com/ffcd00/tlox/internal/config"
	"github.com/ffcd00/tlox/internal/token"
)

// declaration compiles one declaration or statement, resynchronizing after
// an error so the next statement is still checked.
func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name")

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(OP_NIL)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration")

	c.defineVariable(global)
}

// funDeclaration marks the name initialized before compiling the body so
// the function can call itself recursively.
func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name")
	c.markInitialized()
	c.function(TYPE_FUNCTION)
	c.defineVariable(global)
}

// function compiles parameters and body into a new function, then emits the
// OP_CLOSURE that creates it at runtime in the enclosing chunk.
func (c *Compiler) function(funcType FunctionType) {
	c.pushState(funcType)
	c.beginScope()

	c.consume(token.LEFT_PAREN, "Expect '(' after function name")
	if !c.check(token.RIGHT_PAREN) {
		for {
			fn := c.state().function
			fn.Arity++
			if fn.Arity > config.UINT8Count-1 {
				c.errorAtCurrent("Can't have more than 255 parameters")
			}
			constant := c.parseVariable("Expect parameter name")
			c.defineVariable(constant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after parameters")
	c.consume(token.LEFT_BRACE, "Expect '{' before function body")
	c.block()

	// No endScope: the frame's slots go away with the frame.
	fn, upvalues := c.popState()
	c.emitBytes(byte(OP_CLOSURE), c.makeConstant(ObjVal(fn)))

	for _, uv := range upvalues {
		var isLocal byte
		if uv.IsLocal {
			isLocal = 1
		}
		c.emitBytes(isLocal, uv.Index)
	}
}

// classDeclaration binds the class name, then leaves the class on the stack
// while each method closure is attached to it by OP_METHOD.
func (c *Compiler) classDeclaration() {
	c.consume(token.IDENTIFIER, "Expect class name")
	className := c.previous
	nameConstant := c.identifierConstant(c.previous)
	c.declareVariable()

	c.emitBytes(byte(OP_CLASS), nameConstant)
	c.defineVariable(nameConstant)

	if c.match(token.LESS) {
		c.consume(token.IDENTIFIER, "Expect superclass name")
		c.error("Inheritance is not supported")
	}

	c.classDepth++
	defer func() { c.classDepth-- }()

	c.namedVariable(className, false)
	c.consume(token.LEFT_BRACE, "Expect '{' before class body")
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after class body")
	c.emitOp(OP_POP)
}

func (c *Compiler) method() {
	c.consume(token.IDENTIFIER, "Expect method name")
	constant := c.identifierConstant(c.previous)

	funcType := TYPE_METHOD
	if c.previous.Lexeme == initializerName {
		funcType = TYPE_INITIALIZER
	}
	c.function(funcType)

	c.emitBytes(byte(OP_METHOD), constant)
}

func (c *Compiler) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value")
	c.emitOp(OP_PRINT)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression")
	c.emitOp(OP_POP)
}

// ifStatement: the condition stays on the stack across the jump, so each
// branch starts by popping it.
func (c *Compiler) ifStatement() {
	c.consume(token.LEFT_PAREN, "Expect '(' after 'if'")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition")

	thenJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.statement()

	elseJump := c.emitJump(OP_JUMP)

	c.patchJump(thenJump)
	c.emitOp(OP_POP)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) returnStatement() {
	funcType := c.state().funcType
	if funcType == TYPE_SCRIPT {
		c.error("Can't return from top-level code")
	}

	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}

	if funcType == TYPE_INITIALIZER {
		c.error("Can't return a value from an initializer")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value")
	c.emitOp(OP_RETURN)
}
