package vm

import (
	"strconv"

	"github.com/ffcd00/tlox/internal/config"
	"github.com/ffcd00/tlox/internal/token"
)

// Precedence levels, lowest to highest.
type Precedence int

const (
	PREC_NONE       Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * /
	PREC_UNARY                 // ! -
	PREC_CALL                  // . ()
	PREC_PRIMARY
)

// ParseFn handles one token in prefix or infix position. canAssign is true
// only where an assignment target may appear.
type ParseFn func(c *Compiler, canAssign bool)

// ParseRule is a row of the Pratt table.
type ParseRule struct {
	Prefix     ParseFn
	Infix      ParseFn
	Precedence Precedence
}

// rules is indexed by token type. Filled in init because the handlers refer
// back to the table.
var rules [token.Count]ParseRule

func init() {
	rules = [token.Count]ParseRule{
		token.LEFT_PAREN:    {(*Compiler).grouping, (*Compiler).call, PREC_CALL},
		token.DOT:           {nil, (*Compiler).dot, PREC_CALL},
		token.MINUS:         {(*Compiler).unary, (*Compiler).binary, PREC_TERM},
		token.PLUS:          {nil, (*Compiler).binary, PREC_TERM},
		token.SLASH:         {nil, (*Compiler).binary, PREC_FACTOR},
		token.STAR:          {nil, (*Compiler).binary, PREC_FACTOR},
		token.BANG:          {(*Compiler).unary, nil, PREC_NONE},
		token.BANG_EQUAL:    {nil, (*Compiler).binary, PREC_EQUALITY},
		token.EQUAL_EQUAL:   {nil, (*Compiler).binary, PREC_EQUALITY},
		token.GREATER:       {nil, (*Compiler).binary, PREC_COMPARISON},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, PREC_COMPARISON},
		token.LESS:          {nil, (*Compiler).binary, PREC_COMPARISON},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, PREC_COMPARISON},
		token.IDENTIFIER:    {(*Compiler).variable, nil, PREC_NONE},
		token.STRING:        {(*Compiler).string, nil, PREC_NONE},
		token.NUMBER:        {(*Compiler).number, nil, PREC_NONE},
		token.AND:           {nil, (*Compiler).and, PREC_AND},
		token.OR:            {nil, (*Compiler).or, PREC_OR},
		token.FALSE:         {(*Compiler).literal, nil, PREC_NONE},
		token.NIL:           {(*Compiler).literal, nil, PREC_NONE},
		token.TRUE:          {(*Compiler).literal, nil, PREC_NONE},
		token.THIS:          {(*Compiler).this, nil, PREC_NONE},
		token.SUPER:         {(*Compiler).super, nil, PREC_NONE},
	}
}

func getRule(t token.TokenType) *ParseRule {
	return &rules[t]
}

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence parses any expression whose operators bind at least as
// tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).Prefix
	if prefix == nil {
		c.error("Expect expression")
		return
	}

	canAssign := prec <= PREC_ASSIGNMENT
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).Precedence {
		c.advance()
		getRule(c.previous.Type).Infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target")
	}
}

func (c *Compiler) number(_ bool) {
	value, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal")
		return
	}
	c.emitConstant(NumberVal(value))
}

func (c *Compiler) string(_ bool) {
	lexeme := c.previous.Lexeme
	c.emitConstant(ObjVal(c.strings.Intern(lexeme[1 : len(lexeme)-1])))
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.NIL:
		c.emitOp(OP_NIL)
	case token.TRUE:
		c.emitOp(OP_TRUE)
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression")
}

func (c *Compiler) unary(_ bool) {
	operatorType := c.previous.Type

	// Compile the operand.
	c.parsePrecedence(PREC_UNARY)

	switch operatorType {
	case token.BANG:
		c.emitOp(OP_NOT)
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	}
}

// binary compiles the right operand one level tighter than the operator so
// that operators of equal precedence associate to the left.
func (c *Compiler) binary(_ bool) {
	operatorType := c.previous.Type
	rule := getRule(operatorType)
	c.parsePrecedence(rule.Precedence + 1)

	switch operatorType {
	case token.BANG_EQUAL:
		c.emitOps(OP_EQUAL, OP_NOT)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL)
	case token.GREATER:
		c.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOps(OP_LESS, OP_NOT)
	case token.LESS:
		c.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		c.emitOps(OP_GREATER, OP_NOT)
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.STAR:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	}
}

// and leaves the left operand when it is falsey, otherwise discards it and
// evaluates the right one.
func (c *Compiler) and(_ bool) {
	endJump := c.emitJump(OP_JUMP_IF_FALSE)

	c.emitOp(OP_POP)
	c.parsePrecedence(PREC_AND)

	c.patchJump(endJump)
}

// or leaves the left operand when it is truthy.
func (c *Compiler) or(_ bool) {
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	endJump := c.emitJump(OP_JUMP)

	c.patchJump(elseJump)
	c.emitOp(OP_POP)

	c.parsePrecedence(PREC_OR)
	c.patchJump(endJump)
}

func (c *Compiler) call(_ bool) {
	argCount := c.argumentList()
	c.emitBytes(byte(OP_CALL), argCount)
}

func (c *Compiler) argumentList() byte {
	argCount := 0
	if !c.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if argCount == config.UINT8Count-1 {
				c.error("Can't have more than 255 arguments")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after arguments")
	return byte(argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENTIFIER, "Expect property name after '.'")
	name := c.identifierConstant(c.previous)

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitBytes(byte(OP_SET_PROPERTY), name)
	} else {
		c.emitBytes(byte(OP_GET_PROPERTY), name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

// namedVariable emits a get, or a set when an assignment follows, resolving
// the name as a local, then an upvalue, then a global.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp Opcode
	var arg byte

	depth := len(c.states) - 1
	if slot := c.resolveLocal(depth, name); slot != -1 {
		arg = byte(slot)
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	} else if index := c.resolveUpvalue(depth, name); index != -1 {
		arg = byte(index)
		getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitBytes(byte(setOp), arg)
	} else {
		c.emitBytes(byte(getOp), arg)
	}
}

// this reads slot 0 of the enclosing method; it is never assignable.
func (c *Compiler) this(_ bool) {
	if c.classDepth == 0 {
		c.error("Can't use 'this' outside of a class")
		return
	}
	c.variable(false)
}

func (c *Compiler) super(_ bool) {
	c.error("Can't use 'super'; classes have no superclass")
}
