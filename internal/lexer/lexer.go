package lexer

import (
	"github.com/ffcd00/tlox/internal/token"
)

// Lexer turns Lox source into tokens on demand. It keeps no lookahead beyond
// one byte, so the compiler drives it one NextToken call at a time.
type Lexer struct {
	input        string
	start        int  // offset of the first byte of the lexeme being scanned
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
}

func New(input string) *Lexer {
	l := &Lexer{}
	l.Reset(input)
	return l
}

// Reset rewinds the lexer onto a new source so one instance can serve every
// line of a REPL session.
func (l *Lexer) Reset(input string) {
	l.input = input
	l.start = 0
	l.position = 0
	l.readPosition = 0
	l.ch = 0
	l.line = 1
	l.readChar()
}

// Line returns the line the lexer is currently on.
func (l *Lexer) Line() int {
	return l.line
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		return
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// NextToken scans and returns the next token. Once the input is exhausted
// every call yields EOF.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	l.start = l.position

	if l.atEnd() {
		return l.makeToken(token.EOF)
	}

	ch := l.ch
	l.readChar()

	if isLetter(ch) {
		return l.readIdentifier()
	}
	if isDigit(ch) {
		return l.readNumber()
	}

	switch ch {
	case '(':
		return l.makeToken(token.LEFT_PAREN)
	case ')':
		return l.makeToken(token.RIGHT_PAREN)
	case '{':
		return l.makeToken(token.LEFT_BRACE)
	case '}':
		return l.makeToken(token.RIGHT_BRACE)
	case ';':
		return l.makeToken(token.SEMICOLON)
	case ',':
		return l.makeToken(token.COMMA)
	case '.':
		return l.makeToken(token.DOT)
	case '-':
		return l.makeToken(token.MINUS)
	case '+':
		return l.makeToken(token.PLUS)
	case '/':
		return l.makeToken(token.SLASH)
	case '*':
		return l.makeToken(token.STAR)
	case '!':
		return l.makeToken(l.pick('=', token.BANG_EQUAL, token.BANG))
	case '=':
		return l.makeToken(l.pick('=', token.EQUAL_EQUAL, token.EQUAL))
	case '<':
		return l.makeToken(l.pick('=', token.LESS_EQUAL, token.LESS))
	case '>':
		return l.makeToken(l.pick('=', token.GREATER_EQUAL, token.GREATER))
	case '"':
		return l.readString()
	}

	return l.errorToken("Unexpected character")
}

// pick consumes the current char when it equals expected and returns matched,
// otherwise it leaves the input untouched and returns single.
func (l *Lexer) pick(expected byte, matched, single token.TokenType) token.TokenType {
	if l.atEnd() || l.ch != expected {
		return single
	}
	l.readChar()
	return matched
}

func (l *Lexer) makeToken(tokenType token.TokenType) token.Token {
	return token.Token{
		Type:   tokenType,
		Lexeme: l.input[l.start:l.position],
		Start:  l.start,
		Line:   l.line,
	}
}

func (l *Lexer) errorToken(message string) token.Token {
	return token.Token{
		Type:   token.ERROR,
		Lexeme: message,
		Start:  l.start,
		Line:   l.line,
	}
}

func (l *Lexer) readString() token.Token {
	for !l.atEnd() && l.ch != '"' {
		if l.ch == '\n' {
			l.line++
		}
		l.readChar()
	}

	if l.atEnd() {
		return l.errorToken("Unterminated string")
	}

	// closing quote
	l.readChar()
	return l.makeToken(token.STRING)
}

func (l *Lexer) readNumber() token.Token {
	for isDigit(l.ch) {
		l.readChar()
	}

	// A fractional part needs at least one digit after the dot.
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.makeToken(token.NUMBER)
}

func (l *Lexer) readIdentifier() token.Token {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.makeToken(l.determineIdentifierType(l.input[l.start:l.position]))
}

// determineIdentifierType matches keywords by hand, branching on the first
// letters the way a trie would.
func (l *Lexer) determineIdentifierType(ident string) token.TokenType {
	switch ident[0] {
	case 'a':
		return checkKeyword(ident, 1, "nd", token.AND)
	case 'c':
		return checkKeyword(ident, 1, "lass", token.CLASS)
	case 'e':
		return checkKeyword(ident, 1, "lse", token.ELSE)
	case 'f':
		if len(ident) > 1 {
			switch ident[1] {
			case 'a':
				return checkKeyword(ident, 2, "lse", token.FALSE)
			case 'o':
				return checkKeyword(ident, 2, "r", token.FOR)
			case 'u':
				return checkKeyword(ident, 2, "n", token.FUN)
			}
		}
	case 'i':
		return checkKeyword(ident, 1, "f", token.IF)
	case 'n':
		return checkKeyword(ident, 1, "il", token.NIL)
	case 'o':
		return checkKeyword(ident, 1, "r", token.OR)
	case 'p':
		return checkKeyword(ident, 1, "rint", token.PRINT)
	case 'r':
		return checkKeyword(ident, 1, "eturn", token.RETURN)
	case 's':
		return checkKeyword(ident, 1, "uper", token.SUPER)
	case 't':
		if len(ident) > 1 {
			switch ident[1] {
			case 'h':
				return checkKeyword(ident, 2, "is", token.THIS)
			case 'r':
				return checkKeyword(ident, 2, "ue", token.TRUE)
			}
		}
	case 'v':
		return checkKeyword(ident, 1, "ar", token.VAR)
	case 'w':
		return checkKeyword(ident, 1, "hile", token.WHILE)
	}
	return token.IDENTIFIER
}

func checkKeyword(ident string, start int, rest string, tokenType token.TokenType) token.TokenType {
	if len(ident) == start+len(rest) && ident[start:] == rest {
		return tokenType
	}
	return token.IDENTIFIER
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.ch {
		case ' ', '\t', '\r':
			l.readChar()
		case '\n':
			l.line++
			l.readChar()
		case '/':
			if l.peekChar() != '/' {
				return
			}
			// A comment runs until the end of the line.
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}
