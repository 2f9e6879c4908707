// internal/syntax/lexer.go
package syntax

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

/*
 * Lexer for the filter language.
 *
 * Tokens: identifiers, single- or double-quoted strings, numbers, '.',
 * parentheses, comparison operators, and the case-insensitive keywords
 * and/or/not/like. Positions are 1-based byte columns.
 *
 * Malformed input yields a TokenIllegal whose literal is the message, so
 * the parser reports lexical and syntactic failures the same way.
 */

// TokenType identifies the kind of a Token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenIdentifier
	TokenString
	TokenNumber
	TokenDot          // '.'
	TokenLeftParen    // '('
	TokenRightParen   // ')'
	TokenEqual        // '=='
	TokenNotEqual     // '!='
	TokenGreater      // '>'
	TokenGreaterEqual // '>='
	TokenLess         // '<'
	TokenLessEqual    // '<='
	TokenAnd          // 'and'
	TokenOr           // 'or'
	TokenNot          // 'not'
	TokenLike         // 'like'
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of input",
	TokenIllegal:      "illegal token",
	TokenIdentifier:   "identifier",
	TokenString:       "string",
	TokenNumber:       "number",
	TokenDot:          "'.'",
	TokenLeftParen:    "'('",
	TokenRightParen:   "')'",
	TokenEqual:        "'=='",
	TokenNotEqual:     "'!='",
	TokenGreater:      "'>'",
	TokenGreaterEqual: "'>='",
	TokenLess:         "'<'",
	TokenLessEqual:    "'<='",
	TokenAnd:          "'and'",
	TokenOr:           "'or'",
	TokenNot:          "'not'",
	TokenLike:         "'like'",
}

// String returns the token type as it appears in error messages.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown token"
}

// Token is one lexical unit of a query.
type Token struct {
	Type    TokenType
	Literal string // string tokens hold the unquoted text; illegal tokens hold a message
	Quote   byte   // quote character for string tokens
	Pos     int    // 1-based byte column
}

// Lexer splits a query into tokens on demand.
type Lexer struct {
	input    string
	position int // current byte offset
}

// NewLexer returns a lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) peekRune(offset int) (rune, int) {
	if offset >= len(l.input) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.input[offset:])
}

// NextToken returns the next token, or TokenEOF once input is exhausted.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	start := l.position
	if start >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start + 1}
	}

	ch := l.input[start]
	switch ch {
	case '(':
		return l.single(TokenLeftParen)
	case ')':
		return l.single(TokenRightParen)
	case '.':
		return l.single(TokenDot)
	case '=':
		if l.byteAt(start+1) == '=' {
			return l.double(TokenEqual)
		}
		return l.illegal(start, "unexpected '=' (use '==')")
	case '!':
		if l.byteAt(start+1) == '=' {
			return l.double(TokenNotEqual)
		}
		return l.illegal(start, "unexpected '!' (use '!=' or 'not like')")
	case '>':
		if l.byteAt(start+1) == '=' {
			return l.double(TokenGreaterEqual)
		}
		return l.single(TokenGreater)
	case '<':
		if l.byteAt(start+1) == '=' {
			return l.double(TokenLessEqual)
		}
		return l.single(TokenLess)
	case '\'', '"':
		return l.readString(ch)
	}

	if ch == '-' || isDigit(ch) {
		return l.readNumber()
	}

	r, _ := l.peekRune(start)
	if isLetter(r) {
		return l.readIdentifier()
	}

	return l.illegal(start, fmt.Sprintf("unexpected character %q", r))
}

func (l *Lexer) byteAt(i int) byte {
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

func (l *Lexer) single(t TokenType) Token {
	tok := Token{Type: t, Literal: l.input[l.position : l.position+1], Pos: l.position + 1}
	l.position++
	return tok
}

func (l *Lexer) double(t TokenType) Token {
	tok := Token{Type: t, Literal: l.input[l.position : l.position+2], Pos: l.position + 1}
	l.position += 2
	return tok
}

func (l *Lexer) illegal(start int, msg string) Token {
	l.position = len(l.input)
	return Token{Type: TokenIllegal, Literal: msg, Pos: start + 1}
}

func (l *Lexer) skipWhitespace() {
	for l.position < len(l.input) {
		r, size := l.peekRune(l.position)
		if !unicode.IsSpace(r) {
			return
		}
		l.position += size
	}
}

// readString reads a quoted literal. There are no escape sequences; the
// literal ends at the next matching quote.
func (l *Lexer) readString(quote byte) Token {
	start := l.position
	end := strings.IndexByte(l.input[start+1:], quote)
	if end < 0 {
		return l.illegal(start, "unterminated string literal")
	}
	text := l.input[start+1 : start+1+end]
	l.position = start + end + 2
	return Token{Type: TokenString, Literal: text, Quote: quote, Pos: start + 1}
}

// readNumber reads -?digits[.digits][(e|E)[+-]digits].
func (l *Lexer) readNumber() Token {
	start := l.position
	i := start
	if l.byteAt(i) == '-' {
		i++
	}
	if !isDigit(l.byteAt(i)) {
		return l.illegal(start, "unexpected '-'")
	}
	for isDigit(l.byteAt(i)) {
		i++
	}
	if l.byteAt(i) == '.' && isDigit(l.byteAt(i+1)) {
		i++
		for isDigit(l.byteAt(i)) {
			i++
		}
	}
	if c := l.byteAt(i); c == 'e' || c == 'E' {
		j := i + 1
		if c := l.byteAt(j); c == '+' || c == '-' {
			j++
		}
		if isDigit(l.byteAt(j)) {
			for isDigit(l.byteAt(j)) {
				j++
			}
			i = j
		}
	}
	if r, _ := l.peekRune(i); isLetter(r) {
		return l.illegal(start, "malformed number (quote non-numeric literals)")
	}
	l.position = i
	return Token{Type: TokenNumber, Literal: l.input[start:i], Pos: start + 1}
}

func (l *Lexer) readIdentifier() Token {
	start := l.position
	for l.position < len(l.input) {
		r, size := l.peekRune(l.position)
		if !isLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.position += size
	}
	ident := l.input[start:l.position]
	return Token{Type: lookupIdentifier(ident), Literal: ident, Pos: start + 1}
}

// lookupIdentifier maps keywords case-insensitively.
func lookupIdentifier(ident string) TokenType {
	switch strings.ToLower(ident) {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "like":
		return TokenLike
	default:
		return TokenIdentifier
	}
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
