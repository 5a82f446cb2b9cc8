package sysf

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	IDENT
	NUMBER

	LAMBDA // "\" or "λ"
	FORALL // "forall" or "∀"
	LET
	IN

	DOT    // "."
	LPAREN // "("
	RPAREN // ")"
	COLON  // ":"
	EQUALS // "="
	ARROW  // "->" or "→"
)

var tokenNames = map[TokenType]string{
	EOF:     "end of input",
	ILLEGAL: "illegal character",
	IDENT:   "identifier",
	NUMBER:  "number",
	LAMBDA:  "`λ`",
	FORALL:  "`∀`",
	LET:     "`let`",
	IN:      "`in`",
	DOT:     "`.`",
	LPAREN:  "`(`",
	RPAREN:  "`)`",
	COLON:   "`:`",
	EQUALS:  "`=`",
	ARROW:   "`→`",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"forall": FORALL,
	"let":    LET,
	"in":     IN,
}

// Pos is a 1-based line/column position; Offset is the byte offset.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Token is a lexical token with its source text.
type Token struct {
	Type TokenType
	Lit  string
	Pos  Pos
}

func (t Token) describe() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case IDENT, NUMBER, ILLEGAL:
		return "`" + t.Lit + "`"
	default:
		return t.Type.String()
	}
}

// Lexer splits source text into tokens.
type Lexer struct {
	src  string
	cur  int
	line int
	col  int
}

// NewLexer creates a Lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) pos() Pos { return Pos{Offset: l.cur, Line: l.line, Col: l.col} }

func (l *Lexer) peek() (rune, int) {
	if l.cur >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[l.cur:])
}

func (l *Lexer) advance() rune {
	r, size := l.peek()
	if size == 0 {
		return 0
	}
	l.cur += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipTrivia() {
	for {
		r, size := l.peek()
		switch {
		case size == 0:
			return
		case unicode.IsSpace(r):
			l.advance()
		case r == '-' && l.cur+1 < len(l.src) && l.src[l.cur+1] == '-':
			// line comment
			for {
				r, size := l.peek()
				if size == 0 || r == '\n' {
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) && r != 'λ' }
func isIdentPart(r rune) bool {
	return r == '_' || r == '\'' || unicode.IsDigit(r) || unicode.IsLetter(r) && r != 'λ'
}

// Next returns the next token. Unrecognised input yields ILLEGAL.
func (l *Lexer) Next() Token {
	l.skipTrivia()
	start := l.pos()
	r, size := l.peek()
	if size == 0 {
		return Token{Type: EOF, Pos: start}
	}

	single := func(tt TokenType) Token {
		l.advance()
		return Token{Type: tt, Lit: string(r), Pos: start}
	}

	switch {
	case r == '\\' || r == 'λ':
		return single(LAMBDA)
	case r == '∀':
		return single(FORALL)
	case r == '→':
		return single(ARROW)
	case r == '.':
		return single(DOT)
	case r == '(':
		return single(LPAREN)
	case r == ')':
		return single(RPAREN)
	case r == ':':
		return single(COLON)
	case r == '=':
		return single(EQUALS)
	case r == '-':
		l.advance()
		if next, _ := l.peek(); next == '>' {
			l.advance()
			return Token{Type: ARROW, Lit: "->", Pos: start}
		}
		return Token{Type: ILLEGAL, Lit: "-", Pos: start}
	case unicode.IsDigit(r):
		for {
			r, size := l.peek()
			if size == 0 || !unicode.IsDigit(r) {
				break
			}
			l.advance()
		}
		return Token{Type: NUMBER, Lit: l.src[start.Offset:l.cur], Pos: start}
	case isIdentStart(r):
		for {
			r, size := l.peek()
			if size == 0 || !isIdentPart(r) {
				break
			}
			l.advance()
		}
		lit := l.src[start.Offset:l.cur]
		if kw, ok := keywords[lit]; ok {
			return Token{Type: kw, Lit: lit, Pos: start}
		}
		return Token{Type: IDENT, Lit: lit, Pos: start}
	}

	return single(ILLEGAL)
}

// Scan tokenizes the whole input, ending with EOF. It stops at the first
// illegal character.
func (l *Lexer) Scan() ([]Token, error) {
	var toks []Token
	for {
		tok := l.Next()
		if tok.Type == ILLEGAL {
			return nil, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected character %s", tok.describe()), Source: l.src}
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}
