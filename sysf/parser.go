package sysf

import (
	"fmt"
)

// Grammar:
//
//	term   := '\' IDENT+ '.' term
//	        | 'let' IDENT (':' type)? '=' term 'in' term
//	        | app
//	app    := atom atom* ('\' ... | 'let' ...)?
//	atom   := IDENT | '(' ')' | '(' term (':' type)? ')'
//	type   := 'forall' IDENT+ '.' type | tatom ('->' type)?
//	tatom  := IDENT | 'Unit' | '1' | '(' ')' | '(' type ')'

// Parse turns source text into a surface term.
func Parse(src string) (Term, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, src: src}
	if p.atEnd() {
		return nil, p.errAt(p.peek(), "expected a term, found end of input")
	}
	t, err := p.term()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errAt(p.peek(), fmt.Sprintf("expected end of input, found %s", p.peek().describe()))
	}
	return t, nil
}

type parser struct {
	toks []Token
	i    int
	src  string
}

func (p *parser) atEnd() bool { return p.peek().Type == EOF }
func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}
func (p *parser) prev() Token { return p.toks[p.i-1] }

func (p *parser) match(tt ...TokenType) bool {
	if p.atEnd() {
		return false
	}
	for _, t := range tt {
		if p.peek().Type == t {
			p.i++
			return true
		}
	}
	return false
}

func (p *parser) need(t TokenType, what string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	g := p.peek()
	return Token{}, p.errAt(g, fmt.Sprintf("expected %s %s, found %s", t, what, g.describe()))
}

func (p *parser) errAt(tok Token, msg string) *SyntaxError {
	return &SyntaxError{Pos: tok.Pos, Msg: msg, Source: p.src}
}

func (p *parser) term() (Term, error) {
	switch tok := p.peek(); tok.Type {
	case LAMBDA:
		return p.lambda()
	case LET:
		return p.let()
	default:
		return p.app()
	}
}

func (p *parser) lambda() (Term, error) {
	start, _ := p.need(LAMBDA, "")
	var params []Token
	for p.match(IDENT) {
		params = append(params, p.prev())
	}
	if len(params) == 0 {
		g := p.peek()
		return nil, p.errAt(g, fmt.Sprintf("expected a parameter name after `λ`, found %s", g.describe()))
	}
	if _, err := p.need(DOT, "after lambda parameters"); err != nil {
		return nil, err
	}
	body, err := p.term()
	if err != nil {
		return nil, err
	}
	for i := len(params) - 1; i >= 0; i-- {
		at := params[i].Pos
		if i == 0 {
			at = start.Pos
		}
		body = &Lam{Param: params[i].Lit, Body: body, At: at}
	}
	return body, nil
}

func (p *parser) let() (Term, error) {
	start, _ := p.need(LET, "")
	name, err := p.need(IDENT, "after `let`")
	if err != nil {
		return nil, err
	}
	var ann TypeExpr
	if p.match(COLON) {
		if ann, err = p.typ(); err != nil {
			return nil, err
		}
	}
	if _, err := p.need(EQUALS, "in let binding"); err != nil {
		return nil, err
	}
	value, err := p.term()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(IN, "after let-bound value"); err != nil {
		return nil, err
	}
	body, err := p.term()
	if err != nil {
		return nil, err
	}
	return &Let{Name: name.Lit, Type: ann, Value: value, Body: body, At: start.Pos}, nil
}

func startsAtom(tt TokenType) bool { return tt == IDENT || tt == LPAREN }

func (p *parser) app() (Term, error) {
	fn, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch tt := p.peek().Type; {
		case startsAtom(tt):
			arg, err := p.atom()
			if err != nil {
				return nil, err
			}
			fn = &App{Fun: fn, Arg: arg}
		case tt == LAMBDA || tt == LET:
			// A trailing binder extends as far right as possible.
			arg, err := p.term()
			if err != nil {
				return nil, err
			}
			return &App{Fun: fn, Arg: arg}, nil
		default:
			return fn, nil
		}
	}
}

func (p *parser) atom() (Term, error) {
	tok := p.peek()
	switch {
	case p.match(IDENT):
		return &Var{Name: tok.Lit, At: tok.Pos}, nil
	case p.match(LPAREN):
		if p.match(RPAREN) {
			return &UnitLit{At: tok.Pos}, nil
		}
		inner, err := p.term()
		if err != nil {
			return nil, err
		}
		if p.match(COLON) {
			ty, err := p.typ()
			if err != nil {
				return nil, err
			}
			if _, err := p.need(RPAREN, "to close annotation"); err != nil {
				return nil, err
			}
			return &Ann{Term: inner, Type: ty, At: tok.Pos}, nil
		}
		if _, err := p.need(RPAREN, "to close parenthesised term"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.errAt(tok, fmt.Sprintf("expected a term, found %s", tok.describe()))
}

func (p *parser) typ() (TypeExpr, error) {
	if p.match(FORALL) {
		var vars []Token
		for p.match(IDENT) {
			vars = append(vars, p.prev())
		}
		if len(vars) == 0 {
			g := p.peek()
			return nil, p.errAt(g, fmt.Sprintf("expected a type variable after `∀`, found %s", g.describe()))
		}
		if _, err := p.need(DOT, "after quantified variables"); err != nil {
			return nil, err
		}
		body, err := p.typ()
		if err != nil {
			return nil, err
		}
		for i := len(vars) - 1; i >= 0; i-- {
			body = &TyForall{Var: vars[i].Lit, Body: body}
		}
		return body, nil
	}

	from, err := p.typeAtom()
	if err != nil {
		return nil, err
	}
	if p.match(ARROW) {
		to, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &TyArrow{From: from, To: to}, nil
	}
	return from, nil
}

func (p *parser) typeAtom() (TypeExpr, error) {
	tok := p.peek()
	switch {
	case p.match(IDENT):
		if tok.Lit == "Unit" {
			return &TyUnit{}, nil
		}
		return &TyName{Name: tok.Lit, At: tok.Pos}, nil
	case tok.Type == NUMBER && tok.Lit == "1":
		p.i++
		return &TyUnit{}, nil
	case p.match(LPAREN):
		if p.match(RPAREN) {
			return &TyUnit{}, nil
		}
		inner, err := p.typ()
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RPAREN, "to close parenthesised type"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.errAt(tok, fmt.Sprintf("expected a type, found %s", tok.describe()))
}
