package sysf

import (
	"github.com/calypso-lang/calypso-bot/pretty"
)

const indent = 2

// TermDoc lays out a parsed term.
func TermDoc(a *pretty.Arena, t Term) pretty.Doc {
	return termDoc(a, t, precTop)
}

// ExprDoc lays out a resolved term. Binders and type variables carry their
// ids.
func ExprDoc(a *pretty.Arena, e Expr) pretty.Doc {
	return exprDoc(a, e, precTop)
}

// TypeDoc lays out a type using source names only.
func TypeDoc(a *pretty.Arena, t Type) pretty.Doc {
	return typeDoc(a, t, false, precTop)
}

type prec int

const (
	precTop  prec = iota // binders extend to the right
	precApp              // function position
	precAtom             // argument position
)

func binder(a *pretty.Arena, head string, body pretty.Doc) pretty.Doc {
	return a.Group(a.Concat(a.Text(head), a.Nest(indent, a.Concat(a.Line(), body))))
}

// letDoc lays out `let head = value in body`; head may carry an annotation.
func letDoc(a *pretty.Arena, head, value, body pretty.Doc) pretty.Doc {
	bind := a.Group(a.Concat(
		head,
		a.Text(" ="),
		a.Nest(indent, a.Concat(a.Line(), value)),
		a.Line(),
		a.Text("in"),
	))
	return a.Group(a.Concat(bind, a.Line(), body))
}

func annDoc(a *pretty.Arena, inner, ty pretty.Doc) pretty.Doc {
	return a.Group(a.Concat(
		a.Text("("),
		inner,
		a.Text(" :"),
		a.Nest(indent, a.Concat(a.Line(), ty)),
		a.Text(")"),
	))
}

func appDoc(a *pretty.Arena, fn pretty.Doc, args []pretty.Doc) pretty.Doc {
	parts := []pretty.Doc{fn}
	for _, arg := range args {
		parts = append(parts, a.Line(), arg)
	}
	return a.Group(a.Concat(parts[0], a.Nest(indent, a.Concat(parts[1:]...))))
}

func wrap(a *pretty.Arena, d pretty.Doc, need, have prec) pretty.Doc {
	if have < need {
		return a.Parens(d)
	}
	return d
}

func termDoc(a *pretty.Arena, t Term, p prec) pretty.Doc {
	switch t := t.(type) {
	case *Var:
		return a.Text(t.Name)
	case *UnitLit:
		return a.Text("()")
	case *Ann:
		return annDoc(a, termDoc(a, t.Term, precTop), typeExprDoc(a, t.Type, precTop))
	case *Lam:
		params := t.Param
		body := t.Body
		for {
			inner, ok := body.(*Lam)
			if !ok {
				break
			}
			params += " " + inner.Param
			body = inner.Body
		}
		return wrap(a, binder(a, "λ"+params+".", termDoc(a, body, precTop)), p, precTop)
	case *Let:
		head := a.Text("let " + t.Name)
		if t.Type != nil {
			head = a.Concat(a.Text("let "+t.Name+" : "), typeExprDoc(a, t.Type, precTop))
		}
		return wrap(a, letDoc(a, head, termDoc(a, t.Value, precTop), termDoc(a, t.Body, precTop)), p, precTop)
	case *App:
		var args []pretty.Doc
		fn := Term(t)
		for {
			app, ok := fn.(*App)
			if !ok {
				break
			}
			args = append([]pretty.Doc{termDoc(a, app.Arg, precAtom)}, args...)
			fn = app.Fun
		}
		return wrap(a, appDoc(a, termDoc(a, fn, precApp), args), p, precApp)
	}
	return pretty.Nil
}

func exprDoc(a *pretty.Arena, e Expr, p prec) pretty.Doc {
	switch e := e.(type) {
	case *EVar:
		return a.Text(e.Ident.String())
	case *EUnit:
		return a.Text("()")
	case *EAnn:
		return annDoc(a, exprDoc(a, e.Expr, precTop), typeDoc(a, e.Type, true, precTop))
	case *ELam:
		params := e.Param.String()
		body := e.Body
		for {
			inner, ok := body.(*ELam)
			if !ok {
				break
			}
			params += " " + inner.Param.String()
			body = inner.Body
		}
		return wrap(a, binder(a, "λ"+params+".", exprDoc(a, body, precTop)), p, precTop)
	case *ELet:
		head := a.Text("let " + e.Name.String())
		if e.Type != nil {
			head = a.Concat(a.Text("let "+e.Name.String()+" : "), typeDoc(a, e.Type, true, precTop))
		}
		return wrap(a, letDoc(a, head, exprDoc(a, e.Value, precTop), exprDoc(a, e.Body, precTop)), p, precTop)
	case *EApp:
		var args []pretty.Doc
		fn := Expr(e)
		for {
			app, ok := fn.(*EApp)
			if !ok {
				break
			}
			args = append([]pretty.Doc{exprDoc(a, app.Arg, precAtom)}, args...)
			fn = app.Fun
		}
		return wrap(a, appDoc(a, exprDoc(a, fn, precApp), args), p, precApp)
	}
	return pretty.Nil
}

func typeExprDoc(a *pretty.Arena, t TypeExpr, p prec) pretty.Doc {
	switch t := t.(type) {
	case *TyUnit:
		return a.Text("Unit")
	case *TyName:
		return a.Text(t.Name)
	case *TyForall:
		vars := t.Var
		body := t.Body
		for {
			inner, ok := body.(*TyForall)
			if !ok {
				break
			}
			vars += " " + inner.Var
			body = inner.Body
		}
		return wrap(a, binder(a, "∀"+vars+".", typeExprDoc(a, body, precTop)), p, precTop)
	case *TyArrow:
		return wrap(a, arrowDoc(a, typeExprDoc(a, t.From, precApp), typeExprDoc(a, t.To, precTop)), p, precTop)
	}
	return pretty.Nil
}

func arrowDoc(a *pretty.Arena, from, to pretty.Doc) pretty.Doc {
	return a.Group(a.Concat(from, a.Text(" →"), a.Line(), to))
}

func typeDoc(a *pretty.Arena, t Type, ids bool, p prec) pretty.Doc {
	name := func(i Ident) string {
		if ids {
			return i.String()
		}
		return i.Name
	}
	switch t := t.(type) {
	case *TUnit:
		return a.Text("Unit")
	case *TVar:
		return a.Text(name(t.Ident))
	case *TExists:
		return a.Text(t.String())
	case *TForall:
		vars := name(t.Var)
		var body Type = t.Body
		for {
			inner, ok := body.(*TForall)
			if !ok {
				break
			}
			vars += " " + name(inner.Var)
			body = inner.Body
		}
		return wrap(a, binder(a, "∀"+vars+".", typeDoc(a, body, ids, precTop)), p, precTop)
	case *TArrow:
		return wrap(a, arrowDoc(a, typeDoc(a, t.From, ids, precApp), typeDoc(a, t.To, ids, precTop)), p, precTop)
	}
	return pretty.Nil
}
