package render

import (
	"github.com/calypso-lang/calypso-bot/pretty"
	"github.com/calypso-lang/calypso-bot/sysf"
)

// Value is something the rendering service knows how to lay out. The set of
// kinds is closed: Parsed, Resolved and Inferred.
type Value interface {
	value()
	Kind() string
}

// Parsed is a surface term straight out of the parser.
type Parsed struct{ Term sysf.Term }

// Resolved is a fully scoped term.
type Resolved struct{ Expr sysf.Expr }

// Inferred is a type produced by inference.
type Inferred struct{ Type sysf.Type }

func (Parsed) value()   {}
func (Resolved) value() {}
func (Inferred) value() {}

func (Parsed) Kind() string   { return "parsed" }
func (Resolved) Kind() string { return "resolved" }
func (Inferred) Kind() string { return "inferred" }

// Builder turns each kind of value into a document.
type Builder interface {
	TermDoc(a *pretty.Arena, t sysf.Term) pretty.Doc
	ExprDoc(a *pretty.Arena, e sysf.Expr) pretty.Doc
	TypeDoc(a *pretty.Arena, t sysf.Type) pretty.Doc
}

func build(b Builder, a *pretty.Arena, v Value) (pretty.Doc, error) {
	switch v := v.(type) {
	case Parsed:
		return b.TermDoc(a, v.Term), nil
	case Resolved:
		return b.ExprDoc(a, v.Expr), nil
	case Inferred:
		return b.TypeDoc(a, v.Type), nil
	}
	return pretty.Nil, ErrUnknownValue
}
