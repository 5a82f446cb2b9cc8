// Package sysf implements System F with higher-rank polymorphism: a surface
// parser, a resolver that gives every binder a unique id, and a bidirectional
// type checker over an ordered type context.
package sysf

import (
	"github.com/calypso-lang/calypso-bot/pretty"
)

// Engine bundles the package functions behind a value so callers can depend
// on an interface.
type Engine struct{}

func (Engine) Parse(raw string) (Term, error)         { return Parse(raw) }
func (Engine) Resolve(t Term) (Expr, bool)            { return Resolve(t) }
func (Engine) Infer(tcx *TyCtxt, e Expr) (Type, bool) { return Infer(tcx, e) }

func (Engine) TermDoc(a *pretty.Arena, t Term) pretty.Doc { return TermDoc(a, t) }
func (Engine) ExprDoc(a *pretty.Arena, e Expr) pretty.Doc { return ExprDoc(a, e) }
func (Engine) TypeDoc(a *pretty.Arena, t Type) pretty.Doc { return TypeDoc(a, t) }
