package sysf

import (
	"fmt"
	"strings"
)

// Ident is a resolved binder: the source name plus a unique numeric id.
type Ident struct {
	Name string
	ID   uint32
}

func (i Ident) String() string { return fmt.Sprintf("%s#%d", i.Name, i.ID) }

// Expr is a fully scoped term produced by Resolve.
type Expr interface {
	expr()
}

type (
	// EVar references a bound term variable.
	EVar struct{ Ident Ident }
	// EUnit is the unit value.
	EUnit struct{}
	// ELam is an abstraction.
	ELam struct {
		Param Ident
		Body  Expr
	}
	// EApp is application.
	EApp struct {
		Fun Expr
		Arg Expr
	}
	// EAnn is an annotated term.
	EAnn struct {
		Expr Expr
		Type Type
	}
	// ELet binds Name in Body. Type is nil when unannotated.
	ELet struct {
		Name  Ident
		Type  Type
		Value Expr
		Body  Expr
	}
)

func (*EVar) expr()  {}
func (*EUnit) expr() {}
func (*ELam) expr()  {}
func (*EApp) expr()  {}
func (*EAnn) expr()  {}
func (*ELet) expr()  {}

// Type is a System F type, possibly containing existential variables while
// inference is in progress.
type Type interface {
	typ()
	String() string
}

type (
	// TUnit is the unit type.
	TUnit struct{}
	// TVar is a universally quantified (rigid) type variable.
	TVar struct{ Ident Ident }
	// TExists is an existential variable awaiting a solution.
	TExists struct{ ID uint32 }
	// TForall quantifies Var over Body.
	TForall struct {
		Var  Ident
		Body Type
	}
	// TArrow is a function type.
	TArrow struct {
		From Type
		To   Type
	}
)

func (*TUnit) typ()   {}
func (*TVar) typ()    {}
func (*TExists) typ() {}
func (*TForall) typ() {}
func (*TArrow) typ()  {}

func (*TUnit) String() string     { return "Unit" }
func (t *TVar) String() string    { return t.Ident.String() }
func (t *TExists) String() string { return fmt.Sprintf("^t%d", t.ID) }
func (t *TForall) String() string {
	var b strings.Builder
	b.WriteString("∀")
	var body Type = t
	for {
		f, ok := body.(*TForall)
		if !ok {
			break
		}
		b.WriteString(f.Var.String())
		b.WriteString(" ")
		body = f.Body
	}
	s := b.String()
	return s[:len(s)-1] + ". " + body.String()
}
func (t *TArrow) String() string {
	from := t.From.String()
	switch t.From.(type) {
	case *TArrow, *TForall:
		from = "(" + from + ")"
	}
	return from + " → " + t.To.String()
}

// isMono reports whether t contains no quantifiers.
func isMono(t Type) bool {
	switch t := t.(type) {
	case *TForall:
		return false
	case *TArrow:
		return isMono(t.From) && isMono(t.To)
	default:
		return true
	}
}

// occurs reports whether existential id appears free in t.
func occurs(id uint32, t Type) bool {
	switch t := t.(type) {
	case *TExists:
		return t.ID == id
	case *TArrow:
		return occurs(id, t.From) || occurs(id, t.To)
	case *TForall:
		return occurs(id, t.Body)
	default:
		return false
	}
}

// substVar replaces the rigid variable v with `with` inside t.
func substVar(t Type, v uint32, with Type) Type {
	switch t := t.(type) {
	case *TVar:
		if t.Ident.ID == v {
			return with
		}
		return t
	case *TArrow:
		return &TArrow{From: substVar(t.From, v, with), To: substVar(t.To, v, with)}
	case *TForall:
		if t.Var.ID == v {
			return t
		}
		return &TForall{Var: t.Var, Body: substVar(t.Body, v, with)}
	default:
		return t
	}
}

// substExists replaces existential id with `with` inside t.
func substExists(t Type, id uint32, with Type) Type {
	switch t := t.(type) {
	case *TExists:
		if t.ID == id {
			return with
		}
		return t
	case *TArrow:
		return &TArrow{From: substExists(t.From, id, with), To: substExists(t.To, id, with)}
	case *TForall:
		return &TForall{Var: t.Var, Body: substExists(t.Body, id, with)}
	default:
		return t
	}
}

// existsIn lists the existentials of t in order of first appearance.
func existsIn(t Type) []uint32 {
	var out []uint32
	seen := map[uint32]bool{}
	var walk func(Type)
	walk = func(t Type) {
		switch t := t.(type) {
		case *TExists:
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t.ID)
			}
		case *TArrow:
			walk(t.From)
			walk(t.To)
		case *TForall:
			walk(t.Body)
		}
	}
	walk(t)
	return out
}

// boundNames collects the names of every quantified or free rigid variable.
func boundNames(t Type, into map[string]bool) {
	switch t := t.(type) {
	case *TVar:
		into[t.Ident.Name] = true
	case *TArrow:
		boundNames(t.From, into)
		boundNames(t.To, into)
	case *TForall:
		into[t.Var.Name] = true
		boundNames(t.Body, into)
	}
}

// TypeEqual reports structural equality up to renaming of bound variables.
func TypeEqual(a, b Type) bool {
	return typeEqual(a, b, map[uint32]uint32{})
}

func typeEqual(a, b Type, env map[uint32]uint32) bool {
	switch a := a.(type) {
	case *TUnit:
		_, ok := b.(*TUnit)
		return ok
	case *TVar:
		bv, ok := b.(*TVar)
		if !ok {
			return false
		}
		if mapped, ok := env[a.Ident.ID]; ok {
			return mapped == bv.Ident.ID
		}
		return a.Ident.ID == bv.Ident.ID
	case *TExists:
		be, ok := b.(*TExists)
		return ok && a.ID == be.ID
	case *TArrow:
		ba, ok := b.(*TArrow)
		return ok && typeEqual(a.From, ba.From, env) && typeEqual(a.To, ba.To, env)
	case *TForall:
		bf, ok := b.(*TForall)
		if !ok {
			return false
		}
		prev, had := env[a.Var.ID]
		env[a.Var.ID] = bf.Var.ID
		eq := typeEqual(a.Body, bf.Body, env)
		if had {
			env[a.Var.ID] = prev
		} else {
			delete(env, a.Var.ID)
		}
		return eq
	}
	return false
}

// maxID returns the largest binder id in e, including ids inside annotations.
func maxID(e Expr) uint32 {
	var m uint32
	bump := func(id uint32) {
		if id > m {
			m = id
		}
	}
	var walkT func(Type)
	walkT = func(t Type) {
		switch t := t.(type) {
		case *TVar:
			bump(t.Ident.ID)
		case *TExists:
			bump(t.ID)
		case *TArrow:
			walkT(t.From)
			walkT(t.To)
		case *TForall:
			bump(t.Var.ID)
			walkT(t.Body)
		}
	}
	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *EVar:
			bump(e.Ident.ID)
		case *ELam:
			bump(e.Param.ID)
			walk(e.Body)
		case *EApp:
			walk(e.Fun)
			walk(e.Arg)
		case *EAnn:
			walk(e.Expr)
			walkT(e.Type)
		case *ELet:
			bump(e.Name.ID)
			if e.Type != nil {
				walkT(e.Type)
			}
			walk(e.Value)
			walk(e.Body)
		}
	}
	walk(e)
	return m
}
