package sysf

// scope is a persistent linked list of name bindings; inner entries shadow
// outer ones.
type scope struct {
	name  string
	ident Ident
	next  *scope
}

func (s *scope) lookup(name string) (Ident, bool) {
	for ; s != nil; s = s.next {
		if s.name == name {
			return s.ident, true
		}
	}
	return Ident{}, false
}

func (s *scope) bind(id Ident) *scope {
	return &scope{name: id.Name, ident: id, next: s}
}

type resolver struct {
	next uint32
}

func (r *resolver) fresh(name string) Ident {
	id := Ident{Name: name, ID: r.next}
	r.next++
	return id
}

// Resolve gives every binder a unique id and links each use to its binder.
// It fails on any unbound term or type variable. Type variables are only in
// scope inside their own ∀; annotations do not bring them into the term.
func Resolve(t Term) (Expr, bool) {
	r := &resolver{}
	return r.term(nil, t)
}

func (r *resolver) term(sc *scope, t Term) (Expr, bool) {
	switch t := t.(type) {
	case *Var:
		id, ok := sc.lookup(t.Name)
		if !ok {
			return nil, false
		}
		return &EVar{Ident: id}, true
	case *UnitLit:
		return &EUnit{}, true
	case *Lam:
		param := r.fresh(t.Param)
		body, ok := r.term(sc.bind(param), t.Body)
		if !ok {
			return nil, false
		}
		return &ELam{Param: param, Body: body}, true
	case *App:
		fn, ok := r.term(sc, t.Fun)
		if !ok {
			return nil, false
		}
		arg, ok := r.term(sc, t.Arg)
		if !ok {
			return nil, false
		}
		return &EApp{Fun: fn, Arg: arg}, true
	case *Ann:
		inner, ok := r.term(sc, t.Term)
		if !ok {
			return nil, false
		}
		ty, ok := r.typ(nil, t.Type)
		if !ok {
			return nil, false
		}
		return &EAnn{Expr: inner, Type: ty}, true
	case *Let:
		var ann Type
		if t.Type != nil {
			var ok bool
			if ann, ok = r.typ(nil, t.Type); !ok {
				return nil, false
			}
		}
		value, ok := r.term(sc, t.Value)
		if !ok {
			return nil, false
		}
		name := r.fresh(t.Name)
		body, ok := r.term(sc.bind(name), t.Body)
		if !ok {
			return nil, false
		}
		return &ELet{Name: name, Type: ann, Value: value, Body: body}, true
	}
	return nil, false
}

func (r *resolver) typ(sc *scope, t TypeExpr) (Type, bool) {
	switch t := t.(type) {
	case *TyUnit:
		return &TUnit{}, true
	case *TyName:
		id, ok := sc.lookup(t.Name)
		if !ok {
			return nil, false
		}
		return &TVar{Ident: id}, true
	case *TyArrow:
		from, ok := r.typ(sc, t.From)
		if !ok {
			return nil, false
		}
		to, ok := r.typ(sc, t.To)
		if !ok {
			return nil, false
		}
		return &TArrow{From: from, To: to}, true
	case *TyForall:
		v := r.fresh(t.Var)
		body, ok := r.typ(sc.bind(v), t.Body)
		if !ok {
			return nil, false
		}
		return &TForall{Var: v, Body: body}, true
	}
	return nil, false
}
