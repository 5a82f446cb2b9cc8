package sysf

// The checker follows Dunfield and Krishnaswami, "Complete and Easy
// Bidirectional Typechecking for Higher-Rank Polymorphism", with one
// extension: a lambda (and an unannotated let) synthesizes a generalized
// type by closing over the existentials it introduced.

// Infer synthesizes a closed type for e in tcx. The result has had the
// context's final substitution applied, and any existentials left unsolved
// are generalized into ∀. Inference failure is reported as false.
func Infer(tcx *TyCtxt, e Expr) (Type, bool) {
	t, err := InferErr(tcx, e)
	return t, err == nil
}

// InferErr is Infer with the reason for failure.
func InferErr(tcx *TyCtxt, e Expr) (Type, error) {
	tcx.reserve(maxID(e) + 1)

	mark := tcx.fresh()
	tcx.push(Elem{Kind: ElemMarker, ID: mark})

	c := &checker{cx: tcx}
	t, err := c.synth(e)
	if err != nil {
		tcx.remove(ElemMarker, mark)
		return nil, err
	}
	t = tcx.generalize(mark, tcx.Apply(t))
	tcx.close(mark)
	return t, nil
}

// close drops the marker, the unsolved existentials after it and any
// remaining scoped entries, keeping solutions for inspection.
func (c *TyCtxt) close(marker uint32) {
	at := c.indexOf(ElemMarker, marker)
	if at < 0 {
		return
	}
	kept := c.elems[:at]
	for _, e := range c.elems[at+1:] {
		if e.Kind == ElemSolved {
			e.Type = c.Apply(e.Type)
			kept = append(kept, e)
		}
	}
	c.elems = kept
}

type checker struct {
	cx *TyCtxt
}

// open replaces the quantified variable of f with a fresh rigid variable.
func (c *checker) open(f *TForall) (Ident, Type) {
	v := c.cx.freshVar(f.Var.Name)
	return v, substVar(f.Body, f.Var.ID, &TVar{Ident: v})
}

// openExists replaces the quantified variable of f with a fresh existential.
func (c *checker) openExists(f *TForall) (uint32, Type) {
	id := c.cx.fresh()
	return id, substVar(f.Body, f.Var.ID, &TExists{ID: id})
}

func (c *checker) subtype(a, b Type) error {
	switch a := a.(type) {
	case *TUnit:
		if _, ok := b.(*TUnit); ok {
			return nil
		}
	case *TVar:
		if bv, ok := b.(*TVar); ok && bv.Ident.ID == a.Ident.ID {
			if c.cx.indexOf(ElemVar, a.Ident.ID) < 0 {
				return typeErrorf("type variable %s is out of scope", a)
			}
			return nil
		}
	case *TExists:
		if be, ok := b.(*TExists); ok && be.ID == a.ID {
			if c.cx.existsIndex(a.ID) < 0 {
				return typeErrorf("existential %s is out of scope", a)
			}
			return nil
		}
	case *TArrow:
		if ba, ok := b.(*TArrow); ok {
			if err := c.subtype(ba.From, a.From); err != nil {
				return err
			}
			return c.subtype(c.cx.Apply(a.To), c.cx.Apply(ba.To))
		}
	}

	if bf, ok := b.(*TForall); ok {
		v, body := c.open(bf)
		c.cx.push(Elem{Kind: ElemVar, Var: v})
		if err := c.subtype(a, body); err != nil {
			return err
		}
		c.cx.dropFrom(ElemVar, v.ID)
		return nil
	}

	if af, ok := a.(*TForall); ok {
		mark := c.cx.fresh()
		id, body := c.openExists(af)
		c.cx.push(Elem{Kind: ElemMarker, ID: mark}, Elem{Kind: ElemExists, ID: id})
		if err := c.subtype(body, b); err != nil {
			return err
		}
		c.cx.dropFrom(ElemMarker, mark)
		return nil
	}

	if ae, ok := a.(*TExists); ok && c.cx.indexOf(ElemExists, ae.ID) >= 0 && !occurs(ae.ID, b) {
		return c.instL(ae.ID, b)
	}
	if be, ok := b.(*TExists); ok && c.cx.indexOf(ElemExists, be.ID) >= 0 && !occurs(be.ID, a) {
		return c.instR(a, be.ID)
	}

	return typeErrorf("%s is not a subtype of %s", a, b)
}

// articulate splits α̂ into α̂₁ → α̂₂ in place and returns the new ids.
func (c *checker) articulate(alpha uint32) (uint32, uint32) {
	a2 := c.cx.fresh()
	a1 := c.cx.fresh()
	c.cx.replace(alpha,
		Elem{Kind: ElemExists, ID: a2},
		Elem{Kind: ElemExists, ID: a1},
		Elem{Kind: ElemSolved, ID: alpha, Type: &TArrow{From: &TExists{ID: a1}, To: &TExists{ID: a2}}},
	)
	return a1, a2
}

// instL instantiates α̂ so that α̂ <: t.
func (c *checker) instL(alpha uint32, t Type) error {
	at := c.cx.indexOf(ElemExists, alpha)
	if at < 0 {
		return typeErrorf("existential ^t%d is not in scope", alpha)
	}
	if isMono(t) && c.cx.wellFormed(at, t) {
		c.cx.solve(alpha, t)
		return nil
	}

	switch t := t.(type) {
	case *TExists:
		if c.cx.indexOf(ElemExists, t.ID) > at {
			c.cx.solve(t.ID, &TExists{ID: alpha})
			return nil
		}
	case *TArrow:
		a1, a2 := c.articulate(alpha)
		if err := c.instR(t.From, a1); err != nil {
			return err
		}
		return c.instL(a2, c.cx.Apply(t.To))
	case *TForall:
		v, body := c.open(t)
		c.cx.push(Elem{Kind: ElemVar, Var: v})
		if err := c.instL(alpha, body); err != nil {
			return err
		}
		c.cx.dropFrom(ElemVar, v.ID)
		return nil
	}
	return typeErrorf("cannot instantiate ^t%d to %s", alpha, t)
}

// instR instantiates α̂ so that t <: α̂.
func (c *checker) instR(t Type, alpha uint32) error {
	at := c.cx.indexOf(ElemExists, alpha)
	if at < 0 {
		return typeErrorf("existential ^t%d is not in scope", alpha)
	}
	if isMono(t) && c.cx.wellFormed(at, t) {
		c.cx.solve(alpha, t)
		return nil
	}

	switch t := t.(type) {
	case *TExists:
		if c.cx.indexOf(ElemExists, t.ID) > at {
			c.cx.solve(t.ID, &TExists{ID: alpha})
			return nil
		}
	case *TArrow:
		a1, a2 := c.articulate(alpha)
		if err := c.instL(a1, t.From); err != nil {
			return err
		}
		return c.instR(c.cx.Apply(t.To), a2)
	case *TForall:
		mark := c.cx.fresh()
		id, body := c.openExists(t)
		c.cx.push(Elem{Kind: ElemMarker, ID: mark}, Elem{Kind: ElemExists, ID: id})
		if err := c.instR(body, alpha); err != nil {
			return err
		}
		c.cx.dropFrom(ElemMarker, mark)
		return nil
	}
	return typeErrorf("cannot instantiate ^t%d to %s", alpha, t)
}

func (c *checker) check(e Expr, t Type) error {
	if f, ok := t.(*TForall); ok {
		v, body := c.open(f)
		c.cx.push(Elem{Kind: ElemVar, Var: v})
		if err := c.check(e, body); err != nil {
			return err
		}
		c.cx.dropFrom(ElemVar, v.ID)
		return nil
	}

	switch e := e.(type) {
	case *EUnit:
		if _, ok := t.(*TUnit); ok {
			return nil
		}
	case *ELam:
		if arr, ok := t.(*TArrow); ok {
			c.cx.push(Elem{Kind: ElemTerm, Var: e.Param, Type: arr.From})
			if err := c.check(e.Body, arr.To); err != nil {
				return err
			}
			c.cx.dropFrom(ElemTerm, e.Param.ID)
			return nil
		}
	case *ELet:
		bound, err := c.letBinding(e)
		if err != nil {
			return err
		}
		c.cx.push(Elem{Kind: ElemTerm, Var: e.Name, Type: bound})
		if err := c.check(e.Body, t); err != nil {
			return err
		}
		c.cx.remove(ElemTerm, e.Name.ID)
		return nil
	}

	got, err := c.synth(e)
	if err != nil {
		return err
	}
	return c.subtype(c.cx.Apply(got), c.cx.Apply(t))
}

func (c *checker) synth(e Expr) (Type, error) {
	switch e := e.(type) {
	case *EVar:
		t, ok := c.cx.lookupTerm(e.Ident.ID)
		if !ok {
			return nil, typeErrorf("%s is not in scope", e.Ident)
		}
		return t, nil
	case *EUnit:
		return &TUnit{}, nil
	case *EAnn:
		if !c.cx.wellFormed(len(c.cx.elems), e.Type) {
			return nil, typeErrorf("annotation %s is not well-formed", e.Type)
		}
		if err := c.check(e.Expr, e.Type); err != nil {
			return nil, err
		}
		return e.Type, nil
	case *ELam:
		mark := c.cx.fresh()
		alpha := c.cx.fresh()
		beta := c.cx.fresh()
		c.cx.push(
			Elem{Kind: ElemMarker, ID: mark},
			Elem{Kind: ElemExists, ID: alpha},
			Elem{Kind: ElemExists, ID: beta},
			Elem{Kind: ElemTerm, Var: e.Param, Type: &TExists{ID: alpha}},
		)
		if err := c.check(e.Body, &TExists{ID: beta}); err != nil {
			return nil, err
		}
		t := c.cx.Apply(&TArrow{From: &TExists{ID: alpha}, To: &TExists{ID: beta}})
		t = c.cx.generalize(mark, t)
		c.cx.dropFrom(ElemMarker, mark)
		return t, nil
	case *EApp:
		fn, err := c.synth(e.Fun)
		if err != nil {
			return nil, err
		}
		return c.synthApp(c.cx.Apply(fn), e.Arg)
	case *ELet:
		bound, err := c.letBinding(e)
		if err != nil {
			return nil, err
		}
		c.cx.push(Elem{Kind: ElemTerm, Var: e.Name, Type: bound})
		t, err := c.synth(e.Body)
		if err != nil {
			return nil, err
		}
		c.cx.remove(ElemTerm, e.Name.ID)
		return t, nil
	}
	return nil, typeErrorf("unexpected term %T", e)
}

// letBinding computes the type bound by a let: the annotation when present,
// otherwise the generalized synthesized type of the value.
func (c *checker) letBinding(e *ELet) (Type, error) {
	if e.Type != nil {
		if !c.cx.wellFormed(len(c.cx.elems), e.Type) {
			return nil, typeErrorf("annotation %s is not well-formed", e.Type)
		}
		if err := c.check(e.Value, e.Type); err != nil {
			return nil, err
		}
		return e.Type, nil
	}
	mark := c.cx.fresh()
	c.cx.push(Elem{Kind: ElemMarker, ID: mark})
	t, err := c.synth(e.Value)
	if err != nil {
		return nil, err
	}
	t = c.cx.generalize(mark, c.cx.Apply(t))
	c.cx.dropFrom(ElemMarker, mark)
	return t, nil
}

// synthApp synthesizes the result of applying a function of type t to e.
func (c *checker) synthApp(t Type, e Expr) (Type, error) {
	switch t := t.(type) {
	case *TForall:
		id, body := c.openExists(t)
		c.cx.push(Elem{Kind: ElemExists, ID: id})
		return c.synthApp(body, e)
	case *TExists:
		if c.cx.indexOf(ElemExists, t.ID) < 0 {
			break
		}
		a1, a2 := c.articulate(t.ID)
		if err := c.check(e, &TExists{ID: a1}); err != nil {
			return nil, err
		}
		return &TExists{ID: a2}, nil
	case *TArrow:
		if err := c.check(e, t.From); err != nil {
			return nil, err
		}
		return t.To, nil
	}
	return nil, typeErrorf("cannot apply a value of type %s", t)
}
