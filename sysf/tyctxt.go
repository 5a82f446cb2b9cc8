package sysf

import (
	"fmt"
	"strings"
)

// ElemKind tags an entry of the ordered type context.
type ElemKind uint8

const (
	ElemVar    ElemKind = iota // rigid type variable α
	ElemTerm                   // term binding x : A
	ElemExists                 // unsolved existential α̂
	ElemSolved                 // solved existential α̂ = τ
	ElemMarker                 // scope marker ▶α̂
)

// Elem is one entry of a TyCtxt. Var is set for ElemVar and ElemTerm; ID is
// the existential (or marker) id for the other kinds; Type is the binding's
// type or the solution.
type Elem struct {
	Kind ElemKind
	Var  Ident
	ID   uint32
	Type Type
}

func (e Elem) String() string {
	switch e.Kind {
	case ElemVar:
		return e.Var.String()
	case ElemTerm:
		return fmt.Sprintf("%s : %s", e.Var, e.Type)
	case ElemExists:
		return fmt.Sprintf("^t%d", e.ID)
	case ElemSolved:
		return fmt.Sprintf("^t%d = %s", e.ID, e.Type)
	case ElemMarker:
		return fmt.Sprintf("▶^t%d", e.ID)
	}
	return "?"
}

// TyCtxt is the ordered context threaded through one inference. It is
// created per inference and must not be shared.
type TyCtxt struct {
	elems []Elem
	next  uint32
}

// NewTyCtxt returns an empty context.
func NewTyCtxt() *TyCtxt {
	return &TyCtxt{}
}

// Unsolved lists the existentials that have no solution.
func (c *TyCtxt) Unsolved() []uint32 {
	var out []uint32
	for _, e := range c.elems {
		if e.Kind == ElemExists {
			out = append(out, e.ID)
		}
	}
	return out
}

// String is the debug rendering shown to users after inference.
func (c *TyCtxt) String() string {
	var b strings.Builder
	b.WriteString("TyCtxt {\n    elements: [")
	if len(c.elems) == 0 {
		b.WriteString("],\n")
	} else {
		b.WriteString("\n")
		for _, e := range c.elems {
			fmt.Fprintf(&b, "        %s,\n", e)
		}
		b.WriteString("    ],\n")
	}
	fmt.Fprintf(&b, "    next: %d,\n}", c.next)
	return b.String()
}

// reserve makes sure fresh ids start above floor.
func (c *TyCtxt) reserve(floor uint32) {
	if c.next < floor {
		c.next = floor
	}
}

func (c *TyCtxt) fresh() uint32 {
	id := c.next
	c.next++
	return id
}

func (c *TyCtxt) freshVar(name string) Ident {
	return Ident{Name: name, ID: c.fresh()}
}

func (c *TyCtxt) push(e ...Elem) { c.elems = append(c.elems, e...) }

func (c *TyCtxt) indexOf(kind ElemKind, id uint32) int {
	for i := len(c.elems) - 1; i >= 0; i-- {
		e := c.elems[i]
		if e.Kind != kind {
			continue
		}
		switch kind {
		case ElemVar, ElemTerm:
			if e.Var.ID == id {
				return i
			}
		default:
			if e.ID == id {
				return i
			}
		}
	}
	return -1
}

// existsIndex finds α̂ whether solved or not.
func (c *TyCtxt) existsIndex(id uint32) int {
	if i := c.indexOf(ElemExists, id); i >= 0 {
		return i
	}
	return c.indexOf(ElemSolved, id)
}

// dropFrom truncates the context at the given entry, removing it and
// everything after it.
func (c *TyCtxt) dropFrom(kind ElemKind, id uint32) {
	if i := c.indexOf(kind, id); i >= 0 {
		c.elems = c.elems[:i]
	}
}

// remove deletes a single entry, leaving later entries in place.
func (c *TyCtxt) remove(kind ElemKind, id uint32) {
	if i := c.indexOf(kind, id); i >= 0 {
		c.elems = append(c.elems[:i], c.elems[i+1:]...)
	}
}

// replace swaps the unsolved existential id for the given entries.
func (c *TyCtxt) replace(id uint32, with ...Elem) {
	i := c.indexOf(ElemExists, id)
	if i < 0 {
		return
	}
	tail := append([]Elem(nil), c.elems[i+1:]...)
	c.elems = append(append(c.elems[:i], with...), tail...)
}

func (c *TyCtxt) solve(id uint32, t Type) {
	if i := c.indexOf(ElemExists, id); i >= 0 {
		c.elems[i] = Elem{Kind: ElemSolved, ID: id, Type: t}
	}
}

func (c *TyCtxt) lookupTerm(id uint32) (Type, bool) {
	if i := c.indexOf(ElemTerm, id); i >= 0 {
		return c.elems[i].Type, true
	}
	return nil, false
}

// Apply substitutes every solved existential in t, recursively.
func (c *TyCtxt) Apply(t Type) Type {
	switch t := t.(type) {
	case *TExists:
		if i := c.indexOf(ElemSolved, t.ID); i >= 0 {
			return c.Apply(c.elems[i].Type)
		}
		return t
	case *TArrow:
		return &TArrow{From: c.Apply(t.From), To: c.Apply(t.To)}
	case *TForall:
		return &TForall{Var: t.Var, Body: c.Apply(t.Body)}
	default:
		return t
	}
}

// wellFormed checks t against the first n entries of the context.
func (c *TyCtxt) wellFormed(n int, t Type) bool {
	return wellFormedIn(c.elems[:n], nil, t)
}

func wellFormedIn(elems []Elem, bound map[uint32]bool, t Type) bool {
	switch t := t.(type) {
	case *TUnit:
		return true
	case *TVar:
		if bound[t.Ident.ID] {
			return true
		}
		for _, e := range elems {
			if e.Kind == ElemVar && e.Var.ID == t.Ident.ID {
				return true
			}
		}
		return false
	case *TExists:
		for _, e := range elems {
			if (e.Kind == ElemExists || e.Kind == ElemSolved) && e.ID == t.ID {
				return true
			}
		}
		return false
	case *TArrow:
		return wellFormedIn(elems, bound, t.From) && wellFormedIn(elems, bound, t.To)
	case *TForall:
		inner := make(map[uint32]bool, len(bound)+1)
		for k := range bound {
			inner[k] = true
		}
		inner[t.Var.ID] = true
		return wellFormedIn(elems, inner, t.Body)
	}
	return false
}

// generalize closes t over the unsolved existentials declared after the
// marker, in order of their first appearance in t.
func (c *TyCtxt) generalize(marker uint32, t Type) Type {
	at := c.indexOf(ElemMarker, marker)
	if at < 0 {
		return t
	}
	local := map[uint32]bool{}
	for _, e := range c.elems[at+1:] {
		if e.Kind == ElemExists {
			local[e.ID] = true
		}
	}

	taken := map[string]bool{}
	boundNames(t, taken)
	var vars []Ident
	for _, id := range existsIn(t) {
		if !local[id] {
			continue
		}
		v := c.freshVar(nextName(taken))
		t = substExists(t, id, &TVar{Ident: v})
		vars = append(vars, v)
	}
	for i := len(vars) - 1; i >= 0; i-- {
		t = &TForall{Var: vars[i], Body: t}
	}
	return t
}

// nextName picks the first unused name from a, b, ..., z, a1, b1, ...
func nextName(taken map[string]bool) string {
	for n := 0; ; n++ {
		name := string(rune('a' + n%26))
		if n >= 26 {
			name = fmt.Sprintf("%s%d", name, n/26)
		}
		if !taken[name] {
			taken[name] = true
			return name
		}
	}
}
