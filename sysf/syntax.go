package sysf

// Term is a parsed surface term. Names are plain strings; nothing has been
// resolved yet.
type Term interface {
	Pos() Pos
	term()
}

// Var is a variable reference.
type Var struct {
	Name string
	At   Pos
}

// UnitLit is the unit value `()`.
type UnitLit struct {
	At Pos
}

// Lam is a single-parameter abstraction; `\x y. e` parses as nested Lams.
type Lam struct {
	Param string
	Body  Term
	At    Pos
}

// App is function application.
type App struct {
	Fun Term
	Arg Term
}

// Ann is a type annotation `(e : A)`.
type Ann struct {
	Term Term
	Type TypeExpr
	At   Pos
}

// Let binds Name to Value in Body. Type is nil when unannotated.
type Let struct {
	Name  string
	Type  TypeExpr
	Value Term
	Body  Term
	At    Pos
}

func (t *Var) Pos() Pos     { return t.At }
func (t *UnitLit) Pos() Pos { return t.At }
func (t *Lam) Pos() Pos     { return t.At }
func (t *App) Pos() Pos     { return t.Fun.Pos() }
func (t *Ann) Pos() Pos     { return t.At }
func (t *Let) Pos() Pos     { return t.At }

func (*Var) term()     {}
func (*UnitLit) term() {}
func (*Lam) term()     {}
func (*App) term()     {}
func (*Ann) term()     {}
func (*Let) term()     {}

// TypeExpr is a parsed surface type.
type TypeExpr interface {
	typeExpr()
}

// TyName refers to a type variable by name.
type TyName struct {
	Name string
	At   Pos
}

// TyUnit is the unit type.
type TyUnit struct{}

// TyArrow is a function type.
type TyArrow struct {
	From TypeExpr
	To   TypeExpr
}

// TyForall quantifies one type variable.
type TyForall struct {
	Var  string
	Body TypeExpr
}

func (*TyName) typeExpr()   {}
func (*TyUnit) typeExpr()   {}
func (*TyArrow) typeExpr()  {}
func (*TyForall) typeExpr() {}
