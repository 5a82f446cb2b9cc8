package sysf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calypso-lang/calypso-bot/pretty"
)

func renderTerm(t *testing.T, src string) string {
	t.Helper()
	term, err := Parse(src)
	require.NoError(t, err)
	a := pretty.NewArena()
	return a.Pretty(TermDoc(a, term), 80)
}

func resolve(t *testing.T, src string) Expr {
	t.Helper()
	term, err := Parse(src)
	require.NoError(t, err)
	e, ok := Resolve(term)
	require.True(t, ok, "resolve %q", src)
	return e
}

func renderExpr(t *testing.T, src string) string {
	t.Helper()
	a := pretty.NewArena()
	return a.Pretty(ExprDoc(a, resolve(t, src)), 80)
}

func infer(t *testing.T, src string) (string, *TyCtxt) {
	t.Helper()
	tcx := NewTyCtxt()
	ty, err := InferErr(tcx, resolve(t, src))
	require.NoError(t, err, "infer %q", src)
	a := pretty.NewArena()
	return a.Pretty(TypeDoc(a, ty), 80), tcx
}

func TestParseRendersSurfaceSyntax(t *testing.T) {
	cases := []struct{ src, want string }{
		{`\x. x`, "λx. x"},
		{`λx y. x`, "λx y. x"},
		{`(\x. x) ()`, "(λx. x) ()"},
		{`f (g x) y`, "f (g x) y"},
		{`f \x. x`, "f (λx. x)"},
		{`(x : forall a b. a -> b)`, "(x : ∀a b. a → b)"},
		{`(x : (Unit -> 1) -> ())`, "(x : (Unit → Unit) → Unit)"},
		{`let id = \x. x in id ()`, "let id = λx. x in id ()"},
		{`let u : Unit = () in u`, "let u : Unit = () in u"},
		{"\n  x  -- trailing comment", "x"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, renderTerm(t, c.src), "source %q", c.src)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{``, "expected a term, found end of input"},
		{`\x`, "expected `.` after lambda parameters, found end of input"},
		{`\. x`, "expected a parameter name"},
		{`(x`, "expected `)` to close parenthesised term"},
		{`x )`, "expected end of input, found `)`"},
		{`(x : )`, "expected a type, found `)`"},
		{`let = x in x`, "expected identifier after `let`"},
		{`1`, "expected a term, found `1`"},
	}
	for _, c := range cases {
		_, err := Parse(c.src)
		require.Error(t, err, "source %q", c.src)
		assert.True(t, IsSyntaxError(err))
		assert.Contains(t, err.Error(), c.want, "source %q", c.src)
	}
}

func TestSyntaxErrorDiagnostic(t *testing.T) {
	_, err := Parse(`\x y z) x`)
	require.Error(t, err)

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Pos.Line)
	assert.Equal(t, 7, se.Pos.Col)

	lines := strings.Split(se.Diagnostic(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, ` 1 | \x y z) x`, lines[2])
	assert.Equal(t, `   |       ^`, lines[3])
}

func TestResolveAssignsUniqueIDs(t *testing.T) {
	assert.Equal(t, "λx#0. x#0", renderExpr(t, `\x. x`))
	assert.Equal(t, "λx#0 y#1. x#0", renderExpr(t, `\x y. x`))
	assert.Equal(t, "λx#0 x#1. x#1", renderExpr(t, `\x x. x`))
	assert.Equal(t, "let id#1 = λx#0. x#0 in id#1 ()", renderExpr(t, `let id = \x. x in id ()`))
	assert.Equal(t, "(λx#0. x#0 : ∀a#1. a#1 → a#1)", renderExpr(t, `(\x. x : forall a. a -> a)`))
}

func TestResolveFailures(t *testing.T) {
	for _, src := range []string{
		`x`,
		`\x. y`,
		`(\x. x : forall a. b)`,
		`let f = f in f`,
		// Type variables are not scoped over the annotated term.
		`(\x. (x : a) : forall a. a -> a)`,
	} {
		term, err := Parse(src)
		require.NoError(t, err)
		_, ok := Resolve(term)
		assert.False(t, ok, "resolve %q", src)
	}
}

func TestInferPolymorphicIdentity(t *testing.T) {
	got, tcx := infer(t, `\x. x`)
	assert.Equal(t, "∀a. a → a", got)
	assert.Empty(t, tcx.Unsolved())
	assert.Contains(t, tcx.String(), "elements: []")
}

func TestInferClosedTypes(t *testing.T) {
	cases := []struct{ src, want string }{
		{`()`, "Unit"},
		{`\x y. x`, "∀a b. a → b → a"},
		{`\f x. f x`, "∀a b. (a → b) → a → b"},
		{`\f. f ()`, "∀a. (Unit → a) → a"},
		{`let id = \x. x in id ()`, "Unit"},
		{`let id = \x. x in id id`, "∀a. a → a"},
		{`(\x. x : forall a. a -> a)`, "∀a. a → a"},
		{`(\x. x) ()`, "Unit"},
		{`(\f. f () : (forall a. a -> a) -> Unit)`, "(∀a. a → a) → Unit"},
		{`(\f. (f f) () : (forall a. a -> a) -> Unit)`, "(∀a. a → a) → Unit"},
		{`let u : Unit = () in u`, "Unit"},
		{`(\x. x : Unit -> Unit)`, "Unit → Unit"},
		{`(\k. k (\x. x) : forall r. ((forall a. a -> a) -> r) -> r)`, "∀r. ((∀a. a → a) → r) → r"},
	}
	for _, c := range cases {
		got, tcx := infer(t, c.src)
		assert.Equal(t, c.want, got, "source %q", c.src)
		assert.Empty(t, tcx.Unsolved(), "source %q", c.src)
	}
}

func TestInferUninferrable(t *testing.T) {
	for _, src := range []string{
		`() ()`,
		`\f. f f`,
		`(\x. x : forall a. a -> Unit)`,
		`(() : forall a. a)`,
		`(\f. f () : (Unit -> Unit) -> (Unit -> Unit))`,
	} {
		ty, ok := Infer(NewTyCtxt(), resolve(t, src))
		assert.False(t, ok, "source %q", src)
		assert.Nil(t, ty)
	}
}

func TestInferFreshIDsStartAboveTerm(t *testing.T) {
	tcx := NewTyCtxt()
	e := resolve(t, `\a b c. a`)
	_, ok := Infer(tcx, e)
	require.True(t, ok)
	assert.Greater(t, tcx.next, maxID(e))
}

func TestTyCtxtDebugListsSolutions(t *testing.T) {
	tcx := NewTyCtxt()
	tcx.push(
		Elem{Kind: ElemVar, Var: Ident{Name: "a", ID: 1}},
		Elem{Kind: ElemTerm, Var: Ident{Name: "x", ID: 2}, Type: &TVar{Ident: Ident{Name: "a", ID: 1}}},
		Elem{Kind: ElemExists, ID: 3},
		Elem{Kind: ElemSolved, ID: 4, Type: &TUnit{}},
		Elem{Kind: ElemMarker, ID: 5},
	)
	tcx.reserve(6)

	want := "TyCtxt {\n" +
		"    elements: [\n" +
		"        a#1,\n" +
		"        x#2 : a#1,\n" +
		"        ^t3,\n" +
		"        ^t4 = Unit,\n" +
		"        ▶^t5,\n" +
		"    ],\n" +
		"    next: 6,\n" +
		"}"
	assert.Equal(t, want, tcx.String())
	assert.Equal(t, []uint32{3}, tcx.Unsolved())
}

func TestApplySubstitutesTransitively(t *testing.T) {
	tcx := NewTyCtxt()
	tcx.push(
		Elem{Kind: ElemSolved, ID: 1, Type: &TUnit{}},
		Elem{Kind: ElemSolved, ID: 2, Type: &TArrow{From: &TExists{ID: 1}, To: &TExists{ID: 3}}},
		Elem{Kind: ElemExists, ID: 3},
	)
	got := tcx.Apply(&TArrow{From: &TExists{ID: 2}, To: &TExists{ID: 1}})
	assert.Equal(t, "(Unit → ^t3) → Unit", got.String())
}

func TestTypeEqualUpToRenaming(t *testing.T) {
	a := Ident{Name: "a", ID: 1}
	b := Ident{Name: "b", ID: 2}
	left := &TForall{Var: a, Body: &TArrow{From: &TVar{Ident: a}, To: &TVar{Ident: a}}}
	right := &TForall{Var: b, Body: &TArrow{From: &TVar{Ident: b}, To: &TVar{Ident: b}}}
	assert.True(t, TypeEqual(left, right))
	assert.False(t, TypeEqual(left, &TForall{Var: b, Body: &TArrow{From: &TVar{Ident: b}, To: &TUnit{}}}))
}

func TestLongTermsBreakAtWidth(t *testing.T) {
	src := `\f. f ` + strings.Repeat("() ", 40)
	a := pretty.NewArena()
	term, err := Parse(src)
	require.NoError(t, err)
	out := a.Pretty(TermDoc(a, term), 80)
	assert.Contains(t, out, "\n")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 80)
	}
}
