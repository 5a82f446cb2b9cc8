// Package pipeline runs a term through parse, resolve and infer. Every stage
// renders its output before the next one starts, and a failing stage emits
// exactly one error report and stops the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/logging"
	"github.com/calypso-lang/calypso-bot/render"
	"github.com/calypso-lang/calypso-bot/sysf"
)

var (
	// ErrSyntax marks a run stopped by a syntax error that was already reported.
	ErrSyntax = errors.New("syntax error")
	// ErrResolution marks a run stopped by a resolution error that was already reported.
	ErrResolution = errors.New("resolution error")
	// ErrNilDependency is returned by New when a collaborator is missing.
	ErrNilDependency = errors.New("pipeline: missing dependency")
)

// Report titles and fixed messages.
const (
	TitleSyntaxError     = "Syntax Error"
	TitleResolutionError = "Resolution Error"
	TitleParsed          = "Parsed Term"
	TitleResolved        = "Resolved Term"
	TitleInferred        = "Inferred Type"
	TitleTyCtxt          = "TyCtxt"

	ResolutionErrorDetail = "(More detail in resolution errors is to come soon.)"
	Uninferrable          = "Uninferrable."
)

// Engine is the term-processing collaborator.
type Engine interface {
	Parse(raw string) (sysf.Term, error)
	Resolve(t sysf.Term) (sysf.Expr, bool)
	Infer(tcx *sysf.TyCtxt, e sysf.Expr) (sysf.Type, bool)
}

// Renderer formats values; render.Service implements it.
type Renderer interface {
	Render(ctx context.Context, v render.Value) (string, error)
}

// Report is a user-facing error message.
type Report struct {
	Title string
	Body  string
	// Code is set when Body should be shown as a code block.
	Code bool
}

// Reporter delivers error reports to the user.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(ctx context.Context, r Report) error

// Report calls f(ctx, r).
func (f ReporterFunc) Report(ctx context.Context, r Report) error { return f(ctx, r) }

// Depth selects how far Run goes.
type Depth int

const (
	DepthParse Depth = iota + 1
	DepthResolve
	DepthInfer
)

func (d Depth) String() string {
	switch d {
	case DepthParse:
		return "parse"
	case DepthResolve:
		return "resolve"
	case DepthInfer:
		return "infer"
	}
	return fmt.Sprintf("depth(%d)", int(d))
}

// ParseDepth maps a stage name to a Depth.
func ParseDepth(s string) (Depth, error) {
	switch s {
	case "parse":
		return DepthParse, nil
	case "resolve":
		return DepthResolve, nil
	case "infer", "typeck", "typecheck", "tc":
		return DepthInfer, nil
	}
	return 0, fmt.Errorf("unknown stage %q", s)
}

// Section is one rendered piece of a successful run.
type Section = Report

// Inference is the outcome of the infer stage. OK is false for an
// uninferrable term, which is not an error.
type Inference struct {
	Type   sysf.Type
	OK     bool
	Text   string
	TyCtxt *sysf.TyCtxt
}

// Result collects everything a run produced, in stage order.
type Result struct {
	Sections  []Section
	Parsed    sysf.Term
	Resolved  sysf.Expr
	Inference *Inference
}

// Pipeline sequences the stages over an Engine and a Renderer.
type Pipeline struct {
	engine   Engine
	renderer Renderer
	logger   *zap.Logger
}

// New creates a Pipeline. A nil logger discards output.
func New(engine Engine, renderer Renderer, logger *zap.Logger) (*Pipeline, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine", ErrNilDependency)
	}
	if renderer == nil {
		return nil, fmt.Errorf("%w: renderer", ErrNilDependency)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{engine: engine, renderer: renderer, logger: logger}, nil
}

func (p *Pipeline) log(ctx context.Context) *zap.Logger {
	return logging.From(ctx, p.logger)
}

// Parse trims delimiting markup from raw, parses it and renders the result.
// A syntax error is reported through rep and returned wrapped in ErrSyntax.
func (p *Pipeline) Parse(ctx context.Context, rep Reporter, raw string) (sysf.Term, string, error) {
	input := TrimInput(raw)
	term, err := p.engine.Parse(input)
	if err != nil {
		p.log(ctx).Debug("parse failed", zap.Error(err))
		body := err.Error()
		var se *sysf.SyntaxError
		if errors.As(err, &se) {
			body = se.Diagnostic()
		}
		if rerr := rep.Report(ctx, Report{Title: TitleSyntaxError, Body: body, Code: true}); rerr != nil {
			return nil, "", fmt.Errorf("report syntax error: %w", rerr)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	text, err := p.renderer.Render(ctx, render.Parsed{Term: term})
	if err != nil {
		return nil, "", fmt.Errorf("render parsed term: %w", err)
	}
	return term, text, nil
}

// Resolve scopes term and renders the result. Failure is reported through
// rep with no further detail and returned as ErrResolution.
func (p *Pipeline) Resolve(ctx context.Context, rep Reporter, term sysf.Term) (sysf.Expr, string, error) {
	expr, ok := p.engine.Resolve(term)
	if !ok {
		p.log(ctx).Debug("resolution failed")
		if rerr := rep.Report(ctx, Report{Title: TitleResolutionError, Body: ResolutionErrorDetail}); rerr != nil {
			return nil, "", fmt.Errorf("report resolution error: %w", rerr)
		}
		return nil, "", ErrResolution
	}

	text, err := p.renderer.Render(ctx, render.Resolved{Expr: expr})
	if err != nil {
		return nil, "", fmt.Errorf("render resolved term: %w", err)
	}
	return expr, text, nil
}

// Infer runs inference in a fresh context. The returned type already has
// the context's final substitution applied. An uninferrable term yields
// OK == false and Text == Uninferrable.
func (p *Pipeline) Infer(ctx context.Context, expr sysf.Expr) (*Inference, error) {
	tcx := sysf.NewTyCtxt()
	ty, ok := p.engine.Infer(tcx, expr)
	if !ok {
		p.log(ctx).Debug("term is uninferrable")
		return &Inference{TyCtxt: tcx, Text: Uninferrable}, nil
	}

	ty = tcx.Apply(ty)
	text, err := p.renderer.Render(ctx, render.Inferred{Type: ty})
	if err != nil {
		return nil, fmt.Errorf("render inferred type: %w", err)
	}
	return &Inference{Type: ty, OK: true, Text: text, TyCtxt: tcx}, nil
}

// Run executes the stages up to depth. On ErrSyntax or ErrResolution the
// error has already been reported. A syntax error returns a nil result; a
// resolution error returns the sections of the stages that completed.
func (p *Pipeline) Run(ctx context.Context, rep Reporter, raw string, depth Depth) (*Result, error) {
	log := p.log(ctx).With(zap.Stringer("depth", depth))
	res := &Result{}

	term, text, err := p.Parse(ctx, rep, raw)
	if err != nil {
		return nil, err
	}
	res.Parsed = term
	res.Sections = append(res.Sections, Section{Title: TitleParsed, Body: text, Code: true})
	if depth <= DepthParse {
		log.Debug("pipeline finished")
		return res, nil
	}

	expr, text, err := p.Resolve(ctx, rep, term)
	if errors.Is(err, ErrResolution) {
		// The parsed term was rendered; the caller still shows it.
		return res, err
	}
	if err != nil {
		return nil, err
	}
	res.Resolved = expr
	res.Sections = append(res.Sections, Section{Title: TitleResolved, Body: text, Code: true})
	if depth <= DepthResolve {
		log.Debug("pipeline finished")
		return res, nil
	}

	inf, err := p.Infer(ctx, expr)
	if err != nil {
		return nil, err
	}
	res.Inference = inf
	res.Sections = append(res.Sections,
		Section{Title: TitleInferred, Body: inf.Text, Code: inf.OK},
		Section{Title: TitleTyCtxt, Body: inf.TyCtxt.String(), Code: true},
	)
	log.Debug("pipeline finished",
		zap.Bool("inferred", inf.OK),
		zap.Int("unsolved", len(inf.TyCtxt.Unsolved())))
	return res, nil
}

// Reported reports whether err stopped a run after its report was sent.
func Reported(err error) bool {
	return errors.Is(err, ErrSyntax) || errors.Is(err, ErrResolution)
}
