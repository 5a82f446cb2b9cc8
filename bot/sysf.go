package bot

import (
	"context"

	"github.com/calypso-lang/calypso-bot/pipeline"
)

func (b *Bot) sysfGroup() *Group {
	return &Group{
		Name:    "SysF",
		Prefix:  "sysf",
		Summary: "Bidirectionally typed impredicative System F w/ higher-rank polymorphism",
		Description: "Various commands doing operations on a System F lambda calculus. " +
			"It is based on the paper \"Complete and Easy Bidirectional Typechecking for Higher-Rank Polymorphism\".",
		Commands: []*Command{
			{
				Name:        "parse",
				Description: "Parse a single term and show the result.",
				Usage:       "<term>",
				Run:         b.stage(pipeline.DepthParse),
			},
			{
				Name:        "resolve",
				Description: "Parse and resolve a single term and show the result.",
				Usage:       "<term>",
				Run:         b.stage(pipeline.DepthResolve),
			},
			{
				Name:        "infer",
				Aliases:     []string{"typeck", "typecheck", "tc"},
				Description: "Parse, resolve, and typecheck a single term and show the result.",
				Usage:       "<term>",
				Run:         b.stage(pipeline.DepthInfer),
			},
		},
	}
}

// stage runs the pipeline up to depth and replies with one embed per section.
// Syntax and resolution errors have already been shown to the user and are
// not failures of the command. Sections rendered before a resolution error
// follow the report.
func (b *Bot) stage(depth pipeline.Depth) Handler {
	return func(ctx context.Context, inv *Invocation) error {
		res, err := b.pipe.Run(ctx, inv, inv.Args, depth)
		if err != nil && !pipeline.Reported(err) {
			return err
		}
		if res == nil || len(res.Sections) == 0 {
			return nil
		}

		embeds := make([]Embed, len(res.Sections))
		for i, s := range res.Sections {
			body := s.Body
			if s.Code {
				body = codeBlock(body)
			}
			embeds[i] = success(s.Title, body)
		}
		_, err = inv.Send(ctx, Outgoing{
			Embeds:  embeds,
			Buttons: []Button{cleanupButton(inv.Message.Author.ID)},
		})
		return err
	}
}
