package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/config"
	"github.com/calypso-lang/calypso-bot/logging"
)

const checkMark = "✅"

func (b *Bot) ownerGroup() *Group {
	return &Group{
		Name:       "Owner",
		OwnersOnly: true,
		Hidden:     true,
		Commands: []*Command{
			{
				Name:        "stop",
				Aliases:     []string{"sd", "shutdown", "quit", "exit"},
				Description: "Shut down the bot.",
				OwnersOnly:  true,
				Run:         b.stop,
			},
			{
				Name:        "status",
				Aliases:     []string{"act", "activity"},
				Description: "Set the bot's status.",
				Usage:       `{"name": "...", "type": "playing"}`,
				OwnersOnly:  true,
				Run:         b.status,
			},
		},
	}
}

func (b *Bot) stop(ctx context.Context, inv *Invocation) error {
	logging.From(ctx, b.logger).Info("shutting down by request", zap.String("by", inv.Message.Author.Tag))
	if err := inv.React(ctx, checkMark); err != nil {
		return err
	}
	b.shutdown()
	return nil
}

func (b *Bot) status(ctx context.Context, inv *Invocation) error {
	activity, err := config.ParseActivity(inv.Args)
	if err != nil {
		_, serr := inv.Send(ctx, Outgoing{
			Content: fmt.Sprintf("Bad parse: `%v`", err),
			ReplyTo: inv.Message.ID,
		})
		if serr != nil {
			return serr
		}
		return fmt.Errorf("parse activity: %w", err)
	}

	if err := b.transport.SetPresence(ctx, activity); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return inv.React(ctx, checkMark)
}
