// Package discord connects the bot to Discord through discordgo.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/calypso-lang/calypso-bot/bot"
	"github.com/calypso-lang/calypso-bot/config"
)

// Transport implements bot.Transport on a discordgo session.
type Transport struct {
	s *discordgo.Session
}

var _ bot.Transport = (*Transport)(nil)

// NewTransport wraps s.
func NewTransport(s *discordgo.Session) *Transport {
	return &Transport{s: s}
}

func (t *Transport) Send(ctx context.Context, channelID string, m bot.Outgoing) (bot.Sent, error) {
	msg, err := t.s.ChannelMessageSendComplex(channelID, messageSend(channelID, m), discordgo.WithContext(ctx))
	if err != nil {
		return bot.Sent{}, fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return bot.Sent{ID: msg.ID, ChannelID: msg.ChannelID, Timestamp: msg.Timestamp}, nil
}

func (t *Transport) Edit(ctx context.Context, channelID, messageID string, m bot.Outgoing) error {
	edit := discordgo.NewMessageEdit(channelID, messageID).SetEmbeds(embeds(m.Embeds))
	if m.Content != "" {
		edit.SetContent(m.Content)
	}
	if _, err := t.s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}
	return nil
}

func (t *Transport) Delete(ctx context.Context, channelID, messageID string) error {
	if err := t.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

func (t *Transport) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := t.s.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("react to %s: %w", messageID, err)
	}
	return nil
}

func (t *Transport) Acknowledge(ctx context.Context, p bot.ComponentPress) error {
	return t.respond(ctx, p, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func (t *Transport) RespondEphemeral(ctx context.Context, p bot.ComponentPress, content string) error {
	return t.respond(ctx, p, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (t *Transport) respond(ctx context.Context, p bot.ComponentPress, resp *discordgo.InteractionResponse) error {
	i := &discordgo.Interaction{ID: p.InteractionID, Token: p.Token}
	if err := t.s.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("respond to interaction %s: %w", p.InteractionID, err)
	}
	return nil
}

// SetPresence goes over the gateway websocket, which has no request context.
func (t *Transport) SetPresence(_ context.Context, a config.Activity) error {
	err := t.s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{activity(a)},
		Status:     string(discordgo.StatusOnline),
	})
	if err != nil {
		return fmt.Errorf("update presence: %w", err)
	}
	return nil
}

func messageSend(channelID string, m bot.Outgoing) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content: m.Content,
		Embeds:  embeds(m.Embeds),
	}
	if len(m.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range m.Buttons {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.DangerButton,
				CustomID: b.CustomID,
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			row.Components = append(row.Components, btn)
		}
		send.Components = []discordgo.MessageComponent{row}
	}
	if m.ReplyTo != "" {
		send.Reference = &discordgo.MessageReference{MessageID: m.ReplyTo, ChannelID: channelID}
	}
	return send
}

func embeds(in []bot.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, len(in))
	for i, e := range in {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		out[i] = me
	}
	return out
}

func activity(a config.Activity) *discordgo.Activity {
	out := &discordgo.Activity{Name: a.Name, URL: a.URL}
	switch a.Type {
	case config.ActivityStreaming:
		out.Type = discordgo.ActivityTypeStreaming
	case config.ActivityListening:
		out.Type = discordgo.ActivityTypeListening
	case config.ActivityWatching:
		out.Type = discordgo.ActivityTypeWatching
	case config.ActivityCompeting:
		out.Type = discordgo.ActivityTypeCompeting
	default:
		out.Type = discordgo.ActivityTypeGame
	}
	return out
}
