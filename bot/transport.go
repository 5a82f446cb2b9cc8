package bot

import (
	"context"
	"time"

	"github.com/calypso-lang/calypso-bot/config"
)

// User is a chat user.
type User struct {
	ID  string
	Tag string
	Bot bool
}

// Message is an inbound chat message.
type Message struct {
	ID        string
	ChannelID string
	// GuildID is empty for direct messages.
	GuildID   string
	Author    User
	Content   string
	Timestamp time.Time
}

// IsDM reports whether the message was sent in a direct message channel.
func (m Message) IsDM() bool { return m.GuildID == "" }

// Embed is a titled message card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// EmbedField is a named section inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Button is an interactive control attached to a message.
type Button struct {
	Label    string
	Emoji    string
	CustomID string
}

// Outgoing is a message to send or an edit to apply.
type Outgoing struct {
	Content string
	Embeds  []Embed
	Buttons []Button
	// ReplyTo references an earlier message in the same channel.
	ReplyTo string
}

// Sent identifies a message the transport delivered.
type Sent struct {
	ID        string
	ChannelID string
	Timestamp time.Time
}

// ComponentPress is a button press on a message the bot sent.
type ComponentPress struct {
	InteractionID string
	Token         string
	CustomID      string
	User          User
	ChannelID     string
	MessageID     string
	// ManageMessages is set when the presser may delete others' messages
	// in the channel.
	ManageMessages bool
}

// Ready describes a gateway session that finished connecting.
type Ready struct {
	User   User
	Guilds int
}

// Transport is the chat platform as seen by the bot.
type Transport interface {
	Send(ctx context.Context, channelID string, m Outgoing) (Sent, error)
	Edit(ctx context.Context, channelID, messageID string, m Outgoing) error
	Delete(ctx context.Context, channelID, messageID string) error
	React(ctx context.Context, channelID, messageID, emoji string) error

	// Acknowledge accepts a component press without a visible reply.
	Acknowledge(ctx context.Context, p ComponentPress) error
	// RespondEphemeral answers a component press with a message only the
	// presser can see.
	RespondEphemeral(ctx context.Context, p ComponentPress, content string) error

	SetPresence(ctx context.Context, a config.Activity) error
}
