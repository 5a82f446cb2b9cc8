package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/bootstrap"
	"github.com/calypso-lang/calypso-bot/bot"
	"github.com/calypso-lang/calypso-bot/config"
)

// ServiceName is the lifecycle name of the gateway.
const ServiceName = "discord"

// HandlerTimeout bounds the work done for one inbound event.
const HandlerTimeout = 30 * time.Second

// Intents are the gateway events the bot subscribes to.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// ErrNoOwner is returned when the application reports no owner.
var ErrNoOwner = errors.New("application has no owner")

// Gateway owns the discordgo session and feeds its events to a bot.
type Gateway struct {
	session   *discordgo.Session
	transport *Transport
	logger    *zap.Logger

	ready    atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a session for cfg. Nothing connects until Start.
func New(cfg config.DiscordConfig, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents

	return &Gateway{
		session:   s,
		transport: NewTransport(s),
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Transport returns the bot-facing side of the session.
func (g *Gateway) Transport() *Transport {
	return g.transport
}

// Owners returns the ids of the application owner, or of the team owner
// when the application belongs to a team.
func (g *Gateway) Owners(ctx context.Context) ([]string, error) {
	endpoint := discordgo.EndpointOAuth2Application("@me")
	body, err := g.session.RequestWithBucketID("GET", endpoint, nil, discordgo.EndpointOAuth2Application(""), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get application info: %w", err)
	}
	var app discordgo.Application
	if err := json.Unmarshal(body, &app); err != nil {
		return nil, fmt.Errorf("decode application info: %w", err)
	}
	return owners(&app)
}

func owners(app *discordgo.Application) ([]string, error) {
	if app.Team != nil && app.Team.OwnerID != "" {
		return []string{app.Team.OwnerID}, nil
	}
	if app.Owner != nil && app.Owner.ID != "" {
		return []string{app.Owner.ID}, nil
	}
	return nil, ErrNoOwner
}

// Attach routes session events to b. Every event is handled with its own
// context derived from base.
func (g *Gateway) Attach(base context.Context, b *bot.Bot) {
	g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		ctx, cancel := context.WithTimeout(base, HandlerTimeout)
		defer cancel()
		g.ready.Store(true)
		if err := b.OnReady(ctx, ready(r)); err != nil {
			g.logger.Warn("failed to set presence", zap.Error(err))
		}
	})

	g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		ctx, cancel := context.WithTimeout(base, HandlerTimeout)
		defer cancel()
		if err := b.HandleMessage(ctx, message(m.Message)); err != nil {
			g.logger.Debug("message handler failed", zap.String("message", m.ID), zap.Error(err))
		}
	})

	g.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		p, ok := press(i.Interaction)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(base, HandlerTimeout)
		defer cancel()
		if err := b.OnComponent(ctx, p); err != nil {
			g.logger.Warn("component handler failed", zap.String("custom_id", p.CustomID), zap.Error(err))
		}
	})

	g.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		g.ready.Store(false)
	})
}

// RequestShutdown asks the owner of the gateway to stop the process.
func (g *Gateway) RequestShutdown() {
	g.doneOnce.Do(func() { close(g.done) })
}

// Done is closed after RequestShutdown.
func (g *Gateway) Done() <-chan struct{} {
	return g.done
}

func (g *Gateway) Name() string { return ServiceName }

// Start opens the websocket connection.
func (g *Gateway) Start(context.Context) error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	g.logger.Info("discord session opened")
	return nil
}

// Stop closes the websocket connection.
func (g *Gateway) Stop(context.Context) error {
	g.ready.Store(false)
	if err := g.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (g *Gateway) Health(context.Context) (bootstrap.HealthStatus, error) {
	status := bootstrap.HealthStatus{State: bootstrap.HealthStarting, LastCheck: time.Now()}
	if g.ready.Load() {
		status.State = bootstrap.HealthHealthy
		status.Data = map[string]interface{}{"latency_ms": g.session.HeartbeatLatency().Milliseconds()}
	}
	return status, nil
}

func user(u *discordgo.User) bot.User {
	if u == nil {
		return bot.User{}
	}
	return bot.User{ID: u.ID, Tag: u.String(), Bot: u.Bot}
}

func message(m *discordgo.Message) bot.Message {
	return bot.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    user(m.Author),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func ready(r *discordgo.Ready) bot.Ready {
	return bot.Ready{User: user(r.User), Guilds: len(r.Guilds)}
}

// press converts a button interaction. Other interaction kinds are not
// handled by the bot.
func press(i *discordgo.Interaction) (bot.ComponentPress, bool) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent || i.Message == nil {
		return bot.ComponentPress{}, false
	}
	data, ok := i.Data.(discordgo.MessageComponentInteractionData)
	if !ok {
		return bot.ComponentPress{}, false
	}
	p := bot.ComponentPress{
		InteractionID: i.ID,
		Token:         i.Token,
		CustomID:      data.CustomID,
		ChannelID:     i.ChannelID,
		MessageID:     i.Message.ID,
	}
	switch {
	case i.Member != nil:
		p.User = user(i.Member.User)
		p.ManageMessages = i.Member.Permissions&discordgo.PermissionManageMessages != 0
	case i.User != nil:
		p.User = user(i.User)
	}
	return p, true
}
