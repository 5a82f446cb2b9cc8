// Package bot turns chat messages into command invocations. It knows nothing
// about a concrete chat platform: everything goes through a Transport.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calypso-lang/calypso-bot/config"
	"github.com/calypso-lang/calypso-bot/logging"
	"github.com/calypso-lang/calypso-bot/pipeline"
)

// ErrMissingDependency is returned by New when Env lacks a collaborator.
var ErrMissingDependency = errors.New("bot: missing dependency")

// NoPermission is the ephemeral answer to a cleanup press by someone else.
const NoPermission = "You don't have permission to do this!"

// Pipeline runs a term through the stages; *pipeline.Pipeline implements it.
type Pipeline interface {
	Run(ctx context.Context, rep pipeline.Reporter, raw string, depth pipeline.Depth) (*pipeline.Result, error)
}

// Env holds everything commands need. It is passed explicitly instead of
// being looked up at run time.
type Env struct {
	Pipeline  Pipeline
	Transport Transport
	Config    *config.Config
	// Owners are the application owners. Config owners are added on top.
	Owners []string
	// Shutdown disconnects from the gateway. Called by the stop command.
	Shutdown func()
	Logger   *zap.Logger
}

type settings struct {
	prefix string
	status config.Activity
	owners map[string]bool
}

// Bot dispatches messages and component presses.
type Bot struct {
	pipe      Pipeline
	transport Transport
	shutdown  func()
	logger    *zap.Logger
	appOwners map[string]bool
	groups    []*Group

	settings atomic.Pointer[settings]
	self     atomic.Pointer[User]
}

// New checks env and builds a Bot with the general, owner and sysf groups.
func New(env Env) (*Bot, error) {
	switch {
	case env.Pipeline == nil:
		return nil, fmt.Errorf("%w: pipeline", ErrMissingDependency)
	case env.Transport == nil:
		return nil, fmt.Errorf("%w: transport", ErrMissingDependency)
	case env.Config == nil:
		return nil, fmt.Errorf("%w: config", ErrMissingDependency)
	case env.Shutdown == nil:
		return nil, fmt.Errorf("%w: shutdown", ErrMissingDependency)
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}

	b := &Bot{
		pipe:      env.Pipeline,
		transport: env.Transport,
		shutdown:  env.Shutdown,
		logger:    env.Logger,
		appOwners: make(map[string]bool, len(env.Owners)),
	}
	for _, id := range env.Owners {
		b.appOwners[id] = true
	}
	b.store(env.Config)
	b.groups = []*Group{b.generalGroup(), b.ownerGroup(), b.sysfGroup()}
	return b, nil
}

func (b *Bot) store(cfg *config.Config) *settings {
	s := &settings{
		prefix: cfg.General.Prefix,
		status: cfg.Discord.Status,
		owners: make(map[string]bool, len(cfg.General.Owners)),
	}
	for _, id := range cfg.General.Owners {
		s.owners[id] = true
	}
	return b.settings.Swap(s)
}

func (b *Bot) current() *settings {
	return b.settings.Load()
}

// Apply switches to a new configuration. The prefix and owners take effect
// for the next message; a changed status is pushed once the bot is ready.
func (b *Bot) Apply(ctx context.Context, cfg *config.Config) error {
	old := b.store(cfg)
	if old.status == cfg.Discord.Status || b.self.Load() == nil {
		return nil
	}
	return b.transport.SetPresence(ctx, cfg.Discord.Status)
}

// Groups returns the registered command groups.
func (b *Bot) Groups() []*Group {
	return b.groups
}

// IsOwner reports whether id belongs to a privileged operator.
func (b *Bot) IsOwner(id string) bool {
	return b.appOwners[id] || b.current().owners[id]
}

// strip removes the command prefix or a leading mention of the bot. Direct
// messages need neither.
func (b *Bot) strip(m Message) (string, bool) {
	content := strings.TrimLeft(m.Content, " \t\r\n")

	prefix := b.current().prefix
	if len(content) >= len(prefix) && strings.EqualFold(content[:len(prefix)], prefix) {
		return content[len(prefix):], true
	}
	if self := b.self.Load(); self != nil {
		for _, mention := range []string{"<@" + self.ID + ">", "<@!" + self.ID + ">"} {
			if strings.HasPrefix(content, mention) {
				return content[len(mention):], true
			}
		}
	}
	if m.IsDM() {
		return content, true
	}
	return "", false
}

// HandleMessage dispatches m to the command it names, if any. Messages from
// bots and messages that are not commands are ignored.
func (b *Bot) HandleMessage(ctx context.Context, m Message) error {
	if m.Author.Bot {
		return nil
	}
	rest, ok := b.strip(m)
	if !ok {
		return nil
	}
	g, c, args := lookup(b.groups, rest)
	if c == nil {
		b.logger.Debug("not a command", zap.String("message", m.ID))
		return nil
	}

	name := g.qualified(c)
	if (g.OwnersOnly || c.OwnersOnly) && !b.IsOwner(m.Author.ID) {
		b.logger.Info("owner command refused", zap.String("command", name), zap.String("user", m.Author.Tag))
		return nil
	}

	inv := &Invocation{ID: uuid.New(), Message: m, Args: args, Command: c, Group: g, bot: b}
	log := b.logger.With(
		zap.String("invocation", inv.ID.String()),
		zap.String("command", name),
		zap.String("user", m.Author.Tag),
	)
	ctx = logging.With(ctx, log)

	log.Debug("command invoked")
	if err := c.Run(ctx, inv); err != nil {
		log.Warn("command failed", zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// OnReady records the bot user and sets the configured presence.
func (b *Bot) OnReady(ctx context.Context, r Ready) error {
	self := r.User
	b.self.Store(&self)
	b.logger.Info("calbot started", zap.Int("guilds", r.Guilds), zap.String("user", r.User.Tag))
	return b.transport.SetPresence(ctx, b.current().status)
}

// OnComponent handles a button press.
func (b *Bot) OnComponent(ctx context.Context, p ComponentPress) error {
	name, args, err := parseComponentID(p.CustomID)
	if err != nil {
		b.logger.Warn("ignoring component", zap.String("custom_id", p.CustomID), zap.Error(err))
		return err
	}
	switch name {
	case cleanupName:
		return b.cleanup(ctx, p, args[0])
	}
	return fmt.Errorf("%w: %q", ErrUnknownComponent, p.CustomID)
}

// cleanup deletes a reply for its issuer, a moderator or an owner.
func (b *Bot) cleanup(ctx context.Context, p ComponentPress, issuer string) error {
	if p.User.ID != issuer && !p.ManageMessages && !b.IsOwner(p.User.ID) {
		return b.transport.RespondEphemeral(ctx, p, NoPermission)
	}
	if err := b.transport.Acknowledge(ctx, p); err != nil {
		return fmt.Errorf("acknowledge cleanup: %w", err)
	}
	if err := b.transport.Delete(ctx, p.ChannelID, p.MessageID); err != nil {
		return fmt.Errorf("delete message in cleanup: %w", err)
	}
	b.logger.Debug("reply cleaned up", zap.String("message", p.MessageID), zap.String("by", p.User.Tag))
	return nil
}

// Invocation is one run of a command.
type Invocation struct {
	ID      uuid.UUID
	Message Message
	// Args is everything after the command name.
	Args    string
	Command *Command
	Group   *Group

	bot *Bot
}

// Send posts m to the invoking channel.
func (inv *Invocation) Send(ctx context.Context, m Outgoing) (Sent, error) {
	return inv.bot.transport.Send(ctx, inv.Message.ChannelID, m)
}

// React adds emoji to the invoking message.
func (inv *Invocation) React(ctx context.Context, emoji string) error {
	return inv.bot.transport.React(ctx, inv.Message.ChannelID, inv.Message.ID, emoji)
}

// Report sends r as an error embed. It makes an Invocation a pipeline.Reporter.
func (inv *Invocation) Report(ctx context.Context, r pipeline.Report) error {
	body := r.Body
	if r.Code {
		body = codeBlock(body)
	}
	_, err := inv.Send(ctx, Outgoing{Embeds: []Embed{failure(r.Title, body)}})
	return err
}
