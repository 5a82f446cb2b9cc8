package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

const (
	helpTitle = "Help"
	helpTip   = "If you want more information about a specific command, just pass the command as an argument."

	// maxSuggestions bounds the "did you mean" list of help.
	maxSuggestions = 3
)

func (b *Bot) generalGroup() *Group {
	return &Group{
		Name: "General",
		Commands: []*Command{
			{
				Name:        "ping",
				Aliases:     []string{"pingpong", "pong"},
				Description: "Ping the bot to test it. Helpful for making sure the bot's not broken.",
				Run:         b.ping,
			},
			{
				Name:        "help",
				Description: "List the commands, or show details about one of them.",
				Usage:       "[command]",
				Run:         b.help,
			},
		},
	}
}

func (b *Bot) ping(ctx context.Context, inv *Invocation) error {
	sent, err := inv.Send(ctx, Outgoing{Embeds: []Embed{
		success("Ping... 🏓", "One second, I'm gathering data."),
	}})
	if err != nil {
		return err
	}

	latency := sent.Timestamp.Sub(inv.Message.Timestamp)
	return b.transport.Edit(ctx, sent.ChannelID, sent.ID, Outgoing{Embeds: []Embed{
		success("Ping... Pong! 🏓", fmt.Sprintf("**Command Recv-Response Latency**:\n%dms", latency.Milliseconds())),
	}})
}

// visible returns the groups shown in help.
func (b *Bot) visible() []*Group {
	var out []*Group
	for _, g := range b.groups {
		if g.Hidden || g.OwnersOnly {
			continue
		}
		shown := &Group{Name: g.Name, Prefix: g.Prefix, Summary: g.Summary, Description: g.Description}
		for _, c := range g.Commands {
			if !c.OwnersOnly {
				shown.Commands = append(shown.Commands, c)
			}
		}
		if len(shown.Commands) > 0 {
			out = append(out, shown)
		}
	}
	return out
}

func (b *Bot) help(ctx context.Context, inv *Invocation) error {
	groups := b.visible()
	query := strings.TrimSpace(inv.Args)

	var embed Embed
	if query == "" {
		embed = b.helpOverview(groups)
	} else if g, c := findForHelp(groups, query); c != nil {
		embed = b.helpCommand(g, c)
	} else {
		embed = failure(helpTitle, notFound(groups, query))
	}
	_, err := inv.Send(ctx, Outgoing{Embeds: []Embed{embed}})
	return err
}

func (b *Bot) helpOverview(groups []*Group) Embed {
	e := success(helpTitle, helpTip)
	for _, g := range groups {
		names := make([]string, len(g.Commands))
		for i, c := range g.Commands {
			names[i] = "`" + g.qualified(c) + "`"
		}
		value := strings.Join(names, " ")
		if g.Summary != "" {
			value = g.Summary + "\n" + value
		}
		e.Fields = append(e.Fields, EmbedField{Name: g.Name, Value: value})
	}
	e.Footer = "Prefix: " + b.current().prefix
	return e
}

func (b *Bot) helpCommand(g *Group, c *Command) Embed {
	name := g.qualified(c)
	e := success(name, c.Description)

	usage := b.current().prefix + name
	if c.Usage != "" {
		usage += " " + c.Usage
	}
	e.Fields = append(e.Fields, EmbedField{Name: "Usage", Value: "`" + usage + "`"})
	if len(c.Aliases) > 0 {
		e.Fields = append(e.Fields, EmbedField{Name: "Aliases", Value: "`" + strings.Join(c.Aliases, "`, `") + "`", Inline: true})
	}
	e.Fields = append(e.Fields, EmbedField{Name: "Group", Value: g.Name, Inline: true})
	return e
}

// findForHelp accepts a command either fully qualified ("sysf parse") or by
// its bare name ("parse").
func findForHelp(groups []*Group, query string) (*Group, *Command) {
	if g, c, _ := lookup(groups, query); c != nil {
		return g, c
	}
	word, rest := nextWord(query)
	if rest != "" {
		return nil, nil
	}
	for _, g := range groups {
		if c := g.find(word); c != nil {
			return g, c
		}
	}
	return nil, nil
}

// notFound is the help text for an unknown command, with close matches.
func notFound(groups []*Group, query string) string {
	msg := fmt.Sprintf("Could not find command `%s`.", query)

	var names []string
	for _, g := range groups {
		for _, c := range g.Commands {
			names = append(names, g.qualified(c))
		}
	}
	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return msg
	}
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	suggestions := make([]string, len(matches))
	for i, m := range matches {
		suggestions[i] = "`" + m.Str + "`"
	}
	return msg + "\nDid you mean " + strings.Join(suggestions, ", ") + "?"
}
