package bot

import (
	"context"
	"strings"
)

// Handler runs one command invocation.
type Handler func(ctx context.Context, inv *Invocation) error

// Command is a named chat command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	// Usage describes the arguments, if any.
	Usage      string
	OwnersOnly bool
	Run        Handler
}

// matches reports whether word names the command.
func (c *Command) matches(word string) bool {
	if strings.EqualFold(c.Name, word) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.EqualFold(a, word) {
			return true
		}
	}
	return false
}

// Group is a set of commands, optionally behind a shared prefix word.
type Group struct {
	Name        string
	Prefix      string
	Summary     string
	Description string
	OwnersOnly  bool
	// Hidden groups are left out of help.
	Hidden   bool
	Commands []*Command
}

func (g *Group) find(word string) *Command {
	for _, c := range g.Commands {
		if c.matches(word) {
			return c
		}
	}
	return nil
}

// qualified is the full invocation name of c inside g.
func (g *Group) qualified(c *Command) string {
	if g.Prefix == "" {
		return c.Name
	}
	return g.Prefix + " " + c.Name
}

// nextWord splits s into its first whitespace-separated word and the rest,
// with leading whitespace removed from both.
func nextWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t\r\n")
	i := strings.IndexAny(s, " \t\r\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t\r\n")
}

// lookup resolves the command named at the start of s. Prefixed groups
// take precedence over plain commands.
func lookup(groups []*Group, s string) (*Group, *Command, string) {
	word, rest := nextWord(s)
	if word == "" {
		return nil, nil, ""
	}
	for _, g := range groups {
		if g.Prefix == "" || !strings.EqualFold(g.Prefix, word) {
			continue
		}
		sub, args := nextWord(rest)
		if c := g.find(sub); c != nil {
			return g, c, args
		}
		return nil, nil, ""
	}
	for _, g := range groups {
		if g.Prefix != "" {
			continue
		}
		if c := g.find(word); c != nil {
			return g, c, rest
		}
	}
	return nil, nil, ""
}
