package bot

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Embed colours.
const (
	ColorSuccess = 0x8E6CE0
	ColorError   = 0xE0475B
)

// MaxDescription is the longest embed description the platform accepts.
const MaxDescription = 4096

const (
	cleanupName  = "clean"
	cleanupLabel = "Clean up"
	cleanupEmoji = "🗑️"
)

var (
	// ErrUnknownComponent is returned for a custom id the bot never issued.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrMalformedComponent is returned for a custom id missing its arguments.
	ErrMalformedComponent = errors.New("malformed component id")
)

func success(title, description string) Embed {
	return Embed{Title: title, Description: clip(description), Color: ColorSuccess}
}

func failure(title, description string) Embed {
	return Embed{Title: title, Description: clip(description), Color: ColorError}
}

// codeBlock fences s, leaving room for the fence inside the description limit.
func codeBlock(s string) string {
	const fenceOpen, fenceClose = "```\n", "\n```"
	return fenceOpen + clipTo(s, MaxDescription-len(fenceOpen)-len(fenceClose)) + fenceClose
}

func clip(s string) string {
	return clipTo(s, MaxDescription)
}

// clipTo shortens s to at most n bytes, ending in an ellipsis when cut.
func clipTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "…"
	cut := n - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

// CleanupID is the custom id of the retraction button for issuer.
func CleanupID(issuer string) string {
	return cleanupName + ";" + issuer
}

func cleanupButton(issuer string) Button {
	return Button{Label: cleanupLabel, Emoji: cleanupEmoji, CustomID: CleanupID(issuer)}
}

// parseComponentID splits a custom id into its name and arguments.
func parseComponentID(id string) (name string, args []string, err error) {
	parts := strings.Split(id, ";")
	switch parts[0] {
	case cleanupName:
		if len(parts) != 2 || parts[1] == "" {
			return "", nil, fmt.Errorf("%w: %q", ErrMalformedComponent, id)
		}
		return parts[0], parts[1:], nil
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownComponent, id)
	}
}
