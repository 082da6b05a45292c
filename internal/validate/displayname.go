// Package validate provides input sanitization for player-supplied text.
package validate

import "strings"

// MaxDisplayNameLen caps leaderboard display names, in runes.
const MaxDisplayNameLen = 20

// DisplayName normalizes a player-chosen name for the leaderboard.
// The name is trimmed and capped at MaxDisplayNameLen runes; an empty
// result falls back to the given default. Over-long names are truncated
// rather than rejected so a submission never fails on its name.
func DisplayName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	runes := []rune(name)
	if len(runes) > MaxDisplayNameLen {
		return string(runes[:MaxDisplayNameLen])
	}
	return name
}
