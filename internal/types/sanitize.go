package types

import (
	"strings"
	"unicode"
)

const maxNameRunes = 100

// SanitizeName turns a topic name into a filesystem-safe fragment.
// The result is never empty and never contains a path separator.
func SanitizeName(name string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			continue
		case unicode.IsSpace(r), r == '_':
			if !lastUnderscore {
				sb.WriteRune('_')
				lastUnderscore = true
			}
			continue
		}
		sb.WriteRune(r)
		lastUnderscore = false
	}

	out := strings.Trim(sb.String(), "._")
	if runes := []rune(out); len(runes) > maxNameRunes {
		out = strings.TrimRight(string(runes[:maxNameRunes]), "._")
	}
	if out == "" {
		return "untitled"
	}
	return out
}
