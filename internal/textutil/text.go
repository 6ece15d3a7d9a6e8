// Package textutil holds the sentence and word helpers shared by the topic
// and script stages.
package textutil

import (
	"strings"
	"unicode"
)

// SplitSentences splits on ., ! or ? followed by whitespace.
// Whitespace inside sentences is normalised to single spaces.
func SplitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// absorb closing quotes/brackets after the terminal mark
		j := i + 1
		for j < len(runes) && strings.ContainsRune(`"')]`, runes[j]) {
			j++
		}
		if j == len(runes) || unicode.IsSpace(runes[j]) {
			if s := strings.TrimSpace(string(runes[start:j])); s != "" {
				out = append(out, s)
			}
			start = j
			i = j
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// FirstSentences returns at most n sentences joined by a space
func FirstSentences(text string, n int) string {
	s := SplitSentences(text)
	if n > 0 && len(s) > n {
		s = s[:n]
	}
	return strings.Join(s, " ")
}

// CountWords counts whitespace separated words
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// FirstWords keeps the first n words of s
func FirstWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	f := strings.Fields(s)
	if len(f) <= n {
		return strings.Join(f, " ")
	}
	return strings.Join(f[:n], " ")
}

// Truncate shortens s to n bytes on a rune boundary, appending "..."
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
