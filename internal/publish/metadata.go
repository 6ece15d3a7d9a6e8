// Package publish builds upload metadata for a finished short and
// optionally uploads it to YouTube.
package publish

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/types"
)

// YouTube rejects titles longer than this
const maxTitleRunes = 100

const titleSuffix = " Explained! #Shorts"

var baseTags = []string{"math", "mathematics", "education", "shorts", "stem", "quick learning"}

// Metadata derives title, description and tags for a topic
func Metadata(topic types.Topic, script *types.Script, cfg config.UploadConfig) *types.VideoMetadata {
	name := strings.TrimSpace(topic.Name)
	category := topic.Category
	if category == "" {
		category = "Mathematics"
	}

	title := name
	if room := maxTitleRunes - len([]rune(titleSuffix)); len([]rune(title)) > room {
		title = strings.TrimSpace(string([]rune(title)[:room]))
	}
	title += titleSuffix

	var b strings.Builder
	fmt.Fprintf(&b, "Learn about %s in under a minute!\n\n", name)
	if script != nil && script.Hook != "" {
		b.WriteString(script.Hook + "\n\n")
	}
	fmt.Fprintf(&b, "%s\nPerfect for quick math learning\nSubscribe for daily math shorts!\n\n", category)
	b.WriteString("#Shorts #Mathematics #Math #STEM #Education")
	if tag := hashtag(name); tag != "" {
		b.WriteString(" #" + tag)
	}

	tags := append([]string(nil), baseTags...)
	for _, t := range []string{strings.ToLower(name), strings.ToLower(category)} {
		if t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}

	return &types.VideoMetadata{
		Title:       title,
		Description: b.String(),
		Tags:        tags,
		CategoryID:  cfg.CategoryID,
		Visibility:  cfg.Visibility,
	}
}

// hashtag keeps letters and digits only
func hashtag(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
