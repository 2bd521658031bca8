// Package stringutils provides title and preview derivation helpers.
package stringutils

import "strings"

const (
	titleMaxChars  = 25
	titleMaxWords  = 4
	previewMaxLen  = 50
	ellipsisSuffix = "..."
)

// GenerateTitle derives a thread title from message content. Short content
// keeps its first words; anything longer than 25 characters is cut at 25
// and suffixed with an ellipsis. Pure function of the content.
func GenerateTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
	}
	title := strings.Join(words, " ")

	if runes := []rune(content); len(runes) > titleMaxChars {
		title = string(runes[:titleMaxChars]) + ellipsisSuffix
	}
	return title
}

// TruncatePreview shortens content to the thread preview length, appending
// an ellipsis when anything was cut.
func TruncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewMaxLen {
		return content
	}
	return string(runes[:previewMaxLen]) + ellipsisSuffix
}
