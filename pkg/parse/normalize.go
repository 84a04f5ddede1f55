package parse

import (
	"regexp"
	"strings"
)

// disallowed matches every character that is not useful to the extractor:
// anything outside CJK ideographs, ASCII digits, arithmetic operators and
// parentheses, the multiplication glyph, basic CJK/ASCII punctuation, and
// whitespace. Emoji and decorative symbols common in chat messages all fall
// in this class.
var disallowed = regexp.MustCompile(`[^\x{4e00}-\x{9fff}0-9+\-*/=()×\s,.;:，。；：、！!?]`)

// whitespaceRun matches one or more consecutive whitespace characters.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize reduces raw chat text to the extractor's working alphabet.
// It removes disallowed characters, rewrites the multiplication glyph × to
// *, collapses whitespace runs to a single space, and trims the ends.
// Empty input yields empty output; there is no failure mode.
func Normalize(text string) string {
	if text == "" {
		return text
	}

	text = disallowed.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "×", "*")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
