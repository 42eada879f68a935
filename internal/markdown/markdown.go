// Package markdown renders Telegram MarkdownV2 fragments.
package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const specialChars = `_*[]()~` + "`" + `>#+-=|{}.!\`

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var specialLookup = func() [256]bool {
	var m [256]bool
	for i := range len(specialChars) {
		m[specialChars[i]] = true
	}
	return m
}()

// Escape makes input safe to embed as literal MarkdownV2 text.
func Escape(input string) string {
	n := 0
	for i := range len(input) {
		if specialLookup[input[i]] {
			n++
		}
	}
	if n == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + n)

	for i := range len(input) {
		if specialLookup[input[i]] {
			b.WriteByte('\\')
		}
		b.WriteByte(input[i])
	}

	return b.String()
}

func Bold(input string) string {
	return "*" + Escape(input) + "*"
}

// Code wraps input in an inline code span. Inside it only ` and \ are special.
func Code(input string) string {
	r := strings.NewReplacer(`\`, `\\`, "`", "\\`")
	return "`" + r.Replace(input) + "`"
}
