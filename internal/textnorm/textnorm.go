// Package textnorm normalizes Persian page text for section parsing,
// keyword matching and solar-Hijri date extraction.
//
// Every function here is best-effort: unparseable input yields an empty
// result or ok == false, never an error.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	zwnj = '\u200c'
	nbsp = '\u00a0'
)

var digitMapper = runes.Map(func(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	return r
})

// emojiTable covers misc symbols, dingbats, the symbols-and-pictographs
// planes and regional indicator flags.
var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F1E6, Hi: 0x1F1FF, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1FAFF, Stride: 1},
	},
}

var emojiRemover = runes.Remove(runes.In(emojiTable))

var horizontalSpace = regexp.MustCompile(`[ \t]+`)

// decorGlyphs are bullets and markers the page puts in front of lines.
// Tatweel is listed because it counts as a letter.
const decorGlyphs = "-–—·•★☆▪✔✖✳❌🔻⚡🆔✅➕➖▶" + "\u0640\u061f\u060c\u066a\u066b\u066c\u200c\ufe0f"

// NormalizeDigits maps Persian and Arabic-Indic digits to ASCII.
func NormalizeDigits(s string) string {
	out, _, err := transform.String(digitMapper, s)
	if err != nil {
		return s
	}
	return out
}

// CleanText removes ZWNJ, turns NBSP into a space, collapses runs of spaces
// and tabs, and trims the result. Newlines are left alone.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, string(zwnj), "")
	s = strings.ReplaceAll(s, string(nbsp), " ")
	s = horizontalSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripEmojis removes emoji, pictographs, dingbats and flag letters.
func StripEmojis(s string) string {
	out, _, err := transform.String(emojiRemover, s)
	if err != nil {
		return s
	}
	return out
}

// StripDecorPrefix trims the leading run of whitespace, punctuation,
// direction marks and decorative glyphs. Anything after the first word
// character is kept as is.
func StripDecorPrefix(s string) string {
	return strings.TrimLeftFunc(s, isDecor)
}

func isDecor(r rune) bool {
	if unicode.IsSpace(r) || strings.ContainsRune(decorGlyphs, r) {
		return true
	}
	if r >= '\u2066' && r <= '\u2069' {
		return true
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// NormalizeForMatch prepares text for case-insensitive keyword containment
// checks. It is never used for display. Cleaning runs again after emoji
// removal so the function is idempotent.
func NormalizeForMatch(s string) string {
	s = CleanText(StripEmojis(CleanText(s)))
	return cases.Lower(language.Und).String(s)
}

var (
	startHourRe = regexp.MustCompile(`ساعت\s*(\d{1,2})\s*تا\s*(\d{1,2})`)
	hourRangeRe = regexp.MustCompile(`ساعت\s*([0-9۰-۹٠-٩]{1,2}\s*تا\s*[0-9۰-۹٠-٩]{1,2})`)
)

// ParseStartHour returns N from "ساعت N تا M" in any digit script.
func ParseStartHour(title string) (int, bool) {
	m := startHourRe.FindStringSubmatch(NormalizeDigits(title))
	if m == nil {
		return 0, false
	}
	return atoi(m[1]), true
}

// HourRange returns the "N تا M" part of a title verbatim, digits untouched.
func HourRange(title string) (string, bool) {
	m := hourRangeRe.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// atoi parses a short run of ASCII digits already validated by a regexp.
func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
