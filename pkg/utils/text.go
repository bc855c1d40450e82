package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var horizontalSpace = regexp.MustCompile(`[\p{Zs}\t\f\v]+`)

// NormalizeText applies NFKC and collapses runs of horizontal whitespace.
// Line breaks are kept so callers can still reason about the original lines.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	normalized := norm.NFKC.String(text)
	normalized = strings.ReplaceAll(normalized, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// NormalizeForMatch reduces text to lowercase letters and digits separated by
// single spaces. Used for every comparison against registry fields.
func NormalizeForMatch(text string) string {
	if text == "" {
		return ""
	}
	lowered := strings.ToLower(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSpace := false
	for _, r := range lowered {
		if isWordRune(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Tokenize splits text on anything that is not a letter, digit or combining mark.
// Works for both Latin and Arabic script.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
}

// CaseFoldKey is the comparison key for a token: NFKC + lowercase.
func CaseFoldKey(token string) string {
	return strings.ToLower(norm.NFKC.String(token))
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most max characters without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// HasLatinLetter reports whether s contains at least one Latin-script letter.
func HasLatinLetter(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Latin, r) && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
