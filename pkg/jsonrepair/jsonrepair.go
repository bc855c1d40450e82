// Package jsonrepair recovers a JSON document from generative model output.
//
// Model output is treated as untrusted text: it may be wrapped in a markdown
// fence, surrounded by prose, or contain escape sequences that strict JSON
// rejects. The pipeline is Extract -> RepairEscapes -> json.Unmarshal, and a
// parse failure is always returned to the caller.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\r?\n?(.*?)```")

// Extract returns the most plausible JSON document inside raw.
func Extract(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return ""
	}

	// Valid JSON may itself contain a fence inside a string value.
	if json.Valid([]byte(candidate)) {
		return candidate
	}

	if m := fencePattern.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	if json.Valid([]byte(candidate)) || looksComplete(candidate) {
		return candidate
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		return candidate[start : end+1]
	}
	return candidate
}

func looksComplete(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

// RepairEscapes doubles every backslash that does not start a legal JSON
// escape and escapes raw control characters that appear inside strings.
// Valid JSON passes through unchanged.
func RepairEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if c == '\\' {
			if n := legalEscapeLen(s, i); n > 0 {
				b.WriteString(s[i : i+n])
				i += n - 1
				continue
			}
			b.WriteString(`\\`)
			continue
		}

		if c == '"' {
			inString = !inString
			b.WriteByte(c)
			continue
		}

		if inString && c < 0x20 {
			b.WriteString(escapeControl(c))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// legalEscapeLen returns the byte length of the legal escape starting at s[i], or 0.
func legalEscapeLen(s string, i int) int {
	if i+1 >= len(s) {
		return 0
	}
	switch s[i+1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2
	case 'u':
		if i+6 <= len(s) && isHex4(s[i+2:i+6]) {
			return 6
		}
	}
	return 0
}

func isHex4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func escapeControl(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	}
	return fmt.Sprintf(`\u%04x`, c)
}

// Candidate runs extraction and escape repair without parsing.
func Candidate(raw string) string {
	return RepairEscapes(Extract(raw))
}

// Unmarshal extracts, repairs and decodes raw into v.
func Unmarshal(raw string, v interface{}) error {
	candidate := Candidate(raw)
	if candidate == "" {
		return fmt.Errorf("no JSON content in model output")
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}
	return nil
}
