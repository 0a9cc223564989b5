package inference

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrUnparseableOutput = errors.New("inference: output is not a JSON array of objects")

var (
	arraySpan        = regexp.MustCompile(`\[\s*\{[\s\S]*\}\s*\]`)
	controlChars     = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	concatenation    = regexp.MustCompile(`"\s*\+\s*"`)
	trailingObjComma = regexp.MustCompile(`,\s*}`)
	trailingArrComma = regexp.MustCompile(`,\s*\]`)
)

// ParseJSONArray pulls the first array of objects out of free model text.
// When the span does not parse as-is a repaired copy is tried once.
func ParseJSONArray(text string) ([]map[string]any, error) {
	span := arraySpan.FindString(text)
	if span == "" {
		span = strings.TrimSpace(text)
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(span), &out); err == nil {
		return out, nil
	}
	if err := json.Unmarshal([]byte(repair(span)), &out); err == nil {
		return out, nil
	}
	return nil, ErrUnparseableOutput
}

func repair(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = escapeStrayBackslashes(s)
	s = concatenation.ReplaceAllString(s, "")
	s = trailingObjComma.ReplaceAllString(s, "}")
	s = trailingArrComma.ReplaceAllString(s, "]")
	return s
}

// escapeStrayBackslashes doubles every backslash that does not start a valid
// JSON escape. Valid pairs and \uXXXX sequences are copied through as-is.
func escapeStrayBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if n := escapeLen(s[i+1:]); n > 0 {
			b.WriteString(s[i : i+1+n])
			i += n
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// escapeLen reports how many bytes after a backslash belong to its escape,
// or 0 when the backslash is stray.
func escapeLen(rest string) int {
	if rest == "" {
		return 0
	}
	switch rest[0] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 1
	case 'u':
		if len(rest) < 5 {
			return 0
		}
		for _, c := range rest[1:5] {
			if !isHex(c) {
				return 0
			}
		}
		return 5
	}
	return 0
}

func isHex(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
