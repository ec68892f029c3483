package guide

import (
	"errors"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON pulls a JSON document out of raw model output. Stage one
// strips an optional markdown code fence; stage two scans for the first
// balanced array or object. Model responses are untrusted text, so a
// failure here is an error for the local operation, never a panic.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if s == "" {
		return "", errors.New("empty response")
	}
	if s[0] == '[' || s[0] == '{' {
		if doc := balancedPrefix(s); doc != "" {
			return doc, nil
		}
		return "", errors.New("unbalanced JSON in response")
	}
	// fall back to the first balanced document embedded in prose
	for i := 0; i < len(s); i++ {
		if s[i] == '[' || s[i] == '{' {
			if doc := balancedPrefix(s[i:]); doc != "" {
				return doc, nil
			}
		}
	}
	return "", errors.New("no JSON document in response")
}

// balancedPrefix returns the shortest prefix of s that closes the opening
// bracket at s[0], honouring string literals and escapes.
func balancedPrefix(s string) string {
	depth := 0
	inStr := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
