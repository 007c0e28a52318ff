package rrdata

import (
	"fmt"
	"strings"
)

// txtValue joins the character-strings of a TXT record and renders them as a
// single quoted string. Segments arrive already escaped in presentation form
// (\" and \\), so they are concatenated verbatim. How a server splits long
// text into 255-byte strings is a formatting detail and does not change the value.
func txtValue(segments []string) string {
	return `"` + strings.Join(segments, "") + `"`
}

// normalizeTXT accepts either one or more quoted strings (`"v=spf1 " "-all"`)
// or bare text, and returns the single quoted canonical form.
func normalizeTXT(text string) (string, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, `"`) {
		return txtValue([]string{escapeQuotes(text)}), nil
	}
	segments, err := splitQuoted(text)
	if err != nil {
		return "", err
	}
	return txtValue(segments), nil
}

// splitQuoted returns the contents of each quoted string, keeping escape
// sequences intact.
func splitQuoted(text string) ([]string, error) {
	var segments []string
	for i := 0; i < len(text); {
		switch text[i] {
		case ' ', '\t':
			i++
			continue
		case '"':
		default:
			return nil, fmt.Errorf("invalid TXT record: unexpected %q outside quotes", text[i])
		}
		var seg strings.Builder
		i++ // opening quote
		closed := false
		for i < len(text) {
			c := text[i]
			if c == '\\' {
				if i+1 >= len(text) {
					return nil, fmt.Errorf("invalid TXT record: dangling escape")
				}
				seg.WriteByte(c)
				seg.WriteByte(text[i+1])
				i += 2
				continue
			}
			i++
			if c == '"' {
				closed = true
				break
			}
			seg.WriteByte(c)
		}
		if !closed {
			return nil, fmt.Errorf("invalid TXT record: unterminated quoted string")
		}
		segments = append(segments, seg.String())
	}
	return segments, nil
}

// escapeQuotes escapes bare double quotes while leaving existing escape
// sequences untouched.
func escapeQuotes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
