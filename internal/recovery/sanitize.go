// Package recovery turns raw model output into schema-valid content items.
//
// Recovery runs as a fixed sequence of stages over sanitized text:
// StrictParse, then PartialExtraction, then Synthesized. Every stage returns
// its failure as data, so the pipeline always ends with at least one valid
// item and never surfaces a parse error to its caller.
package recovery

import "strings"

// Sanitize repairs escaping defects commonly produced by language models
// without altering valid JSON escapes. It is total, deterministic and
// idempotent: Sanitize(Sanitize(s)) == Sanitize(s).
//
// Repairs, applied in a single left-to-right pass:
//   - a backslash not starting a valid escape (\n \t \" \\ \r \/ \b \f or
//     \u followed by four hex digits) is removed, keeping the character after it
//   - a trailing lone backslash is removed
//   - runs of escaped quotes (\"\" from double encoding) collapse to one \"
//   - raw newlines, carriage returns and tabs inside string literals are escaped
func Sanitize(raw string) string {
	if raw == "" {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))

	inString := false
	for i := 0; i < len(raw); {
		c := raw[i]

		if c == '\\' {
			if i+1 >= len(raw) {
				i++
				continue
			}
			next := raw[i+1]
			switch {
			case next == '"':
				b.WriteString(`\"`)
				i += 2
				for i+1 < len(raw) && raw[i] == '\\' && raw[i+1] == '"' {
					i += 2
				}
			case next == 'u':
				if i+6 <= len(raw) && isHex4(raw[i+2:i+6]) {
					b.WriteString(raw[i : i+6])
					i += 6
				} else {
					i++
				}
			case isSimpleEscape(next):
				b.WriteByte('\\')
				b.WriteByte(next)
				i += 2
			default:
				// Stray backslash: drop it and let the next byte be handled normally.
				i++
			}
			continue
		}

		if c == '"' {
			inString = !inString
			b.WriteByte(c)
			i++
			continue
		}

		if inString {
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(c)
			}
		} else {
			b.WriteByte(c)
		}
		i++
	}
	return b.String()
}

func isSimpleEscape(c byte) bool {
	switch c {
	case 'n', 't', '\\', 'r', '/', 'b', 'f':
		return true
	}
	return false
}

func isHex4(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
