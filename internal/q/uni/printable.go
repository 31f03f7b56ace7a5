package uni

import (
	"strings"
	"unicode/utf8"
)

// Printable makes untrusted text safe to write to a terminal: C0 and C1 control characters and DEL become \xNN escapes (so embedded escape sequences are shown,
// not interpreted), and invalid UTF-8 becomes U+FFFD. Newlines and tabs are kept.
func Printable(str string) string {
	clean := true
	for _, r := range str {
		if needsEscape(r) || r == utf8.RuneError {
			clean = false
			break
		}
	}
	if clean {
		return str
	}

	const hex = "0123456789abcdef"
	var b strings.Builder
	b.Grow(len(str) + 8)
	for i := 0; i < len(str); {
		r, size := utf8.DecodeRuneInString(str[i:])
		i += size
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune(utf8.RuneError)
		case needsEscape(r):
			b.WriteString(`\x`)
			b.WriteByte(hex[r>>4])
			b.WriteByte(hex[r&0xf])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func needsEscape(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}
