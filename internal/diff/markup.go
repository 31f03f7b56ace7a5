package diff

import (
	"fmt"
	"strings"
)

// Format renders td as bracket markup: equal text verbatim, deletions as "[-text-]", insertions as "{+text+}". The characters \ [ ] { } are backslash-escaped
// in all text, so the output is unambiguous and Parse recovers td exactly.
func Format(td TextDiff) string {
	var b strings.Builder
	for _, s := range td {
		switch s.Op {
		case OpDelete:
			b.WriteString("[-")
			writeEscaped(&b, s.Text)
			b.WriteString("-]")
		case OpInsert:
			b.WriteString("{+")
			writeEscaped(&b, s.Text)
			b.WriteString("+}")
		default:
			writeEscaped(&b, s.Text)
		}
	}
	return b.String()
}

func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '[', ']', '{', '}':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
}

// Parse is the inverse of Format. Adjacent spans with the same op are merged, so Parse(Format(td)) == td for any canonical td.
func Parse(markup string) (TextDiff, error) {
	var spans []Span
	var cur strings.Builder
	op := OpEqual

	emit := func() {
		if cur.Len() > 0 {
			spans = append(spans, Span{Op: op, Text: cur.String()})
			cur.Reset()
		}
	}

	for i := 0; i < len(markup); i++ {
		c := markup[i]
		switch {
		case c == '\\':
			if i+1 >= len(markup) {
				return nil, fmt.Errorf("diff markup: dangling escape at offset %d", i)
			}
			i++
			cur.WriteByte(markup[i])
		case op == OpEqual && c == '[':
			if i+1 >= len(markup) || markup[i+1] != '-' {
				return nil, fmt.Errorf("diff markup: unescaped '[' at offset %d", i)
			}
			emit()
			op = OpDelete
			i++
		case op == OpEqual && c == '{':
			if i+1 >= len(markup) || markup[i+1] != '+' {
				return nil, fmt.Errorf("diff markup: unescaped '{' at offset %d", i)
			}
			emit()
			op = OpInsert
			i++
		case op == OpDelete && c == '-' && i+1 < len(markup) && markup[i+1] == ']':
			emit()
			op = OpEqual
			i++
		case op == OpInsert && c == '+' && i+1 < len(markup) && markup[i+1] == '}':
			emit()
			op = OpEqual
			i++
		case c == '[' || c == ']' || c == '{' || c == '}':
			return nil, fmt.Errorf("diff markup: unescaped %q at offset %d", c, i)
		default:
			cur.WriteByte(c)
		}
	}
	if op != OpEqual {
		return nil, fmt.Errorf("diff markup: unterminated %s span", op)
	}
	emit()

	return canonicalize(spans), nil
}
