package diff

import (
	"strings"
)

// Colors (ANSI) for pretty output.
const (
	reset     = "\x1b[0m"
	blackFG   = "\x1b[30m"
	pinkLine  = "\x1b[48;5;224m" // light pink for deleted lines
	pinkSpan  = "\x1b[48;5;217m" // slightly darker pink for deleted spans
	greenLine = "\x1b[48;5;194m" // light green for added lines
	greenSpan = "\x1b[48;5;114m" // slightly darker green for added spans
	redFG     = "\x1b[31m"
	greenFG   = "\x1b[32m"
	strike    = "\x1b[9m"
)

// RenderPretty returns td inline: equal text as-is, deletions and insertions highlighted in place. If color is false, the result is Format(td).
//
// Colored output marks deletions red and struck through and insertions green. It is intended for terminals and is not meant to be parsed.
func (td TextDiff) RenderPretty(color bool) string {
	if !color {
		return Format(td)
	}
	var b strings.Builder
	for _, s := range td {
		switch s.Op {
		case OpDelete:
			b.WriteString(redFG)
			b.WriteString(strike)
			b.WriteString(s.Text)
			b.WriteString(reset)
		case OpInsert:
			b.WriteString(greenFG)
			b.WriteString(s.Text)
			b.WriteString(reset)
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// RenderLines returns two lines: "-" followed by the old side and "+" followed by the new side, separated by "\n" (no trailing newline). Multi-line content keeps
// its interior newlines; each continuation line is indented to line up with the first.
//
// With color, each line gets a pale background and the changed spans within it a darker one. Without color, changed spans are wrapped in the markup delimiters
// of Format ("[-...-]" on the old line, "{+...+}" on the new line) but text is not escaped.
//
// If td has no changes, both lines are identical. If a side is empty, its line is just the marker.
func (td TextDiff) RenderLines(color bool) string {
	var oldB, newB strings.Builder

	if color {
		oldB.WriteString(blackFG + pinkLine + "-")
		newB.WriteString(blackFG + greenLine + "+")
	} else {
		oldB.WriteString("-")
		newB.WriteString("+")
	}
	oldB.WriteString(" ")
	newB.WriteString(" ")

	indent := func(s string) string {
		return strings.ReplaceAll(s, "\n", "\n  ")
	}

	for _, s := range td {
		text := indent(s.Text)
		switch s.Op {
		case OpEqual:
			oldB.WriteString(text)
			newB.WriteString(text)
		case OpDelete:
			if color {
				// Emphasize deleted segments: darker pink background; reapply base after.
				oldB.WriteString(reset + blackFG + pinkSpan + text + reset + blackFG + pinkLine)
			} else {
				oldB.WriteString("[-" + text + "-]")
			}
		case OpInsert:
			if color {
				newB.WriteString(reset + blackFG + greenSpan + text + reset + blackFG + greenLine)
			} else {
				newB.WriteString("{+" + text + "+}")
			}
		}
	}

	if color {
		oldB.WriteString(reset)
		newB.WriteString(reset)
	}
	oldLine, newLine := oldB.String(), newB.String()
	if td.OldText() == "" {
		oldLine = strings.Replace(oldLine, "- ", "-", 1)
	}
	if td.NewText() == "" {
		newLine = strings.Replace(newLine, "+ ", "+", 1)
	}
	return oldLine + "\n" + newLine
}
