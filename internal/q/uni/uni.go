package uni

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/clipperhouse/uax29/v2/words"
	"github.com/mattn/go-runewidth"
)

// Options control width calculation in TextWidth and PadRight.
//
// Currently only relevant for East Asian code points and their locale.
type Options struct {
	EastAsianWidth   bool // if true, treats certain East Asian code points as 2 wide (e.g., Chinese, Japanese, Korean). Use if the locale is one of CJK.
	TreatEmojiAsWide bool // Only considered if EastAsianWidth. If true, treats emoji as wide (2 columns).
}

// TextWidth returns the text width of str for monospace fonts in terminals. If opts is nil, locale is assumed to be non-East Asian.
func TextWidth(str string, opts *Options) int {
	return conditionFromOptions(opts).StringWidth(str)
}

// PadRight pads str with spaces until it is width cells wide. Strings already at least width wide are returned unchanged.
func PadRight(str string, width int, opts *Options) string {
	w := TextWidth(str, opts)
	if w >= width {
		return str
	}
	return str + strings.Repeat(" ", width-w)
}

// Truncate shortens str to at most width cells, ending with "…" when anything was cut. Cuts happen on grapheme boundaries.
func Truncate(str string, width int, opts *Options) string {
	cond := conditionFromOptions(opts)
	if cond.StringWidth(str) <= width {
		return str
	}
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	iter := graphemes.FromString(str)
	for iter.Next() {
		g := iter.Value()
		gw := cond.StringWidth(g)
		if used+gw > width-1 {
			break
		}
		b.WriteString(g)
		used += gw
	}
	b.WriteString("…")
	return b.String()
}

// Graphemes splits str into user-perceived characters (extended grapheme clusters). The concatenation of the result is str.
func Graphemes(str string) []string {
	var out []string
	iter := graphemes.FromString(str)
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out
}

// Words splits str at Unicode word boundaries (UAX #29). Whitespace runs and punctuation are their own tokens, so the concatenation of the result is str.
func Words(str string) []string {
	var out []string
	iter := words.FromString(str)
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out
}

func conditionFromOptions(opts *Options) *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	cond.StrictEmojiNeutral = true

	if opts == nil {
		return cond
	}

	cond.EastAsianWidth = opts.EastAsianWidth
	if opts.EastAsianWidth && opts.TreatEmojiAsWide {
		cond.StrictEmojiNeutral = false
	}

	return cond
}
