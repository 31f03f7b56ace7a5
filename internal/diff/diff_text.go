package diff

import (
	"fmt"
	"strings"

	"github.com/codalotl/blockdiff/internal/q/uni"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffText diffs oldText to newText, returning a canonical TextDiff. It never fails; opts may be nil.
func DiffText(oldText, newText string, opts *Options) TextDiff {
	if oldText == "" && newText == "" {
		return nil
	}
	if oldText == newText {
		return TextDiff{{Op: OpEqual, Text: oldText}}
	}

	granularity := GranularityWord
	if opts != nil && opts.Granularity != "" {
		granularity = opts.Granularity
	}

	var oldTokens, newTokens []string
	if granularity == GranularityWord {
		oldTokens = uni.Words(oldText)
		newTokens = uni.Words(newText)
		// A lone word has no interior boundaries to align on.
		if len(oldTokens) <= 1 || len(newTokens) <= 1 {
			granularity = GranularityChar
		}
	}
	if granularity == GranularityChar {
		oldTokens = uni.Graphemes(oldText)
		newTokens = uni.Graphemes(newText)
	}

	spans := diffTokens(oldTokens, newTokens)
	td := canonicalize(spans)

	if err := td.validate(oldText, newText); err != nil {
		panic(fmt.Errorf("DiffText: validate failed with %v", err))
	}
	return td
}

// tokenRune maps token index i to a rune that is valid in a Go string: surrogate code points would be replaced by U+FFFD when converting []rune to string.
func tokenRune(i int) rune {
	r := rune(i + 1)
	if r >= 0xD800 {
		r += 0x800
	}
	return r
}

// maxTokens is the number of distinct tokens tokenRune can encode.
const maxTokens = 0x10FFFF - 0x800

// diffTokens runs diffmatchpatch over token sequences by encoding each distinct token as one rune, then decodes the result back to text spans.
func diffTokens(oldTokens, newTokens []string) []Span {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // results must not depend on wall clock

	index := map[string]rune{}
	var table []string // rune -> token, via runeIndex
	runeIndex := map[rune]int{}

	encode := func(tokens []string) ([]rune, bool) {
		out := make([]rune, len(tokens))
		for i, tok := range tokens {
			r, ok := index[tok]
			if !ok {
				if len(table) >= maxTokens {
					return nil, false
				}
				r = tokenRune(len(table))
				index[tok] = r
				runeIndex[r] = len(table)
				table = append(table, tok)
			}
			out[i] = r
		}
		return out, true
	}

	rOld, okOld := encode(oldTokens)
	rNew, okNew := encode(newTokens)
	if !okOld || !okNew {
		return fromDMP(dmp.DiffCleanupMerge(dmp.DiffMain(strings.Join(oldTokens, ""), strings.Join(newTokens, ""), false)), nil)
	}

	diffs := dmp.DiffMainRunes(rOld, rNew, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	decode := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if idx, ok := runeIndex[r]; ok {
				b.WriteString(table[idx])
			}
		}
		return b.String()
	}
	return fromDMP(diffs, decode)
}

func fromDMP(diffs []diffmatchpatch.Diff, decode func(string) string) []Span {
	spans := make([]Span, 0, len(diffs))
	for _, d := range diffs {
		text := d.Text
		if decode != nil {
			text = decode(text)
		}
		var op Op
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			op = OpEqual
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}
		spans = append(spans, Span{Op: op, Text: text})
	}
	return spans
}

// canonicalize drops empty spans and rewrites every run of non-equal spans as at most one delete followed by at most one insert, merging adjacent equal spans.
func canonicalize(spans []Span) TextDiff {
	var out TextDiff
	var dels, ins strings.Builder

	flush := func() {
		if dels.Len() > 0 {
			out = append(out, Span{Op: OpDelete, Text: dels.String()})
			dels.Reset()
		}
		if ins.Len() > 0 {
			out = append(out, Span{Op: OpInsert, Text: ins.String()})
			ins.Reset()
		}
	}

	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		switch s.Op {
		case OpDelete:
			dels.WriteString(s.Text)
		case OpInsert:
			ins.WriteString(s.Text)
		default:
			flush()
			if n := len(out); n > 0 && out[n-1].Op == OpEqual {
				out[n-1].Text += s.Text
			} else {
				out = append(out, Span{Op: OpEqual, Text: s.Text})
			}
		}
	}
	flush()
	return out
}
