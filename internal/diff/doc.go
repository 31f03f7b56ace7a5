// Package diff computes and renders text diffs between an "old" and a "new" string.
//
// Representation: A TextDiff is an ordered slice of spans. Each span has an Op and the literal text it covers:
//   - OpEqual: text present on both sides
//   - OpDelete: text present only in the old side
//   - OpInsert: text present only in the new side
//
// Invariants (checked by validate, enforced by DiffText):
//   - concat(spans with OpEqual or OpDelete) == old
//   - concat(spans with OpEqual or OpInsert) == new
//   - No span has empty text, and no two adjacent spans share an Op.
//   - Within a run of changes between two equal spans, the delete (if any) precedes the insert (if any).
//
// Empty-to-empty input yields an empty TextDiff. Inputs with nothing in common yield one delete covering old followed by one insert covering new.
//
// Granularity: DiffText tokenizes both sides (by Unicode word boundaries by default, or by grapheme cluster) and runs an LCS diff over the tokens, so a changed word
// is reported as a whole word. When either side is a single word, word tokens carry no useful boundaries and character granularity is used instead.
//
// Getting a diff:
//
//	td := diff.DiffText(oldText, newText, nil)
//	fmt.Println(diff.Format(td)) // "Hello{+ World+}"
//
// Rendering:
//   - Format emits lossless bracket markup: deletions as "[-text-]", insertions as "{+text+}". The characters \ [ ] { } are backslash-escaped everywhere, so Parse
//     recovers the exact TextDiff and both sides can be reconstructed from the rendered form.
//   - TextDiff.RenderPretty emits an inline, optionally ANSI-colored view for terminals.
//   - TextDiff.RenderLines emits a "-" old line and a "+" new line with intra-line highlighting.
package diff
