package docdiff

import (
	"fmt"
	"strings"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/q/uni"
	"github.com/codalotl/blockdiff/internal/structdiff"
)

const (
	ansiReset      = "\x1b[0m"
	ansiCyanBold   = "\x1b[1;36m"
	ansiGreenBold  = "\x1b[1;32m"
	ansiRedBold    = "\x1b[1;31m"
	ansiYellowBold = "\x1b[1;33m"
	ansiBlueBold   = "\x1b[1;34m"
)

// ReportOptions control RenderReport.
type ReportOptions struct {
	Color        bool // emit ANSI colors
	PreviewWidth int  // max display width of content previews; 0 means 60
}

// RenderReport renders d for humans:
//
//	Diff: <from> → <to>
//	────────────────────────────────────────
//	Added (1):
//	  + blk_000000000002  "New paragraph"
//	Modified (1):
//	  ~ blk_000000000001
//	    - Hello
//	    + Hello{+ World+}
//	Moved (1):
//	  > blk_000000000003  root[1] → blk_000000000001[0]
//
// Sections appear in the order Added, Removed, Modified, Moved and are omitted when empty. If nothing changed, the body is "No differences found".
func RenderReport(d DocumentDiff, opts ReportOptions) string {
	previewWidth := opts.PreviewWidth
	if previewWidth <= 0 {
		previewWidth = 60
	}
	paint := func(code, s string) string {
		if !opts.Color {
			return s
		}
		return code + s + ansiReset
	}

	var b strings.Builder
	b.WriteString(paint(ansiCyanBold, fmt.Sprintf("Diff: %s → %s", label(d.FromSnapshotID), label(d.ToSnapshotID))))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 40))
	b.WriteString("\n")
	if d.Large {
		b.WriteString("(large diff: classification only)\n")
	}

	if !d.HasChanges() {
		b.WriteString("No differences found\n")
		return b.String()
	}

	idWidth := 0
	for _, bd := range d.Changed() {
		idWidth = max(idWidth, uni.TextWidth(string(bd.ID), nil))
	}

	sections := []struct {
		ct     structdiff.ChangeType
		title  string
		color  string
		marker string
	}{
		{structdiff.Added, "Added", ansiGreenBold, "+"},
		{structdiff.Removed, "Removed", ansiRedBold, "-"},
		{structdiff.Modified, "Modified", ansiYellowBold, "~"},
		{structdiff.Moved, "Moved", ansiBlueBold, ">"},
	}
	moves := make(map[document.BlockID]structdiff.StructuralChange, len(d.StructuralChanges))
	for _, sc := range d.StructuralChanges {
		moves[sc.BlockID] = sc
	}

	for _, sec := range sections {
		blocks := d.Filter(sec.ct)
		if len(blocks) == 0 {
			continue
		}
		b.WriteString(paint(sec.color, sec.title))
		fmt.Fprintf(&b, " (%d):\n", len(blocks))

		for _, bd := range blocks {
			line := fmt.Sprintf("  %s %s", sec.marker, uni.PadRight(string(bd.ID), idWidth, nil))
			switch sec.ct {
			case structdiff.Added:
				line += "  " + preview(bd.New, previewWidth)
			case structdiff.Removed:
				line += "  " + preview(bd.Old, previewWidth)
			case structdiff.Moved:
				if sc, ok := moves[bd.ID]; ok {
					line += fmt.Sprintf("  %s[%d] → %s[%d]", parentLabel(sc.OldParent), sc.OldIndex, parentLabel(sc.NewParent), sc.NewIndex)
				}
			}
			b.WriteString(strings.TrimRight(line, " "))
			b.WriteString("\n")

			if sec.ct != structdiff.Modified {
				continue
			}
			if bd.ContentDiff != nil {
				for _, l := range strings.Split(bd.ContentDiff.RenderLines(opts.Color), "\n") {
					b.WriteString("    ")
					b.WriteString(l)
					b.WriteString("\n")
				}
			}
			for _, mc := range bd.MetadataChanges {
				fmt.Fprintf(&b, "    %s: %v → %v\n", mc.Field, scalarLabel(mc.Old), scalarLabel(mc.New))
			}
		}
	}
	return b.String()
}

func label(snapshotID string) string {
	if snapshotID == "" {
		return "(unnamed)"
	}
	return snapshotID
}

func parentLabel(id document.BlockID) string {
	if id == "" {
		return "root"
	}
	return string(id)
}

func scalarLabel(v any) string {
	switch x := v.(type) {
	case nil:
		return "(none)"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func preview(b *document.Block, width int) string {
	if b == nil || b.Content == "" {
		return ""
	}
	text := strings.Join(strings.Fields(b.Content), " ")
	return `"` + uni.Truncate(uni.Printable(text), width, nil) + `"`
}
