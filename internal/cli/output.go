package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/mdimport"
	"github.com/codalotl/blockdiff/internal/q/uni"
	"golang.org/x/term"
)

// useColor resolves a color mode for w. "auto" means color only when w is a terminal and NO_COLOR is unset.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case colorAlways:
		return true
	case colorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns w's width in columns, or def if w is not a terminal.
func terminalWidth(w io.Writer, def int) int {
	f, ok := w.(*os.File)
	if !ok {
		return def
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return def
	}
	return width
}

// readDocument loads a document from path. Markdown files (.md, .markdown) are imported with ids from alloc; anything else must be a document in JSON form.
func readDocument(path string, alloc *document.IDAllocator) (document.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return mdimport.Import(src, alloc)
	}

	var doc document.Document
	if err := json.Unmarshal(src, &doc); err != nil {
		return document.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Blocks == nil {
		doc.Blocks = map[document.BlockID]document.Block{}
	}
	if err := document.Validate(doc); err != nil {
		return document.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// writeOutline prints doc as an indented tree, one block per line: id, content type, and a content preview fitted to width.
func writeOutline(w io.Writer, doc document.Document, width int) error {
	if doc.Len() == 0 {
		fmt.Fprintln(w, "(empty document)")
		return nil
	}
	order, err := doc.PreOrder()
	if err != nil {
		return err
	}
	for _, id := range order {
		b := doc.Blocks[id]
		depth, err := doc.Depth(id)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s%s [%s]", strings.Repeat("  ", depth), id, b.ContentType)
		if content := uni.Printable(strings.Join(strings.Fields(b.Content), " ")); content != "" {
			if room := width - uni.TextWidth(line, nil) - 1; room > 3 {
				line += " " + uni.Truncate(content, room, nil)
			}
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
