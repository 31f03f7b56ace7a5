// Package mdimport converts a Markdown document into a block document.
//
// Top-level Markdown blocks become blocks. Headings open sections: every block after a heading, up to the next heading of the same or a higher level, becomes
// a child of that heading. Lists become ContentList blocks whose children are one block per item; nested lists hang off their item. Inline markup is kept
// verbatim in Content so that edits to emphasis or links show up in content diffs.
package mdimport

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Metadata keys set by Import.
const (
	MetaLevel    = "level"    // heading level, 1-6
	MetaLanguage = "language" // fenced code info string's first word
	MetaOrdered  = "ordered"  // whether a list is numbered
	MetaStart    = "start"    // first number of an ordered list, when not 1
)

type section struct {
	level int
	id    document.BlockID
}

type importer struct {
	src      []byte
	alloc    *document.IDAllocator
	doc      document.Document
	sections []section
}

// Import parses src and returns a document whose block ids come from alloc.
func Import(src []byte, alloc *document.IDAllocator) (document.Document, error) {
	if alloc == nil {
		return document.Document{}, errors.New("mdimport: nil id allocator")
	}
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	if root == nil {
		return document.Document{}, errors.New("mdimport: parse markdown: nil document")
	}

	im := &importer{src: src, alloc: alloc, doc: document.New("")}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			for len(im.sections) > 0 && im.sections[len(im.sections)-1].level >= h.Level {
				im.sections = im.sections[:len(im.sections)-1]
			}
			id := im.add(im.parent(), document.Block{
				ContentType: document.ContentHeading,
				Content:     im.lines(h),
				Metadata:    map[string]any{MetaLevel: h.Level},
			})
			im.sections = append(im.sections, section{level: h.Level, id: id})
			continue
		}
		im.block(im.parent(), n)
	}

	if err := document.Validate(im.doc); err != nil {
		return document.Document{}, fmt.Errorf("mdimport: %w", err)
	}
	return im.doc, nil
}

func (im *importer) parent() document.BlockID {
	if len(im.sections) == 0 {
		return ""
	}
	return im.sections[len(im.sections)-1].id
}

// add appends b under parent and returns its new id.
func (im *importer) add(parent document.BlockID, b document.Block) document.BlockID {
	b.ID = im.alloc.Next()
	b.ParentID = parent
	if b.ContentType == "" {
		b.ContentType = document.ContentText
	}
	im.doc.Blocks[b.ID] = b
	if parent == "" {
		im.doc.Roots = append(im.doc.Roots, b.ID)
	} else {
		p := im.doc.Blocks[parent]
		p.Children = append(p.Children, b.ID)
		im.doc.Blocks[parent] = p
	}
	return b.ID
}

// block converts a non-heading block node. Headings nested in containers (ex: a list item) are treated as text.
func (im *importer) block(parent document.BlockID, n ast.Node) {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
		im.add(parent, document.Block{Content: im.lines(n)})
	case *ast.FencedCodeBlock:
		b := document.Block{ContentType: document.ContentCode, Content: im.lines(n)}
		if lang := string(n.Language(im.src)); lang != "" {
			b.Metadata = map[string]any{MetaLanguage: lang}
		}
		im.add(parent, b)
	case *ast.CodeBlock:
		im.add(parent, document.Block{ContentType: document.ContentCode, Content: im.lines(n)})
	case *ast.List:
		meta := map[string]any{MetaOrdered: n.IsOrdered()}
		if n.IsOrdered() && n.Start != 1 {
			meta[MetaStart] = n.Start
		}
		id := im.add(parent, document.Block{ContentType: document.ContentList, Metadata: meta})
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			im.item(id, item)
		}
	case *ast.Blockquote:
		im.add(parent, document.Block{ContentType: document.ContentQuote, Content: im.text(n)})
	case *ast.ThematicBreak:
		im.add(parent, document.Block{ContentType: document.ContentBreak})
	case *ast.HTMLBlock:
		content := im.lines(n)
		if n.HasClosure() {
			closure := n.ClosureLine
			content = strings.TrimRight(content+"\n"+string(closure.Value(im.src)), "\n")
		}
		im.add(parent, document.Block{ContentType: document.ContentHTML, Content: content})
	default:
		if s := im.text(n); s != "" {
			im.add(parent, document.Block{Content: s})
		}
	}
}

// item adds a list item: its leading text is the item's content, and any further blocks (nested lists, extra paragraphs, code) become its children.
func (im *importer) item(parent document.BlockID, item ast.Node) {
	first := item.FirstChild()
	content := ""
	if first != nil {
		switch first.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			content = im.lines(first)
			first = first.NextSibling()
		}
	}
	id := im.add(parent, document.Block{Content: content})
	for n := first; n != nil; n = n.NextSibling() {
		im.block(id, n)
	}
}

// lines returns n's raw source lines, without the trailing newline.
func (im *importer) lines(n ast.Node) string {
	var buf bytes.Buffer
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		v := seg.Value(im.src)
		buf.Write(v)
		if i < segs.Len()-1 && !bytes.HasSuffix(v, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

// text joins the lines of every leaf block under n, separating blocks with a blank line.
func (im *importer) text(n ast.Node) string {
	var parts []string
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		if c.Lines().Len() > 0 {
			if s := im.lines(c); s != "" {
				parts = append(parts, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(parts, "\n\n")
}
