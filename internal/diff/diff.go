package diff

import (
	"fmt"
	"strings"
)

// Op is an operation from old text to new text.
type Op int

// Operations from old text to new text.
const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// MarshalText encodes op as "equal", "insert", or "delete".
func (op Op) MarshalText() ([]byte, error) {
	switch op {
	case OpEqual, OpInsert, OpDelete:
		return []byte(op.String()), nil
	default:
		return nil, fmt.Errorf("diff: unknown op %d", int(op))
	}
}

// UnmarshalText is the inverse of MarshalText.
func (op *Op) UnmarshalText(b []byte) error {
	switch string(b) {
	case "equal":
		*op = OpEqual
	case "insert":
		*op = OpInsert
	case "delete":
		*op = OpDelete
	default:
		return fmt.Errorf("diff: unknown op %q", string(b))
	}
	return nil
}

// Span is one operation of a TextDiff and the literal text it covers.
type Span struct {
	Op   Op     `json:"op"`
	Text string `json:"text"`
}

// TextDiff is an edit script from old text to new text. See the package documentation for its invariants.
type TextDiff []Span

// OldText reconstructs the old side (equal + delete spans).
func (td TextDiff) OldText() string {
	var b strings.Builder
	for _, s := range td {
		if s.Op != OpInsert {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// NewText reconstructs the new side (equal + insert spans).
func (td TextDiff) NewText() string {
	var b strings.Builder
	for _, s := range td {
		if s.Op != OpDelete {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// HasChanges reports whether td contains any insert or delete.
func (td TextDiff) HasChanges() bool {
	for _, s := range td {
		if s.Op != OpEqual {
			return true
		}
	}
	return false
}

// Stats returns the number of bytes inserted and deleted.
func (td TextDiff) Stats() (inserted, deleted int) {
	for _, s := range td {
		switch s.Op {
		case OpInsert:
			inserted += len(s.Text)
		case OpDelete:
			deleted += len(s.Text)
		}
	}
	return inserted, deleted
}

// Granularity selects the tokens DiffText compares.
type Granularity string

const (
	GranularityWord Granularity = "word" // Unicode word boundaries (default)
	GranularityChar Granularity = "char" // grapheme clusters
)

// ParseGranularity accepts "word", "char", or "" (word).
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", GranularityWord:
		return GranularityWord, nil
	case GranularityChar:
		return GranularityChar, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (want word or char)", s)
	}
}

// Options control DiffText. A nil *Options means word granularity.
type Options struct {
	Granularity Granularity
}
