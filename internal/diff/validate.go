package diff

import (
	"fmt"
)

// validate checks the TextDiff invariants against oldText and newText and returns an error on the first violation.
func (td TextDiff) validate(oldText, newText string) error {
	for i, s := range td {
		switch s.Op {
		case OpEqual, OpInsert, OpDelete:
		default:
			return fmt.Errorf("span[%d]: unknown op %d", i, int(s.Op))
		}
		if s.Text == "" {
			return fmt.Errorf("span[%d]: empty %s span", i, s.Op)
		}
		if i == 0 {
			continue
		}
		prev := td[i-1]
		if prev.Op == s.Op {
			return fmt.Errorf("span[%d]: adjacent %s spans", i, s.Op)
		}
		if prev.Op == OpInsert && s.Op == OpDelete {
			return fmt.Errorf("span[%d]: delete follows insert", i)
		}
	}

	if got := td.OldText(); got != oldText {
		return fmt.Errorf("old side does not round-trip: got %q, want %q", got, oldText)
	}
	if got := td.NewText(); got != newText {
		return fmt.Errorf("new side does not round-trip: got %q, want %q", got, newText)
	}
	return nil
}

// Validate checks that td is a canonical edit script from oldText to newText.
func Validate(td TextDiff, oldText, newText string) error {
	return td.validate(oldText, newText)
}
