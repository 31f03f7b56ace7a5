// Package snapstore keeps named, described snapshots of documents outside the undo/redo history.
//
// Two Stores are provided: a directory-backed store (documents are content-addressed, so snapshots of identical documents share storage) and a PostgreSQL store.
// Both treat names as unique; Put never overwrites.
package snapstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codalotl/blockdiff/internal/document"
)

var (
	ErrNotFound = errors.New("snapshot not found")
	ErrExists   = errors.New("snapshot already exists")
)

// Snapshot is a named document.
type Snapshot struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	BlockCount  int               `json:"block_count"`
	Document    document.Document `json:"document"`
}

// Info is a Snapshot without its document, as returned by List.
type Info struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	BlockCount  int       `json:"block_count"`
}

// Info returns s without its document.
func (s Snapshot) Info() Info {
	return Info{Name: s.Name, Description: s.Description, CreatedAt: s.CreatedAt, BlockCount: s.BlockCount}
}

// Store persists snapshots by name.
type Store interface {
	// Put saves s. It returns ErrExists if a snapshot named s.Name is already stored.
	Put(ctx context.Context, s Snapshot) error

	// Get returns the snapshot named name, or ErrNotFound.
	Get(ctx context.Context, name string) (Snapshot, error)

	// List returns every snapshot, oldest first.
	List(ctx context.Context) ([]Info, error)

	// Delete removes the snapshot named name, or returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	Close() error
}

// New returns a Snapshot of doc named name. CreatedAt is the current UTC time.
func New(name, description string, doc document.Document) Snapshot {
	return Snapshot{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC().Round(0).Truncate(time.Microsecond),
		BlockCount:  doc.Len(),
		Document:    doc,
	}
}

// ValidateName returns an error unless name is a usable snapshot name: non-empty, at most 128 bytes, and made of letters, digits, '.', '-', and '_' (not starting
// with '.').
func ValidateName(name string) error {
	if name == "" {
		return errors.New("snapshot name is empty")
	}
	if len(name) > 128 {
		return fmt.Errorf("snapshot name %q is longer than 128 bytes", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("snapshot name %q must not start with '.'", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		default:
			return fmt.Errorf("snapshot name %q contains %q", name, r)
		}
	}
	return nil
}

// Open returns a PostgresStore if databaseURL is set, and a DirStore rooted at dir otherwise.
func Open(ctx context.Context, databaseURL, dir string) (Store, error) {
	if databaseURL != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	if dir == "" {
		return nil, errors.New("snapshot directory is not configured")
	}
	return NewDirStore(dir), nil
}
