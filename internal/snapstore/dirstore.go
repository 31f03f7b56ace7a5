package snapstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/q/cas"
	"github.com/codalotl/blockdiff/internal/simplelogger"
)

const (
	docsNamespace = "docs-v1"
	namesDir      = "names"
	nameExt       = ".json"
)

// nameRecord is the index file for one snapshot. The document itself lives in the CAS under DocHash.
type nameRecord struct {
	Info
	DocHash string `json:"doc_hash"`
}

// DirStore stores snapshots under a directory:
//
//	<root>/docs-v1/<hash[:2]>/<hash[2:]>  content-addressed documents
//	<root>/names/<name>.json             one index record per snapshot
type DirStore struct {
	root string
	db   *cas.DB
	mu   sync.Mutex
}

var _ Store = (*DirStore)(nil)

// NewDirStore returns a DirStore rooted at dir. The directory is created on first write.
func NewDirStore(dir string) *DirStore {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &DirStore{root: abs, db: &cas.DB{AbsRoot: abs}}
}

func (s *DirStore) namePath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := cas.ValidatePathSegment("snapshot name", name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, namesDir, name+nameExt), nil
}

func (s *DirStore) Put(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.namePath(snap.Name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, snap.Name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	h, err := cas.NewJSONHasher(snap.Document)
	if err != nil {
		return fmt.Errorf("hash snapshot %s: %w", snap.Name, err)
	}
	if err := s.db.Store(h, docsNamespace, snap.Document); err != nil {
		return fmt.Errorf("store snapshot %s: %w", snap.Name, err)
	}

	rec := nameRecord{Info: snap.Info(), DocHash: h.Hash()}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := cas.WriteFileAtomic(p, b, 0o644); err != nil {
		return err
	}
	simplelogger.Log("snapstore: put %s -> %s", snap.Name, h.Hash()[:12])
	return nil
}

func (s *DirStore) readRecord(p string) (nameRecord, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nameRecord{}, err
	}
	var rec nameRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nameRecord{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return rec, nil
}

func (s *DirStore) Get(ctx context.Context, name string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	p, err := s.namePath(name)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readRecord(p)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return Snapshot{}, err
	}

	var doc document.Document
	found, err := s.db.Retrieve(cas.HashString(rec.DocHash), docsNamespace, &doc)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	if !found {
		return Snapshot{}, fmt.Errorf("snapshot %s: document %s is missing", name, rec.DocHash)
	}
	if doc.Blocks == nil {
		doc.Blocks = map[document.BlockID]document.Block{}
	}
	return Snapshot{
		Name:        rec.Name,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
		BlockCount:  rec.BlockCount,
		Document:    doc,
	}, nil
}

func (s *DirStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, namesDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), nameExt) {
			continue
		}
		rec, err := s.readRecord(filepath.Join(s.root, namesDir, e.Name()))
		if err != nil {
			return nil, err
		}
		infos = append(infos, rec.Info)
	}
	sortInfos(infos)
	return infos, nil
}

// Delete removes the name record. The document stays in the CAS, since other snapshots may share it.
func (s *DirStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.namePath(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return err
	}
	simplelogger.Log("snapstore: deleted %s", name)
	return nil
}

func (s *DirStore) Close() error { return nil }

func sortInfos(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].Name < infos[j].Name
	})
}
