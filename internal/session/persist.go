package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/history"
	"github.com/codalotl/blockdiff/internal/q/cas"
	"github.com/codalotl/blockdiff/internal/simplelogger"
)

const stateVersion = 1

// stateFile is the on-disk form of a Session.
type stateFile struct {
	Version  int               `json:"version"`
	Pristine document.Document `json:"pristine"`
	History  history.Archive   `json:"history"`
	NextID   uint64            `json:"next_id"`
}

// Save writes the session (pristine document, full history, and id counter) to path as JSON. The file is replaced atomically.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	st := stateFile{
		Version:  stateVersion,
		Pristine: s.pristine,
		History:  s.hist.Export(),
		NextID:   s.alloc.Counter(),
	}
	s.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := cas.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	simplelogger.Log("session: saved %s (%d entries)", path, len(st.History.Entries))
	return nil
}

// Load reads a session written by Save. opts.MaxEntries, if set, overrides the saved cap. A missing file is reported with an error matching os.ErrNotExist.
func Load(path string, opts Options) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var st stateFile
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	if st.Version != stateVersion {
		return nil, fmt.Errorf("session %s: unsupported version %d", path, st.Version)
	}

	s, err := New(st.Pristine, opts)
	if err != nil {
		return nil, err
	}
	if err := s.hist.Import(st.History); err != nil {
		return nil, fmt.Errorf("session %s: %w", path, err)
	}
	if opts.MaxEntries > 0 {
		s.hist.SetMaxEntries(opts.MaxEntries)
	}

	s.alloc = document.NewIDAllocator(st.NextID)
	s.alloc.Observe(st.Pristine)
	for _, ae := range st.History.Entries {
		if err := document.Validate(ae.Document); err != nil {
			return nil, fmt.Errorf("session %s: entry %s: %w", path, ae.Entry.ID, err)
		}
		s.alloc.Observe(ae.Document)
	}

	s.restoreLocked(s.hist.Current())
	return s, nil
}
