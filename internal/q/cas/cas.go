package cas

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const recordKind = "cas-record-v1"

// Hasher identifies a CAS record by hash.
type Hasher interface {
	// Hash must be filesystem-safe with no path separators.
	Hash() string
}

type stringHasher string

func (h stringHasher) Hash() string { return string(h) }

// HashString returns a Hasher for a hash computed elsewhere (ex: read back from an index). The hash is validated when it is used.
func HashString(hash string) Hasher {
	return stringHasher(hash)
}

// NewBytesHasher returns a Hasher for the bytes.
func NewBytesHasher(b []byte) Hasher {
	sum := sha256.Sum256(b)
	return stringHasher(hex.EncodeToString(sum[:]))
}

// NewJSONHasher returns a Hasher for the json.Marshal encoding of v. Map keys are encoded in sorted order, so equal values hash equally.
func NewJSONHasher(v any) (Hasher, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return NewBytesHasher(b), nil
}

// DB is a filesystem-backed record store rooted at AbsRoot.
type DB struct {
	AbsRoot string
}

type recordV1 struct {
	Kind     string          `json:"kind"`
	Metadata json.RawMessage `json:"metadata"`
}

// Store serializes jsonable as JSON (using json.Marshal) and stores it for (namespace, hasher.Hash()). Storing identical bytes again does not touch the file.
//
// namespace must be filesystem-safe with no path separators.
func (db *DB) Store(hasher Hasher, namespace string, jsonable any) error {
	finalPath, err := db.pathFor(hasher, namespace)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(jsonable)
	if err != nil {
		return err
	}
	out, err := json.Marshal(recordV1{Kind: recordKind, Metadata: json.RawMessage(payload)})
	if err != nil {
		return err
	}

	if existing, err := os.ReadFile(finalPath); err == nil && bytes.Equal(existing, out) {
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return WriteFileAtomic(finalPath, out, 0o644)
}

// Retrieve loads the record for (namespace, hasher.Hash()) into target, which must be a pointer passed to json.Unmarshal. It returns whether the record was
// found. A missing record is not, by itself, an error.
func (db *DB) Retrieve(hasher Hasher, namespace string, target any) (bool, error) {
	p, err := db.pathFor(hasher, namespace)
	if err != nil {
		return false, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	var rec recordV1
	if err := json.Unmarshal(b, &rec); err != nil {
		return false, err
	}
	if rec.Kind != recordKind {
		return false, fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	if err := json.Unmarshal(rec.Metadata, target); err != nil {
		return false, err
	}
	return true, nil
}

// Has reports whether a record exists for (namespace, hasher.Hash()).
func (db *DB) Has(hasher Hasher, namespace string) (bool, error) {
	p, err := db.pathFor(hasher, namespace)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (db *DB) pathFor(hasher Hasher, namespace string) (string, error) {
	if db.AbsRoot == "" {
		return "", errors.New("DB.AbsRoot is empty")
	}
	if hasher == nil {
		return "", errors.New("hasher is nil")
	}
	if err := ValidatePathSegment("namespace", namespace); err != nil {
		return "", err
	}
	hash := hasher.Hash()
	if err := ValidatePathSegment("hash", hash); err != nil {
		return "", err
	}
	if len(hash) < 3 {
		return "", fmt.Errorf("hash %q is too short", hash)
	}
	return filepath.Join(db.AbsRoot, namespace, hash[:2], hash[2:]), nil
}

// ValidatePathSegment returns an error if s is empty, a dot segment, or contains a path separator. name is used in the error message.
func ValidatePathSegment(name, s string) error {
	if s == "" {
		return fmt.Errorf("%s is empty", name)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("%s %q is not allowed", name, s)
	}
	// Disallow both separators to be safe cross-platform.
	if strings.Contains(s, "/") || strings.Contains(s, `\`) {
		return fmt.Errorf("%s %q must not contain path separators", name, s)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it over path, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
