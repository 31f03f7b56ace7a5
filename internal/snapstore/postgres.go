package snapstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/simplelogger"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresStore stores snapshots in the blockdiff_snapshots table.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to connStr and creates the snapshots table if needed.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS blockdiff_snapshots (
			name        TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL,
			block_count INTEGER NOT NULL,
			document    JSONB NOT NULL
		)
	`)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Put(ctx context.Context, snap Snapshot) error {
	if err := ValidateName(snap.Name); err != nil {
		return err
	}
	b, err := json.Marshal(snap.Document)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO blockdiff_snapshots (name, description, created_at, block_count, document)
		VALUES ($1, $2, $3, $4, $5)
	`, snap.Name, snap.Description, snap.CreatedAt, snap.BlockCount, string(b))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrExists, snap.Name)
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	simplelogger.Log("snapstore: put %s (postgres)", snap.Name)
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (Snapshot, error) {
	var (
		snap Snapshot
		raw  []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, description, created_at, block_count, document
		FROM blockdiff_snapshots
		WHERE name = $1
	`, name).Scan(&snap.Name, &snap.Description, &snap.CreatedAt, &snap.BlockCount, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &snap.Document); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	if snap.Document.Blocks == nil {
		snap.Document.Blocks = map[document.BlockID]document.Block{}
	}
	snap.CreatedAt = snap.CreatedAt.UTC()
	return snap, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, description, created_at, block_count
		FROM blockdiff_snapshots
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.Name, &info.Description, &info.CreatedAt, &info.BlockCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.CreatedAt = info.CreatedAt.UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return infos, nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM blockdiff_snapshots WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	simplelogger.Log("snapstore: deleted %s (postgres)", name)
	return nil
}
