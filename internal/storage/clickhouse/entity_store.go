package clickhouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"core-indexer/internal/storage"
)

// Reserved kinds for runtime state stored alongside entities.
const (
	cursorKind  = "_cursor"
	trackedKind = "_tracked"
	cursorID    = "1"
)

// EntityStore implements storage.EntityStore on a ReplacingMergeTree table.
// Reads use FINAL so the newest version of a document is returned even
// before background merges run.
type EntityStore struct {
	conn *Conn

	mu          sync.Mutex
	lastVersion uint64
}

var _ storage.EntityStore = (*EntityStore)(nil)

// NewEntityStore creates a new ClickHouse entity store.
func NewEntityStore(conn *Conn) *EntityStore {
	return &EntityStore{conn: conn}
}

// Get returns the newest version of (kind, id).
func (s *EntityStore) Get(ctx context.Context, kind, id string) ([]byte, error) {
	var data string
	err := s.conn.QueryRow(ctx, `
		SELECT data FROM entities FINAL
		WHERE kind = ? AND id = ?
		LIMIT 1
	`, kind, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity %s/%s: %w", kind, id, err)
	}
	return []byte(data), nil
}

// List returns all documents of a kind ordered by id.
func (s *EntityStore) List(ctx context.Context, kind string) ([]storage.Document, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, data FROM entities FINAL
		WHERE kind = ?
		ORDER BY id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list entities %s: %w", kind, err)
	}
	defer rows.Close()

	var docs []storage.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan entity %s: %w", kind, err)
		}
		docs = append(docs, storage.Document{Kind: kind, ID: id, Data: []byte(data)})
	}
	return docs, rows.Err()
}

// ListPage returns up to limit documents of a kind with ids after the given
// one.
func (s *EntityStore) ListPage(ctx context.Context, kind, after string, limit int) ([]storage.Document, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, data FROM entities FINAL
		WHERE kind = ? AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`, kind, after, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("list entities %s after %q: %w", kind, after, err)
	}
	defer rows.Close()

	docs := make([]storage.Document, 0, limit)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan entity %s: %w", kind, err)
		}
		docs = append(docs, storage.Document{Kind: kind, ID: id, Data: []byte(data)})
	}
	return docs, rows.Err()
}

type cursorRow struct {
	Block     uint64    `json:"block"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type trackedRow struct {
	Template   string `json:"template"`
	StartBlock uint64 `json:"startBlock"`
}

// Commit writes the whole changeset as one insert block.
func (s *EntityStore) Commit(ctx context.Context, cs *storage.Changeset) error {
	if cs == nil {
		return storage.ErrInvalidInput
	}
	if cs.IsEmpty() {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO entities (kind, id, data, version)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	version := s.nextVersion()

	for _, doc := range cs.Documents {
		if doc.Kind == "" || doc.ID == "" {
			_ = batch.Abort()
			return storage.ErrInvalidInput
		}
		if err := batch.Append(doc.Kind, doc.ID, string(doc.Data), version); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append entity %s/%s: %w", doc.Kind, doc.ID, err)
		}
	}
	for _, t := range cs.Tracked {
		data, _ := json.Marshal(trackedRow{Template: t.Template, StartBlock: t.StartBlock})
		if err := batch.Append(trackedKind, t.Address, string(data), version); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append tracked address: %w", err)
		}
	}
	if cs.Cursor != nil {
		updatedAt := cs.Cursor.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}
		data, _ := json.Marshal(cursorRow{Block: cs.Cursor.Block, UpdatedAt: updatedAt})
		if err := batch.Append(cursorKind, cursorID, string(data), version); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append cursor: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetCursor returns the last committed block.
func (s *EntityStore) GetCursor(ctx context.Context) (*storage.Cursor, error) {
	data, err := s.Get(ctx, cursorKind, cursorID)
	if err != nil {
		return nil, err
	}
	var row cursorRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	return &storage.Cursor{Block: row.Block, UpdatedAt: row.UpdatedAt}, nil
}

// LoadTrackedAddresses returns all tracked addresses.
func (s *EntityStore) LoadTrackedAddresses(ctx context.Context) ([]storage.TrackedAddress, error) {
	docs, err := s.List(ctx, trackedKind)
	if err != nil {
		return nil, err
	}
	out := make([]storage.TrackedAddress, 0, len(docs))
	for _, doc := range docs {
		var row trackedRow
		if err := json.Unmarshal(doc.Data, &row); err != nil {
			return nil, fmt.Errorf("decode tracked address %s: %w", doc.ID, err)
		}
		out = append(out, storage.TrackedAddress{Address: doc.ID, Template: row.Template, StartBlock: row.StartBlock})
	}
	return out, nil
}

// nextVersion returns a strictly increasing version so later commits win
// even within the same nanosecond.
func (s *EntityStore) nextVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := uint64(time.Now().UnixNano())
	if v <= s.lastVersion {
		v = s.lastVersion + 1
	}
	s.lastVersion = v
	return v
}
