package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"core-indexer/internal/storage"
)

// EntityStore is a PostgreSQL implementation of storage.EntityStore.
// Uses three tables:
//   - entities: (kind, id) -> JSONB document
//   - indexer_cursor: single row with the last committed block
//   - tracked_addresses: dynamically registered contracts
type EntityStore struct {
	pool *Pool
}

var _ storage.EntityStore = (*EntityStore)(nil)

// NewEntityStore creates a new PostgreSQL entity store.
func NewEntityStore(pool *Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Get returns the document data for (kind, id).
func (s *EntityStore) Get(ctx context.Context, kind, id string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM entities WHERE kind = $1 AND id = $2
	`, kind, id).Scan(&data)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity %s/%s: %w", kind, id, err)
	}
	return data, nil
}

// List returns all documents of a kind ordered by id.
func (s *EntityStore) List(ctx context.Context, kind string) ([]storage.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data FROM entities WHERE kind = $1 ORDER BY id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list entities %s: %w", kind, err)
	}
	defer rows.Close()

	var docs []storage.Document
	for rows.Next() {
		doc := storage.Document{Kind: kind}
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan entity %s: %w", kind, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListPage returns up to limit documents of a kind with ids after the given
// one, using the (kind, id) primary key.
func (s *EntityStore) ListPage(ctx context.Context, kind, after string, limit int) ([]storage.Document, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, data FROM entities
		WHERE kind = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`, kind, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list entities %s after %q: %w", kind, after, err)
	}
	defer rows.Close()

	docs := make([]storage.Document, 0, limit)
	for rows.Next() {
		doc := storage.Document{Kind: kind}
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan entity %s: %w", kind, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Commit applies the changeset in one transaction. Documents are upserted,
// tracked addresses inserted once and the cursor row replaced.
func (s *EntityStore) Commit(ctx context.Context, cs *storage.Changeset) error {
	if cs == nil {
		return storage.ErrInvalidInput
	}
	if cs.IsEmpty() {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, doc := range cs.Documents {
			if doc.Kind == "" || doc.ID == "" {
				return storage.ErrInvalidInput
			}
			batch.Queue(`
				INSERT INTO entities (kind, id, data, updated_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (kind, id) DO UPDATE
				SET data = EXCLUDED.data,
				    updated_at = NOW()
			`, doc.Kind, doc.ID, string(doc.Data))
		}
		for _, t := range cs.Tracked {
			batch.Queue(`
				INSERT INTO tracked_addresses (address, template, start_block, created_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (address) DO NOTHING
			`, t.Address, t.Template, int64(t.StartBlock))
		}
		if cs.Cursor != nil {
			batch.Queue(`
				INSERT INTO indexer_cursor (id, block, updated_at)
				VALUES (1, $1, NOW())
				ON CONFLICT (id) DO UPDATE
				SET block = EXCLUDED.block,
				    updated_at = NOW()
			`, int64(cs.Cursor.Block))
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isDuplicateKeyError(err) {
				return fmt.Errorf("commit changeset: %w", storage.ErrDuplicateKey)
			}
			return fmt.Errorf("commit changeset: %w", err)
		}
		return nil
	})
}

// GetCursor returns the last committed block.
func (s *EntityStore) GetCursor(ctx context.Context) (*storage.Cursor, error) {
	var (
		block  int64
		cursor storage.Cursor
	)
	err := s.pool.QueryRow(ctx, `
		SELECT block, updated_at FROM indexer_cursor WHERE id = 1
	`).Scan(&block, &cursor.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	cursor.Block = uint64(block)
	return &cursor, nil
}

// LoadTrackedAddresses returns all tracked addresses ordered by start block.
func (s *EntityStore) LoadTrackedAddresses(ctx context.Context) ([]storage.TrackedAddress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, template, start_block
		FROM tracked_addresses
		ORDER BY start_block ASC, address ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load tracked addresses: %w", err)
	}
	defer rows.Close()

	var out []storage.TrackedAddress
	for rows.Next() {
		var (
			t     storage.TrackedAddress
			start int64
		)
		if err := rows.Scan(&t.Address, &t.Template, &start); err != nil {
			return nil, fmt.Errorf("scan tracked address: %w", err)
		}
		t.StartBlock = uint64(start)
		out = append(out, t)
	}
	return out, rows.Err()
}
