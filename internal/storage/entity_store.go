package storage

import (
	"context"
	"time"
)

// Document is a serialized entity addressed by (Kind, ID).
type Document struct {
	Kind string // entity kind, see domain.Kinds
	ID   string // entity id, unique within Kind
	Data []byte // JSON encoding of the entity
}

// Key returns the composite storage key.
func (d Document) Key() DocumentKey {
	return DocumentKey{Kind: d.Kind, ID: d.ID}
}

// DocumentKey addresses a document.
type DocumentKey struct {
	Kind string
	ID   string
}

// Cursor is the last block whose logs are fully reflected in the store.
type Cursor struct {
	Block     uint64    // last committed block
	UpdatedAt time.Time // commit time
}

// TrackedAddress is a contract whose logs are routed to a handler template.
// Static addresses come from configuration; dynamic ones are registered by
// handlers and persisted with the batch that created them.
type TrackedAddress struct {
	Address    string // lower-case hex
	Template   string // handler template name
	StartBlock uint64 // first block to fetch logs from
}

// Changeset is everything one batch writes: entity documents, newly tracked
// addresses and the advanced cursor. It is applied atomically.
type Changeset struct {
	Documents []Document
	Tracked   []TrackedAddress
	Cursor    *Cursor
}

// IsEmpty reports whether applying the changeset would change nothing.
func (c *Changeset) IsEmpty() bool {
	return len(c.Documents) == 0 && len(c.Tracked) == 0 && c.Cursor == nil
}

// Reader loads entity documents.
type Reader interface {
	// Get returns the document data. Returns ErrNotFound if not exists.
	Get(ctx context.Context, kind, id string) ([]byte, error)
}

// ReadWriter is the read-your-writes view a handler runs against.
type ReadWriter interface {
	Reader

	// Put stages a document, replacing any previous version.
	Put(ctx context.Context, doc Document) error
}

// EntityStore is the durable entity store.
type EntityStore interface {
	Reader

	// List returns all documents of a kind ordered by id.
	List(ctx context.Context, kind string) ([]Document, error)

	// ListPage returns at most limit documents of a kind whose id sorts
	// strictly after the given one, ordered by id. An empty after starts at
	// the first id.
	ListPage(ctx context.Context, kind, after string, limit int) ([]Document, error)

	// Commit applies a changeset atomically.
	Commit(ctx context.Context, cs *Changeset) error

	// GetCursor returns the last committed cursor.
	// Returns ErrNotFound if nothing has been committed yet.
	GetCursor(ctx context.Context) (*Cursor, error)

	// LoadTrackedAddresses returns every persisted dynamic address.
	LoadTrackedAddresses(ctx context.Context) ([]TrackedAddress, error)
}
