package storage

import (
	"context"
	"errors"
	"time"

	"core-indexer/internal/observability"
)

// Instrumented records latency and errors of every store call under a
// database label.
type Instrumented struct {
	store    EntityStore
	database string
}

var _ EntityStore = (*Instrumented)(nil)

// NewInstrumented wraps store.
func NewInstrumented(store EntityStore, database string) *Instrumented {
	return &Instrumented{store: store, database: database}
}

func (s *Instrumented) record(op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery(s.database, op, time.Since(start).Seconds(), err)
}

func (s *Instrumented) Get(ctx context.Context, kind, id string) ([]byte, error) {
	start := time.Now()
	data, err := s.store.Get(ctx, kind, id)
	s.record("get", start, err)
	return data, err
}

func (s *Instrumented) List(ctx context.Context, kind string) ([]Document, error) {
	start := time.Now()
	docs, err := s.store.List(ctx, kind)
	s.record("list", start, err)
	return docs, err
}

func (s *Instrumented) ListPage(ctx context.Context, kind, after string, limit int) ([]Document, error) {
	start := time.Now()
	docs, err := s.store.ListPage(ctx, kind, after, limit)
	s.record("list_page", start, err)
	return docs, err
}

func (s *Instrumented) Commit(ctx context.Context, cs *Changeset) error {
	start := time.Now()
	err := s.store.Commit(ctx, cs)
	s.record("commit", start, err)
	return err
}

func (s *Instrumented) GetCursor(ctx context.Context) (*Cursor, error) {
	start := time.Now()
	c, err := s.store.GetCursor(ctx)
	s.record("get_cursor", start, err)
	return c, err
}

func (s *Instrumented) LoadTrackedAddresses(ctx context.Context) ([]TrackedAddress, error) {
	start := time.Now()
	t, err := s.store.LoadTrackedAddresses(ctx)
	s.record("load_tracked", start, err)
	return t, err
}
