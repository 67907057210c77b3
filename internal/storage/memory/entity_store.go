package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"core-indexer/internal/storage"
)

// EntityStore is an in-memory implementation of storage.EntityStore.
type EntityStore struct {
	mu      sync.RWMutex
	docs    map[string]map[string][]byte // kind -> id -> data
	cursor  *storage.Cursor
	tracked map[string]storage.TrackedAddress
	commits int
}

var _ storage.EntityStore = (*EntityStore)(nil)

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		docs:    make(map[string]map[string][]byte),
		tracked: make(map[string]storage.TrackedAddress),
	}
}

// Get returns a copy of the document data.
func (s *EntityStore) Get(_ context.Context, kind, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[kind][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyBytes(data), nil
}

// List returns all documents of a kind ordered by id.
func (s *EntityStore) List(_ context.Context, kind string) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.docs[kind]
	out := make([]storage.Document, 0, len(byID))
	for id, data := range byID {
		out = append(out, storage.Document{Kind: kind, ID: id, Data: copyBytes(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListPage returns up to limit documents of a kind with ids after the given
// one.
func (s *EntityStore) ListPage(_ context.Context, kind, after string, limit int) ([]storage.Document, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.docs[kind]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]storage.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, storage.Document{Kind: kind, ID: id, Data: copyBytes(byID[id])})
	}
	return out, nil
}

// Commit applies a changeset under a single lock.
func (s *EntityStore) Commit(_ context.Context, cs *storage.Changeset) error {
	if cs == nil {
		return storage.ErrInvalidInput
	}
	for _, doc := range cs.Documents {
		if doc.Kind == "" || doc.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range cs.Documents {
		byID, ok := s.docs[doc.Kind]
		if !ok {
			byID = make(map[string][]byte)
			s.docs[doc.Kind] = byID
		}
		byID[doc.ID] = copyBytes(doc.Data)
	}
	for _, t := range cs.Tracked {
		if _, exists := s.tracked[t.Address]; !exists {
			s.tracked[t.Address] = t
		}
	}
	if cs.Cursor != nil {
		updatedAt := cs.Cursor.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}
		s.cursor = &storage.Cursor{Block: cs.Cursor.Block, UpdatedAt: updatedAt}
	}
	s.commits++
	return nil
}

// GetCursor returns the last committed cursor.
func (s *EntityStore) GetCursor(_ context.Context) (*storage.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cursor == nil {
		return nil, storage.ErrNotFound
	}
	c := *s.cursor
	return &c, nil
}

// LoadTrackedAddresses returns all tracked addresses ordered by start block.
func (s *EntityStore) LoadTrackedAddresses(_ context.Context) ([]storage.TrackedAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.TrackedAddress, 0, len(s.tracked))
	for _, t := range s.tracked {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartBlock != out[j].StartBlock {
			return out[i].StartBlock < out[j].StartBlock
		}
		return out[i].Address < out[j].Address
	})
	return out, nil
}

// Commits returns the number of applied changesets.
func (s *EntityStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
