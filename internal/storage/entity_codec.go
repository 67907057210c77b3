package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"core-indexer/internal/domain"
)

// LoadEntity decodes the entity (dst.Kind(), id) into dst.
// Returns false without error when the entity does not exist.
func LoadEntity(ctx context.Context, r Reader, id string, dst domain.Entity) (bool, error) {
	data, err := r.Get(ctx, dst.Kind(), id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", dst.Kind(), id, err)
	}
	return true, nil
}

// SaveEntity encodes e and stages it in w.
func SaveEntity(ctx context.Context, w ReadWriter, e domain.Entity) error {
	doc, err := EncodeEntity(e)
	if err != nil {
		return err
	}
	return w.Put(ctx, doc)
}

// EncodeEntity serializes e into a Document.
func EncodeEntity(e domain.Entity) (Document, error) {
	if e.EntityID() == "" {
		return Document{}, fmt.Errorf("%w: %s without id", ErrInvalidInput, e.Kind())
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s/%s: %w", e.Kind(), e.EntityID(), err)
	}
	return Document{Kind: e.Kind(), ID: e.EntityID(), Data: data}, nil
}
