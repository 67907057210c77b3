package storage

import (
	"context"
	"errors"
	"fmt"
)

// Overlay stages writes on top of a Reader. Reads see staged documents
// first. Overlays nest: a per-event overlay sits on a per-batch overlay,
// which sits on the EntityStore.
type Overlay struct {
	base  Reader
	docs  map[DocumentKey][]byte
	order []DocumentKey
}

var _ ReadWriter = (*Overlay)(nil)

// NewOverlay creates an empty overlay over base.
func NewOverlay(base Reader) *Overlay {
	return &Overlay{
		base: base,
		docs: make(map[DocumentKey][]byte),
	}
}

// Get returns the staged document, falling back to the base reader.
func (o *Overlay) Get(ctx context.Context, kind, id string) ([]byte, error) {
	if data, ok := o.docs[DocumentKey{Kind: kind, ID: id}]; ok {
		return cloneBytes(data), nil
	}
	data, err := o.base.Get(ctx, kind, id)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: get %s/%s: %v", ErrUnavailable, kind, id, err)
}

// Put stages doc. A later Put of the same key replaces the data but keeps
// the key's original position.
func (o *Overlay) Put(_ context.Context, doc Document) error {
	if doc.Kind == "" || doc.ID == "" {
		return fmt.Errorf("%w: document needs kind and id", ErrInvalidInput)
	}
	key := doc.Key()
	if _, ok := o.docs[key]; !ok {
		o.order = append(o.order, key)
	}
	o.docs[key] = cloneBytes(doc.Data)
	return nil
}

// Documents returns the staged documents in first-write order.
func (o *Overlay) Documents() []Document {
	out := make([]Document, 0, len(o.order))
	for _, key := range o.order {
		out = append(out, Document{Kind: key.Kind, ID: key.ID, Data: cloneBytes(o.docs[key])})
	}
	return out
}

// Len returns the number of staged documents.
func (o *Overlay) Len() int {
	return len(o.order)
}

// MergeInto stages every document of o into parent.
func (o *Overlay) MergeInto(ctx context.Context, parent *Overlay) error {
	for _, doc := range o.Documents() {
		if err := parent.Put(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
