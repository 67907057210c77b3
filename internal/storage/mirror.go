package storage

import (
	"context"

	"go.uber.org/zap"
)

// Mirror commits to a primary store and then replays the same changeset to
// a secondary one, such as an analytics copy. Reads go to the primary. A
// secondary failure is logged and does not fail the commit.
type Mirror struct {
	EntityStore
	secondary EntityStore
	logger    *zap.Logger
}

// NewMirror creates a mirror of primary into secondary.
func NewMirror(primary, secondary EntityStore, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{EntityStore: primary, secondary: secondary, logger: logger}
}

// Commit implements EntityStore.
func (m *Mirror) Commit(ctx context.Context, cs *Changeset) error {
	if err := m.EntityStore.Commit(ctx, cs); err != nil {
		return err
	}
	if err := m.secondary.Commit(ctx, cs); err != nil {
		var block uint64
		if cs.Cursor != nil {
			block = cs.Cursor.Block
		}
		m.logger.Error("mirror commit failed",
			zap.Uint64("block", block),
			zap.Int("documents", len(cs.Documents)),
			zap.Error(err),
		)
	}
	return nil
}
