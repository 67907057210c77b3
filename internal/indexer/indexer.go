// Package indexer applies ordered logs to the entity store. Each event runs
// against its own overlay: a failed event leaves no writes and no tracked
// addresses behind, a successful one is merged into the batch, and a batch is
// committed atomically together with the cursor.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"core-indexer/internal/chain"
	"core-indexer/internal/contracts"
	"core-indexer/internal/entities"
	"core-indexer/internal/ids"
	"core-indexer/internal/mappings"
	"core-indexer/internal/observability"
	"core-indexer/internal/storage"
)

// IsFatal reports whether err must stop indexing instead of skipping the
// event. Transport and store failures are fatal because retrying later can
// succeed; everything else is a property of the event itself.
func IsFatal(err error) bool {
	return errors.Is(err, chain.ErrUnavailable) ||
		errors.Is(err, storage.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// failureReason labels a skipped event for metrics.
func failureReason(err error) string {
	switch {
	case chain.IsReverted(err):
		return "reverted"
	case errors.Is(err, contracts.ErrDecode), errors.Is(err, contracts.ErrUnexpectedEvent):
		return "decode"
	case errors.Is(err, contracts.ErrNoData):
		return "no_data"
	case errors.Is(err, entities.ErrMissing):
		return "missing_entity"
	case errors.Is(err, chain.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}

type routeKey struct {
	template string
	topic    common.Hash
}

// Options configures an Indexer.
type Options struct {
	Store  storage.EntityStore
	Routes []mappings.Route
	Book   *AddressBook
	Logger *zap.Logger
}

// Indexer routes logs to handlers and commits their effects.
type Indexer struct {
	store  storage.EntityStore
	routes map[routeKey]mappings.Route
	book   *AddressBook
	logger *zap.Logger
}

// New creates an Indexer.
func New(opts Options) *Indexer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	book := opts.Book
	if book == nil {
		book = NewAddressBook()
	}
	routes := make(map[routeKey]mappings.Route, len(opts.Routes))
	for _, r := range opts.Routes {
		routes[routeKey{template: r.Template, topic: r.Topic}] = r
	}
	return &Indexer{
		store:  opts.Store,
		routes: routes,
		book:   book,
		logger: logger,
	}
}

// Book returns the address book.
func (ix *Indexer) Book() *AddressBook {
	return ix.book
}

// Topics returns every routed event signature.
func (ix *Indexer) Topics() []common.Hash {
	seen := make(map[common.Hash]bool, len(ix.routes))
	out := make([]common.Hash, 0, len(ix.routes))
	for k := range ix.routes {
		if !seen[k.topic] {
			seen[k.topic] = true
			out = append(out, k.topic)
		}
	}
	return out
}

// Resume loads persisted dynamic addresses into the book and returns the
// first block that still needs indexing. start is used when nothing has
// been committed.
func (ix *Indexer) Resume(ctx context.Context, start uint64) (uint64, error) {
	tracked, err := ix.store.LoadTrackedAddresses(ctx)
	if err != nil {
		return 0, fmt.Errorf("load tracked addresses: %w", err)
	}
	for _, t := range tracked {
		ix.book.Add(common.HexToAddress(t.Address), t.Template)
	}
	observability.UpdateTrackedAddresses(ix.book.Len())

	cursor, err := ix.store.GetCursor(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		ix.logger.Info("no cursor, starting fresh", zap.Uint64("block", start))
		return start, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	next := cursor.Block + 1
	if next < start {
		next = start
	}
	ix.logger.Info("resuming",
		zap.Uint64("cursor", cursor.Block),
		zap.Uint64("next", next),
		zap.Int("tracked", len(tracked)),
	)
	return next, nil
}

// NewBatch starts a unit of work over the store.
func (ix *Indexer) NewBatch() *Batch {
	return &Batch{
		ix:      ix,
		overlay: storage.NewOverlay(ix.store),
		pending: make(map[common.Address]string),
	}
}

// ProcessLogs applies ordered logs as one batch and commits it with the
// cursor at block.
func (ix *Indexer) ProcessLogs(ctx context.Context, logs []chain.Log, block uint64) error {
	batch := ix.NewBatch()
	for _, l := range logs {
		if _, err := batch.Apply(ctx, l); err != nil {
			return err
		}
	}
	return batch.Commit(ctx, block)
}

// Batch accumulates the effects of consecutive events until Commit.
type Batch struct {
	ix      *Indexer
	overlay *storage.Overlay
	tracked []storage.TrackedAddress
	pending map[common.Address]string

	applied int
	failed  int
	skipped int
}

// BatchStats counts what a batch did with its logs.
type BatchStats struct {
	Applied   int
	Failed    int
	Skipped   int
	Documents int
	Tracked   int
}

// Stats returns the batch counters.
func (b *Batch) Stats() BatchStats {
	return BatchStats{
		Applied:   b.applied,
		Failed:    b.failed,
		Skipped:   b.skipped,
		Documents: b.overlay.Len(),
		Tracked:   len(b.tracked),
	}
}

func (b *Batch) template(addr common.Address) (string, bool) {
	if t, ok := b.pending[addr]; ok {
		return t, true
	}
	return b.ix.book.Template(addr)
}

// Apply runs the handler for l. It returns the addresses the handler started
// tracking, whose logs the caller must fetch from l's block on. A handler
// error skips the event unless it is fatal, in which case it is returned.
func (b *Batch) Apply(ctx context.Context, l chain.Log) ([]storage.TrackedAddress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Raw.Removed || len(l.Raw.Topics) == 0 {
		b.skip()
		return nil, nil
	}
	tpl, ok := b.template(l.Raw.Address)
	if !ok {
		b.skip()
		return nil, nil
	}
	route, ok := b.ix.routes[routeKey{template: tpl, topic: l.Raw.Topics[0]}]
	if !ok {
		b.skip()
		return nil, nil
	}

	scope := &eventScope{block: l.Raw.BlockNumber}
	event := storage.NewOverlay(b.overlay)
	start := time.Now()
	err := route.Handle(ctx, mappings.Scope{Store: event, Registrar: scope}, l)
	if err != nil {
		if IsFatal(err) {
			return nil, fmt.Errorf("%s at block %d tx %s: %w", route.Name, l.Raw.BlockNumber, l.Raw.TxHash.Hex(), err)
		}
		b.failed++
		reason := failureReason(err)
		observability.RecordEventFailed(route.Name, reason)
		b.ix.logger.Warn("event skipped",
			zap.String("handler", route.Name),
			zap.String("reason", reason),
			zap.Uint64("block", l.Raw.BlockNumber),
			zap.String("tx", l.Raw.TxHash.Hex()),
			zap.Uint("log_index", l.Raw.Index),
			zap.Error(err),
		)
		return nil, nil
	}

	if err := event.MergeInto(ctx, b.overlay); err != nil {
		return nil, err
	}

	var added []storage.TrackedAddress
	for _, t := range scope.tracked {
		addr := common.HexToAddress(t.Address)
		if _, known := b.template(addr); known {
			continue
		}
		b.pending[addr] = t.Template
		b.tracked = append(b.tracked, t)
		added = append(added, t)
	}

	b.applied++
	observability.RecordEventHandled(route.Name, time.Since(start).Seconds())
	return added, nil
}

func (b *Batch) skip() {
	b.skipped++
	observability.RecordEventSkipped()
}

// Commit writes the batch and the cursor at block, then publishes the newly
// tracked addresses to the book.
func (b *Batch) Commit(ctx context.Context, block uint64) error {
	cs := &storage.Changeset{
		Documents: b.overlay.Documents(),
		Tracked:   b.tracked,
		Cursor:    &storage.Cursor{Block: block, UpdatedAt: time.Now().UTC()},
	}
	if err := b.ix.store.Commit(ctx, cs); err != nil {
		return fmt.Errorf("commit through block %d: %w", block, err)
	}
	for _, t := range b.tracked {
		b.ix.book.Add(common.HexToAddress(t.Address), t.Template)
	}
	observability.RecordCommit(block, len(cs.Documents))
	observability.UpdateTrackedAddresses(b.ix.book.Len())

	stats := b.Stats()
	b.ix.logger.Debug("batch committed",
		zap.Uint64("block", block),
		zap.Int("documents", stats.Documents),
		zap.Int("applied", stats.Applied),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("tracked", stats.Tracked),
	)
	return nil
}

// eventScope collects the addresses one event asks to track.
type eventScope struct {
	block   uint64
	tracked []storage.TrackedAddress
}

func (s *eventScope) Track(addr common.Address, template string) {
	id := ids.Address(addr)
	for _, t := range s.tracked {
		if t.Address == id {
			return
		}
	}
	s.tracked = append(s.tracked, storage.TrackedAddress{
		Address:    id,
		Template:   template,
		StartBlock: s.block,
	})
}
