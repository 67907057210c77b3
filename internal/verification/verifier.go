// Package verification checks the aggregate invariants of an entity store:
// user balances equal the sum of their positions, vault user counts match
// positions holding a stake, TVLs match their inputs and protocol counters
// match the number of entities they count.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"core-indexer/internal/domain"
	"core-indexer/internal/observability"
	"core-indexer/internal/storage"
)

// Check names.
const (
	CheckUserBalance    = "user_balance"
	CheckVaultUserCount = "vault_user_count"
	CheckVaultTVL       = "vault_tvl"
	CheckGroupTVL       = "group_tvl"
	CheckMetricCounts   = "metric_counts"
)

// Violation is one entity field that breaks an invariant.
type Violation struct {
	Check    string `json:"check"`
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Report is the outcome of a verification run.
type Report struct {
	Cursor     uint64         `json:"cursor"`
	Entities   map[string]int `json:"entities"` // kind -> count
	Checks     map[string]int `json:"checks"`   // check -> entities examined
	Violations []Violation    `json:"violations"`
	Duration   time.Duration  `json:"duration"`
}

// OK reports whether no invariant was violated.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// ViolationsByCheck counts violations per check.
func (r *Report) ViolationsByCheck() map[string]int {
	out := make(map[string]int)
	for _, v := range r.Violations {
		out[v.Check]++
	}
	return out
}

// Store is the read surface verification needs.
type Store interface {
	List(ctx context.Context, kind string) ([]storage.Document, error)
	GetCursor(ctx context.Context) (*storage.Cursor, error)
}

// Options configures a Verifier.
type Options struct {
	Workers int // Default: 4
	Logger  *zap.Logger
}

// Verifier runs every check against a store snapshot.
type Verifier struct {
	store   Store
	workers int
	logger  *zap.Logger
}

// New creates a Verifier.
func New(store Store, opts Options) *Verifier {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{store: store, workers: workers, logger: logger}
}

var snapshotKinds = []string{
	domain.KindMetric,
	domain.KindToken,
	domain.KindUser,
	domain.KindVault,
	domain.KindVaultGroup,
	domain.KindVaultUserBalance,
	domain.KindExposure,
	domain.KindTreasuryFarmingRevenue,
	domain.KindPair,
}

// Verify loads a snapshot of the store and runs every check in parallel.
func (v *Verifier) Verify(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		Entities: make(map[string]int),
		Checks:   make(map[string]int),
	}

	cursor, err := v.store.GetCursor(ctx)
	switch {
	case err == nil:
		report.Cursor = cursor.Block
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("load cursor: %w", err)
	}

	snap, err := v.load(ctx)
	if err != nil {
		return nil, err
	}
	for kind, docs := range snap.docs {
		report.Entities[kind] = len(docs)
	}

	checks := []struct {
		name string
		run  func(*snapshot) (int, []Violation)
	}{
		{CheckUserBalance, checkUserBalances},
		{CheckVaultUserCount, checkVaultUserCounts},
		{CheckVaultTVL, checkVaultTVLs},
		{CheckGroupTVL, checkGroupTVLs},
		{CheckMetricCounts, checkMetricCounts},
	}
	examined := make([]int, len(checks))
	found := make([][]Violation, len(checks))

	pool := pond.NewPool(v.workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, c := range checks {
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			examined[i], found[i] = c.run(snap)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("run checks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, c := range checks {
		report.Checks[c.name] = examined[i]
		report.Violations = append(report.Violations, found[i]...)
	}
	sort.SliceStable(report.Violations, func(i, j int) bool {
		a, b := report.Violations[i], report.Violations[j]
		if a.Check != b.Check {
			return a.Check < b.Check
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Field < b.Field
	})
	report.Duration = time.Since(start)

	status := "ok"
	if !report.OK() {
		status = "violated"
	}
	byCheck := report.ViolationsByCheck()
	for name := range report.Checks {
		byCheck[name] += 0
	}
	observability.RecordVerification(status, byCheck)
	v.logger.Info("verification complete",
		zap.String("status", status),
		zap.Uint64("cursor", report.Cursor),
		zap.Int("violations", len(report.Violations)),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// load lists every snapshot kind concurrently.
func (v *Verifier) load(ctx context.Context) (*snapshot, error) {
	results := make([][]storage.Document, len(snapshotKinds))
	errs := make([]error, len(snapshotKinds))

	pool := pond.NewPool(v.workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, kind := range snapshotKinds {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = v.store.List(groupCtx, kind)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap := &snapshot{docs: make(map[string][]storage.Document, len(snapshotKinds))}
	for i, kind := range snapshotKinds {
		if errs[i] != nil {
			return nil, fmt.Errorf("list %s: %w", kind, errs[i])
		}
		snap.docs[kind] = results[i]
	}
	if err := snap.decode(); err != nil {
		return nil, err
	}
	return snap, nil
}

// snapshot holds the decoded entities the checks read.
type snapshot struct {
	docs map[string][]storage.Document

	metric   *domain.Metric
	users    []*domain.User
	vaults   []*domain.Vault
	groups   []*domain.VaultGroup
	balances map[string]*domain.VaultUserBalance
}

func (s *snapshot) decode() error {
	var err error
	if s.users, err = decodeAll[domain.User](s.docs[domain.KindUser]); err != nil {
		return err
	}
	if s.vaults, err = decodeAll[domain.Vault](s.docs[domain.KindVault]); err != nil {
		return err
	}
	if s.groups, err = decodeAll[domain.VaultGroup](s.docs[domain.KindVaultGroup]); err != nil {
		return err
	}
	balances, err := decodeAll[domain.VaultUserBalance](s.docs[domain.KindVaultUserBalance])
	if err != nil {
		return err
	}
	s.balances = make(map[string]*domain.VaultUserBalance, len(balances))
	for _, b := range balances {
		s.balances[b.ID] = b
	}
	metrics, err := decodeAll[domain.Metric](s.docs[domain.KindMetric])
	if err != nil {
		return err
	}
	for _, m := range metrics {
		if m.ID == domain.MetricID {
			s.metric = m
		}
	}
	return nil
}

func decodeAll[T any](docs []storage.Document) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, d := range docs {
		v := new(T)
		if err := json.Unmarshal(d.Data, v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", d.Kind, d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
