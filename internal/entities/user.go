package entities

import (
	"context"

	"github.com/shopspring/decimal"

	"core-indexer/internal/dates"
	"core-indexer/internal/domain"
	"core-indexer/internal/ids"
)

// GetOrCreateUser loads the user, creating it and counting it on first
// reference.
func (r *Repo) GetOrCreateUser(ctx context.Context, id string, ts uint64) (*domain.User, error) {
	u := &domain.User{}
	found, err := r.load(ctx, id, u)
	if err != nil {
		return nil, err
	}
	if found {
		return u, nil
	}

	u = &domain.User{
		ID:                id,
		DepositsBalance:   decimal.Zero,
		WithdrawsBalance:  decimal.Zero,
		TotalBalance:      decimal.Zero,
		VaultUserBalances: []string{},
		Timestamp:         ts,
	}
	if err := r.bumpMetric(ctx, ts, func(m *domain.Metric) {
		m.UserCount = domain.Inc(m.UserCount)
	}); err != nil {
		return nil, err
	}
	if err := r.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser persists u and overwrites its day snapshot.
func (r *Repo) UpdateUser(ctx context.Context, u *domain.User, ts uint64) error {
	u.Timestamp = ts
	if err := r.save(ctx, u); err != nil {
		return err
	}

	day := &domain.UserDayData{}
	id := ids.Bucketed(dates.DayFromTimestamp(ts), u.ID)
	if _, err := r.load(ctx, id, day); err != nil {
		return err
	}
	day.ID = id
	day.User = u.ID
	day.DepositsBalance = u.DepositsBalance
	day.WithdrawsBalance = u.WithdrawsBalance
	day.TotalBalance = u.TotalBalance
	day.Timestamp = ts
	return r.save(ctx, day)
}
