// Package entities implements get-or-create and update accessors for every
// indexed entity, including the time-bucketed snapshots they write.
//
// A Repo is scoped to a single event: it reads and writes through the
// event's overlay and pins every contract read to the event's block.
package entities

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"core-indexer/internal/contracts"
	"core-indexer/internal/domain"
	"core-indexer/internal/storage"
)

// ErrMissing is returned when an entity that must already exist does not.
var ErrMissing = errors.New("entity missing")

// ContractReader performs the static contract reads accessors need.
// contracts.Reader satisfies it.
type ContractReader interface {
	VaultMetadata(ctx context.Context, vault common.Address, block *big.Int) (*contracts.VaultMetadata, error)
	VaultShares(ctx context.Context, vault common.Address, block *big.Int) (*contracts.VaultShares, error)
	ExposureMetadata(ctx context.Context, exposure common.Address, block *big.Int) (*contracts.ExposureMetadata, error)
	FarmingRevenueTotalShares(ctx context.Context, revenue common.Address, block *big.Int) (*big.Int, error)
	TryLifetimeAccRevenueScaledByShare(ctx context.Context, revenue common.Address, block *big.Int) (*big.Int, bool, error)
}

// Repo gives handlers typed access to the entity store.
type Repo struct {
	rw     storage.ReadWriter
	reader ContractReader
	block  *big.Int
}

// NewRepo creates a Repo over rw with contract reads pinned at block.
func NewRepo(rw storage.ReadWriter, reader ContractReader, block uint64) *Repo {
	return &Repo{
		rw:     rw,
		reader: reader,
		block:  new(big.Int).SetUint64(block),
	}
}

// Block returns the block contract reads are pinned to.
func (r *Repo) Block() *big.Int {
	return new(big.Int).Set(r.block)
}

func (r *Repo) load(ctx context.Context, id string, dst domain.Entity) (bool, error) {
	return storage.LoadEntity(ctx, r.rw, id, dst)
}

func (r *Repo) mustLoad(ctx context.Context, id string, dst domain.Entity) error {
	found, err := r.load(ctx, id, dst)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s %s", ErrMissing, dst.Kind(), id)
	}
	return nil
}

func (r *Repo) save(ctx context.Context, e domain.Entity) error {
	return storage.SaveEntity(ctx, r.rw, e)
}
