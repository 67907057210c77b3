package indexer

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
)

// AddressBook maps every tracked contract to its handler template. It is
// read by the API while the indexer writes it.
type AddressBook struct {
	entries *xsync.Map[common.Address, string]
}

// NewAddressBook creates an empty AddressBook.
func NewAddressBook() *AddressBook {
	return &AddressBook{entries: xsync.NewMap[common.Address, string]()}
}

// Add binds addr to template. The first binding wins; Add reports whether
// addr was new.
func (b *AddressBook) Add(addr common.Address, template string) bool {
	_, loaded := b.entries.LoadOrStore(addr, template)
	return !loaded
}

// Template returns the template addr is bound to.
func (b *AddressBook) Template(addr common.Address) (string, bool) {
	return b.entries.Load(addr)
}

// Addresses returns every tracked address in byte order.
func (b *AddressBook) Addresses() []common.Address {
	out := make([]common.Address, 0, b.entries.Size())
	b.entries.Range(func(addr common.Address, _ string) bool {
		out = append(out, addr)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Snapshot returns a copy of the bindings.
func (b *AddressBook) Snapshot() map[common.Address]string {
	out := make(map[common.Address]string, b.entries.Size())
	b.entries.Range(func(addr common.Address, template string) bool {
		out[addr] = template
		return true
	})
	return out
}

// Len returns the number of tracked addresses.
func (b *AddressBook) Len() int {
	return b.entries.Size()
}
