// Package ids builds the deterministic entity identifiers.
package ids

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address returns the canonical lower-case hex id of an address.
func Address(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// Tx returns the id of a transaction-keyed record.
func Tx(hash common.Hash) string {
	return hash.Hex()
}

// VaultUserBalance keys a user's position in a vault.
func VaultUserBalance(vaultID, userID string) string {
	return vaultID + userID
}

// Bucketed keys a snapshot of entityID within the given time bucket.
func Bucketed(bucket, entityID string) string {
	return bucket + entityID
}
