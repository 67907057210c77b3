package domain

import "math/big"

// Entity kinds. The kind is the first half of an entity's storage key.
const (
	KindMetric                 = "Metric"
	KindMetricDayData          = "MetricDayData"
	KindOpsManager             = "OpsManager"
	KindToken                  = "Token"
	KindUser                   = "User"
	KindUserDayData            = "UserDayData"
	KindVault                  = "Vault"
	KindVaultHourData          = "VaultHourData"
	KindVaultGroup             = "VaultGroup"
	KindVaultGroupDayData      = "VaultGroupDayData"
	KindVaultGroupHourData     = "VaultGroupHourData"
	KindVaultUserBalance       = "VaultUserBalance"
	KindExposure               = "Exposure"
	KindTreasuryFarmingRevenue = "TreasuryFarmingRevenue"
	KindPair                   = "Pair"
	KindDeposit                = "Deposit"
	KindWithdraw               = "Withdraw"
)

// Singleton identifiers.
const (
	MetricID     = "metric"
	OpsManagerID = "ops-manager"
)

// Entity is a persisted record addressed by (Kind, EntityID).
// Kind must be answerable on a zero value.
type Entity interface {
	Kind() string
	EntityID() string
}

// Kinds lists every entity kind in dependency-free order.
func Kinds() []string {
	return []string{
		KindMetric, KindMetricDayData, KindOpsManager, KindToken,
		KindUser, KindUserDayData, KindVault, KindVaultHourData,
		KindVaultGroup, KindVaultGroupDayData, KindVaultGroupHourData,
		KindVaultUserBalance, KindExposure, KindTreasuryFarmingRevenue,
		KindPair, KindDeposit, KindWithdraw,
	}
}

// IsKind reports whether kind names a known entity kind.
func IsKind(kind string) bool {
	for _, k := range Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

var one = big.NewInt(1)

// NewCount returns a zero counter.
func NewCount() *big.Int {
	return new(big.Int)
}

// Inc returns n+1 without mutating n. A nil n counts as zero.
func Inc(n *big.Int) *big.Int {
	return new(big.Int).Add(countOrZero(n), one)
}

// Dec returns n-1 without mutating n. A nil n counts as zero.
func Dec(n *big.Int) *big.Int {
	return new(big.Int).Sub(countOrZero(n), one)
}

func countOrZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}

// AppendUnique appends id to ids unless it is already present.
func AppendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
