package verification

import (
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"core-indexer/internal/domain"
	"core-indexer/internal/entities"
)

func violation(check, kind, id, field, expected, actual string) Violation {
	return Violation{Check: check, Kind: kind, ID: id, Field: field, Expected: expected, Actual: actual}
}

// checkUserBalances: a user's total balance equals the sum of its stakes.
func checkUserBalances(s *snapshot) (int, []Violation) {
	var out []Violation
	for _, u := range s.users {
		sum := decimal.Zero
		for _, id := range u.VaultUserBalances {
			b, ok := s.balances[id]
			if !ok {
				out = append(out, violation(CheckUserBalance, domain.KindUser, u.ID, "vaultUserBalances", id, "missing"))
				continue
			}
			if b.Staked.IsNegative() {
				out = append(out, violation(CheckUserBalance, domain.KindVaultUserBalance, b.ID, "staked", ">= 0", b.Staked.String()))
			}
			sum = sum.Add(b.Staked)
		}
		if !u.TotalBalance.Equal(sum) {
			out = append(out, violation(CheckUserBalance, domain.KindUser, u.ID, "totalBalance", sum.String(), u.TotalBalance.String()))
		}
	}
	return len(s.users), out
}

// checkVaultUserCounts: a vault's user count equals its positions with a stake.
func checkVaultUserCounts(s *snapshot) (int, []Violation) {
	holders := make(map[string]int64)
	for _, b := range s.balances {
		if b.Staked.IsPositive() {
			holders[b.Vault]++
		}
	}
	var out []Violation
	for _, v := range s.vaults {
		want := big.NewInt(holders[v.ID])
		got := v.UserCount
		if got == nil {
			got = domain.NewCount()
		}
		if got.Cmp(want) != 0 {
			out = append(out, violation(CheckVaultUserCount, domain.KindVault, v.ID, "userCount", want.String(), got.String()))
		}
	}
	return len(s.vaults), out
}

// checkVaultTVLs: tvl = totalShares x shareBoostFactor x amountPerShare.
func checkVaultTVLs(s *snapshot) (int, []Violation) {
	var out []Violation
	for _, v := range s.vaults {
		want := entities.VaultTVL(v.TotalShares, v.ShareBoostFactor, v.AmountPerShare)
		if !v.TVL.Equal(want) {
			out = append(out, violation(CheckVaultTVL, domain.KindVault, v.ID, "tvl", want.String(), v.TVL.String()))
		}
	}
	return len(s.vaults), out
}

// checkGroupTVLs: a group's tvl is the sum of its member vaults.
func checkGroupTVLs(s *snapshot) (int, []Violation) {
	byID := make(map[string]*domain.Vault, len(s.vaults))
	for _, v := range s.vaults {
		byID[v.ID] = v
	}
	var out []Violation
	for _, g := range s.groups {
		sum := decimal.Zero
		for _, id := range g.Vaults {
			v, ok := byID[id]
			if !ok {
				out = append(out, violation(CheckGroupTVL, domain.KindVaultGroup, g.ID, "vaults", id, "missing"))
				continue
			}
			sum = sum.Add(v.TVL)
		}
		if !g.TVL.Equal(sum) {
			out = append(out, violation(CheckGroupTVL, domain.KindVaultGroup, g.ID, "tvl", sum.String(), g.TVL.String()))
		}
	}
	return len(s.groups), out
}

// checkMetricCounts: creation counters match the number of entities.
func checkMetricCounts(s *snapshot) (int, []Violation) {
	m := s.metric
	if m == nil {
		m = domain.NewMetric()
	}
	counters := []struct {
		field string
		kind  string
		count *big.Int
	}{
		{"vaultCount", domain.KindVault, m.VaultCount},
		{"vaultGroupCount", domain.KindVaultGroup, m.VaultGroupCount},
		{"userCount", domain.KindUser, m.UserCount},
		{"tokenCount", domain.KindToken, m.TokenCount},
		{"exposureCount", domain.KindExposure, m.ExposureCount},
		{"treasuryFarmingRevenueCount", domain.KindTreasuryFarmingRevenue, m.TFRCount},
		{"pairCount", domain.KindPair, m.PairCount},
	}
	var out []Violation
	for _, c := range counters {
		want := big.NewInt(int64(len(s.docs[c.kind])))
		got := c.count
		if got == nil {
			got = domain.NewCount()
		}
		if got.Cmp(want) != 0 {
			out = append(out, violation(CheckMetricCounts, domain.KindMetric, domain.MetricID, c.field, want.String(), got.String()))
		}
	}
	if len(m.Vaults) != len(s.vaults) {
		out = append(out, violation(CheckMetricCounts, domain.KindMetric, domain.MetricID, "vaults",
			strconv.Itoa(len(s.vaults)), strconv.Itoa(len(m.Vaults))))
	}
	return len(counters), out
}
