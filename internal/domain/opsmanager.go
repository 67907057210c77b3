package domain

// OpsManager is the protocol registry singleton, keyed OpsManagerID.
type OpsManager struct {
	ID                      string   `json:"id"`
	VaultGroups             []string `json:"vaultGroups"`
	Exposures               []string `json:"exposures"`
	TreasuryFarmingRevenues []string `json:"treasuryFarmingRevenues"`
	Timestamp               uint64   `json:"timestamp"`
}

// NewOpsManager returns an empty registry.
func NewOpsManager() *OpsManager {
	return &OpsManager{
		ID:                      OpsManagerID,
		VaultGroups:             []string{},
		Exposures:               []string{},
		TreasuryFarmingRevenues: []string{},
	}
}

func (*OpsManager) Kind() string       { return KindOpsManager }
func (o *OpsManager) EntityID() string { return o.ID }
