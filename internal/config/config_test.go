package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"core-indexer/internal/mappings"
)

const (
	opsHex  = "0x0000000000000000000000000000000000000F00"
	feedHex = "0x0000000000000000000000000000000000000fee"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("test", "", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(2000), cfg.ChunkSize)
	assert.Equal(t, uint64(12), cfg.Confirmations)
	assert.Equal(t, 12*time.Second, cfg.PollInterval)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.ReportFormat)
	assert.Equal(t, "0 */15 * * * *", cfg.VerifySchedule)
	assert.Error(t, cfg.ValidateChain())
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("OPS_MANAGER_ADDRESS", opsHex)
	t.Setenv("PRICE_FEED_ADDRESS", feedHex)
	t.Setenv("RPC_ENDPOINT", "http://node:8545")
	t.Setenv("START_BLOCK", "100")
	t.Setenv("PAIR_ADDRESSES", "0x0000000000000000000000000000000000000a11, 0x0000000000000000000000000000000000000a12")

	cfg, err := Load("test", "", []string{"--start-block", "250", "--store", "memory", "--poll-interval", "3s"})
	require.NoError(t, err)

	assert.Equal(t, uint64(250), cfg.StartBlock, "flags override env")
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, common.HexToAddress(opsHex), cfg.OpsManager)
	assert.Len(t, cfg.Pairs, 2)
	require.NoError(t, cfg.ValidateChain())

	contracts := cfg.StaticContracts()
	assert.Len(t, contracts, 4)
	assert.Equal(t, mappings.TemplateOpsManager, contracts[cfg.OpsManager])
	assert.Equal(t, mappings.TemplatePriceFeed, contracts[cfg.PriceFeed])
	assert.Equal(t, mappings.TemplatePair, contracts[cfg.Pairs[0]])
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHUNK_SIZE=77\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CHUNK_SIZE")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load("test", path, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), cfg.ChunkSize)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = Load("test", filepath.Join(dir, "missing.env"), nil)
	assert.NoError(t, err)
}

func TestLoad_InvalidAddress(t *testing.T) {
	_, err := Load("test", "", []string{"--ops-manager", "0x123"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		RPCEndpoint: "http://node",
		OpsManager:  common.HexToAddress(opsHex),
		PriceFeed:   common.HexToAddress(feedHex),
		ChunkSize:   10,
		Store:       StorePostgres,
	}
	assert.Error(t, cfg.ValidateChain(), "postgres needs a dsn")

	cfg.PostgresDSN = "postgres://localhost/db"
	assert.NoError(t, cfg.ValidateChain())

	cfg.StartBlock, cfg.EndBlock = 10, 5
	assert.Error(t, cfg.ValidateChain())

	cfg.EndBlock = 0
	cfg.Store = "sqlite"
	assert.Error(t, cfg.ValidateStore())
}
