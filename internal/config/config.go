// Package config resolves command configuration from flags, falling back to
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"core-indexer/internal/mappings"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds the settings shared by the commands.
type Config struct {
	// Chain
	RPCEndpoint   string
	WSEndpoint    string
	RPCTimeout    time.Duration
	RPCMaxRetries int

	// Contracts
	OpsManager    common.Address
	EarlyWithdraw common.Address
	PriceFeed     common.Address
	ProtocolToken common.Address
	Pairs         []common.Address

	// Indexing
	StartBlock    uint64
	EndBlock      uint64 // 0 follows the chain head
	ChunkSize     uint64
	Confirmations uint64
	PollInterval  time.Duration
	ArchivePath   string

	// Storage
	Store         string
	PostgresDSN   string
	ClickhouseDSN string // optional analytics mirror

	// Service
	HTTPAddr       string
	VerifySchedule string // cron spec with seconds; empty disables
	LogLevel       string
	LogEncoding    string
	ReportFormat   string // json, markdown or csv
}

// Load reads the .env file at envFile (missing is fine), then parses args
// with environment values as flag defaults.
func Load(name, envFile string, args []string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg := &Config{}
	var opsManager, earlyWithdraw, priceFeed, protocolToken, pairs string

	fset.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", getEnv("RPC_ENDPOINT", ""), "EVM JSON-RPC HTTP endpoint")
	fset.StringVar(&cfg.WSEndpoint, "ws-endpoint", getEnv("WS_ENDPOINT", ""), "EVM WebSocket endpoint (optional, enables newHeads)")
	fset.DurationVar(&cfg.RPCTimeout, "rpc-timeout", getEnvDuration("RPC_TIMEOUT", 30*time.Second), "RPC request timeout")
	fset.IntVar(&cfg.RPCMaxRetries, "rpc-max-retries", getEnvInt("RPC_MAX_RETRIES", 3), "RPC retries on transport errors")

	fset.StringVar(&opsManager, "ops-manager", getEnv("OPS_MANAGER_ADDRESS", ""), "OpsManager contract address")
	fset.StringVar(&earlyWithdraw, "early-withdraw", getEnv("EARLY_WITHDRAW_ADDRESS", ""), "EarlyWithdraw contract address (optional)")
	fset.StringVar(&priceFeed, "price-feed", getEnv("PRICE_FEED_ADDRESS", ""), "Price feed aggregator address")
	fset.StringVar(&protocolToken, "protocol-token", getEnv("PROTOCOL_TOKEN_ADDRESS", ""), "Token recorded on positions (optional, defaults to each vault's token)")
	fset.StringVar(&pairs, "pairs", getEnv("PAIR_ADDRESSES", ""), "Comma-separated AMM pair addresses (optional)")

	fset.Uint64Var(&cfg.StartBlock, "start-block", getEnvUint("START_BLOCK", 0), "First block to index")
	fset.Uint64Var(&cfg.EndBlock, "end-block", getEnvUint("END_BLOCK", 0), "Last block to index (0 follows the head)")
	fset.Uint64Var(&cfg.ChunkSize, "chunk-size", getEnvUint("CHUNK_SIZE", 2000), "Blocks per eth_getLogs request and batch")
	fset.Uint64Var(&cfg.Confirmations, "confirmations", getEnvUint("CONFIRMATIONS", 12), "Blocks behind head considered final")
	fset.DurationVar(&cfg.PollInterval, "poll-interval", getEnvDuration("POLL_INTERVAL", 12*time.Second), "Head polling interval")
	fset.StringVar(&cfg.ArchivePath, "archive", getEnv("ARCHIVE_PATH", ""), "JSON-lines log archive path")

	fset.StringVar(&cfg.Store, "store", getEnv("STORE", StorePostgres), "Entity store backend: memory or postgres")
	fset.StringVar(&cfg.PostgresDSN, "postgres-dsn", getEnv("POSTGRES_DSN", ""), "PostgreSQL connection string")
	fset.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", getEnv("CLICKHOUSE_DSN", ""), "ClickHouse connection string for the analytics mirror (optional)")

	fset.StringVar(&cfg.HTTPAddr, "http-addr", getEnv("HTTP_ADDR", ":9090"), "Read API and metrics address")
	fset.StringVar(&cfg.VerifySchedule, "verify-schedule", getEnv("VERIFY_SCHEDULE", "0 */15 * * * *"), "Cron schedule for invariant checks (empty disables)")
	fset.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level")
	fset.StringVar(&cfg.LogEncoding, "log-encoding", getEnv("LOG_ENCODING", "json"), "Log encoding: json or console")
	fset.StringVar(&cfg.ReportFormat, "report-format", getEnv("REPORT_FORMAT", "json"), "Verification report format: json, markdown or csv")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.OpsManager, err = parseAddress("ops-manager", opsManager); err != nil {
		return nil, err
	}
	if cfg.EarlyWithdraw, err = parseAddress("early-withdraw", earlyWithdraw); err != nil {
		return nil, err
	}
	if cfg.PriceFeed, err = parseAddress("price-feed", priceFeed); err != nil {
		return nil, err
	}
	if cfg.ProtocolToken, err = parseAddress("protocol-token", protocolToken); err != nil {
		return nil, err
	}
	for _, p := range splitList(pairs) {
		addr, err := parseAddress("pairs", p)
		if err != nil {
			return nil, err
		}
		cfg.Pairs = append(cfg.Pairs, addr)
	}
	return cfg, nil
}

// ValidateStore checks the storage settings.
func (c *Config) ValidateStore() error {
	switch c.Store {
	case StoreMemory:
		return nil
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("--postgres-dsn is required (use --store memory for in-memory storage)")
		}
		return nil
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
}

// ValidateChain checks the settings needed to index.
func (c *Config) ValidateChain() error {
	if c.RPCEndpoint == "" {
		return errors.New("--rpc-endpoint is required")
	}
	if c.OpsManager == (common.Address{}) {
		return errors.New("--ops-manager is required")
	}
	if c.PriceFeed == (common.Address{}) {
		return errors.New("--price-feed is required")
	}
	if c.ChunkSize == 0 {
		return errors.New("--chunk-size must be positive")
	}
	if c.EndBlock != 0 && c.EndBlock < c.StartBlock {
		return fmt.Errorf("--end-block %d is before --start-block %d", c.EndBlock, c.StartBlock)
	}
	return c.ValidateStore()
}

// StaticContracts maps the configured contract addresses to their handler
// templates. Unset optional addresses are left out.
func (c *Config) StaticContracts() map[common.Address]string {
	out := make(map[common.Address]string)
	add := func(addr common.Address, template string) {
		if addr != (common.Address{}) {
			out[addr] = template
		}
	}
	add(c.OpsManager, mappings.TemplateOpsManager)
	add(c.EarlyWithdraw, mappings.TemplateEarlyWithdraw)
	add(c.PriceFeed, mappings.TemplatePriceFeed)
	for _, p := range c.Pairs {
		add(p, mappings.TemplatePair)
	}
	return out
}

func parseAddress(flagName, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("--%s: invalid address %q", flagName, s)
	}
	return common.HexToAddress(s), nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvUint(key string, fallback uint64) uint64 {
	if v, err := strconv.ParseUint(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
