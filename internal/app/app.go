// Package app wires configured components together for the commands.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"core-indexer/internal/chain"
	"core-indexer/internal/config"
	"core-indexer/internal/contracts"
	"core-indexer/internal/indexer"
	"core-indexer/internal/mappings"
	"core-indexer/internal/prices"
	"core-indexer/internal/storage"
	chstore "core-indexer/internal/storage/clickhouse"
	"core-indexer/internal/storage/memory"
	"core-indexer/internal/storage/migrations"
	pgstore "core-indexer/internal/storage/postgres"
)

const (
	postgresMaxConns     = 8
	postgresConnLifetime = 30 * time.Minute
)

// OpenStore opens the configured entity store, applying migrations, and
// mirrors commits to ClickHouse when a DSN is set. The returned function
// releases connections.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.EntityStore, func(), error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}

	var (
		primary storage.EntityStore
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store {
	case config.StoreMemory:
		primary = storage.NewInstrumented(memory.NewEntityStore(), "memory")
	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN,
			pgstore.WithMaxConns(postgresMaxConns),
			pgstore.WithConnLifetime(postgresConnLifetime),
		)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		primary = storage.NewInstrumented(pgstore.NewEntityStore(pool), "postgres")
	}

	if cfg.ClickhouseDSN == "" {
		return primary, cleanup, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	closers = append(closers, func() { _ = conn.Close() })
	analytics := storage.NewInstrumented(chstore.NewEntityStore(conn), "clickhouse")
	logger.Info("mirroring commits to clickhouse")
	return storage.NewMirror(primary, analytics, logger), cleanup, nil
}

// NewChainClient creates the JSON-RPC client.
func NewChainClient(cfg *config.Config, logger *zap.Logger) *chain.HTTPClient {
	opts := []chain.ClientOption{
		chain.WithMaxRetries(cfg.RPCMaxRetries),
		chain.WithLogger(logger),
	}
	if cfg.RPCTimeout > 0 {
		opts = append(opts, chain.WithTimeout(cfg.RPCTimeout))
	}
	return chain.NewHTTPClient(cfg.RPCEndpoint, opts...)
}

// NewIndexer builds the handler registry and an indexer whose address book
// holds the configured static contracts.
func NewIndexer(ctx context.Context, cfg *config.Config, client *chain.HTTPClient, store storage.EntityStore, logger *zap.Logger) (*indexer.Indexer, error) {
	reader := contracts.NewReader(client)

	oracle := prices.NewOracle(reader, cfg.PriceFeed)
	decimals, err := reader.FeedDecimals(ctx, cfg.PriceFeed, nil)
	switch {
	case err == nil:
		oracle = oracle.WithDecimals(int32(decimals))
	case contracts.IsCallFailure(err):
		logger.Warn("price feed has no decimals(), assuming default",
			zap.Int32("decimals", prices.FeedDecimals),
			zap.Error(err),
		)
	default:
		return nil, fmt.Errorf("read price feed decimals: %w", err)
	}

	handlers := mappings.New(reader, oracle, client, mappings.Options{
		ProtocolToken: cfg.ProtocolToken,
		Logger:        logger,
	})

	book := indexer.NewAddressBook()
	for addr, template := range cfg.StaticContracts() {
		book.Add(addr, template)
		logger.Info("tracking contract", zap.String("address", addr.Hex()), zap.String("template", template))
	}
	return indexer.New(indexer.Options{
		Store:  store,
		Routes: handlers.Routes(),
		Book:   book,
		Logger: logger,
	}), nil
}
