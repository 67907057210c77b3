package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// One container serves the whole package; tests reset the tables instead.
var shared struct {
	once      sync.Once
	container *postgres.PostgresContainer
	pool      *Pool
	err       error
}

func TestMain(m *testing.M) {
	code := m.Run()
	if shared.pool != nil {
		shared.pool.Close()
	}
	if shared.container != nil {
		_ = shared.container.Terminate(context.Background())
	}
	os.Exit(code)
}

// setupTestDB returns a pool on a migrated database with empty tables. The
// returned function clears what the test wrote.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	shared.once.Do(func() {
		shared.container, shared.pool, shared.err = startPostgres()
	})
	require.NoError(t, shared.err, "postgres container")

	reset := func() {
		_, err := shared.pool.Exec(context.Background(),
			"TRUNCATE entities, indexer_cursor, tracked_addresses")
		require.NoError(t, err, "truncate tables")
	}
	reset()
	return shared.pool, reset
}

func startPostgres() (*postgres.PostgresContainer, *Pool, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("indexer"),
		postgres.WithUsername("indexer"),
		postgres.WithPassword("indexer"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, nil, err
	}
	pool, err := NewPool(ctx, dsn, WithMaxConns(4))
	if err != nil {
		return container, nil, err
	}
	if err := applySchema(ctx, pool); err != nil {
		return container, pool, err
	}
	return container, pool, nil
}

// applySchema executes the migration files in name order. The migrations
// package depends on this one, so the files are read from disk.
func applySchema(ctx context.Context, pool *Pool) error {
	files, err := filepath.Glob(filepath.Join("..", "migrations", "postgres", "*.sql"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found")
	}
	sort.Strings(files)
	for _, f := range files {
		sql, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}
