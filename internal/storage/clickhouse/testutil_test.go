package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var shared struct {
	once      sync.Once
	container testcontainers.Container
	conn      *Conn
	err       error
}

func TestMain(m *testing.M) {
	code := m.Run()
	if shared.conn != nil {
		_ = shared.conn.Close()
	}
	if shared.container != nil {
		_ = shared.container.Terminate(context.Background())
	}
	os.Exit(code)
}

// setupTestDB returns a connection to a migrated database with an empty
// entities table. All tests in the package share one container.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	shared.once.Do(func() {
		shared.container, shared.conn, shared.err = startClickhouse()
	})
	require.NoError(t, shared.err, "clickhouse container")

	reset := func() {
		require.NoError(t, shared.conn.Exec(context.Background(), "TRUNCATE TABLE entities"))
	}
	reset()
	return shared.conn, reset
}

func startClickhouse() (testcontainers.Container, *Conn, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":       "indexer",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, nil, err
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		return container, nil, err
	}

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/indexer", host, port.Port()))
	if err != nil {
		return container, nil, err
	}
	if err := applySchema(ctx, conn); err != nil {
		return container, conn, err
	}
	return container, conn, nil
}

// applySchema runs the migration files from disk, one statement per Exec.
// The migrations package imports this one, so it cannot be used here.
func applySchema(ctx context.Context, conn *Conn) error {
	files, err := filepath.Glob(filepath.Join("..", "migrations", "clickhouse", "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		for _, stmt := range strings.Split(stripComments(string(data)), ";") {
			if stmt = strings.TrimSpace(stmt); stmt == "" {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", filepath.Base(f), err)
			}
		}
	}
	return nil
}

func stripComments(sql string) string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
