package dbbuilder

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func migrationSource() string {
	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "..", "internal", "database", "migrations")
	return "file://" + filepath.ToSlash(dir)
}

// Postgres starts a disposable PostgreSQL container, applies the migrations
// and returns a pool connected to it. The container is purged on cleanup.
// The test is skipped when no Docker daemon is reachable.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker is not available: %v", err)
	}

	container, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=intake",
			"POSTGRES_PASSWORD=intake",
			"POSTGRES_DB=intake",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pool.Purge(container); err != nil {
			t.Logf("failed to purge postgres container: %v", err)
		}
	})
	require.NoError(t, container.Expire(300))

	databaseURL := fmt.Sprintf("postgres://intake:intake@%s/intake?sslmode=disable", container.GetHostPort("5432/tcp"))

	pool.MaxWait = time.Minute
	err = pool.Retry(func() error {
		conn, err := pgx.Connect(context.Background(), databaseURL)
		if err != nil {
			return err
		}
		defer conn.Close(context.Background())
		return conn.Ping(context.Background())
	})
	require.NoError(t, err)

	require.NoError(t, databaseutil.MigrationUp(migrationSource(), databaseURL, zap.NewNop()))

	db, err := pgxpool.New(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}
