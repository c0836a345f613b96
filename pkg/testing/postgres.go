package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/2beens/gymstreak/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

const testDBName = "gymstreak"

// GetPostgresPool starts a throwaway postgres container, applies the schema
// and returns a pool connected to it. The container is removed on test cleanup.
func GetPostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dockerPool, err := dockertest.NewPool("")
	require.NoError(t, err)
	require.NoError(t, dockerPool.Client.Ping())

	pgResource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=" + testDBName,
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := dockerPool.Purge(pgResource); err != nil {
			t.Logf("postgres teardown: %s", err)
		}
	})
	// hard stop, in case the test binary dies
	require.NoError(t, pgResource.Expire(120))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var pool *pgxpool.Pool
	err = dockerPool.Retry(func() error {
		var err error
		pool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost: "localhost",
			DBPort: pgResource.GetPort("5432/tcp"),
			DBName: testDBName,
		})
		if err != nil {
			return err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, db.Schema)
	require.NoError(t, err)

	return pool
}
