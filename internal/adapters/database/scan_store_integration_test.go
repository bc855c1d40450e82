//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zatekoja/medscan/backend/internal/adapters/cache"
	"github.com/zatekoja/medscan/backend/internal/adapters/database"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/postgres"
	redisclient "github.com/zatekoja/medscan/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func startPostgres(t *testing.T, ctx context.Context) *postgres.Client {
	t.Helper()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("medscan_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))

	return postgres.NewClientFromDB(db)
}

func startRedis(t *testing.T, ctx context.Context) *redisclient.Client {
	t.Helper()
	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redisclient.NewClientFromRedis(goredis.NewClient(&goredis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	}))
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx))
	return client
}

func TestScanStore_PostgresWithRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("docker not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	adapter := database.NewScanResultAdapter(startPostgres(t, ctx), nil)
	require.NoError(t, adapter.EnsureSchema(ctx))
	require.NoError(t, adapter.EnsureSchema(ctx))

	redisClient := startRedis(t, ctx)
	store := database.NewCachedScanResultAdapter(adapter, cache.NewRedisAdapter(redisClient, "medscan:test:"), 60, nil)

	scan := sampleScan()
	scan.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	scan.Interactions = &entities.InteractionGuardResult{
		OverallRisk: entities.SeverityCaution,
		Disclaimer:  "Monitor bleeding risk.",
	}
	require.NoError(t, store.Save(ctx, scan))

	cached, err := redisClient.Client().Exists(ctx, "medscan:test:scan:"+scan.ID).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached)

	fromDB, err := adapter.GetByID(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LanguageEnglish, fromDB.Language)
	assert.Equal(t, "Advil", fromDB.Record.DrugName)
	require.NotNil(t, fromDB.Interactions)
	assert.Equal(t, entities.SeverityCaution, fromDB.Interactions.OverallRisk)
	assert.Nil(t, fromDB.Preflight)

	fromCache, err := store.GetByID(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, fromDB.Record, fromCache.Record)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
