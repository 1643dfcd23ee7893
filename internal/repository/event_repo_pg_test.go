package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"EventSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("short 模式跳过集成测试（需要 Docker）")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "eventsync_test",
				"POSTGRES_USER":     "eventsync",
				"POSTGRES_PASSWORD": "test_password",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://eventsync:test_password@%s:%s/eventsync_test?sslmode=disable", host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.CanonicalEvent{}))
	return db
}

func TestEventRepository_Postgres(t *testing.T) {
	runStoreContract(t, openPostgres(t))
}

// 同一 (source, source_id) 并发写入只产生一行、一个ID
func TestEventRepository_Postgres_ConcurrentSameKey(t *testing.T) {
	db := openPostgres(t)
	repo := newTestRepo(t, db)
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	ids := make([]string, writers)
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _, errs[i] = repo.Upsert(ctx, testCandidate("race", fmt.Sprintf("Race %d", i), fixedNow.Add(48*time.Hour)))
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var rows int64
	require.NoError(t, db.Model(&model.CanonicalEvent{}).
		Where("source = ? AND source_id = ?", model.SourceKKTIX, "race").Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	ev, err := repo.GetEventByID(ctx, ids[0], true)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, writers, ev.Version)
}
