package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"technotes-api/internal/core/database"
)

// NewPostgresDB 起一个一次性 postgres 容器并建好表，测试结束销毁
// 只给 integration tag 的测试用，需要本机有 docker
func NewPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("technotes"),
		postgres.WithUsername("technotes"),
		postgres.WithPassword("technotes"),
		// 初始化脚本会重启一次，第二次 ready 才算数
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "start postgres")
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewGorm(database.Opts{
		Driver:       "postgres",
		DSN:          dsn,
		MaxOpenConns: 10,
		MaxIdleConns: 2,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}
