package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMySQLDSN(t *testing.T) {
	dsn, masked, err := mysqlDSN("root:pw@tcp(127.0.0.1:3306)/technotes", "", "")
	require.NoError(t, err)
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/technotes?parseTime=true", dsn)
	assert.Equal(t, "root:****@tcp(127.0.0.1:3306)/technotes?parseTime=true", masked)

	dsn, masked, err = mysqlDSN("tcp(db:3306)/technotes", "app", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, dsn, "app:s3cret@tcp(db:3306)/technotes")
	assert.Contains(t, dsn, "parseTime=true")
	assert.NotContains(t, masked, "s3cret")

	_, _, err = mysqlDSN("not a dsn", "", "")
	require.Error(t, err)
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "mongodb"})
	require.ErrorIs(t, err, ErrUnsupportedDriver)
	assert.Contains(t, err.Error(), `"mongodb"`)
}

func TestNewGorm_SQLiteMigrate(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "notes", "counters"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewGorm_SQLGoesToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1, LogLevel: "error", Log: zap.New(core)})
	require.NoError(t, err)

	require.Error(t, db.Exec("SELECT * FROM missing_table").Error)
	assert.NotZero(t, logs.FilterLoggerName("gorm").Len())
}
