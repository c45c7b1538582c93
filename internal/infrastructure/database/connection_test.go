package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servora/servora/internal/shared/config"
)

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{Driver: config.DriverSQLite, Database: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	mysqlCfg := &config.DatabaseConfig{Driver: config.DriverMySQL, Host: "db", Port: 3306, Username: "u", Password: "p", Database: "servora"}
	assert.Contains(t, mysqlCfg.GetDSN(), "u:p@tcp(db:3306)/servora")

	pgCfg := &config.DatabaseConfig{Driver: config.DriverPostgres, Host: "db", Port: 5432, Username: "u", Password: "p", Database: "servora"}
	assert.Contains(t, pgCfg.GetDSN(), "dbname=servora")

	explicit := &config.DatabaseConfig{Driver: config.DriverPostgres, DSN: "postgres://x"}
	assert.Equal(t, "postgres://x", explicit.GetDSN())
}
