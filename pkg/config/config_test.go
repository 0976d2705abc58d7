package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load("visor-leads")
	require.NoError(t, err)

	assert.Equal(t, "visor-leads", cfg.ServiceName)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Import.BatchSize)
	assert.Equal(t, 500, cfg.Query.MaxPageSize)
	assert.Equal(t, 50, cfg.Query.DefaultPageSize)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, "visor-leads", cfg.Metrics.Prefix)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("IMPORT_BATCH_SIZE", "25")
	t.Setenv("MAX_PAGE_SIZE", "200")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("DB_RETRY_DELAY", "250ms")

	cfg, err := Load("visor-leads")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Import.BatchSize)
	assert.Equal(t, 200, cfg.Query.MaxPageSize)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, "s3cret", cfg.JWT.SigningKey)
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Env: "production"},
		Import: ImportConfig{BatchSize: 100},
		Query:  QueryConfig{DefaultPageSize: 50, MaxPageSize: 500},
	}
	assert.Error(t, cfg.Validate())

	cfg.Server.Env = "development"
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.JWT.SigningKey)
}

func TestValidateClampsDefaultPageSize(t *testing.T) {
	cfg := &Config{
		JWT:    JWTConfig{SigningKey: "k"},
		Import: ImportConfig{BatchSize: 10},
		Query:  QueryConfig{DefaultPageSize: 900, MaxPageSize: 500},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Query.DefaultPageSize)
	assert.Equal(t, 1, cfg.Retry.Attempts)
}

func TestGetDSN(t *testing.T) {
	db := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "leads", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=leads sslmode=disable", db.GetDSN())
}
