package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "market")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "marketplace")
	t.Setenv("DB_SSL_MODE", "disable")
	t.Setenv("EVENTS_SUBSCRIBER_BUFFER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, "host=db.internal port=5433 user=market password=secret dbname=marketplace sslmode=disable", cfg.DB.GetDSN())
	assert.Equal(t, 32, cfg.Events.SubscriberBuffer)
}

func TestLoadSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/market.db")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/market.db", cfg.DB.GetDSN())
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvAsIntFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
