package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMapDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := FromMap(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "0 */6 * * *", cfg.AuditSchedule)
	assert.Equal(t, time.Minute, cfg.AuditTimeout)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.True(t, cfg.IsDevelopment())
}

func TestFromMapOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := FromMap(map[string]string{
		"DATABASE_URL":      "postgres://ledger@db/ledger",
		"PORT":              "9090",
		"APP_ENV":           "production",
		"AUTO_MIGRATE":      "false",
		"AUDIT_SCHEDULE":    "OFF",
		"DB_MAX_OPEN_CONNS": "2",
		"DB_MAX_IDLE_CONNS": "10",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://ledger@db/ledger", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.AutoMigrate)
	assert.Empty(t, cfg.AuditSchedule)
	assert.Equal(t, 2, cfg.DBMaxIdleConns)
}

func TestFromMapRejectsBadValues(t *testing.T) {
	t.Parallel()

	_, err := FromMap(map[string]string{"AUTO_MIGRATE": "sometimes"})
	assert.Error(t, err)

	_, err = FromMap(map[string]string{"DB_MAX_OPEN_CONNS": "0"})
	assert.Error(t, err)

	_, err = FromMap(map[string]string{"MAX_BODY_BYTES": "0"})
	assert.Error(t, err)
}
