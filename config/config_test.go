package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_EXPIRE_HOURS", "")
	t.Setenv("REALTIME_REDIS", "")
	t.Setenv("LOGIN_RATE_LIMIT", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.JWT.ExpireHours)
	assert.False(t, cfg.Redis.Realtime)
	assert.Equal(t, 5, cfg.RateLimit.LoginMax)
	assert.Equal(t, "utdesignday", cfg.App.URLScheme)
	assert.Nil(t, cfg.Server.TrustedProxies)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_EXPIRE_HOURS", "2")
	t.Setenv("REALTIME_REDIS", "true")
	t.Setenv("PORT", "9090")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.1,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.JWT.ExpireHours)
	assert.True(t, cfg.Redis.Realtime)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.1"}, cfg.Server.TrustedProxies)
}

func TestLoad_RejectsNonPositiveExpiry(t *testing.T) {
	t.Setenv("JWT_EXPIRE_HOURS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "designday", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/designday?sslmode=disable", c.DSN())

	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())
}
