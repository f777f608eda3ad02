package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Address)
	assert.Equal(t, "http://localhost:4000", cfg.APIBaseURL)
	assert.Equal(t, "/api/holoheri", cfg.RoutePrefix)
	assert.Equal(t, int64(200<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 10*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "localhost:3000", cfg.LegacyHost)
	assert.True(t, cfg.GeneratedJWT)
	assert.Len(t, cfg.JWTSecret, 32)
	assert.False(t, cfg.QueueEnabled())
	assert.False(t, cfg.MirrorEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOLOHERI_API_BASE_URL", "https://heritage.example.org/")
	t.Setenv("HOLOHERI_ROUTE_PREFIX", "api/v2/")
	t.Setenv("HOLOHERI_JWT_SECRET", "s3cret")
	t.Setenv("HOLOHERI_RECLAIM_WORKERS", "-3")
	t.Setenv("HOLOHERI_REDIS_ADDR", "localhost:6379")
	t.Setenv("HOLOHERI_S3_ENDPOINT", "localhost:9000")
	t.Setenv("HOLOHERI_REQUIRE_AUTH", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://heritage.example.org", cfg.APIBaseURL)
	assert.Equal(t, "/api/v2", cfg.RoutePrefix)
	assert.Equal(t, []byte("s3cret"), cfg.JWTSecret)
	assert.False(t, cfg.GeneratedJWT)
	assert.Equal(t, 2, cfg.ReclaimWorkers)
	assert.True(t, cfg.RequireAuth)
	assert.True(t, cfg.MirrorEnabled())
}

func TestLoadRejectsBadBaseURL(t *testing.T) {
	t.Setenv("HOLOHERI_API_BASE_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "", normalizePrefix("/"))
	assert.Equal(t, "/api", normalizePrefix("api"))
	assert.Equal(t, "/api/holoheri", normalizePrefix("/api/holoheri/"))
}
