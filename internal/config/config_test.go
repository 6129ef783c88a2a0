package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("FORKD_DB_PATH", "/data/host.sqlite3")
	t.Setenv("FORKD_THUMBNAILS_DIR", "/data/thumbnails")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":47620", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50, cfg.RateLimitRPS)
}

func TestValidateMissingDBPath(t *testing.T) {
	cfg := Config{Listen: ":0", ThumbnailsDir: "/tmp"}
	assert.Error(t, cfg.Validate())
}

func TestValidateMissingThumbnailsDir(t *testing.T) {
	cfg := Config{Listen: ":0", DBPath: "/tmp/db.sqlite3"}
	assert.Error(t, cfg.Validate())
}

func TestParseIntInvalidFallsBack(t *testing.T) {
	t.Setenv("FORKD_RATE_LIMIT_RPS", "not-a-number")
	assert.Equal(t, 50, ParseInt("FORKD_RATE_LIMIT_RPS", 50))
}
