package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("TASKDESK_JWT_SECRET", "s3cret")

	env, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "local", env.Env)
	assert.True(t, env.IsLocal())
	assert.Equal(t, "3100", env.HTTPPort)
	assert.Equal(t, []string{"*"}, env.CORSAllowedOrigins)
	assert.Equal(t, "local", env.StorageEnv.Type)
	assert.Equal(t, "log", env.MailEnv.Driver)
	assert.Equal(t, 587, env.SMTPPort)
	assert.Equal(t, time.Minute, env.RateLimitWindow)
	assert.Equal(t, 8, env.DirectoryConcurrency)
	assert.Equal(t, slog.LevelDebug, env.SlogLevel())
}

func TestLoadEnv_RequiresJWTSecret(t *testing.T) {
	t.Setenv("TASKDESK_JWT_SECRET", "")
	os.Unsetenv("TASKDESK_JWT_SECRET")

	_, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadEnv_DotenvFile(t *testing.T) {
	t.Setenv("TASKDESK_JWT_SECRET", "from-process")
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("TASKDESK_JWT_SECRET=from-file\nTASKDESK_STORAGE_TYPE=s3\nTASKDESK_LOG_LEVEL=warn\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TASKDESK_STORAGE_TYPE")
		os.Unsetenv("TASKDESK_LOG_LEVEL")
	})

	env, err := LoadEnv(dotenv)
	require.NoError(t, err)

	assert.Equal(t, "from-process", env.JWTSecret)
	assert.Equal(t, "s3", env.StorageEnv.Type)
	assert.Equal(t, slog.LevelWarn, env.SlogLevel())
}
