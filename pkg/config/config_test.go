package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 10, cfg.Chatbot.AssignmentLimit)
	assert.Equal(t, 5, cfg.Chatbot.MaterialLimit)
	assert.Equal(t, 5*time.Minute, cfg.Chatbot.DirectoryCacheTTL)
	assert.Equal(t, 10, cfg.Notifications.ListLimit)
	assert.Equal(t, 50, cfg.Notifications.ListMax)
	assert.Equal(t, 20, cfg.Notifications.BroadcastLimit)
}

func TestLoadReadsEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CHATBOT_SEED", "42")
	t.Setenv("NOTIFICATIONS_LIST_LIMIT", "15")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Chatbot.Seed)
	assert.Equal(t, 15, cfg.Notifications.ListLimit)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestPositiveOr(t *testing.T) {
	assert.Equal(t, 7, positiveOr(0, 7))
	assert.Equal(t, 7, positiveOr(-3, 7))
	assert.Equal(t, 3, positiveOr(3, 7))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
