package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, "messaging-service", cfg.ServiceName)
	assert.Equal(t, "marketplace.events", cfg.EventExchange)
	assert.Equal(t, "audit.messaging", cfg.AuditRoutingKey)
	assert.False(t, cfg.TracingEnabled)
	assert.False(t, cfg.DebugRoutes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9000")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEBUG_ROUTES", "banana")

	_, err := Load()
	require.Error(t, err)
}
