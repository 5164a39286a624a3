package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/funnel")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("EMAIL_ENABLED", "false")
	t.Setenv("CORS_ALLOW_ALL", "false")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.GetInactivityTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetHiddenConfirmDelay())
	assert.Equal(t, 4, cfg.GetAnalysisMinTurns())
	assert.Equal(t, 2, cfg.GetCaptureAfterTurns())
	assert.Equal(t, 45*time.Minute, cfg.GetAbandonmentSweepDelay())
	assert.False(t, cfg.IsMinIOEnabled())
}

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	_, err := fromEnv()
	require.Error(t, err)
}

func TestFromEnvSMTPProviderNeedsHost(t *testing.T) {
	setRequired(t)
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("EMAIL_PROVIDER", "smtp")
	t.Setenv("EMAIL_FROM_ADDRESS", "noreply@example.com")
	t.Setenv("SMTP_HOST", "")

	_, err := fromEnv()
	require.Error(t, err)

	t.Setenv("SMTP_HOST", "smtp.example.com")
	cfg, err := fromEnv()
	require.NoError(t, err)
	assert.Equal(t, "smtp", cfg.GetEmailProvider())
}

func TestWildcardOriginRejectsCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	_, err := fromEnv()
	require.Error(t, err)
}
