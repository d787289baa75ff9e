package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "timecapsule-auth", cfg.App.Name)
	require.Equal(t, "development", cfg.App.Env)
	require.Equal(t, 8080, cfg.App.Port)

	require.Equal(t, "1", cfg.JWT.SecretVersion)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, 336*time.Hour, cfg.JWT.RefreshTokenTTL)
	require.Equal(t, 24*time.Hour, cfg.Verification.CodeTTL)

	require.Equal(t, "auth", cfg.Kafka.TopicPrefix)
	require.Equal(t, "http://localhost:3000", cfg.Frontend.URL)

	require.Equal(t, 5, cfg.RateLimit.LoginMaxAttempts)
	require.Equal(t, 10, cfg.RateLimit.VerifyMaxAttempts)
	require.Equal(t, time.Minute, cfg.RateLimit.WindowDuration)

	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("TCAUTH_APP_ENV", "production")
	t.Setenv("TCAUTH_JWT_SECRET_VERSION", "7")
	t.Setenv("TCAUTH_JWT_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("TCAUTH_VERIFICATION_CODE_TTL", "1h")
	t.Setenv("TCAUTH_OAUTH_GOOGLE_CLIENT_ID", "google-client")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "production", cfg.App.Env)
	require.Equal(t, "7", cfg.JWT.SecretVersion)
	require.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, time.Hour, cfg.Verification.CodeTTL)
	require.Equal(t, "google-client", cfg.OAuth.Google.ClientID)
}
