package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Config)
		expectErr error
	}{
		{
			name:      "Missing database url",
			modify:    func(c *Config) {},
			expectErr: ErrDatabaseURLRequired,
		},
		{
			name: "Valid config",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://localhost/intake"
			},
		},
		{
			name: "Non numeric port",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://localhost/intake"
				c.Port = "http"
			},
			expectErr: ErrInvalidPort,
		},
		{
			name: "Stripe key without webhook secret",
			modify: func(c *Config) {
				c.DatabaseURL = "postgres://localhost/intake"
				c.Stripe.SecretKey = "sk_test_123"
			},
			expectErr: ErrStripeWebhookMissing,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := defaultConfig()
			tc.modify(&c)
			err := c.Validate()
			if tc.expectErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.expectErr)
		})
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "9090"
database_url: postgres://db/intake
session_ttl: 30m
serviceable_pincode_prefixes: ["110", "400"]
stripe:
  secret_key: sk_test_abc
  webhook_secret: whsec_abc
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := FromFile(path, defaultConfig())
	require.NoError(t, err)
	require.Equal(t, "9090", c.Port)
	require.Equal(t, "postgres://db/intake", c.DatabaseURL)
	require.Equal(t, 30*time.Minute, c.SessionTTL)
	require.Equal(t, []string{"110", "400"}, c.ServiceablePincode)
	require.Equal(t, "whsec_abc", c.Stripe.WebhookSecret)
	// untouched keys keep their defaults
	require.Equal(t, "localhost", c.Host)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DEBUG", "true")
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example")

	buffer := &LogBuffer{}
	c := FromEnv(defaultConfig(), buffer)

	require.Equal(t, "7070", c.Port)
	require.True(t, c.Debug)
	require.Equal(t, 2*time.Hour, c.SessionTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowOrigins)
	require.Len(t, buffer.entries, 1)

	buffer.FlushToZap(zap.NewNop())
	require.Empty(t, buffer.entries)
}
