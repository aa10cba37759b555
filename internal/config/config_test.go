package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		JWTSecret:    "secret",
		MaxBesties:   5,
		PushProvider: PushProviderWebPush,
		NotifyMode:   NotifyModeInline,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "sns and kafka", mutate: func(c *Config) { c.PushProvider = PushProviderSNS; c.NotifyMode = NotifyModeKafka }},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "zero cap", mutate: func(c *Config) { c.MaxBesties = 0 }, wantErr: "MAX_BESTIES"},
		{name: "unknown provider", mutate: func(c *Config) { c.PushProvider = "pigeon" }, wantErr: "PUSH_PROVIDER"},
		{name: "unknown mode", mutate: func(c *Config) { c.NotifyMode = "batch" }, wantErr: "NOTIFY_MODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("MAX_BESTIES", "3")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 3, cfg.MaxBesties)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, PushProviderWebPush, cfg.PushProvider)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
	assert.Same(t, cfg, AppConfig)
}
