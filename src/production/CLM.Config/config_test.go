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

	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, StoreDriverMongo, cfg.Database.Driver)
	assert.Equal(t, "sensordatas", cfg.Database.Collection)
	assert.Equal(t, 5*time.Second, cfg.Database.OpTimeout)
	assert.Equal(t, 720*time.Hour, cfg.Retention.Window)
	assert.Equal(t, 10, cfg.Query.DefaultLatestLimit)
	assert.Equal(t, 1000, cfg.Query.DefaultRangeLimit)
	assert.Equal(t, 10000, cfg.Query.MaxLimit)
	assert.Equal(t, 24, cfg.Query.DefaultStatsHours)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "Development")
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RETENTION_WINDOW", "2h")
	t.Setenv("QUERY_MAX_LIMIT", "500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("BROKER_HOST", "broker.local")
	t.Setenv("BROKER_TLS", "true")
	t.Setenv("BROKER_PORT", "8883")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Retention.Window)
	assert.Equal(t, 500, cfg.Query.MaxLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "tcps://broker.local:8883", cfg.GetMQTTBrokerURL())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown environment": {"APP_ENV", "staging"},
		"unknown driver":      {"STORE_DRIVER", "redis"},
		"zero max limit":      {"QUERY_MAX_LIMIT", "0"},
		"negative retention":  {"RETENTION_WINDOW", "-1h"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateRequiresTopicWhenMQTTEnabled(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.MQTT.Enabled = true
	cfg.MQTT.Topic = ""
	assert.Error(t, cfg.Validate())
}
