package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name        string
		args        []string
		check       func(t *testing.T, c *Config)
		expectPanic bool
	}{
		{
			name: "all short flags",
			args: []string{"identity",
				"-a", "127.0.0.1:8080", "-g", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-l", "debug",
				"-o", "2", "-r", "90", "-R", "localhost:6379", "-q", "amqp://guest:guest@mq:5672/", "-k", "a:9092, b:9092",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "127.0.0.1:8080", c.HTTPAddr)
				assert.Equal(t, "127.0.0.1:9090", c.GRPCAddr)
				assert.Equal(t, "db", c.DatabaseDSN)
				assert.Equal(t, "secret", c.SecretKey)
				assert.Equal(t, "debug", c.LogLevel)
				assert.Equal(t, 2*time.Minute, c.OTPValidity)
				assert.Equal(t, 90*time.Minute, c.ResetTokenValidity)
				assert.Equal(t, "localhost:6379", c.RedisAddr)
				assert.Equal(t, "amqp://guest:guest@mq:5672/", c.RabbitMQURL)
				assert.Equal(t, []string{"a:9092", "b:9092"}, c.KafkaBrokers)
			},
		},
		{
			name: "unknown flags ignored, defaults kept",
			args: []string{"identity", "-c", "cfg.json", "-x", "1"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, ":8081", c.HTTPAddr)
				assert.Equal(t, 5*time.Minute, c.OTPValidity)
				assert.Nil(t, c.KafkaBrokers)
			},
		},
		{
			name:        "non-numeric minutes",
			args:        []string{"identity", "-o", "five"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			c := &Config{}
			c.LoadDefaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(c) })
				return
			}
			require.NotPanics(t, func() { parseFlags(c) })
			tt.check(t, c)
		})
	}
}
