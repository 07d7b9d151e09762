package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := writeTempJSON(t, dir, "identity.json", map[string]any{
		"http_addr":            "0.0.0.0:9000",
		"database_dsn":         "postgres://db/identity",
		"secret_key":           "from-file",
		"otp_validity":         "10m",
		"reset_token_validity": 1800000000000,
		"redis_addr":           "redis:6379",
		"kafka_brokers":        []string{"k1:9092", "k2:9092"},
	})

	t.Run("overlays present fields only", func(t *testing.T) {
		os.Args = []string{"identity", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "0.0.0.0:9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://db/identity", cfg.DatabaseDSN)
		assert.Equal(t, "from-file", cfg.SecretKey)
		assert.Equal(t, 10*time.Minute, cfg.OTPValidity)
		assert.Equal(t, 30*time.Minute, cfg.ResetTokenValidity)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)

		// untouched
		assert.Equal(t, ":50051", cfg.GRPCAddr)
		assert.Equal(t, 24*time.Hour, cfg.TokenValidity)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"identity"}

		cfg := &Config{HTTPAddr: "defaults:1234"}
		parseJson(cfg)
		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		os.Args = []string{"identity", "-c", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"identity", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
