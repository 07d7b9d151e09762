package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	assert.Equal(t, ModeHTTP, c.VerifierMode)
	assert.Equal(t, 3*time.Second, c.VerifyTimeout)
	assert.Equal(t, []string{"/auth/", "/healthz"}, c.PublicPrefixes)
	assert.Len(t, c.Routes, 3)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown mode", func(c *Config) { c.VerifierMode = "ldap" }},
		{"zero timeout", func(c *Config) { c.VerifyTimeout = 0 }},
		{"relative prefix", func(c *Config) { c.Routes = []Route{{Prefix: "user/", Upstream: "http://u"}} }},
		{"upstream without scheme", func(c *Config) { c.Routes = []Route{{Prefix: "/user/", Upstream: "localhost:8082"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.LoadDefaults()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
verifier_mode: grpc
verify_timeout: 2s
cache_ttl: 30s
public_prefixes: ["/auth/"]
routes:
  - prefix: /user/
    upstream: http://users:8082
`), 0o600))

	os.Args = []string{"gateway", "-c", path, "-m", "local", "-t", "5"}
	c := LoadConfig()

	assert.Equal(t, ":9000", c.ListenAddr)
	assert.Equal(t, ModeLocal, c.VerifierMode, "flags win over the file")
	assert.Equal(t, 5*time.Second, c.VerifyTimeout)
	assert.Equal(t, 30*time.Second, c.CacheTTL)
	assert.Equal(t, []string{"/auth/"}, c.PublicPrefixes)
	assert.Equal(t, []Route{{Prefix: "/user/", Upstream: "http://users:8082"}}, c.Routes)
	assert.Equal(t, "http://localhost:8081/auth/validate", c.ValidateURL)
}

func TestDecodeFile_JSON(t *testing.T) {
	c, err := decodeFile("gw.json", []byte(`{"validate_url":"http://id/auth/validate","verify_timeout":1000000000,"public_prefixes":[]}`))
	require.NoError(t, err)

	cfg := &Config{}
	cfg.LoadDefaults()
	c.apply(cfg)

	assert.Equal(t, "http://id/auth/validate", cfg.ValidateURL)
	assert.Equal(t, time.Second, cfg.VerifyTimeout)
	assert.Empty(t, cfg.PublicPrefixes, "an explicit empty list disables bypass")
	assert.Len(t, cfg.Routes, 3)
}

func TestParseFile_Panics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("routes: [oops"), 0o600))

	for _, args := range [][]string{
		{"gateway", "-c", filepath.Join(t.TempDir(), "missing.json")},
		{"gateway", "-config", bad},
	} {
		os.Args = args
		assert.Panics(t, func() { parseFile(&Config{}) }, "%v", args)
	}
}

func TestParseFlags_BadTimeoutPanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"gateway", "-t", "soon"}
	c := &Config{}
	c.LoadDefaults()
	assert.Panics(t, func() { parseFlags(c) })
}
