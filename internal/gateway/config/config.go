// Package config handles configuration for the gateway: defaults, an
// optional JSON or YAML file, and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Verifier modes.
const (
	ModeHTTP  = "http"
	ModeGRPC  = "grpc"
	ModeLocal = "local"
)

// Route sends every request whose path starts with Prefix to Upstream.
type Route struct {
	Prefix   string `json:"prefix" yaml:"prefix"`
	Upstream string `json:"upstream" yaml:"upstream"`
}

// Config holds runtime settings for the gateway.
//
// VerifierMode selects how bearer tokens are checked: "http" posts to
// ValidateURL, "grpc" calls the TokenVerifier at IdentityGRPCAddr and
// "local" verifies in-process with SecretKey. A positive CacheTTL caches
// successful verifications.
type Config struct {
	ListenAddr string
	LogLevel   string

	VerifierMode     string
	ValidateURL      string
	IdentityGRPCAddr string
	SecretKey        string
	TokenIssuer      string
	VerifyTimeout    time.Duration

	CacheTTL  time.Duration
	CacheSize int

	PublicPrefixes []string
	Routes         []Route

	ShutdownTimeout time.Duration
}

func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.LogLevel = "info"
	c.VerifierMode = ModeHTTP
	c.ValidateURL = "http://localhost:8081/auth/validate"
	c.IdentityGRPCAddr = "localhost:50051"
	c.SecretKey = "secretKey"
	c.TokenIssuer = "platform"
	c.VerifyTimeout = 3 * time.Second
	c.CacheTTL = 0
	c.CacheSize = 1024
	c.PublicPrefixes = []string{"/auth/", "/healthz"}
	c.Routes = []Route{
		{Prefix: "/auth/", Upstream: "http://localhost:8081"},
		{Prefix: "/user/", Upstream: "http://localhost:8082"},
		{Prefix: "/post/", Upstream: "http://localhost:8083"},
	}
	c.ShutdownTimeout = 10 * time.Second
}

// LoadConfig applies defaults, then the -c/-config file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate reports settings the gateway cannot start with.
func (c *Config) Validate() error {
	switch c.VerifierMode {
	case ModeHTTP, ModeGRPC, ModeLocal:
	default:
		return fmt.Errorf("unknown verifier mode %q", c.VerifierMode)
	}
	if c.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive")
	}
	for _, r := range c.Routes {
		if r.Prefix == "" || r.Prefix[0] != '/' {
			return fmt.Errorf("route prefix %q must start with /", r.Prefix)
		}
		u, err := url.Parse(r.Upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("route %s: invalid upstream %q", r.Prefix, r.Upstream)
		}
	}
	return nil
}
