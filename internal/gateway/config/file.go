package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/flagx"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file, JSON or YAML by
// extension. Absent fields keep their previous value; a present routes or
// public_prefixes list replaces the default one.
type FileConfig struct {
	ListenAddr       string         `json:"listen_addr" yaml:"listen_addr"`
	LogLevel         string         `json:"log_level" yaml:"log_level"`
	VerifierMode     string         `json:"verifier_mode" yaml:"verifier_mode"`
	ValidateURL      string         `json:"validate_url" yaml:"validate_url"`
	IdentityGRPCAddr string         `json:"identity_grpc_addr" yaml:"identity_grpc_addr"`
	SecretKey        string         `json:"secret_key" yaml:"secret_key"`
	TokenIssuer      string         `json:"token_issuer" yaml:"token_issuer"`
	VerifyTimeout    timex.Duration `json:"verify_timeout" yaml:"verify_timeout"`
	CacheTTL         timex.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheSize        int            `json:"cache_size" yaml:"cache_size"`
	PublicPrefixes   []string       `json:"public_prefixes" yaml:"public_prefixes"`
	Routes           []Route        `json:"routes" yaml:"routes"`
	ShutdownTimeout  timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// parseFile overlays the file named by -c/-config onto config. It panics
// when the file cannot be read or decoded.
func parseFile(config *Config) {
	name := flagx.ConfigFile()
	if name == "" {
		return
	}

	data, err := os.ReadFile(name)
	if err != nil {
		panic(err)
	}

	c, err := decodeFile(name, data)
	if err != nil {
		panic(err)
	}
	c.apply(config)
}

func decodeFile(name string, data []byte) (*FileConfig, error) {
	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.VerifierMode, c.VerifierMode)
	setString(&config.ValidateURL, c.ValidateURL)
	setString(&config.IdentityGRPCAddr, c.IdentityGRPCAddr)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)

	if c.VerifyTimeout.Duration > 0 {
		config.VerifyTimeout = c.VerifyTimeout.Duration
	}
	if c.CacheTTL.Duration > 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}
	if c.CacheSize > 0 {
		config.CacheSize = c.CacheSize
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.PublicPrefixes != nil {
		config.PublicPrefixes = c.PublicPrefixes
	}
	if len(c.Routes) > 0 {
		config.Routes = c.Routes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
