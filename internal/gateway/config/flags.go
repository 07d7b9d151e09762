package config

import (
	"flag"
	"os"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   listen address (e.g., ":8080")
//	-m string   verifier mode: http, grpc or local
//	-u string   identity validate URL (http mode)
//	-g string   identity gRPC address (grpc mode)
//	-s string   token secret (local mode)
//	-t int      verify timeout, seconds
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-u", "-g", "-s", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "listen address and port")
	fs.StringVar(&config.VerifierMode, "m", config.VerifierMode, "verifier mode")
	fs.StringVar(&config.ValidateURL, "u", config.ValidateURL, "validate url")
	fs.StringVar(&config.IdentityGRPCAddr, "g", config.IdentityGRPCAddr, "identity grpc address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	timeout := fs.Int("t", int(config.VerifyTimeout.Seconds()), "verify timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.VerifyTimeout = time.Duration(*timeout) * time.Second
}
