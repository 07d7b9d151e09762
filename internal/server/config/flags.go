package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8081")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-l string   log level (debug, info, warn, error)
//	-o int      OTP validity, minutes
//	-r int      reset token validity, minutes
//	-R string   Redis address for the OTP attempt limiter
//	-q string   RabbitMQ URL for notifications
//	-k string   comma-separated Kafka brokers
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-l", "-o", "-r", "-R", "-q", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	otpValidity := fs.Int("o", int(config.OTPValidity.Minutes()), "otp validity (in minutes)")
	resetValidity := fs.Int("r", int(config.ResetTokenValidity.Minutes()), "reset token validity (in minutes)")

	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.StringVar(&config.RabbitMQURL, "q", config.RabbitMQURL, "rabbitmq url")
	brokers := fs.String("k", strings.Join(config.KafkaBrokers, ","), "kafka brokers")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OTPValidity = time.Duration(*otpValidity) * time.Minute
	config.ResetTokenValidity = time.Duration(*resetValidity) * time.Minute
	config.KafkaBrokers = splitList(*brokers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
