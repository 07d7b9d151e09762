package config

import (
	"encoding/json"
	"os"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/flagx"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration, so both "5m" and integer nanoseconds are accepted.
// Absent fields keep the value they had before the file was applied.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	GRPCAddr           string         `json:"grpc_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	LogLevel           string         `json:"log_level"`
	SecretKey          string         `json:"secret_key"`
	TokenIssuer        string         `json:"token_issuer"`
	TokenValidity      timex.Duration `json:"token_validity"`
	OTPValidity        timex.Duration `json:"otp_validity"`
	ResetTokenValidity timex.Duration `json:"reset_token_validity"`
	ResetLinkBaseURL   string         `json:"reset_link_base_url"`
	OTPSweepSchedule   string         `json:"otp_sweep_schedule"`
	ResetSweepSchedule string         `json:"reset_sweep_schedule"`
	RedisAddr          string         `json:"redis_addr"`
	OTPMaxAttempts     int            `json:"otp_max_attempts"`
	OTPAttemptWindow   timex.Duration `json:"otp_attempt_window"`
	RabbitMQURL        string         `json:"rabbitmq_url"`
	NotificationQueue  string         `json:"notification_queue"`
	KafkaBrokers       []string       `json:"kafka_brokers"`
	KafkaTopic         string         `json:"kafka_topic"`
	ShutdownTimeout    timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file named by -c/-config onto config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.ResetLinkBaseURL, c.ResetLinkBaseURL)
	setString(&config.OTPSweepSchedule, c.OTPSweepSchedule)
	setString(&config.ResetSweepSchedule, c.ResetSweepSchedule)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RabbitMQURL, c.RabbitMQURL)
	setString(&config.NotificationQueue, c.NotificationQueue)
	setString(&config.KafkaTopic, c.KafkaTopic)

	if c.TokenValidity.Duration > 0 {
		config.TokenValidity = c.TokenValidity.Duration
	}
	if c.OTPValidity.Duration > 0 {
		config.OTPValidity = c.OTPValidity.Duration
	}
	if c.ResetTokenValidity.Duration > 0 {
		config.ResetTokenValidity = c.ResetTokenValidity.Duration
	}
	if c.OTPAttemptWindow.Duration > 0 {
		config.OTPAttemptWindow = c.OTPAttemptWindow.Duration
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.OTPMaxAttempts > 0 {
		config.OTPMaxAttempts = c.OTPMaxAttempts
	}
	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
