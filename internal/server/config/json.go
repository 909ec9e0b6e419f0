package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted. Pointer
// fields distinguish "absent" from an explicit zero value.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	GRPCHealthAddr      *string        `json:"grpc_health_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	AccessTokenTTL      timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL     timex.Duration `json:"refresh_token_ttl"`
	AIBaseURL           string         `json:"ai_base_url"`
	AIAPIKey            string         `json:"ai_api_key"`
	AITimeout           timex.Duration `json:"ai_timeout"`
	ChatHistoryLimit    *int           `json:"chat_history_limit"`
	AuthRecheckUser     *bool          `json:"auth_recheck_user"`
	AuthRateLimit       *int           `json:"auth_rate_limit"`
	TrustedProxies      []string       `json:"trusted_proxies"`
	HealthCheckInterval timex.Duration `json:"health_check_interval"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	LogBackend          string         `json:"log_backend"`
	LogLevel            string         `json:"log_level"`
	GinMode             string         `json:"gin_mode"`
}

// parseJson overlays values from the JSON file at path onto config. An empty
// path loads nothing. Only fields present in the file replace the current
// values.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	if c.GRPCHealthAddr != nil {
		config.GRPCHealthAddr = *c.GRPCHealthAddr
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenTTL, c.AccessTokenTTL)
	setDuration(&config.RefreshTokenTTL, c.RefreshTokenTTL)
	setString(&config.AIBaseURL, c.AIBaseURL)
	setString(&config.AIAPIKey, c.AIAPIKey)
	setDuration(&config.AITimeout, c.AITimeout)
	if c.ChatHistoryLimit != nil {
		config.ChatHistoryLimit = *c.ChatHistoryLimit
	}
	if c.AuthRecheckUser != nil {
		config.AuthRecheckUser = *c.AuthRecheckUser
	}
	if c.AuthRateLimit != nil {
		config.AuthRateLimit = *c.AuthRateLimit
	}
	if c.TrustedProxies != nil {
		config.TrustedProxies = c.TrustedProxies
	}
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.GinMode, c.GinMode)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if !v.IsZero() {
		*dst = v.Duration
	}
}
