package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env abstracts environment lookup so tests can inject a map.
type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// parseEnv overlays environment variables onto config. Unset or empty
// variables keep the current value, except GRPC_HEALTH_ADDR which may be set
// to "off" to disable the health endpoint.
func parseEnv(config *Config, env Env) error {
	setString(&config.HTTPAddr, env.Getenv("HTTP_ADDR"))
	if raw := env.Getenv("GRPC_HEALTH_ADDR"); raw != "" {
		if raw == "off" {
			raw = ""
		}
		config.GRPCHealthAddr = raw
	}
	setString(&config.DatabaseDSN, env.Getenv("DATABASE_DSN"))
	setString(&config.SecretKey, env.Getenv("SECRET_KEY"))
	setString(&config.AIBaseURL, env.Getenv("AI_BASE_URL"))
	setString(&config.AIAPIKey, env.Getenv("AI_API_KEY"))
	setString(&config.S3RootUser, env.Getenv("S3_ROOT_USER"))
	setString(&config.S3RootPassword, env.Getenv("S3_ROOT_PASSWORD"))
	setString(&config.S3Bucket, env.Getenv("S3_BUCKET"))
	setString(&config.S3Region, env.Getenv("S3_REGION"))
	setString(&config.S3BaseEndpoint, env.Getenv("S3_BASE_ENDPOINT"))
	setString(&config.LogBackend, env.Getenv("LOG_BACKEND"))
	setString(&config.LogLevel, env.Getenv("LOG_LEVEL"))
	setString(&config.GinMode, env.Getenv("GIN_MODE"))

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &config.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", &config.RefreshTokenTTL},
		{"AI_TIMEOUT", &config.AITimeout},
		{"HEALTH_CHECK_INTERVAL", &config.HealthCheckInterval},
	}
	for _, d := range durations {
		raw := env.Getenv(d.key)
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CHAT_HISTORY_LIMIT", &config.ChatHistoryLimit},
		{"AUTH_RATE_LIMIT", &config.AuthRateLimit},
	}
	for _, i := range ints {
		raw := env.Getenv(i.key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", i.key, err)
		}
		*i.dst = v
	}

	if raw := env.Getenv("TRUSTED_PROXIES"); raw != "" {
		config.TrustedProxies = splitList(raw)
	}

	if raw := env.Getenv("AUTH_RECHECK_USER"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid AUTH_RECHECK_USER: %w", err)
		}
		config.AuthRecheckUser = v
	}

	return nil
}
