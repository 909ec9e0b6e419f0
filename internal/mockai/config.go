// Package mockai is a stand-in for the external AI assistant service. It
// answers every question with a canned reply so the server can be run and
// demoed without a real model.
package mockai

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Addr   string
	APIKey string
	// Delay is added before every answer; use it to exercise client timeouts.
	Delay time.Duration
}

// LoadConfig reads MOCKAI_ADDR, MOCKAI_API_KEY and MOCKAI_DELAY.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) (*Config, error) {
	cfg := &Config{Addr: ":8001"}

	if v := getenv("MOCKAI_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.APIKey = getenv("MOCKAI_API_KEY")
	if v := getenv("MOCKAI_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid MOCKAI_DELAY %q", v)
		}
		cfg.Delay = d
	}
	return cfg, nil
}
