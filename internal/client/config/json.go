package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/aiaccountant/internal/flagx"
	"github.com/dmitrijs2005/aiaccountant/internal/timex"
)

// JsonConfig is the on-disk shape of the CLI configuration file.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	StateDir       string         `json:"state_dir"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

var jsonConfigPath = flagx.ConfigPathFromOS

// parseJson overlays the values present in the file at path. An empty path
// loads nothing.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.StateDir != "" {
		cfg.StateDir = jc.StateDir
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
