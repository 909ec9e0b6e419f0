package config

import "time"

// Config holds runtime settings for the AI accountant CLI.
type Config struct {
	// ServerURL is the base URL of the REST API.
	ServerURL string
	// StateDir holds the SQLite state database with the login session.
	StateDir string
	// RequestTimeout bounds a single API call. Chat requests wait for the
	// assistant, so it is generous.
	RequestTimeout time.Duration
}

// StateFile is the database file name inside StateDir.
const StateFile = "state.db"

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.StateDir = "~/.aiaccountant"
	c.RequestTimeout = 60 * time.Second
}

// LoadConfig applies defaults and then the JSON file named by -c/--config.
// Command-line flags are layered on top by the cobra root command.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, jsonConfigPath()); err != nil {
		return nil, err
	}
	return cfg, nil
}
