package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/fleet-agent/agent.yaml"

	minInterval = 5 * time.Second
)

var (
	ErrMissingServerURL    = errors.New("server_url is not set")
	ErrMissingSharedSecret = errors.New("shared_secret is not set")
)

// Config holds the agent settings.
type Config struct {
	ServerURL      string        `yaml:"server_url"`
	SharedSecret   string        `yaml:"shared_secret"`
	Interval       time.Duration `yaml:"interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	StateDir       string        `yaml:"state_dir"`
	DiskPath       string        `yaml:"disk_path"`
	Debug          bool          `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL:      "http://localhost:8080",
		Interval:       30 * time.Second,
		RequestTimeout: 15 * time.Second,
		StateDir:       "/var/lib/fleet-agent",
		DiskPath:       "/",
	}
}

// LoadConfig reads the configuration with ReadConfig and validates it.
func LoadConfig(path string, required bool) (Config, error) {
	cfg, err := ReadConfig(path, required)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ReadConfig reads path over the defaults, then applies FLEET_AGENT_*
// environment overrides. A missing file is only an error when required. The
// result is not validated.
func ReadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse agent config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return cfg, fmt.Errorf("read agent config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("FLEET_AGENT_SERVER_URL"); ok {
		c.ServerURL = v
	}
	if v, ok := os.LookupEnv("FLEET_AGENT_SHARED_SECRET"); ok {
		c.SharedSecret = v
	}
	if v, ok := os.LookupEnv("FLEET_AGENT_STATE_DIR"); ok {
		c.StateDir = v
	}
	if v, ok := os.LookupEnv("FLEET_AGENT_DISK_PATH"); ok {
		c.DiskPath = v
	}
	if v, ok := os.LookupEnv("FLEET_AGENT_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FLEET_AGENT_INTERVAL: %w", err)
		}
		c.Interval = d
	}
	if v, ok := os.LookupEnv("FLEET_AGENT_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse FLEET_AGENT_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

// Validate fills in floors and rejects settings the agent cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return ErrMissingServerURL
	}
	if strings.TrimSpace(c.SharedSecret) == "" {
		return ErrMissingSharedSecret
	}
	if c.Interval < minInterval {
		c.Interval = minInterval
	}
	if c.StateDir == "" {
		c.StateDir = DefaultConfig().StateDir
	}
	return nil
}
