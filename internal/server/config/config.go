package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// holds the configuration for the optional InfluxDB sample mirror
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether samples should be mirrored to InfluxDB.
func (c InfluxDBConfig) Enabled() bool {
	return c.URL != ""
}

type CryptoConfig struct {
	SharedSecret string `yaml:"shared_secret"`
}

// AuthConfig configures operator bearer tokens. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// holds overall server config
type ServerConfig struct {
	ListenAddress  string         `yaml:"listen_address"`
	EnableDebugLog bool           `yaml:"debug"`
	LogLevel       string         `yaml:"log_level"`
	Database       DatabaseConfig `yaml:"database"`
	InfluxDB       InfluxDBConfig `yaml:"influxdb"`
	Crypto         CryptoConfig   `yaml:"crypto"`
	Auth           AuthConfig     `yaml:"auth"`
	CORS           CORSConfig     `yaml:"cors"`
	MetricsEnabled bool           `yaml:"metrics_enabled"`
}

var (
	ErrMissingSharedSecret = errors.New("crypto shared secret is not set")
	ErrInvalidDatabasePort = errors.New("database port must be positive")
)

// Load builds the configuration from defaults, then the YAML file named by
// SERVER_CONFIG_FILE (if any), then environment variables.
func Load() (*ServerConfig, error) {
	cfg := Default()

	if path := os.Getenv("SERVER_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *ServerConfig {
	return &ServerConfig{
		ListenAddress: ":8080",
		LogLevel:      "info",
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "fleet",
			Name:     "fleet_monitor",
			SSLMode:  "disable",
			MaxConns: 5,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		MetricsEnabled: true,
	}
}

func (c *ServerConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	appLogger.Debug("Merged configuration file %s", path)
	return nil
}

func (c *ServerConfig) applyEnv() {
	c.ListenAddress = getEnv("SERVER_LISTEN_ADDRESS", c.ListenAddress)
	c.EnableDebugLog = getEnvAsBool("SERVER_ENABLE_DEBUG_LOG", c.EnableDebugLog)
	c.LogLevel = getEnv("SERVER_LOG_LEVEL", c.LogLevel)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", int(c.Database.MaxConns)))

	c.InfluxDB.URL = getEnv("INFLUXDB_URL", c.InfluxDB.URL)
	c.InfluxDB.Token = getEnv("INFLUXDB_TOKEN", c.InfluxDB.Token)
	c.InfluxDB.Org = getEnv("INFLUXDB_ORG", c.InfluxDB.Org)
	c.InfluxDB.Bucket = getEnv("INFLUXDB_BUCKET", c.InfluxDB.Bucket)

	c.Crypto.SharedSecret = getEnv("TELEMETRY_SHARED_SECRET", c.Crypto.SharedSecret)
	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.MetricsEnabled = getEnvAsBool("METRICS_ENABLED", c.MetricsEnabled)

	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		c.CORS.AllowedOrigins = splitList(origins)
	}
}

// Validate checks the settings the server cannot start without.
func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Crypto.SharedSecret) == "" {
		return ErrMissingSharedSecret
	}
	if c.Database.Port <= 0 {
		return ErrInvalidDatabasePort
	}
	if c.InfluxDB.Enabled() && (c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		appLogger.Warn("INFLUXDB_URL is set but org or bucket is empty; the mirror will fail to write")
	}
	if c.Auth.JWTSecret == "" {
		appLogger.Warn("AUTH_JWT_SECRET is not set; operator endpoints are unauthenticated")
	}
	return nil
}

// String hides secrets so the config can be logged.
func (c ServerConfig) String() string {
	c.Database.Password = redact(c.Database.Password)
	c.InfluxDB.Token = redact(c.InfluxDB.Token)
	c.Crypto.SharedSecret = redact(c.Crypto.SharedSecret)
	c.Auth.JWTSecret = redact(c.Auth.JWTSecret)
	type plain ServerConfig
	return fmt.Sprintf("%+v", plain(c))
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// get an environment variable or return a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get an environment variable as a boolean.
func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
		appLogger.Warn("Failed to parse env var %s as bool: %v. Using fallback: %t", key, err, fallback)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
		appLogger.Warn("Failed to parse env var %s as int: %v. Using fallback: %d", key, err, fallback)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
