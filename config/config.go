package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// ConfigPathEnvVar points at an optional YAML config file.
const ConfigPathEnvVar = "FOODGRAM_CONFIG"

// Config holds the application configuration
type Config struct {
	Environment Environment `koanf:"-"`

	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Storage    StorageConfig    `koanf:"storage"`
	Auth       AuthConfig       `koanf:"auth"`
	Logging    LoggingConfig    `koanf:"logging"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Pagination PaginationConfig `koanf:"pagination"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	PublicURL       string        `koanf:"public_url"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite"
	Driver          string        `koanf:"driver"`
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	SQLitePath      string        `koanf:"sqlite_path"`
	MigrationsDir   string        `koanf:"migrations_dir"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	SlowThreshold   time.Duration `koanf:"slow_threshold"`
}

// DSN builds the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	// URL is optional; an empty URL disables rate limiting
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type StorageConfig struct {
	// Driver is either "local" or "s3"
	Driver    string `koanf:"driver"`
	MediaRoot string `koanf:"media_root"`
	MediaURL  string `koanf:"media_url"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	// PublicBaseURL overrides the https://<bucket>.s3.amazonaws.com prefix
	PublicBaseURL string `koanf:"public_base_url"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Window  time.Duration `koanf:"window"`
	Limit   int           `koanf:"limit"`
}

type PaginationConfig struct {
	PageSize    int `koanf:"page_size"`
	MaxPageSize int `koanf:"max_page_size"`
}

const defaultJWTSecret = "change-me"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ShutdownTimeout: 5 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost"},
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Name:            "foodgram",
			SSLMode:         "disable",
			SQLitePath:      "foodgram.db",
			MigrationsDir:   "migrations",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			SlowThreshold:   200 * time.Millisecond,
		},
		Storage: StorageConfig{
			Driver:    "local",
			MediaRoot: "media",
			MediaURL:  "/media/",
		},
		Auth: AuthConfig{
			JWTSecret: defaultJWTSecret,
			TokenTTL:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Window:  time.Minute,
			Limit:   60,
		},
		Pagination: PaginationConfig{
			PageSize:    6,
			MaxPageSize: 100,
		},
	}
}

// envMappings maps flat environment variable names to koanf paths
var envMappings = map[string]string{
	"server_host":             "server.host",
	"server_port":             "server.port",
	"public_url":              "server.public_url",
	"shutdown_timeout":        "server.shutdown_timeout",
	"cors_origins":            "server.cors_origins",
	"db_driver":               "database.driver",
	"db_host":                 "database.host",
	"db_port":                 "database.port",
	"db_user":                 "database.user",
	"db_password":             "database.password",
	"db_name":                 "database.name",
	"db_ssl_mode":             "database.ssl_mode",
	"sqlite_path":             "database.sqlite_path",
	"migrations_dir":          "database.migrations_dir",
	"db_max_open_conns":       "database.max_open_conns",
	"db_max_idle_conns":       "database.max_idle_conns",
	"db_conn_max_lifetime":    "database.conn_max_lifetime",
	"db_slow_threshold":       "database.slow_threshold",
	"redis_url":               "redis.url",
	"redis_password":          "redis.password",
	"redis_db":                "redis.db",
	"storage_driver":          "storage.driver",
	"media_root":              "storage.media_root",
	"media_url":               "storage.media_url",
	"s3_bucket_name":          "storage.bucket",
	"aws_region":              "storage.region",
	"s3_endpoint":             "storage.endpoint",
	"s3_public_base_url":      "storage.public_base_url",
	"jwt_secret":              "auth.jwt_secret",
	"token_ttl":               "auth.token_ttl",
	"log_level":               "logging.level",
	"log_format":              "logging.format",
	"log_caller":              "logging.caller",
	"rate_limit_enabled":      "rate_limit.enabled",
	"rate_limit_window":       "rate_limit.window",
	"rate_limit_requests":     "rate_limit.limit",
	"page_size":               "pagination.page_size",
	"max_page_size":           "pagination.max_page_size",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// secretMappings lists docker secrets that override sensitive settings
var secretMappings = map[string]string{
	"db_user":        "database.user",
	"db_password":    "database.password",
	"jwt_secret":     "auth.jwt_secret",
	"redis_password": "redis.password",
}

// LoadConfig loads configuration from, in increasing priority: built-in
// defaults, an optional YAML file, environment variables and docker secrets.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	for secret, path := range secretMappings {
		if value := readSecret(secret); value != "" {
			if err := k.Set(path, value); err != nil {
				return nil, errors.Wrapf(err, "failed to apply secret %s", secret)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}
	cfg.Environment = GetEnvironment()

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// readSecret reads a docker secret from SECRETS_DIR (default /run/secrets)
func readSecret(name string) string {
	dir := os.Getenv("SECRETS_DIR")
	if dir == "" {
		dir = "/run/secrets"
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
