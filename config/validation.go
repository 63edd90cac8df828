package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError

	if cfg.Server.Port == "" {
		errs = append(errs, ValidationError{"server.port", "is required"})
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			errs = append(errs, ValidationError{"database", "host and name are required for postgres"})
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			errs = append(errs, ValidationError{"database.sqlite_path", "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{"database.driver", fmt.Sprintf("unsupported driver %q", cfg.Database.Driver)})
	}

	switch cfg.Storage.Driver {
	case "local":
		if cfg.Storage.MediaRoot == "" {
			errs = append(errs, ValidationError{"storage.media_root", "is required for local storage"})
		}
	case "s3":
		if cfg.Storage.Bucket == "" {
			errs = append(errs, ValidationError{"storage.bucket", "is required for s3 storage"})
		}
	default:
		errs = append(errs, ValidationError{"storage.driver", fmt.Sprintf("unsupported driver %q", cfg.Storage.Driver)})
	}

	if cfg.Auth.TokenTTL <= 0 {
		errs = append(errs, ValidationError{"auth.token_ttl", "must be positive"})
	}
	if cfg.Pagination.PageSize <= 0 || cfg.Pagination.MaxPageSize < cfg.Pagination.PageSize {
		errs = append(errs, ValidationError{"pagination", "page_size must be positive and not exceed max_page_size"})
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.Limit <= 0 || cfg.RateLimit.Window <= 0) {
		errs = append(errs, ValidationError{"rate_limit", "limit and window must be positive"})
	}

	// Production and CI must not run with the built-in secret
	if cfg.Environment == Production || cfg.Environment == CI {
		if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == defaultJWTSecret {
			errs = append(errs, ValidationError{"auth.jwt_secret", "jwt_secret secret is required"})
		}
		if cfg.Database.Driver == "postgres" && cfg.Database.Password == "" {
			errs = append(errs, ValidationError{"database.password", "db_password secret is required"})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("configuration validation failed:\n%s", strings.Join(msgs, "\n"))
}
