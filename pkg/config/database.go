package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported database URL schemes.
const (
	SchemePostgres   = "postgres://"
	SchemePostgreSQL = "postgresql://"
	SchemeSQLite     = "sqlite://"
)

type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Migrate bool          `koanf:"migrate"`
}

// String returns a string representation of the database configuration with credentials masked.
func (c *DatabaseConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Database ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", MaskURL(c.URL)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  migrate: %t\n", c.Migrate))
	return b.String()
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !IsPostgresURL(c.URL) && !IsSQLiteURL(c.URL) {
		return fmt.Errorf("database URL must start with 'postgres://' or 'sqlite://': %s", MaskURL(c.URL))
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout must be greater than 0")
	}
	return nil
}

// IsPostgresURL checks if the provided URL is a valid PostgreSQL URL
func IsPostgresURL(url string) bool {
	return strings.HasPrefix(url, SchemePostgres) ||
		strings.HasPrefix(url, SchemePostgreSQL)
}

// IsSQLiteURL checks if the provided URL points to a SQLite database file.
func IsSQLiteURL(url string) bool {
	return strings.HasPrefix(url, SchemeSQLite) && len(url) > len(SchemeSQLite)
}

// MaskURL hides the credentials part of a connection URL.
func MaskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	if IsSQLiteURL(url) {
		return url
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}
