package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL  = "http://localhost:8080/api"
	DefaultTimeout = 10 * time.Second
)

// Config holds settings shared by the CLI and the portal.
type Config struct {
	APIURL      string
	Timeout     time.Duration
	SessionFile string
	// SessionKey encrypts the persisted session when set. Must be 32 bytes.
	SessionKey []byte

	LogLevel    string
	Environment string

	Port           string
	AllowedOrigins []string

	ExportBucket    string
	ExportPrefix    string
	BQProject       string
	BQDataset       string
	BQTable         string
	CredentialsFile string
	ExportWorkers   int
}

// Production reports whether PII should be masked in logs.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment take precedence over .env.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		APIURL:          getenv("BANKX_API_URL", DefaultAPIURL),
		SessionFile:     getenv("BANKX_SESSION_FILE", defaultSessionFile()),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		Environment:     getenv("ENVIRONMENT", "development"),
		Port:            getenv("PORT", "8090"),
		AllowedOrigins:  []string{"*"},
		ExportBucket:    os.Getenv("EXPORT_BUCKET"),
		ExportPrefix:    getenv("EXPORT_PREFIX", "statements"),
		BQProject:       os.Getenv("BQ_PROJECT"),
		BQDataset:       getenv("BQ_DATASET", "bankx"),
		BQTable:         getenv("BQ_TABLE", "statement_transactions"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Timeout:         DefaultTimeout,
		ExportWorkers:   2,
	}

	if u, err := url.Parse(cfg.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("BANKX_API_URL %q is not an absolute URL", cfg.APIURL)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if v := os.Getenv("BANKX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("BANKX_TIMEOUT %q must be a positive duration", v)
		}
		cfg.Timeout = d
	}

	if v := os.Getenv("BANKX_SESSION_KEY"); v != "" {
		key, err := ParseKey(v)
		if err != nil {
			return nil, err
		}
		cfg.SessionKey = key
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("EXPORT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("EXPORT_WORKERS %q must be a positive integer", v)
		}
		cfg.ExportWorkers = n
	}

	return cfg, nil
}

// ParseKey decodes a 32-byte key given as hex or base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, errors.New("BANKX_SESSION_KEY must be 32 bytes, hex or base64 encoded")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bankx-session.json"
	}
	return filepath.Join(dir, "bankx", "session.json")
}
