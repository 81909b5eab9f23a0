package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Port               string        `yaml:"port"`
	PublicBaseURL      string        `yaml:"public_base_url"`
	CatalogTitle       string        `yaml:"catalog_title"`
	GutendexURL        string        `yaml:"gutendex_url"`
	UserAgent          string        `yaml:"user_agent"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RateLimitRPS       int           `yaml:"rate_limit_rps"`
	SearchDebounce     time.Duration `yaml:"search_debounce"`
	PlaceholderCover   string        `yaml:"placeholder_cover"`
	GenreLabelsPath    string        `yaml:"genre_labels_path"`
	DatabasePath       string        `yaml:"database_path"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	WishlistFetchLimit int           `yaml:"wishlist_fetch_limit"`
	BasicAuthEnabled   bool          `yaml:"basic_auth_enabled"`
	BasicAuthUser      string        `yaml:"basic_auth_user"`
	BasicAuthPass      string        `yaml:"basic_auth_pass"`
	LogLevel           string        `yaml:"log_level"`
	LogFormat          string        `yaml:"log_format"`

	// BasicAuthHash is the bcrypt hash of BasicAuthPass, computed at load time
	BasicAuthHash []byte `yaml:"-"`
}

// LoadConfig loads configuration from .env, an optional YAML file named by
// BOOKSHELF_CONFIG, and environment variables, in increasing priority
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaults()
	if path := os.Getenv("BOOKSHELF_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.hashBasicAuth(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:               "9090",
		CatalogTitle:       "Bookshelf",
		GutendexURL:        "https://gutendex.com",
		UserAgent:          "bookshelf/1.0 (+https://github.com/piligrim/bookshelf)",
		RequestTimeout:     15 * time.Second,
		RateLimitRPS:       5,
		SearchDebounce:     300 * time.Millisecond,
		PlaceholderCover:   "/static/default-cover.svg",
		DatabasePath:       "./cache/bookshelf.db",
		SessionTTL:         30 * time.Minute,
		WishlistFetchLimit: 256,
		BasicAuthUser:      "reader",
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// mergeFile overlays values present in a YAML file
func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.PublicBaseURL = getEnvOrDefault("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.CatalogTitle = getEnvOrDefault("CATALOG_TITLE", c.CatalogTitle)
	c.GutendexURL = getEnvOrDefault("GUTENDEX_URL", c.GutendexURL)
	c.UserAgent = getEnvOrDefault("USER_AGENT", c.UserAgent)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.SearchDebounce = getEnvDuration("SEARCH_DEBOUNCE", c.SearchDebounce)
	c.PlaceholderCover = getEnvOrDefault("PLACEHOLDER_COVER", c.PlaceholderCover)
	c.GenreLabelsPath = getEnvOrDefault("GENRE_LABELS_PATH", c.GenreLabelsPath)
	c.DatabasePath = getEnvOrDefault("DATABASE_PATH", c.DatabasePath)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.WishlistFetchLimit = getEnvInt("WISHLIST_FETCH_LIMIT", c.WishlistFetchLimit)
	c.BasicAuthEnabled = getEnvBool("BASIC_AUTH_ENABLED", c.BasicAuthEnabled)
	c.BasicAuthUser = getEnvOrDefault("BASIC_AUTH_USER", c.BasicAuthUser)
	c.BasicAuthPass = getEnvOrDefault("BASIC_AUTH_PASS", c.BasicAuthPass)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)
}

// Validate reports configuration values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %q", c.Port))
	}
	if u, err := url.Parse(c.GutendexURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid GUTENDEX_URL %q", c.GutendexURL))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimitRPS))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.SearchDebounce < 0 {
		errs = append(errs, errors.New("SEARCH_DEBOUNCE must not be negative"))
	}
	if c.WishlistFetchLimit <= 0 {
		errs = append(errs, errors.New("WISHLIST_FETCH_LIMIT must be positive"))
	}
	if c.BasicAuthEnabled && (c.BasicAuthUser == "" || c.BasicAuthPass == "") {
		errs = append(errs, errors.New("basic auth enabled without BASIC_AUTH_USER/BASIC_AUTH_PASS"))
	}

	return errors.Join(errs...)
}

// BaseURL returns the public base URL without a trailing slash
func (c *Config) BaseURL() string {
	base := strings.TrimSpace(c.PublicBaseURL)
	if base == "" {
		base = "http://localhost:" + c.Port
	}
	return strings.TrimSuffix(base, "/")
}

func (c *Config) hashBasicAuth() error {
	if !c.BasicAuthEnabled {
		return nil
	}
	// Accept an already hashed password as-is.
	if strings.HasPrefix(c.BasicAuthPass, "$2") {
		c.BasicAuthHash = []byte(c.BasicAuthPass)
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.BasicAuthPass), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash basic auth password: %w", err)
	}
	c.BasicAuthHash = hash
	return nil
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns environment variable as boolean or default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
