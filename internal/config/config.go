package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "shop.yml"

// Defaults applied by Validate.
const (
	DefaultBaseURL         = "http://localhost:8000/api"
	DefaultCallbackAddr    = "127.0.0.1:8765"
	DefaultFallbackBaseURL = "https://checkout.stripe.com/c/pay/"
	DefaultCatalogTTL      = 5 * time.Minute
	DefaultPrefetch        = 4
	DefaultProfile         = "default"
)

// ShopConfig represents the top-level shop.yml configuration
type ShopConfig struct {
	Version  string         `yaml:"version"`
	API      APIConfig      `yaml:"api"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	State    StateConfig    `yaml:"state"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig points at the storefront backend
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout,omitempty"` // 0 = transport default
}

// CheckoutConfig controls the hosted-payment hand-off
type CheckoutConfig struct {
	CallbackAddr    string `yaml:"callback_addr,omitempty"`
	FallbackBaseURL string `yaml:"fallback_base_url,omitempty"` // Used only when the backend omits the hosted URL
	OpenBrowser     *bool  `yaml:"open_browser,omitempty"`      // Default: true
}

// CatalogConfig controls catalog caching
type CatalogConfig struct {
	TTL      time.Duration `yaml:"ttl,omitempty"`
	Prefetch int           `yaml:"prefetch,omitempty"` // Max concurrent detail fetches
}

// StateConfig selects where client state is persisted
type StateConfig struct {
	Backend  string `yaml:"backend,omitempty"` // bolt, redis or memory
	Path     string `yaml:"path,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty"`
	Profile  string `yaml:"profile,omitempty"`
}

// LogConfig controls diagnostic logging on stderr
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // console or json
}

// MaxProfileLength bounds profile names, which become key namespaces.
const MaxProfileLength = 63

// ProfilePattern allows lowercase alphanumerics with inner hyphens.
var ProfilePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateProfileName checks a state profile name.
func ValidateProfileName(name string) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if len(name) > MaxProfileLength {
		return fmt.Errorf("profile name too long: %d characters (max: %d)", len(name), MaxProfileLength)
	}

	if !ProfilePattern.MatchString(name) {
		return fmt.Errorf("invalid profile name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}

// envOverrides are read after the file so the environment always wins.
type envOverrides struct {
	APIURL       string        `env:"SHOP_API_URL"`
	APITimeout   time.Duration `env:"SHOP_API_TIMEOUT"`
	StateBackend string        `env:"SHOP_STATE_BACKEND"`
	StatePath    string        `env:"SHOP_STATE_PATH"`
	RedisURL     string        `env:"SHOP_REDIS_URL"`
	Profile      string        `env:"SHOP_PROFILE"`
	LogLevel     string        `env:"SHOP_LOG_LEVEL"`
	LogFormat    string        `env:"SHOP_LOG_FORMAT"`
}

// OpenBrowserEnabled reports whether checkout should launch a browser.
func (c *CheckoutConfig) OpenBrowserEnabled() bool {
	return c.OpenBrowser == nil || *c.OpenBrowser
}

// Validate performs strict validation on the configuration and fills defaults
func (c *ShopConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be >= 0, got %s", c.API.Timeout)
	}

	if c.Checkout.CallbackAddr == "" {
		c.Checkout.CallbackAddr = DefaultCallbackAddr
	}
	if c.Checkout.FallbackBaseURL == "" {
		c.Checkout.FallbackBaseURL = DefaultFallbackBaseURL
	}

	if c.Catalog.TTL == 0 {
		c.Catalog.TTL = DefaultCatalogTTL
	}
	if c.Catalog.TTL < 0 {
		return fmt.Errorf("catalog.ttl must be > 0, got %s", c.Catalog.TTL)
	}
	if c.Catalog.Prefetch == 0 {
		c.Catalog.Prefetch = DefaultPrefetch
	}
	if c.Catalog.Prefetch < 1 {
		return fmt.Errorf("catalog.prefetch must be >= 1, got %d", c.Catalog.Prefetch)
	}

	if c.State.Backend == "" {
		c.State.Backend = "bolt"
	}
	if c.State.Profile == "" {
		c.State.Profile = DefaultProfile
	}
	if err := ValidateProfileName(c.State.Profile); err != nil {
		return err
	}
	switch c.State.Backend {
	case "bolt":
		if c.State.Path == "" {
			path, err := defaultStatePath()
			if err != nil {
				return err
			}
			c.State.Path = path
		}
	case "redis":
		if c.State.RedisURL == "" {
			return fmt.Errorf("state.redis_url is required when state.backend is 'redis'")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid state.backend: %s (must be 'bolt', 'redis', or 'memory')", c.State.Backend)
	}

	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format: %s (must be 'console' or 'json')", c.Log.Format)
	}

	return nil
}

// Load reads and validates shop.yml from the specified path
func Load(path string) (*ShopConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config ShopConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Resolve builds the effective configuration for a CLI run: .env is loaded
// into the process environment, path is read if it exists (a missing file
// means defaults), then SHOP_* variables override individual fields.
func Resolve(path string) (*ShopConfig, error) {
	_ = godotenv.Load()

	config := &ShopConfig{Version: "1.0"}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse YAML: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func applyEnv(c *ShopConfig) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	setIf(&c.API.BaseURL, o.APIURL)
	setIf(&c.State.Backend, o.StateBackend)
	setIf(&c.State.Path, o.StatePath)
	setIf(&c.State.RedisURL, o.RedisURL)
	setIf(&c.State.Profile, o.Profile)
	setIf(&c.Log.Level, o.LogLevel)
	setIf(&c.Log.Format, o.LogFormat)
	if o.APITimeout != 0 {
		c.API.Timeout = o.APITimeout
	}
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func defaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir (set state.path): %w", err)
	}
	return filepath.Join(dir, "shop", "state.db"), nil
}
