// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename" env:"DATABASE_FILENAME"`
}

type AuthConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
	Issuer   string        `yaml:"issuer"`
}

type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	LoginMaxAttempts  int           `yaml:"login_max_attempts"`
	LoginLockout      time.Duration `yaml:"login_lockout"`
	LoginMaxIPPerHour int           `yaml:"login_max_ip_per_hour"`
	TrustProxy        bool          `yaml:"trust_proxy"`
}

type EmailConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Sender          string `yaml:"sender"`
	AccessKeyID     string `yaml:"-" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"AWS_SECRET_ACCESS_KEY"`
}

type AlertsConfig struct {
	Recipients []string      `yaml:"recipients"`
	Cooldown   time.Duration `yaml:"cooldown"`
}

type TwizzitConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	SyncCron      string        `yaml:"sync_cron"`
	EncryptionKey string        `yaml:"-" env:"TWIZZIT_ENCRYPTION_KEY"`
}

type NATSConfig struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type ReportsConfig struct {
	PollCron string `yaml:"poll_cron"`
}

type Config struct {
	App struct {
		Name          string   `yaml:"name"`
		Environment   string   `yaml:"environment"`
		Port          int      `yaml:"port"`
		BaseURL       string   `yaml:"base_url"`
		CORSOrigins   []string `yaml:"cors_origins"`
		DefaultRegion string   `yaml:"default_region"`
		SecretKey     string   `yaml:"-" env:"APP_SECRET_KEY"` // Loaded from environment

		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"app"`

	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Email     EmailConfig     `yaml:"email"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Twizzit   TwizzitConfig   `yaml:"twizzit"`
	NATS      NATSConfig      `yaml:"nats"`
	Reports   ReportsConfig   `yaml:"reports"`
}

// Load reads the .env file next to configPath (if any), the YAML config, and
// then environment overrides for secrets.
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from YAML bytes plus the process environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.applyDefaults()

	// env tags only touch secrets and a handful of deployment overrides
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 30 * time.Second
	}
	if c.App.DefaultRegion == "" {
		c.App.DefaultRegion = "BE"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "shotspot"
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 300
	}
	if c.RateLimit.LoginMaxAttempts <= 0 {
		c.RateLimit.LoginMaxAttempts = 5
	}
	if c.RateLimit.LoginLockout <= 0 {
		c.RateLimit.LoginLockout = 15 * time.Minute
	}
	if c.RateLimit.LoginMaxIPPerHour <= 0 {
		c.RateLimit.LoginMaxIPPerHour = 50
	}
	if c.Alerts.Cooldown <= 0 {
		c.Alerts.Cooldown = 15 * time.Minute
	}
	if c.Twizzit.BaseURL == "" {
		c.Twizzit.BaseURL = "https://app.twizzit.com"
	}
	if c.Twizzit.Timeout <= 0 {
		c.Twizzit.Timeout = 15 * time.Second
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "shotspot"
	}
	if c.Reports.PollCron == "" {
		c.Reports.PollCron = "* * * * *"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if len(c.App.SecretKey) < 16 {
		return fmt.Errorf("APP_SECRET_KEY must be at least 16 characters")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Email.Enabled {
		if c.Email.Region == "" || c.Email.Sender == "" {
			return fmt.Errorf("email region and sender are required when email is enabled")
		}
		if c.Email.AccessKeyID == "" || c.Email.SecretAccessKey == "" {
			return fmt.Errorf("AWS credentials are required when email is enabled")
		}
	}

	for _, recipient := range c.Alerts.Recipients {
		if !strings.Contains(recipient, "@") {
			return fmt.Errorf("invalid alert recipient: %q", recipient)
		}
	}

	return nil
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// TwizzitSecret returns the key material used for credential encryption,
// falling back to the app secret when no dedicated key is configured.
func (c *Config) TwizzitSecret() string {
	if c.Twizzit.EncryptionKey != "" {
		return c.Twizzit.EncryptionKey
	}
	return c.App.SecretKey
}
