package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env                  string        `env:"ENV"                   envDefault:"dev"`  // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"` // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"` // json, text
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	Issuer         string        `env:"AUTH_ISSUER"           envDefault:"rollcall-auth"`
	DatabaseFile   string        `env:"AUTH_DATABASE_FILE"    envDefault:"auth.db"`
	PepperFile     string        `env:"AUTH_PEPPER_FILE"      envDefault:"pepper"`
	SigningKeyFile string        `env:"AUTH_SIGNING_KEY_FILE"` // empty: ephemeral key
	AccessTTL      time.Duration `env:"AUTH_ACCESS_TTL"       envDefault:"15m"`
	RefreshTTL     time.Duration `env:"AUTH_REFRESH_TTL"      envDefault:"168h"`

	InviteExpiryDays int    `env:"INVITE_EXPIRY_DAYS" envDefault:"7"`
	FrontendURL      string `env:"FRONTEND_URL"       envDefault:"http://localhost:3000"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	StoreTimeout   time.Duration `env:"STORE_TIMEOUT"   envDefault:"5s"`
	StartupTimeout time.Duration `env:"STARTUP_TIMEOUT" envDefault:"30s"`

	// Mail is logged and dropped when SMTPHost is empty.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"     envDefault:"no-reply@rollcall.local"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// InviteExpiry is the lifetime of a freshly sent invite.
func (c Config) InviteExpiry() time.Duration {
	return time.Duration(c.InviteExpiryDays) * 24 * time.Hour
}

func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL and AUTH_REFRESH_TTL must be positive"))
	}
	if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL"))
	}
	if c.InviteExpiryDays < 1 {
		errs = append(errs, fmt.Errorf("INVITE_EXPIRY_DAYS must be at least 1, got %d", c.InviteExpiryDays))
	}
	if u, err := url.Parse(c.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("FRONTEND_URL must be an absolute URL: %q", c.FrontendURL))
	}
	if c.StoreTimeout <= 0 || c.StartupTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT and STARTUP_TIMEOUT must be positive"))
	}
	if c.SMTPHost != "" && c.MailFrom == "" {
		errs = append(errs, errors.New("MAIL_FROM is required when SMTP_HOST is set"))
	}

	return errors.Join(errs...)
}
