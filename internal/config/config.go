package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/scanpay/scanpay-api/internal/repository"
	"github.com/scanpay/scanpay-api/internal/saltedge"
)

const callbackPath = "/api/saltedge/callbacks"

// SaltEdge holds what the aggregator client and the operator CLI need.
type SaltEdge struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:3000"`

	SaltEdgeAppID             string `env:"SALTEDGE_APP_ID"`
	SaltEdgeSecret            string `env:"SALTEDGE_SECRET"`
	SaltEdgeBaseURL           string `env:"SALTEDGE_BASE_URL" envDefault:"https://www.saltedge.com/api/v6"`
	SaltEdgeEnvironment       string `env:"SALTEDGE_ENVIRONMENT" envDefault:"sandbox"`
	SaltEdgeCallbackURL       string `env:"SALTEDGE_CALLBACK_URL"`
	SaltEdgeCallbackPublicKey string `env:"SALTEDGE_CALLBACK_PUBLIC_KEY"`
}

type Config struct {
	SaltEdge

	Port int `env:"PORT" envDefault:"8080"`

	DatabaseURL        string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxOpenConns     int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int    `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int    `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int    `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`

	AuthURL       string `env:"AUTH_URL"`
	AuthAnonKey   string `env:"AUTH_ANON_KEY"`
	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required,notEmpty"`

	ResendAPIKey   string `env:"RESEND_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"ScanPay <hello@scanpay.app>"`
	ContactEmailTo string `env:"CONTACT_EMAIL_TO"`

	RecaptchaSecretKey string  `env:"RECAPTCHA_SECRET_KEY"`
	RecaptchaMinScore  float64 `env:"RECAPTCHA_MIN_SCORE" envDefault:"0.5"`
	RecaptchaAction    string  `env:"RECAPTCHA_ACTION" envDefault:"contact_form"`
	TurnstileSecretKey string  `env:"TURNSTILE_SECRET_KEY"`

	ReplicateAPIToken string `env:"REPLICATE_API_TOKEN"`
	ReplicateModel    string `env:"REPLICATE_MODEL" envDefault:"ibm-granite/granite-3.3-8b-instruct"`
}

// Load reads an optional .env file, then the process environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.SaltEdge.Validate(); err != nil {
		return err
	}
	if c.RecaptchaMinScore < 0 || c.RecaptchaMinScore > 1 {
		return fmt.Errorf("RECAPTCHA_MIN_SCORE must be between 0 and 1, got %v", c.RecaptchaMinScore)
	}
	return nil
}

// LoadSaltEdge parses only the aggregator settings. It has no database or
// session requirements.
func LoadSaltEdge() (*SaltEdge, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("config.LoadSaltEdge: %w", err)
	}

	cfg, err := env.ParseAs[SaltEdge]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadSaltEdge: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.LoadSaltEdge: %w", err)
	}
	return &cfg, nil
}

func (c *SaltEdge) Validate() error {
	if !saltedge.Environment(c.SaltEdgeEnvironment).IsValid() {
		return fmt.Errorf("SALTEDGE_ENVIRONMENT must be sandbox or live, got %q", c.SaltEdgeEnvironment)
	}
	return nil
}

func (c *SaltEdge) ClientConfig() saltedge.Config {
	return saltedge.Config{
		AppID:       c.SaltEdgeAppID,
		Secret:      c.SaltEdgeSecret,
		BaseURL:     c.SaltEdgeBaseURL,
		Environment: saltedge.Environment(c.SaltEdgeEnvironment),
	}
}

// CallbackURL is the URL Salt Edge signs callbacks against. It defaults to
// the callback route under BASE_URL.
func (c *SaltEdge) CallbackURL() string {
	if c.SaltEdgeCallbackURL != "" {
		return c.SaltEdgeCallbackURL
	}
	return strings.TrimRight(c.BaseURL, "/") + callbackPath
}

func (c *Config) Pool() repository.PoolConfig {
	return repository.PoolConfig{
		MaxOpenConns:     c.DBMaxOpenConns,
		MaxIdleConns:     c.DBMaxIdleConns,
		ConnMaxLifetimeS: c.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: c.DBConnMaxIdleTimeS,
	}
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf(".env: %w", err)
	}
	return nil
}
