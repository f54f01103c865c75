package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// Optional second OIDC provider (e.g. a pre-existing company IdP).
	// Registered only when an issuer is configured.
	OIDCProviderName string `env:"OIDC_PROVIDER_NAME" envDefault:"oidc"`
	OIDCIssuer       string `env:"OIDC_ISSUER"`
	OIDCClientID     string `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `env:"OIDC_REDIRECT_URL"`

	SessionSecret       string        `env:"SESSION_SECRET,required"`
	SessionMaxAge       time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`

	DirectoryEndpoint string        `env:"DIRECTORY_ENDPOINT,required"`
	DirectoryTimeout  time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"5s"`

	// When true, logins require a pre-registered directory record.
	RequireDirectoryAccount bool `env:"REQUIRE_DIRECTORY_ACCOUNT" envDefault:"false"`

	// Redis is optional; without it sessions fall back to process memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	DatabaseDSN string `env:"DATABASE_DSN,required"`
}

// Load reads configuration from the environment, after loading a .env
// file when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
