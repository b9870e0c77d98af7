package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Session   SessionConfig   `mapstructure:"session"`
	Claims    ClaimsConfig    `mapstructure:"claims"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Workers   WorkersConfig   `mapstructure:"workers"`
}

type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
}

type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"` // sqlite or postgres
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// AuthConfig describes how bearer tokens minted by the identity provider are verified.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type SessionConfig struct {
	SigningKey      string        `mapstructure:"signing_key"`
	PairingKey      string        `mapstructure:"pairing_key"`
	KioskCookieName string        `mapstructure:"kiosk_cookie_name"`
	ChildCookieName string        `mapstructure:"child_cookie_name"`
	KioskTTL        time.Duration `mapstructure:"kiosk_ttl"`
	ChildPinTTL     time.Duration `mapstructure:"child_pin_ttl"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

type ClaimsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type RateLimitConfig struct {
	PairingPerMinute int `mapstructure:"pairing_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type WorkersConfig struct {
	PruneInterval    time.Duration `mapstructure:"prune_interval"`
	RevokedRetention time.Duration `mapstructure:"revoked_retention"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.public_base_url", "http://localhost:8080")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "file:ukepenger.db")
	v.SetDefault("database.max_connections", 10)

	// Secrets have empty defaults so AutomaticEnv can see their keys.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.access_token_ttl", time.Hour)

	v.SetDefault("session.signing_key", "")
	v.SetDefault("session.pairing_key", "")

	v.SetDefault("session.kiosk_cookie_name", "uk_kiosk")
	v.SetDefault("session.child_cookie_name", "uk_kid")
	v.SetDefault("session.kiosk_ttl", 365*24*time.Hour)
	v.SetDefault("session.child_pin_ttl", 24*time.Hour)
	v.SetDefault("session.secure_cookies", true)

	v.SetDefault("claims.cooldown", 10*time.Second)
	v.SetDefault("rate_limit.pairing_per_minute", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("workers.prune_interval", time.Hour)
	v.SetDefault("workers.revoked_retention", 30*24*time.Hour)
}

// Load reads the YAML file at path (if present), an optional .env file and
// the process environment. Environment keys use "_" for nesting, e.g.
// SESSION_SIGNING_KEY.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if len(c.Session.SigningKey) < 32 {
		return errors.New("session.signing_key must be at least 32 characters")
	}
	if len(c.Session.PairingKey) < 32 {
		return errors.New("session.pairing_key must be at least 32 characters")
	}
	if c.Claims.Cooldown <= 0 {
		return errors.New("claims.cooldown must be positive")
	}
	return nil
}
