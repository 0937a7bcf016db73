package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// MinProductionBcryptCost is the lowest bcrypt cost accepted outside development.
	MinProductionBcryptCost = 12
)

type Config struct {
	Server struct {
		Port       string `mapstructure:"port"`
		Env        string `mapstructure:"env"`
		TrustProxy bool   `mapstructure:"trust_proxy"`
		CORSOrigin string `mapstructure:"cors_origin"`
	} `mapstructure:"server"`
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"database"`
	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	JWT struct {
		SecretKey string        `mapstructure:"secret_key"`
		Issuer    string        `mapstructure:"issuer"`
		AccessTTL time.Duration `mapstructure:"access_ttl"`
	} `mapstructure:"jwt"`
	Auth struct {
		RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
		BcryptCost int           `mapstructure:"bcrypt_cost"`
		CookieName string        `mapstructure:"cookie_name"`
		CookiePath string        `mapstructure:"cookie_path"`
	} `mapstructure:"auth"`
	RateLimit struct {
		Login        int           `mapstructure:"login"`
		Register     int           `mapstructure:"register"`
		Session      int           `mapstructure:"session"`
		Window       time.Duration `mapstructure:"window"`
		APIPerMinute int           `mapstructure:"api_per_minute"`
	} `mapstructure:"rate_limit"`
	App struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"app"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

var AppConfig Config

// IsDevelopment reports whether the service runs on a developer machine.
// Cookies are only sent without the Secure flag in this mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}

// Location returns the time zone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.cors_origin", "http://localhost:5173")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "trips")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.issuer", "go-trip-api")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)

	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", MinProductionBcryptCost)
	v.SetDefault("auth.cookie_name", "refresh_token")
	v.SetDefault("auth.cookie_path", "/api/v1/auth")

	v.SetDefault("rate_limit.login", 10)
	v.SetDefault("rate_limit.register", 20)
	v.SetDefault("rate_limit.session", 30)
	v.SetDefault("rate_limit.window", 15*time.Minute)
	v.SetDefault("rate_limit.api_per_minute", 300)

	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads config.yml from path (optional) and applies TRIP_* environment
// overrides, e.g. TRIP_JWT_SECRET_KEY for jwt.secret_key.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("TRIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads the configuration into AppConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = *cfg
	return nil
}

// Validate rejects settings that would weaken the session protocol.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("jwt.access_ttl must be positive")
	}
	if c.Auth.RefreshTTL <= 0 {
		return errors.New("auth.refresh_ttl must be positive")
	}
	if !c.IsDevelopment() && c.Auth.BcryptCost < MinProductionBcryptCost {
		return fmt.Errorf("auth.bcrypt_cost must be at least %d outside development", MinProductionBcryptCost)
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}
	return nil
}
