package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envKeyReplacer maps "gateway.api_url" to GATEWAY_API_URL and so on.
var envKeyReplacer = strings.NewReplacer(".", "_")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "release" or "debug"
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"` // full DSN wins when set
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type GatewayConfig struct {
	APIURL string `mapstructure:"api_url"`
	APIKey string `mapstructure:"api_key"`
	// WebhookSecret empty means unsigned webhooks are accepted (local/dev
	// only, deliberately permissive).
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
	Mode          string `mapstructure:"mode"` // "live" or "sandbox"
}

// Load reads configuration from environment variables (SERVER_PORT,
// DATABASE_URL, GATEWAY_API_KEY, ...), with an optional yaml file for local
// development.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "marketplace")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("gateway.api_url", "")
	v.SetDefault("gateway.api_key", "")
	v.SetDefault("gateway.webhook_secret", "")
	v.SetDefault("gateway.currency", "USD")
	v.SetDefault("gateway.success_url", "")
	v.SetDefault("gateway.cancel_url", "")
	v.SetDefault("gateway.mode", "live")

	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the payment path cannot run without.
func (c *Config) Validate() error {
	if c.Gateway.APIURL == "" || c.Gateway.APIKey == "" {
		return fmt.Errorf("gateway configuration missing (GATEWAY_API_URL, GATEWAY_API_KEY)")
	}
	if c.Gateway.SuccessURL == "" || c.Gateway.CancelURL == "" {
		return fmt.Errorf("gateway redirect URLs missing (GATEWAY_SUCCESS_URL, GATEWAY_CANCEL_URL)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret missing (AUTH_JWT_SECRET)")
	}
	return nil
}

// DSN builds the postgres connection string when DATABASE_URL is not set.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.User, c.Password, c.Name, c.Port,
	)
}

func (c *GatewayConfig) Sandbox() bool {
	return c.Mode == "sandbox" || c.Mode == "dev"
}
