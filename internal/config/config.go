// Package config provides YAML-based configuration loading for the station API.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// minSecretLen is the shortest accepted JWT signing secret.
const minSecretLen = 16

// Config is the top-level configuration, loaded from station.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Notify   NotifyConfig   `yaml:"notify"`
	Media    MediaConfig    `yaml:"media"`
	Seed     SeedConfig     `yaml:"seed"`
}

// DatabaseConfig holds connection settings for the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite only
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             int      `yaml:"port"`
	MediaDir         string   `yaml:"media_dir"`
	MediaURL         string   `yaml:"media_url"`
	CORSOrigins      []string `yaml:"cors_origins"`
	OrderPageSize    int      `yaml:"order_page_size"`
	OrderMaxPageSize int      `yaml:"order_max_page_size"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RedisConfig enables idempotent order creation when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ChatConfig identifies a bot and the channel it posts to.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both token and channel are configured.
func (c ChatConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// NotifyConfig configures booking notifications and the daily digest.
type NotifyConfig struct {
	Slack          ChatConfig `yaml:"slack"`
	Discord        ChatConfig `yaml:"discord"`
	DigestSchedule string     `yaml:"digest_schedule"`
}

// MediaConfig configures maintenance of uploaded images.
type MediaConfig struct {
	SweepSchedule string `yaml:"sweep_schedule"`
}

// SeedConfig lists reference data written by `db init`.
type SeedConfig struct {
	TrainTypes []string `yaml:"train_types"`
}

// Load reads an optional .env file, then a YAML config file from path,
// and returns a validated Config.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config. Environment
// overrides are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides secrets from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Database.Password, "STATION_DB_PASSWORD")
	set(&c.Auth.JWTSecret, "STATION_JWT_SECRET")
	set(&c.Redis.Addr, "STATION_REDIS_ADDR")
	set(&c.Notify.Slack.BotToken, "STATION_SLACK_TOKEN")
	set(&c.Notify.Discord.BotToken, "STATION_DISCORD_TOKEN")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMySQL
	}
	if c.Database.Driver == DriverMySQL {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "station"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.MediaDir == "" {
		c.Server.MediaDir = "media"
	}
	if c.Server.MediaURL == "" {
		c.Server.MediaURL = "/media/"
	}
	if !strings.HasSuffix(c.Server.MediaURL, "/") {
		c.Server.MediaURL += "/"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.OrderPageSize == 0 {
		c.Server.OrderPageSize = 15
	}
	if c.Server.OrderMaxPageSize == 0 {
		c.Server.OrderMaxPageSize = 90
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Notify.DigestSchedule == "" {
		c.Notify.DigestSchedule = "0 8 * * *"
	}
	if c.Media.SweepSchedule == "" {
		c.Media.SweepSchedule = "30 3 * * *"
	}
}

// cronParser accepts standard 5-field cron expressions.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (use mysql or sqlite)", c.Database.Driver))
	}
	if len(c.Auth.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Sprintf("auth.jwt_secret must be at least %d characters", minSecretLen))
	}
	if c.Auth.TokenTTL < 0 {
		errs = append(errs, "auth.token_ttl must be positive")
	}
	if c.Server.OrderMaxPageSize < 1 {
		errs = append(errs, "server.order_max_page_size must be positive")
	}
	if c.Server.OrderPageSize < 1 || c.Server.OrderPageSize > c.Server.OrderMaxPageSize {
		errs = append(errs, "server.order_page_size must be between 1 and server.order_max_page_size")
	}
	if _, err := cronParser.Parse(c.Notify.DigestSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("notify.digest_schedule: %v", err))
	}
	if _, err := cronParser.Parse(c.Media.SweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("media.sweep_schedule: %v", err))
	}
	for i, name := range c.Seed.TrainTypes {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Sprintf("seed.train_types[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
