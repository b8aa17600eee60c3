package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"blakkisvuohi/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Security   SecurityConfig   `yaml:"security"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken  string  `yaml:"bot_token"`
	Debug     bool    `yaml:"debug"`
	SendRPS   float64 `yaml:"send_rps"`
	SendBurst int     `yaml:"send_burst"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// StateTTL in seconds, 0 keeps pending flows until they end.
	StateTTL int `yaml:"state_ttl"`
}

type SecurityConfig struct {
	// EncryptionKey is a 64 char hex string (32 bytes).
	EncryptionKey string `yaml:"encryption_key"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
	EBACWindowHours   int `yaml:"ebac_window_hours"`
	RecentDrinks      int `yaml:"recent_drinks"`
	// Timezone names the zone used in exports.
	Timezone string `yaml:"timezone"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	return ValidateEncryptionKey(c.Security.EncryptionKey)
}

// ValidateEncryptionKey checks that key decodes to 32 bytes.
func ValidateEncryptionKey(key string) error {
	raw, err := hex.DecodeString(strings.TrimSpace(key))
	if err != nil {
		return fmt.Errorf("security.encryption_key must be hex: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("security.encryption_key must be 32 bytes, got %d", len(raw))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "blakkisvuohi"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Telegram.SendRPS == 0 {
		c.Telegram.SendRPS = models.SendRPS
	}
	if c.Telegram.SendBurst == 0 {
		c.Telegram.SendBurst = 5
	}
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "24h"
	}

	// Bot defaults
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
	if c.Bot.EBACWindowHours == 0 {
		c.Bot.EBACWindowHours = models.DefaultEBACWindowHours
	}
	if c.Bot.RecentDrinks == 0 {
		c.Bot.RecentDrinks = models.DefaultUniqueDrinks
	}
	if c.Bot.Timezone == "" {
		c.Bot.Timezone = "Europe/Helsinki"
	}
}
