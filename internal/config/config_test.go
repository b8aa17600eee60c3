package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blakkisvuohi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = strings.Repeat("ab", 32)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("BLAKKIS_TEST_KEY", testKey)

	yamlContent := `
telegram:
  bot_token: "test_token"
database:
  path: "test.db"
security:
  encryption_key: "${BLAKKIS_TEST_KEY}"
bot:
  ebac_window_hours: 12
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "test_token", cfg.Telegram.BotToken)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, testKey, cfg.Security.EncryptionKey)
	assert.Equal(t, 12, cfg.Bot.EBACWindowHours)
	assert.Equal(t, models.DefaultUniqueDrinks, cfg.Bot.RecentDrinks)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid sqlite",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
				Security: SecurityConfig{EncryptionKey: testKey},
			},
		},
		{
			name: "valid postgres",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
				Database: DatabaseConfig{Driver: "postgres", DSN: "postgres://localhost/blakkis"},
				Security: SecurityConfig{EncryptionKey: testKey},
			},
		},
		{
			name: "missing token",
			cfg: Config{
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
				Security: SecurityConfig{EncryptionKey: testKey},
			},
			wantErr: true,
		},
		{
			name: "postgres without dsn",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
				Database: DatabaseConfig{Driver: "postgres"},
				Security: SecurityConfig{EncryptionKey: testKey},
			},
			wantErr: true,
		},
		{
			name: "unknown driver",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
				Database: DatabaseConfig{Driver: "mysql", Path: "path"},
				Security: SecurityConfig{EncryptionKey: testKey},
			},
			wantErr: true,
		},
		{
			name: "short key",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
				Database: DatabaseConfig{Driver: "sqlite3", Path: "path"},
				Security: SecurityConfig{EncryptionKey: "abcd"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{Monitoring: MonitoringConfig{PrometheusEnabled: true}}
	cfg.applyDefaults()

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 9090, cfg.Monitoring.PrometheusPort)
	assert.Equal(t, models.RateLimitMessages, cfg.Bot.RateLimitMessages)
	assert.Equal(t, models.RateLimitWindow, cfg.Bot.RateLimitWindow)
	assert.Equal(t, models.DefaultEBACWindowHours, cfg.Bot.EBACWindowHours)
	assert.Equal(t, float64(models.SendRPS), cfg.Telegram.SendRPS)
	assert.Equal(t, "24h", cfg.Backup.Schedule)
}
