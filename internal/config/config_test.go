// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/staffbot/internal/grant"
)

const validYAML = `
discord:
  token: "bot-token"
  guild_id: "g1"
  application_id: "app1"

channels:
  watched_log: "c-log"
  staff_alert: "c-staff"

operator_id: "op-1"

roles:
  leo_car_perms: "r-leo"
  exotic_car_perms: "r-exotic"

allowed_roles:
  give: ["r-admin", "r-mod"]

database:
  path: "./test.db"

retention:
  max_age: "168h"
  sweep_interval: "6h"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  addr: "127.0.0.1:9100"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)

	assert.Equal(t, "bot-token", cfg.Discord.Token)
	assert.Equal(t, "g1", cfg.Discord.GuildID)
	assert.Equal(t, "app1", cfg.Discord.ApplicationID)
	assert.Equal(t, "c-log", cfg.Channels.WatchedLog)
	assert.Equal(t, "c-staff", cfg.Channels.StaffAlert)
	assert.Equal(t, "op-1", cfg.OperatorID)
	assert.Equal(t, "r-leo", cfg.Roles["leo_car_perms"])
	assert.Equal(t, []string{"r-admin", "r-mod"}, cfg.AllowedRoles.Give)
	assert.Equal(t, "./test.db", cfg.Database.Path)
	assert.Equal(t, 168*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, 6*time.Hour, cfg.Retention.SweepInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.False(t, cfg.Matrix.Enabled)
}

func TestLoad_TOML(t *testing.T) {
	content := `
operator_id = "op-1"

[discord]
token = "bot-token"
guild_id = "g1"

[channels]
watched_log = "c-log"

[roles]
leo_car_perms = "r-leo"

[allowed_roles]
give = ["r-admin"]

[database]
path = "bot.db"

[retention]
max_age = "48h"
`
	cfg, err := Load(writeConfig(t, "config.toml", content))
	require.NoError(t, err)

	assert.Equal(t, "bot-token", cfg.Discord.Token)
	assert.Equal(t, "c-log", cfg.Channels.StaffAlert, "staff alert defaults to the watched channel")
	assert.Equal(t, "r-leo", cfg.Roles["leo_car_perms"])
	assert.Equal(t, 48*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, 24*time.Hour, cfg.Retention.SweepInterval)
}

func TestLoad_Defaults(t *testing.T) {
	content := `
discord: {token: t, guild_id: g}
channels: {watched_log: c}
operator_id: o
database: {path: x.db}
metrics: {enabled: true}
`
	cfg, err := Load(writeConfig(t, "config.yaml", content))
	require.NoError(t, err)

	assert.Equal(t, "c", cfg.Channels.StaffAlert)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, 24*time.Hour, cfg.Retention.SweepInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("STAFFBOT_TEST_TOKEN", "from-env")

	content := `
discord: {token: "${STAFFBOT_TEST_TOKEN}", guild_id: g}
channels: {watched_log: c}
operator_id: o
database: {path: x.db}
`
	cfg, err := Load(writeConfig(t, "config.yaml", content))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.Token)
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	content := `
discord: {token: "${STAFFBOT_TEST_DEFINITELY_UNSET}", guild_id: g}
channels: {watched_log: c}
operator_id: o
database: {path: x.db}
`
	_, err := Load(writeConfig(t, "config.yaml", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord.token is required")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", "discord: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_InvalidDuration(t *testing.T) {
	content := `
discord: {token: t, guild_id: g}
channels: {watched_log: c}
operator_id: o
database: {path: x.db}
retention: {max_age: "a month"}
`
	_, err := Load(writeConfig(t, "config.yaml", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing max_age")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Discord:    DiscordConfig{Token: "t", GuildID: "g"},
			Channels:   ChannelsConfig{WatchedLog: "c"},
			OperatorID: "o",
			Database:   DatabaseConfig{Path: "x.db"},
			Logging:    LoggingConfig{Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing token", func(c *Config) { c.Discord.Token = "" }, "discord.token"},
		{"missing guild", func(c *Config) { c.Discord.GuildID = "" }, "discord.guild_id"},
		{"missing watched channel", func(c *Config) { c.Channels.WatchedLog = "" }, "channels.watched_log"},
		{"missing operator", func(c *Config) { c.OperatorID = "" }, "operator_id"},
		{"missing database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown role kind", func(c *Config) { c.Roles = map[string]string{"boat_perms": "r"} }, "invalid permission kind"},
		{"negative max age", func(c *Config) { c.Retention.MaxAge = -time.Hour }, "retention.max_age"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"matrix incomplete", func(c *Config) { c.Matrix.Enabled = true }, "matrix.homeserver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGrantConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)

	gc := cfg.GrantConfig()

	assert.Equal(t, "g1", gc.GuildID)
	assert.Equal(t, "c-staff", gc.AlertChannelID)
	assert.Equal(t, []string{"r-admin", "r-mod"}, gc.AllowedRoles)
	assert.Equal(t, "r-leo", gc.RoleIDs[grant.KindLEOCarPerms])
	assert.Equal(t, "r-exotic", gc.RoleIDs[grant.KindExoticCarPerms])
}

func TestAuditConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)

	ac := cfg.AuditConfig()
	assert.Equal(t, "c-log", ac.WatchedChannelID)
	assert.Equal(t, "op-1", ac.OperatorID)
}

func TestResolvePath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/env/config.yaml")
		assert.Equal(t, "/flag/config.yaml", ResolvePath("/flag/config.yaml"))
	})
	t.Run("env next", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/env/config.yaml")
		assert.Equal(t, "/env/config.yaml", ResolvePath(""))
	})
	t.Run("xdg default", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "staffbot", "config.yaml"), ResolvePath(""))
	})
}
