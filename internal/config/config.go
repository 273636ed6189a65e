// ABOUTME: Configuration loading and parsing for staffbot
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/2389/staffbot/internal/audit"
	"github.com/2389/staffbot/internal/grant"
)

// EnvConfigPath names the environment variable that may point at the config file.
const EnvConfigPath = "STAFFBOT_CONFIG"

const (
	defaultMaxAge        = 30 * 24 * time.Hour
	defaultSweepInterval = 24 * time.Hour
	defaultMetricsAddr   = ":9090"
)

// Config represents the complete staffbot configuration
type Config struct {
	Discord      DiscordConfig      `yaml:"discord" toml:"discord"`
	Channels     ChannelsConfig     `yaml:"channels" toml:"channels"`
	OperatorID   string             `yaml:"operator_id" toml:"operator_id"`
	Roles        map[string]string  `yaml:"roles" toml:"roles"`
	AllowedRoles AllowedRolesConfig `yaml:"allowed_roles" toml:"allowed_roles"`
	Database     DatabaseConfig     `yaml:"database" toml:"database"`
	Retention    RetentionConfig    `yaml:"retention" toml:"retention"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" toml:"metrics"`
	Matrix       MatrixConfig       `yaml:"matrix" toml:"matrix"`
}

// DiscordConfig holds the bot credentials and the guild it serves
type DiscordConfig struct {
	Token         string `yaml:"token" toml:"token"`
	GuildID       string `yaml:"guild_id" toml:"guild_id"`
	ApplicationID string `yaml:"application_id" toml:"application_id"`
}

// ChannelsConfig holds channel ids
type ChannelsConfig struct {
	WatchedLog string `yaml:"watched_log" toml:"watched_log"`
	StaffAlert string `yaml:"staff_alert" toml:"staff_alert"` // defaults to watched_log
}

// AllowedRolesConfig lists, per command, the roles allowed to invoke it
type AllowedRolesConfig struct {
	Give []string `yaml:"give" toml:"give"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// RetentionConfig controls how long shadow copies are kept
type RetentionConfig struct {
	MaxAge        time.Duration `yaml:"-" toml:"-"`
	SweepInterval time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	MaxAgeRaw        string `yaml:"max_age" toml:"max_age"`
	SweepIntervalRaw string `yaml:"sweep_interval" toml:"sweep_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

// MatrixConfig holds the optional Matrix mirror for staff alerts
type MatrixConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Homeserver  string `yaml:"homeserver" toml:"homeserver"`
	UserID      string `yaml:"user_id" toml:"user_id"`
	AccessToken string `yaml:"access_token" toml:"access_token"`
	RoomID      string `yaml:"room_id" toml:"room_id"`
}

// ResolvePath picks the config file: the flag value, then $STAFFBOT_CONFIG,
// then $XDG_CONFIG_HOME/staffbot/config.yaml (~/.config when unset).
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "staffbot", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(expandEnvVars(string(data)), strings.EqualFold(filepath.Ext(path), ".toml"))
}

// Parse decodes, defaults and validates already expanded configuration text.
func Parse(data string, isTOML bool) (*Config, error) {
	var cfg Config
	if isTOML {
		if _, err := toml.Decode(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Channels.StaffAlert == "" {
		c.Channels.StaffAlert = c.Channels.WatchedLog
	}
	if c.Retention.MaxAgeRaw == "" {
		c.Retention.MaxAge = defaultMaxAge
	}
	if c.Retention.SweepIntervalRaw == "" {
		c.Retention.SweepInterval = defaultSweepInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		c.Metrics.Addr = defaultMetricsAddr
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}
	if c.Discord.GuildID == "" {
		return fmt.Errorf("discord.guild_id is required")
	}
	if c.Channels.WatchedLog == "" {
		return fmt.Errorf("channels.watched_log is required")
	}
	if c.OperatorID == "" {
		return fmt.Errorf("operator_id is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	for name := range c.Roles {
		if _, err := grant.ParseKind(name); err != nil {
			return fmt.Errorf("roles: %w", err)
		}
	}

	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("retention.max_age must not be negative")
	}
	if c.Retention.SweepInterval < 0 {
		return fmt.Errorf("retention.sweep_interval must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Matrix.Enabled {
		if c.Matrix.Homeserver == "" || c.Matrix.AccessToken == "" || c.Matrix.RoomID == "" {
			return fmt.Errorf("matrix.homeserver, matrix.access_token and matrix.room_id are required when matrix is enabled")
		}
	}

	return nil
}

// GrantConfig converts the relevant sections for the grant manager.
func (c *Config) GrantConfig() grant.Config {
	roleIDs := make(map[grant.Kind]string, len(c.Roles))
	for name, id := range c.Roles {
		roleIDs[grant.Kind(name)] = id
	}
	return grant.Config{
		GuildID:        c.Discord.GuildID,
		AllowedRoles:   c.AllowedRoles.Give,
		RoleIDs:        roleIDs,
		AlertChannelID: c.Channels.StaffAlert,
	}
}

// AuditConfig converts the relevant sections for the deletion auditor.
func (c *Config) AuditConfig() audit.Config {
	return audit.Config{
		WatchedChannelID: c.Channels.WatchedLog,
		OperatorID:       c.OperatorID,
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Retention.MaxAgeRaw != "" {
		cfg.Retention.MaxAge, err = time.ParseDuration(cfg.Retention.MaxAgeRaw)
		if err != nil {
			return fmt.Errorf("parsing max_age %q: %w", cfg.Retention.MaxAgeRaw, err)
		}
	}

	if cfg.Retention.SweepIntervalRaw != "" {
		cfg.Retention.SweepInterval, err = time.ParseDuration(cfg.Retention.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sweep_interval %q: %w", cfg.Retention.SweepIntervalRaw, err)
		}
	}

	return nil
}
