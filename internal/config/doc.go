// Package config handles configuration loading for staffbot.
//
// # Configuration File
//
// The file is located in this order:
//
//  1. The --config flag
//  2. Path from the STAFFBOT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/staffbot/config.yaml (~/.config/staffbot/config.yaml)
//
// Files ending in .toml are parsed as TOML; anything else as YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables, which is how the bot token is
// usually supplied:
//
//	discord:
//	  token: "${DISCORD_TOKEN}"
//
// Unset variables expand to an empty string.
//
// # Example
//
//	discord:
//	  token: "${DISCORD_TOKEN}"
//	  guild_id: "123"
//	  application_id: "456"
//	channels:
//	  watched_log: "789"   # shadow-stored and audited
//	  staff_alert: "790"   # expiry notices; defaults to watched_log
//	operator_id: "111"     # receives deletion alerts by DM
//	roles:
//	  leo_car_perms: "222"
//	  exotic_car_perms: "333"
//	allowed_roles:
//	  give: ["444"]
//	database:
//	  path: "/var/lib/staffbot/messages.db"
//	retention:
//	  max_age: "720h"
//	  sweep_interval: "24h"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: true
//	  addr: ":9090"
//	matrix:
//	  enabled: false
//
// Duration values use Go's time.ParseDuration syntax.
package config
