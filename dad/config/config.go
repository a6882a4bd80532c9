package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/jeffsuperpower/dad/dad"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Database DatabaseConfig `mapstructure:"database"`
	Training TrainingConfig `mapstructure:"training"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Health   HealthConfig   `mapstructure:"health"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AgentConfig stores settings for the external agent process.
type AgentConfig struct {
	Binary       string  `mapstructure:"binary"`         // Agent CLI binary, resolved via PATH if bare
	Model        string  `mapstructure:"model"`          // Model identifier passed to the CLI
	MaxTurns     int     `mapstructure:"max_turns"`      // Per-invocation turn budget
	MaxBudgetUSD float64 `mapstructure:"max_budget_usd"` // Advisory per-invocation spend bound
	WorkspaceDir string  `mapstructure:"workspace_dir"`  // Working directory for the spawned process
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // Path to the embedded libsql .db file
}

// TrainingConfig stores the training-context file location.
type TrainingConfig struct {
	Dir string `mapstructure:"dir"` // Directory holding TRAINING.md and attachments
}

// AuthConfig stores user/channel allow-lists. Empty lists allow everyone.
type AuthConfig struct {
	AuthorizedUserIDs    []string `mapstructure:"authorized_user_ids"`
	AuthorizedChannelIDs []string `mapstructure:"authorized_channel_ids"`
}

// HealthConfig stores the health probe listener settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig stores log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // zerolog level name
	Pretty bool   `mapstructure:"pretty"` // Console writer instead of JSON
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Agent defaults
	viper.SetDefault("agent.binary", "claude")
	viper.SetDefault("agent.model", internal.DefaultModel)
	viper.SetDefault("agent.max_turns", internal.DefaultMaxTurns)
	viper.SetDefault("agent.max_budget_usd", 1.00)
	viper.SetDefault("agent.workspace_dir", internal.DefaultWorkspaceDir)

	// Database defaults
	viper.SetDefault("database.path", internal.DefaultDBPath)

	// Training defaults
	viper.SetDefault("training.dir", internal.DefaultTrainingDir)

	// Auth defaults: empty allow-lists admit everyone
	viper.SetDefault("auth.authorized_user_ids", []string{})
	viper.SetDefault("auth.authorized_channel_ids", []string{})

	// Health defaults
	viper.SetDefault("health.port", 8080)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.pretty", false)

	viper.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. agent.max_turns becomes AGENT_MAX_TURNS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults and env vars apply.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}

// IsUserAuthorized reports whether the user may talk to the agent.
// An empty allow-list admits everyone.
func (c *Config) IsUserAuthorized(userID string) bool {
	if len(c.Auth.AuthorizedUserIDs) == 0 {
		return true
	}
	for _, id := range c.Auth.AuthorizedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChannelAuthorized reports whether the channel may host the agent.
// An empty allow-list admits every channel.
func (c *Config) IsChannelAuthorized(channelID string) bool {
	if len(c.Auth.AuthorizedChannelIDs) == 0 {
		return true
	}
	for _, id := range c.Auth.AuthorizedChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}
