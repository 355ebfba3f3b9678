package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	AutoSave AutoSaveConfig `mapstructure:"autosave"`
	Store    StoreConfig    `mapstructure:"store"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BackendConfig holds the legal RAG backend connection settings.
type BackendConfig struct {
	URL          string        `mapstructure:"url"`
	Jurisdiction string        `mapstructure:"jurisdiction"`
	Timeout      time.Duration `mapstructure:"-"`
	TimeoutStr   string        `mapstructure:"timeout"`
}

// AutoSaveConfig holds session auto-persistence settings.
type AutoSaveConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StoreConfig selects where session snapshots are persisted.
type StoreConfig struct {
	Provider  string `mapstructure:"provider"` // http or file
	Directory string `mapstructure:"directory"`
}

// ChatConfig holds conversation presentation settings.
type ChatConfig struct {
	Greeting string `mapstructure:"greeting"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

const defaultGreeting = "Hello! I'm your Wisconsin legal research assistant. " +
	"Ask me about statutes, case law, or law enforcement procedures and I'll " +
	"answer with citations to the source documents."

var cfg *Config

// Get returns the global config instance.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.lexchat")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "lexchat"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("LEXCHAT")
	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// Missing config file is fine; defaults and env cover everything.
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("backend.url", "http://localhost:5000")
	viper.SetDefault("backend.jurisdiction", "federal")
	viper.SetDefault("backend.timeout", "120s")

	viper.SetDefault("autosave.enabled", true)

	viper.SetDefault("store.provider", "http")
	viper.SetDefault("store.directory", "./.lexchat/saved_chats")

	viper.SetDefault("chat.greeting", defaultGreeting)

	viper.SetDefault("logging.log_file", "./.lexchat/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")
}

func bindEnvironmentVariables() {
	viper.BindEnv("backend.url", "LEXCHAT_BACKEND_URL")
	viper.BindEnv("backend.jurisdiction", "LEXCHAT_JURISDICTION")
	viper.BindEnv("backend.timeout", "LEXCHAT_BACKEND_TIMEOUT")
	viper.BindEnv("autosave.enabled", "LEXCHAT_AUTOSAVE")
	viper.BindEnv("store.provider", "LEXCHAT_STORE_PROVIDER")
	viper.BindEnv("store.directory", "LEXCHAT_STORE_DIR")
	viper.BindEnv("logging.log_file", "LEXCHAT_LOG_FILE")
	viper.BindEnv("logging.level", "LEXCHAT_LOG_LEVEL")
	viper.BindEnv("logging.preserve", "LEXCHAT_LOG_PRESERVE")
}

// processDurations converts string durations to time.Duration (viper does
// not handle time.Duration through mapstructure here).
func processDurations(cfg *Config) error {
	if cfg.Backend.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Backend.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid backend.timeout: %w", err)
		}
		cfg.Backend.Timeout = d
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 120 * time.Second
	}
	return nil
}

// BaseSettingsDir returns the directory holding the active settings file.
func BaseSettingsDir() string {
	if configPath := viper.GetString("config.path"); configPath != "" {
		return configPath
	}

	currentConfig := viper.ConfigFileUsed()
	if currentConfig == "" {
		return "./.lexchat"
	}
	return filepath.Dir(currentConfig)
}

// BuildSettingsPath resolves a filename relative to the settings directory.
func BuildSettingsPath(target string) string {
	return filepath.Join(BaseSettingsDir(), target)
}

// GetConfigFileUsed returns the path to the config file being used.
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
