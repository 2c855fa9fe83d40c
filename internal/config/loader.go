package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	envPrefix      = "BOT"
	envToken       = "TELEGRAM_TOKEN"
	envMaster      = "TELEGRAM_MASTER"
	keyringAccount = "telegram_token"

	// DefaultConfigPath is used when no --config flag is given.
	DefaultConfigPath = "./config.yaml"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"token":  "telegram.token",
	"master": "telegram.master",
}

// RegisterFlags defines the flags understood by Read on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", DefaultConfigPath, "Path to configuration file")
	fs.String("token", "", "Telegram bot token (falls back to TELEGRAM_TOKEN)")
	fs.String("master", "", "Username allowed to use master commands (falls back to TELEGRAM_MASTER)")
}

// LoadConfig reads the configuration and validates it.
//
// Precedence, highest first: flags, environment, config file, OS keyring
// (token only), defaults.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads the configuration without validating it. A missing config file
// is not an error.
func Read(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("telegram.token", envToken); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", envToken, err)
	}
	if err := v.BindEnv("telegram.master", envMaster); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", envMaster, err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Debug("Configuration file not found, using defaults", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Telegram.Token == "" && cfg.Telegram.KeyringService != "" {
		token, err := keyring.Get(cfg.Telegram.KeyringService, keyringAccount)
		switch {
		case err == nil:
			cfg.Telegram.Token = token
		case errors.Is(err, keyring.ErrNotFound):
			slog.Debug("No token stored in keyring", "service", cfg.Telegram.KeyringService)
		default:
			slog.Warn("Failed to read token from keyring", "service", cfg.Telegram.KeyringService, "error", err)
		}
	}

	return cfg, nil
}
