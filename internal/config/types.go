// Package config manages application configuration from command-line flags,
// environment variables, config files, the OS keyring and default values.
package config

import (
	"errors"
	"time"
)

var (
	// ErrValidation is returned when the loaded configuration is invalid.
	ErrValidation = errors.New("validation error")

	// ErrMissingToken is returned when no Telegram bot token could be resolved.
	ErrMissingToken = errors.New("telegram bot token is not set")
)

// Config defines the application configuration. It is immutable once loaded.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Dialogue  DialogueConfig  `mapstructure:"dialogue"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
	// File, when set, receives an append-only copy of every log line.
	File string `mapstructure:"file"`
}

// TelegramConfig holds transport settings and the bot identity.
type TelegramConfig struct {
	Token          string        `mapstructure:"token"           validate:"required"`
	BaseURL        string        `mapstructure:"base_url"        validate:"required,url"`
	Master         string        `mapstructure:"master"`
	EnforceMaster  bool          `mapstructure:"enforce_master"`
	KeyringService string        `mapstructure:"keyring_service"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"    validate:"min=0s,max=10m"`
	PollInterval   time.Duration `mapstructure:"poll_interval"   validate:"min=0s,max=1m"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=5m"`
}

// MessagesConfig holds the canned replies of the command router.
type MessagesConfig struct {
	Start            string `mapstructure:"start"             validate:"required"`
	UnseenCharacters string `mapstructure:"unseen_characters" validate:"required"`
	// Report may contain a "{}" placeholder that is replaced with the process uptime.
	Report         string `mapstructure:"report"          validate:"required"`
	Snitch         string `mapstructure:"snitch"          validate:"required"`
	UnknownCommand string `mapstructure:"unknown_command" validate:"required"`
	NotMaster      string `mapstructure:"not_master"      validate:"required"`
}

// DialogueConfig selects and configures the dialogue delegate.
type DialogueConfig struct {
	Provider      string  `mapstructure:"provider"       validate:"oneof=static gemini retrieval"`
	Chitchat      string  `mapstructure:"chitchat"       validate:"oneof=static gemini"`
	ResourcePath  string  `mapstructure:"resource_path"  validate:"required_if=Provider retrieval"`
	MinScore      float64 `mapstructure:"min_score"      validate:"min=0,max=1"`
	FallbackReply string  `mapstructure:"fallback_reply" validate:"required"`
}

// GeminiConfig holds settings for the Gemini chit-chat delegate.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"           validate:"omitempty,url"`
	ModelName         string        `mapstructure:"model_name"         validate:"required"`
	Temperature       float32       `mapstructure:"temperature"        validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	MaxRetries        int           `mapstructure:"max_retries"        validate:"min=0,max=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"        validate:"min=0s,max=1m"`
	Timeout           time.Duration `mapstructure:"timeout"            validate:"min=1s,max=10m"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task. Schedule is a cron
// expression with a leading seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

// UsesGemini reports whether any configured delegate needs the Gemini client.
func (c *Config) UsesGemini() bool {
	if c.Dialogue.Provider == "gemini" {
		return true
	}
	return c.Dialogue.Provider == "retrieval" && c.Dialogue.Chitchat == "gemini"
}
