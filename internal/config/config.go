package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultJWTExpiresIn  = "24h"
	DefaultPGHost        = "127.0.0.1"
	DefaultPGPort        = 5432
	DefaultPGUser        = "postgres"
	DefaultPGDatabase    = "inboxd"
	DefaultPGSSLMode     = "disable"
	DefaultChatSuffix    = "@s.whatsapp.net"
	DefaultHistoryLimit  = 20
	DefaultQueueSize     = 256
	DefaultMaxAttempts   = 3
	DefaultRetryBaseMs   = 250
	DefaultPruneSchedule = "17 3 * * *"
	DefaultRetainHours   = 72
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Auth       AuthConfig       `toml:"auth"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Completion CompletionConfig `toml:"completion"`
	Reply      ReplyConfig      `toml:"reply"`
	Janitor    JanitorConfig    `toml:"janitor"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
	// WebhookToken authenticates gateway webhook deliveries; the webhook
	// route bypasses JWT.
	WebhookToken string `toml:"webhook_token"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"gt=0"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode"`
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type GatewayConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// ChatSuffix is appended to chat identifiers that carry no domain
	// qualifier before sending.
	ChatSuffix string `toml:"chat_suffix"`
}

type CompletionConfig struct {
	ClientType     string `toml:"client_type" validate:"oneof=anthropic-messages openai-completions"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model" validate:"required"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ReplyConfig struct {
	HistoryLimit int `toml:"history_limit" validate:"gt=0"`
	QueueSize    int `toml:"queue_size" validate:"gt=0"`
	MaxAttempts  int `toml:"max_attempts" validate:"gt=0"`
	RetryBaseMs  int `toml:"retry_base_ms" validate:"gt=0"`
}

type JanitorConfig struct {
	PruneSchedule string `toml:"prune_schedule"`
	RetainHours   int    `toml:"retain_hours"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Gateway: GatewayConfig{
			BaseURL:        "http://127.0.0.1:3000",
			TimeoutSeconds: 30,
			ChatSuffix:     DefaultChatSuffix,
		},
		Completion: CompletionConfig{
			ClientType:     "anthropic-messages",
			Model:          "claude-3-5-sonnet-latest",
			TimeoutSeconds: 60,
		},
		Reply: ReplyConfig{
			HistoryLimit: DefaultHistoryLimit,
			QueueSize:    DefaultQueueSize,
			MaxAttempts:  DefaultMaxAttempts,
			RetryBaseMs:  DefaultRetryBaseMs,
		},
		Janitor: JanitorConfig{
			PruneSchedule: DefaultPruneSchedule,
			RetainHours:   DefaultRetainHours,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
