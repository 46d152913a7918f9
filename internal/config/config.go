package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// AgentConfig configures the field agent binary.
type AgentConfig struct {
	Primary Primary       `koanf:"primary" validate:"required"`
	Agent   AgentSection  `koanf:"agent" validate:"required"`
	Remote  RemoteSection `koanf:"remote" validate:"required"`
	Shell   *ShellSection `koanf:"shell"`
}

// ServerConfig configures the ingest server binary.
type ServerConfig struct {
	Primary  Primary         `koanf:"primary" validate:"required"`
	Server   ServerSection   `koanf:"server" validate:"required"`
	Database DatabaseSection `koanf:"database" validate:"required"`
	Storage  *StorageSection `koanf:"storage"`
	Mail     *MailSection    `koanf:"mail"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type AgentSection struct {
	Port         string `koanf:"port" validate:"required"`
	DataDir      string `koanf:"data_dir" validate:"required"`
	SyncInterval int    `koanf:"sync_interval"` // seconds; 0 uses the default
	UserID       string `koanf:"user_id"`       // configured identity attached to events
	Version      string `koanf:"version"`
}

type RemoteSection struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Token   string `koanf:"token"`
}

// ShellSection configures the offline shell proxy. Nil disables it.
type ShellSection struct {
	Upstream      string   `koanf:"upstream" validate:"required,url"`
	BackendPrefix string   `koanf:"backend_prefix"`
	ShellPath     string   `koanf:"shell_path"`
	Precache      []string `koanf:"precache"`
	Generation    string   `koanf:"generation" validate:"required"`
}

type ServerSection struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
	AdminToken         string   `koanf:"admin_token"`
}

type DatabaseSection struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// StorageSection configures photo archival on an S3-compatible store.
// Nil disables archival; photo diagnosis still works without it.
type StorageSection struct {
	Endpoint  string `koanf:"endpoint" validate:"required"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket" validate:"required"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

// MailSection configures the contact-form relay. Nil disables it.
type MailSection struct {
	SendGridKey string `koanf:"sendgrid_key" validate:"required"`
	From        string `koanf:"from" validate:"required,email"`
	To          string `koanf:"to" validate:"required,email"`
}

// LoadAgent loads the agent configuration from FIELDSYNC_-prefixed
// environment variables using koanf.
func LoadAgent() *AgentConfig {
	logger := bootLogger()
	cfg := &AgentConfig{}
	load(logger, cfg)
	if cfg.Agent.Version == "" {
		cfg.Agent.Version = "dev"
	}
	return cfg
}

// LoadServer loads the ingest server configuration from FIELDSYNC_-prefixed
// environment variables using koanf.
func LoadServer() *ServerConfig {
	logger := bootLogger()
	cfg := &ServerConfig{}
	load(logger, cfg)
	return cfg
}

func bootLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func load(logger zerolog.Logger, dst any) {
	k := koanf.New(".")
	err := k.Load(env.Provider("FIELDSYNC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FIELDSYNC_"))
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load initial env variables")
	}

	if err := k.Unmarshal("", dst); err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal config")
	}

	validate := validator.New()
	if err := validate.Struct(dst); err != nil {
		logger.Fatal().Err(err).Msg("could not validate config")
	}
}
