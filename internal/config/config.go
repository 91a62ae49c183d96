// Package config loads memedex settings from the environment (MEMEDEX_
// prefix) and an optional memedex.yaml.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// Media backends.
const (
	MediaBackendFS    = "fs"
	MediaBackendMinio = "minio"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	DB              DBConfig
	Media           MediaConfig
	SessionLifetime time.Duration
	InsecureCookies bool
	LogLevel        slog.Level
}

// DBConfig selects the database driver and connection string.
type DBConfig struct {
	Driver string
	DSN    string
}

func (c *DBConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In("sqlite3", "mysql", "postgres")),
		validation.Field(&c.DSN, validation.Required),
	)
}

// MediaConfig selects where meme images are stored.
type MediaConfig struct {
	Backend string
	Path    string
	Minio   MinioConfig
}

func (c *MediaConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(MediaBackendFS, MediaBackendMinio)),
		validation.Field(&c.Path, validation.When(c.Backend == MediaBackendFS, validation.Required)),
	); err != nil {
		return err
	}
	if c.Backend == MediaBackendMinio {
		return c.Minio.Validate()
	}
	return nil
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

func (c *MinioConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.AccessKey, validation.Required),
		validation.Field(&c.SecretKey, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
	)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SessionLifetime, validation.Required, validation.Min(time.Minute)),
	); err != nil {
		return err
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr: cannot be blank")
	}
	if err := c.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := c.Media.Validate(); err != nil {
		return fmt.Errorf("media: %w", err)
	}
	return nil
}

// Load reads config from environment (MEMEDEX_ prefix) and optional memedex.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEMEDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("memedex")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8001")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "file:memedex.db?_pragma=busy_timeout(5000)")
	v.SetDefault("media.backend", MediaBackendFS)
	v.SetDefault("media.path", "./memes")
	v.SetDefault("media.minio.bucket", "memedex")
	v.SetDefault("media.minio.use_ssl", false)
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("insecure_cookies", false)
	v.SetDefault("log.level", "info")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.Media.Backend = v.GetString("media.backend")
	cfg.Media.Path = v.GetString("media.path")
	cfg.Media.Minio = MinioConfig{
		Endpoint:  v.GetString("media.minio.endpoint"),
		AccessKey: v.GetString("media.minio.access_key"),
		SecretKey: v.GetString("media.minio.secret_key"),
		Bucket:    v.GetString("media.minio.bucket"),
		Prefix:    v.GetString("media.minio.prefix"),
		UseSSL:    v.GetBool("media.minio.use_ssl"),
	}
	cfg.InsecureCookies = v.GetBool("insecure_cookies")

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEMEDEX_SESSION_LIFETIME: %w", err)
	}
	cfg.SessionLifetime = lifetime

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		return nil, fmt.Errorf("invalid MEMEDEX_LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
