// Package config loads server settings from built-in defaults, an optional
// TOML file and WEBMAIL_* environment variables, each layer overriding the
// previous one.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvFile names the environment variable holding the config file path
// when no -config flag is given.
const EnvFile = "WEBMAIL_CONFIG"

// Duration is a time.Duration written as "30s" or "5m" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

type StoreConfig struct {
	Driver   string   `toml:"driver"` // memory, sqlite, postgres, mongo
	DSN      string   `toml:"dsn"`    // file path for sqlite, URL for postgres and mongo
	Database string   `toml:"database"`
	Timeout  Duration `toml:"timeout"`

	// Startup connect attempts; storage often starts after the server.
	ConnectAttempts int `toml:"connect_attempts"`
}

type RedisConfig struct {
	Addr     string   `toml:"addr"` // empty disables the directory cache and redis events
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	CacheTTL Duration `toml:"cache_ttl"`
}

type SessionConfig struct {
	Secret string   `toml:"secret"` // HS256 key; random per process when empty
	MaxAge Duration `toml:"max_age"`
	Secure bool     `toml:"secure"`
}

type RateLimitConfig struct {
	Requests int      `toml:"requests"`
	Per      Duration `toml:"per"`
}

type ExportConfig struct {
	Backend   string `toml:"backend"` // empty, dir, s3, gcs
	Dir       string `toml:"dir"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
}

type MailboxConfig struct {
	MaxRecipients         int  `toml:"max_recipients"`
	MaxSubjectLength      int  `toml:"max_subject_length"`
	MaxBodySize           int  `toml:"max_body_size"`
	MaxConcurrentComposes int  `toml:"max_concurrent_composes"`
	OTel                  bool `toml:"otel"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Store     StoreConfig     `toml:"store"`
	Redis     RedisConfig     `toml:"redis"`
	Session   SessionConfig   `toml:"session"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Export    ExportConfig    `toml:"export"`
	Mailbox   MailboxConfig   `toml:"mailbox"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Log:   LogConfig{Level: "info"},
		Store: StoreConfig{Driver: "memory", Database: "webmail", Timeout: Duration{10 * time.Second}, ConnectAttempts: 5},
		Redis: RedisConfig{CacheTTL: Duration{5 * time.Minute}},
		Session: SessionConfig{
			MaxAge: Duration{7 * 24 * time.Hour},
		},
		RateLimit: RateLimitConfig{Requests: 30, Per: Duration{time.Minute}},
		Export:    ExportConfig{Prefix: "exports", Region: "us-east-1"},
		Mailbox: MailboxConfig{
			MaxRecipients:         100,
			MaxSubjectLength:      998,
			MaxBodySize:           10 * 1024 * 1024,
			MaxConcurrentComposes: 10,
		},
	}
}

// Load applies the file at path (skipped when empty) and then the
// environment on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str("WEBMAIL_ADDR", &c.Server.Addr)
	dur("WEBMAIL_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	str("WEBMAIL_LOG_LEVEL", &c.Log.Level)

	str("WEBMAIL_STORE_DRIVER", &c.Store.Driver)
	str("WEBMAIL_STORE_DSN", &c.Store.DSN)
	str("WEBMAIL_STORE_DATABASE", &c.Store.Database)
	dur("WEBMAIL_STORE_TIMEOUT", &c.Store.Timeout)
	num("WEBMAIL_STORE_CONNECT_ATTEMPTS", &c.Store.ConnectAttempts)

	str("WEBMAIL_REDIS_ADDR", &c.Redis.Addr)
	str("WEBMAIL_REDIS_PASSWORD", &c.Redis.Password)
	num("WEBMAIL_REDIS_DB", &c.Redis.DB)
	dur("WEBMAIL_REDIS_CACHE_TTL", &c.Redis.CacheTTL)

	str("WEBMAIL_SESSION_SECRET", &c.Session.Secret)
	dur("WEBMAIL_SESSION_MAX_AGE", &c.Session.MaxAge)
	flag("WEBMAIL_SESSION_SECURE", &c.Session.Secure)

	num("WEBMAIL_RATE_LIMIT_REQUESTS", &c.RateLimit.Requests)
	dur("WEBMAIL_RATE_LIMIT_PER", &c.RateLimit.Per)

	str("WEBMAIL_EXPORT_BACKEND", &c.Export.Backend)
	str("WEBMAIL_EXPORT_DIR", &c.Export.Dir)
	str("WEBMAIL_EXPORT_BUCKET", &c.Export.Bucket)
	str("WEBMAIL_EXPORT_PREFIX", &c.Export.Prefix)
	str("WEBMAIL_EXPORT_REGION", &c.Export.Region)
	str("WEBMAIL_EXPORT_ENDPOINT", &c.Export.Endpoint)
	flag("WEBMAIL_EXPORT_PATH_STYLE", &c.Export.PathStyle)

	num("WEBMAIL_MAX_RECIPIENTS", &c.Mailbox.MaxRecipients)
	num("WEBMAIL_MAX_BODY_SIZE", &c.Mailbox.MaxBodySize)
	flag("WEBMAIL_OTEL", &c.Mailbox.OTel)

	return errors.Join(errs...)
}

// lookup treats a blank variable as unset.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{"memory", "sqlite", "postgres", "mongo"}, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if (c.Store.Driver == "postgres" || c.Store.Driver == "mongo") && c.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("store.dsn: required for %s", c.Store.Driver))
	}
	switch c.Export.Backend {
	case "":
	case "dir":
		if c.Export.Dir == "" {
			errs = append(errs, errors.New("export.dir: required for dir backend"))
		}
	case "s3", "gcs":
		if c.Export.Bucket == "" {
			errs = append(errs, fmt.Errorf("export.bucket: required for %s backend", c.Export.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("export.backend: unknown backend %q", c.Export.Backend))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Per.Duration <= 0 {
		errs = append(errs, errors.New("rate_limit: requests and per must be positive"))
	}
	if c.Session.MaxAge.Duration <= 0 {
		errs = append(errs, errors.New("session.max_age: must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
