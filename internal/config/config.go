// Package config loads the tracker's settings.
//
// LAYERS (later wins):
//
//  1. defaults()                    → built into the binary
//  2. YAML file                     → $CONFIG_PATH, else ./config.yaml if present
//  3. environment variables         → SERVER_PORT, ADMIN_KEY, DATABASE_DSN, ...
//
// A .env file in the working directory is read into the environment first, so
// local development needs no exported variables. Real environment variables
// are never overwritten by it.
//
// Every environment variable maps to a dotted koanf path by lower-casing it
// and replacing the first underscore with a dot:
//
//	SERVER_PORT              → server.port
//	SECURITY_JWT_SECRET      → security.jwt_secret
//	SCHEDULER_AUTO_CREATE    → scheduler.auto_create
//
// A few short legacy names (PORT, JWT_SECRET, DB_PATH) are kept as aliases.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the variable holding the YAML file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigFile is read when CONFIG_PATH is unset and the file exists.
const DefaultConfigFile = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Admin     AdminConfig     `koanf:"admin"`
	Cache     CacheConfig     `koanf:"cache"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port         int           `koanf:"port"`
	Timezone     string        `koanf:"timezone"` // IANA name or "Local"; decides the submission day
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	SecureCookie bool          `koanf:"secure_cookie"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite | postgres
	Path   string `koanf:"path"`   // sqlite file
	DSN    string `koanf:"dsn"`    // postgres connection string
}

type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTTL        time.Duration `koanf:"session_ttl"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

type AdminConfig struct {
	Key string `koanf:"key"`
}

type CacheConfig struct {
	RedisAddr     string        `koanf:"redis_addr"` // empty disables caching
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
}

type SchedulerConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Interval   time.Duration `koanf:"interval"`
	AutoCreate bool          `koanf:"auto_create"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // text | json | zerolog
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			Timezone:     "Local",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/tracker.db",
		},
		Security: SecurityConfig{
			SessionTTL:        24 * time.Hour,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 30,
			RateLimitWindow:   time.Minute,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// legacyEnv maps short variable names onto their koanf paths.
var legacyEnv = map[string]string{
	"port":       "server.port",
	"tz":         "server.timezone",
	"jwt_secret": "security.jwt_secret",
	"db_path":    "database.path",
	"redis_addr": "cache.redis_addr",
	"log_level":  "logging.level",
}

// sections are the top-level keys an environment variable may address.
var sections = map[string]bool{
	"server": true, "database": true, "security": true, "admin": true,
	"cache": true, "scheduler": true, "logging": true,
}

// envKey turns an environment variable name into a koanf path, or "" to
// ignore the variable.
func envKey(name string) string {
	name = strings.ToLower(name)
	if path, ok := legacyEnv[name]; ok {
		return path
	}
	section, rest, ok := strings.Cut(name, "_")
	if !ok || !sections[section] || rest == "" {
		return ""
	}
	return section + "." + rest
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	// Missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := configFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if err := splitList(k, "security.cors_origins"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// splitList turns a comma-separated string (as env vars deliver lists) into
// a slice. Values already decoded as lists from YAML are left alone.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("config: setting %s: %w", path, err)
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return errors.New("config: server timeouts must be positive")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("config: database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown database.driver %q (want sqlite or postgres)", c.Database.Driver)
	}

	if len(c.Security.JWTSecret) < 16 {
		return errors.New("config: security.jwt_secret must be at least 16 characters (JWT_SECRET)")
	}
	if c.Security.RateLimitRequests < 0 || (c.Security.RateLimitRequests > 0 && c.Security.RateLimitWindow <= 0) {
		return errors.New("config: rate limit needs a positive window")
	}

	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("config: scheduler.interval %s is below one minute", c.Scheduler.Interval)
	}

	switch c.Logging.Format {
	case "text", "json", "zerolog":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// Location resolves server.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || c.Server.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: server.timezone: %w", err)
	}
	return loc, nil
}
