package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/latestcomment/ai-battle-arena/internal/storage"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	BackendURL     string        `yaml:"backendUrl"`
	Rounds         int           `yaml:"rounds"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	ViewsDir       string        `yaml:"viewsDir"`
	Store          struct {
		Driver      string        `yaml:"driver"`
		Path        string        `yaml:"path"`
		RedisURL    string        `yaml:"redisUrl"`
		TTL         time.Duration `yaml:"ttl"`
		DatabaseURL string        `yaml:"databaseUrl"`
	} `yaml:"store"`
	Log struct {
		Level string `yaml:"level"`
		Dev   bool   `yaml:"dev"`
	} `yaml:"log"`
}

func Default() Config {
	var cfg Config
	cfg.Addr = ":3000"
	cfg.BackendURL = "http://localhost:8000"
	cfg.Rounds = 3
	cfg.RequestTimeout = 60 * time.Second
	cfg.ViewsDir = "./static"
	cfg.Store.Driver = storage.DriverFile
	cfg.Store.Path = "data/snapshots.json"
	cfg.Log.Level = "info"
	return cfg
}

// Load layers .env, the YAML file named by BATTLE_CONFIG, then the process
// environment over Default. path is the YAML file used, if any.
func Load() (cfg Config, path string, err error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Default(), "", fmt.Errorf("load .env: %w", err)
	}

	cfg = Default()

	path = strings.TrimSpace(os.Getenv("BATTLE_CONFIG"))
	if path != "" {
		b, readErr := os.ReadFile(path)
		switch {
		case errors.Is(readErr, os.ErrNotExist):
			path = ""
		case readErr != nil:
			return cfg, path, readErr
		default:
			var raw Config
			if unmarshalErr := yaml.Unmarshal(b, &raw); unmarshalErr != nil {
				return cfg, path, unmarshalErr
			}
			overlay(&cfg, raw)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// overlay copies non-empty values of raw onto cfg.
func overlay(cfg *Config, raw Config) {
	setString(&cfg.Addr, raw.Addr)
	setString(&cfg.BackendURL, raw.BackendURL)
	setString(&cfg.ViewsDir, raw.ViewsDir)
	if raw.Rounds != 0 {
		cfg.Rounds = raw.Rounds
	}
	if raw.RequestTimeout != 0 {
		cfg.RequestTimeout = raw.RequestTimeout
	}
	setString(&cfg.Store.Driver, raw.Store.Driver)
	setString(&cfg.Store.Path, raw.Store.Path)
	setString(&cfg.Store.RedisURL, raw.Store.RedisURL)
	setString(&cfg.Store.DatabaseURL, raw.Store.DatabaseURL)
	if raw.Store.TTL != 0 {
		cfg.Store.TTL = raw.Store.TTL
	}
	setString(&cfg.Log.Level, raw.Log.Level)
	if raw.Log.Dev {
		cfg.Log.Dev = true
	}
}

func applyEnv(cfg *Config) error {
	if port := env("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	setString(&cfg.Addr, env("ADDR"))
	setString(&cfg.BackendURL, env("VITE_BACKEND_URL"))
	setString(&cfg.BackendURL, env("BACKEND_URL"))
	setString(&cfg.ViewsDir, env("VIEWS_DIR"))
	setString(&cfg.Store.Driver, env("STORE_DRIVER"))
	setString(&cfg.Store.Path, env("STORE_PATH"))
	setString(&cfg.Store.RedisURL, env("REDIS_URL"))
	setString(&cfg.Store.DatabaseURL, env("DATABASE_URL"))
	setString(&cfg.Log.Level, env("LOG_LEVEL"))

	if v := env("BATTLE_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATTLE_ROUNDS: %w", err)
		}
		cfg.Rounds = n
	}
	if v := env("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := env("SNAPSHOT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SNAPSHOT_TTL: %w", err)
		}
		cfg.Store.TTL = d
	}
	if v := env("LOG_DEV"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_DEV: %w", err)
		}
		cfg.Log.Dev = dev
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("backend url is required")
	}
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	switch c.Store.Driver {
	case storage.DriverFile, storage.DriverRedis, storage.DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

func (c Config) StoreOptions() storage.Options {
	return storage.Options{
		Driver:      c.Store.Driver,
		Path:        c.Store.Path,
		RedisURL:    c.Store.RedisURL,
		TTL:         c.Store.TTL,
		DatabaseURL: c.Store.DatabaseURL,
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
