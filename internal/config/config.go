// Package config loads pennycache settings: defaults, then a JSONC file,
// then command-line flags (highest wins).
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"
)

var (
	errConfigInvalid  = errors.New("invalid config")
	errConfigFileRead = errors.New("cannot read config file")
)

// Store kinds.
const (
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

// DefaultFileDir is meant to be a volume that outlives the instance.
const DefaultFileDir = "/var/lib/pennycache"

// Duration is a time.Duration written as a string ("30m") in config files.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30m\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all configuration options.
type Config struct {
	Log      LogConfig      `json:"log"`
	Store    StoreConfig    `json:"store"`
	Remote   RemoteConfig   `json:"remote"`
	Cache    CacheConfig    `json:"cache"`
	Snapshot SnapshotConfig `json:"snapshot"`

	ShutdownTimeout Duration `json:"shutdown_timeout"`
	Prewarm         bool     `json:"prewarm"`
}

type LogConfig struct {
	Backend string `json:"backend"` // zap | logrus | slog
	Level   string `json:"level"`
	Hooks   bool   `json:"hooks"` // log cache hooks through slog, off the hot path
}

type StoreConfig struct {
	Kind   string   `json:"kind"`
	Expiry Duration `json:"expiry"`

	RedisAddr     string `json:"redis_addr"`
	DynamoDBTable string `json:"dynamodb_table"`
	PostgresDSN   string `json:"postgres_dsn"`
	FileDir       string `json:"file_dir"`
}

type RemoteConfig struct {
	AutoPingsURL string   `json:"auto_pings_url"`
	FAQsURL      string   `json:"faqs_url"`
	CoinsURL     string   `json:"coins_url"`
	FilesURL     string   `json:"files_url"`
	Token        string   `json:"token,omitempty"`
	Timeout      Duration `json:"timeout"`
}

type CacheConfig struct {
	AutoPingsTTL Duration `json:"auto_pings_ttl"`
	FAQsTTL      Duration `json:"faqs_ttl"`
	CoinsTTL     Duration `json:"coins_ttl"`
	FilesTTL     Duration `json:"files_ttl"`
	FetchTimeout Duration `json:"fetch_timeout"`
	MaxCoinUsers int64    `json:"max_coin_users"`
	MaxFiles     int64    `json:"max_files"`
}

type SnapshotConfig struct {
	Namespace string   `json:"namespace"`
	Key       string   `json:"key"`
	Timeout   Duration `json:"timeout"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Log:   LogConfig{Backend: "zap", Level: "info"},
		Store: StoreConfig{Kind: StoreFile, FileDir: DefaultFileDir, Expiry: Duration(24 * time.Hour)},
		Remote: RemoteConfig{
			Timeout: Duration(20 * time.Second),
		},
		Cache: CacheConfig{
			AutoPingsTTL: Duration(30 * time.Minute),
			FAQsTTL:      Duration(6 * time.Hour),
			CoinsTTL:     Duration(30 * time.Minute),
			FilesTTL:     Duration(6 * time.Hour),
			FetchTimeout: Duration(20 * time.Second),
			MaxCoinUsers: 10_000,
			MaxFiles:     1_000,
		},
		Snapshot: SnapshotConfig{
			Namespace: "pennycache",
			Key:       "snapshot",
			Timeout:   Duration(10 * time.Second),
		},
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// LoadFile reads a JSONC file over base. Unknown fields are rejected.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", errConfigFileRead, path, err)
	}
	cfg, err := parse(data, base)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return cfg, nil
}

func parse(data []byte, base Config) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	cfg := base
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch c.Log.Backend {
	case "zap", "logrus", "slog":
	default:
		return fmt.Errorf("%w: log.backend %q", errConfigInvalid, c.Log.Backend)
	}

	var missing string
	switch c.Store.Kind {
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			missing = "store.redis_addr"
		}
	case StoreDynamoDB:
		if c.Store.DynamoDBTable == "" {
			missing = "store.dynamodb_table"
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			missing = "store.postgres_dsn"
		}
	case StoreFile:
		if c.Store.FileDir == "" {
			missing = "store.file_dir"
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: store.kind %q", errConfigInvalid, c.Store.Kind)
	}
	if missing != "" {
		return fmt.Errorf("%w: %s is required for store %q", errConfigInvalid, missing, c.Store.Kind)
	}

	r := c.Remote
	if r.AutoPingsURL == "" && r.FAQsURL == "" && r.CoinsURL == "" && r.FilesURL == "" {
		return fmt.Errorf("%w: at least one remote URL is required", errConfigInvalid)
	}
	if c.Snapshot.Namespace == "" || c.Snapshot.Key == "" {
		return fmt.Errorf("%w: snapshot namespace and key are required", errConfigInvalid)
	}
	return nil
}
