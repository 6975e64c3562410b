package config

import (
	"time"

	flag "github.com/spf13/pflag"
)

// Load parses args, reads --config if given, and applies every flag that was
// set explicitly on top of the file.
func Load(args []string) (Config, error) {
	def := Default()
	fs := flag.NewFlagSet("pennycache", flag.ContinueOnError)

	var (
		path     string
		over     = def
		shutdown time.Duration
		expiry   time.Duration
		timeout  time.Duration
	)
	fs.StringVarP(&path, "config", "c", "", "JSONC config file")
	fs.StringVar(&over.Log.Backend, "log-backend", def.Log.Backend, "zap, logrus or slog")
	fs.StringVar(&over.Log.Level, "log-level", def.Log.Level, "debug, info, warn or error")
	fs.BoolVar(&over.Log.Hooks, "log-hooks", def.Log.Hooks, "log cache hook events")
	fs.StringVar(&over.Store.Kind, "store", def.Store.Kind, "snapshot store: redis, dynamodb, postgres, file or memory")
	fs.DurationVar(&expiry, "store-expiry", def.Store.Expiry.Std(), "age after which an unconsumed snapshot is dropped")
	fs.StringVar(&over.Store.RedisAddr, "redis-addr", "", "redis address (host:port)")
	fs.StringVar(&over.Store.DynamoDBTable, "dynamodb-table", "", "DynamoDB table name")
	fs.StringVar(&over.Store.PostgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	fs.StringVar(&over.Store.FileDir, "file-dir", "", "directory for the file store")
	fs.StringVar(&over.Remote.AutoPingsURL, "auto-pings-url", "", "auto-pings Remote Source endpoint")
	fs.StringVar(&over.Remote.FAQsURL, "faqs-url", "", "FAQs Remote Source endpoint")
	fs.StringVar(&over.Remote.CoinsURL, "coins-url", "", "coins Remote Source endpoint")
	fs.StringVar(&over.Remote.FilesURL, "files-url", "", "GitHub files Remote Source endpoint")
	fs.StringVar(&over.Remote.Token, "remote-token", "", "bearer token sent to Remote Sources")
	fs.DurationVar(&timeout, "remote-timeout", def.Remote.Timeout.Std(), "deadline per Remote Source call")
	fs.DurationVar(&shutdown, "shutdown-timeout", def.ShutdownTimeout.Std(), "bound on the final snapshot")
	fs.BoolVar(&over.Prewarm, "prewarm", def.Prewarm, "fetch every cold cache right after start")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	over.Store.Expiry = Duration(expiry)
	over.Remote.Timeout = Duration(timeout)
	over.ShutdownTimeout = Duration(shutdown)

	cfg := def
	if path != "" {
		var err error
		if cfg, err = LoadFile(path, def); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-backend":
			cfg.Log.Backend = over.Log.Backend
		case "log-level":
			cfg.Log.Level = over.Log.Level
		case "log-hooks":
			cfg.Log.Hooks = over.Log.Hooks
		case "store":
			cfg.Store.Kind = over.Store.Kind
		case "store-expiry":
			cfg.Store.Expiry = over.Store.Expiry
		case "redis-addr":
			cfg.Store.RedisAddr = over.Store.RedisAddr
		case "dynamodb-table":
			cfg.Store.DynamoDBTable = over.Store.DynamoDBTable
		case "postgres-dsn":
			cfg.Store.PostgresDSN = over.Store.PostgresDSN
		case "file-dir":
			cfg.Store.FileDir = over.Store.FileDir
		case "auto-pings-url":
			cfg.Remote.AutoPingsURL = over.Remote.AutoPingsURL
		case "faqs-url":
			cfg.Remote.FAQsURL = over.Remote.FAQsURL
		case "coins-url":
			cfg.Remote.CoinsURL = over.Remote.CoinsURL
		case "files-url":
			cfg.Remote.FilesURL = over.Remote.FilesURL
		case "remote-token":
			cfg.Remote.Token = over.Remote.Token
		case "remote-timeout":
			cfg.Remote.Timeout = over.Remote.Timeout
		case "shutdown-timeout":
			cfg.ShutdownTimeout = over.ShutdownTimeout
		case "prewarm":
			cfg.Prewarm = over.Prewarm
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
