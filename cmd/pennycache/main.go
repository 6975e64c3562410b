// Command pennycache hosts the bot's warm caches on an ephemeral instance:
// it restores the previous instance's snapshot on start and writes a new one
// on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/pennybot/warmcache"
	"github.com/pennybot/warmcache/blobstore"
	bigstore "github.com/pennybot/warmcache/blobstore/bigcache"
	dynamostore "github.com/pennybot/warmcache/blobstore/dynamodb"
	filestore "github.com/pennybot/warmcache/blobstore/file"
	pgstore "github.com/pennybot/warmcache/blobstore/postgres"
	redisstore "github.com/pennybot/warmcache/blobstore/redis"
	"github.com/pennybot/warmcache/codec"
	"github.com/pennybot/warmcache/flight"
	asynchook "github.com/pennybot/warmcache/hooks/async"
	"github.com/pennybot/warmcache/internal/config"
	"github.com/pennybot/warmcache/lifecycle"
	wclogrus "github.com/pennybot/warmcache/log/logrus"
	wcslog "github.com/pennybot/warmcache/log/slog"
	wczap "github.com/pennybot/warmcache/log/zap"
	"github.com/pennybot/warmcache/penny"
	"github.com/pennybot/warmcache/remote"
	"github.com/pennybot/warmcache/sloghooks"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pennycache:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log, flush, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer flush()

	var hooks warmcache.Hooks = warmcache.NopHooks{}
	if cfg.Log.Hooks {
		async := asynchook.New(sloghooks.New(newSlog(cfg.Log.Level), sloghooks.Options{ExpiredEvery: 10}), 1, 1024)
		defer async.Close()
		hooks = async
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
	}
	if cfg.Store.Kind == config.StoreMemory {
		log.Warn("memory store does not outlive this instance; snapshots only survive in-process restarts", nil)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn("store close failed", warmcache.Fields{"err": err})
		}
	}()

	pcfg := penny.Config{
		FetchTimeout: cfg.Cache.FetchTimeout.Std(),
		Coalescer:    flight.New(),
		Logger:       log,
		Hooks:        hooks,
		MaxCoinUsers: cfg.Cache.MaxCoinUsers,
		MaxFiles:     cfg.Cache.MaxFiles,
	}
	svc, err := newServices(cfg, pcfg)
	if err != nil {
		return err
	}

	bridge, err := warmcache.NewBridge(warmcache.BridgeOptions{
		Store:     store,
		Namespace: cfg.Snapshot.Namespace,
		Key:       cfg.Snapshot.Key,
		Timeout:   cfg.Snapshot.Timeout.Std(),
		Logger:    log,
		Hooks:     hooks,
	}, svc.participants()...)
	if err != nil {
		svc.Close()
		return err
	}

	host := &lifecycle.Host{
		Bridge:          bridge,
		Closers:         []lifecycle.Closer{svc},
		ShutdownTimeout: cfg.ShutdownTimeout.Std(),
		Logger:          log,
	}
	host.OnColdStart(ctx)
	if cfg.Prewarm {
		svc.prewarm(ctx, log)
	}
	log.Info("serving", warmcache.Fields{"store": cfg.Store.Kind, "snapshot_entries": len(svc.participants())})
	host.Run(ctx)
	return nil
}

type services struct {
	pings *penny.AutoPings
	faqs  *penny.FAQs
	coins *penny.Coins
	files *penny.Files
}

func newServices(cfg config.Config, pcfg penny.Config) (*services, error) {
	opts := []remote.Option{remote.WithTimeout(cfg.Remote.Timeout.Std())}
	if cfg.Remote.Token != "" {
		opts = append(opts, remote.WithHeader("Authorization", "Bearer "+cfg.Remote.Token))
	}

	svc := &services{}
	fail := func(err error) (*services, error) {
		svc.Close()
		return nil, err
	}

	if u := cfg.Remote.AutoPingsURL; u != "" {
		src, err := remote.NewHTTPSource[penny.Subscriptions](u, nil, opts...)
		if err != nil {
			return fail(err)
		}
		c := pcfg
		c.TTL = cfg.Cache.AutoPingsTTL.Std()
		if svc.pings, err = penny.NewAutoPings(src, c); err != nil {
			return fail(err)
		}
	}
	if u := cfg.Remote.FAQsURL; u != "" {
		src, err := remote.NewHTTPSource[penny.Texts](u, nil, opts...)
		if err != nil {
			return fail(err)
		}
		c := pcfg
		c.TTL = cfg.Cache.FAQsTTL.Std()
		if svc.faqs, err = penny.NewFAQs(src, c); err != nil {
			return fail(err)
		}
	}
	if u := cfg.Remote.CoinsURL; u != "" {
		src, err := remote.NewHTTPSource[int](u, nil, opts...)
		if err != nil {
			return fail(err)
		}
		c := pcfg
		c.TTL = cfg.Cache.CoinsTTL.Std()
		if svc.coins, err = penny.NewCoins(src, c); err != nil {
			return fail(err)
		}
	}
	if u := cfg.Remote.FilesURL; u != "" {
		src, err := remote.NewHTTPSource[string](u, codec.String{}, opts...)
		if err != nil {
			return fail(err)
		}
		c := pcfg
		c.TTL = cfg.Cache.FilesTTL.Std()
		if svc.files, err = penny.NewFiles(src, c); err != nil {
			return fail(err)
		}
	}
	return svc, nil
}

// participants are the snapshot-eligible caches. Coin counts and files are
// per entity and cheap to refetch, so they start cold.
func (s *services) participants() []warmcache.Participant {
	var out []warmcache.Participant
	if s.pings != nil {
		out = append(out, s.pings.Participant())
	}
	if s.faqs != nil {
		out = append(out, s.faqs.Participant())
	}
	return out
}

func (s *services) prewarm(ctx context.Context, log warmcache.Logger) {
	if s.pings != nil {
		if _, err := s.pings.All(ctx); err != nil {
			log.Warn("prewarm failed", warmcache.Fields{"key": penny.KeyAutoPings, "err": err})
		}
	}
	if s.faqs != nil {
		if _, err := s.faqs.All(ctx); err != nil {
			log.Warn("prewarm failed", warmcache.Fields{"key": penny.KeyFAQs, "err": err})
		}
	}
}

func (s *services) Close() {
	if s.pings != nil {
		s.pings.Close()
	}
	if s.faqs != nil {
		s.faqs.Close()
	}
	if s.coins != nil {
		s.coins.Close()
	}
	if s.files != nil {
		s.files.Close()
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (blobstore.Store, error) {
	switch cfg.Kind {
	case config.StoreRedis:
		return redisstore.New(redisstore.Config{
			Client:      goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr}),
			Expiry:      cfg.Expiry.Std(),
			CloseClient: true,
		})
	case config.StoreDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return dynamostore.New(dynamodb.NewFromConfig(awsCfg), dynamostore.Config{
			Table:  cfg.DynamoDBTable,
			Expiry: cfg.Expiry.Std(),
		})
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s, err := pgstore.New(ctx, db, &pgstore.Config{Expiry: cfg.Expiry.Std(), CloseDB: true})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	case config.StoreFile:
		return filestore.New(cfg.FileDir)
	case config.StoreMemory:
		return bigstore.New(ctx, bigstore.Config{LifeWindow: cfg.Expiry.Std()})
	default:
		return nil, errors.New("unknown store kind")
	}
}

func newLogger(cfg config.LogConfig) (warmcache.Logger, func(), error) {
	switch cfg.Backend {
	case "zap":
		zc := zap.NewProductionConfig()
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		zc.Level = level
		l, err := zc.Build()
		if err != nil {
			return nil, nil, err
		}
		return wczap.New(l), func() { _ = l.Sync() }, nil
	case "logrus":
		l := logrus.New()
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		l.SetLevel(level)
		l.SetFormatter(&logrus.JSONFormatter{})
		return wclogrus.New(l), func() {}, nil
	default:
		return wcslog.New(newSlog(cfg.Level)), func() {}, nil
	}
}

func newSlog(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
