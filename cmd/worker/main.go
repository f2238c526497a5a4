package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vdavid/mailsift/internal/config"
	"github.com/vdavid/mailsift/internal/crypto"
	"github.com/vdavid/mailsift/internal/extract"
	"github.com/vdavid/mailsift/internal/imap"
	"github.com/vdavid/mailsift/internal/match"
	"github.com/vdavid/mailsift/internal/pipeline"
	"github.com/vdavid/mailsift/internal/refqueue"
	"github.com/vdavid/mailsift/internal/rules"
	"github.com/vdavid/mailsift/internal/sink"
	"github.com/vdavid/mailsift/internal/store"
)

func main() {
	slog.Info("starting mailsift worker")

	cfg, err := config.NewConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("database connected")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	refQueue := refqueue.NewQueue(rdb)
	if err := refQueue.Ping(ctx); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.Info("redis connected")

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		slog.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	directory, err := rules.LoadDirectory(ctx, pool)
	if err != nil {
		slog.Error("failed to load parser directory", "error", err)
		os.Exit(1)
	}
	slog.Info("parser directory loaded", "rules", directory.Len())

	runner := pipeline.NewRunner(
		store.NewAccountStore(pool),
		match.NewMatcher(refQueue, directory),
		encryptor,
		imap.NewFetcher(directory),
		extract.NewInvoker(extract.NewClient(&http.Client{Timeout: 30 * time.Second}, cfg.ExtractionURL), directory),
		sink.NewPostgresWriter(pool),
		cfg.Workers,
		cfg.BatchSize,
	)

	consumer := refqueue.NewConsumer(rdb, cfg.InputQueue, runner.ProcessAccount)

	slog.Info("listening to input queue", "queue", cfg.InputQueue)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
