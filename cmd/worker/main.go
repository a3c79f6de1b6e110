package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/Mraprguild8133/Filestore/internal/config"
	"github.com/Mraprguild8133/Filestore/internal/database"
	"github.com/Mraprguild8133/Filestore/internal/repository"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
	"github.com/Mraprguild8133/Filestore/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Error("ensure schema", "err", err)
		os.Exit(1)
	}
	store := repository.NewStore(pool, cfg.DeleteTimer)

	tg, err := telegram.New(cfg.BotToken, log)
	if err != nil {
		log.Error("init telegram client", "err", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Workers,
	})
	processor := worker.NewProcessor(store, tg, log)

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	log.Info("broadcast worker started", "concurrency", cfg.Workers)
	if err := srv.Run(processor.Handler()); err != nil {
		log.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}
