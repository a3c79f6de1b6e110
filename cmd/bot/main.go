package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Mraprguild8133/Filestore/internal/autodelete"
	"github.com/Mraprguild8133/Filestore/internal/bot"
	"github.com/Mraprguild8133/Filestore/internal/config"
	"github.com/Mraprguild8133/Filestore/internal/database"
	"github.com/Mraprguild8133/Filestore/internal/delivery"
	"github.com/Mraprguild8133/Filestore/internal/gate"
	"github.com/Mraprguild8133/Filestore/internal/repository"
	"github.com/Mraprguild8133/Filestore/internal/resolver"
	"github.com/Mraprguild8133/Filestore/internal/server"
	"github.com/Mraprguild8133/Filestore/internal/shortener"
	"github.com/Mraprguild8133/Filestore/internal/telegram"
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

	access := gate.New(store, tg, cfg.FsubLinkExpiry, log)
	res := resolver.New(store, cfg.ChannelID, log)
	engine := delivery.New(tg, delivery.Options{
		ProtectContent:  cfg.ProtectContent,
		CaptionTemplate: cfg.CustomCaption,
		ItemDelay:       cfg.CopyDelay,
	}, log)
	scheduler := autodelete.New(tg, log)
	short := shortener.New(cfg.ShortlinkSite, cfg.ShortlinkAPI, log)

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	b := bot.New(cfg, tg, store, access, res, engine, scheduler, short, queueClient, log)

	srv := server.New(cfg.Address, store, log)
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error("http server stopped", "err", err)
			stop()
		}
	}()

	runErr := b.Run(ctx)

	// Give in-flight auto-delete tasks a bounded window to finish.
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := scheduler.Shutdown(drainCtx); err != nil {
		log.Warn("scheduler drain", "err", err)
	}

	if runErr != nil {
		log.Error("bot stopped", "err", runErr)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
