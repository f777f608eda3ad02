package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/dharsanguruparan/HoloHeri/internal/config"
	"github.com/dharsanguruparan/HoloHeri/internal/logger"
	"github.com/dharsanguruparan/HoloHeri/internal/s3storage"
	"github.com/dharsanguruparan/HoloHeri/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogDir, "worker", cfg.Environment == "dev")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.QueueEnabled() {
		log.Error("HOLOHERI_REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	var objects worker.ObjectStore
	if cfg.S3Endpoint != "" {
		store, err := s3storage.New(cfg)
		if err != nil {
			log.Errorw("init storage", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Errorw("ensure bucket", "error", err)
			os.Exit(1)
		}
		objects = store
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.ReclaimWorkers,
		Logger:      log.Named("asynq"),
	})
	processor := worker.NewProcessor(cfg.UploadDir, objects, log.Named("worker"))
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Infow("worker started", "redis", cfg.RedisAddr, "mirror", objects != nil)
	if err := server.Run(mux); err != nil {
		log.Errorw("worker stopped", "error", err)
		os.Exit(1)
	}
}
