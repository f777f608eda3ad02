// Package main is the entry point for the HoloHeri API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/api"
	"github.com/dharsanguruparan/HoloHeri/internal/auth"
	"github.com/dharsanguruparan/HoloHeri/internal/config"
	"github.com/dharsanguruparan/HoloHeri/internal/database"
	"github.com/dharsanguruparan/HoloHeri/internal/logger"
	"github.com/dharsanguruparan/HoloHeri/internal/processing"
	"github.com/dharsanguruparan/HoloHeri/internal/queue"
	"github.com/dharsanguruparan/HoloHeri/internal/repository"
	"github.com/dharsanguruparan/HoloHeri/internal/site"
	"github.com/dharsanguruparan/HoloHeri/internal/storage"
	"github.com/dharsanguruparan/HoloHeri/internal/upload"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogDir, "server", cfg.Environment == "dev")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	if cfg.GeneratedJWT {
		log.Warn("HOLOHERI_JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	var store site.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		db := database.SQLX(pool)
		defer db.Close()
		store = repository.NewSiteRepository(db)
		log.Info("using postgres record store")
	} else {
		store = storage.NewMemoryStore()
		log.Warn("HOLOHERI_DATABASE_URL not set, records are kept in memory")
	}

	var (
		reclaimer site.Reclaimer
		opts      = []site.Option{site.WithLogger(log.Named("site"))}
	)
	if cfg.QueueEnabled() {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		dispatcher := queue.NewDispatcher(client, log.Named("queue"))
		reclaimer = dispatcher
		if cfg.MirrorEnabled() {
			opts = append(opts, site.WithMirrorer(dispatcher))
		}
		log.Infow("file reclaim via task queue", "redis", cfg.RedisAddr, "mirror", cfg.MirrorEnabled())
	} else {
		pool := processing.New(cfg.UploadDir, cfg.ReclaimWorkers, log.Named("reclaim"))
		pool.Start(ctx)
		defer pool.Stop()
		reclaimer = pool
	}

	sites := site.NewService(store, reclaimer, cfg.APIBaseURL, opts...)
	credentials := auth.NewFileCredentialStore(cfg.UsersFile, log.Named("auth"))
	authn := auth.NewService(credentials, auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL))
	intake := upload.New(cfg.UploadDir, cfg.MaxBodyBytes)

	srv := api.New(cfg, sites, authn, intake, log.Named("api"))
	return srv.Run(ctx)
}
