package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/inventory_api/internal/config"
	"github.com/Skotchmaster/inventory_api/internal/db"
	"github.com/Skotchmaster/inventory_api/internal/events"
	"github.com/Skotchmaster/inventory_api/internal/hash"
	"github.com/Skotchmaster/inventory_api/internal/httpserver"
	"github.com/Skotchmaster/inventory_api/internal/inventory"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	authmw "github.com/Skotchmaster/inventory_api/internal/middleware/auth"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	authDB, err := db.Open(initCtx, cfg.AuthDatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatal(err)
		}
		publisher = producer
	}

	searcher := inventory.NewSearcher(inventory.Source{
		Dir:       cfg.SnapshotDir,
		FixedPath: cfg.SnapshotFixedPath,
	})
	searcher.MaxPageSize = cfg.MaxPageSize

	var cache *inventory.RedisCache
	if cfg.RedisURL != "" {
		cache, err = inventory.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, search cache disabled", "error", err)
		} else {
			searcher.Cache = cache
			searcher.CacheTTL = cfg.CacheTTL
		}
	}

	userRepo := repo.New(authDB)
	codec := tokens.NewCodec()
	accessSecret := []byte(cfg.JWTSecret)

	deps := &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: &service.AuthService{
			Repo:                  userRepo,
			Hasher:                hash.New(cfg.BcryptCost),
			Codec:                 codec,
			AccessSecret:          accessSecret,
			RefreshSecret:         []byte(cfg.JWTRefreshSecret),
			AccessTTL:             cfg.AccessTokenTTL,
			RefreshTTL:            cfg.RefreshTokenTTL,
			RequireCurrentRefresh: cfg.RequireCurrentRefresh,
			Events:                publisher,
		}},
		ItemsHandler: &httpserver.ItemsHTTP{
			Svc:             &service.InventoryService{Searcher: searcher},
			DefaultPageSize: cfg.DefaultPageSize,
		},
		Gate:  authmw.NewGate(codec, accessSecret),
		Ready: map[string]httpserver.Pinger{"auth_db": userRepo, "snapshot": searcher},
	}

	e := httpserver.New(httpserver.Options{Logger: logger, CORSOrigins: cfg.CORSOrigins}, deps)

	go func() {
		logger.Info("http server starting", "addr", cfg.ServerAddr)
		if err := e.Start(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := db.Close(authDB); err != nil {
		logger.Error("db close error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
