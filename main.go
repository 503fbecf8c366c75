package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-console/internal/api"
	"auction-console/internal/channel"
	"auction-console/internal/config"
	"auction-console/internal/live"
	"auction-console/internal/notification"
	"auction-console/internal/repository"
	"auction-console/internal/server"
	"auction-console/internal/session"
	handler "auction-console/services/console/handler"
	"auction-console/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// .env.local wins over .env; neither is required
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		utils.Fatal("cannot load config", map[string]any{"error": err.Error()})
	}
	if err := utils.SetLevel(cfg.LogLevel); err != nil {
		utils.Warn("unknown log level, keeping info", map[string]any{"level": cfg.LogLevel})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo := newSessionDB(cfg)
	defer closeRepo()

	// the client reads the token of whatever session is current at call time
	var store *session.Store
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, api.TokenFunc(func() string { return store.Token() }))
	defer client.Close()

	store = session.NewStore(repo, client)
	if err := store.Hydrate(ctx); err != nil {
		utils.Warn("could not restore session", map[string]any{"error": err.Error()})
	}

	queue := notification.NewQueue(notification.WithDefaultTTL(cfg.NotificationTTL))
	registry := live.NewRegistry(channel.NewStompDialer(cfg.WSURL, cfg.HandshakeTimeout), client, queue, live.Config{
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		Receipts:             cfg.StompReceipts,
		PendingTimeout:       cfg.PendingBidTimeout,
	})
	defer registry.CloseAll()

	h := handler.NewHandler(client, store, queue, registry)
	router := server.SetupRouter(h, server.NewGate(store, registry, queue, nil))

	srv := &http.Server{Addr: cfg.HTTPServerAddress, Handler: router}
	go func() {
		<-ctx.Done()
		// live streams end when their views close
		registry.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utils.Error("shutdown failed", map[string]any{"error": err.Error()})
		}
	}()

	utils.Info("starting auction console", map[string]any{
		"address": cfg.HTTPServerAddress,
		"api":     cfg.APIBaseURL,
		"ws":      cfg.WSURL,
		"store":   cfg.SessionStore,
	})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
	utils.Info("auction console stopped", nil)
}

// newSessionDB picks the session storage configured by SESSION_STORE.
func newSessionDB(cfg config.Config) (repository.SessionDB, func()) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return repository.NewMemoryRepo(), func() {}
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		return repository.NewRedisRepo(rdb, cfg.RedisSessionKey, cfg.SessionTTL), func() { _ = rdb.Close() }
	default:
		return repository.NewFileRepo(cfg.SessionFile), func() {}
	}
}
