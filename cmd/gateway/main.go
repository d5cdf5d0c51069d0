package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	backendCli "github.com/spellbook-app/session-gateway/internal/adapters/backend"
	memStore "github.com/spellbook-app/session-gateway/internal/adapters/db/memory"
	redisStore "github.com/spellbook-app/session-gateway/internal/adapters/db/redis"
	transport "github.com/spellbook-app/session-gateway/internal/adapters/transport/http"
	httpmw "github.com/spellbook-app/session-gateway/internal/adapters/transport/http/middleware"
	appsession "github.com/spellbook-app/session-gateway/internal/app/session"
	sessionRepo "github.com/spellbook-app/session-gateway/internal/domain/session/repo"
	"github.com/spellbook-app/session-gateway/internal/infra/config"
	lg "github.com/spellbook-app/session-gateway/internal/infra/log"
	"github.com/spellbook-app/session-gateway/internal/infra/metrics"
	"github.com/spellbook-app/session-gateway/internal/infra/server"
	"golang.org/x/sync/errgroup"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	zapLog := lg.Must(os.Getenv("LOG_LEVEL"))
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	var store sessionRepo.TokenStore
	if cfg.RedisAddress != "" {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		store = redisStore.NewRedisSessionStore(redisCli, cfg.SessionTTL)
	} else {
		zapLog.Warn("REDIS_ADDRESS not set, sessions will not survive a restart")
		store = memStore.NewMemorySessionStore()
	}

	validate := validator.New()
	backend := backendCli.New(cfg.BackendBaseURL, nil, zapLog)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	svc := appsession.New(store, backend, cfg.RefreshBuffer, validate, collector, zapLog)
	defer svc.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmw.RequestLogger(zapLog))
	router.Use(httpmw.RateLimitPerIP(50, 100, 10_000, time.Hour))
	router.Use(collector.GinMiddleware())

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "Content-Type", "Accept",
				"X-Requested-With",
			},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	transport.NewHandler(svc, backend, cfg, zapLog).Register(router)

	rootCtx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return server.StartHTTPServer(ctx, cfg, router, zapLog)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		zapLog.Info("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
