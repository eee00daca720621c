package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"FitCoachAI/middleware"
	"FitCoachAI/pkg/config"
	"FitCoachAI/pkg/database"
	"FitCoachAI/pkg/limiter"
	"FitCoachAI/pkg/logger"
	"FitCoachAI/pkg/memory"
	"FitCoachAI/pkg/services"
	"FitCoachAI/pkg/store"
	"FitCoachAI/routes"
)

func main() {
	if err := config.Load(); err != nil {
		logger.New(logger.Options{}).Fatal("invalid configuration", zap.Error(err))
	}

	log := logger.New(logger.Options{
		Production: config.IsProduction,
		Level:      config.LogLevel,
		File:       config.LogFile,
	})
	logger.SetGlobal(log)
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx := context.Background()

	db, err := database.Open(config.DBDriver, config.DatabaseURL, config.DatabaseAPIKey)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	provider, err := services.NewProvider(ctx, services.ProviderOptionsFromConfig())
	if err != nil {
		return err
	}

	mem := memory.New(
		config.MemoryMaxConversations,
		time.Duration(config.MemoryTTLSeconds)*time.Second,
		config.MemoryWindowMessages,
	)
	defer mem.Close()

	rl, closeLimiter := newLimiter(ctx, log)
	defer closeLimiter()

	chats := services.NewChatService(store.NewGormStore(db), provider, mem)

	if config.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r, err := newRouter(routes.Deps{
		Chats:     chats,
		Limiter:   rl,
		JWTSecret: config.JWTSecret,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("env", config.AppEnv),
			zap.String("provider", provider.Name()),
			zap.String("db_driver", config.DBDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter builds the engine with the global middleware chain and routes.
// Only config.TrustedProxies may set the client IP through forwarding
// headers.
func newRouter(deps routes.Deps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logging(), middleware.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.RegisterRoutes(r, deps)
	return r, nil
}

// newLimiter uses Redis when REDIS_ADDR is set and reachable, otherwise an
// in-process token bucket.
func newLimiter(ctx context.Context, log *zap.Logger) (limiter.Limiter, func()) {
	window := time.Duration(config.RateLimitWindowSeconds) * time.Second
	if config.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		client, err := limiter.NewRedisClient(pingCtx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err == nil {
			log.Info("rate limiter: redis", zap.String("addr", config.RedisAddr))
			return limiter.NewRedis(client, config.RateLimitCapacity, window), func() { _ = client.Close() }
		}
		log.Warn("rate limiter: redis unavailable, using in-process buckets", zap.Error(err))
	}
	mem := limiter.NewMemory(config.RateLimitCapacity, window)
	return mem, mem.Close
}
