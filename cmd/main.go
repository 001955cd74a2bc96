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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/alaklabs/goacl/config"
	"github.com/alaklabs/goacl/internal/cache"
	"github.com/alaklabs/goacl/internal/container"
	"github.com/alaklabs/goacl/internal/infrastructure/memory"
	pginfra "github.com/alaklabs/goacl/internal/infrastructure/postgres"
	"github.com/alaklabs/goacl/internal/infrastructure/sqlrepo"
	"github.com/alaklabs/goacl/internal/interface/middleware"
	"github.com/alaklabs/goacl/internal/router"
	"github.com/alaklabs/goacl/pkg/helpers"
	"github.com/alaklabs/goacl/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	container.SetConfig(cfg)
	container.SetLogger(logger)

	// Storage backend
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		container.SetPGPool(pool)
		container.SetIdentityRepo(pginfra.NewIdentityRepository(pool))
		container.SetRoleRepo(pginfra.NewRoleRepository(pool))
	case config.StorageSQL:
		db, err := sqlx.Connect(cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			log.Fatalf("failed to connect to %s: %v", cfg.SQLDriver, err)
		}
		defer func() { _ = db.Close() }()
		container.SetSQLDB(db)
		container.SetIdentityRepo(sqlrepo.NewIdentityRepository(db))
		container.SetRoleRepo(sqlrepo.NewRoleRepository(db))
	default:
		repo := memory.NewRepository()
		container.SetIdentityRepo(repo)
		container.SetRoleRepo(repo)
	}

	// Cache backend: the redis variant is always fronted by the
	// in-process one so a redis outage degrades instead of failing.
	if cfg.CacheBackend == config.CacheRedis {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
		container.SetCache(cache.NewFallbackBackend(cache.NewRedisBackend(rdb), cache.NewMemoryBackend(), logger))
	} else {
		container.SetCache(cache.NewMemoryBackend())
	}

	container.SetJWT(helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTTL, cfg.RefreshTTL))

	if cfg.EventsEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, lifecycle events disabled")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		corsCfg := cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		r.Use(cors.New(corsCfg))
	}
	if cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}
