package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erancha/RENTracker-sub000/internal/auth"
	"github.com/erancha/RENTracker-sub000/internal/config"
	"github.com/erancha/RENTracker-sub000/internal/realtime"
	"github.com/erancha/RENTracker-sub000/internal/registry"
	"github.com/erancha/RENTracker-sub000/internal/storage"
	"github.com/erancha/RENTracker-sub000/pkg/health"
	"github.com/erancha/RENTracker-sub000/pkg/json"
	"github.com/erancha/RENTracker-sub000/pkg/logger"
	"github.com/erancha/RENTracker-sub000/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName,
		InstanceID:  cfg.InstanceID,
	})
	defer log.Sync()

	log.Info("starting gateway",
		zap.String("stack", cfg.Stack),
		zap.String("port", cfg.AppPort))

	rdb, err := redis.NewClient(redis.Config{
		Host:         cfg.RedisHost,
		Port:         cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		MaxRetries:   cfg.RedisMaxRetries,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	db, err := storage.Open(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	keys := redis.NewKeys(cfg.Stack)
	store := storage.NewCache(storage.NewPostgres(db, log), rdb, keys, 0, log)
	reg := registry.NewClient(rdb, keys, cfg.RegistryTimeout, log)

	table := realtime.NewTable()
	dispatcher := realtime.NewDispatcher(store, log)
	bridge := realtime.NewBridge(rdb, keys, cfg.InstanceID, log)
	router := realtime.NewRouter(cfg.InstanceID, table, reg, bridge, log)
	gateway := realtime.NewGateway(
		cfg.InstanceID, auth.NewValidator(), store, reg,
		table, dispatcher, router, cfg.AllowedOrigins, log,
	)

	checker := health.NewChecker()
	checker.Register(health.NewRedisCheck(rdb))
	checker.Register(health.NewDatabaseCheck(db))

	r := mux.NewRouter()
	r.HandleFunc("/ws", gateway.HandleWS)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := checker.Status(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if status != health.StatusUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]health.Status{"status": status})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return bridge.Run(gctx, router.DeliverLocal)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
		bridge.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("gateway exited", zap.Error(err))
		os.Exit(1)
	}
	log.Info("gateway stopped")
}
