package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dataservices/internal/api"
	"dataservices/internal/cache"
	"dataservices/internal/config"
	"dataservices/internal/consumer"
	"dataservices/internal/logging"
	"dataservices/internal/messaging"
	"dataservices/internal/metrics"
	"dataservices/internal/service"
	"dataservices/internal/storage"
)

// @title Multi-Tenant Data Services API
// @version 1.0
// @description Tenant-scoped product and user CRUD with read-through caching.
// @description The tenant is taken from the X-Tenant-ID header or, when configured, from a bearer token.
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load Configuration
	path := *configPath
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = ""
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Init Metrics
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checks []namedCheck

	// Init user store
	var users service.UserRepository
	if cfg.Database.URL != "" {
		db, err := storage.NewUserStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to init PostgreSQL", zap.Error(err))
		}
		defer db.Close()
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				logger.Fatal("Failed to migrate PostgreSQL", zap.Error(err))
			}
		}
		users = db
		checks = append(checks, namedCheck{"postgres", db.Ping})
		logger.Info("PostgreSQL connected")
	} else {
		users = storage.NewMemoryUserStore()
		logger.Warn("database.url is empty, users are kept in memory")
	}

	// Init product store
	var products service.ProductRepository
	if cfg.MongoDB.URL != "" {
		client, err := storage.ConnectMongo(ctx, storage.MongoOptions{
			URL:            cfg.MongoDB.URL,
			Database:       cfg.MongoDB.Database,
			Collection:     cfg.MongoDB.Collection,
			ConnectTimeout: cfg.MongoDB.ConnectTimeout,
			RetryAttempts:  cfg.MongoDB.RetryAttempts,
			RetryInterval:  cfg.MongoDB.RetryInterval,
		})
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		store := storage.NewProductStore(client, cfg.MongoDB.Database, cfg.MongoDB.Collection)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
		}()
		if err := store.EnsureIndexes(ctx); err != nil {
			logger.Fatal("Failed to create MongoDB indexes", zap.Error(err))
		}
		products = store
		checks = append(checks, namedCheck{"mongodb", store.Ping})
		logger.Info("MongoDB connected", zap.String("database", cfg.MongoDB.Database))
	} else {
		products = storage.NewMemoryProductStore()
		logger.Warn("mongodb.url is empty, products are kept in memory")
	}

	// Init cache
	var c cache.Cache
	switch {
	case cfg.Cache.Driver == config.CacheRedis && cfg.Redis.URL != "":
		client, err := cache.DialRedis(ctx, cfg.Redis.URL, cfg.Redis.RetryAttempts, cfg.Redis.RetryInterval)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		rc := cache.NewRedis(client, cfg.Redis.Prefix)
		defer rc.Close()
		c = rc
		checks = append(checks, namedCheck{"redis", rc.Ping})
		logger.Info("Redis connected")
	case cfg.Cache.Driver == config.CacheNone:
		c = cache.Nop{}
		logger.Info("Caching disabled")
	default:
		if cfg.Cache.Driver == config.CacheRedis {
			logger.Warn("redis.url is empty, using the in-process cache")
		}
		c = cache.NewMemory(max(cfg.Cache.Size, 1))
	}

	productCache := cache.NewReadThrough("products", c, cfg.Cache.TTL, logger)
	userCache := cache.NewReadThrough("users", c, cfg.Cache.TTL, logger)

	// Init RabbitMQ
	var events service.Publisher = service.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitClient.Close()
		events = rabbitClient
		checks = append(checks, namedCheck{"rabbitmq", rabbitClient.Ping})
		logger.Info("RabbitMQ connected", zap.String("exchange", rabbitClient.Exchange()))

		queue, err := rabbitClient.DeclareInvalidationQueue()
		if err != nil {
			logger.Fatal("Failed to declare invalidation queue", zap.Error(err))
		}
		invalidator, err := consumer.StartConsumer(rabbitClient.GetConnection(), queue, cfg.Workers,
			consumer.InvalidationHandler(cache.Invalidators{productCache, userCache}, logger), logger)
		if err != nil {
			logger.Fatal("Failed to start invalidation consumer", zap.Error(err))
		}
		defer invalidator.Stop()

		// Start background loop for updating queue depth metrics
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					rabbitClient.UpdateQueueDepth(queue)
				}
			}
		}()
	}

	// Init API
	productService := service.NewProductService(products, productCache, events, logger)
	userService := service.NewUserService(users, userCache, events, logger)

	apiHandler := api.NewAPI(productService, userService, cfg, logger)
	for _, check := range checks {
		apiHandler.AddCheck(check.name, check.fn)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      apiHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting API server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop HTTP server before the deferred consumer and store shutdowns run
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("Graceful shutdown complete")
}

type namedCheck struct {
	name string
	fn   api.HealthCheck
}
