package app

import (
	"net/http"
	"time"

	"linkup/internal/config"
	"linkup/internal/middleware"
	"linkup/internal/repository"
	"linkup/internal/service"
	"linkup/internal/util"
	"linkup/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Services are the domain operations the HTTP layer exposes.
type Services struct {
	Friendships service.FriendshipService
	Directory   service.DirectoryService
	Calls       service.CallService
}

// NewRouter connects to every backing store, starts the background workers
// and returns the engine together with a function that releases them.
func NewRouter(cfg *config.Config) (*gin.Engine, func(), error) {
	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := MigrateSchema(db, cfg); err != nil {
		return nil, nil, err
	}

	redisClient := initRedisWithRetry(cfg)
	rabbitMQ := initRabbitMQWithRetry(cfg)

	repos := repository.New(db, redisClient, time.Duration(cfg.RedisCacheTTL)*time.Second)
	clock := service.SystemClock{}

	wsHub := websocket.NewHub()
	wsHub.SetPresenceCallback(service.TrackPresence)
	go wsHub.Run()
	logrus.Info("WebSocket hub started")

	events := service.NewEventService(rabbitMQ, wsHub)

	var eventWorker *service.EventWorker
	if rabbitMQ != nil {
		eventWorker = service.NewEventWorker(rabbitMQ, wsHub)
		if err := eventWorker.Start(); err != nil {
			logrus.WithError(err).Warn("Failed to start event worker, events will be pushed directly")
			eventWorker = nil
		} else {
			logrus.Info("Event worker started successfully")
		}
	} else {
		logrus.Warn("RabbitMQ unavailable, events will be pushed directly to WebSocket clients")
	}

	services := Services{
		Friendships: service.NewFriendshipService(repos.FriendRequests, repos.Friendships, repos.Users, events, clock),
		Directory:   service.NewDirectoryService(repos.Users, repos.Friendships),
		Calls:       service.NewCallService(repos.Calls, repos.Users, events, clock),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	service.RegisterMetrics(registry)
	middleware.RegisterMetrics(registry)

	stopCleanup := make(chan struct{})
	r := NewEngine(cfg, services, wsHub, registry, stopCleanup)

	cleanup := func() {
		close(stopCleanup)
		if eventWorker != nil {
			eventWorker.Stop()
		}
		wsHub.Stop()
		if rabbitMQ != nil {
			rabbitMQ.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return r, cleanup, nil
}

// NewEngine registers middleware and routes. hub and gatherer may be nil,
// which leaves /ws and /metrics unregistered.
func NewEngine(cfg *config.Config, services Services, hub *websocket.Hub, gatherer prometheus.Gatherer, stop <-chan struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Monitor())
	r.Use(corsMiddleware(cfg.ClientURL))

	if cfg.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		if stop != nil {
			go rateLimiter.RunCleanup(time.Minute, stop)
		}
		r.Use(rateLimiter.Middleware())
		logrus.WithFields(logrus.Fields{
			"rps":   cfg.RateLimitRPS,
			"burst": cfg.RateLimitBurst,
		}).Info("Rate limiting enabled")
	}

	friendshipHandler := NewFriendshipHandler(services.Friendships)
	userHandler := NewUserHandler(services.Directory)
	callHandler := NewCallHandler(services.Calls)
	legacyHandler := NewLegacyHandler(friendshipHandler, userHandler, callHandler)

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		friends := api.Group("/friends")
		{
			friends.GET("", friendshipHandler.GetFriends)
			friends.POST("/requests", friendshipHandler.SendFriendRequest)
			friends.GET("/requests", friendshipHandler.GetIncomingRequests)
			friends.POST("/requests/:id/accept", friendshipHandler.AcceptFriendRequest)
			friends.POST("/requests/:id/reject", friendshipHandler.RejectFriendRequest)
		}

		users := api.Group("/users")
		{
			users.GET("/search", userHandler.SearchUsers)
			users.GET("/:id", userHandler.GetUser)
		}

		calls := api.Group("/calls")
		{
			calls.POST("", callHandler.StartCall)
			calls.GET("", callHandler.GetHistory)
			calls.POST("/:id/end", callHandler.EndCall)
			calls.GET("/legacy", legacyHandler.GetCalls)
			calls.POST("/legacy", legacyHandler.PostCalls)
		}

		api.GET("/contacts", legacyHandler.GetContacts)
		api.POST("/contacts", legacyHandler.PostContacts)
	}

	if hub != nil {
		r.GET("/ws", gin.WrapF(websocket.ServeWS(hub, cfg.JWTSecret)))
	}
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// MigrateSchema migrates the tables this service owns, and users as well
// when cfg.MigrateDirectory is set.
func MigrateSchema(db *gorm.DB, cfg *config.Config) error {
	if cfg.MigrateDirectory {
		logrus.Warn("Migrating the users table, MIGRATE_DIRECTORY is meant for local databases only")
		if err := repository.MigrateDirectory(db); err != nil {
			return err
		}
	}
	return repository.Migrate(db)
}

// OpenDatabase opens PostgreSQL with driver errors translated to gorm's
// sentinel errors.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.LogLevel == "debug" {
		logLevel = logger.Info
	}
	return gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
}

const (
	connectMaxRetries   = 5
	connectInitialDelay = 2 * time.Second
	connectMaxDelay     = 30 * time.Second
)

// retryWithBackoff calls connect until it succeeds or connectMaxRetries is
// reached, doubling the delay between attempts.
func retryWithBackoff(name string, connect func() error) bool {
	for attempt := 1; attempt <= connectMaxRetries; attempt++ {
		err := connect()
		if err == nil {
			logrus.WithField("attempt", attempt).Infof("%s connected successfully", name)
			return true
		}

		if attempt == connectMaxRetries {
			logrus.WithError(err).Warnf("Failed to connect to %s after %d attempts, continuing without it", name, connectMaxRetries)
			break
		}

		delay := connectInitialDelay * time.Duration(1<<uint(attempt-1))
		if delay > connectMaxDelay {
			delay = connectMaxDelay
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"retry":   delay.String(),
		}).Warnf("Failed to connect to %s", name)
		time.Sleep(delay)
	}
	return false
}

func initRedisWithRetry(cfg *config.Config) *util.RedisClient {
	var client *util.RedisClient
	retryWithBackoff("Redis", func() (err error) {
		client, err = util.NewRedisClient(cfg)
		return err
	})
	return client
}

func initRabbitMQWithRetry(cfg *config.Config) *util.RabbitMQClient {
	var client *util.RabbitMQClient
	retryWithBackoff("RabbitMQ", func() (err error) {
		client, err = util.NewRabbitMQClient(cfg)
		return err
	})
	return client
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && origin == clientURL {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
