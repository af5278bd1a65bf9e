package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/Owskar/collaborative-code-editor/internal/handler/http"
	wsHandler "github.com/Owskar/collaborative-code-editor/internal/handler/websocket"
	"github.com/Owskar/collaborative-code-editor/internal/hub"
	gormpersistence "github.com/Owskar/collaborative-code-editor/internal/infra/persistence/gorm"
	"github.com/Owskar/collaborative-code-editor/internal/infra/setup"
	redisstate "github.com/Owskar/collaborative-code-editor/internal/infra/state/redis"
	"github.com/Owskar/collaborative-code-editor/internal/middleware"
	"github.com/Owskar/collaborative-code-editor/internal/service"
	"github.com/Owskar/collaborative-code-editor/internal/worker"
)

// App holds every long-lived component of the relay process.
type App struct {
	Config       *Config
	Log          *logrus.Logger
	DB           *gorm.DB
	RedisClient  *redis.Client
	AsynqClient  *asynq.Client
	AsynqServer  *worker.WorkerServer
	WriteThrough *service.WriteThrough
	Hub          *hub.Hub
	HttpServer   *http.Server
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	// Components log through the package-level logger.
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	return log
}

// NewApp loads configuration and wires every component.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s)", log.GetLevel())

	// Infrastructure
	db, err := setup.InitDB(setup.DBOptions{
		Driver:   cfg.DBDriver,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		Debug:    cfg.AppEnv != "production" && cfg.LogLevel == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.WithField("driver", cfg.DBDriver).Info("Database initialized")

	redisClient, err := setup.InitRedis(setup.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	// Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	docRepo := gormpersistence.NewGormDocumentRepository(db)
	updateLog := redisstate.NewRedisUpdateLog(redisClient, cfg.KeyPrefix)
	bus := redisstate.NewRedisBus(redisClient, cfg.KeyPrefix)

	// Services
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	docService := service.NewDocumentService(docRepo, userRepo)
	writeThrough := service.NewWriteThrough(asynqClient, log)
	syncService := service.NewSyncService(bus, writeThrough)

	hubInstance := hub.NewHub(updateLog, bus, syncService, cfg.WSMaxMessageBytes)
	workerServer := worker.NewWorkerServer(redisClientOpt, docRepo, cfg.WorkerConcurrency, log)

	// Handlers and routes
	router := NewRouter(cfg, log, redisClient, hubInstance,
		httpHandler.NewAuthHandler(authService),
		httpHandler.NewDocumentHandler(docService),
		wsHandler.NewWebSocketHandler(hubInstance, cfg.AllowedOrigins()),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Application assembled successfully")
	return &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		RedisClient:  redisClient,
		AsynqClient:  asynqClient,
		AsynqServer:  workerServer,
		WriteThrough: writeThrough,
		Hub:          hubInstance,
		HttpServer:   httpServer,
	}, nil
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(
	cfg *Config,
	log *logrus.Logger,
	redisClient *redis.Client,
	h *hub.Hub,
	authHandler *httpHandler.AuthHandler,
	docHandler *httpHandler.DocumentHandler,
	ws *wsHandler.WebSocketHandler,
) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.AllowedOrigins()))

	api := router.Group("/api")
	api.Use(middleware.RateLimit(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}
	docRoutes := api.Group("/documents").Use(middleware.Auth(cfg.JWTSecret))
	{
		docRoutes.GET("", docHandler.List)
		docRoutes.POST("", docHandler.Create)
		docRoutes.GET("/:id", docHandler.Get)
		docRoutes.PUT("/:id", docHandler.Update)
		docRoutes.DELETE("/:id", docHandler.Delete)
		docRoutes.POST("/:id/collaborators", docHandler.AddCollaborator)
	}

	router.GET("/ws/document/:documentId", middleware.OptionalAuth(cfg.JWTSecret), ws.HandleConnection)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "sessions": h.Count()})
	})
	return router
}

// Start launches the worker, the write-through pump and the HTTP server.
func (a *App) Start() {
	a.WriteThrough.Start()
	if err := a.AsynqServer.Start(); err != nil {
		a.Log.Errorf("Content writes will not be persisted: %v", err)
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown closes sessions first so no new content is submitted, then drains
// the write-through pump before the queue and Redis go away.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	a.Hub.CloseAll()
	a.WriteThrough.Stop()
	a.AsynqServer.Shutdown()

	if err := a.AsynqClient.Close(); err != nil {
		a.Log.Errorf("Error closing Asynq client: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Log.Errorf("Error closing Redis connection: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware logs one line per request. The query string is left out
// because websocket clients pass their token there.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		statusCode := c.Writer.Status()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  time.Since(startTime).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}

// CORSMiddleware answers preflight requests and sets the allow headers. The
// request Origin is echoed back when it is in allowed; "*" allows any origin.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	_, allowAll := set["*"]

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := set[origin]; origin != "" && (ok || allowAll) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
