// Package bootstrap wires configuration, infrastructure, services, handlers
// and background workers into a runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"multiuser-chat/internal/agent"
	httpHandler "multiuser-chat/internal/handler/http"
	wsHandler "multiuser-chat/internal/handler/websocket"
	"multiuser-chat/internal/hub"
	gormpersistence "multiuser-chat/internal/infra/persistence/gorm"
	"multiuser-chat/internal/infra/setup"
	redisstate "multiuser-chat/internal/infra/state/redis"
	"multiuser-chat/internal/middleware"
	"multiuser-chat/internal/service"
	"multiuser-chat/internal/worker"
)

// Config holds everything read from the environment.
type Config struct {
	ServerPort        string
	DBPath            string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	KeyPrefix         string
	UploadDir         string
	CORSOrigins       []string
	AgentAPIKey       string
	AgentBaseURL      string
	AgentModel        string
	WorkerConcurrency int
	LogLevel          string
	RateLimitMax      int
	RateLimitWindow   time.Duration
	AppEnv            string
}

// LoadConfig reads configuration from the environment, with a .env file as
// optional source.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:    os.Getenv("SERVER_PORT"),
		DBPath:        os.Getenv("DB_PATH"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:     os.Getenv("REDIS_KEY_PREFIX"),
		UploadDir:     os.Getenv("UPLOAD_DIR"),
		AgentAPIKey:   os.Getenv("AGENT_API_KEY"),
		AgentBaseURL:  os.Getenv("AGENT_BASE_URL"),
		AgentModel:    os.Getenv("AGENT_MODEL"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		AppEnv:        os.Getenv("APP_ENV"),

		RateLimitMax:      100,
		RateLimitWindow:   1 * time.Second,
		WorkerConcurrency: 10,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WorkerConcurrency = n
		}
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "storage.db"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chat:"
	}
	if cfg.AgentModel == "" {
		cfg.AgentModel = "gpt-4o-mini"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App holds the assembled application components.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	AsynqServer *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server
}

// NewApp creates and wires all application components.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded successfully")

	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
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
	log.Info("Asynq client initialized")

	log.Info("Initializing repositories...")
	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	fileRepo := gormpersistence.NewGormFileRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)
	log.Info("Repositories initialized")

	log.Info("Initializing services...")
	userService := service.NewUserService(userRepo)
	roomService := service.NewRoomService(roomRepo, userRepo)
	chatService := service.NewChatService(messageRepo, stateRepo, userRepo, roomRepo)
	uploadService := service.NewUploadService(fileRepo, roomRepo, chatService, cfg.UploadDir)
	log.Info("Services initialized")

	log.Info("Initializing hub...")
	hubInstance := hub.NewHub(chatService, roomService, userService, stateRepo, asynqClient)
	log.Info("Hub initialized")

	log.Info("Initializing handlers...")
	userHandler := httpHandler.NewUserHandler(userService)
	roomHandler := httpHandler.NewRoomHandler(roomService)
	fileHandler := httpHandler.NewFileHandler(uploadService)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, cfg.CORSOrigins)
	log.Info("Handlers initialized")

	log.Info("Initializing worker server...")
	agentClient := agent.NewHTTPClient(agent.Config{
		APIKey:  cfg.AgentAPIKey,
		BaseURL: cfg.AgentBaseURL,
		Model:   cfg.AgentModel,
	})
	aiHandler := worker.NewAIReplyHandler(
		agent.NewDecider(agentClient),
		agent.NewResponder(agentClient),
		chatService,
		stateRepo,
		hubInstance,
	)
	workerServer := worker.NewWorkerServer(redisClientOpt, aiHandler, cfg.WorkerConcurrency, log)
	log.Info("Worker server initialized")

	log.Info("Setting up Gin router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	chat := router.Group("/chat")
	{
		chat.POST("/users/get-or-create", userHandler.GetOrCreateUser)
		chat.GET("/users/:id", userHandler.GetUser)
		chat.POST("/rooms/create", roomHandler.CreateRoom)
		chat.POST("/rooms/join", roomHandler.JoinRoom)
		chat.GET("/rooms/:id", roomHandler.GetRoom)
		chat.GET("/rooms/:id/members", roomHandler.GetMembers)
		chat.POST("/files/upload", fileHandler.Upload)
		chat.GET("/files/:id", fileHandler.ListRoomFiles)
		chat.GET("/files/:id/download", fileHandler.Download)
	}
	router.GET("/ws", websocketHandler.HandleConnection)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		AsynqServer: workerServer,
		Hub:         hubInstance,
		HttpServer:  httpServer,
	}, nil
}

// Start launches the hub, the worker and the HTTP server.
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.Log.Info("Asynq worker server routine started")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown stops the components in dependency order: no new HTTP work, then
// drain the worker, then release the clients.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	a.Log.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (len(originSet) == 0 || originSet[origin]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one structured line per request.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
