package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"salechat-gin/internal/ai"
	"salechat-gin/internal/auth"
	"salechat-gin/internal/channel"
	"salechat-gin/internal/config"
	"salechat-gin/internal/database"
	"salechat-gin/internal/handlers"
	"salechat-gin/internal/history"
	"salechat-gin/internal/middleware"
	"salechat-gin/internal/realtime"
	"salechat-gin/internal/relay"
	"salechat-gin/internal/repositories"
	"salechat-gin/internal/services"
	"salechat-gin/internal/vision"
	"salechat-gin/pkg/logger"
)

func main() {
	// =========================================================================
	// Load configuration
	// =========================================================================
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// Khởi tạo Logger
	// =========================================================================
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	// =========================================================================
	// Kết nối Database
	// =========================================================================
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Auto migrate trong development mode
	if cfg.App.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			log.Warn("auto migrate failed", zap.Error(err))
		} else {
			log.Info("database auto migration completed")
		}
	}

	// =========================================================================
	// Khởi tạo History Store (Redis, fallback in-memory khi chưa cấu hình)
	// =========================================================================
	var listStore history.ListStore
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal("invalid redis url", zap.Error(err))
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		listStore = history.NewRedisListStore(rdb)
		log.Info("redis history store initialized")
	} else {
		listStore = history.NewMemoryListStore()
		log.Warn("redis not configured, conversation history is in-memory only")
	}
	historyStore := history.NewStore(listStore, log)

	// =========================================================================
	// Khởi tạo Repositories
	// =========================================================================
	chatRepo := repositories.NewChatRepository(db)
	aiSettingRepo := repositories.NewAISettingRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)
	userRepo := repositories.NewUserRepository(db)

	log.Info("repositories initialized")

	// =========================================================================
	// Khởi tạo Channel Registry và đăng ký channels
	// =========================================================================
	channelRegistry := channel.NewRegistry()

	fbChannel := channel.NewFacebookChannel(channel.FacebookConfig{
		GraphBaseURL:    cfg.Facebook.GraphBaseURL,
		PageAccessToken: cfg.Facebook.PageAccessToken,
		VerifyToken:     cfg.Facebook.VerifyToken,
		AppSecret:       cfg.Facebook.AppSecret,
	}, log)
	channelRegistry.Register(fbChannel)
	log.Info("registered channel", zap.String("type", fbChannel.Type()))

	// Mock channel chỉ dành cho development
	if cfg.App.IsDevelopment() {
		mockChannel := channel.NewMockChannel(log)
		channelRegistry.Register(mockChannel)
		log.Info("registered channel", zap.String("type", mockChannel.Type()))
	}

	// =========================================================================
	// Khởi tạo Realtime Hub (presence + fan-out)
	// =========================================================================
	hub := realtime.NewHub(log)

	// =========================================================================
	// Khởi tạo AI Orchestrator và Vision Pipeline
	// =========================================================================
	aiClient := ai.NewClient(cfg.AI.URL, log)
	orchestrator := ai.NewOrchestrator(chatRepo, hub, historyStore, aiClient, log)

	// Ping AI backend lúc khởi động để log sớm khi backend chưa chạy
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := orchestrator.Health(ctx); err != nil {
			log.Warn("ai backend not reachable", zap.Error(err))
		} else {
			log.Info("ai backend healthy", zap.String("url", cfg.AI.URL))
		}
		cancel()
	}

	visionPipeline := vision.NewPipeline(cfg.Vision.URL, historyStore, log)

	// =========================================================================
	// Khởi tạo Relay Service
	// =========================================================================
	relayService := relay.NewService(
		chatRepo,
		aiSettingRepo,
		hub,
		historyStore,
		visionPipeline,
		channelRegistry,
		orchestrator,
		log,
	)

	log.Info("services initialized")

	// =========================================================================
	// Khởi tạo Handlers
	// =========================================================================
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := services.NewAuthService(userRepo, jwtService, log)
	authHandler := handlers.NewAuthHandler(authService, log)
	authMiddleware := middleware.AuthMiddleware(jwtService)

	chatHandler := handlers.NewChatHandler(chatRepo, relayService, log)
	aiSettingHandler := handlers.NewAISettingHandler(aiSettingRepo, log)
	wsHandler := handlers.NewWSHandler(hub, relayService, jwtService, log)
	webhookHandler := handlers.NewWebhookHandler(
		fbChannel,
		relayService,
		orchestrator,
		customerRepo,
		aiSettingRepo,
		visionPipeline,
		log,
	)

	log.Info("handlers initialized")

	// =========================================================================
	// Thiết lập Gin Router
	// =========================================================================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS([]string{"*"}))
	// CSRF protection - exempt auth, webhook và websocket routes
	router.Use(middleware.CSRFMiddlewareWithExempt([]string{
		"/api/auth/",    // Login, refresh không cần CSRF ban đầu
		"/api/webhook/", // FB webhooks từ external services
		"/ws",           // WebSocket handshake
		"/health",       // Health check
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"service":      cfg.App.Name,
			"version":      "1.0.0",
			"channels":     channelRegistry.GetAll(),
			"sales_online": hub.SaleCount(),
		})
	})

	// WebSocket routes
	wsHandler.RegisterRoutes(router)

	// =========================================================================
	// API Routes
	// =========================================================================
	api := router.Group("/api")
	{
		// Auth routes (login, refresh: public | me, logout: protected)
		authHandler.RegisterRoutes(api, authMiddleware)

		// Webhook routes (public - Facebook gọi vào)
		webhookHandler.RegisterRoutes(api)

		// Dashboard routes (yêu cầu auth)
		chatHandler.RegisterRoutes(api, authMiddleware)
		aiSettingHandler.RegisterRoutes(api, authMiddleware)
	}

	log.Info("routes registered",
		zap.Strings("endpoints", []string{
			"/ws",
			"/ws/sale",
			"/api/chat/list",
			"/api/chat/:from/:to",
			"/api/chat/markAsRead",
			"/api/user-ai/:userId",
			"/api/webhook/facebook",
		}),
	)

	// =========================================================================
	// Khởi động HTTP Server
	// =========================================================================
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.App.Port),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Không set WriteTimeout: websocket connections sống lâu
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.Int("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// =========================================================================
	// Graceful Shutdown
	// =========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
