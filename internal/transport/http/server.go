package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"docuchat/internal/ai"
	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/cache"
	rabbitmqClient "docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config

	hfClient := ai.NewHFClient(ai.HFConfig{
		BaseURL:         cfg.HuggingFace.BaseURL,
		APIToken:        cfg.HuggingFace.APIToken,
		EmbeddingModel:  cfg.HuggingFace.EmbeddingModel,
		GenerationModel: cfg.HuggingFace.GenerationModel,
	})

	// The generation model is always remote; embeddings come either from the
	// same API or from the in-process ONNX model.
	var backend ai.Embedder = hfClient
	throttle := time.Duration(cfg.Retrieval.BatchDelayMS) * time.Millisecond
	if cfg.Retrieval.Provider == "local" {
		backend = ai.NewLocalEmbedder(
			cfg.LocalModel.ModelPath,
			cfg.LocalModel.VocabPath,
			cfg.LocalModel.ONNXSharedLibPath,
			cfg.LocalModel.MaxSeqLen,
		)
		throttle = 0
	}
	provider := ai.NewProvider(backend, cfg.Retrieval.BatchSize, ai.RetryPolicy{
		MaxAttempts: cfg.Retrieval.RetryAttempts,
		Delay:       time.Duration(cfg.Retrieval.RetryDelayMS) * time.Millisecond,
	}, throttle)

	sessionRepo := repository.NewSessionRepository(app.MySQL)
	sessionCache := cache.NewSessionCache(app.Redis,
		time.Duration(cfg.Redis.SessionTTLSeconds)*time.Second)
	logPublisher := rabbitmqClient.NewQueryLogPublisher(app.MQConn, cfg.RabbitMQ.QueryLogQueue)

	chatbotService := appsvc.NewChatbotService(
		sessionRepo,
		sessionCache,
		provider,
		hfClient,
		logPublisher,
		appsvc.ChatbotConfig{
			ChunkSize:       cfg.Retrieval.ChunkSize,
			ChunkOverlap:    cfg.Retrieval.ChunkOverlap,
			TopK:            cfg.Retrieval.TopK,
			SnippetMaxChars: cfg.Retrieval.SnippetMaxChars,
			MaxInputChars:   cfg.Retrieval.MaxInputChars,
			Generation: ai.GenerationParams{
				MaxNewTokens: cfg.HuggingFace.MaxNewTokens,
				Temperature:  cfg.HuggingFace.Temperature,
			},
		},
	)
	chatbotHandler := handler.NewChatbotHandler(chatbotService)

	userRepo := repository.NewUserRepository(app.MySQL)
	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	authHandler := handler.NewAuthHandler(authService)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	chatbotGroup := v1.Group("/chatbot")
	chatbotGroup.POST("/upload", chatbotHandler.Upload)
	chatbotGroup.POST("/ask", chatbotHandler.Ask)
	chatbotGroup.GET("/sessions/:id/sources", chatbotHandler.Sources)

	adminHandler := handler.NewAdminHandler(repository.NewQueryLogRepository(app.MySQL))

	adminGroup := v1.Group("/admin")
	adminGroup.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	adminGroup.GET("/sessions", chatbotHandler.ListSessions)
	adminGroup.GET("/sessions/:id/logs", adminHandler.QueryLogs)

	return router
}
