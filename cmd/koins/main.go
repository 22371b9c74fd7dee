package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"koins/internal/api"
	"koins/internal/api/handlers"
	"koins/internal/repository"
	"koins/internal/service"
	"koins/pkg/auth"
	"koins/pkg/config"
	"koins/pkg/logger"
	"koins/pkg/postgres"

	"go.uber.org/zap"
)

// @title Koins API
// @version 1.0
// @description Personal finance tracker: transactions, invoice scanning and AI insights

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Format); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting Koins service")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(&cfg.Database, appLogger); err != nil {
			appLogger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	llmClient, err := service.NewLLMClient(cfg, logger.Named("llm"))
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	defer llmClient.Close()

	ocrService, err := service.NewOCRService(&cfg.OCR, logger.Named("ocr"))
	if err != nil {
		appLogger.Fatal("Failed to initialize OCR service", zap.Error(err))
	}

	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	coercionService := service.NewCoercionService(llmClient, cfg.LLM.Timeout, logger.Named("coercion"))
	scanService := service.NewScanService(ocrService, coercionService, logger.Named("scan"))
	txService := service.NewTransactionService(txRepo, appLogger)
	predictionService := service.NewPredictionService(txRepo, llmClient, logger.Named("prediction"))

	app := api.SetupRouter(api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, appLogger),
		Scan:        handlers.NewScanHandler(scanService, cfg.Scan.UploadDir, appLogger),
		Transaction: handlers.NewTransactionHandler(txService, appLogger),
		Prediction:  handlers.NewPredictionHandler(predictionService, appLogger),
	}, jwtManager, api.RouterConfig{
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
