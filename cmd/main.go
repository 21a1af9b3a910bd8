package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/nurlan-dev/ctf-arena/config"
	"github.com/nurlan-dev/ctf-arena/db"
	"github.com/nurlan-dev/ctf-arena/handlers"
	"github.com/nurlan-dev/ctf-arena/repositories"
	api "github.com/nurlan-dev/ctf-arena/routes"
	"github.com/nurlan-dev/ctf-arena/scoreboard"
	"github.com/nurlan-dev/ctf-arena/services"
	"github.com/nurlan-dev/ctf-arena/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// WebSocket Hub для событий скорборда
	wsHub := scoreboard.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	challengeRepo := repositories.NewPostgresChallengeRepository(dbConn)
	participationRepo := repositories.NewPostgresParticipationRepository(dbConn)
	txRunner := repositories.NewTxRunner(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(teamRepo, userRepo, uploader)
	gameService := services.NewGameService(gameRepo, challengeRepo, uploader)
	scoreboardService := services.NewScoreboardService(participationRepo, challengeRepo, wsHub, logger)
	tokenSource := services.NewJWTTokenSource(cfg.JWTSecretKey)

	participationService := services.NewParticipationService(
		txRunner,
		participationRepo,
		userRepo,
		teamRepo,
		gameRepo,
		challengeRepo,
		tokenSource,
		scoreboardService,
		logger,
	)
	logger.Info("Services initialized")

	// Планировщик периодической сверки instance set'ов принятых заявок
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		logger.Info("instance sync scheduler started", slog.Duration("interval", cfg.SyncInterval))

		if err := participationService.SyncInstances(context.Background()); err != nil {
			logger.Error("scheduler: initial sync failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := participationService.SyncInstances(context.Background()); err != nil {
				logger.Error("scheduler: periodic sync failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	h := api.Handlers{
		Auth:          handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Team:          handlers.NewTeamHandler(teamService),
		Game:          handlers.NewGameHandler(gameService),
		Participation: handlers.NewParticipationHandler(participationService),
		Scoreboard:    handlers.NewScoreboardHandler(scoreboardService, wsHub),
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, h, cfg.JWTSecretKey, userRepo)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
