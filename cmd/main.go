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

	"github.com/designloop/sprint-system/config"
	"github.com/designloop/sprint-system/db"
	"github.com/designloop/sprint-system/handlers"
	"github.com/designloop/sprint-system/live"
	"github.com/designloop/sprint-system/repositories"
	api "github.com/designloop/sprint-system/routes"
	"github.com/designloop/sprint-system/services"
	"github.com/designloop/sprint-system/storage"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

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

	// Инициализация загрузчика файлов (Cloudflare R2, опционально)
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewR2Uploader(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2Bucket,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("R2 uploader initialized")
	} else {
		logger.Info("R2 uploader disabled, asset uploads unavailable")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	challengeRepo := repositories.NewPostgresChallengeRepository(dbConn)
	sprintRepo := repositories.NewPostgresSprintRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	voteRepo := repositories.NewPostgresVoteRepository(dbConn)
	xpEventRepo := repositories.NewPostgresXPEventRepository(dbConn)
	badgeRepo := repositories.NewPostgresBadgeRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	emailService := services.NewEmailService(cfg, logger)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, uploader)
	challengeService := services.NewChallengeService(challengeRepo)
	schedulerService := services.NewSchedulerService(sprintRepo, challengeRepo)
	sprintService := services.NewSprintService(
		sprintRepo,
		challengeRepo,
		participantRepo,
		userRepo,
		emailService,
		wsHub,
		logger,
	)
	participantService := services.NewParticipantService(participantRepo, sprintRepo, userRepo)
	engagementService := services.NewEngagementService(xpEventRepo)
	submissionService := services.NewSubmissionService(
		submissionRepo,
		sprintRepo,
		participantRepo,
		engagementService,
		uploader,
	)
	voteService := services.NewVoteService(voteRepo, submissionRepo, engagementService)
	streakService := services.NewStreakService(sprintRepo, participantRepo, xpEventRepo, userRepo)
	dashboardService := services.NewDashboardService(engagementService, streakService, badgeRepo)
	logger.Info("services initialized")

	// Планировщик автоматического перехода фаз спринтов
	go func() {
		ticker := time.NewTicker(cfg.AutoAdvanceInterval)
		defer ticker.Stop()
		logger.Info("sprint phase scheduler started", slog.Duration("interval", cfg.AutoAdvanceInterval))

		if err := sprintService.AutoAdvanceDueSprints(context.Background()); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := sprintService.AutoAdvanceDueSprints(context.Background()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	routerHandlers := api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		User:        handlers.NewUserHandler(userService),
		Challenge:   handlers.NewChallengeHandler(challengeService),
		Sprint:      handlers.NewSprintHandler(schedulerService, sprintService),
		Participant: handlers.NewParticipantHandler(participantService),
		Submission:  handlers.NewSubmissionHandler(submissionService),
		Vote:        handlers.NewVoteHandler(voteService),
		Engagement:  handlers.NewEngagementHandler(engagementService, streakService),
		Dashboard:   handlers.NewDashboardHandler(dashboardService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, sprintService),
	}
	router := api.SetupRoutes(routerHandlers, cfg.JWTSecretKey, cfg.CORSAllowedOrigins)
	logger.Info("routes configured")

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
