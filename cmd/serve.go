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
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/config"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/db"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/handlers"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/lock"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/logging"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/metrics"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/realtime"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
	api "github.com/PR-botsAI/VolleyCoachAI-sub000/routes"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/services"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/storage"
)

const shutdownTimeout = 15 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	if migrateOnStart {
		applied, err := db.Migrate(ctx, dbConn)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", slog.Int("count", applied))
	}

	g, gctx := errgroup.WithContext(ctx)

	hub := realtime.NewHub(logger)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	// Без Redis события и блокировки живут в пределах одного процесса.
	var (
		publisher realtime.Publisher = hub
		locker    lock.MatchLocker   = lock.NewLocalLocker()
	)
	if cfg.RedisAddr != "" {
		rdb, err := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, 5*time.Second)
		if err != nil {
			return err
		}
		defer rdb.Close()

		relay := realtime.NewRedisRelay(rdb, hub, realtime.DefaultRelayChannel, logger)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		publisher = relay
		locker = lock.NewRedisLocker(rdb, lock.DefaultLockTTL, logger)
		logger.Info("redis connected", slog.String("addr", cfg.RedisAddr))
	}

	var uploader storage.FileUploader
	r2cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if r2cfg.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	m := metrics.NewService()

	// Репозитории
	tx := repositories.NewTransactor(dbConn, logger)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	setRepo := repositories.NewPostgresSetRepository(dbConn)
	pointRepo := repositories.NewPostgresPointRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)

	// Сервисы
	standingsService := services.NewStandingsService(tx, standingRepo, logger)
	scoringService := services.NewScoringService(
		tx,
		matchRepo,
		setRepo,
		pointRepo,
		tournamentRepo,
		standingsService,
		locker,
		publisher,
		m,
		logger,
	)
	scheduleService := services.NewScheduleService(tx, tournamentRepo, matchRepo, publisher, m, logger)
	bracketService := services.NewBracketService(tx, tournamentRepo, matchRepo, setRepo, uploader, publisher, m, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Match:      handlers.NewMatchHandler(scoringService),
		Standings:  handlers.NewStandingsHandler(standingsService),
		Tournament: handlers.NewTournamentHandler(scheduleService, bracketService),
		WebSocket:  handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
		Health:     handlers.NewHealthHandler(dbConn),
		Metrics:    metrics.NewMetricsHandler(),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	})

	err = g.Wait()
	logger.Info("application exited")
	return err
}
