package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/monitoria-simple/api/v1"
	"github.com/monitoria-simple/config"
	"github.com/monitoria-simple/database"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/lib/notifier"
	"github.com/monitoria-simple/lib/renderer"
	"github.com/monitoria-simple/lib/storage"
	"github.com/monitoria-simple/middleware"
	"github.com/monitoria-simple/repositories"
	"github.com/monitoria-simple/repositories/memory"
	"github.com/monitoria-simple/services"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// loadConfig reads .env and the environment and builds the logger
func loadConfig() (config.Config, *logger.Logger, error) {
	if err := config.LoadEnv(); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}

func openStore(cfg config.Config, log *logger.Logger, migrate bool) (repositories.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("using the in-memory store; data is lost on exit")
		return memory.NewStore(), nil
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(db, log); err != nil {
			return nil, err
		}
	}
	return repositories.NewGormStore(db), nil
}

func newNotifier(cfg config.Config, log *logger.Logger) notifier.Notifier {
	if cfg.NotifierWebhookURL == "" {
		log.Warn("NOTIFIER_WEBHOOK_URL is not set; notifications are only logged")
		return notifier.NewLogNotifier(log)
	}
	return notifier.NewWebhookNotifier(cfg.NotifierWebhookURL, cfg.NotifierTimeout)
}

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Migrate the database schema before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *logger.Logger, migrate bool) error {
	store, err := openStore(cfg, log, migrate)
	if err != nil {
		return err
	}

	documents, err := storage.NewLocalStore(cfg.DocumentRoot, cfg.PublicBaseURL, cfg.DocumentURLSecret)
	if err != nil {
		return err
	}
	archive := services.NewDocumentArchive(renderer.NewTextRenderer(), documents, services.DefaultRetryConfig(), log)

	dispatchCfg := notifier.DefaultDispatcherConfig()
	dispatchCfg.MaxAttempts = cfg.NotifierMaxAttempts
	dispatchCfg.AttemptTimeout = cfg.NotifierTimeout
	dispatcher := notifier.NewDispatcher(newNotifier(cfg, log), dispatchCfg, log)

	svc := services.New(store, archive, dispatcher, services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL), log)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(ctx, 5*time.Minute)

	gin.SetMode(gin.ReleaseMode)
	router := v1.NewRouter(v1.Dependencies{
		Services:    svc,
		Downloads:   documents,
		Log:         log,
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).
			WithField("storage", cfg.StorageDriver).
			Info("monitoria API starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
