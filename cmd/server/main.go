package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/DphenomenalALU/tresor-backend/internal/config"
	"github.com/DphenomenalALU/tresor-backend/internal/domain/user"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/googleauth"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/authhandler"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/chathandler"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/ragiehandler"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients/completion"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients/ragie"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg := logger.GetLogger()
		lg.Fatal().Err(err).Msg("load config")
	}

	log, err := logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		lg := logger.GetLogger()
		lg.Fatal().Err(err).Msg("configure logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("initialise storage")
	}
	log.Info().Str("backend", cfg.StorageBackend).Msg("storage ready")

	verifier, err := buildVerifier(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialise google auth")
	}

	users := user.NewService(store)

	completions := completion.NewClient(
		httpclients.NewClient("groq", cfg.HTTPTimeout),
		"groq", cfg.GroqBaseURL, cfg.GroqAPIKey,
	)
	connector := ragie.NewClient(
		httpclients.NewClient("ragie", cfg.HTTPTimeout),
		cfg.RagieBaseURL, cfg.RagieAPIKey, cfg.AppURL,
	)

	server := httpserver.NewHTTPServer(
		cfg,
		authhandler.NewAuthHandler(users, verifier),
		chathandler.NewChatHandler(completions, cfg.DefaultModel),
		ragiehandler.NewRagieHandler(connector),
	)

	apiServer := &http.Server{Addr: server.Addr(), Handler: server.Handler()}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info().Str("addr", apiServer.Addr).Msg("http server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		log.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown")
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("stopped")
}

func buildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(cfg.StoragePath)
	case "redis":
		return storage.NewRedisStore(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	case "postgres":
		return storage.NewPostgresStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// buildVerifier wires the Google ID-token verifier. Without a client ID
// Google sign-in is disabled and the endpoint rejects every credential.
func buildVerifier(ctx context.Context, cfg *config.Config) (googleauth.Verifier, error) {
	if cfg.GoogleClientID == "" {
		lg := logger.GetLogger()
		lg.Warn().Msg("GOOGLE_CLIENT_ID not set, google sign-in disabled")
		return disabledVerifier{}, nil
	}
	return googleauth.NewJWKSVerifier(
		ctx,
		cfg.GoogleJWKSURL,
		cfg.GoogleIssuer,
		cfg.GoogleClientID,
		cfg.JWKSRefreshEvery,
		logger.GetLogger(),
	)
}

type disabledVerifier struct{}

func (disabledVerifier) Verify(context.Context, string) (*user.Identity, error) {
	return nil, fmt.Errorf("google sign-in is not configured")
}
