package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/chat"
	"yashubustudio/sentiment/internal/config"
	"yashubustudio/sentiment/internal/httpserver"
	"yashubustudio/sentiment/internal/logging"
	"yashubustudio/sentiment/internal/metrics"
	"yashubustudio/sentiment/internal/postgres"
	"yashubustudio/sentiment/internal/sentiment"
	"yashubustudio/sentiment/internal/translate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServer()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if cfg.Share {
		log.Warn("SHARE is set but public share links are not supported; serving locally only")
	}

	modelCfg, err := config.LoadModelConfig(cfg.ModelConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load model config: %w", err)
	}

	if !cfg.LogitDiskCache {
		// Every distinct request text would otherwise leave a file behind.
		modelCfg.CacheDir = ""
	}

	reg := metrics.NewRegistry()
	scorerMetrics := metrics.NewScorerMetrics(reg)

	clf, err := sentiment.NewOrtClassifier(modelCfg, scorerMetrics, log)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	scorer, err := sentiment.NewScorer(clf, modelCfg.Labels, scorerMetrics, log)
	if err != nil {
		_ = clf.Close()
		return fmt.Errorf("failed to create scorer: %w", err)
	}
	defer func() { _ = scorer.Close() }()
	log.Info("Model loaded", zap.String("model", scorer.ModelID()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	var translator chat.Translator = translate.Nop{}
	if cfg.TranslateURL != "" {
		translator = translate.NewClient(cfg.TranslateURL, cfg.TranslateLang, cfg.TranslateTimeout,
			metrics.NewTranslateMetrics(reg), log)
		log.Info("Translation enabled", zap.String("langpair", cfg.TranslateLang))
	}

	chatSvc := chat.NewService(repo, scorer, translator, clockwork.NewRealClock(), log)

	srv, err := httpserver.New(httpserver.Options{
		Addr:             cfg.Addr(),
		AllowedOrigins:   cfg.AllowedOrigins(),
		RateLimit:        cfg.RateLimit,
		EventTTL:         cfg.EventTTL,
		QueueConcurrency: cfg.QueueWorkers,
	}, httpserver.Deps{
		Analyzer: scorer,
		Chat:     chatSvc,
		Registry: reg,
		HealthChecks: []httpserver.HealthCheck{
			{Name: "model", Check: scorer.Ready},
			{Name: "database", Check: repo.Ping},
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

// openRepository connects to Postgres when a URL is configured and falls back
// to process memory otherwise.
func openRepository(ctx context.Context, databaseURL string, log *zap.Logger) (chat.Repository, func(), error) {
	if databaseURL == "" {
		log.Warn("DATABASE_URL not set, chat history is kept in memory")
		return chat.NewMemoryRepository(), func() {}, nil
	}

	pool, err := postgres.Connect(ctx, databaseURL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := postgres.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations completed")
	return postgres.NewMessageRepo(pool), pool.Close, nil
}
