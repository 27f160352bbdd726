package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/config"
	"yashubustudio/sentiment/internal/desktop"
	"yashubustudio/sentiment/internal/logging"
	"yashubustudio/sentiment/internal/sentiment"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sentiment-desktop: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config.json (default: ./config.json)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logging.New(*logLevel, "console")
	defer func() { _ = log.Sync() }()

	cfg, err := config.LoadModelConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	clf, err := sentiment.NewOrtClassifier(cfg, nil, log)
	if err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}
	scorer, err := sentiment.NewScorer(clf, cfg.Labels, nil, log)
	if err != nil {
		_ = clf.Close()
		return fmt.Errorf("init scorer: %w", err)
	}
	defer func() {
		if err := scorer.Close(); err != nil {
			log.Warn("close scorer", zap.Error(err))
		}
	}()

	return desktop.Run(scorer, log)
}
