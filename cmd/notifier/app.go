package main

import (
	"context"
	"fmt"

	"github.com/Dan9191/mercury-notifier/internal/config"
	"github.com/Dan9191/mercury-notifier/internal/integrations/mercury"
	"github.com/Dan9191/mercury-notifier/internal/notify"
	"github.com/Dan9191/mercury-notifier/internal/repository"
	"github.com/Dan9191/mercury-notifier/internal/service"
	"github.com/sirupsen/logrus"
)

// app holds the wired components for one process
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store repository.Store
	svc   *service.Service
}

func loadConfig(log *logrus.Logger) (*config.Config, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	return cfg, nil
}

func newApp(ctx context.Context, log *logrus.Logger) (*app, error) {
	cfg, err := loadConfig(log)
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	sink, err := notify.NewSink(cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	strategy, err := service.NewStrategy(cfg, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	// Initialize layers
	source := mercury.NewClient(cfg, log)
	svc := service.NewService(cfg, source, sink, strategy, log)

	return &app{cfg: cfg, log: log, store: store, svc: svc}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warnf("Failed to close state store: %v", err)
	}
}
