package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/mercury-notifier/internal/config"
	"github.com/Dan9191/mercury-notifier/internal/models"
	"github.com/Dan9191/mercury-notifier/internal/repository"
	"github.com/sirupsen/logrus"
)

// Strategy decides which fetched transactions still need to be delivered.
// A run calls Begin once, then Select and MarkDelivered per account, then Commit once.
type Strategy interface {
	Name() string
	// Limit is how many recent transactions to fetch per account.
	Limit() int
	Begin(ctx context.Context) error
	// Select receives transactions newest first and returns the ones to
	// deliver, oldest first.
	Select(account string, txs []models.Transaction) []models.Transaction
	MarkDelivered(account, id string)
	Commit(ctx context.Context) error
}

// NewStrategy builds the strategy selected by cfg.DedupMode
func NewStrategy(cfg *config.Config, store repository.Store, log *logrus.Logger) (Strategy, error) {
	switch cfg.DedupMode {
	case config.ModeSeen, "":
		names := make([]string, 0, len(cfg.Accounts))
		for _, a := range cfg.Accounts {
			names = append(names, a.Name)
		}
		return NewSeenStrategy(store, names, cfg.FetchLimit, log), nil
	case config.ModeWindow:
		return NewWindowStrategy(cfg.Window, cfg.FetchLimit, time.Now, log), nil
	default:
		return nil, fmt.Errorf("unknown dedup mode: %s", cfg.DedupMode)
	}
}

// SeenStrategy skips transaction ids already delivered in earlier runs
type SeenStrategy struct {
	store    repository.Store
	accounts []string
	limit    int
	log      *logrus.Logger

	state repository.SeenState
}

func NewSeenStrategy(store repository.Store, accounts []string, limit int, log *logrus.Logger) *SeenStrategy {
	if limit <= 0 {
		limit = config.SeenFetchLimit
	}
	return &SeenStrategy{store: store, accounts: accounts, limit: limit, log: log}
}

func (s *SeenStrategy) Name() string { return config.ModeSeen }
func (s *SeenStrategy) Limit() int   { return s.limit }

func (s *SeenStrategy) Begin(ctx context.Context) error {
	state, err := s.store.Load(ctx, s.accounts)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	s.state = state
	s.log.Infof("Loaded state: %v", state.Counts())
	return nil
}

func (s *SeenStrategy) Select(account string, txs []models.Transaction) []models.Transaction {
	var out []models.Transaction
	for i := len(txs) - 1; i >= 0; i-- {
		if !s.state.Has(account, txs[i].ID) {
			out = append(out, txs[i])
		}
	}
	return out
}

func (s *SeenStrategy) MarkDelivered(account, id string) {
	s.state.Add(account, id)
}

func (s *SeenStrategy) Commit(ctx context.Context) error {
	if s.state == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	s.log.Infof("Saved state: %v", s.state.Counts())
	return nil
}

// WindowStrategy delivers transactions created within the last window.
// Nothing is persisted, so overlapping runs may deliver a transaction twice.
type WindowStrategy struct {
	window time.Duration
	limit  int
	now    func() time.Time
	log    *logrus.Logger

	cutoff time.Time
}

func NewWindowStrategy(window time.Duration, limit int, now func() time.Time, log *logrus.Logger) *WindowStrategy {
	if limit <= 0 {
		limit = config.WindowFetchLimit
	}
	if now == nil {
		now = time.Now
	}
	return &WindowStrategy{window: window, limit: limit, now: now, log: log}
}

func (w *WindowStrategy) Name() string { return config.ModeWindow }
func (w *WindowStrategy) Limit() int   { return w.limit }

func (w *WindowStrategy) Begin(ctx context.Context) error {
	w.cutoff = w.now().Add(-w.window)
	w.log.Infof("Delivering transactions created at or after %s", w.cutoff.UTC().Format(time.RFC3339))
	return nil
}

// Cutoff is the inclusive lower bound computed by Begin
func (w *WindowStrategy) Cutoff() time.Time { return w.cutoff }

func (w *WindowStrategy) Select(account string, txs []models.Transaction) []models.Transaction {
	var out []models.Transaction
	for i := len(txs) - 1; i >= 0; i-- {
		created, err := txs[i].CreatedTime()
		if err != nil {
			w.log.Warnf("Skipping transaction %s for %s: unparseable createdAt %q", txs[i].ID, account, txs[i].CreatedAt)
			continue
		}
		if !created.Before(w.cutoff) {
			out = append(out, txs[i])
		}
	}
	return out
}

func (w *WindowStrategy) MarkDelivered(account, id string) {}

func (w *WindowStrategy) Commit(ctx context.Context) error { return nil }
