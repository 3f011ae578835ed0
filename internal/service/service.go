package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/mercury-notifier/internal/config"
	"github.com/Dan9191/mercury-notifier/internal/formatter"
	"github.com/Dan9191/mercury-notifier/internal/models"
	"github.com/Dan9191/mercury-notifier/internal/notify"
	"github.com/Dan9191/mercury-notifier/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// TransactionSource returns an account's most recent transactions, newest first
type TransactionSource interface {
	FetchTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error)
}

// AccountResult summarizes one account within a run
type AccountResult struct {
	Account   string `json:"account"`
	Fetched   int    `json:"fetched"`
	Selected  int    `json:"selected"`
	Delivered int    `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// RunReport summarizes one notification run
type RunReport struct {
	RunID      string          `json:"run_id"`
	Mode       string          `json:"mode"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Accounts   []AccountResult `json:"accounts"`
	Error      string          `json:"error,omitempty"`
}

// FetchError reports a failed transaction fetch for one account
type FetchError struct {
	Account string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch transactions for %s: %v", e.Account, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Delivered returns the total number of messages delivered in the run
func (r *RunReport) Delivered() int {
	n := 0
	for _, a := range r.Accounts {
		n += a.Delivered
	}
	return n
}

// Service runs the fetch, filter, format, deliver, persist pipeline
type Service struct {
	source       TransactionSource
	sink         notify.Sink
	formatter    *formatter.Formatter
	strategy     Strategy
	accounts     []models.Account
	limiter      *rate.Limiter
	skipFetch    bool
	skipDelivery bool
	log          *logrus.Logger

	mu   sync.Mutex
	last *RunReport
}

// NewService initializes a new service
func NewService(cfg *config.Config, source TransactionSource, sink notify.Sink, strategy Strategy, log *logrus.Logger) *Service {
	limit := rate.Inf
	if cfg.DeliveryInterval > 0 {
		limit = rate.Every(cfg.DeliveryInterval)
	}
	return &Service{
		source:       source,
		sink:         sink,
		formatter:    formatter.New(cfg.Accounts, cfg.Location),
		strategy:     strategy,
		accounts:     cfg.Accounts,
		limiter:      rate.NewLimiter(limit, 1),
		skipFetch:    cfg.ContinueOnFetchError(),
		skipDelivery: cfg.ContinueOnDeliveryError(),
		log:          log,
	}
}

// LastReport returns the report of the most recent run, or nil
func (s *Service) LastReport() *RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run processes every configured account once. Fetch and delivery failures end
// the run or skip the account according to their own policies. State is
// committed even when the run aborts so delivered transactions are not sent again.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Mode:      s.strategy.Name(),
		StartedAt: time.Now().UTC(),
	}
	log := s.log.WithFields(logrus.Fields{"run_id": report.RunID, "mode": report.Mode})

	names := make([]string, 0, len(s.accounts))
	for _, a := range s.accounts {
		names = append(names, a.Name)
	}
	log.Infof("Starting notification run for accounts: %v", names)

	runErr := s.strategy.Begin(ctx)
	if runErr == nil {
		for _, acct := range s.accounts {
			res, err := s.processAccount(ctx, log.WithField("account", acct.Name), acct)
			report.Accounts = append(report.Accounts, res)
			if err == nil {
				continue
			}
			if !s.skippable(err) || ctx.Err() != nil {
				runErr = err
				break
			}
			log.WithField("account", acct.Name).Errorf("Skipping account %s: %v", acct.Name, err)
		}

		if err := s.strategy.Commit(context.WithoutCancel(ctx)); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	report.FinishedAt = time.Now().UTC()
	if runErr != nil {
		report.Error = runErr.Error()
		log.Errorf("Notification run failed: %v", runErr)
	} else {
		log.Infof("Notification run complete: %d delivered", report.Delivered())
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report, runErr
}

// skippable reports whether the run may move on to the next account after err
func (s *Service) skippable(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return s.skipFetch
	}
	return s.skipDelivery
}

func (s *Service) processAccount(ctx context.Context, log *logrus.Entry, acct models.Account) (AccountResult, error) {
	res := AccountResult{Account: acct.Name}
	log.Infof("Checking account %s (%s)", acct.Name, utils.MaskID(acct.ID))

	txs, err := s.source.FetchTransactions(ctx, acct.ID, s.strategy.Limit())
	if err != nil {
		err = &FetchError{Account: acct.Name, Err: err}
		res.Error = err.Error()
		return res, err
	}
	res.Fetched = len(txs)

	pending := s.strategy.Select(acct.Name, txs)
	res.Selected = len(pending)
	if len(pending) == 0 {
		log.Infof("No new transactions for %s.", acct.Name)
		return res, nil
	}

	for _, tx := range pending {
		if err := s.limiter.Wait(ctx); err != nil {
			res.Error = err.Error()
			return res, err
		}
		msg := s.formatter.Format(acct.Name, tx)
		if err := s.sink.Send(ctx, msg); err != nil {
			err = fmt.Errorf("failed to deliver transaction %s for %s: %w", tx.ID, acct.Name, err)
			res.Error = err.Error()
			return res, err
		}
		s.strategy.MarkDelivered(acct.Name, tx.ID)
		res.Delivered++
	}

	log.Infof("Notified %d new transactions for %s.", res.Delivered, acct.Name)
	return res, nil
}
