package scheduler

import (
	"context"
	"fmt"

	"github.com/Dan9191/mercury-notifier/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner performs one notification pass
type Runner interface {
	Run(ctx context.Context) (*service.RunReport, error)
}

// Scheduler runs the pipeline on a cron schedule. A tick is skipped while
// the previous pass is still running.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// New registers runner under the standard 5-field cron spec (descriptors like @every are accepted)
func New(ctx context.Context, spec string, runner Runner, log *logrus.Logger) (*Scheduler, error) {
	logger := cron.VerbosePrintfLogger(log)
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := runner.Run(ctx); err != nil {
			log.Errorf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.log.Infof("Scheduler started with %d job(s)", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once a running pass finishes
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
