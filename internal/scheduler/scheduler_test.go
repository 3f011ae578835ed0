package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/mercury-notifier/internal/service"
	"github.com/sirupsen/logrus"
)

type runnerFunc func(ctx context.Context) (*service.RunReport, error)

func (f runnerFunc) Run(ctx context.Context) (*service.RunReport, error) { return f(ctx) }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	t.Parallel()
	noop := runnerFunc(func(context.Context) (*service.RunReport, error) { return nil, nil })
	if _, err := New(context.Background(), "every now and then", noop, testLogger()); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	t.Parallel()
	ran := make(chan struct{}, 10)
	runner := runnerFunc(func(context.Context) (*service.RunReport, error) {
		ran <- struct{}{}
		return &service.RunReport{}, nil
	})

	s, err := New(context.Background(), "@every 1s", runner, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}

func TestSchedulerSkipsAfterCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan struct{}, 10)
	runner := runnerFunc(func(context.Context) (*service.RunReport, error) {
		ran <- struct{}{}
		return nil, nil
	})
	s, err := New(ctx, "@every 1s", runner, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	time.Sleep(1500 * time.Millisecond)
	<-s.Stop().Done()

	if len(ran) != 0 {
		t.Fatalf("runner called %d times after cancel", len(ran))
	}
}
