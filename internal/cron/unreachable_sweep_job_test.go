package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amelbouzid/karakou-backend/internal/confirmation"
)

type stubSweeper struct {
	window time.Duration
	result confirmation.SweepResult
	err    error
}

func (s *stubSweeper) SweepUnreachable(ctx context.Context, unreachableAfter time.Duration) (confirmation.SweepResult, error) {
	s.window = unreachableAfter
	return s.result, s.err
}

func TestUnreachableSweepJobDefaultsWindow(t *testing.T) {
	sweeper := &stubSweeper{result: confirmation.SweepResult{Examined: 3, Cancelled: 2, Skipped: 1}}
	job, err := NewUnreachableSweepJob(UnreachableSweepJobParams{
		Logger:        testLogger(),
		Confirmations: sweeper,
	})
	if err != nil {
		t.Fatalf("NewUnreachableSweepJob: %v", err)
	}
	if job.Name() != "unreachable-sweep" {
		t.Fatalf("unexpected name %q", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.window != 48*time.Hour {
		t.Fatalf("expected default 48h window, got %s", sweeper.window)
	}
}

func TestUnreachableSweepJobUsesConfiguredWindow(t *testing.T) {
	sweeper := &stubSweeper{}
	job, err := NewUnreachableSweepJob(UnreachableSweepJobParams{
		Logger:        testLogger(),
		Confirmations: sweeper,
		Window:        72 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewUnreachableSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.window != 72*time.Hour {
		t.Fatalf("expected 72h window, got %s", sweeper.window)
	}
}

func TestUnreachableSweepJobPropagatesError(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("sweep failed")}
	job, err := NewUnreachableSweepJob(UnreachableSweepJobParams{
		Logger:        testLogger(),
		Confirmations: sweeper,
	})
	if err != nil {
		t.Fatalf("NewUnreachableSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from sweep to propagate")
	}
}

func TestNewUnreachableSweepJobRequiresService(t *testing.T) {
	_, err := NewUnreachableSweepJob(UnreachableSweepJobParams{Logger: testLogger()})
	if err == nil {
		t.Fatal("expected error when confirmation service is missing")
	}
}
