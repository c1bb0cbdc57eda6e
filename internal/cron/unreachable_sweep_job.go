package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/amelbouzid/karakou-backend/internal/confirmation"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

const defaultUnreachableWindow = 48 * time.Hour

type confirmationSweeper interface {
	SweepUnreachable(ctx context.Context, unreachableAfter time.Duration) (confirmation.SweepResult, error)
}

// UnreachableSweepJobParams configure the unreachable-customer sweep.
type UnreachableSweepJobParams struct {
	Logger        *logger.Logger
	Confirmations confirmationSweeper
	Window        time.Duration
}

// NewUnreachableSweepJob builds the job that cancels pending orders nobody
// could reach within the window.
func NewUnreachableSweepJob(params UnreachableSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Confirmations == nil {
		return nil, fmt.Errorf("confirmation service required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultUnreachableWindow
	}
	return &unreachableSweepJob{
		logg:          params.Logger,
		confirmations: params.Confirmations,
		window:        window,
	}, nil
}

type unreachableSweepJob struct {
	logg          *logger.Logger
	confirmations confirmationSweeper
	window        time.Duration
}

func (j *unreachableSweepJob) Name() string { return "unreachable-sweep" }

func (j *unreachableSweepJob) Run(ctx context.Context) error {
	result, err := j.confirmations.SweepUnreachable(ctx, j.window)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"examined":  result.Examined,
		"cancelled": result.Cancelled,
		"skipped":   result.Skipped,
	})
	if err != nil {
		j.logg.Error(ctx, "unreachable sweep finished with errors", err)
		return err
	}
	j.logg.Info(ctx, "unreachable sweep finished")
	return nil
}
