package cron

import (
	"context"
	"fmt"

	"github.com/amelbouzid/karakou-backend/internal/tracking"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

type trackingReconciler interface {
	ReconcileInTransit(ctx context.Context) (tracking.ReconcileResult, error)
}

// TrackingReconcileJobParams configure the carrier reconciliation pass.
type TrackingReconcileJobParams struct {
	Logger   *logger.Logger
	Tracking trackingReconciler
}

// NewTrackingReconcileJob builds the job that folds carrier history into
// every in-transit order.
func NewTrackingReconcileJob(params TrackingReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tracking == nil {
		return nil, fmt.Errorf("tracking service required")
	}
	return &trackingReconcileJob{
		logg:     params.Logger,
		tracking: params.Tracking,
	}, nil
}

type trackingReconcileJob struct {
	logg     *logger.Logger
	tracking trackingReconciler
}

func (j *trackingReconcileJob) Name() string { return "tracking-reconcile" }

func (j *trackingReconcileJob) Run(ctx context.Context) error {
	result, err := j.tracking.ReconcileInTransit(ctx)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"examined":  result.Examined,
		"delivered": result.Delivered,
		"failed":    result.Failed,
		"unknown":   result.Unknown,
		"errors":    result.Errors,
	})
	if err != nil {
		j.logg.Error(ctx, "tracking reconcile finished with errors", err)
		return err
	}
	j.logg.Info(ctx, "tracking reconcile finished")
	return nil
}
