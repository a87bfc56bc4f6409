package cron

import (
	"context"
	"errors"

	"github.com/nordtolk/nordtolk-backend/pkg/logger"
)

const defaultReleaseBatchSize = 100

// DeferredReleaser sends notifications parked past the quiet-hours window.
type DeferredReleaser interface {
	ReleaseDeferred(ctx context.Context, limit int) (int, error)
}

// DeferredReleaseJob drains deferred SMS and email rows whose send_after has
// passed. Push never parks: the gateway schedules it natively.
type DeferredReleaseJob struct {
	releaser DeferredReleaser
	batch    int
	logg     *logger.Logger
}

// NewDeferredReleaseJob wires the deferred-notification sweep.
func NewDeferredReleaseJob(releaser DeferredReleaser, batch int, logg *logger.Logger) (*DeferredReleaseJob, error) {
	if releaser == nil {
		return nil, errors.New("deferred releaser required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if batch <= 0 {
		batch = defaultReleaseBatchSize
	}
	return &DeferredReleaseJob{releaser: releaser, batch: batch, logg: logg}, nil
}

// Name identifies the job in logs and metrics.
func (j *DeferredReleaseJob) Name() string {
	return "deferred-notification-release"
}

// Run releases one batch of due notifications.
func (j *DeferredReleaseJob) Run(ctx context.Context) error {
	released, err := j.releaser.ReleaseDeferred(ctx, j.batch)
	if released > 0 {
		j.logg.Info(j.logg.WithField(ctx, "released", released), "released deferred notifications")
	}
	return err
}
