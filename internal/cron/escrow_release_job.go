package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

type escrowReleaser interface {
	AutoReleaseExpired(ctx context.Context) ([]string, error)
}

type EscrowReleaseJobParams struct {
	Logger *logger.Logger
	Escrow escrowReleaser
}

// NewEscrowReleaseJob builds the job that releases escrow holds past their
// hold_until date.
func NewEscrowReleaseJob(params EscrowReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Escrow == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	return &escrowReleaseJob{logg: params.Logger, escrow: params.Escrow}, nil
}

type escrowReleaseJob struct {
	logg   *logger.Logger
	escrow escrowReleaser
}

func (j *escrowReleaseJob) Name() string { return "escrow-auto-release" }

func (j *escrowReleaseJob) Run(ctx context.Context) error {
	released, err := j.escrow.AutoReleaseExpired(ctx)
	if err != nil {
		return fmt.Errorf("auto release escrow: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"released_count": len(released),
		"order_numbers":  released,
	})
	j.logg.Info(logCtx, "escrow auto-release complete")
	return nil
}
