package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/settlement-engine/pkg/logger"
)

const defaultInboxRetention = 30 * 24 * time.Hour

type readPurger interface {
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

// InboxRetentionJobParams configure pruning of read in-app notifications.
// Unread notifications are never pruned.
type InboxRetentionJobParams struct {
	Logger        *logger.Logger
	Notifications readPurger
	RetentionDays int
}

func NewInboxRetentionJob(params InboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification service required")
	}
	keep := defaultInboxRetention
	if params.RetentionDays > 0 {
		keep = time.Duration(params.RetentionDays) * 24 * time.Hour
	}
	return &inboxRetentionJob{logg: params.Logger, inbox: params.Notifications, keep: keep, now: time.Now}, nil
}

type inboxRetentionJob struct {
	logg  *logger.Logger
	inbox readPurger
	keep  time.Duration
	now   func() time.Time
}

func (j *inboxRetentionJob) Name() string { return "inbox-retention" }

func (j *inboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	purged, err := j.inbox.PurgeRead(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge read notifications: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "purged": purged}), "inbox retention complete")
	return nil
}
