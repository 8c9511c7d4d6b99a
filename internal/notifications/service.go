package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/pagination"
)

const defaultPublishTimeout = 5 * time.Second

// Notice is a user-facing notification produced by a settlement transition.
type Notice struct {
	UserID      string
	Type        enums.NotificationType
	Title       string
	Message     string
	OrderNumber string
}

// Service stores notifications and pushes them to the messaging channel.
// Channel failures are logged and never returned to callers.
type Service interface {
	// Record inserts the notification row inside the caller's transaction.
	Record(ctx context.Context, tx *gorm.DB, notice Notice) (*models.Notification, error)
	// Notify publishes to the channel without touching the database.
	Notify(ctx context.Context, notice Notice)
	List(ctx context.Context, userID string, q Query) (*Inbox, error)
	MarkRead(ctx context.Context, userID string, notificationID uuid.UUID) error
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

type ServiceParams struct {
	Repo           Repository
	Publisher      Publisher
	Logger         *logger.Logger
	PublishTimeout time.Duration
	Now            func() time.Time
}

type service struct {
	repo      Repository
	publisher Publisher
	logg      *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewService wires notifications dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("notifications publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		logg:      params.Logger,
		timeout:   timeout,
		now:       now,
	}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, notice Notice) (*models.Notification, error) {
	if notice.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification user id required")
	}
	if !notice.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}

	row := &models.Notification{
		ID:      uuid.New(),
		UserID:  notice.UserID,
		Type:    notice.Type,
		Title:   notice.Title,
		Message: notice.Message,
	}
	if notice.OrderNumber != "" {
		orderNumber := notice.OrderNumber
		row.OrderNumber = &orderNumber
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create notification")
	}
	return row, nil
}

func (s *service) Notify(ctx context.Context, notice Notice) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	err := s.publisher.Publish(pubCtx, Message{
		UserID:      notice.UserID,
		Type:        notice.Type.String(),
		Title:       notice.Title,
		Body:        notice.Message,
		OrderNumber: notice.OrderNumber,
		SentAt:      s.now().UTC(),
	})
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":      notice.UserID,
			"notification": notice.Type.String(),
		})
		s.logg.Error(logCtx, "notification publish failed", err)
	}
}

func (s *service) List(ctx context.Context, userID string, q Query) (*Inbox, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if _, err := pagination.ParseCursor(q.Page.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	inbox, err := s.repo.ListByUser(ctx, userID, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	return inbox, nil
}

func (s *service) MarkRead(ctx context.Context, userID string, notificationID uuid.UUID) error {
	if userID == "" || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and notification id required")
	}
	updated, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}

func (s *service) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purge notifications")
	}
	return deleted, nil
}
