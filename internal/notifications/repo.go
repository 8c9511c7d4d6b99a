package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/pagination"
)

// Query selects one page of a user's inbox.
type Query struct {
	Page       pagination.Params
	UnreadOnly bool
}

// Inbox is one page of notifications, newest first.
type Inbox struct {
	Notifications []models.Notification
	NextCursor    string
}

type Repository interface {
	// WithTx binds the repository to tx; a nil tx keeps the current handle.
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, q Query) (*Inbox, error)
	// MarkRead reports false when the row is missing, foreign or already read.
	MarkRead(ctx context.Context, userID string, notificationID uuid.UUID, now time.Time) (bool, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return gormRepository{db: db}
}

func (r gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return gormRepository{db: tx}
}

func (r gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r gormRepository) ListByUser(ctx context.Context, userID string, q Query) (*Inbox, error) {
	cursor, err := pagination.ParseCursor(q.Page.Cursor)
	if err != nil {
		return nil, err
	}

	tx := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if q.UnreadOnly {
		tx = tx.Where("read_at IS NULL")
	}
	if cursor != nil {
		tx = tx.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Notification
	if err := tx.Order("created_at DESC, id DESC").Limit(pagination.FetchLimit(q.Page.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}

	page, more := pagination.Split(rows, q.Page.Limit)
	inbox := &Inbox{Notifications: page}
	if more {
		last := page[len(page)-1]
		inbox.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return inbox, nil
}

func (r gormRepository) MarkRead(ctx context.Context, userID string, notificationID uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		UpdateColumn("read_at", now)
	return res.RowsAffected > 0, res.Error
}

// DeleteReadBefore only removes notifications the user has seen.
func (r gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
