package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

type Notification struct {
	ID          uuid.UUID              `json:"id"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	OrderNumber *string                `json:"order_number,omitempty"`
	Read        bool                   `json:"read"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NotificationPage is one page of the inbox; NextCursor is empty on the last page.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	NextCursor    string         `json:"next_cursor,omitempty"`
}

func NewNotificationPage(rows []models.Notification, nextCursor string) NotificationPage {
	return NotificationPage{Notifications: NewNotifications(rows), NextCursor: nextCursor}
}

func NewNotifications(rows []models.Notification) []Notification {
	out := make([]Notification, 0, len(rows))
	for _, n := range rows {
		out = append(out, Notification{
			ID:          n.ID,
			Type:        n.Type,
			Title:       n.Title,
			Message:     n.Message,
			OrderNumber: n.OrderNumber,
			Read:        n.ReadAt != nil,
			ReadAt:      n.ReadAt,
			CreatedAt:   n.CreatedAt,
		})
	}
	return out
}
