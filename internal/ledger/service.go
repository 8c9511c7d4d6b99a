package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

// Service records money movements so finance can reconcile against the gateway.
type Service interface {
	// RecordEvent appends an event inside the caller's transaction. A nil tx
	// writes with the service's own connection.
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	// ListByOrder returns the order's events oldest first, reading through tx
	// when one is given.
	ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	OrderID     uuid.UUID             `json:"order_id"`
	UserID      string                `json:"user_id"`
	Type        enums.LedgerEventType `json:"type"`
	AmountCents int64                 `json:"amount_cents"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountCents < 0 {
		return nil, fmt.Errorf("ledger amount must be non-negative")
	}

	var metadata json.RawMessage
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode ledger metadata: %w", err)
		}
		metadata = raw
	}

	event := &models.LedgerEvent{
		ID:          uuid.New(),
		OrderID:     input.OrderID,
		UserID:      input.UserID,
		Type:        input.Type,
		AmountCents: input.AmountCents,
		Metadata:    metadata,
	}

	if err := s.repo.WithTx(tx).Append(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.WithTx(tx).ForOrder(ctx, orderID)
}

// NetAmount sums events of the credit type and subtracts those of the debit
// type.
func NetAmount(events []models.LedgerEvent, credit, debit enums.LedgerEventType) int64 {
	var net int64
	for _, e := range events {
		switch e.Type {
		case credit:
			net += e.AmountCents
		case debit:
			net -= e.AmountCents
		}
	}
	return net
}
