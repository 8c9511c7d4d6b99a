package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/dbtest"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, event *models.LedgerEvent) error
	events   []models.LedgerEvent
	txBound  bool
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	if tx != nil {
		f.txBound = true
	}
	return f
}

func (f *fakeRepository) Append(ctx context.Context, event *models.LedgerEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) ForOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	return f.events, nil
}

func TestService_RecordEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := RecordLedgerEventInput{
		OrderID:     uuid.New(),
		UserID:      "user-1",
		Type:        enums.LedgerEventTypePaymentCaptured,
		AmountCents: 2500,
		Metadata:    map[string]any{"session_id": "cs_test"},
	}

	var created *models.LedgerEvent
	repo.createFn = func(ctx context.Context, event *models.LedgerEvent) error {
		created = event
		return nil
	}

	got, err := svc.RecordEvent(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger event to be created")
	}
	if created.OrderID != input.OrderID || created.Type != input.Type || created.AmountCents != input.AmountCents {
		t.Fatalf("unexpected ledger event data: %+v", created)
	}
	if string(created.Metadata) != `{"session_id":"cs_test"}` {
		t.Fatalf("metadata mismatch: %s", created.Metadata)
	}
	if got != created {
		t.Fatalf("service should return created event")
	}
	if repo.txBound {
		t.Fatalf("nil tx must not bind the repository")
	}
}

func TestService_RecordEventValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	tests := []struct {
		name  string
		input RecordLedgerEventInput
	}{
		{name: "missing order id", input: RecordLedgerEventInput{UserID: "u", Type: enums.LedgerEventTypeRefundIssued}},
		{name: "missing user", input: RecordLedgerEventInput{OrderID: uuid.New(), Type: enums.LedgerEventTypeRefundIssued}},
		{name: "invalid type", input: RecordLedgerEventInput{OrderID: uuid.New(), UserID: "u", Type: enums.LedgerEventType("not_real")}},
		{name: "negative amount", input: RecordLedgerEventInput{OrderID: uuid.New(), UserID: "u", Type: enums.LedgerEventTypeRefundIssued, AmountCents: -1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordEvent(context.Background(), nil, tc.input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestService_RecordEventRepoError(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	expectedErr := errors.New("boom")
	repo.createFn = func(ctx context.Context, event *models.LedgerEvent) error {
		return expectedErr
	}

	if _, err := svc.RecordEvent(context.Background(), nil, RecordLedgerEventInput{
		OrderID:     uuid.New(),
		UserID:      "user-1",
		Type:        enums.LedgerEventTypeEscrowReleased,
		AmountCents: 100,
	}); !errors.Is(err, expectedErr) {
		t.Fatalf("expected repo error to bubble up, got %v", err)
	}
}

func TestService_ListByOrderReadsInsideTx(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	orderID := uuid.New()
	ctx := context.Background()
	err = conn.Transaction(func(tx *gorm.DB) error {
		for _, in := range []RecordLedgerEventInput{
			{OrderID: orderID, UserID: "user-1", Type: enums.LedgerEventTypeWalletCredited, AmountCents: 3000},
			{OrderID: orderID, UserID: "user-1", Type: enums.LedgerEventTypeWalletDebited, AmountCents: 1200},
			{OrderID: orderID, UserID: "user-1", Type: enums.LedgerEventTypeEscrowHeld, AmountCents: 5000},
		} {
			if _, err := svc.RecordEvent(ctx, tx, in); err != nil {
				return err
			}
		}
		events, err := svc.ListByOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(events) != 3 {
			t.Fatalf("expected 3 events inside tx, got %d", len(events))
		}
		net := NetAmount(events, enums.LedgerEventTypeWalletCredited, enums.LedgerEventTypeWalletDebited)
		if net != 1800 {
			t.Fatalf("expected net wallet credit 1800, got %d", net)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("record in tx: %v", err)
	}
}

func TestService_ListByOrderKeepsAppendOrder(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	orderID := uuid.New()
	ctx := context.Background()
	sequence := []enums.LedgerEventType{
		enums.LedgerEventTypePaymentCaptured,
		enums.LedgerEventTypeEscrowHeld,
		enums.LedgerEventTypeEscrowReleased,
	}
	for _, eventType := range sequence {
		if _, err := svc.RecordEvent(ctx, nil, RecordLedgerEventInput{OrderID: orderID, UserID: "user-1", Type: eventType, AmountCents: 700}); err != nil {
			t.Fatalf("record %s: %v", eventType, err)
		}
	}
	if _, err := svc.RecordEvent(ctx, nil, RecordLedgerEventInput{OrderID: uuid.New(), UserID: "user-2", Type: enums.LedgerEventTypeRefundIssued}); err != nil {
		t.Fatalf("record other order: %v", err)
	}

	events, err := svc.ListByOrder(ctx, nil, orderID)
	if err != nil {
		t.Fatalf("ListByOrder: %v", err)
	}
	if len(events) != len(sequence) {
		t.Fatalf("expected %d events, got %d", len(sequence), len(events))
	}
	for i, event := range events {
		if event.Type != sequence[i] {
			t.Fatalf("event %d: expected %s got %s", i, sequence[i], event.Type)
		}
	}
}
