package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

// Entry describes one wallet movement.
type Entry struct {
	UserID        string
	AmountCents   int64
	Description   string
	ReferenceType string
	ReferenceID   string
}

// Service credits and debits per-user balances. Credit and Debit must run in
// the same transaction as the order or refund change they accompany.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	// Reclaim debits up to entry.AmountCents, stopping at the current
	// balance, and returns the amount actually taken.
	Reclaim(ctx context.Context, tx *gorm.DB, entry Entry) (int64, error)
	Balance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	return s.apply(ctx, tx, enums.WalletTransactionTypeCredit, entry)
}

func (s *service) Debit(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	return s.apply(ctx, tx, enums.WalletTransactionTypeDebit, entry)
}

func (s *service) Reclaim(ctx context.Context, tx *gorm.DB, entry Entry) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for wallet movement")
	}
	if entry.UserID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if entry.AmountCents <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "wallet amount must be positive")
	}
	w, err := s.repo.WithTx(tx).LockOrCreate(ctx, entry.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock wallet")
	}
	entry.AmountCents = min(entry.AmountCents, w.BalanceCents)
	if entry.AmountCents <= 0 {
		return 0, nil
	}
	if _, err := s.apply(ctx, tx, enums.WalletTransactionTypeDebit, entry); err != nil {
		return 0, err
	}
	return entry.AmountCents, nil
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, kind enums.WalletTransactionType, entry Entry) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for wallet movement")
	}
	if entry.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if entry.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "wallet amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	w, err := repo.LockOrCreate(ctx, entry.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock wallet")
	}

	var balanceAfter int64
	switch kind {
	case enums.WalletTransactionTypeCredit:
		balanceAfter = w.BalanceCents + entry.AmountCents
	case enums.WalletTransactionTypeDebit:
		if entry.AmountCents > w.BalanceCents {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "insufficient wallet balance").
				WithDetails(map[string]any{"balance_cents": w.BalanceCents, "requested_cents": entry.AmountCents})
		}
		balanceAfter = w.BalanceCents - entry.AmountCents
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown wallet transaction type")
	}

	txn := &models.WalletTransaction{
		ID:                uuid.New(),
		UserID:            entry.UserID,
		Type:              kind,
		AmountCents:       entry.AmountCents,
		BalanceAfterCents: balanceAfter,
		Description:       entry.Description,
		ReferenceType:     optional(entry.ReferenceType),
		ReferenceID:       optional(entry.ReferenceID),
	}
	if err := repo.AppendTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append wallet transaction")
	}
	if err := repo.UpdateBalance(ctx, entry.UserID, balanceAfter); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update wallet balance")
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID string) (int64, error) {
	w, err := s.repo.Find(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	if w == nil {
		return 0, nil
	}
	return w.BalanceCents, nil
}

// History returns the newest transactions first.
func (s *service) History(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error) {
	rows, err := s.repo.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}
	return rows, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
