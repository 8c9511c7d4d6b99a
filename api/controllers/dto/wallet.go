package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
	"github.com/angelmondragon/settlement-engine/pkg/money"
)

type Wallet struct {
	BalanceCents int64               `json:"balance_cents"`
	Balance      string              `json:"balance"`
	Transactions []WalletTransaction `json:"transactions"`
}

type WalletTransaction struct {
	ID                uuid.UUID                   `json:"id"`
	Type              enums.WalletTransactionType `json:"type"`
	AmountCents       int64                       `json:"amount_cents"`
	BalanceAfterCents int64                       `json:"balance_after_cents"`
	Description       string                      `json:"description"`
	ReferenceType     *string                     `json:"reference_type,omitempty"`
	ReferenceID       *string                     `json:"reference_id,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
}

func NewWallet(balance int64, history []models.WalletTransaction) Wallet {
	out := Wallet{
		BalanceCents: balance,
		Balance:      money.Format(balance),
		Transactions: make([]WalletTransaction, 0, len(history)),
	}
	for _, tx := range history {
		out.Transactions = append(out.Transactions, WalletTransaction{
			ID:                tx.ID,
			Type:              tx.Type,
			AmountCents:       tx.AmountCents,
			BalanceAfterCents: tx.BalanceAfterCents,
			Description:       tx.Description,
			ReferenceType:     tx.ReferenceType,
			ReferenceID:       tx.ReferenceID,
			CreatedAt:         tx.CreatedAt,
		})
	}
	return out
}
