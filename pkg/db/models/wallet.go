package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

// Wallet caches the latest balance; WalletTransaction rows are the source of truth.
type Wallet struct {
	UserID       string    `gorm:"column:user_id;primaryKey"`
	BalanceCents int64     `gorm:"column:balance_cents;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallets" }

// WalletTransaction is append-only.
type WalletTransaction struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            string                      `gorm:"column:user_id;not null"`
	Type              enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null"`
	AmountCents       int64                       `gorm:"column:amount_cents;not null"`
	BalanceAfterCents int64                       `gorm:"column:balance_after_cents;not null"`
	Description       string                      `gorm:"column:description;not null"`
	ReferenceType     *string                     `gorm:"column:reference_type"`
	ReferenceID       *string                     `gorm:"column:reference_id"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }

// SignedAmount returns the balance delta the transaction applied.
func (t WalletTransaction) SignedAmount() int64 {
	switch t.Type {
	case enums.WalletTransactionTypeCredit:
		return t.AmountCents
	case enums.WalletTransactionTypeDebit:
		return -t.AmountCents
	}
	return 0
}
