package enums

// LedgerEventType enumerates money lifecycle events recorded in the ledger.
type LedgerEventType string

const (
	LedgerEventTypePaymentCaptured LedgerEventType = "payment_captured"
	LedgerEventTypeRefundIssued    LedgerEventType = "refund_issued"
	LedgerEventTypeEscrowHeld      LedgerEventType = "escrow_held"
	LedgerEventTypeEscrowReleased  LedgerEventType = "escrow_released"
	LedgerEventTypeWalletCredited  LedgerEventType = "wallet_credited"
	LedgerEventTypeWalletDebited   LedgerEventType = "wallet_debited"
	LedgerEventTypeDisputeLost     LedgerEventType = "dispute_lost"
)

var ledgerEventTypes = newSet("ledger event type",
	LedgerEventTypePaymentCaptured,
	LedgerEventTypeRefundIssued,
	LedgerEventTypeEscrowHeld,
	LedgerEventTypeEscrowReleased,
	LedgerEventTypeWalletCredited,
	LedgerEventTypeWalletDebited,
	LedgerEventTypeDisputeLost,
)

func (v LedgerEventType) String() string { return string(v) }

func (v LedgerEventType) IsValid() bool { return ledgerEventTypes.has(v) }

func ParseLedgerEventType(value string) (LedgerEventType, error) { return ledgerEventTypes.parse(value) }
