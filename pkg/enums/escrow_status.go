package enums

// EscrowStatus tracks whether captured funds are still held back from the merchant.
type EscrowStatus string

const (
	EscrowStatusNone     EscrowStatus = "none"
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
)

var escrowStatuses = newSet("escrow status",
	EscrowStatusNone,
	EscrowStatusHeld,
	EscrowStatusReleased,
)

func (v EscrowStatus) String() string { return string(v) }

func (v EscrowStatus) IsValid() bool { return escrowStatuses.has(v) }

func ParseEscrowStatus(value string) (EscrowStatus, error) { return escrowStatuses.parse(value) }
