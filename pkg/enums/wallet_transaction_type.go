package enums

// WalletTransactionType is the direction of a wallet ledger entry.
type WalletTransactionType string

const (
	WalletTransactionTypeCredit WalletTransactionType = "credit"
	WalletTransactionTypeDebit  WalletTransactionType = "debit"
)

var walletTransactionTypes = newSet("wallet transaction type",
	WalletTransactionTypeCredit,
	WalletTransactionTypeDebit,
)

func (v WalletTransactionType) String() string { return string(v) }

func (v WalletTransactionType) IsValid() bool { return walletTransactionTypes.has(v) }

func ParseWalletTransactionType(value string) (WalletTransactionType, error) { return walletTransactionTypes.parse(value) }
