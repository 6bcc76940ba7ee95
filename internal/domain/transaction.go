package domain

import "time"

// TransactionType identifies the kind of money movement. Only deposits
// exist today; cancellation is a status transition, not a type.
type TransactionType string

const (
	TypeDeposit TransactionType = "deposit"
)

// TransactionStatus is the lifecycle state of a ledger entry.
// TxFailed is reserved: no current code path produces it.
type TransactionStatus string

const (
	TxSuccess   TransactionStatus = "success"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

// Transaction is an append-only ledger entry. Entries are never deleted;
// a cancellation flips the status and records who cancelled and why.
type Transaction struct {
	ID              string            `json:"id"`
	Type            TransactionType   `json:"type"`
	Reference       string            `json:"reference"`
	AccountNumber   string            `json:"account_number"`
	TargetAccountID string            `json:"target_account_id"`
	Amount          int64             `json:"amount"`
	Status          TransactionStatus `json:"status"`
	CancelReason    string            `json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	CancelledBy     string            `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewReference builds the human-readable deposit reference: the TX prefix
// followed by a compact yymmddhhmmss timestamp. Uniqueness is enforced by
// the store, not the format.
func NewReference(now time.Time) string {
	return "TX-" + now.Format("060102150405")
}

// TransactionFilter narrows a ledger search. Zero values mean "no filter".
type TransactionFilter struct {
	AccountNumber string
	Status        string
	Query         string
}
