package domain

import "time"

// Event routing keys published to the account events exchange.
const (
	EventAccountCreated       = "account.created"
	EventTransactionDeposited = "transaction.deposited"
	EventTransactionCancelled = "transaction.cancelled"
)

// AccountCreatedEvent is published after a successful registration.
type AccountCreatedEvent struct {
	AccountID     string    `json:"account_id"`
	AccountNumber string    `json:"account_number"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

// DepositEvent is published after a deposit is recorded and the balance
// credited.
type DepositEvent struct {
	Reference     string    `json:"reference"`
	AccountNumber string    `json:"account_number"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// CancellationEvent is published after a deposit is cancelled and the
// balance debited.
type CancellationEvent struct {
	Reference     string    `json:"reference"`
	AccountNumber string    `json:"account_number"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	CancelledBy   string    `json:"cancelled_by"`
	CancelledAt   time.Time `json:"cancelled_at"`
}
