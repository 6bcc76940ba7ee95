/**
 * @description
 * This file contains the deposit, cancellation and ledger-search logic.
 * Deposits credit a distributor account; cancellations reverse the credit
 * within a bounded time window and flip the ledger entry's status instead
 * of deleting it. Both operations run the ledger write and the balance
 * adjustment as one atomic store call.
 */
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/domain"
	"github.com/terangapay/backoffice/internal/store"
	"github.com/terangapay/backoffice/pkg/rabbitmq"
)

// maxSearchResults caps ledger search responses.
const maxSearchResults = 200

// defaultCancelReason is recorded when the agent gives no reason.
const defaultCancelReason = "customer request"

// TransactionService provides deposit, cancellation and search over the
// flat transaction ledger.
type TransactionService struct {
	transactions store.TransactionRepository
	accounts     store.AccountRepository
	producer     rabbitmq.Publisher
	exchange     string
	logger       *zap.Logger
	minAmount    int64
	cancelWindow time.Duration
	now          func() time.Time
}

// NewTransactionService creates a new instance of TransactionService.
func NewTransactionService(
	transactions store.TransactionRepository,
	accounts store.AccountRepository,
	producer rabbitmq.Publisher,
	exchange string,
	logger *zap.Logger,
	minAmount int64,
	cancelWindow time.Duration,
) *TransactionService {
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		producer:     producer,
		exchange:     exchange,
		logger:       logger,
		minAmount:    minAmount,
		cancelWindow: cancelWindow,
		now:          time.Now,
	}
}

// Deposit validates the target and amount, appends a success ledger entry
// and credits the distributor's balance atomically.
func (s *TransactionService) Deposit(ctx context.Context, accountNumber string, amount int64) (*domain.Transaction, error) {
	accountNumber = strings.ToUpper(strings.TrimSpace(accountNumber))
	if accountNumber == "" {
		return nil, domain.Validation("account number is required")
	}
	if !domain.IsDistributorNumber(accountNumber) {
		return nil, domain.Validation("deposits are allowed only for distributor accounts")
	}
	if amount < s.minAmount {
		return nil, domain.Validationf("minimum deposit amount is %d", s.minAmount)
	}

	target, err := s.accounts.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if target.Role != domain.RoleDistributor {
		return nil, domain.Validation("account is not a distributor")
	}
	if target.Status != domain.StatusActive {
		return nil, domain.Validation("distributor account is blocked")
	}

	txn := &domain.Transaction{
		ID:              uuid.NewString(),
		Type:            domain.TypeDeposit,
		Reference:       domain.NewReference(s.now()),
		AccountNumber:   accountNumber,
		TargetAccountID: target.ID,
		Amount:          amount,
		Status:          domain.TxSuccess,
	}
	if err := s.transactions.Deposit(ctx, txn); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventTransactionDeposited, domain.DepositEvent{
		Reference:     txn.Reference,
		AccountNumber: txn.AccountNumber,
		Amount:        txn.Amount,
		CreatedAt:     txn.CreatedAt,
	})
	s.logger.Info("deposit recorded",
		zap.String("reference", txn.Reference),
		zap.String("account_number", txn.AccountNumber),
		zap.Int64("amount", txn.Amount))
	return txn, nil
}

// CancelInput identifies the transaction to cancel and who is cancelling.
type CancelInput struct {
	Reference     string
	Reason        string
	AccountNumber string
	AgentID       string
	Role          domain.Role
}

// Cancel marks a deposit cancelled and debits the credited balance,
// floored at zero. Only agents may cancel; only deposits to distributor
// accounts are eligible; the transaction must be younger than the
// cancellation window and not already cancelled.
func (s *TransactionService) Cancel(ctx context.Context, input CancelInput) (*domain.Transaction, error) {
	if input.Role != domain.RoleAgent {
		return nil, domain.ErrForbidden
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, domain.Validation("transaction reference is required")
	}

	txn, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn.Status == domain.TxCancelled {
		return nil, domain.Validation("transaction already cancelled")
	}
	if number := strings.TrimSpace(input.AccountNumber); number != "" &&
		!strings.EqualFold(number, txn.AccountNumber) {
		return nil, domain.Validation("account number does not match the transaction")
	}
	// Strict greater-than: a transaction exactly at the window boundary is
	// still cancellable.
	if s.now().Sub(txn.CreatedAt) > s.cancelWindow {
		return nil, domain.Validation("cancellation window has passed")
	}
	// Placeholder gate for future transaction types.
	if txn.Type != domain.TypeDeposit {
		return nil, domain.Validation("cancellation is not supported for this transaction type yet")
	}
	if !domain.IsDistributorNumber(txn.AccountNumber) {
		return nil, domain.Validation("cancellation is not supported for this account")
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = defaultCancelReason
	}
	at := s.now()
	txn.CancelReason = reason
	txn.CancelledAt = &at
	txn.CancelledBy = input.AgentID

	if err := s.transactions.Cancel(ctx, txn); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Lost the race against a concurrent cancellation.
			return nil, domain.Validation("transaction already cancelled")
		}
		return nil, err
	}

	s.publish(ctx, domain.EventTransactionCancelled, domain.CancellationEvent{
		Reference:     txn.Reference,
		AccountNumber: txn.AccountNumber,
		Amount:        txn.Amount,
		Reason:        txn.CancelReason,
		CancelledBy:   txn.CancelledBy,
		CancelledAt:   at,
	})
	s.logger.Info("deposit cancelled",
		zap.String("reference", txn.Reference),
		zap.String("account_number", txn.AccountNumber),
		zap.String("cancelled_by", txn.CancelledBy))
	return txn, nil
}

// Search lists ledger entries newest-first, capped at maxSearchResults.
func (s *TransactionService) Search(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	return s.transactions.Search(ctx, filter, maxSearchResults)
}

func (s *TransactionService) publish(ctx context.Context, routingKey string, body any) {
	if s.producer == nil {
		return
	}
	if err := s.producer.Publish(ctx, s.exchange, routingKey, body); err != nil {
		s.logger.Error("event publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
