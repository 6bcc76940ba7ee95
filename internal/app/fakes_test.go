package app

import (
	"context"
	"strings"
	"time"

	"github.com/terangapay/backoffice/internal/domain"
)

// memAccountRepo is an in-memory AccountRepository for service tests.
type memAccountRepo struct {
	accounts map[string]*domain.Account // keyed by id
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: map[string]*domain.Account{}}
}

func (m *memAccountRepo) put(a *domain.Account) { m.accounts[a.ID] = a }

func (m *memAccountRepo) Create(_ context.Context, account *domain.Account) error {
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *memAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) GetByAccountNumber(_ context.Context, number string) (*domain.Account, error) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.AccountNumber, number) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) EmailInUse(_ context.Context, email, excludeID string) (bool, error) {
	for _, a := range m.accounts {
		if a.ID != excludeID && strings.EqualFold(a.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccountRepo) AccountNumberExists(_ context.Context, number string) (bool, error) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.AccountNumber, number) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccountRepo) Update(_ context.Context, account *domain.Account) error {
	if _, ok := m.accounts[account.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, existing := range m.accounts {
		if existing.ID != account.ID && strings.EqualFold(existing.Email, account.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	account.UpdatedAt = time.Now()
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *memAccountRepo) SetStatus(_ context.Context, ids []string, status domain.Status) (int64, error) {
	var modified int64
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			a.Status = status
			modified++
		}
	}
	return modified, nil
}

func (m *memAccountRepo) ArchiveMany(_ context.Context, ids []string, at time.Time) (int64, error) {
	var modified int64
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok && !a.Archived {
			a.Archived = true
			archivedAt := at
			a.ArchivedAt = &archivedAt
			modified++
		}
	}
	return modified, nil
}

func (m *memAccountRepo) List(_ context.Context, includeArchived bool) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		if !includeArchived && a.Archived {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

// memTransactionRepo is an in-memory TransactionRepository that mirrors
// the atomic deposit/cancel semantics of the Postgres implementation,
// including the non-negative balance clamp.
type memTransactionRepo struct {
	accounts *memAccountRepo
	txns     map[string]*domain.Transaction // keyed by reference
}

func newMemTransactionRepo(accounts *memAccountRepo) *memTransactionRepo {
	return &memTransactionRepo{accounts: accounts, txns: map[string]*domain.Transaction{}}
}

func (m *memTransactionRepo) Deposit(_ context.Context, txn *domain.Transaction) error {
	if _, ok := m.txns[txn.Reference]; ok {
		return domain.ErrDuplicateReference
	}
	now := time.Now()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	copied := *txn
	m.txns[txn.Reference] = &copied

	if target, ok := m.accounts.accounts[txn.TargetAccountID]; ok {
		target.Balance += txn.Amount
		if target.Balance < 0 {
			target.Balance = 0
		}
	}
	return nil
}

func (m *memTransactionRepo) Cancel(_ context.Context, txn *domain.Transaction) error {
	stored, ok := m.txns[txn.Reference]
	if !ok || stored.Status == domain.TxCancelled {
		return domain.ErrNotFound
	}
	stored.Status = domain.TxCancelled
	stored.CancelReason = txn.CancelReason
	stored.CancelledAt = txn.CancelledAt
	stored.CancelledBy = txn.CancelledBy
	stored.UpdatedAt = time.Now()
	txn.Status = domain.TxCancelled

	for _, a := range m.accounts.accounts {
		if strings.EqualFold(a.AccountNumber, stored.AccountNumber) {
			a.Balance -= stored.Amount
			if a.Balance < 0 {
				a.Balance = 0
			}
		}
	}
	return nil
}

func (m *memTransactionRepo) GetByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	if txn, ok := m.txns[reference]; ok {
		copied := *txn
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memTransactionRepo) Search(_ context.Context, filter domain.TransactionFilter, limit int) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(m.txns))
	for _, txn := range m.txns {
		if filter.AccountNumber != "" && !strings.EqualFold(txn.AccountNumber, filter.AccountNumber) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(string(txn.Status), filter.Status) {
			continue
		}
		if q := strings.ToLower(filter.Query); q != "" {
			haystack := strings.ToLower(txn.Reference + " " + txn.AccountNumber + " " + string(txn.Status))
			if !strings.Contains(haystack, q) {
				continue
			}
		}
		out = append(out, *txn)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
