package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/domain"
)

const testCancelWindow = 24 * time.Hour

func newTestTransactionService(t *testing.T) (*TransactionService, *memAccountRepo, *memTransactionRepo) {
	t.Helper()
	accounts := newMemAccountRepo()
	txns := newMemTransactionRepo(accounts)
	svc := NewTransactionService(txns, accounts, nil, "", zap.NewNop(), 500, testCancelWindow)
	return svc, accounts, txns
}

func seedDistributor(accounts *memAccountRepo, number string, status domain.Status) *domain.Account {
	a := &domain.Account{
		ID:            "dist-" + strings.ToLower(number),
		FirstName:     "Awa",
		LastName:      "Ndiaye",
		Email:         strings.ToLower(number) + "@example.com",
		AccountNumber: number,
		Role:          domain.RoleDistributor,
		Status:        status,
	}
	accounts.put(a)
	return a
}

func TestDepositMinimumAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		accepted bool
	}{
		{name: "one", amount: 1, accepted: false},
		{name: "just_below", amount: 499, accepted: false},
		{name: "at_threshold", amount: 500, accepted: true},
		{name: "above_threshold", amount: 501, accepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, accounts, _ := newTestTransactionService(t)
			seedDistributor(accounts, "AD11111", domain.StatusActive)

			txn, err := svc.Deposit(context.Background(), "AD11111", tt.amount)
			if tt.accepted {
				if err != nil {
					t.Fatalf("Deposit(%d) error = %v", tt.amount, err)
				}
				if txn.Amount != tt.amount {
					t.Fatalf("recorded amount = %d, want %d", txn.Amount, tt.amount)
				}
				return
			}
			if err == nil {
				t.Fatalf("Deposit(%d) expected rejection", tt.amount)
			}
			if !domain.IsValidation(err) {
				t.Fatalf("Deposit(%d) error should be a validation error, got %v", tt.amount, err)
			}
		})
	}
}

func TestDepositRejectsNonDistributorNumbers(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	seedDistributor(accounts, "AD11111", domain.StatusActive)

	for _, number := range []string{"AC12345", "AG12345", "AD123", "banana", ""} {
		if _, err := svc.Deposit(context.Background(), number, 10_000); err == nil {
			t.Errorf("Deposit to %q should be rejected regardless of amount", number)
		}
	}
}

func TestDepositTargetChecks(t *testing.T) {
	t.Run("missing_account", func(t *testing.T) {
		svc, _, _ := newTestTransactionService(t)
		_, err := svc.Deposit(context.Background(), "AD99999", 1000)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("blocked_account", func(t *testing.T) {
		svc, accounts, _ := newTestTransactionService(t)
		seedDistributor(accounts, "AD22222", domain.StatusBlocked)
		_, err := svc.Deposit(context.Background(), "AD22222", 1000)
		if err == nil || !domain.IsValidation(err) {
			t.Fatalf("expected validation error for blocked account, got %v", err)
		}
	})

	t.Run("wrong_role_behind_number", func(t *testing.T) {
		svc, accounts, _ := newTestTransactionService(t)
		a := seedDistributor(accounts, "AD33333", domain.StatusActive)
		a.Role = domain.RoleClient
		_, err := svc.Deposit(context.Background(), "AD33333", 1000)
		if err == nil || !domain.IsValidation(err) {
			t.Fatalf("expected validation error for non-distributor role, got %v", err)
		}
	})
}

func TestDepositCreditsBalanceExactly(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	dist := seedDistributor(accounts, "AD11111", domain.StatusActive)

	txn, err := svc.Deposit(context.Background(), "ad11111", 1000)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if txn.AccountNumber != "AD11111" {
		t.Fatalf("account number normalized to %q, want AD11111", txn.AccountNumber)
	}
	if !strings.HasPrefix(txn.Reference, "TX-") {
		t.Fatalf("reference %q should carry the TX prefix", txn.Reference)
	}
	if txn.Status != domain.TxSuccess {
		t.Fatalf("status = %q, want success", txn.Status)
	}
	if got := accounts.accounts[dist.ID].Balance; got != 1000 {
		t.Fatalf("balance = %d, want 1000", got)
	}
}

func TestCancelRequiresAgentRole(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	seedDistributor(accounts, "AD11111", domain.StatusActive)
	txn, err := svc.Deposit(context.Background(), "AD11111", 1000)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	for _, role := range []domain.Role{domain.RoleClient, domain.RoleDistributor, ""} {
		_, err := svc.Cancel(context.Background(), CancelInput{Reference: txn.Reference, AgentID: "x", Role: role})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("Cancel as %q should be forbidden, got %v", role, err)
		}
	}
}

func TestCancelRestoresBalance(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	dist := seedDistributor(accounts, "AD11111", domain.StatusActive)

	txn, err := svc.Deposit(context.Background(), "AD11111", 1000)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if got := accounts.accounts[dist.ID].Balance; got != 1000 {
		t.Fatalf("balance after deposit = %d, want 1000", got)
	}

	cancelled, err := svc.Cancel(context.Background(), CancelInput{
		Reference: txn.Reference,
		AgentID:   "agent-1",
		Role:      domain.RoleAgent,
	})
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != domain.TxCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.CancelReason != defaultCancelReason {
		t.Fatalf("reason = %q, want default %q", cancelled.CancelReason, defaultCancelReason)
	}
	if cancelled.CancelledBy != "agent-1" {
		t.Fatalf("cancelled_by = %q, want agent-1", cancelled.CancelledBy)
	}
	if got := accounts.accounts[dist.ID].Balance; got != 0 {
		t.Fatalf("balance after cancellation = %d, want 0", got)
	}
}

func TestCancelAtMostOnce(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	seedDistributor(accounts, "AD11111", domain.StatusActive)

	txn, err := svc.Deposit(context.Background(), "AD11111", 1000)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	input := CancelInput{Reference: txn.Reference, AgentID: "agent-1", Role: domain.RoleAgent}
	if _, err := svc.Cancel(context.Background(), input); err != nil {
		t.Fatalf("first Cancel() error = %v", err)
	}
	if _, err := svc.Cancel(context.Background(), input); err == nil || !domain.IsValidation(err) {
		t.Fatalf("second Cancel() should fail with a validation error, got %v", err)
	}
}

func TestCancelWindowBoundary(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*TransactionService, *domain.Transaction, *memTransactionRepo) {
		svc, accounts, txnRepo := newTestTransactionService(t)
		seedDistributor(accounts, "AD11111", domain.StatusActive)
		txn, err := svc.Deposit(context.Background(), "AD11111", 1000)
		if err != nil {
			t.Fatalf("Deposit() error = %v", err)
		}
		txnRepo.txns[txn.Reference].CreatedAt = start
		return svc, txn, txnRepo
	}

	t.Run("exactly_at_boundary_is_cancellable", func(t *testing.T) {
		svc, txn, _ := setup(t)
		svc.now = func() time.Time { return start.Add(testCancelWindow) }
		if _, err := svc.Cancel(context.Background(), CancelInput{
			Reference: txn.Reference, AgentID: "agent-1", Role: domain.RoleAgent,
		}); err != nil {
			t.Fatalf("Cancel() exactly at the window boundary should succeed, got %v", err)
		}
	})

	t.Run("past_boundary_is_rejected", func(t *testing.T) {
		svc, txn, _ := setup(t)
		svc.now = func() time.Time { return start.Add(testCancelWindow + time.Second) }
		_, err := svc.Cancel(context.Background(), CancelInput{
			Reference: txn.Reference, AgentID: "agent-1", Role: domain.RoleAgent,
		})
		if err == nil || !domain.IsValidation(err) {
			t.Fatalf("Cancel() past the window should fail with a validation error, got %v", err)
		}
	})
}

func TestCancelAccountNumberCrossCheck(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	seedDistributor(accounts, "AD11111", domain.StatusActive)

	txn, err := svc.Deposit(context.Background(), "AD11111", 1000)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	_, err = svc.Cancel(context.Background(), CancelInput{
		Reference:     txn.Reference,
		AccountNumber: "AD99999",
		AgentID:       "agent-1",
		Role:          domain.RoleAgent,
	})
	if err == nil || !domain.IsValidation(err) {
		t.Fatalf("Cancel() with a mismatched account number should fail, got %v", err)
	}

	// Matching (case-insensitive) cross-check passes.
	if _, err := svc.Cancel(context.Background(), CancelInput{
		Reference:     txn.Reference,
		AccountNumber: "ad11111",
		AgentID:       "agent-1",
		Role:          domain.RoleAgent,
	}); err != nil {
		t.Fatalf("Cancel() with a matching account number should succeed, got %v", err)
	}
}

func TestCancelUnknownReference(t *testing.T) {
	svc, _, _ := newTestTransactionService(t)
	_, err := svc.Cancel(context.Background(), CancelInput{
		Reference: "TX-000000000000", AgentID: "agent-1", Role: domain.RoleAgent,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelClampsBalanceAtZero(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	dist := seedDistributor(accounts, "AD11111", domain.StatusActive)

	txn, err := svc.Deposit(context.Background(), "AD11111", 1000)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	// Simulate external drift: the balance no longer covers the deposit.
	accounts.accounts[dist.ID].Balance = 300

	if _, err := svc.Cancel(context.Background(), CancelInput{
		Reference: txn.Reference, AgentID: "agent-1", Role: domain.RoleAgent,
	}); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := accounts.accounts[dist.ID].Balance; got != 0 {
		t.Fatalf("balance = %d, want clamp at 0", got)
	}
}

func TestSearchFilters(t *testing.T) {
	svc, accounts, _ := newTestTransactionService(t)
	seedDistributor(accounts, "AD11111", domain.StatusActive)
	seedDistributor(accounts, "AD22222", domain.StatusActive)

	// References have one-second resolution; pin distinct clocks so two
	// back-to-back deposits cannot collide.
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first, err := svc.Deposit(context.Background(), "AD11111", 1000)
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	svc.now = func() time.Time { return base.Add(time.Second) }
	if _, err := svc.Deposit(context.Background(), "AD22222", 2000); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	byAccount, err := svc.Search(context.Background(), domain.TransactionFilter{AccountNumber: "ad11111"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(byAccount) != 1 || byAccount[0].Reference != first.Reference {
		t.Fatalf("account filter returned %d results, want the AD11111 deposit", len(byAccount))
	}

	byStatus, err := svc.Search(context.Background(), domain.TransactionFilter{Status: "SUCCESS"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(byStatus) != 2 {
		t.Fatalf("status filter returned %d results, want 2", len(byStatus))
	}
}
