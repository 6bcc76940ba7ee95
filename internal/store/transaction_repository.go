package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terangapay/backoffice/internal/domain"
)

// TransactionRepository defines the interface for ledger storage. Deposit
// and Cancel are atomic: the ledger write and the balance adjustment
// either both apply or neither does.
type TransactionRepository interface {
	Deposit(ctx context.Context, txn *domain.Transaction) error
	Cancel(ctx context.Context, txn *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	Search(ctx context.Context, filter domain.TransactionFilter, limit int) ([]domain.Transaction, error)
}

// PostgresTransactionRepository is the PostgreSQL implementation of
// TransactionRepository.
type PostgresTransactionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTransactionRepository creates a new instance of PostgresTransactionRepository.
func NewPostgresTransactionRepository(db *pgxpool.Pool) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `id, type, reference, account_number, target_account_id,
	amount, status, cancel_reason, cancelled_at, cancelled_by, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.Type, &t.Reference, &t.AccountNumber, &t.TargetAccountID,
		&t.Amount, &t.Status, &t.CancelReason, &t.CancelledAt, &t.CancelledBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Deposit inserts the ledger entry and credits the target account balance
// in one database transaction. A duplicate reference is reported as
// domain.ErrDuplicateReference.
func (r *PostgresTransactionRepository) Deposit(ctx context.Context, txn *domain.Transaction) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO transactions (id, type, reference, account_number, target_account_id, amount, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		if err := tx.QueryRow(ctx, insert,
			txn.ID, txn.Type, txn.Reference, txn.AccountNumber,
			txn.TargetAccountID, txn.Amount, txn.Status,
		).Scan(&txn.CreatedAt, &txn.UpdatedAt); err != nil {
			return err
		}

		// Clamped in-database increment: no read-modify-write race.
		_, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = GREATEST(0, balance + $1), updated_at = now() WHERE id = $2`,
			txn.Amount, txn.TargetAccountID,
		)
		return err
	})
	if pgErr := uniqueViolation(err); pgErr != nil {
		if strings.Contains(pgErr.ConstraintName, "reference") {
			return domain.ErrDuplicateReference
		}
	}
	return err
}

// Cancel flips the entry to cancelled, records the cancellation metadata
// and debits the target account balance (floored at zero) in one database
// transaction. The status guard makes a second cancellation a no-op that
// surfaces as ErrNotFound to the caller.
func (r *PostgresTransactionRepository) Cancel(ctx context.Context, txn *domain.Transaction) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		update := `
			UPDATE transactions
			SET status = $2, cancel_reason = $3, cancelled_at = $4, cancelled_by = $5, updated_at = now()
			WHERE reference = $1 AND status <> $2
			RETURNING updated_at
		`
		err := tx.QueryRow(ctx, update,
			txn.Reference, domain.TxCancelled, txn.CancelReason, txn.CancelledAt, txn.CancelledBy,
		).Scan(&txn.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		txn.Status = domain.TxCancelled

		_, err = tx.Exec(ctx,
			`UPDATE accounts SET balance = GREATEST(0, balance - $1), updated_at = now()
			 WHERE upper(account_number) = upper($2)`,
			txn.Amount, txn.AccountNumber,
		)
		return err
	})
}

func (r *PostgresTransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference))
}

// Search filters the ledger by exact account number, case-insensitive
// status and a free-text query across reference, account number and
// status. Results are newest-first, capped at limit.
func (r *PostgresTransactionRepository) Search(ctx context.Context, filter domain.TransactionFilter, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []any{}

	if filter.AccountNumber != "" {
		args = append(args, strings.ToUpper(filter.AccountNumber))
		query += ` AND upper(account_number) = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND lower(status) = lower($` + strconv.Itoa(len(args)) + `)`
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (reference ILIKE $` + n + ` OR account_number ILIKE $` + n + ` OR status ILIKE $` + n + `)`
	}

	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

