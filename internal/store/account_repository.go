package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terangapay/backoffice/internal/domain"
)

// AccountRepository defines the interface for account data storage.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByAccountNumber(ctx context.Context, number string) (*domain.Account, error)
	EmailInUse(ctx context.Context, email, excludeID string) (bool, error)
	AccountNumberExists(ctx context.Context, number string) (bool, error)
	Update(ctx context.Context, account *domain.Account) error
	SetStatus(ctx context.Context, ids []string, status domain.Status) (int64, error)
	ArchiveMany(ctx context.Context, ids []string, at time.Time) (int64, error)
	List(ctx context.Context, includeArchived bool) ([]domain.Account, error)
}

// PostgresAccountRepository is the PostgreSQL implementation of AccountRepository.
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new instance of PostgresAccountRepository.
func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `id, first_name, last_name, email, password_hash, account_number,
	phone, national_id, birthdate, address, role, status, avatar_url, balance,
	archived, archived_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &a.AccountNumber,
		&a.Phone, &a.NationalID, &a.Birthdate, &a.Address, &a.Role, &a.Status,
		&a.AvatarURL, &a.Balance, &a.Archived, &a.ArchivedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account record. A duplicate email is reported as
// domain.ErrDuplicateEmail so the handler can answer 409.
func (r *PostgresAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, first_name, last_name, email, password_hash, account_number,
			phone, national_id, birthdate, address, role, status, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		account.ID, account.FirstName, account.LastName, account.Email,
		account.PasswordHash, account.AccountNumber, account.Phone, account.NationalID,
		account.Birthdate, account.Address, account.Role, account.Status, account.Balance,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if pgErr := uniqueViolation(err); pgErr != nil {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return err
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email))
}

func (r *PostgresAccountRepository) GetByAccountNumber(ctx context.Context, number string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE upper(account_number) = upper($1)`, number))
}

// EmailInUse reports whether another account (excluding excludeID, when
// non-empty) already uses the given email.
func (r *PostgresAccountRepository) EmailInUse(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower($1) AND ($2 = '' OR id <> $2::uuid))`,
		email, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *PostgresAccountRepository) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE upper(account_number) = upper($1))`, number,
	).Scan(&exists)
	return exists, err
}

// Update persists every mutable field of the account.
func (r *PostgresAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET first_name = $2, last_name = $3, email = $4, password_hash = $5,
			phone = $6, national_id = $7, birthdate = $8, address = $9,
			role = $10, status = $11, avatar_url = $12,
			archived = $13, archived_at = $14, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		account.ID, account.FirstName, account.LastName, account.Email,
		account.PasswordHash, account.Phone, account.NationalID, account.Birthdate,
		account.Address, account.Role, account.Status, account.AvatarURL,
		account.Archived, account.ArchivedAt,
	).Scan(&account.UpdatedAt)
	if pgErr := uniqueViolation(err); pgErr != nil {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// SetStatus applies the target status to every account in ids and returns
// the number of rows modified.
func (r *PostgresAccountRepository) SetStatus(ctx context.Context, ids []string, status domain.Status) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET status = $1, updated_at = now() WHERE id = ANY($2::uuid[])`,
		status, ids,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ArchiveMany soft-deletes every account in ids that is not already
// archived, stamping the archival time.
func (r *PostgresAccountRepository) ArchiveMany(ctx context.Context, ids []string, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET archived = TRUE, archived_at = $1, updated_at = now()
		 WHERE id = ANY($2::uuid[]) AND NOT archived`,
		at, ids,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// List returns accounts newest-first, excluding archived ones unless
// explicitly requested.
func (r *PostgresAccountRepository) List(ctx context.Context, includeArchived bool) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if !includeArchived {
		query += ` WHERE NOT archived`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}
