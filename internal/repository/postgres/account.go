package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"busfare/internal/domain"
	"busfare/internal/repository"
)

// AccountRepository is a PostgreSQL implementation of repository.AccountRepository.
type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{q: db}
}

// NewAccountRepositoryWithTx creates an account repository using a transaction.
func NewAccountRepositoryWithTx(tx *sql.Tx) *AccountRepository {
	return &AccountRepository{q: tx}
}

// Create persists a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, credential, debt_cents, locked_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		account.ID,
		account.Name,
		account.Credential,
		int64(account.Debt),
		int64(account.LockedBalance),
		account.CreatedAt,
		account.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrAlreadyExists
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, name, credential, debt_cents, locked_cents, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	account, err := scanAccount(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return account, nil
}

// GetAll retrieves all accounts.
func (r *AccountRepository) GetAll(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT id, name, credential, debt_cents, locked_cents, created_at, updated_at
		FROM accounts ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// Update saves debt and locked balance of an existing account.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET debt_cents = $1, locked_cents = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		int64(account.Debt),
		int64(account.LockedBalance),
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var debt, locked int64

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Credential,
		&debt,
		&locked,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Debt = domain.Money(debt)
	account.LockedBalance = domain.Money(locked)
	return &account, nil
}
