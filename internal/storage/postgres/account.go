package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

const accountColumns = `id, university_id, email, phone, name, role, password_hash, created_at`

// SaveAccount сохраняет новый аккаунт.
func (s *Storage) SaveAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.postgres.SaveAccount"

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO accounts(` + accountColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := s.db.Exec(ctx, query,
		account.ID,
		account.UniversityID,
		strings.ToLower(account.Email),
		account.Phone,
		account.Name,
		account.Role,
		account.PasswordHash,
		account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AccountByEmail находит аккаунт по email без учёта регистра.
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.postgres.AccountByEmail"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`

	return s.queryAccount(ctx, op, query, email)
}

// AccountByID находит аккаунт по ID.
func (s *Storage) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.postgres.AccountByID"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return s.queryAccount(ctx, op, query, id)
}

// DeleteAccount удаляет аккаунт.
func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteAccount"

	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) queryAccount(ctx context.Context, op, query string, arg any) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.UniversityID,
		&a.Email,
		&a.Phone,
		&a.Name,
		&a.Role,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
