package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

// InsertRefreshToken сохраняет новый refresh-токен и возвращает ID записи.
func (s *Storage) InsertRefreshToken(ctx context.Context, accountID, token string) (string, error) {
	const op = "storage.postgres.InsertRefreshToken"

	query := `
        INSERT INTO refresh_tokens(id, account_id, token, created_at)
        VALUES ($1, $2, $3, $4)
    `

	id := uuid.NewString()
	_, err := s.db.Exec(ctx, query, id, accountID, token, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// RefreshTokenByValue находит запись по значению токена.
func (s *Storage) RefreshTokenByValue(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokenByValue"

	query := `
        SELECT id, account_id, token, created_at
        FROM refresh_tokens
        WHERE token = $1
    `

	var rt models.RefreshToken
	err := s.db.QueryRow(ctx, query, token).Scan(&rt.ID, &rt.AccountID, &rt.Token, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rt, nil
}

// RefreshTokensByAccount возвращает записи аккаунта, старые первыми.
func (s *Storage) RefreshTokensByAccount(ctx context.Context, accountID string) ([]models.RefreshToken, error) {
	const op = "storage.postgres.RefreshTokensByAccount"

	query := `
        SELECT id, account_id, token, created_at
        FROM refresh_tokens
        WHERE account_id = $1
        ORDER BY created_at, id
    `

	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := pgx.CollectRows(rows, scanRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// DeleteRefreshToken удаляет запись по ID. Возвращает true, если запись
// существовала; при гонке одиночный DELETE гарантирует ровно одного победителя.
func (s *Storage) DeleteRefreshToken(ctx context.Context, id string) (bool, error) {
	const op = "storage.postgres.DeleteRefreshToken"

	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteRefreshTokensByAccount удаляет все записи аккаунта.
func (s *Storage) DeleteRefreshTokensByAccount(ctx context.Context, accountID string) (int64, error) {
	const op = "storage.postgres.DeleteRefreshTokensByAccount"

	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

// ScanRefreshTokens обходит все записи. fn вызывается при открытом курсоре,
// который держит соединение пула: fn не должна брать второе соединение
// из пула, иначе при исчерпанном пуле обход зависнет.
func (s *Storage) ScanRefreshTokens(ctx context.Context, fn func(models.RefreshToken) error) error {
	const op = "storage.postgres.ScanRefreshTokens"

	rows, err := s.db.Query(ctx, `SELECT id, account_id, token, created_at FROM refresh_tokens`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		rt, err := scanRefreshToken(rows)
		if err != nil {
			return fmt.Errorf("%s: scan: %w", op, err)
		}

		if err := fn(rt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func scanRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var rt models.RefreshToken
	err := row.Scan(&rt.ID, &rt.AccountID, &rt.Token, &rt.CreatedAt)
	rt.CreatedAt = rt.CreatedAt.UTC()
	return rt, err
}
