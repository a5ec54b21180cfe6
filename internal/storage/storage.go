// Package storage задаёт контракты хранилищ сервиса и общие ошибки.
// Реализации: mongo (основное документное хранилище), postgres, redis (только
// refresh-токены) и memory (локальный запуск и тесты).
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/rideshare-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена (аккаунт/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/значение refresh-токена).
	ErrAlreadyExists = errors.New("already exists")
)

// RefreshTokenStorage — минимальное хранилище записей refresh-токенов.
// Транзакций между записями не предполагается: безопасность ротации
// обеспечивается тем, что DeleteRefreshToken сообщает, существовала ли запись.
type RefreshTokenStorage interface {
	// InsertRefreshToken сохраняет новую запись и возвращает назначенный ей ID.
	// Повтор значения токена — ErrAlreadyExists.
	InsertRefreshToken(ctx context.Context, accountID, token string) (string, error)
	// RefreshTokenByValue находит запись по значению токена; отсутствие — ErrNotFound.
	RefreshTokenByValue(ctx context.Context, token string) (*models.RefreshToken, error)
	// RefreshTokensByAccount возвращает снимок всех записей аккаунта.
	RefreshTokensByAccount(ctx context.Context, accountID string) ([]models.RefreshToken, error)
	// DeleteRefreshToken удаляет запись по ID. Возвращает true, если запись
	// существовала в момент удаления (первый удаливший «выигрывает»).
	DeleteRefreshToken(ctx context.Context, id string) (bool, error)
	// DeleteRefreshTokensByAccount удаляет все записи аккаунта и возвращает их число.
	DeleteRefreshTokensByAccount(ctx context.Context, accountID string) (int64, error)
	// ScanRefreshTokens обходит все записи (для очистки истёкших). Обход —
	// снимок на момент вызова; удалять записи из fn не следует.
	ScanRefreshTokens(ctx context.Context, fn func(models.RefreshToken) error) error
}

// AccountStorage выполняет операции над аккаунтами пользователей.
type AccountStorage interface {
	// SaveAccount создаёт аккаунт; занятый email — ErrAlreadyExists.
	SaveAccount(ctx context.Context, account *models.Account) error
	// AccountByEmail находит аккаунт по нормализованному email.
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// AccountByID находит аккаунт по ID.
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	// DeleteAccount удаляет аккаунт; отсутствие — ErrNotFound.
	DeleteAccount(ctx context.Context, id string) error
}

// Storage — полное хранилище (аккаунты + refresh-токены).
type Storage interface {
	AccountStorage
	RefreshTokenStorage
	Close()
}
