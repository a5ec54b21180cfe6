package storage

import (
	"context"

	"github.com/pribylovaa/rideshare-auth/internal/models"
)

// TokenStore — хранилище refresh-токенов с собственными ресурсами.
type TokenStore interface {
	RefreshTokenStorage
	Close()
}

// split хранит аккаунты в base, а refresh-токены в tokens.
type split struct {
	Storage
	tokens TokenStore
}

// WithTokenStore возвращает Storage, у которого операции с refresh-токенами
// обслуживает tokens, а операции с аккаунтами остаются за base.
func WithTokenStore(base Storage, tokens TokenStore) Storage {
	return &split{Storage: base, tokens: tokens}
}

func (s *split) InsertRefreshToken(ctx context.Context, accountID, token string) (string, error) {
	return s.tokens.InsertRefreshToken(ctx, accountID, token)
}

func (s *split) RefreshTokenByValue(ctx context.Context, token string) (*models.RefreshToken, error) {
	return s.tokens.RefreshTokenByValue(ctx, token)
}

func (s *split) RefreshTokensByAccount(ctx context.Context, accountID string) ([]models.RefreshToken, error) {
	return s.tokens.RefreshTokensByAccount(ctx, accountID)
}

func (s *split) DeleteRefreshToken(ctx context.Context, id string) (bool, error) {
	return s.tokens.DeleteRefreshToken(ctx, id)
}

func (s *split) DeleteRefreshTokensByAccount(ctx context.Context, accountID string) (int64, error) {
	return s.tokens.DeleteRefreshTokensByAccount(ctx, accountID)
}

func (s *split) ScanRefreshTokens(ctx context.Context, fn func(models.RefreshToken) error) error {
	return s.tokens.ScanRefreshTokens(ctx, fn)
}

// Close закрывает оба хранилища.
func (s *split) Close() {
	s.tokens.Close()
	s.Storage.Close()
}
