// Package memory — потокобезопасное in-memory хранилище (драйвер memory).
// Подходит для локального запуска и тестов; данные не переживают рестарт.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

// Storage хранит аккаунты и refresh-токены в map под одним мьютексом.
type Storage struct {
	mu sync.Mutex

	tokens  map[string]models.RefreshToken // id -> запись
	byValue map[string]string              // значение токена -> id

	accounts map[string]models.Account // id -> аккаунт
	byEmail  map[string]string         // email -> id
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		tokens:   make(map[string]models.RefreshToken),
		byValue:  make(map[string]string),
		accounts: make(map[string]models.Account),
		byEmail:  make(map[string]string),
	}
}

// Close ничего не делает: ресурсов нет.
func (s *Storage) Close() {}

// InsertRefreshToken сохраняет новую запись refresh-токена.
func (s *Storage) InsertRefreshToken(ctx context.Context, accountID, token string) (string, error) {
	const op = "storage.memory.InsertRefreshToken"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byValue[token]; ok {
		return "", fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	id := uuid.NewString()
	s.tokens[id] = models.RefreshToken{
		ID:        id,
		AccountID: accountID,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}
	s.byValue[token] = id

	return id, nil
}

// RefreshTokenByValue находит запись по значению токена.
func (s *Storage) RefreshTokenByValue(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.memory.RefreshTokenByValue"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byValue[token]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	rt := s.tokens[id]
	return &rt, nil
}

// RefreshTokensByAccount возвращает записи аккаунта в порядке создания.
func (s *Storage) RefreshTokensByAccount(ctx context.Context, accountID string) ([]models.RefreshToken, error) {
	const op = "storage.memory.RefreshTokensByAccount"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.RefreshToken
	for _, rt := range s.tokens {
		if rt.AccountID == accountID {
			out = append(out, rt)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

// DeleteRefreshToken удаляет запись по ID и сообщает, существовала ли она.
func (s *Storage) DeleteRefreshToken(ctx context.Context, id string) (bool, error) {
	const op = "storage.memory.DeleteRefreshToken"

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[id]
	if !ok {
		return false, nil
	}

	delete(s.tokens, id)
	delete(s.byValue, rt.Token)

	return true, nil
}

// DeleteRefreshTokensByAccount удаляет все записи аккаунта.
func (s *Storage) DeleteRefreshTokensByAccount(ctx context.Context, accountID string) (int64, error) {
	const op = "storage.memory.DeleteRefreshTokensByAccount"

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rt := range s.tokens {
		if rt.AccountID != accountID {
			continue
		}

		delete(s.tokens, id)
		delete(s.byValue, rt.Token)
		n++
	}

	return n, nil
}

// ScanRefreshTokens обходит снимок всех записей; fn вызывается вне блокировки.
func (s *Storage) ScanRefreshTokens(ctx context.Context, fn func(models.RefreshToken) error) error {
	const op = "storage.memory.ScanRefreshTokens"

	s.mu.Lock()
	snapshot := make([]models.RefreshToken, 0, len(s.tokens))
	for _, rt := range s.tokens {
		snapshot = append(snapshot, rt)
	}
	s.mu.Unlock()

	for _, rt := range snapshot {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := fn(rt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// SaveAccount создаёт аккаунт. Пустой ID заполняется новым UUID.
func (s *Storage) SaveAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.memory.SaveAccount"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if _, ok := s.byEmail[email]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.accounts[account.ID] = *account
	s.byEmail[email] = account.ID

	return nil
}

// AccountByEmail находит аккаунт по email (без учёта регистра).
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.memory.AccountByEmail"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	acc := s.accounts[id]
	return &acc, nil
}

// AccountByID находит аккаунт по ID.
func (s *Storage) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.memory.AccountByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &acc, nil
}

// DeleteAccount удаляет аккаунт по ID.
func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	const op = "storage.memory.DeleteAccount"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.accounts, id)
	delete(s.byEmail, strings.ToLower(acc.Email))

	return nil
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
