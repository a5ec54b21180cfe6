package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/rideshare-auth/internal/account"
	"github.com/pribylovaa/rideshare-auth/internal/models"
)

// Accounts — операции с аккаунтами (реализуется *account.Service).
type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (*account.Result, error)
	Login(ctx context.Context, email, password string) (*account.Result, error)
	Profile(ctx context.Context, accountID string) (*models.Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

// Sessions — операции с сессиями (реализуется *session.Manager).
type Sessions interface {
	Rotate(ctx context.Context, presented string) (*models.TokenPair, error)
	RevokeOne(ctx context.Context, value string) error
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	Accounts Accounts
	Sessions Sessions
}

func New(accounts Accounts, sessions Sessions) *Handlers {
	return &Handlers{Accounts: accounts, Sessions: sessions}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
