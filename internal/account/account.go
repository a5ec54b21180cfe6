// Package account — управление учётными записями: регистрация, проверка
// учётных данных, профиль и удаление. Сессии делегируются менеджеру сессий.
package account

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

var (
	// ErrInvalidCredentials — неизвестный email или неверный пароль (не различаются).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken — email уже зарегистрирован.
	ErrEmailTaken = errors.New("email already taken")

	// ErrMissingFields — не заполнено обязательное поле.
	ErrMissingFields = errors.New("all fields are required")

	// ErrInvalidEmail — email не соответствует формату.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль короче minPasswordLen.
	ErrWeakPassword = errors.New("password must be at least 6 characters")

	// ErrPasswordTooLong — пароль длиннее maxPasswordBytes, bcrypt его не примет.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

	// ErrInvalidPhone — телефон не из 10 цифр.
	ErrInvalidPhone = errors.New("phone must have exactly 10 digits")

	// ErrNotFound — аккаунт не найден.
	ErrNotFound = errors.New("account not found")
)

// Sessions — операции менеджера сессий, нужные аккаунтам.
type Sessions interface {
	Login(ctx context.Context, claims models.Claims) (*models.TokenPair, error)
	RevokeAll(ctx context.Context, accountID string) (int64, error)
}

// Service реализует операции над аккаунтами.
type Service struct {
	store    storage.AccountStorage
	sessions Sessions
	cost     int
}

// Option настраивает Service.
type Option func(*Service)

// WithBcryptCost задаёт стоимость bcrypt (в тестах — bcrypt.MinCost).
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// New создаёт Service.
func New(store storage.AccountStorage, sessions Sessions, opts ...Option) *Service {
	s := &Service{
		store:    store,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RegisterInput — данные регистрации.
type RegisterInput struct {
	UniversityID string
	Email        string
	Phone        string
	Name         string
	Password     string
}

// Result — аккаунт (без хэша пароля) и пара токенов новой сессии.
type Result struct {
	Account *models.Account
	Pair    *models.TokenPair
}

// public возвращает копию аккаунта без хэша пароля.
func public(a *models.Account) *models.Account {
	cp := *a
	cp.PasswordHash = ""
	return &cp
}
