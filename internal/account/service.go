package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/pkg/log"
	"github.com/pribylovaa/rideshare-auth/internal/pkg/redact"
	"github.com/pribylovaa/rideshare-auth/internal/session"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
)

const (
	minPasswordLen = 6
	// Предел входа bcrypt.
	maxPasswordBytes = 72
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\d{10}$`)
)

// Register создаёт аккаунт с ролью user и сразу открывает для него сессию.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	const op = "account.Register"

	if err := validateRegister(&in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("email", redact.Email(in.Email)))

	_, err := s.store.AccountByEmail(ctx, in.Email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w: %w", op, session.ErrStorageUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	acc := &models.Account{
		UniversityID: in.UniversityID,
		Email:        in.Email,
		Phone:        in.Phone,
		Name:         in.Name,
		Role:         models.RoleUser,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.SaveAccount(ctx, acc); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w: %w", op, session.ErrStorageUnavailable, err)
	}

	lg.Info("account_registered", slog.String("account_id", acc.ID), slog.String("phone", redact.Phone(acc.Phone)))

	pair, err := s.sessions.Login(ctx, acc.Claims())
	if err != nil {
		// Аккаунт уже создан: клиент может войти повторно.
		lg.Error("register_session_failed", slog.String("account_id", acc.ID), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Result{Account: public(acc), Pair: pair}, nil
}

// Authenticate проверяет email и пароль. Неизвестный email и неверный
// пароль неразличимы для вызывающего.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	const op = "account.Authenticate"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	acc, err := s.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w: %w", op, session.ErrStorageUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		log.From(ctx).Info("login_bad_password", slog.String("op", op), slog.String("account_id", acc.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return public(acc), nil
}

// Login проверяет учётные данные и открывает новую сессию, закрывая прежние.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	const op = "account.Login"

	acc, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.sessions.Login(ctx, acc.Claims())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Result{Account: acc, Pair: pair}, nil
}

// Profile возвращает аккаунт без хэша пароля.
func (s *Service) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	const op = "account.Profile"

	acc, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w: %w", op, session.ErrStorageUnavailable, err)
	}

	return public(acc), nil
}

// DeleteAccount отзывает все сессии аккаунта и удаляет его. После удаления
// сессии отзываются повторно: вход, успевший между отзывом и удалением,
// не оставит refresh-токен без владельца.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	const op = "account.DeleteAccount"

	if _, err := s.sessions.RevokeAll(ctx, accountID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w: %w", op, session.ErrStorageUnavailable, err)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("account_id", accountID))

	late, err := s.sessions.RevokeAll(ctx, accountID)
	if err != nil {
		lg.Error("account_deleted_sessions_left", slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("account_deleted", slog.Int64("late_sessions", late))

	return nil
}

// validateRegister проверяет поля регистрации и нормализует email.
func validateRegister(in *RegisterInput) error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.UniversityID = strings.TrimSpace(in.UniversityID)
	in.Name = strings.TrimSpace(in.Name)

	if in.UniversityID == "" || in.Email == "" || in.Phone == "" || in.Name == "" || in.Password == "" {
		return ErrMissingFields
	}

	if !emailRe.MatchString(in.Email) {
		return ErrInvalidEmail
	}

	if len([]rune(in.Password)) < minPasswordLen {
		return ErrWeakPassword
	}

	if len(in.Password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}

	if !phoneRe.MatchString(in.Phone) {
		return ErrInvalidPhone
	}

	return nil
}
