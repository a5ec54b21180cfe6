package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/rideshare-auth/internal/metrics"
	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/pkg/log"
	"github.com/pribylovaa/rideshare-auth/internal/pkg/redact"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
	"github.com/pribylovaa/rideshare-auth/internal/token"
)

// Login начинает новую сессию аккаунта claims.AccountID: удаляет все его
// записи, выпускает пару и сохраняет новый refresh-токен.
// Ошибка хранилища — ErrStorageUnavailable, пара при этом не возвращается.
func (m *Manager) Login(ctx context.Context, claims models.Claims) (pair *models.TokenPair, err error) {
	const op = "session.Login"
	defer func() { m.observe(metrics.OpLogin, err) }()

	lg := log.From(ctx).With(slog.String("op", op), slog.String("account_id", claims.AccountID))

	if claims.AccountID == "" {
		return nil, fmt.Errorf("%s: empty account id", op)
	}

	removed, err := m.store.DeleteRefreshTokensByAccount(ctx, claims.AccountID)
	if err != nil {
		lg.Error("login_revoke_previous_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	pair, err = m.issuePair(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := m.store.InsertRefreshToken(ctx, claims.AccountID, pair.RefreshToken); err != nil {
		lg.Error("login_insert_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	lg.Info("session_started",
		slog.Int64("replaced", removed),
		slog.String("refresh_fp", redact.Fingerprint(pair.RefreshToken)),
	)

	return pair, nil
}

// Rotate обменивает предъявленный refresh-токен на новую пару.
//
// Порядок: поиск записи → проверка подписи и срока → удаление записи →
// выпуск пары → сохранение нового refresh-токена. Если удаление не нашло
// записи, токен уже обменян конкурентным запросом (ErrAlreadyRotated).
// Истёкший токен удаляется попутно; ошибка такого удаления не меняет результат.
func (m *Manager) Rotate(ctx context.Context, presented string) (pair *models.TokenPair, err error) {
	const op = "session.Rotate"
	defer func() { m.observe(metrics.OpRotate, err) }()

	lg := log.From(ctx).With(slog.String("op", op), slog.String("refresh_fp", redact.Fingerprint(presented)))

	rec, err := m.store.RefreshTokenByValue(ctx, presented)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("rotate_not_found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("rotate_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	lg = lg.With(slog.String("account_id", rec.AccountID))

	claims, err := m.codec.Verify(rec.Token, token.KindRefresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			if _, derr := m.store.DeleteRefreshToken(ctx, rec.ID); derr != nil {
				lg.Warn("rotate_expired_cleanup_failed", slog.String("err", derr.Error()))
			}

			lg.Info("rotate_expired")
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		lg.Warn("rotate_invalid", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	if claims.AccountID != rec.AccountID {
		lg.Warn("rotate_owner_mismatch")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	existed, err := m.store.DeleteRefreshToken(ctx, rec.ID)
	if err != nil {
		lg.Error("rotate_delete_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	if !existed {
		lg.Warn("rotate_already_rotated")
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyRotated)
	}

	pair, err = m.issuePair(*claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := m.store.InsertRefreshToken(ctx, rec.AccountID, pair.RefreshToken); err != nil {
		// Старая запись уже удалена: клиенту придётся войти заново.
		lg.Error("rotate_insert_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	lg.Info("session_rotated", slog.String("new_refresh_fp", redact.Fingerprint(pair.RefreshToken)))

	return pair, nil
}

// RevokeOne отзывает сессию по значению refresh-токена. Отсутствующий токен
// ошибкой не считается: операция идемпотентна.
func (m *Manager) RevokeOne(ctx context.Context, value string) (err error) {
	const op = "session.RevokeOne"
	defer func() { m.observe(metrics.OpRevokeOne, err) }()

	lg := log.From(ctx).With(slog.String("op", op), slog.String("refresh_fp", redact.Fingerprint(value)))

	rec, err := m.store.RefreshTokenByValue(ctx, value)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Debug("revoke_one_absent")
			return nil
		}

		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	existed, err := m.store.DeleteRefreshToken(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	lg.Info("session_revoked", slog.String("account_id", rec.AccountID), slog.Bool("existed", existed))

	return nil
}

// RevokeAll удаляет все сессии аккаунта и возвращает число удалённых записей.
// Повторный вызов возвращает 0.
func (m *Manager) RevokeAll(ctx context.Context, accountID string) (n int64, err error) {
	const op = "session.RevokeAll"
	defer func() { m.observe(metrics.OpRevokeAll, err) }()

	n, err = m.store.DeleteRefreshTokensByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	log.From(ctx).Info("sessions_revoked",
		slog.String("op", op),
		slog.String("account_id", accountID),
		slog.Int64("count", n),
	)

	return n, nil
}

// issuePair выпускает access и refresh из одних и тех же claims.
func (m *Manager) issuePair(claims models.Claims) (*models.TokenPair, error) {
	access, accessExp, err := m.codec.IssueAccess(claims)
	if err != nil {
		return nil, fmt.Errorf("issue access: %w", err)
	}

	refresh, err := m.codec.IssueRefresh(claims)
	if err != nil {
		return nil, fmt.Errorf("issue refresh: %w", err)
	}

	return &models.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
	}, nil
}
