// Package session управляет жизненным циклом пары токенов: выпуском при входе,
// ротацией refresh-токена и отзывом сессий.
//
// Политика одной активной сессии: вход удаляет все записи аккаунта и
// сохраняет ровно одну новую. Безопасность ротации при конкурентных запросах
// держится на storage.RefreshTokenStorage.DeleteRefreshToken: запись удаляется
// до выпуска новой пары, и только вызывающий, чьё удаление нашло запись,
// получает новую пару. Внутренних таймаутов и ретраев нет: дедлайн задаёт
// вызывающий через ctx.
package session

import (
	"errors"
	"time"

	"github.com/pribylovaa/rideshare-auth/internal/metrics"
	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
	"github.com/pribylovaa/rideshare-auth/internal/token"
)

var (
	// ErrNotFound — предъявленный refresh-токен не найден в хранилище
	// (никогда не выдавался, уже отозван или уже обменян).
	ErrNotFound = errors.New("refresh token not found")

	// ErrExpired — срок refresh-токена истёк; запись удаляется попутно.
	ErrExpired = errors.New("refresh token expired")

	// ErrInvalid — подпись или содержимое токена некорректны; запись не трогается.
	ErrInvalid = errors.New("refresh token invalid")

	// ErrAlreadyRotated — конкурентный запрос успел обменять тот же токен.
	ErrAlreadyRotated = errors.New("refresh token already rotated")

	// ErrStorageUnavailable — хранилище вернуло ошибку; частичная пара не выдаётся.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Codec — подпись и проверка токенов (реализуется *token.Codec).
type Codec interface {
	IssueAccess(claims models.Claims) (string, time.Time, error)
	IssueRefresh(claims models.Claims) (string, error)
	Verify(tokenStr string, kind token.Kind) (*models.Claims, error)
}

// Manager оркестрирует выпуск, ротацию и отзыв. Состояния не держит и безопасен
// для конкурентного использования, если таков store.
type Manager struct {
	store   storage.RefreshTokenStorage
	codec   Codec
	metrics metrics.Recorder
}

// Option настраивает Manager.
type Option func(*Manager)

// WithMetrics подключает сбор метрик операций.
func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) {
		m.metrics = metrics.OrNop(r)
	}
}

// New создаёт Manager.
func New(store storage.RefreshTokenStorage, codec Codec, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		codec:   codec,
		metrics: metrics.Nop{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// observe учитывает исход операции в метриках.
func (m *Manager) observe(op string, err error) {
	m.metrics.SessionOp(op, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	case errors.Is(err, ErrAlreadyRotated):
		return "already_rotated"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}
