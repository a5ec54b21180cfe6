// Package sweeper периодически удаляет истёкшие записи refresh-токенов.
// Это только оптимизация объёма хранилища: менеджер сессий сам проверяет
// срок каждого предъявленного токена и не зависит от того, запускалась ли очистка.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/rideshare-auth/internal/metrics"
	"github.com/pribylovaa/rideshare-auth/internal/models"
	"github.com/pribylovaa/rideshare-auth/internal/storage"
	"github.com/pribylovaa/rideshare-auth/internal/token"
)

const (
	defaultInterval = 24 * time.Hour
	defaultTimeout  = time.Minute
)

// Verifier проверяет подпись и срок токена (реализуется *token.Codec).
type Verifier interface {
	Verify(tokenStr string, kind token.Kind) (*models.Claims, error)
}

// Ticker — источник тиков расписания; подменяется в тестах.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker — Ticker поверх time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Options — параметры очистки. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	Interval  time.Duration
	Timeout   time.Duration
	NewTicker func(time.Duration) Ticker
	Logger    *slog.Logger
	Metrics   metrics.Recorder
}

// Result — итог одного прохода.
type Result struct {
	Scanned        int
	Deleted        int
	SkippedInvalid int
}

// Sweeper удаляет записи, чей токен истёк. Записи с некорректной подписью
// не трогает.
type Sweeper struct {
	store storage.RefreshTokenStorage
	codec Verifier
	opts  Options
}

// New создаёт Sweeper.
func New(store storage.RefreshTokenStorage, codec Verifier, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Metrics = metrics.OrNop(opts.Metrics)

	return &Sweeper{store: store, codec: codec, opts: opts}
}

// Run выполняет Sweep на каждом тике, пока ctx не отменён. Первый проход —
// через Interval после старта. Ошибка прохода логируется и не прерывает цикл.
func (s *Sweeper) Run(ctx context.Context) {
	log := s.opts.Logger.With(slog.String("component", "sweeper"))

	t := s.opts.NewTicker(s.opts.Interval)
	defer t.Stop()

	log.Info("sweeper_started", slog.Duration("interval", s.opts.Interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper_stopped")
			return
		case <-t.C():
			passCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			res, err := s.Sweep(passCtx)
			cancel()

			if err != nil {
				log.Error("sweep_failed",
					slog.Int("deleted", res.Deleted),
					slog.String("err", err.Error()),
				)
				continue
			}

			log.Info("sweep_finished",
				slog.Int("scanned", res.Scanned),
				slog.Int("deleted", res.Deleted),
				slog.Int("skipped_invalid", res.SkippedInvalid),
			)
		}
	}
}

// Sweep выполняет один проход: сначала снимок записей и отбор истёкших,
// затем удаление. Повторный проход по тем же данным ничего не удаляет.
func (s *Sweeper) Sweep(ctx context.Context) (res Result, err error) {
	const op = "sweeper.Sweep"

	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.opts.Metrics.SweepRun(outcome, res.Deleted)
	}()

	var expired []string
	err = s.store.ScanRefreshTokens(ctx, func(rt models.RefreshToken) error {
		res.Scanned++

		_, verr := s.codec.Verify(rt.Token, token.KindRefresh)
		switch {
		case verr == nil:
		case errors.Is(verr, token.ErrExpired):
			expired = append(expired, rt.ID)
		default:
			res.SkippedInvalid++
		}

		return nil
	})
	if err != nil {
		return res, fmt.Errorf("%s: scan: %w", op, err)
	}

	var errs []error
	for _, id := range expired {
		existed, derr := s.store.DeleteRefreshToken(ctx, id)
		if derr != nil {
			errs = append(errs, derr)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if existed {
			res.Deleted++
		}
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("%s: delete: %w", op, errors.Join(errs...))
	}

	return res, nil
}
