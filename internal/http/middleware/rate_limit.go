package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	apierrors "github.com/pribylovaa/rideshare-auth/internal/errors"
)

// RateLimit ограничивает число запросов с одного IP: не больше limit за
// скользящее окно window. Сверх лимита — 429/rate_limited.
// limit <= 0 отключает ограничение. Счётчики живут в памяти процесса.
func RateLimit(limit int, window time.Duration) Middleware {
	if limit <= 0 || window <= 0 {
		return passthrough
	}

	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			apierrors.WriteError(w, r, apierrors.ErrRateLimited)
		}),
	)
}
