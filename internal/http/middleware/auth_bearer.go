package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/rideshare-auth/internal/errors"
	"github.com/pribylovaa/rideshare-auth/internal/models"
	logctx "github.com/pribylovaa/rideshare-auth/internal/pkg/log"
	"github.com/pribylovaa/rideshare-auth/internal/token"
)

type claimsKey struct{}

// AccessVerifier проверяет access-токен (реализуется *token.Codec).
type AccessVerifier interface {
	Verify(tokenStr string, kind token.Kind) (*models.Claims, error)
}

// AuthBearer требует заголовок "Authorization: Bearer <access>", проверяет
// токен и кладёт claims в контекст. Истёкший и некорректный токен дают
// разные коды ответа (token_expired / token_invalid).
func AuthBearer(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}

			claims, err := v.Verify(raw, token.KindAccess)
			if err != nil {
				logctx.From(r.Context()).Debug("access_token_rejected", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logctx.With(ctx, slog.String("account_id", claims.AccountID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom возвращает claims, положенные AuthBearer.
func ClaimsFrom(ctx context.Context) (*models.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*models.Claims)
	return c, ok && c != nil
}

func bearer(h string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}

	t := strings.TrimSpace(h[len(prefix):])
	return t, t != ""
}
