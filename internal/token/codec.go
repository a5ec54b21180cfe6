// Package token выпускает и проверяет подписанные JWT (access и refresh).
//
// Codec не зависит от хранилища: валидность токена определяется только подписью
// и сроком действия в момент проверки. Для access и refresh используются разные
// секреты, поэтому утечка ключа access-токенов не позволяет подделать refresh-токен.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/rideshare-auth/internal/config"
	"github.com/pribylovaa/rideshare-auth/internal/models"
)

var (
	// ErrExpired — подпись корректна, но срок действия истёк.
	// Оправдывает оппортунистическую очистку записи.
	ErrExpired = errors.New("token expired")
	// ErrInvalid — токен повреждён, подпись не сходится или контекст не тот.
	// Не даёт оснований удалять связанное состояние (возможна подделка).
	ErrInvalid = errors.New("token invalid")
)

// Kind — контекст подписи токена.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

// String возвращает значение claim "typ" для вида токена.
func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов и детерминированной проверки срока).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// Codec подписывает и проверяет токены. Безопасен для конкурентного использования.
type Codec struct {
	cfg config.AuthConfig
	now func() time.Time
}

// New создаёт Codec. Секреты обязаны быть непустыми и различаться, TTL — положительными.
func New(cfg config.AuthConfig, opts ...Option) (*Codec, error) {
	const op = "token.New"

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%s: empty signing secret", op)
	}

	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%s: access and refresh secrets must differ", op)
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("%s: token ttl must be positive", op)
	}

	c := &Codec{
		cfg: cfg,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// IssueAccess выпускает короткоживущий access-токен и возвращает момент его истечения.
func (c *Codec) IssueAccess(claims models.Claims) (string, time.Time, error) {
	return c.issue(claims, KindAccess)
}

// IssueRefresh выпускает долгоживущий refresh-токен.
func (c *Codec) IssueRefresh(claims models.Claims) (string, error) {
	signed, _, err := c.issue(claims, KindRefresh)
	return signed, err
}

// Verify проверяет подпись и срок действия токена заданного вида.
// Возвращает ErrExpired, если подпись корректна, но срок истёк; во всех
// остальных случаях отказа — ErrInvalid.
func (c *Codec) Verify(tokenStr string, kind Kind) (*models.Claims, error) {
	const op = "token.Verify"

	secret, _, err := c.params(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.cfg.Leeway),
	}

	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}

	if len(c.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(c.cfg.Audience...))
	}

	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(tokenStr, &tc, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalid, err)
	}

	if !parsed.Valid || tc.Type != kind.String() || tc.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	return &models.Claims{
		AccountID: tc.Subject,
		Email:     tc.Email,
		Role:      tc.Role,
		Name:      tc.Name,
	}, nil
}

func (c *Codec) issue(claims models.Claims, kind Kind) (string, time.Time, error) {
	const op = "token.issue"

	if claims.AccountID == "" {
		return "", time.Time{}, fmt.Errorf("%s: empty account id", op)
	}

	secret, ttl, err := c.params(kind)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	now := c.now().UTC()
	exp := now.Add(ttl)

	tc := tokenClaims{
		Email: claims.Email,
		Role:  claims.Role,
		Name:  claims.Name,
		Type:  kind.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			// jti делает значения уникальными даже при выпуске в одну и ту же секунду.
			ID:        uuid.NewString(),
			Subject:   claims.AccountID,
			Issuer:    c.cfg.Issuer,
			Audience:  jwt.ClaimStrings(c.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

func (c *Codec) params(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return []byte(c.cfg.AccessSecret), c.cfg.AccessTokenTTL, nil
	case KindRefresh:
		return []byte(c.cfg.RefreshSecret), c.cfg.RefreshTokenTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %d", kind)
	}
}
