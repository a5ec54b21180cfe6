// errors стандартизирует ответы об ошибках HTTP-слоя: доменная ошибка
// превращается в HTTP-статус и стабильный машиночитаемый код без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/rideshare-auth/internal/account"
	"github.com/pribylovaa/rideshare-auth/internal/session"
	"github.com/pribylovaa/rideshare-auth/internal/token"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrBadRequest — тело запроса не разбирается.
	ErrBadRequest = stderrors.New("invalid request body")
	// ErrUnauthenticated — нет Bearer-токена.
	ErrUnauthenticated = stderrors.New("missing bearer token")
	// ErrRateLimited — превышен лимит запросов с адреса клиента.
	ErrRateLimited = stderrors.New("too many requests")
)

// APIError — единый формат для фронта.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// table просматривается по порядку; первая совпавшая по errors.Is запись побеждает.
// Пустой message означает «взять текст доменной ошибки».
var table = []mapping{
	{ErrBadRequest, http.StatusBadRequest, "invalid_argument", "invalid request body"},
	{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "authentication token is required"},
	{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later"},

	{account.ErrMissingFields, http.StatusBadRequest, "missing_fields", ""},
	{account.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", ""},
	{account.ErrWeakPassword, http.StatusBadRequest, "weak_password", ""},
	{account.ErrPasswordTooLong, http.StatusBadRequest, "password_too_long", ""},
	{account.ErrInvalidPhone, http.StatusBadRequest, "invalid_phone", ""},
	{account.ErrEmailTaken, http.StatusConflict, "email_taken", ""},
	{account.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{account.ErrNotFound, http.StatusNotFound, "not_found", "account not found"},

	{session.ErrNotFound, http.StatusUnauthorized, "token_not_found", "refresh token not found"},
	{session.ErrExpired, http.StatusUnauthorized, "token_expired", "token expired"},
	{token.ErrExpired, http.StatusUnauthorized, "token_expired", "token expired"},
	{session.ErrInvalid, http.StatusUnauthorized, "token_invalid", "token invalid"},
	{token.ErrInvalid, http.StatusUnauthorized, "token_invalid", "token invalid"},
	{session.ErrAlreadyRotated, http.StatusUnauthorized, "token_already_rotated", "refresh token already used"},
	{session.ErrStorageUnavailable, http.StatusServiceUnavailable, "unavailable", "service unavailable"},

	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
// err == nil и неизвестные ошибки дают 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range table {
			if !stderrors.Is(err, m.target) {
				continue
			}

			msg := m.message
			if msg == "" {
				msg = m.target.Error()
			}

			return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: msg}}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
