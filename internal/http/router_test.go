package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/rideshare-auth/internal/account"
	"github.com/pribylovaa/rideshare-auth/internal/config"
	apihttp "github.com/pribylovaa/rideshare-auth/internal/http"
	"github.com/pribylovaa/rideshare-auth/internal/http/handlers"
	"github.com/pribylovaa/rideshare-auth/internal/session"
	"github.com/pribylovaa/rideshare-auth/internal/storage/memory"
	"github.com/pribylovaa/rideshare-auth/internal/token"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newServerWith(t, func(*apihttp.Options) {})
}

func newServerWith(t *testing.T, tune func(*apihttp.Options)) *httptest.Server {
	t.Helper()

	codec, err := token.New(config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	st := memory.New()
	mgr := session.New(st, codec)
	accounts := account.New(st, mgr, account.WithBcryptCost(bcrypt.MinCost))

	opts := apihttp.Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:  5 * time.Second,
		Verifier: codec,
	}
	tune(&opts)

	router := apihttp.NewRouter(handlers.New(accounts, mgr), opts)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type response struct {
	status int
	body   map[string]any
}

func do(t *testing.T, srv *httptest.Server, method, path, bearer string, body any) response {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(raw)
		}
	}

	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	out := response{status: resp.StatusCode, body: map[string]any{}}
	_ = json.NewDecoder(resp.Body).Decode(&out.body)
	return out
}

func errCode(r response) string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func registerBody() map[string]string {
	return map[string]string{
		"university_id": "20231001",
		"email":         "rider@unal.edu.co",
		"phone":         "3001234567",
		"name":          "Rider",
		"password":      "secret1",
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newServer(t)

	reg := do(t, srv, http.MethodPost, "/register", "", registerBody())
	require.Equal(t, http.StatusCreated, reg.status)
	require.NotEmpty(t, reg.body["access_token"])
	require.NotEmpty(t, reg.body["refresh_token"])
	user, _ := reg.body["user"].(map[string]any)
	require.Equal(t, "rider@unal.edu.co", user["email"])
	require.Equal(t, "user", user["role"])
	require.NotContains(t, user, "password_hash")

	dup := do(t, srv, http.MethodPost, "/register", "", registerBody())
	require.Equal(t, http.StatusConflict, dup.status)
	require.Equal(t, "email_taken", errCode(dup))

	login := do(t, srv, http.MethodPost, "/login", "", map[string]string{"email": "rider@unal.edu.co", "password": "secret1"})
	require.Equal(t, http.StatusOK, login.status)
	refresh1, _ := login.body["refresh_token"].(string)
	access1, _ := login.body["access_token"].(string)

	// Регистрационная сессия закрыта входом.
	old := do(t, srv, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": reg.body["refresh_token"].(string)})
	require.Equal(t, http.StatusUnauthorized, old.status)
	require.Equal(t, "token_not_found", errCode(old))

	rot := do(t, srv, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": refresh1})
	require.Equal(t, http.StatusOK, rot.status)
	refresh2, _ := rot.body["refresh_token"].(string)
	require.NotEqual(t, refresh1, refresh2)

	again := do(t, srv, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": refresh1})
	require.Equal(t, http.StatusUnauthorized, again.status)
	require.Equal(t, "token_not_found", errCode(again))

	prof := do(t, srv, http.MethodGet, "/api/profile", access1, nil)
	require.Equal(t, http.StatusOK, prof.status)
	require.Equal(t, "Rider", prof.body["name"])

	out := do(t, srv, http.MethodPost, "/logout", "", map[string]string{"refresh_token": refresh2})
	require.Equal(t, http.StatusOK, out.status)
	require.Equal(t, true, out.body["ok"])

	// Повторный logout тоже 200.
	out = do(t, srv, http.MethodPost, "/logout", "", map[string]string{"refresh_token": refresh2})
	require.Equal(t, http.StatusOK, out.status)

	gone := do(t, srv, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": refresh2})
	require.Equal(t, "token_not_found", errCode(gone))

	del := do(t, srv, http.MethodDelete, "/api/account", access1, nil)
	require.Equal(t, http.StatusOK, del.status)

	prof = do(t, srv, http.MethodGet, "/api/profile", access1, nil)
	require.Equal(t, http.StatusNotFound, prof.status)

	bad := do(t, srv, http.MethodPost, "/login", "", map[string]string{"email": "rider@unal.edu.co", "password": "secret1"})
	require.Equal(t, http.StatusUnauthorized, bad.status)
	require.Equal(t, "invalid_credentials", errCode(bad))
}

func TestValidationAndAuthErrors(t *testing.T) {
	srv := newServer(t)

	body := registerBody()
	body["phone"] = "123"
	r := do(t, srv, http.MethodPost, "/register", "", body)
	require.Equal(t, http.StatusBadRequest, r.status)
	require.Equal(t, "invalid_phone", errCode(r))

	r = do(t, srv, http.MethodPost, "/register", "", `{"unknown":1}`)
	require.Equal(t, http.StatusBadRequest, r.status)
	require.Equal(t, "invalid_argument", errCode(r))

	r = do(t, srv, http.MethodPost, "/refresh", "", `{}`)
	require.Equal(t, http.StatusBadRequest, r.status)

	r = do(t, srv, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": "never-issued"})
	require.Equal(t, http.StatusUnauthorized, r.status)
	require.Equal(t, "token_not_found", errCode(r))

	r = do(t, srv, http.MethodGet, "/api/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, r.status)
	require.Equal(t, "unauthenticated", errCode(r))

	r = do(t, srv, http.MethodGet, "/api/profile", "garbage", nil)
	require.Equal(t, "token_invalid", errCode(r))
}

func TestStatusAndHealth(t *testing.T) {
	srv := newServer(t)

	r := do(t, srv, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, r.status)
	require.NotEmpty(t, r.body["timestamp"])

	r = do(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, r.status)
	require.Equal(t, "ok", r.body["status"])
}

func TestRequestProtections(t *testing.T) {
	const frontend = "http://localhost:5173"

	srv := newServerWith(t, func(o *apihttp.Options) {
		o.FrontendURL = frontend
		o.RateLimit = 3
		o.RateWindow = time.Minute
	})

	get := func() *http.Response {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/status", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", frontend)

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	for i := 0; i < 3; i++ {
		resp := get()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		require.Equal(t, frontend, resp.Header.Get("Access-Control-Allow-Origin"))
	}

	resp := get()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, "rate_limited", env.Error.Code)
}
