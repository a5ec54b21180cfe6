package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/rideshare-auth/internal/account"
	apierrors "github.com/pribylovaa/rideshare-auth/internal/errors"
	logctx "github.com/pribylovaa/rideshare-auth/internal/pkg/log"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	res, err := h.Accounts.Register(r.Context(), account.RegisterInput{
		UniversityID: in.UniversityID,
		Email:        in.Email,
		Phone:        in.Phone,
		Name:         in.Name,
		Password:     in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message:      "user registered",
		pairResponse: pairFromModel(res.Pair),
		User:         userFromModel(res.Account),
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	res, err := h.Accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message:      "login successful",
		pairResponse: pairFromModel(res.Pair),
		User:         userFromModel(res.Account),
	})
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil || in.RefreshToken == "" {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, err := h.Sessions.Rotate(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pairFromModel(pair))
}

// Logout отвечает 200 всегда, когда тело корректно: отзыв best-effort.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if in.RefreshToken != "" {
		if err := h.Sessions.RevokeOne(r.Context(), in.RefreshToken); err != nil {
			logctx.From(r.Context()).Warn("logout_revoke_failed", slog.String("err", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
