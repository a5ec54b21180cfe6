package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/rideshare-auth/internal/errors"
	"github.com/pribylovaa/rideshare-auth/internal/http/middleware"
)

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
		return
	}

	acc, err := h.Accounts.Profile(r.Context(), claims.AccountID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(acc))
}

func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
		return
	}

	if err := h.Accounts.DeleteAccount(r.Context(), claims.AccountID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
