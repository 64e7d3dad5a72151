package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/service"
	apierrors "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/errors"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/middleware"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/models"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	user, err := h.svc.Register(r.Context(), in.Username, in.Password, in.Email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.UserFromDomain(user))
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, err := h.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenPairFromDomain(pair))
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), in.Refresh)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenPairFromDomain(pair))
}

// Logout отзывает refresh-токен. Любая проблема с телом или токеном даёт
// одинаковый 404 без деталей; сбои хранилища — 500.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	var in models.LogoutRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrLogoutFailed)
		return
	}

	if err := h.svc.Logout(r.Context(), in.Refresh, caller); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusResetContent)
}
