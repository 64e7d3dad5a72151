package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/service"
	apierrors "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/errors"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/models"
)

// ListProducts: search, category, limit, page_token.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	opts, ok := listOptions(r)
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if v := r.URL.Query().Get("category"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			apierrors.WriteError(w, r, apierrors.ErrBadRequest)
			return
		}
		opts.CategoryID = id
	}

	page, err := h.svc.ListProducts(r.Context(), opts)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ProductListFromDomain(page))
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	p, err := h.svc.ProductByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ProductFromDomain(p))
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	p, err := in.ToDomain()
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	created, err := h.svc.CreateProduct(r.Context(), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.ProductFromDomain(created))
}

// UpdateProduct обслуживает PUT (все поля) и PATCH (часть полей).
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	var in models.ProductRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	patch, err := in.ToPatch(r.Method == http.MethodPut)
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	p, err := h.svc.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ProductFromDomain(p))
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
