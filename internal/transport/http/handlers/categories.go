package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/service"
	apierrors "github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/errors"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/transport/http/models"
)

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	opts, ok := listOptions(r)
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	page, err := h.svc.ListCategories(r.Context(), opts)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CategoryListFromDomain(page))
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	c, err := h.svc.CategoryByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CategoryFromDomain(c))
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	f := in.ToPatch(true)
	c, err := h.svc.CreateCategory(r.Context(), *f.Name, *f.Slug, *f.Description)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.CategoryFromDomain(c))
}

// UpdateCategory обслуживает PUT (все поля) и PATCH (часть полей).
func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	var in models.CategoryRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	c, err := h.svc.UpdateCategory(r.Context(), id, in.ToPatch(r.Method == http.MethodPut))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CategoryFromDomain(c))
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
