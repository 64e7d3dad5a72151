package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
)

// Service — операции сервисного слоя, которые нужны хендлерам.
// Реализуется *service.Service.
type Service interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string, caller uuid.UUID) error

	CreateCategory(ctx context.Context, name, slug, description string) (*models.Category, error)
	CategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context, opts models.ListOptions) (*models.CategoryPage, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, in models.Product) (*models.Product, error)
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, opts models.ListOptions) (*models.ProductPage, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// Handlers агрегирует зависимости.
type Handlers struct {
	svc Service
}

func New(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// pathID разбирает {id} из пути. Не-UUID трактуется как отсутствующий ресурс.
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// listOptions читает общие параметры списков: limit, page_token, search.
func listOptions(r *http.Request) (models.ListOptions, bool) {
	q := r.URL.Query()

	opts := models.ListOptions{
		PageToken: q.Get("page_token"),
		Search:    q.Get("search"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return models.ListOptions{}, false
		}
		opts.Limit = int32(n)
	}

	return opts, true
}
