package models

import (
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
)

// ErrInvalidUUID — идентификатор в теле запроса не является UUID.
var ErrInvalidUUID = errors.New("invalid uuid")

// CategoryRequest — тело POST/PUT/PATCH для категории.
// nil-поле в PATCH означает "не менять"; в POST/PUT — пустое значение.
type CategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"` // Unix UTC
}

type CategoryListResponse struct {
	Items         []Category `json:"items"`
	NextPageToken string     `json:"next_page_token"`
}

// ProductRequest — тело POST/PUT/PATCH для товара.
type ProductRequest struct {
	Category    *string `json:"category"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int32  `json:"stock"`
}

type Product struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int32  `json:"stock"`
	CreatedAt   int64  `json:"created_at"` // Unix UTC
}

type ProductListResponse struct {
	Items         []Product `json:"items"`
	NextPageToken string    `json:"next_page_token"`
}

// ToPatch возвращает изменения категории.
// full=true (PUT) заполняет отсутствующие поля пустыми значениями.
func (m CategoryRequest) ToPatch(full bool) models.CategoryPatch {
	p := models.CategoryPatch{Name: m.Name, Slug: m.Slug, Description: m.Description}
	if full {
		p.Name = orEmpty(p.Name)
		p.Slug = orEmpty(p.Slug)
		p.Description = orEmpty(p.Description)
	}

	return p
}

// ToPatch возвращает изменения товара; category разбирается как UUID.
func (m ProductRequest) ToPatch(full bool) (models.ProductPatch, error) {
	p := models.ProductPatch{
		Name:        m.Name,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		Stock:       m.Stock,
	}

	if m.Category != nil {
		id, err := uuid.Parse(*m.Category)
		if err != nil {
			return models.ProductPatch{}, ErrInvalidUUID
		}
		p.CategoryID = &id
	}

	if full {
		if p.CategoryID == nil {
			p.CategoryID = new(uuid.UUID)
		}
		p.Name = orEmpty(p.Name)
		p.Description = orEmpty(p.Description)
		if p.PriceCents == nil {
			p.PriceCents = new(int64)
		}
		if p.Stock == nil {
			p.Stock = new(int32)
		}
	}

	return p, nil
}

// ToDomain собирает товар для создания.
func (m ProductRequest) ToDomain() (models.Product, error) {
	p, err := m.ToPatch(true)
	if err != nil {
		return models.Product{}, err
	}

	return models.Product{
		CategoryID:  *p.CategoryID,
		Name:        *p.Name,
		Description: *p.Description,
		PriceCents:  *p.PriceCents,
		Stock:       *p.Stock,
	}, nil
}

func CategoryFromDomain(c *models.Category) Category {
	if c == nil {
		return Category{}
	}

	return Category{
		ID:          c.ID.String(),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Unix(),
	}
}

func CategoryListFromDomain(p *models.CategoryPage) CategoryListResponse {
	out := CategoryListResponse{Items: []Category{}}
	if p == nil {
		return out
	}

	for i := range p.Items {
		out.Items = append(out.Items, CategoryFromDomain(&p.Items[i]))
	}
	out.NextPageToken = p.NextPageToken

	return out
}

func ProductFromDomain(p *models.Product) Product {
	if p == nil {
		return Product{}
	}

	return Product{
		ID:          p.ID.String(),
		Category:    p.CategoryID.String(),
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt.Unix(),
	}
}

func ProductListFromDomain(p *models.ProductPage) ProductListResponse {
	out := ProductListResponse{Items: []Product{}}
	if p == nil {
		return out
	}

	for i := range p.Items {
		out.Items = append(out.Items, ProductFromDomain(&p.Items[i]))
	}
	out.NextPageToken = p.NextPageToken

	return out
}

func orEmpty(s *string) *string {
	if s == nil {
		return new(string)
	}
	return s
}
