package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/pkg/log"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
)

// CreateCategory создаёт категорию.
//
// Ошибки:
// - *ValidationError — пустое имя/некорректный slug;
// - ErrConflict — slug занят.
func (s *Service) CreateCategory(ctx context.Context, name, slug, description string) (*models.Category, error) {
	const op = "service.catalog.CreateCategory"

	f := &categoryFields{
		Name:        strings.TrimSpace(name),
		Slug:        strings.TrimSpace(slug),
		Description: description,
	}
	if err := validateCategory(f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &models.Category{
		ID:          uuid.New(),
		Name:        f.Name,
		Slug:        f.Slug,
		Description: f.Description,
		CreatedAt:   s.now().Truncate(time.Microsecond),
	}

	if err := s.storage.SaveCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	log.From(ctx).Info("category_created",
		slog.String("op", op),
		slog.String("id", c.ID.String()),
	)

	return c, nil
}

// CategoryByID возвращает категорию по идентификатору.
func (s *Service) CategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	const op = "service.catalog.CategoryByID"

	c, err := s.storage.CategoryByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	return c, nil
}

// ListCategories возвращает страницу категорий с нормализацией лимита по конфигу.
//
// Правила нормализации:
// - limit <= 0 -> cfg.Limits.Default;
// - limit > max -> cfg.Limits.Max;
// - пустой pageToken -> первая страница.
func (s *Service) ListCategories(ctx context.Context, opts models.ListOptions) (*models.CategoryPage, error) {
	const op = "service.catalog.ListCategories"

	opts = s.normalize(opts)
	opts.CategoryID = uuid.Nil

	page, err := s.storage.ListCategories(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	log.From(ctx).Debug("list_categories_ok",
		slog.String("op", op),
		slog.Int("items", len(page.Items)),
		slog.Bool("has_next_page", page.NextPageToken != ""),
	)

	return page, nil
}

// UpdateCategory применяет изменения к категории (PUT передаёт все поля, PATCH — часть).
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error) {
	const op = "service.catalog.UpdateCategory"

	c, err := s.storage.CategoryByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	f := &categoryFields{Name: c.Name, Slug: c.Slug, Description: c.Description}
	if patch.Name != nil {
		f.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Slug != nil {
		f.Slug = strings.TrimSpace(*patch.Slug)
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}

	if err := validateCategory(f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.Name, c.Slug, c.Description = f.Name, f.Slug, f.Description
	if err := s.storage.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	return c, nil
}

// DeleteCategory удаляет категорию вместе с её товарами.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	const op = "service.catalog.DeleteCategory"

	if err := s.storage.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	log.From(ctx).Info("category_deleted",
		slog.String("op", op),
		slog.String("id", id.String()),
	)

	return nil
}

// CreateProduct создаёт товар в существующей категории.
func (s *Service) CreateProduct(ctx context.Context, in models.Product) (*models.Product, error) {
	const op = "service.catalog.CreateProduct"

	f := &productFields{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
	}
	if err := validateProduct(f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := &models.Product{
		ID:          uuid.New(),
		CategoryID:  f.CategoryID,
		Name:        f.Name,
		Description: f.Description,
		PriceCents:  f.PriceCents,
		Stock:       f.Stock,
		CreatedAt:   s.now().Truncate(time.Microsecond),
	}

	if err := s.storage.SaveProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	log.From(ctx).Info("product_created",
		slog.String("op", op),
		slog.String("id", p.ID.String()),
	)

	return p, nil
}

// ProductByID возвращает товар по идентификатору.
func (s *Service) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	const op = "service.catalog.ProductByID"

	p, err := s.storage.ProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	return p, nil
}

// ListProducts возвращает страницу товаров; фильтр по категории и поиск опциональны.
func (s *Service) ListProducts(ctx context.Context, opts models.ListOptions) (*models.ProductPage, error) {
	const op = "service.catalog.ListProducts"

	opts = s.normalize(opts)

	page, err := s.storage.ListProducts(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	log.From(ctx).Debug("list_products_ok",
		slog.String("op", op),
		slog.Int("items", len(page.Items)),
		slog.Bool("has_next_page", page.NextPageToken != ""),
	)

	return page, nil
}

// UpdateProduct применяет изменения к товару.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, patch models.ProductPatch) (*models.Product, error) {
	const op = "service.catalog.UpdateProduct"

	p, err := s.storage.ProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	f := &productFields{
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
	}
	if patch.CategoryID != nil {
		f.CategoryID = *patch.CategoryID
	}
	if patch.Name != nil {
		f.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.PriceCents != nil {
		f.PriceCents = *patch.PriceCents
	}
	if patch.Stock != nil {
		f.Stock = *patch.Stock
	}

	if err := validateProduct(f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p.CategoryID, p.Name, p.Description, p.PriceCents, p.Stock =
		f.CategoryID, f.Name, f.Description, f.PriceCents, f.Stock

	if err := s.storage.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	return p, nil
}

// DeleteProduct удаляет товар.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	const op = "service.catalog.DeleteProduct"

	if err := s.storage.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, s.mapStorageErr(ctx, op, err))
	}

	return nil
}

func (s *Service) normalize(opts models.ListOptions) models.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.Limits.Default
	}

	if s.cfg.Limits.Max > 0 && opts.Limit > s.cfg.Limits.Max {
		opts.Limit = s.cfg.Limits.Max
	}

	opts.Search = strings.TrimSpace(opts.Search)
	return opts
}

// mapStorageErr переводит ошибки хранилища в ошибки сервиса.
// Неизвестные ошибки логируются и возвращаются как есть (внутренние).
func (s *Service) mapStorageErr(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return ErrConflict
	case errors.Is(err, storage.ErrInvalidReference):
		return fieldError("category", "category does not exist")
	case errors.Is(err, storage.ErrInvalidCursor):
		return ErrInvalidCursor
	}

	log.From(ctx).Error("catalog_storage_error",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)

	return err
}
