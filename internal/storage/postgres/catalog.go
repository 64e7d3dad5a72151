package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
)

const (
	categoryColumns = `id, name, slug, description, created_at`
	productColumns  = `id, category_id, name, description, price_cents, stock, created_at`
)

// SaveCategory сохраняет новую категорию. Занятый slug — storage.ErrAlreadyExists.
func (s *Storage) SaveCategory(ctx context.Context, c *models.Category) error {
	const op = "storage.postgres.SaveCategory"

	query := `
		INSERT INTO categories(id, name, slug, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.Exec(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	return nil
}

// CategoryByID возвращает категорию по идентификатору.
func (s *Storage) CategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	const op = "storage.postgres.CategoryByID"

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// ListCategories возвращает страницу категорий с курсорной пагинацией.
// Сортировка фиксирована: created_at DESC, id DESC.
func (s *Storage) ListCategories(ctx context.Context, opts models.ListOptions) (*models.CategoryPage, error) {
	const op = "storage.postgres.ListCategories"

	q, args, err := buildListQuery("categories", categoryColumns, opts, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var page models.CategoryPage
	for rows.Next() {
		c, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}

		page.Items = append(page.Items, *c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	if l := len(page.Items); l > 0 && int32(l) == normLimit(opts.Limit) {
		last := page.Items[l-1]
		page.NextPageToken = storage.EncodePageToken(last.CreatedAt, last.ID)
	}

	return &page, nil
}

// UpdateCategory перезаписывает изменяемые поля категории.
func (s *Storage) UpdateCategory(ctx context.Context, c *models.Category) error {
	const op = "storage.postgres.UpdateCategory"

	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, c.ID, c.Name, c.Slug, c.Description)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteCategory удаляет категорию; товары удаляются каскадно (ON DELETE CASCADE).
func (s *Storage) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteCategory"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SaveProduct сохраняет новый товар.
func (s *Storage) SaveProduct(ctx context.Context, p *models.Product) error {
	const op = "storage.postgres.SaveProduct"

	query := `
		INSERT INTO products(id, category_id, name, description, price_cents, stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		p.ID,
		p.CategoryID,
		p.Name,
		p.Description,
		p.PriceCents,
		p.Stock,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	return nil
}

// ProductByID возвращает товар по идентификатору.
func (s *Storage) ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	const op = "storage.postgres.ProductByID"

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// ListProducts возвращает страницу товаров; поддерживает фильтр по категории и поиск.
func (s *Storage) ListProducts(ctx context.Context, opts models.ListOptions) (*models.ProductPage, error) {
	const op = "storage.postgres.ListProducts"

	q, args, err := buildListQuery("products", productColumns, opts, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var page models.ProductPage
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, scanErr)
		}

		page.Items = append(page.Items, *p)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, rows.Err())
	}

	if l := len(page.Items); l > 0 && int32(l) == normLimit(opts.Limit) {
		last := page.Items[l-1]
		page.NextPageToken = storage.EncodePageToken(last.CreatedAt, last.ID)
	}

	return &page, nil
}

// UpdateProduct перезаписывает изменяемые поля товара.
func (s *Storage) UpdateProduct(ctx context.Context, p *models.Product) error {
	const op = "storage.postgres.UpdateProduct"

	query := `
		UPDATE products
		SET category_id = $2, name = $3, description = $4, price_cents = $5, stock = $6
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, p.ID, p.CategoryID, p.Name, p.Description, p.PriceCents, p.Stock)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapWriteErr(err))
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteProduct удаляет товар.
func (s *Storage) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteProduct"

	cmdTag, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// buildListQuery собирает SELECT со сквозными фильтрами и курсором.
// withCategory включает фильтр по category_id (только для products).
func buildListQuery(table, columns string, opts models.ListOptions, withCategory bool) (string, []any, error) {
	var (
		where []string
		args  []any
	)

	if search := strings.TrimSpace(opts.Search); search != "" {
		args = append(args, likePattern(search))
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	if withCategory && opts.CategoryID != uuid.Nil {
		args = append(args, opts.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}

	if opts.PageToken != "" {
		ts, id, err := storage.DecodePageToken(opts.PageToken)
		if err != nil {
			return "", nil, storage.ErrInvalidCursor
		}

		args = append(args, ts, id)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	args = append(args, normLimit(opts.Limit))
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	return sb.String(), args, nil
}

// normLimit — защита от нуля/отрицательного значения.
func normLimit(limit int32) int32 {
	if limit <= 0 {
		return 1
	}

	return limit
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}

	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
