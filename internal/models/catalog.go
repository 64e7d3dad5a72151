package models

import (
	"time"

	"github.com/google/uuid"
)

// Category — категория каталога.
type Category struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

// Product — товар каталога. Цена хранится в минимальных единицах валюты.
type Product struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description string
	PriceCents  int64
	Stock       int32
	CreatedAt   time.Time
}

// ListOptions — параметры постраничной выборки.
//
// Search — подстрока для поиска по name/description (регистронезависимо);
// CategoryID — фильтр товаров по категории (uuid.Nil — без фильтра);
// PageToken — непрозрачный курсор, полученный из предыдущей страницы.
type ListOptions struct {
	Limit      int32
	PageToken  string
	Search     string
	CategoryID uuid.UUID
}

// CategoryPage — страница категорий.
type CategoryPage struct {
	Items         []Category
	NextPageToken string
}

// ProductPage — страница товаров.
type ProductPage struct {
	Items         []Product
	NextPageToken string
}

// CategoryPatch — изменения категории. nil-поле означает "не менять".
type CategoryPatch struct {
	Name        *string
	Slug        *string
	Description *string
}

// ProductPatch — изменения товара. nil-поле означает "не менять".
type ProductPatch struct {
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	PriceCents  *int64
	Stock       *int32
}
