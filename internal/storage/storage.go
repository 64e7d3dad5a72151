// storage определяет контракты доступа к хранилищу catalog-service.
package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/mock_storage.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/категория/товар).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/slug).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidReference — ссылка на несуществующую сущность (product.category_id).
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidCursor - битый/чужой page_token (курсор пагинации).
	ErrInvalidCursor = errors.New("invalid cursor")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя. Занятый username — ErrAlreadyExists.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByUsername находит пользователя по username (с учётом регистра).
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RevocationStorage — журнал отозванных refresh-токенов.
//
// Контракт:
//   - RevokeToken идемпотентен; inserted=true только у того вызова, который
//     действительно создал запись (нужно для однократной ротации);
//   - запись видна IsTokenRevoked сразу после успешного возврата RevokeToken.
type RevocationStorage interface {
	// RevokeToken добавляет jti в журнал.
	RevokeToken(ctx context.Context, entry *models.RevocationEntry) (inserted bool, err error)
	// IsTokenRevoked сообщает, есть ли jti в журнале.
	IsTokenRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error)
	// DeleteExpiredRevocations удаляет записи о токенах, истёкших до before.
	DeleteExpiredRevocations(ctx context.Context, before time.Time) (int64, error)
}

// CategoryStorage выполняет операции над категориями каталога.
type CategoryStorage interface {
	SaveCategory(ctx context.Context, category *models.Category) error
	CategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	// ListCategories возвращает страницу категорий, отсортированных по created_at DESC, id DESC.
	// При некорректном page_token возвращается ErrInvalidCursor.
	ListCategories(ctx context.Context, opts models.ListOptions) (*models.CategoryPage, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	// DeleteCategory удаляет категорию вместе с её товарами.
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// ProductStorage выполняет операции над товарами каталога.
type ProductStorage interface {
	// SaveProduct сохраняет товар. Несуществующая категория — ErrInvalidReference.
	SaveProduct(ctx context.Context, product *models.Product) error
	ProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, opts models.ListOptions) (*models.ProductPage, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// Storage задает контракт работы с хранилищем.
type Storage interface {
	UserStorage
	RevocationStorage
	CategoryStorage
	ProductStorage
	Close()
}
