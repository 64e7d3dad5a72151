// service содержит бизнес-логику catalog-service:
// жизненный цикл сессии (регистрация, вход, обновление пары с ротацией,
// выход с занесением refresh-токена в журнал отзыва), выпуск/проверку токенов
// и операции над каталогом поверх интерфейсов пакета storage.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования при условии, что storage.Storage потокобезопасен.
//   - Ошибки возвращаются обёрнутыми и маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/cache"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/config"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
)

var (
	// ErrValidation — входные данные не прошли проверку.
	// Конкретные поля — в *ValidationError. Транспорт: HTTP 400.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateUsername — username уже занят. Транспорт: HTTP 400.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCredentials — неверная пара логин/пароль или пользователь не найден.
	// Транспорт: HTTP 401 (без уточнения причины).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized — токен отклонён (см. *TokenError) либо отсутствует.
	// Транспорт: HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrLogoutFailed — refresh-токен для выхода отсутствует/нечитаем/чужой.
	// Транспорт: HTTP 404 без деталей.
	ErrLogoutFailed = errors.New("logout failed")

	// ErrNotFound — сущность каталога отсутствует. Транспорт: HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrConflict — нарушение уникальности в каталоге (slug). Транспорт: HTTP 409.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCursor — битый/чужой page_token. Транспорт: HTTP 400.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrSigningKey — не задан секрет подписи токенов. Транспорт: HTTP 500.
	ErrSigningKey = errors.New("signing key is not configured")
)

// Service описывает бизнес-логику catalog-service.
type Service struct {
	storage storage.Storage
	cfg     config.Config
	rcache  cache.RevocationCache // может быть nil, если кэш не сконфигурирован
	now     func() time.Time

	// dummyHash — хэш с cost из конфига для входа несуществующего пользователя.
	dummyHash string
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.Config) *Service {
	s := &Service{
		storage: storage,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}

	if h, err := s.hashPassword("dummy-password-for-timing"); err == nil {
		s.dummyHash = h
	}

	return s
}

// SetRevocationCache устанавливает кэш отозванных jti (опционально).
func (s *Service) SetRevocationCache(c cache.RevocationCache) {
	s.rcache = c
}
