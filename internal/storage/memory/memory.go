// memory — реализация storage.Storage в памяти процесса.
// Используется для локального запуска (storage.driver=memory) и в тестах сервисного слоя.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
)

// Storage хранит все сущности в map под одним RWMutex.
// Наружу всегда отдаются копии, чтобы вызывающий код не мог изменить состояние хранилища.
type Storage struct {
	mu sync.RWMutex

	users      map[uuid.UUID]models.User
	usernames  map[string]uuid.UUID
	revoked    map[uuid.UUID]models.RevocationEntry
	categories map[uuid.UUID]models.Category
	slugs      map[string]uuid.UUID
	products   map[uuid.UUID]models.Product
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:      make(map[uuid.UUID]models.User),
		usernames:  make(map[string]uuid.UUID),
		revoked:    make(map[uuid.UUID]models.RevocationEntry),
		categories: make(map[uuid.UUID]models.Category),
		slugs:      make(map[string]uuid.UUID),
		products:   make(map[uuid.UUID]models.Product),
	}
}

// Close ничего не освобождает; нужен для соответствия storage.Storage.
func (s *Storage) Close() {}

func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[user.Username]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.users[user.ID] = *user
	s.usernames[user.Username] = user.ID

	return nil
}

func (s *Storage) UserByUsername(_ context.Context, username string) (*models.User, error) {
	const op = "storage.memory.UserByUsername"

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u := s.users[id]
	return &u, nil
}

func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &u, nil
}

// RevokeToken добавляет jti в журнал; повторный вызов возвращает inserted=false.
func (s *Storage) RevokeToken(_ context.Context, entry *models.RevocationEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revoked[entry.TokenID]; ok {
		return false, nil
	}

	s.revoked[entry.TokenID] = *entry
	return true, nil
}

func (s *Storage) IsTokenRevoked(_ context.Context, tokenID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[tokenID]
	return ok, nil
}

func (s *Storage) DeleteExpiredRevocations(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, e := range s.revoked {
		if !e.ExpiresAt.After(before) {
			delete(s.revoked, id)
			n++
		}
	}

	return n, nil
}

func (s *Storage) SaveCategory(_ context.Context, c *models.Category) error {
	const op = "storage.memory.SaveCategory"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slugs[c.Slug]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if _, ok := s.categories[c.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.categories[c.ID] = *c
	s.slugs[c.Slug] = c.ID

	return nil
}

func (s *Storage) CategoryByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	const op = "storage.memory.CategoryByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &c, nil
}

func (s *Storage) ListCategories(_ context.Context, opts models.ListOptions) (*models.CategoryPage, error) {
	const op = "storage.memory.ListCategories"

	cur, err := newCursor(opts.PageToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	items := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if !matches(opts.Search, c.Name, c.Description) || !cur.after(c.CreatedAt, c.ID) {
			continue
		}
		items = append(items, c)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return newer(items[i].CreatedAt, items[i].ID, items[j].CreatedAt, items[j].ID)
	})

	page := &models.CategoryPage{}
	limit := normLimit(opts.Limit)
	if len(items) > limit {
		items = items[:limit]
	}

	page.Items = items
	if len(items) == limit {
		last := items[len(items)-1]
		page.NextPageToken = storage.EncodePageToken(last.CreatedAt, last.ID)
	}

	return page, nil
}

func (s *Storage) UpdateCategory(_ context.Context, c *models.Category) error {
	const op = "storage.memory.UpdateCategory"

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.categories[c.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if owner, taken := s.slugs[c.Slug]; taken && owner != c.ID {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	delete(s.slugs, old.Slug)
	old.Name = c.Name
	old.Slug = c.Slug
	old.Description = c.Description

	s.categories[c.ID] = old
	s.slugs[old.Slug] = c.ID

	return nil
}

// DeleteCategory удаляет категорию и все её товары.
func (s *Storage) DeleteCategory(_ context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeleteCategory"

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	for pid, p := range s.products {
		if p.CategoryID == id {
			delete(s.products, pid)
		}
	}

	delete(s.slugs, c.Slug)
	delete(s.categories, id)

	return nil
}

func (s *Storage) SaveProduct(_ context.Context, p *models.Product) error {
	const op = "storage.memory.SaveProduct"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[p.CategoryID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidReference)
	}

	if _, ok := s.products[p.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.products[p.ID] = *p
	return nil
}

func (s *Storage) ProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	const op = "storage.memory.ProductByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &p, nil
}

func (s *Storage) ListProducts(_ context.Context, opts models.ListOptions) (*models.ProductPage, error) {
	const op = "storage.memory.ListProducts"

	cur, err := newCursor(opts.PageToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	items := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if opts.CategoryID != uuid.Nil && p.CategoryID != opts.CategoryID {
			continue
		}
		if !matches(opts.Search, p.Name, p.Description) || !cur.after(p.CreatedAt, p.ID) {
			continue
		}
		items = append(items, p)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return newer(items[i].CreatedAt, items[i].ID, items[j].CreatedAt, items[j].ID)
	})

	page := &models.ProductPage{}
	limit := normLimit(opts.Limit)
	if len(items) > limit {
		items = items[:limit]
	}

	page.Items = items
	if len(items) == limit {
		last := items[len(items)-1]
		page.NextPageToken = storage.EncodePageToken(last.CreatedAt, last.ID)
	}

	return page, nil
}

func (s *Storage) UpdateProduct(_ context.Context, p *models.Product) error {
	const op = "storage.memory.UpdateProduct"

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.products[p.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if _, ok := s.categories[p.CategoryID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidReference)
	}

	old.CategoryID = p.CategoryID
	old.Name = p.Name
	old.Description = p.Description
	old.PriceCents = p.PriceCents
	old.Stock = p.Stock
	s.products[p.ID] = old

	return nil
}

func (s *Storage) DeleteProduct(_ context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeleteProduct"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.products, id)
	return nil
}

// cursor — разобранный page_token; нулевое значение означает первую страницу.
type cursor struct {
	set bool
	ts  time.Time
	id  uuid.UUID
}

func newCursor(token string) (cursor, error) {
	if token == "" {
		return cursor{}, nil
	}

	ts, id, err := storage.DecodePageToken(token)
	if err != nil {
		return cursor{}, storage.ErrInvalidCursor
	}

	return cursor{set: true, ts: ts, id: id}, nil
}

// after сообщает, идёт ли запись (ts, id) строго после курсора в порядке выдачи.
func (c cursor) after(ts time.Time, id uuid.UUID) bool {
	if !c.set {
		return true
	}

	return newer(c.ts, c.id, ts, id)
}

// newer — порядок created_at DESC, id DESC (id сравниваются побайтно, как uuid в PostgreSQL).
func newer(ta time.Time, ida uuid.UUID, tb time.Time, idb uuid.UUID) bool {
	if !ta.Equal(tb) {
		return ta.After(tb)
	}

	return bytes.Compare(ida[:], idb[:]) > 0
}

func matches(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}

	return false
}

func normLimit(limit int32) int {
	if limit <= 0 {
		return 1
	}

	return int(limit)
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
