package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
)

// RevokeToken добавляет jti в журнал отозванных токенов.
// Повторный вызов для того же jti — no-op; inserted=false.
// Уникальность по первичному ключу даёт ровно одного «победителя» среди
// конкурентных вызовов.
func (s *Storage) RevokeToken(ctx context.Context, entry *models.RevocationEntry) (bool, error) {
	const op = "storage.postgres.RevokeToken"

	query := `
		INSERT INTO revoked_tokens(token_id, user_id, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_id) DO NOTHING
	`

	cmdTag, err := s.db.Exec(ctx, query,
		entry.TokenID,
		entry.UserID,
		entry.RevokedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

// IsTokenRevoked проверяет наличие jti в журнале.
func (s *Storage) IsTokenRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	const op = "storage.postgres.IsTokenRevoked"

	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = $1)`

	var revoked bool
	if err := s.db.QueryRow(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return revoked, nil
}

// DeleteExpiredRevocations удаляет записи о токенах, истёкших до before.
func (s *Storage) DeleteExpiredRevocations(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredRevocations"

	query := `
		DELETE FROM revoked_tokens
		WHERE expires_at <= $1
	`

	cmdTag, err := s.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}
