package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind — назначение токена. Access и refresh не взаимозаменяемы.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenPair — пара токенов, выдаваемая при входе и при обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — долгоживущий JWT с уникальным jti, обменивается на новую пару;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Claims — проверенное содержимое токена.
type Claims struct {
	UserID    uuid.UUID
	TokenID   uuid.UUID
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RevocationEntry — запись журнала отозванных refresh-токенов.
// Запись только добавляется: после появления jti больше не обменивается на токены.
type RevocationEntry struct {
	TokenID   uuid.UUID
	UserID    uuid.UUID
	RevokedAt time.Time
	// ExpiresAt — срок жизни самого токена; нужен только для очистки журнала.
	ExpiresAt time.Time
}
