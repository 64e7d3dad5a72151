package models

import (
	"time"

	"github.com/google/uuid"
)

// User - модель пользователя в системе.
// Пароль хранится только в виде bcrypt-хэша.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
