package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/pkg/log"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/pkg/redact"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
)

// Register создаёт пользователя. Токены не выдаются: для них нужен Login.
func (s *Service) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	c := &credentials{
		Username: strings.TrimSpace(username),
		Password: password,
		Email:    strings.TrimSpace(email),
	}

	verr := s.validateRegistration(c)

	var ve *ValidationError
	if verr != nil && !errors.As(verr, &ve) {
		return nil, fmt.Errorf("%s: %w", op, verr)
	}

	// Занятость username проверяется и при ошибках в других полях.
	if ve == nil || ve.Fields["username"] == "" {
		_, err := s.storage.UserByUsername(ctx, c.Username)
		switch {
		case err == nil:
			if ve != nil {
				return nil, fmt.Errorf("%s: %w", op, ve.withDuplicateUsername())
			}
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateUsername)
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if ve != nil {
		return nil, fmt.Errorf("%s: %w", op, ve)
	}

	hash, err := s.hashPassword(c.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     c.Username,
		Email:        c.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().Truncate(time.Microsecond),
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateUsername)
		}

		lg.Error("save_user_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("register_ok",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("username", redact.Username(user.Username)),
	)

	return user, nil
}

// Login проверяет учётные данные и выдаёт новую пару токенов.
// Отсутствующий пользователь и неверный пароль неразличимы ни по ошибке, ни по времени ответа.
func (s *Service) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.burnPasswordCheck(password)
			lg.Warn("login_unknown_user",
				slog.String("op", op),
				slog.String("username", redact.Username(username)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Warn("login_bad_password",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_ok",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return pair, nil
}

// Refresh обменивает refresh-токен на новую пару (ротация).
// Старый jti заносится в журнал до выдачи новой пары; из конкурентных
// обменов одного токена успешен ровно один.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	claims, err := s.Validate(ctx, refreshToken, models.TokenKindRefresh)
	if err != nil {
		var te *TokenError
		if errors.As(err, &te) {
			lg.Warn("refresh_rejected",
				slog.String("op", op),
				slog.String("reason", string(te.Reason)),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.UserByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_unknown_user",
				slog.String("op", op),
				slog.String("user_id", claims.UserID.String()),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inserted, err := s.revoke(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !inserted {
		lg.Warn("refresh_replay_detected",
			slog.String("op", op),
			slog.String("user_id", claims.UserID.String()),
			slog.String("jti", claims.TokenID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, reject(ReasonRevoked))
	}

	pair, err := s.Issue(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("refresh_ok",
		slog.String("op", op),
		slog.String("user_id", claims.UserID.String()),
	)

	return pair, nil
}

// Logout заносит refresh-токен в журнал отзыва.
//
// Подпись проверяется, срок — нет: истёкший токен тоже можно отозвать.
// Отсутствующий, нечитаемый, не-refresh или чужой (sub != caller) токен —
// ErrLogoutFailed. Повторный выход по тому же токену успешен.
// Сбои хранилища возвращаются как внутренние ошибки.
func (s *Service) Logout(ctx context.Context, refreshToken string, caller uuid.UUID) error {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	tc, err := s.parse(refreshToken, jwt.WithoutClaimsValidation())
	if err == nil {
		// Без проверки claims парсер не сверяет iss/aud: делаем это сами.
		err = s.checkIssuerAudience(tc)
	}
	if err != nil {
		if errors.Is(err, ErrSigningKey) {
			return fmt.Errorf("%s: %w", op, err)
		}

		lg.Warn("logout_token_unreadable",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, ErrLogoutFailed)
	}

	if tc.Kind != models.TokenKindRefresh {
		lg.Warn("logout_wrong_kind",
			slog.String("op", op),
			slog.String("kind", string(tc.Kind)),
		)
		return fmt.Errorf("%s: %w", op, ErrLogoutFailed)
	}

	claims, err := claimsFrom(tc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrLogoutFailed)
	}

	if claims.UserID != caller {
		lg.Warn("logout_foreign_token",
			slog.String("op", op),
			slog.String("caller", caller.String()),
		)
		return fmt.Errorf("%s: %w", op, ErrLogoutFailed)
	}

	inserted, err := s.revoke(ctx, claims)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("logout_ok",
		slog.String("op", op),
		slog.String("user_id", claims.UserID.String()),
		slog.Bool("already_revoked", !inserted),
	)

	return nil
}

// Authenticate проверяет access-токен и возвращает идентификатор пользователя.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error) {
	const op = "service.auth.Authenticate"

	claims, err := s.Validate(ctx, accessToken, models.TokenKindAccess)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims.UserID, nil
}

// PurgeExpiredRevocations удаляет записи журнала о токенах, истёкших раньше now-retention.
// retention не меньше leeway: пока токен принимается парсером, его запись остаётся.
func (s *Service) PurgeExpiredRevocations(ctx context.Context, retention time.Duration) (int64, error) {
	const op = "service.auth.PurgeExpiredRevocations"

	if retention < s.cfg.Auth.Leeway {
		retention = s.cfg.Auth.Leeway
	}

	n, err := s.storage.DeleteExpiredRevocations(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// revoke пишет jti в журнал и, после фиксации, в кэш.
func (s *Service) revoke(ctx context.Context, claims *models.Claims) (bool, error) {
	const op = "service.auth.revoke"

	lg := log.From(ctx)

	entry := &models.RevocationEntry{
		TokenID:   claims.TokenID,
		UserID:    claims.UserID,
		RevokedAt: s.now(),
		ExpiresAt: claims.ExpiresAt,
	}

	inserted, err := s.storage.RevokeToken(ctx, entry)
	if err != nil {
		lg.Error("revoke_token_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if s.rcache != nil {
		if err := s.rcache.MarkRevoked(ctx, entry); err != nil {
			lg.Warn("revocation_cache_set_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	return inserted, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func (s *Service) hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	cost := s.cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// burnPasswordCheck выполняет сравнение с фиктивным хэшем той же стоимости,
// чтобы время ответа не выдавало отсутствие пользователя.
func (s *Service) burnPasswordCheck(password string) {
	if s.dummyHash != "" {
		_ = checkPassword(s.dummyHash, password)
	}
}
