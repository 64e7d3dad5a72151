package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/pkg/log"
)

// RejectReason — причина отклонения токена.
type RejectReason string

const (
	ReasonMalformed             RejectReason = "malformed"
	ReasonExpired               RejectReason = "expired"
	ReasonWrongKind             RejectReason = "wrong-kind"
	ReasonRevoked               RejectReason = "revoked"
	ReasonUnverifiableSignature RejectReason = "unverifiable-signature"
)

// TokenError — отказ в проверке токена.
// errors.Is(err, ErrUnauthorized) истинно для любой причины.
type TokenError struct {
	Reason RejectReason
}

func (e *TokenError) Error() string { return "token rejected: " + string(e.Reason) }

func (e *TokenError) Is(target error) bool { return target == ErrUnauthorized }

func reject(reason RejectReason) error { return &TokenError{Reason: reason} }

type tokenClaims struct {
	Kind models.TokenKind `json:"token_type"`
	jwt.RegisteredClaims
}

// Issue выпускает новую пару access+refresh для пользователя. Ничего не сохраняет.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID) (*models.TokenPair, error) {
	const op = "service.token.Issue"

	now := s.now()

	access, accessExp, err := s.signToken(ctx, userID, models.TokenKindAccess, now, s.cfg.Auth.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := s.signToken(ctx, userID, models.TokenKindRefresh, now, s.cfg.Auth.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// signToken подписывает один токен заданного вида. jti уникален для каждого токена.
func (s *Service) signToken(ctx context.Context, userID uuid.UUID, kind models.TokenKind, now time.Time, ttl time.Duration) (string, time.Time, error) {
	const op = "service.token.signToken"

	lg := log.From(ctx)

	if s.cfg.Auth.JWTSecret == "" {
		lg.Error("token_sign_no_secret",
			slog.String("op", op),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrSigningKey)
	}

	exp := now.Add(ttl)
	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    s.cfg.Auth.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Auth.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		lg.Error("token_sign_failed",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// Validate проверяет подпись, срок, iss/aud и вид токена.
// Для refresh-токена дополнительно проверяется журнал отзыва: запись в нём
// отклоняет токен с причиной revoked независимо от срока.
// Сбои журнала не являются отказом и возвращаются как внутренние ошибки.
func (s *Service) Validate(ctx context.Context, token string, kind models.TokenKind) (*models.Claims, error) {
	const op = "service.token.Validate"

	tc, err := s.parse(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if tc.Kind != kind {
		return nil, fmt.Errorf("%s: %w", op, reject(ReasonWrongKind))
	}

	claims, err := claimsFrom(tc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if kind == models.TokenKindRefresh {
		revoked, err := s.isRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if revoked {
			return nil, fmt.Errorf("%s: %w", op, reject(ReasonRevoked))
		}
	}

	return claims, nil
}

// parse разбирает и проверяет JWT. extra добавляет опции парсера
// (например, jwt.WithoutClaimsValidation для выхода по истёкшему токену).
func (s *Service) parse(token string, extra ...jwt.ParserOption) (*tokenClaims, error) {
	if s.cfg.Auth.JWTSecret == "" {
		return nil, ErrSigningKey
	}

	if token == "" {
		return nil, reject(ReasonMalformed)
	}

	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.cfg.Auth.Leeway),
		jwt.WithIssuer(s.cfg.Auth.Issuer),
		jwt.WithAudience(s.cfg.Auth.Audience),
		jwt.WithExpirationRequired(),
	}, extra...)

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Auth.JWTSecret), nil
	}, opts...)
	if err != nil {
		return nil, reject(rejectReason(err))
	}

	return &tc, nil
}

// checkIssuerAudience сверяет iss/aud токена с конфигом так же, как парсер.
func (s *Service) checkIssuerAudience(tc *tokenClaims) error {
	if iss := s.cfg.Auth.Issuer; iss != "" && tc.Issuer != iss {
		return reject(ReasonMalformed)
	}

	if aud := s.cfg.Auth.Audience; aud != "" && !slices.Contains(tc.Audience, aud) {
		return reject(ReasonMalformed)
	}

	return nil
}

// rejectReason сводит ошибки jwt к причинам отказа.
func rejectReason(err error) RejectReason {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonUnverifiableSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	default:
		return ReasonMalformed
	}
}

func claimsFrom(tc *tokenClaims) (*models.Claims, error) {
	uid, err := uuid.Parse(tc.Subject)
	if err != nil {
		return nil, reject(ReasonMalformed)
	}

	jti, err := uuid.Parse(tc.ID)
	if err != nil {
		return nil, reject(ReasonMalformed)
	}

	c := &models.Claims{UserID: uid, TokenID: jti, Kind: tc.Kind}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.UTC()
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.UTC()
	}

	return c, nil
}

// isRevoked сначала смотрит в кэш (только положительные ответы), затем в журнал.
func (s *Service) isRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	const op = "service.token.isRevoked"

	if s.rcache != nil {
		hit, err := s.rcache.IsRevoked(ctx, tokenID)
		if err != nil {
			log.From(ctx).Warn("revocation_cache_get_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if hit {
			return true, nil
		}
	}

	revoked, err := s.storage.IsTokenRevoked(ctx, tokenID)
	if err != nil {
		log.From(ctx).Error("revocation_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return revoked, nil
}
