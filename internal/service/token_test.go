package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/mocks"
)

func requireReason(t *testing.T, err error, want RejectReason) {
	t.Helper()

	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnauthorized)

	var te *TokenError
	require.True(t, errors.As(err, &te), "expected *TokenError, got %v", err)
	require.Equal(t, want, te.Reason)
}

func TestIssue_ValidateRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	ctx := context.Background()
	uid := uuid.New()

	pair, err := svc.Issue(ctx, uid)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.True(t, pair.AccessExpiresAt.Before(pair.RefreshExpiresAt))

	ac, err := svc.Validate(ctx, pair.AccessToken, models.TokenKindAccess)
	require.NoError(t, err)
	require.Equal(t, uid, ac.UserID)
	require.Equal(t, models.TokenKindAccess, ac.Kind)

	rc, err := svc.Validate(ctx, pair.RefreshToken, models.TokenKindRefresh)
	require.NoError(t, err)
	require.Equal(t, uid, rc.UserID)
	require.NotEqual(t, ac.TokenID, rc.TokenID)
	require.WithinDuration(t, time.Now().Add(testCfg().Auth.RefreshTokenTTL), rc.ExpiresAt, 2*time.Second)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	uid := uuid.New()

	a, err := svc.Issue(context.Background(), uid)
	require.NoError(t, err)
	b, err := svc.Issue(context.Background(), uid)
	require.NoError(t, err)

	require.NotEqual(t, a.RefreshToken, b.RefreshToken)
	require.NotEqual(t, a.AccessToken, b.AccessToken)
}

func TestIssue_EmptySecret_Internal(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.Auth.JWTSecret = ""
	svc := New(nil, cfg)

	_, err := svc.Issue(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrSigningKey)
	require.NotErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Validate(context.Background(), "x.y.z", models.TokenKindAccess)
	require.ErrorIs(t, err, ErrSigningKey)
}

func TestValidate_WrongKind(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	pair, err := svc.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), pair.AccessToken, models.TokenKindRefresh)
	requireReason(t, err, ReasonWrongKind)

	_, err = svc.Validate(context.Background(), pair.RefreshToken, models.TokenKindAccess)
	requireReason(t, err, ReasonWrongKind)
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	for _, tok := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30"} {
		_, err := svc.Validate(context.Background(), tok, models.TokenKindAccess)
		requireReason(t, err, ReasonMalformed)
	}
}

func TestValidate_ForeignSecret_UnverifiableSignature(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	otherCfg := testCfg()
	otherCfg.Auth.JWTSecret = "someone-else"
	other := New(nil, otherCfg)

	pair, err := other.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), pair.AccessToken, models.TokenKindAccess)
	requireReason(t, err, ReasonUnverifiableSignature)
}

func TestValidate_OtherAlgorithm_UnverifiableSignature(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	cfg := testCfg()

	claims := tokenClaims{
		Kind: models.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uuid.NewString(),
			Issuer:    cfg.Auth.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Auth.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), signed, models.TokenKindAccess)
	requireReason(t, err, ReasonUnverifiableSignature)
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	svc.now = func() time.Time { return time.Now().UTC().Add(-3 * time.Hour) }

	pair, err := svc.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), pair.AccessToken, models.TokenKindAccess)
	requireReason(t, err, ReasonExpired)

	_, err = svc.Validate(context.Background(), pair.RefreshToken, models.TokenKindRefresh)
	requireReason(t, err, ReasonExpired)
}

func TestValidate_WrongAudience_Rejected(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	cfg := testCfg()
	cfg.Auth.Audience = "another-api"
	other := New(nil, cfg)

	pair, err := other.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), pair.AccessToken, models.TokenKindAccess)
	requireReason(t, err, ReasonMalformed)
}

func TestValidate_RevokedRefresh(t *testing.T) {
	t.Parallel()

	svc, st := newMemSvc(t)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)
	claims, err := svc.Validate(ctx, pair.RefreshToken, models.TokenKindRefresh)
	require.NoError(t, err)

	_, err = st.RevokeToken(ctx, &models.RevocationEntry{TokenID: claims.TokenID, UserID: claims.UserID, ExpiresAt: claims.ExpiresAt})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, pair.RefreshToken, models.TokenKindRefresh)
	requireReason(t, err, ReasonRevoked)

	// Access-токены не сверяются с журналом.
	_, err = svc.Validate(ctx, pair.AccessToken, models.TokenKindAccess)
	require.NoError(t, err)
}

func TestValidate_LedgerFailure_IsNotRejection(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	pair, err := svc.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	st.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	_, err = svc.Validate(context.Background(), pair.RefreshToken, models.TokenKindRefresh)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_CacheHit_SkipsStorage(t *testing.T) {
	t.Parallel()

	svc, _ := newMockSvc(t)
	rc := mocks.NewMockRevocationCache(gomock.NewController(t))
	svc.SetRevocationCache(rc)

	pair, err := svc.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	rc.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(true, nil)

	_, err = svc.Validate(context.Background(), pair.RefreshToken, models.TokenKindRefresh)
	requireReason(t, err, ReasonRevoked)
}

func TestValidate_CacheMissOrError_FallsThroughToStorage(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	rc := mocks.NewMockRevocationCache(gomock.NewController(t))
	svc.SetRevocationCache(rc)

	pair, err := svc.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	gomock.InOrder(
		rc.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(false, nil),
		st.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, nil),
		rc.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(false, errors.New("redis down")),
		st.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(true, nil),
	)

	_, err = svc.Validate(context.Background(), pair.RefreshToken, models.TokenKindRefresh)
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), pair.RefreshToken, models.TokenKindRefresh)
	requireReason(t, err, ReasonRevoked)
}

func TestRejectReason_Mapping(t *testing.T) {
	t.Parallel()

	require.Equal(t, ReasonUnverifiableSignature, rejectReason(jwt.ErrTokenSignatureInvalid))
	require.Equal(t, ReasonUnverifiableSignature, rejectReason(jwt.ErrTokenUnverifiable))
	require.Equal(t, ReasonMalformed, rejectReason(jwt.ErrTokenMalformed))
	require.Equal(t, ReasonExpired, rejectReason(jwt.ErrTokenExpired))
	require.Equal(t, ReasonMalformed, rejectReason(jwt.ErrTokenInvalidIssuer))
}
