package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-ecommerce-catalog/internal/config"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/models"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage"
	"github.com/pribylovaa/go-ecommerce-catalog/internal/storage/memory"
	"github.com/pribylovaa/go-ecommerce-catalog/mocks"
)

func testCfg() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "unit-secret",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
			Issuer:          "catalog-service",
			Audience:        "catalog-api",
			BcryptCost:      bcrypt.MinCost,
			PasswordMinLen:  8,
			UsernameMaxLen:  150,
		},
		Limits: config.LimitsConfig{Default: 20, Max: 100},
	}
}

func newMemSvc(t *testing.T) (*Service, *memory.Storage) {
	t.Helper()
	st := memory.New()
	return New(st, testCfg()), st
}

func newMockSvc(t *testing.T) (*Service, *mocks.MockStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	return New(st, testCfg()), st
}

func mustRegisterAndLogin(t *testing.T, svc *Service, username, password string) (*models.User, *models.TokenPair) {
	t.Helper()

	u, err := svc.Register(context.Background(), username, password, "")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), username, password)
	require.NoError(t, err)

	return u, pair
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, st := newMemSvc(t)

	u, err := svc.Register(context.Background(), "  alice ", "s3cretpass", "alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, u.ID)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "alice@example.com", u.Email)
	require.NotEqual(t, "s3cretpass", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cretpass")))

	stored, err := st.UserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, stored.ID)
}

func TestRegister_Duplicate(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	_, err := svc.Register(context.Background(), "alice", "s3cretpass", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "an0therpass", "")
	require.ErrorIs(t, err, ErrDuplicateUsername)

	// Регистр имеет значение.
	_, err = svc.Register(context.Background(), "Alice", "an0therpass", "")
	require.NoError(t, err)
}

func TestRegister_DuplicateWinsOverOtherFieldErrors(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	_, err := svc.Register(context.Background(), "alice", "P@ssw0rd1", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "123", "not-an-email")
	require.ErrorIs(t, err, ErrDuplicateUsername)
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Contains(t, ve.Fields, "username")
	require.Contains(t, ve.Fields, "password")
	require.Contains(t, ve.Fields, "email")
}

func TestRegister_InvalidUsername_SkipsLookup(t *testing.T) {
	t.Parallel()

	// Мок без ожиданий: обращение к хранилищу провалит тест.
	svc, _ := newMockSvc(t)

	_, err := svc.Register(context.Background(), "al ice!", "123", "")
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_UniqueViolationOnInsert_MapsToDuplicate(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)

	st.EXPECT().UserByUsername(gomock.Any(), "bob").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(storage.ErrAlreadyExists)

	_, err := svc.Register(context.Background(), "bob", "s3cretpass", "")
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_StorageLookupError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	st.EXPECT().UserByUsername(gomock.Any(), "bob").Return(nil, errors.New("db down"))

	_, err := svc.Register(context.Background(), "bob", "s3cretpass", "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrDuplicateUsername)
}

func TestRegister_Validation_Table(t *testing.T) {
	t.Parallel()

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name     string
		username string
		password string
		email    string
		field    string
	}{
		{name: "empty_username", username: "", password: "s3cretpass", field: "username"},
		{name: "bad_username_chars", username: "al ice!", password: "s3cretpass", field: "username"},
		{name: "empty_password", username: "alice", password: "", field: "password"},
		{name: "short_password", username: "alice", password: "abc12", field: "password"},
		{name: "numeric_password", username: "alice", password: "1234567890", field: "password"},
		{name: "password_equals_username", username: "alice12345", password: "alice12345", field: "password"},
		{name: "password_over_72_bytes", username: "alice", password: string(long), field: "password"},
		{name: "bad_email", username: "alice", password: "s3cretpass", email: "not-an-email", field: "email"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newMemSvc(t)

			_, err := svc.Register(context.Background(), tt.username, tt.password, tt.email)
			require.ErrorIs(t, err, ErrValidation)
			require.NotErrorIs(t, err, ErrDuplicateUsername)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			require.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	u, pair := mustRegisterAndLogin(t, svc, "alice", "s3cretpass")

	uid, err := svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, uid)
}

func TestLogin_UniformFailure(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	_, err := svc.Register(context.Background(), "alice", "s3cretpass", "")
	require.NoError(t, err)

	_, errWrongPass := svc.Login(context.Background(), "alice", "wrongpass1")
	_, errNoUser := svc.Login(context.Background(), "nobody", "s3cretpass")
	_, errEmpty := svc.Login(context.Background(), "", "")

	for _, err := range []error{errWrongPass, errNoUser, errEmpty} {
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestLogin_StorageError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(nil, errors.New("db down"))

	_, err := svc.Login(context.Background(), "alice", "s3cretpass")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	u, pair := mustRegisterAndLogin(t, svc, "alice", "s3cretpass")

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	uid, err := svc.Authenticate(context.Background(), next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, uid)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	requireReason(t, err, ReasonRevoked)

	_, err = svc.Refresh(context.Background(), next.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	_, pair := mustRegisterAndLogin(t, svc, "alice", "s3cretpass")

	var (
		wg     sync.WaitGroup
		ok     int32
		denied int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background(), pair.RefreshToken)
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, ErrUnauthorized):
				atomic.AddInt32(&denied, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), ok)
	require.Equal(t, int32(15), denied)
}

func TestRefresh_WithAccessToken_WrongKind(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	_, pair := mustRegisterAndLogin(t, svc, "alice", "s3cretpass")

	_, err := svc.Refresh(context.Background(), pair.AccessToken)
	requireReason(t, err, ReasonWrongKind)
}

func TestRefresh_UnknownUser_Unauthorized(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	pair, err := svc.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	st.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, nil)
	st.EXPECT().UserByID(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_CacheWrittenAfterStoreCommit(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	rc := mocks.NewMockRevocationCache(gomock.NewController(t))
	svc.SetRevocationCache(rc)

	uid := uuid.New()
	pair, err := svc.Issue(context.Background(), uid)
	require.NoError(t, err)

	gomock.InOrder(
		rc.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(false, nil),
		st.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, nil),
		st.EXPECT().UserByID(gomock.Any(), uid).Return(&models.User{ID: uid}, nil),
		st.EXPECT().RevokeToken(gomock.Any(), gomock.Any()).Return(true, nil),
		rc.EXPECT().MarkRevoked(gomock.Any(), gomock.Any()).Return(errors.New("redis down")),
	)

	// Сбой кэша не влияет на результат.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_StoreFailure_NoCacheWrite(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	rc := mocks.NewMockRevocationCache(gomock.NewController(t))
	svc.SetRevocationCache(rc)

	uid := uuid.New()
	pair, err := svc.Issue(context.Background(), uid)
	require.NoError(t, err)

	rc.EXPECT().IsRevoked(gomock.Any(), gomock.Any()).Return(false, nil)
	st.EXPECT().IsTokenRevoked(gomock.Any(), gomock.Any()).Return(false, nil)
	st.EXPECT().UserByID(gomock.Any(), uid).Return(&models.User{ID: uid}, nil)
	st.EXPECT().RevokeToken(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_RevokesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	u, pair := mustRegisterAndLogin(t, svc, "alice", "s3cretpass")

	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken, u.ID))
	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken, u.ID))

	_, err := svc.Refresh(context.Background(), pair.RefreshToken)
	requireReason(t, err, ReasonRevoked)

	// Access-токен живёт до своего истечения.
	_, err = svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
}

func TestLogout_ExpiredRefresh_StillRevocable(t *testing.T) {
	t.Parallel()

	svc, st := newMemSvc(t)
	u, err := svc.Register(context.Background(), "alice", "s3cretpass", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }
	pair, err := svc.Issue(context.Background(), u.ID)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().UTC() }

	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken, u.ID))

	claims, err := svc.parse(pair.RefreshToken, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	revoked, err := st.IsTokenRevoked(context.Background(), uuid.MustParse(claims.ID))
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestLogout_BadInput_LogoutFailed(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	u, pair := mustRegisterAndLogin(t, svc, "alice", "s3cretpass")

	otherCfg := testCfg()
	otherCfg.Auth.JWTSecret = "someone-else"
	forged, err := New(nil, otherCfg).Issue(context.Background(), u.ID)
	require.NoError(t, err)

	// Тот же секрет, но токены выпущены для другого сервиса.
	audCfg := testCfg()
	audCfg.Auth.Audience = "billing-api"
	otherAud, err := New(nil, audCfg).Issue(context.Background(), u.ID)
	require.NoError(t, err)

	issCfg := testCfg()
	issCfg.Auth.Issuer = "billing-service"
	otherIss, err := New(nil, issCfg).Issue(context.Background(), u.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		caller uuid.UUID
	}{
		{name: "missing", token: "", caller: u.ID},
		{name: "garbage", token: "not-a-token", caller: u.ID},
		{name: "access_token", token: pair.AccessToken, caller: u.ID},
		{name: "bad_signature", token: forged.RefreshToken, caller: u.ID},
		{name: "other_audience", token: otherAud.RefreshToken, caller: u.ID},
		{name: "other_issuer", token: otherIss.RefreshToken, caller: u.ID},
		{name: "foreign_token", token: pair.RefreshToken, caller: uuid.New()},
	}

	for _, tt := range tests {
		err := svc.Logout(context.Background(), tt.token, tt.caller)
		require.ErrorIs(t, err, ErrLogoutFailed, tt.name)
	}

	// Чужая попытка не отозвала токен владельца.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestLogout_StoreFailure_IsInternal(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	uid := uuid.New()
	pair, err := svc.Issue(context.Background(), uid)
	require.NoError(t, err)

	st.EXPECT().RevokeToken(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	err = svc.Logout(context.Background(), pair.RefreshToken, uid)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLogoutFailed)
}

// Сценарий: регистрация, вход, выход, повторный обмен того же refresh-токена.
func TestSessionLifecycle_AliceScenario(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "s3cretpass", "")
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "s3cretpass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken, u.ID))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// Новый вход выдаёт свежую рабочую пару.
	again, err := svc.Login(ctx, "alice", "s3cretpass")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, again.RefreshToken)
	require.NoError(t, err)
}

func TestPurgeExpiredRevocations(t *testing.T) {
	t.Parallel()

	svc, st := newMockSvc(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	st.EXPECT().DeleteExpiredRevocations(gomock.Any(), fixed.Add(-time.Hour)).Return(int64(3), nil)

	n, err := svc.PurgeExpiredRevocations(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestPurgeExpiredRevocations_RetentionNotBelowLeeway(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	cfg := testCfg()
	cfg.Auth.Leeway = time.Minute
	svc := New(st, cfg)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	st.EXPECT().DeleteExpiredRevocations(gomock.Any(), fixed.Add(-time.Minute)).Return(int64(0), nil)

	_, err := svc.PurgeExpiredRevocations(context.Background(), time.Second)
	require.NoError(t, err)
}

// Отозванный refresh-токен, ещё принимаемый в пределах leeway, не оживает после очистки журнала.
func TestLogout_RevocationSurvivesPurgeWithinLeeway(t *testing.T) {
	t.Parallel()

	st := memory.New()
	cfg := testCfg()
	cfg.Auth.Leeway = time.Minute
	svc := New(st, cfg)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "s3cretpass", "")
	require.NoError(t, err)

	// Токен истёк 3 секунды назад, но ещё в пределах leeway.
	base := time.Now().UTC()
	svc.now = func() time.Time { return base.Add(-cfg.Auth.RefreshTokenTTL - 3*time.Second) }
	pair, err := svc.Issue(ctx, u.ID)
	require.NoError(t, err)
	svc.now = func() time.Time { return base }

	require.NoError(t, svc.Logout(ctx, pair.RefreshToken, u.ID))

	n, err := svc.PurgeExpiredRevocations(ctx, time.Second)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	var te *TokenError
	require.True(t, errors.As(err, &te))
	require.Equal(t, ReasonRevoked, te.Reason)
}

func TestNew_DummyHashUsesConfiguredCost(t *testing.T) {
	t.Parallel()

	for _, cost := range []int{bcrypt.MinCost, bcrypt.MinCost + 1} {
		cfg := testCfg()
		cfg.Auth.BcryptCost = cost

		svc := New(nil, cfg)
		require.NotEmpty(t, svc.dummyHash)

		got, err := bcrypt.Cost([]byte(svc.dummyHash))
		require.NoError(t, err)
		require.Equal(t, cost, got)
	}
}
