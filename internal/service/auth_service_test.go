package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	member      *models.Member
	findErr     error
	updated     models.Role
	updateCount int64
	created     []models.Account
}

func (m *mockAuthRepo) FindByLogin(ctx context.Context, login string) (*models.Member, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.member, nil
}

func (m *mockAuthRepo) FindByAccountID(ctx context.Context, accountID string) (*models.Member, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.member, nil
}

func (m *mockAuthRepo) UpdateRole(ctx context.Context, accountID string, role models.Role) (int64, error) {
	m.updated = role
	if m.updateCount > 0 && m.member != nil {
		m.member.Role = role
	}
	return m.updateCount, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, account *models.Account, profile *models.Profile) error {
	account.ID = "new-account"
	m.created = append(m.created, *account)
	m.member = &models.Member{AccountID: account.ID, Username: account.Username, Role: profile.Role, Active: account.Active, PasswordHash: account.PasswordHash}
	return nil
}

func newAuthMember(t *testing.T, active bool) *models.Member {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Member{
		ProfileID: "p1", AccountID: "a1", Username: "student1", Email: "s1@example.com",
		FirstName: "Meera", LastName: "Iyer", Role: models.RoleStudent, Active: active, PasswordHash: string(hash),
	}
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "campus-portal"})
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	repo := &mockAuthRepo{member: newAuthMember(t, true)}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Login: "student1", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "Meera Iyer", res.Account.FullName)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.AccountID)
	assert.Equal(t, "p1", claims.ProfileID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "campus-portal", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	t.Run("unknown login", func(t *testing.T) {
		svc := newTestAuthService(&mockAuthRepo{findErr: sql.ErrNoRows})
		_, err := svc.Login(context.Background(), models.LoginRequest{Login: "x", Password: "y"})
		assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	})
	t.Run("wrong password", func(t *testing.T) {
		svc := newTestAuthService(&mockAuthRepo{member: newAuthMember(t, true)})
		_, err := svc.Login(context.Background(), models.LoginRequest{Login: "student1", Password: "nope"})
		assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
	})
	t.Run("inactive", func(t *testing.T) {
		svc := newTestAuthService(&mockAuthRepo{member: newAuthMember(t, false)})
		_, err := svc.Login(context.Background(), models.LoginRequest{Login: "student1", Password: "password"})
		assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
	})
	t.Run("missing fields", func(t *testing.T) {
		svc := newTestAuthService(&mockAuthRepo{})
		_, err := svc.Login(context.Background(), models.LoginRequest{})
		assert.ErrorIs(t, err, appErrors.ErrValidation)
	})
	t.Run("database failure", func(t *testing.T) {
		svc := newTestAuthService(&mockAuthRepo{findErr: errors.New("boom")})
		_, err := svc.Login(context.Background(), models.LoginRequest{Login: "x", Password: "y"})
		assert.ErrorIs(t, err, appErrors.ErrInternal)
	})
}

func TestAuthServiceValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{})
	claims := &models.JWTClaims{AccountID: "a1", Role: models.RoleStudent, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidateTokenRejectsExpired(t *testing.T) {
	repo := &mockAuthRepo{member: newAuthMember(t, true)}
	svc := newTestAuthService(repo)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	res, err := svc.Login(context.Background(), models.LoginRequest{Login: "student1", Password: "password"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceUpdateRole(t *testing.T) {
	repo := &mockAuthRepo{member: newAuthMember(t, true), updateCount: 1}
	cache := newMemoryCache()
	require.NoError(t, cache.Set(context.Background(), directoryCachePrefix+"admins", []string{"x"}, time.Minute))
	svc := NewAuthService(repo, NewCacheService(cache, nil, 0, nil, true), nil, nil, AuthConfig{AccessTokenSecret: "s"})

	info, err := svc.UpdateRole(context.Background(), "a1", models.UpdateRoleRequest{Role: " Admin2 "})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, info.Role)
	assert.Empty(t, cache.entries)
}

func TestAuthServiceUpdateRoleErrors(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{updateCount: 0})

	_, err := svc.UpdateRole(context.Background(), "a1", models.UpdateRoleRequest{Role: "janitor"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.UpdateRole(context.Background(), "missing", models.UpdateRoleRequest{Role: "teacher"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEnsureSuperAdminIsIdempotent(t *testing.T) {
	repo := &mockAuthRepo{findErr: sql.ErrNoRows}
	svc := newTestAuthService(repo)
	boot := BootstrapAccount{Username: "root", Email: "root@school.test", Password: "changeme123"}

	created, err := svc.EnsureSuperAdmin(context.Background(), boot)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, repo.created, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created[0].PasswordHash), []byte("changeme123")))
	assert.Equal(t, models.RoleSuperAdmin, repo.member.Role)

	repo.findErr = nil
	created, err = svc.EnsureSuperAdmin(context.Background(), boot)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, repo.created, 1)
}

func TestEnsureSuperAdminValidates(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{})

	_, err := svc.EnsureSuperAdmin(context.Background(), BootstrapAccount{Username: "root", Email: "nope", Password: "short"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
