package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type authAccountRepository interface {
	FindByLogin(ctx context.Context, login string) (*models.Member, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Member, error)
	UpdateRole(ctx context.Context, accountID string, role models.Role) (int64, error)
	Create(ctx context.Context, account *models.Account, profile *models.Profile) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authAccountRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. The cache is flushed
// of directory listings whenever a role changes.
func NewAuthService(repo authAccountRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{repo: repo, cache: cache, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates by username or email and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	member, err := s.repo.FindByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !member.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	issuedAt := s.now().UTC()
	token, err := s.generateAccessToken(member, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("account logged in", zap.String("account_id", member.AccountID), zap.String("role", string(member.Role)))

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Account:     accountInfo(member),
	}, nil
}

// Me reloads the caller so role changes are visible before the token expires.
func (s *AuthService) Me(ctx context.Context, accountID string) (*models.AccountInfo, error) {
	member, err := s.repo.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("account not found")
		}
		return nil, appErrors.Internal(err, "failed to load account")
	}
	info := accountInfo(member)
	return &info, nil
}

// UpdateRole reassigns the single role of an account.
func (s *AuthService) UpdateRole(ctx context.Context, accountID string, req models.UpdateRoleRequest) (*models.AccountInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return nil, appErrors.Validation(fmt.Sprintf("unknown role %q", req.Role))
	}

	affected, err := s.repo.UpdateRole(ctx, accountID, role)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update role")
	}
	if affected == 0 {
		return nil, appErrors.NotFound("account not found")
	}
	if err := s.cache.Invalidate(ctx, directoryCachePattern); err != nil {
		s.logger.Warn("failed to invalidate directory cache", zap.Error(err))
	}

	s.logger.Info("role updated", zap.String("account_id", accountID), zap.String("role", string(role)))
	return s.Me(ctx, accountID)
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if _, known := models.ParseRole(string(claims.Role)); !known {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token role")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(member *models.Member, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		AccountID: member.AccountID,
		ProfileID: member.ProfileID,
		Role:      member.Role,
		Email:     member.Email,
		FullName:  member.DisplayName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   member.AccountID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func accountInfo(m *models.Member) models.AccountInfo {
	return models.AccountInfo{
		AccountID: m.AccountID,
		ProfileID: m.ProfileID,
		Username:  m.Username,
		Email:     m.Email,
		FullName:  m.DisplayName(),
		Role:      m.Role,
	}
}

// BootstrapAccount describes the superadmin created on first boot.
type BootstrapAccount struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// EnsureSuperAdmin creates the bootstrap superadmin unless an account with
// that username already exists. It reports whether an account was created.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, boot BootstrapAccount) (bool, error) {
	if err := s.validator.Struct(boot); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bootstrap account")
	}
	existing, err := s.repo.FindByLogin(ctx, boot.Username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("lookup bootstrap account: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(boot.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash bootstrap password: %w", err)
	}
	account := &models.Account{Username: boot.Username, Email: boot.Email, PasswordHash: string(hash), Active: true}
	profile := &models.Profile{Role: models.RoleSuperAdmin}
	if err := s.repo.Create(ctx, account, profile); err != nil {
		return false, fmt.Errorf("create bootstrap account: %w", err)
	}
	s.logger.Info("bootstrap superadmin created", zap.String("account_id", account.ID), zap.String("username", account.Username))
	return true, nil
}
