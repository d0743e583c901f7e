package services

import (
	"strings"
	"sync"
	"time"

	"github.com/openforce/backend/internal/domain/models"
	"github.com/openforce/backend/pkg/auth"
	apperrors "github.com/openforce/backend/pkg/errors"
)

// AuthService issues and validates stateless JWT sessions. Credentials are
// held as bcrypt hashes keyed by lowercase email; the policy store remains the
// source of truth for who the user is.
type AuthService struct {
	policies *PolicyStore

	mu        sync.RWMutex
	passwords map[string]string
}

// LoginResult carries the issued token and the resolved user
type LoginResult struct {
	Token     string
	User      *models.User
	ExpiresAt time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(policies *PolicyStore) *AuthService {
	return &AuthService{
		policies:  policies,
		passwords: make(map[string]string),
	}
}

// SetPassword stores the bcrypt hash of a user's password
func (s *AuthService) SetPassword(email, password string) error {
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return apperrors.NewValidationError("password", err.Error())
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.passwords[strings.ToLower(email)] = hash
	s.mu.Unlock()
	return nil
}

// Login verifies credentials and issues a session token. Unknown users and
// wrong passwords fail identically.
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	user, ok := s.policies.User(email)
	if !ok {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	s.mu.RLock()
	hash, ok := s.passwords[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok || !auth.VerifyPassword(password, hash) {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	token, err := auth.GenerateToken(auth.UserSession{
		ID:             user.Email,
		Name:           user.Name,
		Email:          user.Email,
		Profile:        user.Profile,
		PermissionSets: user.PermissionSets,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		User:      user,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// Authenticate resolves a bearer token to the current user. The token only
// proves identity; policy is re-read so profile changes take effect without
// re-login.
func (s *AuthService) Authenticate(token string) (*models.User, error) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}
	user, ok := s.policies.User(claims.User.Email)
	if !ok {
		return nil, apperrors.NewUnauthorizedError("user no longer exists")
	}
	return user, nil
}
