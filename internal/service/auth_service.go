package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"library-server/internal/auth"
	"library-server/internal/domain"
	"library-server/internal/repository"
)

// ErrInvalidCredentials indicates that provided login credentials are incorrect.
// Unknown email and wrong password both map here so callers cannot probe which
// accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService orchestrates signup, login and session restore.
type AuthService interface {
	Signup(ctx context.Context, fullName, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	UserFromToken(ctx context.Context, token string) (*domain.User, error)
	TokenTTL() time.Duration
}

type authService struct {
	users    repository.UserRepository
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(users repository.UserRepository, secret string, tokenTTL time.Duration) AuthService {
	return &authService{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

func (s *authService) Signup(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))

	if fullName == "" {
		return nil, domain.Validation("fullName", "is required")
	}
	if email == "" {
		return nil, domain.Validation("email", "is required")
	}
	if !strings.Contains(email, "@") {
		return nil, domain.Validation("email", "is malformed")
	}
	if password == "" {
		return nil, domain.Validation("password", "is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.IssueToken(user.ID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return sanitizeUser(user), token, nil
}

// UserFromToken resolves a session token to its user. It fails soft: a
// missing, invalid or expired token, or a user that no longer exists, yields
// (nil, nil) so the caller treats the request as anonymous. Store failures
// still surface as errors.
func (s *authService) UserFromToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := auth.VerifyToken(token, s.secret)
	if err != nil {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *authService) TokenTTL() time.Duration {
	return s.tokenTTL
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		FullName:  user.FullName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
