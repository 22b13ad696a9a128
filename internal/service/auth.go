package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// LoginResponse is returned by Login and RefreshToken.
type LoginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

// AuthService authenticates users and issues tokens.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*LoginResponse, error)
	Logout(ctx context.Context, userID int64) error
	// Authenticate verifies an access token and resolves the caller from the
	// user store, so role changes and deactivation apply immediately.
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
	CurrentUser(ctx context.Context, userID int64) (*models.User, error)
	EnsureUser(ctx context.Context, email, password, name string, role models.Role) (bool, error)
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService JWTService
	tokens     TokenStore
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo repository.UserRepository, jwtService JWTService, tokens TokenStore) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokens:     tokens,
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// NormalizeEmail lowercases and trims an email address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != TokenTypeRefresh {
		return nil, ErrUnauthenticated
	}

	storedToken, err := s.tokens.Get(ctx, claims.UserID)
	if err != nil || storedToken != refreshToken {
		return nil, ErrUnauthenticated
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) Logout(ctx context.Context, userID int64) error {
	return s.tokens.Delete(ctx, userID)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil || claims.TokenType != TokenTypeAccess {
		return nil, ErrUnauthenticated
	}

	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &models.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.activeUser(ctx, userID)
}

// EnsureUser creates the user when no account with that email exists. It
// reports whether a user was created.
func (s *authService) EnsureUser(ctx context.Context, email, password, name string, role models.Role) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return false, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if !role.Valid() {
		return false, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

func (s *authService) activeUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !user.Active || !user.Role.Valid() {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*LoginResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.tokens.Save(ctx, user.ID, refreshToken, s.jwtService.GetRefreshExpiry()); err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.GetAccessExpiry().Seconds()),
		User:         user,
	}, nil
}
