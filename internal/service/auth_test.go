package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/repository"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Mock UserRepository
// =============================================================================

type mockUserRepository struct {
	findByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	findByIDFunc    func(ctx context.Context, id int64) (*models.User, error)
	createFunc      func(ctx context.Context, user *models.User) error
	updateFunc      func(ctx context.Context, user *models.User) error
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return errors.New("not implemented")
}

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func setupTestAuthService(t *testing.T) (*authService, *miniredis.Miniredis, *mockUserRepository) {
	t.Helper()

	redisClient, mr := setupTestRedis(t)
	jwtService := newTestJWTService(t, testAccessExpiry)
	mockRepo := &mockUserRepository{}

	service := NewAuthService(mockRepo, jwtService, NewRedisTokenStore(redisClient)).(*authService)
	return service, mr, mockRepo
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return string(hash)
}

func userWithPassword(t *testing.T, password string) *models.User {
	t.Helper()
	return &models.User{
		ID:           1,
		Email:        "test@example.com",
		Name:         "Test User",
		PasswordHash: hashPassword(t, password),
		Role:         models.RoleUser,
		Active:       true,
	}
}

// =============================================================================
// Login Tests
// =============================================================================

func TestLogin_Success(t *testing.T) {
	service, mr, mockRepo := setupTestAuthService(t)
	defer mr.Close()

	user := userWithPassword(t, "testpassword")
	var lookedUp string
	mockRepo.findByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		lookedUp = email
		return user, nil
	}

	result, err := service.Login(context.Background(), "  Test@Example.com ", "testpassword")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if lookedUp != "test@example.com" {
		t.Errorf("Login() looked up %q, want normalized email", lookedUp)
	}
	if result.Token == "" {
		t.Error("Login() should return access token")
	}
	if result.RefreshToken == "" {
		t.Error("Login() should return refresh token")
	}
	if result.ExpiresIn != int64(testAccessExpiry.Seconds()) {
		t.Errorf("Login() ExpiresIn = %d, want %d", result.ExpiresIn, int64(testAccessExpiry.Seconds()))
	}
	if result.User == nil || result.User.ID != 1 {
		t.Errorf("Login() User = %+v", result.User)
	}

	stored, err := mr.Get("refresh_token:1")
	if err != nil || stored != result.RefreshToken {
		t.Error("Login() should store refresh token in Redis")
	}
	if ttl := mr.TTL("refresh_token:1"); ttl != testRefreshExpiry {
		t.Errorf("refresh token TTL = %v, want %v", ttl, testRefreshExpiry)
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		findFunc func(t *testing.T) func(ctx context.Context, email string) (*models.User, error)
		password string
		wantErr  error
	}{
		{
			name: "user not found",
			findFunc: func(t *testing.T) func(ctx context.Context, email string) (*models.User, error) {
				return func(ctx context.Context, email string) (*models.User, error) {
					return nil, fmt.Errorf("failed to find user by email %s: %w", email, repository.ErrNotFound)
				}
			},
			password: "whatever",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			findFunc: func(t *testing.T) func(ctx context.Context, email string) (*models.User, error) {
				user := userWithPassword(t, "correct")
				return func(ctx context.Context, email string) (*models.User, error) { return user, nil }
			},
			password: "wrong",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "inactive user",
			findFunc: func(t *testing.T) func(ctx context.Context, email string) (*models.User, error) {
				user := userWithPassword(t, "correct")
				user.Active = false
				return func(ctx context.Context, email string) (*models.User, error) { return user, nil }
			},
			password: "correct",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mr, mockRepo := setupTestAuthService(t)
			defer mr.Close()
			mockRepo.findByEmailFunc = tt.findFunc(t)

			result, err := service.Login(context.Background(), "test@example.com", tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if result != nil {
				t.Error("Login() should return nil result on failure")
			}
			if mr.Exists("refresh_token:1") {
				t.Error("Login() should not store a refresh token on failure")
			}
		})
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	service, mr, mockRepo := setupTestAuthService(t)
	defer mr.Close()

	dbErr := errors.New("connection refused")
	mockRepo.findByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		return nil, dbErr
	}

	_, err := service.Login(context.Background(), "test@example.com", "pw")
	if !errors.Is(err, dbErr) {
		t.Errorf("Login() error = %v, want %v", err, dbErr)
	}
}

// =============================================================================
// Refresh / Logout Tests
// =============================================================================

func TestRefreshToken_Success(t *testing.T) {
	service, mr, mockRepo := setupTestAuthService(t)
	defer mr.Close()

	user := userWithPassword(t, "pw")
	mockRepo.findByEmailFunc = func(ctx context.Context, email string) (*models.User, error) { return user, nil }
	mockRepo.findByIDFunc = func(ctx context.Context, id int64) (*models.User, error) { return user, nil }

	login, err := service.Login(context.Background(), user.Email, "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	result, err := service.RefreshToken(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if result.Token == "" || result.RefreshToken == "" {
		t.Error("RefreshToken() should return new tokens")
	}

	stored, _ := mr.Get("refresh_token:1")
	if stored != result.RefreshToken {
		t.Error("RefreshToken() should store the rotated refresh token")
	}
}

func TestRefreshToken_Rejected(t *testing.T) {
	service, mr, mockRepo := setupTestAuthService(t)
	defer mr.Close()

	user := userWithPassword(t, "pw")
	mockRepo.findByIDFunc = func(ctx context.Context, id int64) (*models.User, error) { return user, nil }

	refresh, _ := service.jwtService.GenerateRefreshToken(user)
	access, _ := service.jwtService.GenerateAccessToken(user)

	tests := []struct {
		name   string
		token  string
		stored string
	}{
		{name: "garbage", token: "not-a-token", stored: refresh},
		{name: "access token used as refresh", token: access, stored: access},
		{name: "not stored", token: refresh, stored: ""},
		{name: "superseded", token: refresh, stored: "other-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr.FlushAll()
			if tt.stored != "" {
				_ = mr.Set("refresh_token:1", tt.stored)
			}
			if _, err := service.RefreshToken(context.Background(), tt.token); !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("RefreshToken() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestRefreshToken_InactiveUser(t *testing.T) {
	service, mr, mockRepo := setupTestAuthService(t)
	defer mr.Close()

	user := userWithPassword(t, "pw")
	refresh, _ := service.jwtService.GenerateRefreshToken(user)
	_ = mr.Set("refresh_token:1", refresh)

	inactive := *user
	inactive.Active = false
	mockRepo.findByIDFunc = func(ctx context.Context, id int64) (*models.User, error) { return &inactive, nil }

	if _, err := service.RefreshToken(context.Background(), refresh); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("RefreshToken() error = %v, want ErrUnauthenticated", err)
	}
}

func TestLogout(t *testing.T) {
	service, mr, _ := setupTestAuthService(t)
	defer mr.Close()

	_ = mr.Set("refresh_token:1", "token")

	if err := service.Logout(context.Background(), 1); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if mr.Exists("refresh_token:1") {
		t.Error("Logout() should remove refresh token from Redis")
	}
}

// =============================================================================
// Authenticate Tests
// =============================================================================

func TestAuthenticate_UsesStoredRole(t *testing.T) {
	service, mr, mockRepo := setupTestAuthService(t)
	defer mr.Close()

	// Token minted while the user was an Admin.
	token, _ := service.jwtService.GenerateAccessToken(&models.User{ID: 1, Email: "test@example.com", Role: models.RoleAdmin})

	mockRepo.findByIDFunc = func(ctx context.Context, id int64) (*models.User, error) {
		return &models.User{ID: 1, Email: "test@example.com", Name: "Demoted", Role: models.RoleUser, Active: true}, nil
	}

	identity, err := service.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if identity.Role != models.RoleUser {
		t.Errorf("Authenticate() role = %v, want %v", identity.Role, models.RoleUser)
	}
	if identity.UserID != 1 || identity.Name != "Demoted" {
		t.Errorf("Authenticate() identity = %+v", identity)
	}
}

func TestAuthenticate_Rejected(t *testing.T) {
	service, mr, mockRepo := setupTestAuthService(t)
	defer mr.Close()

	user := &models.User{ID: 1, Email: "test@example.com", Role: models.RoleUser, Active: true}
	access, _ := service.jwtService.GenerateAccessToken(user)
	refresh, _ := service.jwtService.GenerateRefreshToken(user)

	expiredService, _ := NewJWTService(testSecret, -time.Minute, testRefreshExpiry)
	expired, _ := expiredService.GenerateAccessToken(user)

	tests := []struct {
		name   string
		token  string
		lookup func(ctx context.Context, id int64) (*models.User, error)
	}{
		{name: "empty token", token: ""},
		{name: "expired token", token: expired},
		{name: "refresh token", token: refresh},
		{
			name:  "deleted user",
			token: access,
			lookup: func(ctx context.Context, id int64) (*models.User, error) {
				return nil, repository.ErrNotFound
			},
		},
		{
			name:  "inactive user",
			token: access,
			lookup: func(ctx context.Context, id int64) (*models.User, error) {
				return &models.User{ID: 1, Role: models.RoleUser, Active: false}, nil
			},
		},
		{
			name:  "unknown role",
			token: access,
			lookup: func(ctx context.Context, id int64) (*models.User, error) {
				return &models.User{ID: 1, Role: "Guest", Active: true}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.findByIDFunc = tt.lookup
			if mockRepo.findByIDFunc == nil {
				mockRepo.findByIDFunc = func(ctx context.Context, id int64) (*models.User, error) { return user, nil }
			}
			identity, err := service.Authenticate(context.Background(), tt.token)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("Authenticate() error = %v, want ErrUnauthenticated", err)
			}
			if identity != nil {
				t.Error("Authenticate() should not return an identity")
			}
		})
	}
}

// =============================================================================
// EnsureUser Tests
// =============================================================================

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryUserRepository()
	service := NewAuthService(repo, newTestJWTService(t, testAccessExpiry), NewMemoryTokenStore())

	created, err := service.EnsureUser(ctx, "Admin@Example.com", "s3cret-pass", "Admin", models.RoleAdmin)
	if err != nil || !created {
		t.Fatalf("EnsureUser() = %v, %v; want true, nil", created, err)
	}

	created, err = service.EnsureUser(ctx, "admin@example.com", "other", "Admin", models.RoleAdmin)
	if err != nil || created {
		t.Errorf("EnsureUser() second call = %v, %v; want false, nil", created, err)
	}

	login, err := service.Login(ctx, "admin@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.User.Role != models.RoleAdmin {
		t.Errorf("seeded role = %v, want Admin", login.User.Role)
	}

	if _, err := service.EnsureUser(ctx, "", "pw", "x", models.RoleUser); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("EnsureUser() without email error = %v, want ErrInvalidInput", err)
	}
	if _, err := service.EnsureUser(ctx, "a@b.c", "pw", "x", "Root"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("EnsureUser() with bad role error = %v, want ErrInvalidInput", err)
	}
}

// =============================================================================
// TokenStore Tests
// =============================================================================

func TestMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore().(*memoryTokenStore)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if _, err := store.Get(ctx, 1); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get() on empty store error = %v", err)
	}

	_ = store.Save(ctx, 1, "token", time.Hour)
	if got, err := store.Get(ctx, 1); err != nil || got != "token" {
		t.Errorf("Get() = %q, %v", got, err)
	}

	now = now.Add(time.Hour)
	if _, err := store.Get(ctx, 1); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrTokenNotFound", err)
	}

	_ = store.Save(ctx, 2, "other", time.Hour)
	_ = store.Delete(ctx, 2)
	if _, err := store.Get(ctx, 2); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
}

func TestRedisTokenStore_Missing(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()

	store := NewRedisTokenStore(client)
	if _, err := store.Get(context.Background(), 5); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Get() error = %v, want ErrTokenNotFound", err)
	}
}
