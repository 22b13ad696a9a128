package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type mockAuthenticator struct {
	authenticateFunc func(ctx context.Context, token string) (*models.Identity, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if m.authenticateFunc != nil {
		return m.authenticateFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func tokenAuthenticator(valid string, identity *models.Identity) *mockAuthenticator {
	return &mockAuthenticator{
		authenticateFunc: func(_ context.Context, token string) (*models.Identity, error) {
			if token != valid {
				return nil, errors.New("bad token")
			}
			return identity, nil
		},
	}
}

func newAuthRouter(authenticator Authenticator, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(authenticator, "access_token")}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, identity)
	})
	r.GET("/protected", handlers...)
	return r
}

// =============================================================================
// Auth Tests
// =============================================================================

func TestAuth(t *testing.T) {
	user := &models.Identity{UserID: 4, Email: "user@example.com", Role: models.RoleUser}
	router := newAuthRouter(tokenAuthenticator("good", user))

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{name: "bearer header", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lower case scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "cookie fallback", cookie: "good", wantStatus: http.StatusOK},
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "header wins over cookie", header: "Bearer bad", cookie: "good", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				var got models.Identity
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("failed to parse response: %v", err)
				}
				if got.UserID != user.UserID {
					t.Errorf("identity = %+v, want user %d", got, user.UserID)
				}
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       models.Role
		required   models.Role
		wantStatus int
	}{
		{name: "admin passes admin", role: models.RoleAdmin, required: models.RoleAdmin, wantStatus: http.StatusOK},
		{name: "admin passes user", role: models.RoleAdmin, required: models.RoleUser, wantStatus: http.StatusOK},
		{name: "user passes user", role: models.RoleUser, required: models.RoleUser, wantStatus: http.StatusOK},
		{name: "user blocked from admin", role: models.RoleUser, required: models.RoleAdmin, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &models.Identity{UserID: 1, Role: tt.role}
			router := newAuthRouter(tokenAuthenticator("t", identity), RequireRole(tt.required))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer t")
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RequireRole(models.RoleUser)(c)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// =============================================================================
// Request Logger Tests
// =============================================================================

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})

	t.Run("echoes incoming id", func(t *testing.T) {
		buf.Reset()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		r.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "req-123" {
			t.Errorf("response id = %q, want req-123", got)
		}
		if w.Body.String() != "req-123" {
			t.Errorf("handler saw id %q", w.Body.String())
		}

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if entry["request_id"] != "req-123" || entry["path"] != "/ok" || entry["status"] != float64(200) {
			t.Errorf("log entry = %v", entry)
		}
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		if got := w.Header().Get(RequestIDHeader); len(got) != 36 {
			t.Errorf("generated id = %q, want uuid", got)
		}
	})
}
