package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admin-service/apperr"
	"admin-service/logger"
	"admin-service/middleware"
	"admin-service/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAuth struct {
	users map[string]*model.User
	err   error
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, apperr.Unauthorized("Not authorized to access this route")
}

func newAuth() *fakeAuth {
	return &fakeAuth{users: map[string]*model.User{
		"user-token":  {ID: primitive.NewObjectID(), Username: "alice", Role: model.RoleUser},
		"admin-token": {ID: primitive.NewObjectID(), Username: "root", Role: model.RoleAdmin},
	}}
}

func protectedRouter(auth middleware.Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.Protect(auth), func(c *gin.Context) {
		u, _ := middleware.CurrentUser(c)
		c.String(http.StatusOK, u.Username)
	})
	r.GET("/admin", middleware.Protect(auth), middleware.IsAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestProtect_TokenSources(t *testing.T) {
	r := protectedRouter(newAuth())

	tests := []struct {
		name  string
		build func(*http.Request)
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "user-token"}) }},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer user-token") }},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=user-token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			tt.build(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "alice", w.Body.String())
		})
	}
}

func TestProtect_LoggedOutCookieFallsThrough(t *testing.T) {
	r := protectedRouter(newAuth())
	req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
	req.AddCookie(&http.Cookie{Name: "token", Value: "none"})
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtect_Rejects(t *testing.T) {
	r := protectedRouter(newAuth())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not authorized to access this route"}`, w.Body.String())
}

func TestProtect_InternalErrorHidesDetail(t *testing.T) {
	r := protectedRouter(&fakeAuth{err: errors.New("mongo down")})
	req := httptest.NewRequest(http.MethodGet, "/me?token=x", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "mongo")
}

func TestIsAdmin(t *testing.T) {
	r := protectedRouter(newAuth())

	req := httptest.NewRequest(http.MethodGet, "/admin?token=user-token", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Access denied: Admin privileges required")

	req = httptest.NewRequest(http.MethodGet, "/admin?token=admin-token", http.NoBody)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	done := make(chan struct{})
	defer close(done)

	r := gin.New()
	r.Use(middleware.RateLimiter(0.001, 2, time.Minute, done))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("1.2.3.4"))
	assert.Equal(t, http.StatusOK, send("1.2.3.4"))
	assert.Equal(t, http.StatusTooManyRequests, send("1.2.3.4"))
	assert.Equal(t, http.StatusOK, send("5.6.7.8"))
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.LoggerMiddleware(logger.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
	generated := w.Header().Get(middleware.RequestIDHeader)
	require.NotEmpty(t, generated)

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(middleware.RequestIDHeader))
}

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.PrometheusMiddleware("admin-service"))
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/42", http.NoBody))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
