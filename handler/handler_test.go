package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"admin-service/apperr"
	"admin-service/events"
	"admin-service/export"
	"admin-service/logger"
	"admin-service/middleware"
	"admin-service/model"
	"admin-service/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var adminUser = &model.User{ID: primitive.NewObjectID(), Username: "root", Role: model.RoleAdmin}

// withUser stands in for the Protect middleware.
func withUser(u *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetUser(c, u)
		c.Next()
	}
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type fakeAuthService struct {
	err error
}

func (f *fakeAuthService) Signup(_ context.Context, in service.SignupInput) (*model.User, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return &model.User{ID: primitive.NewObjectID(), Username: in.Username, Password: "hash"}, "tok", nil
}

func (f *fakeAuthService) AdminSignup(ctx context.Context, in service.SignupInput) (*model.User, string, error) {
	return f.Signup(ctx, in)
}

func (f *fakeAuthService) Login(_ context.Context, in service.LoginInput) (*model.User, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return &model.User{Username: in.Username}, "tok", nil
}

func (f *fakeAuthService) Expiration() int { return 3600 }

func TestAuthHandler_SignupSetsCookie(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{})
	r := gin.New()
	r.POST("/signup", h.Signup)

	w := do(r, http.MethodPost, "/signup", `{"username":"alice","email":"a@x.io","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "tok", body["token"])
	assert.NotContains(t, body["data"], "password")

	cookie := w.Result().Cookies()
	require.Len(t, cookie, 1)
	assert.Equal(t, middleware.TokenCookie, cookie[0].Name)
	assert.Equal(t, "tok", cookie[0].Value)
	assert.True(t, cookie[0].HttpOnly)
	assert.True(t, cookie[0].Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie[0].SameSite)
	assert.Equal(t, 3600, cookie[0].MaxAge)
}

func TestAuthHandler_LoginErrors(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{err: apperr.Unauthorized("Invalid credentials")})
	r := gin.New()
	r.POST("/login", h.Login)

	w := do(r, http.MethodPost, "/login", `{"username":"a","password":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid credentials"}`, w.Body.String())

	w = do(r, http.MethodPost, "/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_InternalErrorIsGeneric(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{err: errors.New("mongo: connection refused")})
	r := gin.New()
	r.POST("/signup", h.Signup)

	w := do(r, http.MethodPost, "/signup", `{"username":"a"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Server error"}`, w.Body.String())
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{})
	r := gin.New()
	r.GET("/logout", h.Logout)
	r.GET("/me", withUser(adminUser), h.Me)

	w := do(r, http.MethodGet, "/logout", "")
	assert.JSONEq(t, `{"success":true,"data":{}}`, w.Body.String())
	cookie := w.Result().Cookies()
	require.Len(t, cookie, 1)
	assert.Equal(t, "none", cookie[0].Value)
	assert.Equal(t, 10, cookie[0].MaxAge)

	w = do(r, http.MethodGet, "/me", "")
	assert.Equal(t, "root", decode(t, w)["data"].(map[string]any)["username"])
}

type fakeUsers struct {
	status, reason string
	actor          primitive.ObjectID
}

func (f *fakeUsers) List(_ context.Context, page, limit int) ([]model.UserListItem, service.Page, error) {
	items := []model.UserListItem{{User: model.User{Username: "alice"}, PostCount: 3}}
	return items, service.Page{Count: 1, Total: 51, Pages: 2, CurrentPage: 2}, nil
}

func (f *fakeUsers) Get(_ context.Context, id string) (*model.User, error) {
	return nil, apperr.NotFound("User not found")
}

func (f *fakeUsers) Update(_ context.Context, id string, in model.UserUpdate) (*model.User, error) {
	return &model.User{Username: *in.Username}, nil
}

func (f *fakeUsers) SetStatus(_ context.Context, id, status, reason string, actor primitive.ObjectID) (*model.User, error) {
	f.status, f.reason, f.actor = status, reason, actor
	return &model.User{Username: "alice", Status: status}, nil
}

func (f *fakeUsers) Delete(context.Context, string) error { return nil }

type fakePosts struct {
	action string
}

func (f *fakePosts) List(context.Context) ([]model.PostView, error) {
	return []model.PostView{{Text: "a"}, {Text: "b"}}, nil
}

func (f *fakePosts) ListFlagged(context.Context) ([]model.PostRecord, error) {
	return []model.PostRecord{}, nil
}

func (f *fakePosts) Moderate(_ context.Context, id, action string, _ primitive.ObjectID) (*model.PostRecord, error) {
	f.action = action
	if action == service.ActionDelete {
		return nil, nil
	}
	return &model.PostRecord{Post: model.Post{Flagged: action == service.ActionFlag}}, nil
}

type fakeStats struct{}

func (fakeStats) Dashboard(context.Context) (*model.DashboardStats, error) {
	return &model.DashboardStats{Users: model.UserStats{Total: 7}}, nil
}

type fakeStorage struct{}

func (fakeStorage) Report(context.Context) map[string]any {
	return map[string]any{"message": "Cloudinary not configured"}
}

func adminRouter(users *fakeUsers, posts *fakePosts) *gin.Engine {
	h := NewAdminHandler(fakeStats{}, fakeStorage{}, users, posts)
	r := gin.New()
	r.Use(withUser(adminUser))
	r.GET("/stats", h.Stats)
	r.GET("/cloudinary/stats", h.CloudinaryStats)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.PUT("/users/:id", h.UpdateUser)
	r.PUT("/users/:id/status", h.UpdateUserStatus)
	r.DELETE("/users/:id", h.DeleteUser)
	r.GET("/posts", h.ListPosts)
	r.GET("/posts/flagged", h.ListFlaggedPosts)
	r.PUT("/posts/:id/moderate", h.ModeratePost)
	return r
}

func TestAdminHandler_Dashboard(t *testing.T) {
	r := adminRouter(&fakeUsers{}, &fakePosts{})

	w := do(r, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, decode(t, w)["data"].(map[string]any)["users"].(map[string]any)["total"])

	w = do(r, http.MethodGet, "/cloudinary/stats", "")
	assert.JSONEq(t, `{"success":true,"data":{"message":"Cloudinary not configured"}}`, w.Body.String())
}

func TestAdminHandler_Users(t *testing.T) {
	users := &fakeUsers{}
	r := adminRouter(users, &fakePosts{})

	w := do(r, http.MethodGet, "/users?page=2&limit=50", "")
	body := decode(t, w)
	assert.EqualValues(t, 51, body["total"])
	assert.EqualValues(t, 2, body["pages"])
	assert.EqualValues(t, 2, body["currentPage"])
	assert.EqualValues(t, 3, body["data"].([]any)[0].(map[string]any)["postCount"])

	w = do(r, http.MethodGet, "/users/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/users/abc", `{"username":"bob"}`)
	assert.Equal(t, "bob", decode(t, w)["data"].(map[string]any)["username"])

	w = do(r, http.MethodPut, "/users/abc/status", `{"status":"suspended","reason":"spam"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User suspended successfully", decode(t, w)["message"])
	assert.Equal(t, "spam", users.reason)
	assert.Equal(t, adminUser.ID, users.actor)

	w = do(r, http.MethodPut, "/users/abc/status", `{"status":"active"}`)
	assert.Equal(t, "User activated successfully", decode(t, w)["message"])

	w = do(r, http.MethodDelete, "/users/abc", "")
	assert.JSONEq(t, `{"success":true,"data":{}}`, w.Body.String())
}

func TestAdminHandler_Posts(t *testing.T) {
	posts := &fakePosts{}
	r := adminRouter(&fakeUsers{}, posts)

	w := do(r, http.MethodGet, "/posts", "")
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = do(r, http.MethodGet, "/posts/flagged", "")
	assert.JSONEq(t, `{"success":true,"count":0,"data":[]}`, w.Body.String())

	w = do(r, http.MethodPut, "/posts/p1/moderate", `{"action":"flag"}`)
	assert.Equal(t, true, decode(t, w)["data"].(map[string]any)["flagged"])

	w = do(r, http.MethodPut, "/posts/p1/moderate", `{"action":"delete"}`)
	assert.Equal(t, "Post deleted successfully", decode(t, w)["message"])
	assert.Equal(t, service.ActionDelete, posts.action)
}

type fakeAppeals struct {
	pending *model.Appeal
}

func (f *fakeAppeals) Submit(_ context.Context, username, text string) (*model.Appeal, error) {
	if username == "" {
		return nil, apperr.Validation("Username and appeal text are required")
	}
	return &model.Appeal{ID: primitive.NewObjectID(), Status: model.AppealPending}, nil
}

func (f *fakeAppeals) Pending(context.Context, string) (*model.Appeal, error) {
	return f.pending, nil
}

func (f *fakeAppeals) List(context.Context, string, int, int) ([]model.AppealView, service.Page, error) {
	return nil, service.Page{CurrentPage: 1}, nil
}

func (f *fakeAppeals) Counts(context.Context) (model.AppealCounts, error) {
	return model.AppealCounts{Pending: 2, Approved: 1}, nil
}

func (f *fakeAppeals) Review(_ context.Context, id, status, response string, _ primitive.ObjectID) (*model.Appeal, error) {
	return &model.Appeal{Status: status, AdminResponse: response}, nil
}

func TestAppealHandler(t *testing.T) {
	appeals := &fakeAppeals{}
	h := NewAppealHandler(appeals)
	r := gin.New()
	r.POST("/submit", h.Submit)
	r.GET("/check/:username", h.Check)
	r.GET("/", withUser(adminUser), h.List)
	r.GET("/count", withUser(adminUser), h.Count)
	r.PUT("/:id", withUser(adminUser), h.Review)

	w := do(r, http.MethodPost, "/submit", `{"username":"bob","appealText":"sorry"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pending", decode(t, w)["data"].(map[string]any)["status"])

	w = do(r, http.MethodPost, "/submit", `{"appealText":"sorry"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/check/bob", "")
	assert.JSONEq(t, `{"success":true,"hasAppeal":false,"data":null}`, w.Body.String())

	appeals.pending = &model.Appeal{ID: primitive.NewObjectID(), CreatedAt: time.Now()}
	w = do(r, http.MethodGet, "/check/bob", "")
	assert.Equal(t, true, decode(t, w)["hasAppeal"])

	w = do(r, http.MethodGet, "/?status=pending", "")
	assert.Equal(t, []any{}, decode(t, w)["data"])

	w = do(r, http.MethodGet, "/count", "")
	assert.JSONEq(t, `{"success":true,"data":{"pending":2,"approved":1,"rejected":0}}`, w.Body.String())

	w = do(r, http.MethodPut, "/abc", `{"status":"approved","adminResponse":"ok"}`)
	assert.Equal(t, "approved", decode(t, w)["data"].(map[string]any)["status"])
}

type stubSource struct {
	posts []model.PostRecord
}

func (s stubSource) FindInRange(_ context.Context, start, end time.Time, _ *bool) ([]model.PostRecord, error) {
	var out []model.PostRecord
	for _, p := range s.posts {
		if !p.CreatedAt.Before(start) && p.CreatedAt.Before(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) ([]byte, error) { return []byte("jpeg"), nil }

type stubCompositor struct{}

func (stubCompositor) Compose(src []byte, _ *model.PostRecord) ([]byte, error) { return src, nil }

type capturePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *capturePublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *capturePublisher) Close() {}

func exportRouter(t *testing.T, staging string, pub events.Publisher) *gin.Engine {
	t.Helper()
	oid, _ := primitive.ObjectIDFromHex("65e1f0000000000000000001")
	src := stubSource{posts: []model.PostRecord{{
		Post:   model.Post{ID: oid, Image: "https://cdn.test/1.jpg", CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		Author: &model.UserSummary{Username: "John Doe!"},
	}}}
	exp := export.NewExporter(src, stubFetcher{}, stubCompositor{},
		export.Options{Concurrency: 2, StagingDir: staging, ZipLevel: 6}, logger.NewNop())
	h := NewExportHandler(exp, pub, logger.NewNop())

	r := gin.New()
	r.GET("/export/posts", h.Posts)
	r.GET("/export/memes", h.Memes)
	return r
}

func TestExportHandler_StreamsArchive(t *testing.T) {
	pub := &capturePublisher{}
	r := exportRouter(t, t.TempDir(), pub)

	w := do(r, http.MethodGet, "/export/posts?startDate=2024-03-01&endDate=2024-03-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=posts_2024-03-01_to_2024-03-01.zip", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "2024-03-01_john_doe_65e1f0000000000000000001.jpg")
	assert.Contains(t, names, "summary.json")
	assert.Equal(t, []string{events.SubjectExportDone}, pub.subjects)
}

func TestExportHandler_MemesUsesFromTo(t *testing.T) {
	r := exportRouter(t, t.TempDir(), events.NopPublisher{})

	w := do(r, http.MethodGet, "/export/memes?fromDate=2024-03-01&toDate=2024-03-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=memes_2024-03-01_to_2024-03-02.zip", w.Header().Get("Content-Disposition"))
}

func TestExportHandler_Errors(t *testing.T) {
	r := exportRouter(t, t.TempDir(), events.NopPublisher{})

	tests := []struct {
		name   string
		target string
		status int
		msg    string
	}{
		{"missing dates", "/export/posts?startDate=2024-03-01", http.StatusBadRequest, "Start date and end date are required"},
		{"missing meme dates", "/export/memes?fromDate=2024-03-01", http.StatusBadRequest, "Please provide fromDate and toDate parameters"},
		{"bad date", "/export/memes?fromDate=yesterday&toDate=2024-03-01", http.StatusBadRequest, "Invalid date format. Please use YYYY-MM-DD format."},
		{"bad flag", "/export/posts?startDate=2024-03-01&endDate=2024-03-01&flagged=maybe", http.StatusBadRequest, "Invalid flagged value. Must be 'true' or 'false'"},
		{"no posts", "/export/posts?startDate=2024-04-01&endDate=2024-04-02", http.StatusNotFound, "No posts found within the specified date range"},
		{"no memes", "/export/memes?fromDate=2024-04-01&toDate=2024-04-02", http.StatusNotFound, "No memes found in this date range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, decode(t, w)["message"])
			assert.Empty(t, w.Header().Get("Content-Disposition"))
		})
	}
}

func TestExportHandler_StagingFailureBeforeWrite(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	r := exportRouter(t, missing, events.NopPublisher{})

	w := do(r, http.MethodGet, "/export/posts?startDate=2024-03-01&endDate=2024-03-01", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Equal(t, false, decode(t, w)["success"])
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	r := gin.New()
	ok := NewHealthHandler("admin-service", fakePinger{})
	down := NewHealthHandler("admin-service", fakePinger{err: errors.New("down")})
	r.GET("/health", ok.Health)
	r.GET("/ready", ok.Ready)
	r.GET("/ready-down", down.Ready)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/ready-down", "").Code)
}
