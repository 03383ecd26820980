package handler

import (
	"context"
	"fmt"
	"net/http"

	"admin-service/model"
	"admin-service/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StatsService interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
}

type StorageService interface {
	Report(ctx context.Context) map[string]any
}

type UserService interface {
	List(ctx context.Context, page, limit int) ([]model.UserListItem, service.Page, error)
	Get(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, id string, in model.UserUpdate) (*model.User, error)
	SetStatus(ctx context.Context, id, status, reason string, actor primitive.ObjectID) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

type PostService interface {
	List(ctx context.Context) ([]model.PostView, error)
	ListFlagged(ctx context.Context) ([]model.PostRecord, error)
	Moderate(ctx context.Context, id, action string, actor primitive.ObjectID) (*model.PostRecord, error)
}

// AdminHandler serves the dashboard and moderation endpoints.
type AdminHandler struct {
	stats   StatsService
	storage StorageService
	users   UserService
	posts   PostService
}

func NewAdminHandler(stats StatsService, storage StorageService, users UserService, posts PostService) *AdminHandler {
	return &AdminHandler{stats: stats, storage: storage, users: users, posts: posts}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *AdminHandler) CloudinaryStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.storage.Report(c.Request.Context())})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, page, err := h.users.List(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       page.Count,
		"total":       page.Total,
		"pages":       page.Pages,
		"currentPage": page.CurrentPage,
		"data":        users,
	})
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var in model.UserUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, err := h.users.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, err := h.users.SetStatus(c.Request.Context(), c.Param("id"), req.Status, req.Reason, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	verb := "suspended"
	if req.Status == model.StatusActive {
		verb = "activated"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
		"message": fmt.Sprintf("User %s successfully", verb),
	})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (h *AdminHandler) ListPosts(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(posts), "data": posts})
}

func (h *AdminHandler) ListFlaggedPosts(c *gin.Context) {
	posts, err := h.posts.ListFlagged(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(posts), "data": posts})
}

type moderateRequest struct {
	Action string `json:"action"`
}

func (h *AdminHandler) ModeratePost(c *gin.Context) {
	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	post, err := h.posts.Moderate(c.Request.Context(), c.Param("id"), req.Action, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Action == service.ActionDelete {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}, "message": "Post deleted successfully"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": post})
}
