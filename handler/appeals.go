package handler

import (
	"context"
	"net/http"

	"admin-service/model"
	"admin-service/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppealService interface {
	Submit(ctx context.Context, username, text string) (*model.Appeal, error)
	Pending(ctx context.Context, username string) (*model.Appeal, error)
	List(ctx context.Context, status string, page, limit int) ([]model.AppealView, service.Page, error)
	Counts(ctx context.Context) (model.AppealCounts, error)
	Review(ctx context.Context, id, status, response string, reviewer primitive.ObjectID) (*model.Appeal, error)
}

type AppealHandler struct {
	appeals AppealService
}

func NewAppealHandler(appeals AppealService) *AppealHandler {
	return &AppealHandler{appeals: appeals}
}

type submitRequest struct {
	Username   string `json:"username"`
	AppealText string `json:"appealText"`
}

// Submit handles POST /api/appeals/submit. It is public: suspended users
// cannot log in.
func (h *AppealHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username and appeal text are required")
		return
	}
	appeal, err := h.appeals.Submit(c.Request.Context(), req.Username, req.AppealText)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":        appeal.ID,
			"status":    appeal.Status,
			"createdAt": appeal.CreatedAt,
		},
	})
}

func (h *AppealHandler) Check(c *gin.Context) {
	appeal, err := h.appeals.Pending(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	if appeal == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "hasAppeal": false, "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"hasAppeal": true,
		"data":      gin.H{"id": appeal.ID, "createdAt": appeal.CreatedAt},
	})
}

func (h *AppealHandler) List(c *gin.Context) {
	appeals, page, err := h.appeals.List(c.Request.Context(), c.Query("status"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	if appeals == nil {
		appeals = []model.AppealView{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       page.Count,
		"total":       page.Total,
		"pages":       page.Pages,
		"currentPage": page.CurrentPage,
		"data":        appeals,
	})
}

func (h *AppealHandler) Count(c *gin.Context) {
	counts, err := h.appeals.Counts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": counts})
}

type reviewRequest struct {
	Status        string `json:"status"`
	AdminResponse string `json:"adminResponse"`
}

func (h *AppealHandler) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Valid status (approved or rejected) is required")
		return
	}
	appeal, err := h.appeals.Review(c.Request.Context(), c.Param("id"), req.Status, req.AdminResponse, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": appeal})
}
