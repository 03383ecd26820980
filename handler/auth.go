package handler

import (
	"context"
	"net/http"

	"admin-service/middleware"
	"admin-service/model"
	"admin-service/service"

	"github.com/gin-gonic/gin"
)

const logoutCookieSeconds = 10

type AuthService interface {
	Signup(ctx context.Context, in service.SignupInput) (*model.User, string, error)
	AdminSignup(ctx context.Context, in service.SignupInput) (*model.User, string, error)
	Login(ctx context.Context, in service.LoginInput) (*model.User, string, error)
	Expiration() int
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var in service.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, token, err := h.auth.Signup(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sendToken(c, http.StatusCreated, user, token)
}

// AdminSignup handles POST /api/auth/admin/signup
func (h *AuthHandler) AdminSignup(c *gin.Context) {
	var in service.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, token, err := h.auth.AdminSignup(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sendToken(c, http.StatusCreated, user, token)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Please provide username and password")
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sendToken(c, http.StatusOK, user, token)
}

// Logout replaces the session cookie with a short-lived placeholder.
func (h *AuthHandler) Logout(c *gin.Context) {
	setTokenCookie(c, "none", logoutCookieSeconds)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": currentUser(c)})
}

func (h *AuthHandler) sendToken(c *gin.Context, status int, user *model.User, token string) {
	setTokenCookie(c, token, h.auth.Expiration())
	c.JSON(status, gin.H{
		"success": true,
		"token":   token,
		"data":    user,
	})
}

// Cross-site frontends need SameSite=None, which browsers only accept on
// secure cookies.
func setTokenCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.TokenCookie, value, maxAge, "/", "", true, true)
}
