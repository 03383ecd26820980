// Package handler contains the gin handlers of the admin API.
package handler

import (
	"net/http"
	"strconv"

	"admin-service/apperr"
	"admin-service/middleware"
	"admin-service/model"

	"github.com/gin-gonic/gin"
)

const serverError = "Server error"

// respondError writes the {success:false,message} body for err. Internal
// errors are attached to the context for the request logger and replaced by
// a generic message.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := apperr.Message(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = serverError
	}
	c.JSON(status, gin.H{"success": false, "message": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// queryInt parses a positive integer query value, returning 0 when absent
// or malformed so the service applies its default.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func currentUser(c *gin.Context) *model.User {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return &model.User{}
	}
	return u
}
