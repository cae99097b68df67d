package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/service"
)

// UserHandler serves the user endpoints.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	if userService == nil {
		panic("UserService cannot be nil for UserHandler")
	}
	return &UserHandler{userService: userService}
}

// GetOrCreateUserRequest is the body for POST /chat/users/get-or-create.
type GetOrCreateUserRequest struct {
	Name        string `json:"name" binding:"required"`
	AvatarColor string `json:"avatarColor"`
}

// GetOrCreateUser returns the user with the given name, creating it on
// first use.
func (h *UserHandler) GetOrCreateUser(c *gin.Context) {
	var req GetOrCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	user, err := h.userService.GetOrCreate(c.Request.Context(), req.Name, req.AvatarColor)
	if err != nil {
		logrus.WithError(err).WithField("name", req.Name).Warn("Handler.GetOrCreateUser: service call failed")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"user": user})
}

// GetUser returns one user by ID.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"user": user})
}
