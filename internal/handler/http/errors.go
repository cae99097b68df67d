package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/service"
)

// HandleServiceError maps service-layer business errors to HTTP responses.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrFileNotFound),
		errors.Is(err, service.ErrInvalidInviteCode):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		ErrorResponse(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrFileTypeNotAllowed):
		ErrorResponse(c, http.StatusUnsupportedMediaType, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
