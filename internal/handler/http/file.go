package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/service"
)

// FileHandler serves upload and file listing endpoints.
type FileHandler struct {
	uploadService *service.UploadService
}

// NewFileHandler creates a FileHandler.
func NewFileHandler(uploadService *service.UploadService) *FileHandler {
	if uploadService == nil {
		panic("UploadService cannot be nil for FileHandler")
	}
	return &FileHandler{uploadService: uploadService}
}

// Upload accepts a multipart file plus roomId/userId form fields, stores the
// file and records the companion chat message.
func (h *FileHandler) Upload(c *gin.Context) {
	roomID := c.PostForm("roomId")
	userID := c.PostForm("userId")
	if roomID == "" || userID == "" {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: roomId and userId are required")
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: file is required")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":  roomID,
		"user_id":  userID,
		"filename": header.Filename,
		"size":     header.Size,
	})

	stored, msg, err := h.uploadService.Store(c.Request.Context(), roomID, userID, header)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.Upload: Failed to store file")
		HandleServiceError(c, err)
		return
	}
	logCtx.WithField("file_id", stored.ID).Info("File uploaded")
	SuccessResponse(c, http.StatusOK, gin.H{"file": stored, "message": msg})
}

// ListRoomFiles returns the files uploaded to a room, newest first. The
// route's :id segment is the room id; the download route reuses the same
// segment for the file id, which the router requires to share one name.
func (h *FileHandler) ListRoomFiles(c *gin.Context) {
	files, err := h.uploadService.ListRoomFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"files": files})
}

// Download returns the stored metadata for one file.
func (h *FileHandler) Download(c *gin.Context) {
	file, err := h.uploadService.GetFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"file": file})
}
