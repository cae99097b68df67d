package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiuser-chat/internal/service"
)

// RoomHandler serves the room endpoints.
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest is the body for POST /chat/rooms/create.
type CreateRoomRequest struct {
	Name      string `json:"name" binding:"required"`
	CreatedBy string `json:"createdBy" binding:"required"`
}

// CreateRoom creates a room and adds its creator as the first member.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name and createdBy are required")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"name": req.Name, "created_by": req.CreatedBy})

	room, err := h.roomService.CreateRoom(c.Request.Context(), req.Name, req.CreatedBy)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.CreateRoom: Failed to create room via service")
		HandleServiceError(c, err)
		return
	}
	logCtx.WithFields(logrus.Fields{"room_id": room.ID, "invite_code": room.InviteCode}).Info("Room created")
	SuccessResponse(c, http.StatusOK, gin.H{"room": room})
}

// JoinRoomRequest is the body for POST /chat/rooms/join.
type JoinRoomRequest struct {
	InviteCode string `json:"inviteCode" binding:"required"`
	UserID     string `json:"userId" binding:"required"`
}

// JoinRoom adds a user to the room behind an invite code. Re-joining is a
// no-op that still returns the room.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: inviteCode and userId are required")
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), req.InviteCode, req.UserID)
	if err != nil {
		logrus.WithError(err).WithField("invite_code", req.InviteCode).Warn("Handler.JoinRoom: Failed to join room via service")
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"room": room})
}

// GetRoom returns a room with its member roster.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"room": room})
}

// GetMembers returns a room's members ordered by join time.
func (h *RoomHandler) GetMembers(c *gin.Context) {
	members, err := h.roomService.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"members": members})
}
