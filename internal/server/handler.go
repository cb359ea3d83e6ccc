package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"watchroom/internal/room"
)

// Handler serves the room admission API, layered directly on the
// coordinator.
type Handler struct {
	coord *room.Coordinator
}

func NewHandler(coord *room.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// CreateRoom mints a room and returns its identifier.
func (h *Handler) CreateRoom(c *gin.Context) {
	roomID, err := h.coord.CreateRoom(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"roomId": roomID})
}

// JoinRoom is the pre-join check a client runs before opening its
// websocket. A missing and an unknown id both read as not found; the join
// intent re-checks the registry anyway.
func (h *Handler) JoinRoom(c *gin.Context) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if !h.coord.ValidateRoom(c.Request.Context(), req.RoomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	log.Info().Str("room_id", req.RoomID).Msg("user joining room")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
