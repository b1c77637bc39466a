package inspect

import (
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fdp-protocol/fdp-node/pkg/protocol"
)

// SessionView is the JSON form of tracked session state
type SessionView struct {
	SessionID     string `json:"sessionId"` // hex
	LastSequence  uint32 `json:"lastSequence"`
	LastTimestamp uint64 `json:"lastTimestamp"`
	UpdatedAt     int64  `json:"updatedAt"` // Unix seconds
}

// SessionsResponse lists tracked sessions
type SessionsResponse struct {
	Success  bool          `json:"success"`
	Count    int           `json:"count"`
	Sessions []SessionView `json:"sessions"`
}

// handleSessions handles GET /api/v1/sessions
func (s *Server) handleSessions(c *gin.Context) {
	if s.tracker == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Session tracking not enabled",
		})
		return
	}

	states, err := s.tracker.Sessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list sessions",
			Message: err.Error(),
		})
		return
	}

	views := make([]SessionView, 0, len(states))
	for _, state := range states {
		views = append(views, SessionView{
			SessionID:     state.SessionID.String(),
			LastSequence:  state.LastSequence,
			LastTimestamp: state.LastTimestamp,
			UpdatedAt:     state.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, SessionsResponse{
		Success:  true,
		Count:    len(views),
		Sessions: views,
	})
}

// handleSession handles GET /api/v1/sessions/:id
func (s *Server) handleSession(c *gin.Context) {
	if s.tracker == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Session tracking not enabled",
		})
		return
	}

	raw, err := hex.DecodeString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid session ID",
			Message: "Session ID must be hex-encoded",
		})
		return
	}

	sid, err := protocol.SessionIDFromBytes(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid session ID",
			Message: err.Error(),
			Code:    errorKind(err),
		})
		return
	}

	state, ok, err := s.tracker.LastSeen(sid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to look up session",
			Message: err.Error(),
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Session not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": SessionView{
			SessionID:     state.SessionID.String(),
			LastSequence:  state.LastSequence,
			LastTimestamp: state.LastTimestamp,
			UpdatedAt:     state.UpdatedAt,
		},
	})
}
