package inspect

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fdp-protocol/fdp-node/pkg/protocol"
	"github.com/fdp-protocol/fdp-node/pkg/session"
)

// DecodeRequest asks the server to validate and decode a wire buffer
type DecodeRequest struct {
	Data string `json:"data" binding:"required"` // base64 wire bytes
	// Track runs the decoded packet through the session tracker so
	// replays show up in the response
	Track bool `json:"track,omitempty"`
}

// FlagsView exposes the defined flag bits by name
type FlagsView struct {
	Raw        uint8 `json:"raw"`
	Compressed bool  `json:"compressed"`
	Encrypted  bool  `json:"encrypted"`
	Fragmented bool  `json:"fragmented"`
}

// HeaderView is the JSON form of a packet header
type HeaderView struct {
	Version       uint8     `json:"version"`
	SessionID     string    `json:"sessionId"` // hex
	Intent        uint8     `json:"intent"`
	Priority      uint8     `json:"priority"`
	Flags         FlagsView `json:"flags"`
	Sequence      uint32    `json:"sequence"`
	PayloadLength uint32    `json:"payloadLength"`
	Timestamp     uint64    `json:"timestamp"`
}

// DecodeResponse is the result of a successful decode
type DecodeResponse struct {
	Success  bool       `json:"success"`
	Header   HeaderView `json:"header"`
	Payload  string     `json:"payload"` // base64
	WireSize int        `json:"wireSize"`
}

// EncodeRequest asks the server to build a wire buffer from fields
type EncodeRequest struct {
	SessionID string  `json:"sessionId" binding:"required"` // hex, 32 chars
	Intent    uint8   `json:"intent"`
	Priority  *uint8  `json:"priority,omitempty"` // defaults to Normal
	Flags     uint8   `json:"flags,omitempty"`
	Sequence  uint32  `json:"sequence"`
	Timestamp *uint64 `json:"timestamp,omitempty"` // defaults to now
	Payload   string  `json:"payload,omitempty"`   // base64
}

// EncodeResponse carries the serialized wire buffer
type EncodeResponse struct {
	Success  bool   `json:"success"`
	Data     string `json:"data"` // base64
	WireSize int    `json:"wireSize"`
}

// handleDecode handles POST /api/v1/packet/decode
func (s *Server) handleDecode(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	wire, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid base64 data",
			Message: err.Error(),
		})
		return
	}

	pkt, err := s.codec.Decode(wire)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Packet validation failed",
			Message: err.Error(),
			Code:    errorKind(err),
		})
		return
	}

	if req.Track {
		if s.tracker == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "Session tracking not enabled",
			})
			return
		}
		if err := s.tracker.Observe(pkt); err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:   "Session tracking rejected packet",
				Message: err.Error(),
				Code:    errorKind(err),
			})
			return
		}
	}

	c.JSON(http.StatusOK, DecodeResponse{
		Success:  true,
		Header:   headerView(pkt.Header),
		Payload:  base64.StdEncoding.EncodeToString(pkt.Payload),
		WireSize: pkt.WireSize(),
	})
}

// handleEncode handles POST /api/v1/packet/encode
func (s *Server) handleEncode(c *gin.Context) {
	var req EncodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	sidBytes, err := hex.DecodeString(req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid session ID",
			Message: "Session ID must be hex-encoded",
		})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid base64 payload",
			Message: err.Error(),
		})
		return
	}

	priority := protocol.PriorityNormal
	if req.Priority != nil {
		priority = *req.Priority
	}
	timestamp := protocol.NowUnixMilli()
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	header, err := protocol.NewHeader(protocol.ProtocolVersion, sidBytes, req.Intent, priority,
		protocol.FlagSet(req.Flags), req.Sequence, uint32(len(payload)), timestamp)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid header fields",
			Message: err.Error(),
			Code:    errorKind(err),
		})
		return
	}

	wire, err := s.codec.Encode(&protocol.Packet{Header: header, Payload: payload})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Packet serialization failed",
			Message: err.Error(),
			Code:    errorKind(err),
		})
		return
	}

	c.JSON(http.StatusOK, EncodeResponse{
		Success:  true,
		Data:     base64.StdEncoding.EncodeToString(wire),
		WireSize: len(wire),
	})
}

func headerView(h *protocol.Header) HeaderView {
	return HeaderView{
		Version:   h.Version,
		SessionID: h.SessionID.String(),
		Intent:    h.Intent,
		Priority:  h.Priority,
		Flags: FlagsView{
			Raw:        h.Flags.Raw(),
			Compressed: h.Flags.Has(protocol.FlagCompressed),
			Encrypted:  h.Flags.Has(protocol.FlagEncrypted),
			Fragmented: h.Flags.Has(protocol.FlagFragmented),
		},
		Sequence:      h.Sequence,
		PayloadLength: h.PayloadLength,
		Timestamp:     h.Timestamp,
	}
}

// errorKind maps typed validation failures to stable response codes
func errorKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrTooShort):
		return "TOO_SHORT"
	case errors.Is(err, protocol.ErrMalformed):
		return "MALFORMED"
	case errors.Is(err, protocol.ErrPayloadLengthMismatch):
		return "PAYLOAD_LENGTH_MISMATCH"
	case errors.Is(err, protocol.ErrLengthMismatch):
		return "LENGTH_MISMATCH"
	case errors.Is(err, protocol.ErrVersionMismatch):
		return "VERSION_MISMATCH"
	case errors.Is(err, protocol.ErrHashMismatch):
		return "HASH_MISMATCH"
	case errors.Is(err, protocol.ErrInvalidSessionIDLength):
		return "INVALID_SESSION_ID_LENGTH"
	case errors.Is(err, protocol.ErrPayloadTooLarge):
		return "PAYLOAD_TOO_LARGE"
	case errors.Is(err, session.ErrStaleSequence):
		return "STALE_SEQUENCE"
	case errors.Is(err, session.ErrTimestampSkew):
		return "TIMESTAMP_SKEW"
	default:
		return "UNKNOWN"
	}
}
