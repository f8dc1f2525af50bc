package workspace

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	httperrors "github.com/gokatarajesh/paper-builder/pkg/http/errors"
	ws "github.com/gokatarajesh/paper-builder/pkg/http/ws"
)

type tokenValidator interface {
	ValidateToken(token string) (auth.Session, error)
}

// SocketHandler serves the draft preview websocket.
type SocketHandler struct {
	hub      *ws.Hub
	auth     tokenValidator
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewSocketHandler creates the websocket endpoint handler.
func NewSocketHandler(hub *ws.Hub, authSvc tokenValidator, upgrader websocket.Upgrader, logger zerolog.Logger) *SocketHandler {
	return &SocketHandler{
		hub:      hub,
		auth:     authSvc,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "draft_ws").Logger(),
	}
}

// HandleWebSocket upgrades HTTP connection to WebSocket and authenticates the staff member.
func (h *SocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// browsers cannot set headers on websocket requests
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	session, err := h.auth.ValidateToken(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.serve(conn, session.StaffID, r.URL.Query().Get("draft"))
}

func (h *SocketHandler) serve(conn *websocket.Conn, staffID uuid.UUID, draftID string) {
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(staffID, wsConn)
	h.hub.Watch(staffID, draftID)

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(staffID, wsConn, msg)
	})

	h.hub.UnregisterConnection(staffID, wsConn)
}

func (h *SocketHandler) handleMessage(staffID uuid.UUID, conn *ws.Connection, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeWatchDraft:
		var req ws.WatchDraftPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return sendError(conn, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid watch_draft payload")
		}
		h.hub.Watch(staffID, req.DraftID)
		return nil
	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
	default:
		return sendError(conn, msg.RequestID, httperrors.ErrCodeUnknownMessageType, "Unknown message type: "+msg.Type)
	}
}

func sendError(conn *ws.Connection, requestID, code, message string) error {
	reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	reply.RequestID = requestID
	return conn.Send(reply)
}
