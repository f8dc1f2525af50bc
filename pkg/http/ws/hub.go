package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Hub manages WebSocket connections and routes draft updates to their owners.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection // staff_id -> connection
	watching    map[uuid.UUID]string      // staff_id -> draft_id
	active      prometheus.Gauge
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub. active may be nil.
func NewHub(logger zerolog.Logger, active prometheus.Gauge) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		watching:    make(map[uuid.UUID]string),
		active:      active,
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// RegisterConnection adds a connection for a staff member, replacing any older one.
func (h *Hub) RegisterConnection(staffID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[staffID]; exists {
		old.Close()
	} else if h.active != nil {
		h.active.Inc()
	}

	h.connections[staffID] = conn
	h.logger.Info().Str("staff_id", staffID.String()).Msg("connection registered")
}

// UnregisterConnection removes the connection if it is still the registered one.
func (h *Hub) UnregisterConnection(staffID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, exists := h.connections[staffID]
	if !exists || (conn != nil && current != conn) {
		return
	}
	current.Close()
	delete(h.connections, staffID)
	delete(h.watching, staffID)
	if h.active != nil {
		h.active.Dec()
	}
	h.logger.Info().Str("staff_id", staffID.String()).Msg("connection unregistered")
}

// Watch narrows pushes for staffID to a single draft. An empty draftID clears it.
func (h *Hub) Watch(staffID uuid.UUID, draftID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if draftID == "" {
		delete(h.watching, staffID)
		return
	}
	h.watching[staffID] = draftID
}

// NotifyDraft delivers msg to the owner's connection unless it watches another draft.
// A missing connection is not an error.
func (h *Hub) NotifyDraft(staffID uuid.UUID, draftID string, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[staffID]
	watched := h.watching[staffID]
	h.mu.RUnlock()

	if !exists || (watched != "" && watched != draftID) {
		return nil
	}
	return conn.Send(msg)
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 64),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// WritePump sends messages from the send queue and keeps the peer alive with pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump receives messages and calls the handler.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
