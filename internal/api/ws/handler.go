// Package ws hosts the WebSocket endpoint the browser extension connects
// to. It routes BRIDGE_READY announcements and GET_TABS replies into the
// bridge client and implements bridge.Transport for outgoing requests.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tabflow/backend/internal/domain/bridge"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local single-user service
	},
}

// ConnObserver tracks the extension connection gauge.
type ConnObserver interface {
	WSConnected()
	WSDisconnected()
}

// Handler manages the single extension connection. A new connection
// supersedes the previous one.
type Handler struct {
	client   *bridge.Client
	logger   *zap.Logger
	observer ConnObserver

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewHandler creates a handler feeding the given bridge client.
func NewHandler(client *bridge.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, logger: logger}
}

// WithObserver attaches a connection-gauge observer.
func (h *Handler) WithObserver(o ConnObserver) *Handler {
	h.observer = o
	return h
}

// Connected reports whether an extension connection is established.
func (h *Handler) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// HandleConnection upgrades the request and runs the read loop until the
// extension disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	prev := h.conn
	h.conn = conn
	h.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	if h.observer != nil {
		h.observer.WSConnected()
	}
	h.logger.Info("extension connected", zap.String("remote", conn.RemoteAddr().String()))

	defer func() {
		h.mu.Lock()
		if h.conn == conn {
			h.conn = nil
		}
		h.mu.Unlock()
		conn.Close()
		if h.observer != nil {
			h.observer.WSDisconnected()
		}
		h.logger.Info("extension disconnected")
	}()

	for {
		var msg bridge.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		switch {
		case msg.Type == bridge.TypeBridgeReady:
			h.client.HandleAnnounce(msg.BridgeID)
		case msg.RequestID != "":
			h.client.HandleReply(msg.RequestID, msg.Tabs)
		default:
			h.logger.Debug("ignoring unknown bridge message", zap.String("type", msg.Type))
		}
	}
}

// Send writes one message to the current extension connection. Returns
// bridge.ErrNoTransport when no connection is established.
func (h *Handler) Send(ctx context.Context, msg bridge.Message) error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return bridge.ErrNoTransport
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	return conn.WriteJSON(msg)
}
