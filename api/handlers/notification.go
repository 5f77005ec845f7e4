package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/api"
)

// Realtime events pushed to connected users
const (
	EventReportAssigned = "report_assigned"
	EventReportStatus   = "report_status"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// NotificationHub tracks websocket connections per user id
type NotificationHub struct {
	clients map[string]map[*wsClient]struct{}
	mutex   sync.Mutex
}

// NewNotificationHub returns an empty hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{clients: make(map[string]map[*wsClient]struct{})}
}

func (h *NotificationHub) register(userID string, c *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*wsClient]struct{})
	}
	h.clients[userID][c] = struct{}{}
}

func (h *NotificationHub) unregister(userID string, c *wsClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if conns, ok := h.clients[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
	c.conn.Close()
}

// Connected reports how many connections a user has open
func (h *NotificationHub) Connected(userID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[userID])
}

// Push sends an event to every connection of a user. Users without an open
// connection miss the event.
func (h *NotificationHub) Push(userID, event string, data interface{}) {
	h.mutex.Lock()
	targets := make([]*wsClient, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mutex.Unlock()

	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}
	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			zap.S().Warnw("failed to push websocket event", "userId", userID, "event", event, "error", err)
			h.unregister(userID, c)
		}
	}
}

// HandleNotificationsWebSocket upgrades an authenticated request and keeps the
// connection registered until the client goes away
func (h *NotificationHub) HandleNotificationsWebSocket(w http.ResponseWriter, r *http.Request) {
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}

	userID := p.UserID.Hex()
	c := &wsClient{conn: conn}
	h.register(userID, c)
	zap.S().Debugw("websocket connected", "userId", userID)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.unregister(userID, c)
	zap.S().Debugw("websocket disconnected", "userId", userID)
}
