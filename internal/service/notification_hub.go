package service

import (
	"classassess_backend/pkg/logger"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	hub    *NotificationHub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// readPump discards client frames; the notification stream is one-way.
// It exists to service control frames and detect the close.
func (c *wsClient) readPump() {
	defer func() {
		// During shutdown the run loop is gone; don't block on it.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Debug("websocket closed unexpectedly", zap.Error(err), zap.Uint("userId", c.userID))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// NotificationHub pushes notification events to connected students and
// lecturers. Events travel through the Redis pub/sub channel so that
// every instance delivers to its own local connections.
type NotificationHub struct {
	mu         sync.RWMutex
	clients    map[uint]map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	redis      *redis.Client
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewNotificationHub(rdb *redis.Client) *NotificationHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationHub{
		clients:    make(map[uint]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *NotificationHub) Run() {
	if h.redis != nil {
		pubsub := h.redis.Subscribe(h.ctx, notificationChannel)
		go func() {
			defer pubsub.Close()
			for msg := range pubsub.Channel() {
				var ev notificationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Log.Error("notification event decode failed", zap.Error(err))
					continue
				}
				h.deliverLocal(ev.UserID, []byte(msg.Payload))
			}
		}()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*wsClient]bool)
			}
			h.clients[client.userID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.userID]; ok {
				if conns[client] {
					delete(conns, client)
					close(client.send)
				}
				if len(conns) == 0 {
					delete(h.clients, client.userID)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop closes every live connection and ends the run loop.
func (h *NotificationHub) Stop() {
	h.cancel()

	h.mu.Lock()
	closed := 0
	for userID, conns := range h.clients {
		for client := range conns {
			close(client.send)
			closed++
		}
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	logger.Log.Info("notification hub stopped", zap.Int("closedConnections", closed))
}

func (h *NotificationHub) deliverLocal(userID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// ServeWs upgrades the request and attaches the connection to the hub.
func (h *NotificationHub) ServeWs(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("websocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &wsClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
