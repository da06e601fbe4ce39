package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"todoflow/delivery/rest/dto"
	"todoflow/domain/entity"
	"todoflow/todo"
)

// Message types pushed to clients
const (
	TypeSnapshot = "snapshot"
	TypeReminder = "reminder"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ClientObserver is told how many clients are connected
type ClientObserver interface {
	SetWebSocketClients(n int)
}

// Client represents a WebSocket client of one owner
type Client struct {
	ID     string
	Owner  string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
	closed bool
}

type ownerMessage struct {
	owner   string
	payload []byte
}

// Hub keeps the connected clients per owner and fans messages out to them
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan ownerMessage
	quit       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	count      int

	logger   *zap.Logger
	observer ClientObserver
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger, observer ClientObserver) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ownerMessage, 256),
		quit:       make(chan struct{}),
		logger:     logger,
		observer:   observer,
	}
}

// Run starts the hub's event loop; it returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.Owner] == nil {
				h.clients[client.Owner] = make(map[*Client]bool)
			}
			h.clients[client.Owner][client] = true
			h.count++
			total := h.count
			h.mutex.Unlock()
			h.observe(total)
			h.logger.Debug("Client registered",
				zap.String("client_id", client.ID),
				zap.String("owner", client.Owner),
				zap.Int("total", total))

		case client := <-h.unregister:
			h.mutex.Lock()
			h.remove(client)
			total := h.count
			h.mutex.Unlock()
			h.observe(total)
			h.logger.Debug("Client unregistered",
				zap.String("client_id", client.ID),
				zap.Int("total", total))

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients[msg.owner] {
				select {
				case client.Send <- msg.payload:
				default:
					h.logger.Warn("Client send buffer full, closing", zap.String("client_id", client.ID))
					h.remove(client)
				}
			}
			total := h.count
			h.mutex.Unlock()
			h.observe(total)

		case <-h.quit:
			h.mutex.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mutex.Unlock()
			h.observe(0)
			return
		}
	}
}

// Stop closes every client and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// remove must be called with the write lock held
func (h *Hub) remove(client *Client) {
	clients := h.clients[client.Owner]
	if !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.Owner)
	}
	h.count--
	if !client.closed {
		client.closed = true
		close(client.Send)
	}
}

func (h *Hub) observe(total int) {
	if h.observer != nil {
		h.observer.SetWebSocketClients(total)
	}
}

// SendToOwner queues a message for every client of owner
func (h *Hub) SendToOwner(owner, messageType string, data interface{}) {
	bytes, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		h.logger.Error("Failed to marshal message", zap.String("type", messageType), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- ownerMessage{owner: owner, payload: bytes}:
	case <-h.quit:
	default:
		h.logger.Warn("Broadcast buffer full, message dropped", zap.String("type", messageType))
	}
}

// PublishSnapshot pushes a session snapshot to its owner's clients
func (h *Hub) PublishSnapshot(s todo.Snapshot) {
	if !h.HasClients(s.Owner) {
		return
	}
	h.SendToOwner(s.Owner, TypeSnapshot, dto.NewSnapshotResponse(s))
}

// Notify pushes a due reminder to its owner's clients
func (h *Hub) Notify(_ context.Context, r entity.Reminder) error {
	h.SendToOwner(r.OwnerID, TypeReminder, r)
	return nil
}

// HasClients reports whether owner has a connected client
func (h *Hub) HasClients(owner string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[owner]) > 0
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// Upgrader is used to upgrade HTTP to WebSocket
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Serve upgrades the request for owner and sends initial as the first message
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, owner string, initial todo.Snapshot) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return err
	}

	client := &Client{
		ID:    uuid.NewString(),
		Owner: owner,
		Conn:  conn,
		Send:  make(chan []byte, sendBuffer),
		Hub:   h,
	}

	if first, err := json.Marshal(Message{Type: TypeSnapshot, Data: dto.NewSnapshotResponse(initial)}); err == nil {
		client.Send <- first
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return nil
	}

	go client.readPump()
	go client.writePump()
	return nil
}

// readPump drains the connection; clients only send control frames
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.quit:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Debug("Unexpected close", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
	}
}

// writePump writes queued messages and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Debug("Failed to write message", zap.String("client_id", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
