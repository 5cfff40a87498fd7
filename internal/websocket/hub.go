package websocket

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Hub tracks live connections per user and fans state-change events out to
// them.
type Hub struct {
	// Registered clients by user ID
	clients map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex

	// Called when a user's first connection opens or last connection closes
	onPresenceChange func(userID string, online bool)
}

// Message is one frame sent to a client.
type Message struct {
	UserID  string                 `json:"user_id,omitempty"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// SetPresenceCallback must be called before Run.
func (h *Hub) SetPresenceCallback(cb func(userID string, online bool)) {
	h.onPresenceChange = cb
}

// GetOnlineUserIDs returns every user with at least one open connection.
func (h *Hub) GetOnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for uid := range h.clients {
		ids = append(ids, uid)
	}
	return ids
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			return

		case client := <-h.register:
			h.mu.Lock()
			isNew := len(h.clients[client.UserID]) == 0
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			count := len(h.clients[client.UserID])
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{"user_id": client.UserID, "connections": count}).Debug("Client registered")

			if isNew {
				h.presenceChanged(client.UserID, true)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			wasLast := false
			if clients, ok := h.clients[client.UserID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.UserID)
						wasLast = true
					}
				}
			}
			h.mu.Unlock()
			logrus.WithField("user_id", client.UserID).Debug("Client unregistered")

			if wasLast {
				h.presenceChanged(client.UserID, false)
			}

		case message := <-h.broadcast:
			var offline []string
			h.mu.Lock()
			if message.UserID != "" {
				if h.deliver(message.UserID, h.clients[message.UserID], message) {
					offline = append(offline, message.UserID)
				}
			} else {
				for userID, clients := range h.clients {
					if h.deliver(userID, clients, message) {
						offline = append(offline, userID)
					}
				}
			}
			h.mu.Unlock()

			for _, userID := range offline {
				logrus.WithField("user_id", userID).Debug("Slow client dropped")
				h.presenceChanged(userID, false)
			}
		}
	}
}

// deliver must be called with h.mu held. Slow clients are disconnected. It
// reports whether that left userID with no connections.
func (h *Hub) deliver(userID string, clients map[*Client]bool, message *Message) bool {
	if len(clients) == 0 {
		return false
	}
	for client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, userID)
		return true
	}
	return false
}

// join hands c to Run. It reports false once the hub is stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

// leave hands c back to Run, or returns at once if the hub is stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// Stop ends Run. Later joins fail and leaves return immediately.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// BroadcastToUser queues an event for every connection of userID. The
// payload's "type" field becomes the frame type.
func (h *Hub) BroadcastToUser(userID string, payload map[string]interface{}) {
	msgType, _ := payload["type"].(string)
	if msgType == "" {
		msgType = "event"
	}
	h.enqueue(&Message{UserID: userID, Type: msgType, Payload: payload})
}

// BroadcastToAll queues a frame for every connected client.
func (h *Hub) BroadcastToAll(payload map[string]interface{}) {
	h.enqueue(&Message{Type: "broadcast", Payload: payload})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		logrus.WithField("user_id", message.UserID).Warn("Broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of open connections for userID.
func (h *Hub) GetClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) presenceChanged(userID string, online bool) {
	h.BroadcastToAll(map[string]interface{}{
		"type":    "user_presence",
		"user_id": userID,
		"online":  online,
	})
	if h.onPresenceChange != nil {
		h.onPresenceChange(userID, online)
	}
}
