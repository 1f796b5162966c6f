package server

import (
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/variables"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Messages queued per client before it is dropped as too slow
	sendBuffer = 32
)

// Message types on the variable stream
const (
	MessageDefinitions = "definitions"
	MessageValues      = "values"
)

// Message is one frame of the /api/ws stream
type Message struct {
	Type        string                 `json:"type"`
	Definitions []variables.Definition `json:"definitions,omitempty"`
	Values      map[string]string      `json:"values,omitempty"`
	At          time.Time              `json:"at"`
}

// Hub streams variable updates to websocket clients. It implements
// variables.Publisher; a client that connects late first receives the
// current definitions and values.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	defs    []variables.Definition
	values  map[string]string
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Local control API, no browser session to protect
				return true
			},
		},
		clients: make(map[*client]struct{}),
		values:  make(map[string]string),
	}
}

// SetDefinitions implements variables.Publisher
func (h *Hub) SetDefinitions(defs []variables.Definition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.defs = append([]variables.Definition(nil), defs...)
	h.values = make(map[string]string)
	h.broadcastLocked(Message{Type: MessageDefinitions, Definitions: h.defs})
}

// SetValues implements variables.Publisher
func (h *Hub) SetValues(values map[string]string) {
	if len(values) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	maps.Copy(h.values, values)
	h.broadcastLocked(Message{Type: MessageValues, Values: maps.Clone(values)})
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.addClient(c)
	logging.Debug("Websocket client connected", zap.String("remote_addr", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}

	if h.defs != nil {
		h.sendLocked(c, Message{Type: MessageDefinitions, Definitions: h.defs})
	}
	if len(h.values) > 0 {
		h.sendLocked(c, Message{Type: MessageValues, Values: maps.Clone(h.values)})
	}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
}

func (h *Hub) broadcastLocked(msg Message) {
	for c := range h.clients {
		h.sendLocked(c, msg)
	}
}

func (h *Hub) sendLocked(c *client, msg Message) {
	msg.At = time.Now().UTC()
	b, err := json.Marshal(msg)
	if err != nil {
		logging.Error("Failed to encode websocket message", zap.Error(err))
		return
	}
	select {
	case c.send <- b:
	default:
		logging.Warn("Dropping slow websocket client", zap.String("remote_addr", c.conn.RemoteAddr().String()))
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
}

// readPump discards client input; it exists to process pongs and notice disconnects
func (h *Hub) readPump(c *client) {
	defer h.removeClient(c)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
