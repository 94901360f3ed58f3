package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MessageText       = "text"
	MessageUser       = "user_message"
	MessageEndSession = "end_session"
	MessageError      = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
)

// Hub tracks the live interview connections, one per call
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type Client struct {
	Hub            *Hub
	Conn           *websocket.Conn
	Send           chan []byte
	CallID         string
	InterviewID    string
	MessageHandler func(*Client, []byte)
	OnClose        func(*Client)
	closeOnce      sync.Once
}

type Message struct {
	Type    string `json:"type"` // text, user_message, end_session, error
	Content string `json:"content"`
	CallID  string `json:"call_id,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.CallID]; ok && old != client {
				old.closeSend()
			}
			h.clients[client.CallID] = client
			h.mu.Unlock()
			slog.Info("Client registered", "call_id", client.CallID, "interview_id", client.InterviewID)

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.CallID]; ok && current == client {
				delete(h.clients, client.CallID)
			}
			h.mu.Unlock()
			client.closeSend()
			slog.Info("Client unregistered", "call_id", client.CallID)
		}
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, callID, interviewID string) *Client {
	client := &Client{
		Hub:         h,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		CallID:      callID,
		InterviewID: interviewID,
	}

	h.register <- client
	return client
}

// Get returns the live client of a call, if connected
func (h *Hub) Get(callID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[callID]
	return c, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient builds a client with no connection, used where only Send is needed
func NewClient(callID, interviewID string) *Client {
	return &Client{
		Send:        make(chan []byte, 256),
		CallID:      callID,
		InterviewID: interviewID,
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *Client) ReadPump() {
	defer func() {
		if c.OnClose != nil {
			c.OnClose(c)
		}
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err, "call_id", c.CallID)
			}
			break
		}

		slog.Debug("Message received", "call_id", c.CallID, "size", len(messageBytes))

		// Messages of one call are handled in order
		if c.MessageHandler != nil {
			c.MessageHandler(c, messageBytes)
		}
	}
}

func (c *Client) WritePump() {
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

// SendMessage queues a message; it reports false if the client is gone or backed up
func (c *Client) SendMessage(msgType, content string) bool {
	b, err := json.Marshal(Message{Type: msgType, Content: content, CallID: c.CallID})
	if err != nil {
		slog.Error("Failed to marshal message", "error", err, "call_id", c.CallID)
		return false
	}
	return safeSend(c.Send, b)
}

// Close ends the connection after pending messages are flushed
func (c *Client) Close() {
	c.closeSend()
}

func safeSend(ch chan<- []byte, msg []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
