package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xtrntr/simex/internal/models"
	"github.com/xtrntr/simex/internal/session"
)

// SliceMessage is pushed to WebSocket clients after every advance
type SliceMessage struct {
	SessionID string        `json:"session_id"`
	From      string        `json:"from,omitempty"`
	Time      string        `json:"time"`
	Wrapped   bool          `json:"wrapped"`
	Sales     []models.Sale `json:"sales"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans slice results out to connected WebSocket clients
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // The view is read-only
			},
		},
		clients: make(map[*wsClient]bool),
	}
}

func (h *Hub) add(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	return client
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.conn.Close()
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish broadcasts the result of one advance
func (h *Hub) Publish(adv session.Advance) {
	h.Broadcast(SliceMessage{
		SessionID: adv.SessionID,
		From:      adv.From,
		Time:      adv.To,
		Wrapped:   adv.Wrapped,
		Sales:     adv.Sales,
	})
}

// Broadcast sends msg to every client, dropping the ones that fail
func (h *Hub) Broadcast(msg SliceMessage) {
	if msg.Sales == nil {
		msg.Sales = []models.Sale{}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal slice message: %v", err)
		return
	}

	var failed []*wsClient
	h.mu.RLock()
	for client := range h.clients {
		if err := client.send(data); err != nil {
			log.Printf("Failed to send message: %v", err)
			failed = append(failed, client)
		}
	}
	h.mu.RUnlock()

	if len(failed) > 0 {
		h.mu.Lock()
		for _, client := range failed {
			delete(h.clients, client)
			client.conn.Close()
		}
		h.mu.Unlock()
	}
}

// ServeWS upgrades the connection and sends the current slice before
// streaming advances.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := h.Hub.add(conn)

	initial, _ := json.Marshal(SliceMessage{
		SessionID: h.Session.ID,
		Time:      h.Session.CurrentTime(),
		Sales:     h.Session.LastSales(),
	})
	if err := client.send(initial); err != nil {
		log.Printf("Failed to send initial slice: %v", err)
	}

	// Keep connection alive and handle disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.Hub.remove(client)
			return
		}
	}
}
