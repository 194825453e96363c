package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskflow/internal/store"
	"taskflow/pkg/logger"
)

// Client merepresentasikan klien WebSocket.
type Client struct {
	Conn *websocket.Conn
	Mu   sync.Mutex
}

// Hub menyiarkan snapshot presence ke semua klien yang terhubung.
// Snapshot di-poll dari database tiap interval, bukan push per event,
// jadi klien yang baru connect paling lambat satu interval tertinggal.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client

	store    *store.Store
	interval time.Duration
}

// NewHub membuat instance Hub baru.
func NewHub(s *store.Store, interval time.Duration) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		store:      s,
		interval:   interval,
	}
}

// Run menjalankan loop Hub: register, unregister, broadcast, dan
// ticker yang mem-poll presence lalu menyiarkannya sebagai JSON.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Conn.Close()
			}
		case message := <-h.Broadcast:
			h.send(message)
		case <-ticker.C:
			if len(h.Clients) == 0 {
				continue
			}
			statuses, err := h.store.GetAllStatuses(context.Background())
			if err != nil {
				logger.ErrorLogger.Error("Error polling presence for broadcast", zap.Error(err))
				continue
			}
			payload, err := json.Marshal(statuses)
			if err != nil {
				logger.ErrorLogger.Error("Error marshaling presence snapshot", zap.Error(err))
				continue
			}
			h.send(payload)
		}
	}
}

func (h *Hub) send(message []byte) {
	for client := range h.Clients {
		client.Mu.Lock()
		err := client.Conn.WriteMessage(websocket.TextMessage, message)
		client.Mu.Unlock()
		if err != nil {
			delete(h.Clients, client)
			client.Conn.Close()
		}
	}
}

// Serve menangani satu koneksi WebSocket: daftarkan klien, lalu tahan
// dengan read loop sampai koneksi putus.
func (h *Hub) Serve(conn *websocket.Conn) {
	client := &Client{Conn: conn}
	h.Register <- client
	defer func() {
		h.Unregister <- client
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
