package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/shieldfi/testnet-rewards/internal/db"
	"github.com/shieldfi/testnet-rewards/internal/errors"
	"github.com/shieldfi/testnet-rewards/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Note: Adjust this for production!
	},
}

// WebSocketManager fans points, tier and leaderboard updates out to
// connected dashboard clients.
type WebSocketManager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.Mutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (manager *WebSocketManager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client] = true
			manager.mutex.Unlock()
		case client := <-manager.unregister:
			manager.mutex.Lock()
			if _, ok := manager.clients[client]; ok {
				delete(manager.clients, client)
				client.Close()
			}
			manager.mutex.Unlock()
		case message := <-manager.broadcast:
			manager.mutex.Lock()
			for client := range manager.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					logger.Error("error broadcasting message: %v", err)
					client.Close()
					delete(manager.clients, client)
				}
			}
			manager.mutex.Unlock()
		}
	}
}

func (manager *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade connection: %v", err)
		http.Error(w, "Could not open websocket connection", http.StatusBadRequest)
		return
	}

	manager.register <- conn

	go manager.readPump(conn)
	go manager.writePump(conn)
}

func (manager *WebSocketManager) readPump(conn *websocket.Conn) {
	defer func() {
		manager.unregister <- conn
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	// clients only listen; drain until the connection drops
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("unexpected close error: %v", err)
			}
			break
		}
	}
}

func (manager *WebSocketManager) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for range ticker.C {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

// BroadcastLeaderboardUpdate pushes the current top-N standings.
func (manager *WebSocketManager) BroadcastLeaderboardUpdate(leaderboard []db.LeaderboardEntry) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":        "leaderboard_update",
		"leaderboard": leaderboard,
	})
	if err != nil {
		return &errors.WebSocketError{Operation: "marshal leaderboard update", Err: err}
	}

	manager.broadcast <- data
	return nil
}

// BroadcastPointsUpdate pushes a single wallet's new total after an award.
func (manager *WebSocketManager) BroadcastPointsUpdate(wallet string, totalPoints int64, tier string) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":         "points_update",
		"wallet":       wallet,
		"total_points": totalPoints,
		"tier":         tier,
	})
	if err != nil {
		return &errors.WebSocketError{Operation: "marshal points update", Err: err}
	}

	manager.broadcast <- data
	return nil
}

// BroadcastTierPromotion announces a wallet crossing a tier threshold.
func (manager *WebSocketManager) BroadcastTierPromotion(wallet string, tier string, multiplier decimal.Decimal) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":       "tier_promotion",
		"wallet":     wallet,
		"tier":       tier,
		"multiplier": multiplier,
	})
	if err != nil {
		return &errors.WebSocketError{Operation: "marshal tier promotion", Err: err}
	}

	manager.broadcast <- data
	return nil
}
