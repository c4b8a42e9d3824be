package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldfi/testnet-rewards/internal/db"
)

func drainBroadcast(t *testing.T, manager *WebSocketManager) map[string]interface{} {
	t.Helper()
	select {
	case data := <-manager.broadcast:
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		return payload
	case <-time.After(time.Second):
		t.Fatal("no broadcast message received")
		return nil
	}
}

func TestBroadcastPointsUpdate(t *testing.T) {
	manager := NewWebSocketManager()

	err := manager.BroadcastPointsUpdate("0xabc", 120, "bronze")
	require.NoError(t, err)

	payload := drainBroadcast(t, manager)
	assert.Equal(t, "points_update", payload["type"])
	assert.Equal(t, "0xabc", payload["wallet"])
	assert.Equal(t, float64(120), payload["total_points"])
	assert.Equal(t, "bronze", payload["tier"])
}

func TestBroadcastTierPromotion(t *testing.T) {
	manager := NewWebSocketManager()

	err := manager.BroadcastTierPromotion("0xabc", "gold", decimal.RequireFromString("2"))
	require.NoError(t, err)

	payload := drainBroadcast(t, manager)
	assert.Equal(t, "tier_promotion", payload["type"])
	assert.Equal(t, "gold", payload["tier"])
	assert.Equal(t, "2", payload["multiplier"])
}

func TestBroadcastLeaderboardUpdate(t *testing.T) {
	manager := NewWebSocketManager()

	err := manager.BroadcastLeaderboardUpdate([]db.LeaderboardEntry{
		{Rank: 1, WalletAddress: "0xaaa", TotalPoints: 500, Tier: "silver"},
	})
	require.NoError(t, err)

	payload := drainBroadcast(t, manager)
	assert.Equal(t, "leaderboard_update", payload["type"])

	entries, ok := payload["leaderboard"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "0xaaa", entry["wallet_address"])
}

func TestWebSocketDelivery(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()

	server := httptest.NewServer(http.HandlerFunc(manager.HandleWebSocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		return len(manager.clients) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, manager.BroadcastPointsUpdate("0xabc", 70, "bronze"))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &payload))
	assert.Equal(t, "points_update", payload["type"])
	assert.Equal(t, float64(70), payload["total_points"])
}
