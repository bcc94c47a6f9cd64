package progress

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", WSHandler(hub))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub)

	// wait for the handler goroutine to register the connection
	require.Eventually(t, func() bool { return hub.Count() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{
		Type:    EventBatchItem,
		JobID:   "job-1",
		Current: 2,
		Total:   5,
		Title:   "Tiger I",
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, EventBatchItem, ev.Type)
	assert.Equal(t, "job-1", ev.JobID)
	assert.Equal(t, 2, ev.Current)
	assert.Equal(t, 5, ev.Total)
	assert.Equal(t, "Tiger I", ev.Title)
	assert.False(t, ev.At.IsZero(), "broadcast stamps the event time")
}

func TestHubDropsClosedConnections(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub)

	require.Eventually(t, func() bool { return hub.Count() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 },
		time.Second, 10*time.Millisecond)

	// broadcasting with nobody connected must not panic or block
	hub.Broadcast(Event{Type: EventBatchCompleted, JobID: "job-2"})
}
