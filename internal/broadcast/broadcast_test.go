package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHub_ReplaysHistoryThenLiveDecisions(t *testing.T) {
	hub := NewHub(5)
	go hub.Run()

	hub.Publish(Decision{Symbol: "ETHUSDT", Mode: "scalp", Triggered: false, SkipReason: "cooldown"})
	time.Sleep(10 * time.Millisecond) // let the hub loop record the history entry

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), "cooldown")

	hub.Publish(Decision{Symbol: "BTCUSDT", Mode: "swing", Triggered: true})
	_, msg2, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg2), "BTCUSDT")
}
