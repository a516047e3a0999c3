package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mars-rovers/game/engine"
)

func newTestClient(hub *Hub, sessionID string, buffer int) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, buffer),
	}
}

func testState(t *testing.T) *engine.MissionState {
	t.Helper()
	state, err := engine.InitMissionStateFromConfig(engine.DefaultMissionConfig())
	if err != nil {
		t.Fatalf("Failed to build state: %v", err)
	}
	return state
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels are nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session", sendBuffer)

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if got := hub.ClientCount("TEST-SESSION"); got != 1 {
		t.Errorf("Expected 1 client in session, got %d", got)
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "test-session", sendBuffer)

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Empty session should be cleaned up")
	}
	if _, ok := <-client.send; ok {
		t.Error("Client send channel should be closed")
	}

	// unregistering twice is harmless
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient(hub, "multi", sendBuffer)
	client2 := newTestClient(hub, "multi", sendBuffer)

	hub.registerClient(client1)
	hub.registerClient(client2)
	if got := hub.ClientCount("multi"); got != 2 {
		t.Fatalf("Expected 2 clients, got %d", got)
	}

	hub.unregisterClient(client1)
	if got := hub.ClientCount("multi"); got != 1 {
		t.Errorf("Expected 1 client after unregister, got %d", got)
	}
	if !hub.sessions["multi"][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "broadcast-test", sendBuffer)
	other := newTestClient(hub, "other", sendBuffer)
	hub.registerClient(client)
	hub.registerClient(other)

	state := testState(t)
	state.TotalRovers = 3
	state.LostRovers = 1

	hub.BroadcastToSession("Broadcast-Test", state)

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != EventStateUpdate {
			t.Errorf("Expected event %q, got %q", EventStateUpdate, message.Event)
		}
		if message.MissionState == nil || message.MissionState.TotalRovers != 3 || message.MissionState.LostRovers != 1 {
			t.Errorf("MissionState not correctly transmitted: %+v", message.MissionState)
		}
		if message.MissionState.Grid.Width != 5 || message.MissionState.Grid.Height != 3 {
			t.Error("Grid not correctly transmitted")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}

	select {
	case <-other.send:
		t.Error("Clients of other sessions should not receive the message")
	default:
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "event-test", sendBuffer)
	hub.registerClient(client)

	hub.BroadcastEvent("event-test", "lost", map[string]int{"x": 3, "y": 3})

	var message Message
	if err := json.Unmarshal(<-client.send, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.Event != "lost" {
		t.Errorf("Expected event 'lost', got %q", message.Event)
	}
	data, ok := message.Data.(map[string]interface{})
	if !ok || data["x"] != float64(3) {
		t.Errorf("Unexpected event data: %v", message.Data)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "slow", 1)
	hub.registerClient(client)

	hub.BroadcastEvent("slow", "one", nil)
	hub.BroadcastEvent("slow", "two", nil) // buffer full

	if got := hub.ClientCount("slow"); got != 0 {
		t.Errorf("Expected slow client to be dropped, got %d clients", got)
	}
}

func TestHubBroadcastWithoutRun(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.BroadcastEvent("nobody", "reset", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastEvent blocked without a running hub")
	}
}

func startTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := startTestServer(t, hub)
	conn := dial(t, server, "ws-test")

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := startTestServer(t, hub)
	conn := dial(t, server, "msg-test")
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 })

	state := testState(t)
	state.Saves = 2
	hub.BroadcastToSession("msg-test", state)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, messageData, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(messageData, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.SessionID != "msg-test" {
		t.Errorf("Expected sessionID 'msg-test', got %s", message.SessionID)
	}
	if message.MissionState.Saves != 2 {
		t.Errorf("Expected 2 saves, got %d", message.MissionState.Saves)
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := startTestServer(t, hub)
	conn := dial(t, server, "stop-test")
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("stop-test") == 1 })

	cancel()

	waitFor(t, func() bool { return hub.ClientCount("stop-test") == 0 })

	// the server side closes the connection
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed after hub stops")
	}
}
