package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invaders/internal/room"
	"invaders/internal/store"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *room.Directory) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	directory := room.NewDirectory(st)
	t.Cleanup(directory.Shutdown)

	limiter := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1000,
		Burst:             1000,
		CleanupInterval:   time.Minute,
	})
	t.Cleanup(limiter.Stop)

	router := NewRouter(RouterConfig{
		Directory:      directory,
		Gateway:        NewWSGateway(),
		RateLimiter:    limiter,
		DisableLogging: true,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, directory
}

func TestCreateRoom(t *testing.T) {
	srv, directory := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/room", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		RoomCode string `json:"roomCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.RoomCode) != 6 {
		t.Fatalf("roomCode = %q", body.RoomCode)
	}
	if directory.Get(body.RoomCode) == nil {
		t.Fatal("created room not in the directory")
	}
}

func TestInitRoomFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/room/AAA111/init", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first init status = %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/room/AAA111/init", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second init status = %d, want 409", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/room/AAA111/info")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info status = %d", resp.StatusCode)
	}
	var info struct {
		RoomCode    string `json:"roomCode"`
		PlayerCount int    `json:"playerCount"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.RoomCode != "AAA111" || info.Status != "waiting" || info.PlayerCount != 0 {
		t.Fatalf("info = %+v", info)
	}
}

func TestRoomInfoUnknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/room/NOPE00/info")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRoomCodeCaseInsensitive(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/room/bbb222/init", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/room/BBB222/info")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("uppercase lookup = %d, want 200", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func createRoom(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/room", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		RoomCode string `json:"roomCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body.RoomCode
}

func wsURL(srv *httptest.Server, code string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/room/" + code + "/ws"
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("bad frame %s: %v", data, err)
	}
	return frame
}

func frameType(frame map[string]json.RawMessage) string {
	var typ string
	json.Unmarshal(frame["type"], &typ)
	return typ
}

func TestWebSocketJoinFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	code := createRoom(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, code), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "join", "name": "alice"}); err != nil {
		t.Fatal(err)
	}

	frame := readFrame(t, conn)
	if frameType(frame) != "sync" {
		t.Fatalf("first frame = %s", frame["type"])
	}
	var playerID string
	json.Unmarshal(frame["playerId"], &playerID)
	if playerID != "p_1" {
		t.Fatalf("playerId = %q, want p_1", playerID)
	}
	if _, ok := frame["config"]; !ok {
		t.Fatal("first sync carries no config")
	}

	// The joiner also receives their own player_joined event.
	frame = readFrame(t, conn)
	if frameType(frame) != "event" {
		t.Fatalf("second frame = %v", frame)
	}
}

func TestWebSocketPing(t *testing.T) {
	srv, _ := newTestServer(t)
	code := createRoom(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, code), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	frame := readFrame(t, conn)
	if frameType(frame) != "pong" {
		t.Fatalf("frame = %v", frame)
	}
	if _, ok := frame["serverTime"]; !ok {
		t.Fatal("pong carries no serverTime")
	}
}

func TestWebSocketUnknownRoomRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "NOPE00"), nil)
	if err == nil {
		t.Fatal("upgrade to an unknown room succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("resp = %+v, want 404", resp)
	}
	var body upgradeError
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil {
		t.Fatal(decodeErr)
	}
	resp.Body.Close()
	if body.Code != "invalid_room" {
		t.Fatalf("code = %q, want invalid_room", body.Code)
	}
}
