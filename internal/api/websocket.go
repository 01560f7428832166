package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"invaders/internal/protocol"
	"invaders/internal/room"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal caps concurrent websocket connections server-wide.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps concurrent websocket connections per IP.
	MaxWSConnectionsPerIP = 10

	// maxFrameBytes bounds one inbound frame; protocol frames are tiny.
	maxFrameBytes = 4096

	// sendBufferSize is the per-connection outbound queue. A client that
	// cannot drain it is disconnected rather than allowed to stall the room.
	sendBufferSize = 64

	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket rejected from origin %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsConn adapts one gorilla connection to room.Conn. Send enqueues onto a
// buffered channel drained by a single write pump, so the room loop never
// blocks on a slow client.
type wsConn struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Send implements room.Conn. A full buffer drops the connection; the read
// pump notices the close and detaches the player.
func (c *wsConn) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- data:
		return true
	default:
		c.Close()
		return false
	}
}

// Close implements room.Conn. Safe to call more than once.
func (c *wsConn) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *wsConn) writePump() {
	defer c.conn.Close()
	for {
		select {
		case data := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// WSGateway upgrades clients and bridges them into their room's actor loop.
type WSGateway struct {
	wsLimiter *WebSocketRateLimiter
	active    chan struct{} // capacity = total connection cap
}

// NewWSGateway creates a gateway with the default connection limits.
func NewWSGateway() *WSGateway {
	return &WSGateway{
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		active:    make(chan struct{}, MaxWSConnectionsTotal),
	}
}

// upgradeError is the JSON body for a rejected upgrade request.
type upgradeError struct {
	Code    protocol.ErrorCode `json:"code"`
	Message string             `json:"message"`
}

// HandleUpgrade admits, upgrades and runs one client connection against a
// room. Rejections answer with {code, message} and the mapped HTTP status.
func (g *WSGateway) HandleUpgrade(w http.ResponseWriter, r *http.Request, rm *room.Room) {
	if rm == nil {
		RecordConnectionRejected("invalid")
		writeUpgradeError(w, http.StatusNotFound, protocol.ErrInvalidRoom, "no such room")
		return
	}
	if err := rm.AdmitUpgrade(); err != nil {
		rejectAdmission(w, err)
		return
	}

	ip := GetClientIP(r)
	select {
	case g.active <- struct{}{}:
	default:
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !g.wsLimiter.Allow(ip) {
		<-g.active
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-g.active
		g.wsLimiter.Release(ip)
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := newWSConn(conn)
	go client.writePump()

	if err := rm.Connect(client); err != nil {
		// The room filled or started between admission and registration.
		if data := protocol.Marshal(protocol.Error(admissionCode(err), err.Error())); data != nil {
			client.Send(data)
		}
		client.Close()
		<-g.active
		g.wsLimiter.Release(ip)
		return
	}
	UpdateWSConnections(len(g.active))

	go g.readPump(conn, client, rm, ip)
}

// readPump forwards inbound frames into the room until the peer goes away.
// Messages from one connection reach the room in send order.
func (g *WSGateway) readPump(conn *websocket.Conn, client *wsConn, rm *room.Room, ip string) {
	defer func() {
		rm.Disconnect(client)
		client.Close()
		<-g.active
		g.wsLimiter.Release(ip)
		UpdateWSConnections(len(g.active))
	}()

	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(readTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		IncrementWSMessages()
		rm.Message(client, data)
	}
}

func admissionCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, room.ErrNotInitialized):
		return protocol.ErrInvalidRoom
	case errors.Is(err, room.ErrGameInProgress):
		return protocol.ErrGameInProgress
	case errors.Is(err, room.ErrRoomFull):
		return protocol.ErrRoomFull
	default:
		return protocol.ErrInvalidAction
	}
}

func rejectAdmission(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrNotInitialized):
		RecordConnectionRejected("invalid")
		writeUpgradeError(w, http.StatusNotFound, protocol.ErrInvalidRoom, "room not initialized")
	case errors.Is(err, room.ErrGameInProgress):
		RecordConnectionRejected("mid_game")
		writeUpgradeError(w, http.StatusConflict, protocol.ErrGameInProgress, "game in progress")
	case errors.Is(err, room.ErrRoomFull):
		RecordConnectionRejected("room_full")
		writeUpgradeError(w, http.StatusTooManyRequests, protocol.ErrRoomFull, "room is full")
	default:
		writeUpgradeError(w, http.StatusInternalServerError, protocol.ErrInvalidAction, err.Error())
	}
}

func writeUpgradeError(w http.ResponseWriter, status int, code protocol.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(protocol.Marshal(upgradeError{Code: code, Message: message}))
}
