// Package protocol defines the JSON wire format between clients and the
// server: client commands, server frames, the event envelope, and the error
// code vocabulary. Every frame is a UTF-8 JSON object discriminated by
// "type".
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"invaders/internal/game"
)

// Client message types.
const (
	TypeJoin      = "join"
	TypeReady     = "ready"
	TypeUnready   = "unready"
	TypeStartSolo = "start_solo"
	TypeForfeit   = "forfeit"
	TypeInput     = "input"
	TypeMove      = "move"
	TypeShoot     = "shoot"
	TypePing      = "ping"
)

// Server message types.
const (
	TypeSync  = "sync"
	TypeEvent = "event"
	TypePong  = "pong"
	TypeError = "error"
)

// ErrorCode is the snake_case error vocabulary surfaced to clients.
type ErrorCode string

const (
	ErrRoomFull            ErrorCode = "room_full"
	ErrGameInProgress      ErrorCode = "game_in_progress"
	ErrInvalidRoom         ErrorCode = "invalid_room"
	ErrInvalidAction       ErrorCode = "invalid_action"
	ErrInvalidMessage      ErrorCode = "invalid_message"
	ErrNameTaken           ErrorCode = "name_taken"
	ErrNotInRoom           ErrorCode = "not_in_room"
	ErrRateLimited         ErrorCode = "rate_limited"
	ErrCountdownInProgress ErrorCode = "countdown_in_progress"
)

// ClientMessage is the union of every client command. Fields outside the
// type's column are zero.
type ClientMessage struct {
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`      // join
	Held      game.InputState `json:"held,omitempty"`      // input
	Direction string          `json:"direction,omitempty"` // move: "left" | "right"
}

var errUnknownType = errors.New("unknown message type")

// ParseClientMessage decodes and validates one inbound frame.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	switch msg.Type {
	case TypeJoin:
		if msg.Name == "" {
			return nil, errors.New("join requires a name")
		}
	case TypeMove:
		if msg.Direction != "left" && msg.Direction != "right" {
			return nil, fmt.Errorf("bad move direction %q", msg.Direction)
		}
	case TypeReady, TypeUnready, TypeStartSolo, TypeForfeit, TypeInput, TypeShoot, TypePing:
	default:
		return nil, errUnknownType
	}
	return &msg, nil
}

// MoveDir maps the wire direction to a reducer delta sign.
func (m *ClientMessage) MoveDir() int {
	if m.Direction == "left" {
		return -1
	}
	return 1
}

// SyncMessage is the full-state broadcast. PlayerID and Config are set only
// on the first sync to a joining connection; clients cache both.
type SyncMessage struct {
	Type     string           `json:"type"`
	State    *game.GameState  `json:"state"`
	PlayerID string           `json:"playerId,omitempty"`
	Config   *game.GameConfig `json:"config,omitempty"`
}

// EventMessage wraps one catalog event.
type EventMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// PongMessage answers a ping with the server wall clock in ms.
type PongMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
}

// ErrorMessage surfaces a client-caused failure to its sender.
type ErrorMessage struct {
	Type    string    `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Sync builds a sync frame. Pass a playerID and config only for the first
// sync to a new connection.
func Sync(state *game.GameState, playerID string, config *game.GameConfig) SyncMessage {
	return SyncMessage{Type: TypeSync, State: state, PlayerID: playerID, Config: config}
}

// EventFrame wraps a game event for the wire.
func EventFrame(ev game.Event) EventMessage {
	return EventMessage{Type: TypeEvent, Name: ev.Name, Data: ev.Data}
}

// Pong builds a pong frame.
func Pong(serverTimeMs int64) PongMessage {
	return PongMessage{Type: TypePong, ServerTime: serverTimeMs}
}

// Error builds an error frame.
func Error(code ErrorCode, message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message}
}

// Marshal encodes any server frame, swallowing the (impossible for our
// types) marshal error into a nil slice the caller can skip.
func Marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
