package room

import (
	"errors"
	"log"
	"time"

	"invaders/internal/game"
	"invaders/internal/protocol"
)

// handleMessage parses, rate-limits and dispatches one inbound frame. All
// client-caused failures answer the sender; nothing a client sends can crash
// the room.
func (r *Room) handleMessage(c Conn, data []byte) {
	att, ok := r.conns[c]
	if !ok {
		return
	}

	if !r.allowMessage(att) {
		r.sendError(c, protocol.ErrRateLimited, "too many messages")
		return
	}

	msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		r.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			// A reducer or dispatch bug must not take the room down; the
			// current event's side effects are abandoned.
			log.Printf("room %s: panic handling %s: %v", r.code, msg.Type, rec)
		}
	}()

	switch msg.Type {
	case protocol.TypeJoin:
		r.handleJoin(c, att, msg.Name)
	case protocol.TypeReady:
		r.handleReady(c, att, true)
	case protocol.TypeUnready:
		r.handleReady(c, att, false)
	case protocol.TypeStartSolo:
		r.handleStartSolo(c, att)
	case protocol.TypeForfeit:
		r.enqueue(c, att, game.Action{Kind: game.ActionForfeit})
	case protocol.TypeInput:
		r.enqueue(c, att, game.Action{Kind: game.ActionInput, Held: msg.Held})
	case protocol.TypeMove:
		r.enqueue(c, att, game.Action{Kind: game.ActionMove, Dir: msg.MoveDir()})
	case protocol.TypeShoot:
		r.enqueue(c, att, game.Action{Kind: game.ActionShoot})
	case protocol.TypePing:
		if data := protocol.Marshal(protocol.Pong(r.clock().UnixMilli())); data != nil {
			c.Send(data)
		}
	}
}

// allowMessage enforces the sliding one-second window per connection: at most
// maxMessagesPerSecond accepted frames in any one-second span, not per fixed
// bucket. The offending frame is dropped; the connection is kept. Rejected
// frames are not recorded, so a flooding client recovers as soon as its
// accepted frames age out.
func (r *Room) allowMessage(att *attachment) bool {
	now := r.clock()
	cutoff := now.Add(-time.Second)
	kept := att.msgTimes[:0]
	for _, ts := range att.msgTimes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	att.msgTimes = kept
	if len(att.msgTimes) >= maxMessagesPerSecond {
		return false
	}
	att.msgTimes = append(att.msgTimes, now)
	return true
}

func (r *Room) handleJoin(c Conn, att *attachment, name string) {
	if att.playerID != "" {
		r.sendError(c, protocol.ErrInvalidAction, "already joined")
		return
	}
	switch r.state.Status {
	case game.StatusWaiting:
	case game.StatusGameOver:
		// A join after a finished game reopens the lobby.
		game.ResetToWaiting(r.state)
	case game.StatusCountdown:
		r.sendError(c, protocol.ErrCountdownInProgress, "countdown in progress")
		return
	default:
		r.sendError(c, protocol.ErrGameInProgress, "game in progress")
		return
	}

	id := r.nextPlayerID()
	player, err := game.AddPlayer(r.state, id, name)
	if err != nil {
		r.playerSeq--
		switch {
		case errors.Is(err, game.ErrNameTaken):
			r.sendError(c, protocol.ErrNameTaken, "name already in use")
		case errors.Is(err, game.ErrRoomFull):
			r.sendError(c, protocol.ErrRoomFull, "room is full")
		default:
			r.sendError(c, protocol.ErrInvalidAction, err.Error())
		}
		return
	}

	att.playerID = id
	r.stopCleanupTimer()
	log.Printf("room %s: %s joined as %s (slot %d)", r.code, name, id, player.Slot)

	r.sendFirstSync(c, id)
	r.broadcastEvent(game.Event{Name: game.EventPlayerJoined, Data: game.PlayerJoinedData{Player: player}})
	r.persist()
	r.broadcastSyncExcept(c)
}

func (r *Room) handleReady(c Conn, att *attachment, ready bool) {
	if att.playerID == "" {
		r.sendError(c, protocol.ErrNotInRoom, "join first")
		return
	}
	if ready {
		if r.state.Status != game.StatusWaiting {
			r.sendError(c, protocol.ErrInvalidAction, "cannot ready now")
			return
		}
		r.state.SetReady(att.playerID, true)
		r.broadcastEvent(game.Event{Name: game.EventPlayerReady, Data: game.PlayerIDData{PlayerID: att.playerID}})
		if r.state.PlayerCount() >= 2 && r.state.AllReady() {
			r.startCountdown()
		}
	} else {
		if r.state.Status != game.StatusWaiting && r.state.Status != game.StatusCountdown {
			r.sendError(c, protocol.ErrInvalidAction, "cannot unready now")
			return
		}
		r.state.SetReady(att.playerID, false)
		r.broadcastEvent(game.Event{Name: game.EventPlayerUnready, Data: game.PlayerIDData{PlayerID: att.playerID}})
		if r.state.Status == game.StatusCountdown {
			r.cancelCountdown("player_unready")
		}
	}
	r.persist()
	r.broadcastSync()
}

func (r *Room) handleStartSolo(c Conn, att *attachment) {
	if att.playerID == "" {
		r.sendError(c, protocol.ErrNotInRoom, "join first")
		return
	}
	if r.state.Status != game.StatusWaiting || r.state.PlayerCount() != 1 {
		r.sendError(c, protocol.ErrInvalidAction, "solo start requires a waiting room with one player")
		return
	}
	game.StartGame(r.state, r.ids, game.ModeSolo)
	r.armGameTimer(game.TickIntervalMs * time.Millisecond)
	r.persist()
	r.broadcastSync()
}

// enqueue queues a gameplay action for the next tick. Gameplay messages
// outside of play are silently ignored; they are expected noise around
// transitions.
func (r *Room) enqueue(c Conn, att *attachment, a game.Action) {
	if att.playerID == "" {
		r.sendError(c, protocol.ErrNotInRoom, "join first")
		return
	}
	if r.state.Status != game.StatusPlaying {
		return
	}
	a.PlayerID = att.playerID
	r.pending = append(r.pending, a)
}

// broadcastSyncExcept sends a sync to every attached connection but one,
// used when that connection just received its first sync.
func (r *Room) broadcastSyncExcept(skip Conn) {
	data := protocol.Marshal(protocol.Sync(r.state, "", nil))
	if data == nil {
		return
	}
	for c, att := range r.conns {
		if c == skip || att.playerID == "" {
			continue
		}
		c.Send(data)
	}
}
