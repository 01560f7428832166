// Package room hosts one actor per room code. A room processes exactly one
// event at a time — a message, a timer fire, or a lifecycle callback — on a
// single goroutine, so the reducer always sees a consistent action queue and
// state mutates without locks. Rooms share nothing with each other.
package room

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"invaders/internal/game"
	"invaders/internal/protocol"
	"invaders/internal/store"
)

// Conn is the outbound half of one client connection. Send must not block
// the room loop: implementations enqueue and report false when the peer is
// gone or its buffer is full.
type Conn interface {
	Send(data []byte) bool
	Close()
}

// Admission errors returned by Init and upgrade gating.
var (
	ErrAlreadyInitialized = errors.New("room already initialized")
	ErrNotInitialized     = errors.New("room not initialized")
	ErrRoomFull           = errors.New("room full")
	ErrGameInProgress     = errors.New("game in progress")
)

const (
	// Inbound frames per connection per sliding second. Excess frames are
	// dropped with a rate_limited error; the connection stays open.
	maxMessagesPerSecond = 60

	// How long an empty room keeps its persisted record before deletion.
	emptyRoomTTL = 5 * time.Minute

	inboxSize = 256
)

// Info is the /info snapshot.
type Info struct {
	RoomCode    string      `json:"roomCode"`
	PlayerCount int         `json:"playerCount"`
	Status      game.Status `json:"status"`
}

// attachment is the per-connection state the room tracks: which player the
// connection speaks for and the timestamps of its recent frames.
type attachment struct {
	playerID string
	msgTimes []time.Time
}

// Room owns one game: its connections, action queue, timers, persistence and
// broadcast fan-out. All fields are touched only from the Run goroutine.
type Room struct {
	code        string
	initialized bool

	state *game.GameState
	ids   *game.IDSource

	conns     map[Conn]*attachment
	pending   []game.Action
	playerSeq int64

	st    store.Store
	clock func() time.Time

	gameTimer    *time.Timer
	gameTimerOn  bool
	cleanupTimer *time.Timer
	cleanupOn    bool

	inbox  chan command
	stopCh chan struct{}

	// OnEmpty is called (from the room goroutine) when the idle cleanup
	// fires, after the persisted record is deleted.
	OnEmpty func(code string)
	// OnTick reports reducer latency for metrics; nil disables reporting.
	OnTick func(d time.Duration)
}

type command struct {
	run func()
	ack chan struct{}
}

// New creates an uninitialized room shell. Call Init (or Restore) before
// accepting connections, and Run to start the event loop.
func New(st store.Store) *Room {
	return &Room{
		conns:  make(map[Conn]*attachment),
		st:     st,
		clock:  time.Now,
		inbox:  make(chan command, inboxSize),
		stopCh: make(chan struct{}),
	}
}

// Restore builds an initialized room from a persisted record.
func Restore(st store.Store, rec store.Record) *Room {
	r := New(st)
	r.code = rec.State.RoomID
	r.initialized = true
	r.state = game.MigrateGameState(rec.State)
	r.ids = game.NewIDSource(rec.NextEntityID)
	r.playerSeq = maxPlayerSeq(r.state)
	// Nobody is connected after a restore; stale ready flags and the tick
	// timer would otherwise wait on players who are gone.
	for id := range r.state.Players {
		game.RemovePlayer(r.state, id)
	}
	if r.state.Status == game.StatusCountdown {
		r.state.Status = game.StatusWaiting
		r.state.CountdownRemaining = nil
	}
	r.maybeScheduleCleanup()
	return r
}

func maxPlayerSeq(s *game.GameState) int64 {
	var max int64
	for id := range s.Players {
		if n, err := strconv.ParseInt(strings.TrimPrefix(id, "p_"), 10, 64); err == nil && n > max {
			max = n
		}
	}
	return max
}

// Run processes the room's inbox and timers until Stop. One event runs to
// completion before the next begins.
func (r *Room) Run() {
	for {
		select {
		case cmd := <-r.inbox:
			cmd.run()
			if cmd.ack != nil {
				close(cmd.ack)
			}
		case <-r.gameTimerC():
			r.handleGameTimer()
		case <-r.cleanupTimerC():
			r.handleCleanup()
		case <-r.stopCh:
			return
		}
	}
}

// Stop terminates the event loop. Pending inbox commands are dropped.
func (r *Room) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// do runs fn on the room goroutine and waits for it. Reports false when the
// loop has stopped and fn did not run; callers must not trust their outputs
// in that case.
func (r *Room) do(fn func()) bool {
	ack := make(chan struct{})
	select {
	case r.inbox <- command{run: fn, ack: ack}:
		select {
		case <-ack:
			return true
		case <-r.stopCh:
			return false
		}
	case <-r.stopCh:
		return false
	}
}

// post runs fn on the room goroutine without waiting.
func (r *Room) post(fn func()) {
	select {
	case r.inbox <- command{run: fn}:
	case <-r.stopCh:
	}
}

// Init performs the one-shot room initialization.
func (r *Room) Init(roomCode string) error {
	var err error
	if !r.do(func() { err = r.init(roomCode) }) {
		return ErrNotInitialized
	}
	return err
}

func (r *Room) init(roomCode string) error {
	if r.initialized {
		return ErrAlreadyInitialized
	}
	r.code = roomCode
	r.initialized = true
	r.state = game.NewGameState(roomCode)
	r.ids = game.NewIDSource(1)
	r.persist()
	// The record of a room nobody ever connects to must still expire.
	r.maybeScheduleCleanup()
	return nil
}

// Info returns the directory snapshot, or ErrNotInitialized.
func (r *Room) Info() (Info, error) {
	var info Info
	var err error
	if !r.do(func() {
		if !r.initialized {
			err = ErrNotInitialized
			return
		}
		info = Info{RoomCode: r.code, PlayerCount: r.state.PlayerCount(), Status: r.state.Status}
	}) {
		return Info{}, ErrNotInitialized
	}
	return info, err
}

// AdmitUpgrade gates a websocket upgrade before it happens. Rejections:
// uninitialized, full, or mid-game rooms.
func (r *Room) AdmitUpgrade() error {
	var err error
	if !r.do(func() { err = r.admit() }) {
		return ErrNotInitialized
	}
	return err
}

func (r *Room) admit() error {
	if !r.initialized {
		return ErrNotInitialized
	}
	switch r.state.Status {
	case game.StatusWaiting, game.StatusGameOver:
	default:
		return ErrGameInProgress
	}
	if r.state.PlayerCount() >= game.MaxRoomPlayers {
		return ErrRoomFull
	}
	return nil
}

// Connect registers an upgraded connection. The admission check reruns here
// because the upgrade window is not atomic with AdmitUpgrade.
func (r *Room) Connect(c Conn) error {
	var err error
	if !r.do(func() {
		if err = r.admit(); err != nil {
			return
		}
		r.conns[c] = &attachment{}
		r.stopCleanupTimer()
	}) {
		// A stopped room must not silently adopt the connection.
		return ErrNotInitialized
	}
	return err
}

// Message feeds one inbound frame into the room loop.
func (r *Room) Message(c Conn, data []byte) {
	r.post(func() { r.handleMessage(c, data) })
}

// Disconnect removes a connection; close and error paths are symmetric.
func (r *Room) Disconnect(c Conn) {
	r.post(func() { r.handleDisconnect(c) })
}

// handleDisconnect frees the player's slot, cancels the countdown when the
// start condition no longer holds, and schedules cleanup once the room is
// empty.
func (r *Room) handleDisconnect(c Conn) {
	att, ok := r.conns[c]
	if !ok {
		return
	}
	delete(r.conns, c)
	c.Close()

	if att.playerID == "" {
		r.maybeScheduleCleanup()
		return
	}

	game.RemovePlayer(r.state, att.playerID)
	r.broadcastEvent(game.Event{
		Name: game.EventPlayerLeft,
		Data: game.PlayerLeftData{PlayerID: att.playerID, Reason: "disconnect"},
	})

	if r.state.Status == game.StatusCountdown &&
		(r.state.PlayerCount() < 2 || !r.state.AllReady()) {
		r.cancelCountdown("player_left")
	}

	if r.state.PlayerCount() == 0 {
		r.stopGameTimer()
	}
	r.persist()
	r.broadcastSync()
	r.maybeScheduleCleanup()
}

// --- timers ---

func (r *Room) gameTimerC() <-chan time.Time {
	if !r.gameTimerOn {
		return nil
	}
	return r.gameTimer.C
}

func (r *Room) cleanupTimerC() <-chan time.Time {
	if !r.cleanupOn {
		return nil
	}
	return r.cleanupTimer.C
}

func (r *Room) armGameTimer(d time.Duration) {
	if r.gameTimer == nil {
		r.gameTimer = time.NewTimer(d)
	} else {
		if !r.gameTimer.Stop() {
			select {
			case <-r.gameTimer.C:
			default:
			}
		}
		r.gameTimer.Reset(d)
	}
	r.gameTimerOn = true
}

func (r *Room) stopGameTimer() {
	if r.gameTimer != nil {
		r.gameTimer.Stop()
	}
	r.gameTimerOn = false
}

func (r *Room) maybeScheduleCleanup() {
	if len(r.conns) > 0 || r.state == nil || r.state.PlayerCount() > 0 {
		return
	}
	if r.cleanupTimer == nil {
		r.cleanupTimer = time.NewTimer(emptyRoomTTL)
	} else {
		if !r.cleanupTimer.Stop() {
			select {
			case <-r.cleanupTimer.C:
			default:
			}
		}
		r.cleanupTimer.Reset(emptyRoomTTL)
	}
	r.cleanupOn = true
}

func (r *Room) stopCleanupTimer() {
	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
	}
	r.cleanupOn = false
}

// handleCleanup deletes the persisted record of a still-empty room and hands
// the code back to the directory.
func (r *Room) handleCleanup() {
	r.cleanupOn = false
	if len(r.conns) > 0 || (r.state != nil && r.state.PlayerCount() > 0) {
		return
	}
	if err := r.st.Delete(r.code); err != nil {
		log.Printf("room %s: cleanup delete failed: %v", r.code, err)
	}
	if r.OnEmpty != nil {
		r.OnEmpty(r.code)
	}
	r.Stop()
}

// handleGameTimer advances either the countdown or one simulation tick,
// then re-arms for the matching cadence.
func (r *Room) handleGameTimer() {
	r.gameTimerOn = false
	if r.state == nil {
		return
	}
	// A bug on the timer path must not take every room in the process down.
	// The current tick's side effects are abandoned and the cadence resumes.
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("room %s: panic in %s timer: %v", r.code, r.state.Status, rec)
			switch r.state.Status {
			case game.StatusCountdown:
				r.armGameTimer(game.CountdownIntervalMs * time.Millisecond)
			case game.StatusPlaying, game.StatusWipeExit, game.StatusWipeHold, game.StatusWipeReveal:
				r.armGameTimer(game.TickIntervalMs * time.Millisecond)
			}
		}
	}()
	switch r.state.Status {
	case game.StatusCountdown:
		r.countdownStep()
	case game.StatusPlaying, game.StatusWipeExit, game.StatusWipeHold, game.StatusWipeReveal:
		r.tick()
	default:
		// waiting / game_over: no cadence.
	}
}

// tick runs the reducer once and fans out the results. All syncs for a tick
// reflect the same post-tick state, and events go out before the sync.
func (r *Room) tick() {
	started := r.clock()
	actions := r.pending
	r.pending = nil

	events := game.Reduce(r.state, r.ids, actions)
	for _, ev := range events {
		r.broadcastEvent(ev)
	}
	r.persist()
	r.broadcastSync()

	if r.OnTick != nil {
		r.OnTick(r.clock().Sub(started))
	}

	switch r.state.Status {
	case game.StatusGameOver, game.StatusWaiting:
		r.stopGameTimer()
	default:
		r.armGameTimer(game.TickIntervalMs * time.Millisecond)
	}
}

// --- countdown ---

func (r *Room) startCountdown() {
	r.state.Status = game.StatusCountdown
	c := game.CountdownSeconds
	r.state.CountdownRemaining = &c
	r.broadcastEvent(game.Event{Name: game.EventCountdownTick, Data: game.CountdownTickData{Count: c}})
	r.armGameTimer(game.CountdownIntervalMs * time.Millisecond)
}

func (r *Room) countdownStep() {
	if r.state.CountdownRemaining == nil {
		r.state.Status = game.StatusWaiting
		return
	}
	*r.state.CountdownRemaining--
	if *r.state.CountdownRemaining > 0 {
		r.broadcastEvent(game.Event{
			Name: game.EventCountdownTick,
			Data: game.CountdownTickData{Count: *r.state.CountdownRemaining},
		})
		r.persist()
		r.broadcastSync()
		r.armGameTimer(game.CountdownIntervalMs * time.Millisecond)
		return
	}
	r.broadcastEvent(game.Event{Name: game.EventGameStart})
	game.StartGame(r.state, r.ids, game.ModeCoop)
	r.persist()
	r.broadcastSync()
	r.armGameTimer(game.TickIntervalMs * time.Millisecond)
}

func (r *Room) cancelCountdown(reason string) {
	r.state.Status = game.StatusWaiting
	r.state.CountdownRemaining = nil
	r.stopGameTimer()
	r.broadcastEvent(game.Event{
		Name: game.EventCountdownCancelled,
		Data: game.CountdownCancelledData{Reason: reason},
	})
}

// --- fan-out ---

// broadcastSync sends the current state to every connection with an attached
// player.
func (r *Room) broadcastSync() {
	data := protocol.Marshal(protocol.Sync(r.state, "", nil))
	if data == nil {
		return
	}
	for c, att := range r.conns {
		if att.playerID == "" {
			continue
		}
		c.Send(data)
	}
}

// sendFirstSync includes the player id and static config exactly once per
// connection; clients cache both.
func (r *Room) sendFirstSync(c Conn, playerID string) {
	cfg := r.state.Config
	data := protocol.Marshal(protocol.Sync(r.state, playerID, &cfg))
	if data != nil {
		c.Send(data)
	}
}

func (r *Room) broadcastEvent(ev game.Event) {
	data := protocol.Marshal(protocol.EventFrame(ev))
	if data == nil {
		return
	}
	for c, att := range r.conns {
		if att.playerID == "" {
			continue
		}
		c.Send(data)
	}
}

func (r *Room) sendError(c Conn, code protocol.ErrorCode, message string) {
	if data := protocol.Marshal(protocol.Error(code, message)); data != nil {
		c.Send(data)
	}
}

// --- persistence ---

// persist writes {state, nextEntityId} after each mutating event. A failed
// write is retried once; after that the room keeps running in memory.
func (r *Room) persist() {
	rec := store.Record{State: r.state, NextEntityID: r.ids.Next()}
	if err := r.st.Save(r.code, rec); err != nil {
		if err2 := r.st.Save(r.code, rec); err2 != nil {
			log.Printf("room %s: persist failed twice: %v", r.code, err2)
		}
	}
}

func (r *Room) nextPlayerID() string {
	r.playerSeq++
	return fmt.Sprintf("p_%d", r.playerSeq)
}
