package room

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"invaders/internal/game"
	"invaders/internal/store"
)

// fakeConn records every outbound frame.
type fakeConn struct {
	frames [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) bool {
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) Close() { c.closed = true }

// frame is the superset of server frame fields the tests inspect.
type frame struct {
	Type     string          `json:"type"`
	Code     string          `json:"code,omitempty"`
	Name     string          `json:"name,omitempty"`
	PlayerID string          `json:"playerId,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func (c *fakeConn) decoded(t *testing.T) []frame {
	t.Helper()
	out := make([]frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("bad frame %s: %v", raw, err)
		}
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) lastErrorCode(t *testing.T) string {
	t.Helper()
	frames := c.decoded(t)
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == "error" {
			return frames[i].Code
		}
	}
	return ""
}

func (c *fakeConn) hasEvent(t *testing.T, name string) bool {
	t.Helper()
	for _, f := range c.decoded(t) {
		if f.Type == "event" && f.Name == name {
			return true
		}
	}
	return false
}

// newTestRoom builds an initialized room with a stubbed clock, driven
// directly rather than through its event loop.
func newTestRoom(t *testing.T) *Room {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := New(st)
	r.clock = func() time.Time { return time.Unix(1000, 0) }
	if err := r.init("ROOM01"); err != nil {
		t.Fatal(err)
	}
	return r
}

func attach(r *Room) *fakeConn {
	c := &fakeConn{}
	r.conns[c] = &attachment{}
	return c
}

func join(t *testing.T, r *Room, c *fakeConn, name string) {
	t.Helper()
	r.handleMessage(c, []byte(fmt.Sprintf(`{"type":"join","name":"%s"}`, name)))
	if code := c.lastErrorCode(t); code != "" {
		t.Fatalf("join %s failed: %s", name, code)
	}
}

func TestJoinSendsFirstSync(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")

	frames := c.decoded(t)
	if len(frames) == 0 || frames[0].Type != "sync" {
		t.Fatalf("first frame = %+v, want sync", frames)
	}
	if frames[0].PlayerID != "p_1" {
		t.Fatalf("first sync playerId = %q, want p_1", frames[0].PlayerID)
	}
	if len(frames[0].Config) == 0 {
		t.Fatal("first sync carries no config")
	}
	if r.state.Players["p_1"] == nil {
		t.Fatal("player not in state")
	}
	if !c.hasEvent(t, game.EventPlayerJoined) {
		t.Fatal("no player_joined event")
	}
}

func TestRepeatSyncOmitsIdentity(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	c.frames = nil

	r.broadcastSync()
	frames := c.decoded(t)
	if len(frames) != 1 || frames[0].Type != "sync" {
		t.Fatalf("frames = %+v", frames)
	}
	if frames[0].PlayerID != "" || len(frames[0].Config) != 0 {
		t.Fatal("repeat sync carries first-sync fields")
	}
}

func TestDoubleJoinRejected(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	r.handleMessage(c, []byte(`{"type":"join","name":"alice2"}`))
	if code := c.lastErrorCode(t); code != "invalid_action" {
		t.Fatalf("double join error = %q, want invalid_action", code)
	}
}

func TestJoinNameTaken(t *testing.T) {
	r := newTestRoom(t)
	c1 := attach(r)
	join(t, r, c1, "alice")

	c2 := attach(r)
	r.handleMessage(c2, []byte(`{"type":"join","name":"alice"}`))
	if code := c2.lastErrorCode(t); code != "name_taken" {
		t.Fatalf("error = %q, want name_taken", code)
	}

	// The failed join must not burn a player id.
	c2.frames = nil
	join(t, r, c2, "bob")
	if r.conns[c2].playerID != "p_2" {
		t.Fatalf("second player id = %s, want p_2", r.conns[c2].playerID)
	}
}

func TestJoinRoomFull(t *testing.T) {
	r := newTestRoom(t)
	for i := 1; i <= game.MaxRoomPlayers; i++ {
		join(t, r, attach(r), fmt.Sprintf("player%d", i))
	}
	if err := r.admit(); err != ErrRoomFull {
		t.Fatalf("admit on full room = %v, want ErrRoomFull", err)
	}
	c := attach(r)
	r.handleMessage(c, []byte(`{"type":"join","name":"late"}`))
	if code := c.lastErrorCode(t); code != "room_full" {
		t.Fatalf("error = %q, want room_full", code)
	}
}

func TestAdmitGates(t *testing.T) {
	st, _ := store.NewFileStore(t.TempDir())
	shell := New(st)
	if err := shell.admit(); err != ErrNotInitialized {
		t.Fatalf("uninitialized admit = %v", err)
	}

	r := newTestRoom(t)
	if err := r.admit(); err != nil {
		t.Fatalf("waiting admit = %v", err)
	}
	r.state.Status = game.StatusPlaying
	if err := r.admit(); err != ErrGameInProgress {
		t.Fatalf("mid-game admit = %v, want ErrGameInProgress", err)
	}
	r.state.Status = game.StatusGameOver
	if err := r.admit(); err != nil {
		t.Fatalf("game_over admit = %v, want nil", err)
	}
}

func TestReadyPairStartsCountdown(t *testing.T) {
	r := newTestRoom(t)
	c1, c2 := attach(r), attach(r)
	join(t, r, c1, "alice")
	join(t, r, c2, "bob")

	r.handleMessage(c1, []byte(`{"type":"ready"}`))
	if r.state.Status != game.StatusWaiting {
		t.Fatalf("one ready started the countdown: %s", r.state.Status)
	}
	r.handleMessage(c2, []byte(`{"type":"ready"}`))
	if r.state.Status != game.StatusCountdown {
		t.Fatalf("status = %s, want countdown", r.state.Status)
	}
	if r.state.CountdownRemaining == nil || *r.state.CountdownRemaining != game.CountdownSeconds {
		t.Fatalf("countdownRemaining = %v", r.state.CountdownRemaining)
	}
	if !r.gameTimerOn {
		t.Fatal("countdown timer not armed")
	}
	if !c1.hasEvent(t, game.EventCountdownTick) {
		t.Fatal("no countdown_tick broadcast")
	}
}

func TestSoloPlayerReadyDoesNotStart(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	r.handleMessage(c, []byte(`{"type":"ready"}`))
	if r.state.Status != game.StatusWaiting {
		t.Fatalf("single ready player started a game: %s", r.state.Status)
	}
}

func TestUnreadyCancelsCountdown(t *testing.T) {
	r := newTestRoom(t)
	c1, c2 := attach(r), attach(r)
	join(t, r, c1, "alice")
	join(t, r, c2, "bob")
	r.handleMessage(c1, []byte(`{"type":"ready"}`))
	r.handleMessage(c2, []byte(`{"type":"ready"}`))

	r.handleMessage(c1, []byte(`{"type":"unready"}`))
	if r.state.Status != game.StatusWaiting {
		t.Fatalf("status = %s, want waiting", r.state.Status)
	}
	if r.state.CountdownRemaining != nil {
		t.Fatal("countdown counter survived the cancel")
	}
	if r.gameTimerOn {
		t.Fatal("timer still armed after cancel")
	}
	if !c2.hasEvent(t, game.EventCountdownCancelled) {
		t.Fatal("no countdown_cancelled broadcast")
	}
}

func TestCountdownRunsIntoGameStart(t *testing.T) {
	r := newTestRoom(t)
	c1, c2 := attach(r), attach(r)
	join(t, r, c1, "alice")
	join(t, r, c2, "bob")
	r.handleMessage(c1, []byte(`{"type":"ready"}`))
	r.handleMessage(c2, []byte(`{"type":"ready"}`))

	r.handleGameTimer() // 3 -> 2
	r.handleGameTimer() // 2 -> 1
	if r.state.Status != game.StatusCountdown {
		t.Fatalf("countdown ended early: %s", r.state.Status)
	}
	r.handleGameTimer() // 1 -> 0: game start
	if r.state.Status != game.StatusWipeHold {
		t.Fatalf("status = %s, want wipe_hold", r.state.Status)
	}
	if r.state.Mode != game.ModeCoop {
		t.Fatalf("mode = %s, want coop", r.state.Mode)
	}
	if !c1.hasEvent(t, game.EventGameStart) {
		t.Fatal("no game_start broadcast")
	}
	if !r.gameTimerOn {
		t.Fatal("tick cadence not armed")
	}
}

func TestJoinDuringCountdownRejected(t *testing.T) {
	r := newTestRoom(t)
	c1, c2 := attach(r), attach(r)
	join(t, r, c1, "alice")
	join(t, r, c2, "bob")
	r.handleMessage(c1, []byte(`{"type":"ready"}`))
	r.handleMessage(c2, []byte(`{"type":"ready"}`))

	c3 := attach(r)
	r.handleMessage(c3, []byte(`{"type":"join","name":"carol"}`))
	if code := c3.lastErrorCode(t); code != "countdown_in_progress" {
		t.Fatalf("error = %q, want countdown_in_progress", code)
	}
}

func TestJoinAfterGameOverReopensLobby(t *testing.T) {
	r := newTestRoom(t)
	c1 := attach(r)
	join(t, r, c1, "alice")
	r.state.Status = game.StatusGameOver
	r.state.Score = 500

	c2 := attach(r)
	join(t, r, c2, "bob")
	if r.state.Status != game.StatusWaiting {
		t.Fatalf("status = %s, want waiting", r.state.Status)
	}
	if r.state.Score != 0 {
		t.Fatal("round state not reset on lobby reopen")
	}
	if r.state.PlayerCount() != 2 {
		t.Fatalf("playerCount = %d, want 2", r.state.PlayerCount())
	}
}

func TestStartSolo(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")

	r.handleMessage(c, []byte(`{"type":"start_solo"}`))
	if r.state.Status != game.StatusWipeHold {
		t.Fatalf("status = %s, want wipe_hold", r.state.Status)
	}
	if r.state.Mode != game.ModeSolo {
		t.Fatalf("mode = %s, want solo", r.state.Mode)
	}
	if !r.gameTimerOn {
		t.Fatal("tick cadence not armed")
	}
}

func TestStartSoloNeedsExactlyOnePlayer(t *testing.T) {
	r := newTestRoom(t)
	c1, c2 := attach(r), attach(r)
	join(t, r, c1, "alice")
	join(t, r, c2, "bob")
	r.handleMessage(c1, []byte(`{"type":"start_solo"}`))
	if code := c1.lastErrorCode(t); code != "invalid_action" {
		t.Fatalf("error = %q, want invalid_action", code)
	}
	if r.state.Status != game.StatusWaiting {
		t.Fatalf("status = %s", r.state.Status)
	}
}

func TestGameplayActionsQueueOnlyDuringPlay(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")

	// Waiting: silently ignored, no error.
	before := len(c.frames)
	r.handleMessage(c, []byte(`{"type":"shoot"}`))
	if len(r.pending) != 0 {
		t.Fatal("action queued outside of play")
	}
	if len(c.frames) != before {
		t.Fatalf("unexpected reply: %s", c.frames[len(c.frames)-1])
	}

	r.state.Status = game.StatusPlaying
	r.handleMessage(c, []byte(`{"type":"shoot"}`))
	r.handleMessage(c, []byte(`{"type":"move","direction":"left"}`))
	r.handleMessage(c, []byte(`{"type":"input","held":{"left":true,"right":false}}`))
	if len(r.pending) != 3 {
		t.Fatalf("pending = %d actions, want 3", len(r.pending))
	}
	if r.pending[0].PlayerID != "p_1" || r.pending[1].Dir != -1 || !r.pending[2].Held.Left {
		t.Fatalf("pending = %+v", r.pending)
	}
}

func TestUnjoinedGameplayRejected(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	r.handleMessage(c, []byte(`{"type":"shoot"}`))
	if code := c.lastErrorCode(t); code != "not_in_room" {
		t.Fatalf("error = %q, want not_in_room", code)
	}
}

func TestInvalidFrameAnswersSender(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	r.handleMessage(c, []byte(`{{{`))
	if code := c.lastErrorCode(t); code != "invalid_message" {
		t.Fatalf("error = %q, want invalid_message", code)
	}
	r.handleMessage(c, []byte(`{"type":"teleport"}`))
	if code := c.lastErrorCode(t); code != "invalid_message" {
		t.Fatalf("error = %q, want invalid_message", code)
	}
}

func TestPing(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	r.handleMessage(c, []byte(`{"type":"ping"}`))
	frames := c.decoded(t)
	if len(frames) != 1 || frames[0].Type != "pong" {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestRateLimitDropsExcessFrames(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)

	for i := 0; i < maxMessagesPerSecond; i++ {
		r.handleMessage(c, []byte(`{"type":"ping"}`))
	}
	pongs := 0
	for _, f := range c.decoded(t) {
		if f.Type == "pong" {
			pongs++
		}
	}
	if pongs != maxMessagesPerSecond {
		t.Fatalf("pongs = %d, want %d", pongs, maxMessagesPerSecond)
	}

	r.handleMessage(c, []byte(`{"type":"ping"}`))
	if code := c.lastErrorCode(t); code != "rate_limited" {
		t.Fatalf("61st frame error = %q, want rate_limited", code)
	}

	// A fresh window admits frames again; the connection was never dropped.
	if c.closed {
		t.Fatal("rate limit closed the connection")
	}
	r.clock = func() time.Time { return time.Unix(1002, 0) }
	c.frames = nil
	r.handleMessage(c, []byte(`{"type":"ping"}`))
	if got := c.decoded(t); len(got) != 1 || got[0].Type != "pong" {
		t.Fatalf("frame after window reset = %+v", got)
	}
}

func TestRateLimitWindowSlides(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)

	now := time.Unix(1000, 0)
	r.clock = func() time.Time { return now }

	// Fill the cap just before a whole-second boundary, then burst right
	// after it. The cap bounds any one-second span, so the second burst must
	// be rejected until the first one ages out.
	now = time.Unix(1000, 0).Add(950 * time.Millisecond)
	for i := 0; i < maxMessagesPerSecond; i++ {
		r.handleMessage(c, []byte(`{"type":"ping"}`))
	}

	now = time.Unix(1001, 0).Add(50 * time.Millisecond)
	c.frames = nil
	r.handleMessage(c, []byte(`{"type":"ping"}`))
	if code := c.lastErrorCode(t); code != "rate_limited" {
		t.Fatalf("burst across the boundary accepted, error = %q", code)
	}

	// Once the first burst is older than a second, frames flow again.
	now = time.Unix(1001, 0).Add(960 * time.Millisecond)
	c.frames = nil
	r.handleMessage(c, []byte(`{"type":"ping"}`))
	if got := c.decoded(t); len(got) != 1 || got[0].Type != "pong" {
		t.Fatalf("frame after aging out = %+v", got)
	}
}

func TestDisconnectFreesSlotAndNotifies(t *testing.T) {
	r := newTestRoom(t)
	c1, c2 := attach(r), attach(r)
	join(t, r, c1, "alice")
	join(t, r, c2, "bob")

	r.handleDisconnect(c1)
	if !c1.closed {
		t.Fatal("disconnected conn not closed")
	}
	if r.state.PlayerCount() != 1 {
		t.Fatalf("playerCount = %d, want 1", r.state.PlayerCount())
	}
	if r.state.FreeSlot() != 1 {
		t.Fatalf("freed slot = %d, want 1", r.state.FreeSlot())
	}
	if !c2.hasEvent(t, game.EventPlayerLeft) {
		t.Fatal("no player_left broadcast")
	}
}

func TestDisconnectDuringCountdownCancels(t *testing.T) {
	r := newTestRoom(t)
	c1, c2 := attach(r), attach(r)
	join(t, r, c1, "alice")
	join(t, r, c2, "bob")
	r.handleMessage(c1, []byte(`{"type":"ready"}`))
	r.handleMessage(c2, []byte(`{"type":"ready"}`))

	r.handleDisconnect(c1)
	if r.state.Status != game.StatusWaiting {
		t.Fatalf("status = %s, want waiting", r.state.Status)
	}
	if !c2.hasEvent(t, game.EventCountdownCancelled) {
		t.Fatal("no countdown_cancelled broadcast")
	}
}

func TestEmptyRoomArmsCleanup(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	r.handleDisconnect(c)
	if !r.cleanupOn {
		t.Fatal("cleanup timer not armed for the empty room")
	}
	// A new connection cancels the pending cleanup.
	attach(r)
	r.stopCleanupTimer()
	if r.cleanupOn {
		t.Fatal("cleanup timer still armed")
	}
}

func TestTickPersistsAndDrainsQueue(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	r.handleMessage(c, []byte(`{"type":"start_solo"}`))

	r.pending = append(r.pending, game.Action{Kind: game.ActionShoot, PlayerID: "p_1"})
	r.handleGameTimer()
	if r.state.Tick != 1 {
		t.Fatalf("tick = %d, want 1", r.state.Tick)
	}
	if len(r.pending) != 0 {
		t.Fatal("action queue not drained")
	}
	rec, err := r.st.Load("ROOM01")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State.Tick != 1 {
		t.Fatalf("persisted tick = %d, want 1", rec.State.Tick)
	}
	if rec.NextEntityID != r.ids.Next() {
		t.Fatal("persisted id counter out of sync")
	}
}

func TestGameOverStopsCadence(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	r.handleMessage(c, []byte(`{"type":"start_solo"}`))

	r.state.Status = game.StatusPlaying
	r.state.WipeTicksRemaining = nil
	r.pending = append(r.pending, game.Action{Kind: game.ActionForfeit, PlayerID: "p_1"})
	r.handleGameTimer()
	if r.state.Status != game.StatusGameOver {
		t.Fatalf("status = %s, want game_over", r.state.Status)
	}
	if r.gameTimerOn {
		t.Fatal("cadence still armed after game over")
	}
	if !c.hasEvent(t, game.EventGameOver) {
		t.Fatal("no game_over broadcast")
	}
}

func TestRestoreClearsTransientState(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	state := game.NewGameState("ABC123")
	game.AddPlayer(state, "p_1", "alice")
	game.AddPlayer(state, "p_7", "bob")
	state.Status = game.StatusCountdown
	n := 2
	state.CountdownRemaining = &n

	r := Restore(st, store.Record{State: state, NextEntityID: 40})
	if r.state.PlayerCount() != 0 {
		t.Fatal("restored room kept phantom players")
	}
	if r.state.Status != game.StatusWaiting || r.state.CountdownRemaining != nil {
		t.Fatalf("restored status = %s", r.state.Status)
	}
	if got := r.ids.NextID(); got != "e_40" {
		t.Fatalf("id counter resumed at %s, want e_40", got)
	}
	// The player sequence resumes past the highest persisted id.
	if got := r.nextPlayerID(); got != "p_8" {
		t.Fatalf("player id resumed at %s, want p_8", got)
	}
}

func TestInitOnce(t *testing.T) {
	r := newTestRoom(t)
	if err := r.init("ROOM01"); err != ErrAlreadyInitialized {
		t.Fatalf("second init = %v, want ErrAlreadyInitialized", err)
	}
}

func TestFreshRoomArmsCleanup(t *testing.T) {
	// A room created and then never visited must still expire its record.
	r := newTestRoom(t)
	if !r.cleanupOn {
		t.Fatal("freshly initialized empty room has no cleanup timer armed")
	}
}

func TestRestoredRoomArmsCleanup(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	state := game.NewGameState("ABC123")
	r := Restore(st, store.Record{State: state, NextEntityID: 1})
	if !r.cleanupOn {
		t.Fatal("restored empty room has no cleanup timer armed")
	}
}

func TestConnectCancelsPendingCleanup(t *testing.T) {
	r := newTestRoom(t)
	if !r.cleanupOn {
		t.Fatal("empty room has no cleanup timer armed")
	}
	c := &fakeConn{}
	if err := r.admit(); err != nil {
		t.Fatal(err)
	}
	r.conns[c] = &attachment{}
	r.stopCleanupTimer()
	if r.cleanupOn {
		t.Fatal("cleanup timer still armed after a connection arrived")
	}
}

func TestTimerPanicDoesNotKillRoom(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	r.handleMessage(c, []byte(`{"type":"start_solo"}`))

	// Fault injection on the tick path; the panic must be contained and the
	// cadence must survive.
	boom := true
	r.OnTick = func(time.Duration) {
		if boom {
			boom = false
			panic("tick fault")
		}
	}
	tickBefore := r.state.Tick
	r.handleGameTimer()
	if r.state.Tick != tickBefore+1 {
		t.Fatalf("tick = %d, want %d", r.state.Tick, tickBefore+1)
	}
	if !r.gameTimerOn {
		t.Fatal("cadence not re-armed after the contained panic")
	}

	// The room keeps ticking and serving messages afterwards.
	r.handleGameTimer()
	if r.state.Tick != tickBefore+2 {
		t.Fatalf("tick after recovery = %d, want %d", r.state.Tick, tickBefore+2)
	}
	c.frames = nil
	r.handleMessage(c, []byte(`{"type":"ping"}`))
	if got := c.decoded(t); len(got) != 1 || got[0].Type != "pong" {
		t.Fatalf("room unserviceable after contained panic: %+v", got)
	}
}

func TestStoppedRoomRejectsCalls(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := New(st)
	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	if err := r.Init("ROOM01"); err != nil {
		t.Fatal(err)
	}
	r.Stop()
	<-done

	if err := r.Connect(&fakeConn{}); err != ErrNotInitialized {
		t.Fatalf("Connect on stopped room = %v, want ErrNotInitialized", err)
	}
	if _, err := r.Info(); err != ErrNotInitialized {
		t.Fatalf("Info on stopped room = %v, want ErrNotInitialized", err)
	}
	if err := r.AdmitUpgrade(); err != ErrNotInitialized {
		t.Fatalf("AdmitUpgrade on stopped room = %v, want ErrNotInitialized", err)
	}
	if err := r.Init("ROOM01"); err != ErrNotInitialized {
		t.Fatalf("Init on stopped room = %v, want ErrNotInitialized", err)
	}
}

func TestMalformedFrameCannotCrashRoom(t *testing.T) {
	r := newTestRoom(t)
	c := attach(r)
	join(t, r, c, "alice")
	payloads := []string{
		`{"type":"move","direction":"left","name":"x"}`,
		`{"type":"join","name":"` + string(make([]byte, 100)) + `"}`,
		`null`,
		`[]`,
		`123`,
		`{"type":"input","held":"notanobject"}`,
	}
	for _, p := range payloads {
		r.handleMessage(c, []byte(p))
	}
	// Still serviceable afterwards.
	c.frames = nil
	r.handleMessage(c, []byte(`{"type":"ping"}`))
	if got := c.decoded(t); len(got) != 1 || got[0].Type != "pong" {
		t.Fatalf("room unserviceable after junk frames: %+v", got)
	}
}
