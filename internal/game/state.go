package game

import "encoding/json"

// Status is the room/game lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusCountdown  Status = "countdown"
	StatusWipeExit   Status = "wipe_exit"
	StatusWipeHold   Status = "wipe_hold"
	StatusWipeReveal Status = "wipe_reveal"
	StatusPlaying    Status = "playing"
	StatusGameOver   Status = "game_over"
)

// InWipe reports whether the status is one of the three wipe phases.
func (s Status) InWipe() bool {
	return s == StatusWipeExit || s == StatusWipeHold || s == StatusWipeReveal
}

// Mode distinguishes a solo run from co-op.
type Mode string

const (
	ModeSolo Mode = "solo"
	ModeCoop Mode = "coop"
)

// InputState is the held-key snapshot a client reports.
type InputState struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Player is one connected participant. Y is constant (PlayerY); x anchors at
// the player's center.
type Player struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Slot          int        `json:"slot"`
	Color         string     `json:"color"`
	X             int        `json:"x"`
	Lives         int        `json:"lives"` // mirrors the shared pool for display
	Alive         bool       `json:"alive"`
	Kills         int        `json:"kills"`
	LastShotTick  int64      `json:"lastShotTick"`
	RespawnAtTick *int64     `json:"respawnAtTick,omitempty"`
	InputState    InputState `json:"inputState"`
}

// GameConfig is the static layout clients need to render; it is sent once in
// the first sync and cached client-side.
type GameConfig struct {
	GridWidth      int `json:"gridWidth"`
	GridHeight     int `json:"gridHeight"`
	TickRate       int `json:"tickRate"`
	TickIntervalMs int `json:"tickIntervalMs"`
	PlayerY        int `json:"playerY"`
	PlayerMinX     int `json:"playerMinX"`
	PlayerMaxX     int `json:"playerMaxX"`
	MaxPlayers     int `json:"maxPlayers"`
}

// DefaultGameConfig returns the canonical layout constants.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		GridWidth:      GridWidth,
		GridHeight:     GridHeight,
		TickRate:       TickRate,
		TickIntervalMs: TickIntervalMs,
		PlayerY:        PlayerY,
		PlayerMinX:     PlayerMinX,
		PlayerMaxX:     PlayerMaxX,
		MaxPlayers:     MaxRoomPlayers,
	}
}

// GameState is the complete authoritative state of one room. It is what the
// reducer advances, what persists, and what every sync broadcasts.
type GameState struct {
	RoomID                string             `json:"roomId"`
	Mode                  Mode               `json:"mode"`
	Status                Status             `json:"status"`
	Tick                  int64              `json:"tick"`
	RNGSeed               uint32             `json:"rngSeed"`
	CountdownRemaining    *int               `json:"countdownRemaining"`
	Players               map[string]*Player `json:"players"`
	ReadyPlayerIDs        []string           `json:"readyPlayerIds"`
	Entities              []*Entity          `json:"entities"`
	Wave                  int                `json:"wave"`
	Lives                 int                `json:"lives"`
	Score                 int                `json:"score"`
	AlienDirection        int                `json:"alienDirection"`
	WipeTicksRemaining    *int               `json:"wipeTicksRemaining"`
	WipeWaveNumber        *int               `json:"wipeWaveNumber"`
	AlienShootingDisabled bool               `json:"alienShootingDisabled"`
	Config                GameConfig         `json:"config"`
}

// NewGameState is the single source of truth for a fresh room state.
func NewGameState(roomID string) *GameState {
	return &GameState{
		RoomID:         roomID,
		Mode:           ModeCoop,
		Status:         StatusWaiting,
		Tick:           0,
		RNGSeed:        SeedForRoom(roomID),
		Players:        make(map[string]*Player),
		ReadyPlayerIDs: []string{},
		Entities:       []*Entity{},
		Wave:           1,
		AlienDirection: 1,
		Config:         DefaultGameConfig(),
	}
}

// MigrateGameState fills fields missing from older persisted states with
// defaults, in place. Migrating a fresh default state is a no-op.
func MigrateGameState(s *GameState) *GameState {
	if s.Mode == "" {
		s.Mode = ModeCoop
	}
	if s.Status == "" {
		s.Status = StatusWaiting
	}
	if s.RNGSeed == 0 {
		s.RNGSeed = SeedForRoom(s.RoomID)
	}
	if s.Players == nil {
		s.Players = make(map[string]*Player)
	}
	if s.ReadyPlayerIDs == nil {
		s.ReadyPlayerIDs = []string{}
	}
	if s.Entities == nil {
		s.Entities = []*Entity{}
	}
	if s.Wave < 1 {
		s.Wave = 1
	}
	if s.AlienDirection != -1 && s.AlienDirection != 1 {
		s.AlienDirection = 1
	}
	if s.Config == (GameConfig{}) {
		s.Config = DefaultGameConfig()
	}
	// Stale wipe bookkeeping outside a wipe phase is dropped rather than
	// trusted; a wipe phase with no counter restarts the phase.
	if !s.Status.InWipe() {
		s.WipeTicksRemaining = nil
	} else if s.WipeTicksRemaining == nil {
		d := wipeDuration(s.Status)
		s.WipeTicksRemaining = &d
	}
	if s.Status != StatusCountdown {
		s.CountdownRemaining = nil
	} else if s.CountdownRemaining == nil {
		c := CountdownSeconds
		s.CountdownRemaining = &c
	}
	return s
}

func wipeDuration(status Status) int {
	switch status {
	case StatusWipeExit:
		return WipeExitTicks
	case StatusWipeHold:
		return WipeHoldTicks
	case StatusWipeReveal:
		return WipeRevealTicks
	default:
		return 0
	}
}

// Clone deep-copies the state via its JSON form. Used by replay tests and by
// the room when it needs a snapshot that outlives the current event.
func (s *GameState) Clone() *GameState {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var out GameState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return MigrateGameState(&out)
}

// PlayerCount returns the number of joined players.
func (s *GameState) PlayerCount() int {
	return len(s.Players)
}

// IsReady reports whether a player id is in the ready set.
func (s *GameState) IsReady(playerID string) bool {
	for _, id := range s.ReadyPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// SetReady adds or removes a player from the ready set. Toggling twice is an
// identity.
func (s *GameState) SetReady(playerID string, ready bool) {
	if ready {
		if !s.IsReady(playerID) {
			s.ReadyPlayerIDs = append(s.ReadyPlayerIDs, playerID)
		}
		return
	}
	out := s.ReadyPlayerIDs[:0]
	for _, id := range s.ReadyPlayerIDs {
		if id != playerID {
			out = append(out, id)
		}
	}
	s.ReadyPlayerIDs = out
}

// AllReady reports whether every joined player is ready. Stale ids left by
// disconnects are tolerated but not required.
func (s *GameState) AllReady() bool {
	if len(s.Players) == 0 {
		return false
	}
	for id := range s.Players {
		if !s.IsReady(id) {
			return false
		}
	}
	return true
}

// FreeSlot returns the lowest unused slot in 1..4, or 0 when the room is full.
// The slot pool is implicit: it is derived from the joined players.
func (s *GameState) FreeSlot() int {
	for slot := 1; slot <= MaxRoomPlayers; slot++ {
		taken := false
		for _, p := range s.Players {
			if p.Slot == slot {
				taken = true
				break
			}
		}
		if !taken {
			return slot
		}
	}
	return 0
}

// NameTaken reports whether a joined player already uses the name.
func (s *GameState) NameTaken(name string) bool {
	for _, p := range s.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// UFO returns the live UFO entity, if any. At most one exists.
func (s *GameState) UFO() *Entity {
	for _, e := range s.Entities {
		if e.Kind == KindUFO {
			return e
		}
	}
	return nil
}
