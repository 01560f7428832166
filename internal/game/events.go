package game

// Event names, as sent to clients in event frames. The full catalog is 15
// names; commander and wave_bonus exist only as score sources.
const (
	EventPlayerJoined       = "player_joined"
	EventPlayerLeft         = "player_left"
	EventPlayerReady        = "player_ready"
	EventPlayerUnready      = "player_unready"
	EventPlayerDied         = "player_died"
	EventPlayerRespawned    = "player_respawned"
	EventCountdownTick      = "countdown_tick"
	EventCountdownCancelled = "countdown_cancelled"
	EventGameStart          = "game_start"
	EventAlienKilled        = "alien_killed"
	EventScoreAwarded       = "score_awarded"
	EventWaveComplete       = "wave_complete"
	EventGameOver           = "game_over"
	EventInvasion           = "invasion"
	EventUFOSpawn           = "ufo_spawn"
)

// Score sources for score_awarded.
const (
	ScoreSourceAlien     = "alien"
	ScoreSourceUFO       = "ufo"
	ScoreSourceCommander = "commander"  // reserved, not emitted by the core path
	ScoreSourceWaveBonus = "wave_bonus" // reserved, not emitted by the core path
)

// Game over results.
const (
	ResultVictory = "victory"
	ResultDefeat  = "defeat"
)

// Event is one catalog entry emitted by the reducer or the room, broadcast to
// clients alongside (or before) the sync for the same tick.
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// Typed payloads. Field names are the wire names.

type PlayerJoinedData struct {
	Player *Player `json:"player"`
}

type PlayerLeftData struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason,omitempty"`
}

type PlayerIDData struct {
	PlayerID string `json:"playerId"`
}

type CountdownTickData struct {
	Count int `json:"count"`
}

type CountdownCancelledData struct {
	Reason string `json:"reason"`
}

type AlienKilledData struct {
	AlienID  string `json:"alienId"`
	PlayerID string `json:"playerId,omitempty"`
}

type ScoreAwardedData struct {
	PlayerID string `json:"playerId,omitempty"`
	Points   int    `json:"points"`
	Source   string `json:"source"`
}

type WaveCompleteData struct {
	Wave int `json:"wave"`
}

type GameOverData struct {
	Result string `json:"result"`
}

type UFOSpawnData struct {
	X int `json:"x"`
}
