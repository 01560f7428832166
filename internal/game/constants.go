// Package game implements the authoritative simulation core: the canonical
// layout constants, the deterministic RNG, game state defaults and migration,
// and the fixed-order tick reducer. Nothing in this package performs I/O;
// the room layer owns timers, connections and persistence.
package game

// Grid and timing. The play field is integer cells with a top-left origin;
// x grows right, y grows down.
const (
	GridWidth  = 120
	GridHeight = 36

	TickRate       = 30 // simulation ticks per second
	TickIntervalMs = 33

	CountdownSeconds    = 3
	CountdownIntervalMs = 1000
)

// Player layout and tuning.
const (
	PlayerY         = 33 // all players sit on the same row
	PlayerMinX      = 2
	PlayerMaxX      = GridWidth - 3
	PlayerMoveSpeed = 2

	PlayerShotCooldownTicks = 9  // ~300ms between shots
	RespawnDelayTicks       = 45 // 1.5s at 30 TPS

	MaxRoomPlayers = 4
)

// Bullets move one cell per tick. Anything faster would tunnel through
// single-cell collision checks.
const BulletSpeed = 1

// Alien formation layout.
const (
	AlienWidth      = 5
	AlienColSpacing = 7
	AlienRowSpacing = 2
	AlienTopY       = 4

	AlienMinX = 2
	AlienMaxX = GridWidth - 2 // right edge limit for x + AlienWidth
	AlienStepX = 2

	GameOverY = PlayerY - 2 // formation reaching this row ends the game
)

// UFO.
const (
	UFOY           = 1
	UFOWidth       = 5
	UFOStepX       = 1
	UFOSpawnChance = 0.002 // per tick, while no UFO is alive
)

// Collision boxes. Horizontal checks compare bullet x against the target
// center; a delta strictly less than the half-width is a hit.
const (
	AlienCollisionH  = 3
	AlienCollisionV  = 1
	UFOCollisionH    = 3
	PlayerCollisionH = 2
)

// Barriers.
const (
	BarrierCount     = 4
	BarrierCols      = 6
	BarrierRows      = 3
	BarrierY         = 28
	SegmentMaxHealth = 4
)

// Wipe phase durations in ticks. A full wave transition is
// exit + hold + reveal = 120 ticks of paused gameplay.
const (
	WipeExitTicks   = 30
	WipeHoldTicks   = 30
	WipeRevealTicks = 60
)

// AlienType identifies the three formation ranks.
type AlienType string

const (
	AlienSquid   AlienType = "squid"
	AlienCrab    AlienType = "crab"
	AlienOctopus AlienType = "octopus"
)

// AlienRowSpec is one entry of the alien registry: which type fills a
// formation row and what a kill is worth.
type AlienRowSpec struct {
	Type   AlienType
	Points int
}

// AlienRowSpecFor returns the registry entry for a formation row.
// Row 0 is the top of the formation.
func AlienRowSpecFor(row int) AlienRowSpec {
	switch {
	case row == 0:
		return AlienRowSpec{Type: AlienSquid, Points: 30}
	case row <= 2:
		return AlienRowSpec{Type: AlienCrab, Points: 20}
	default:
		return AlienRowSpec{Type: AlienOctopus, Points: 10}
	}
}

// UFOPointValues is the score family a UFO kill is sampled from.
var UFOPointValues = [...]int{50, 100, 150, 300}

// Slot colors, indexed by slot-1. A slot is bound to a player for the
// lifetime of their connection and is returned to the pool on disconnect.
var slotColors = [MaxRoomPlayers]string{
	"#4ade80", // green
	"#60a5fa", // blue
	"#f472b6", // pink
	"#facc15", // yellow
}

// SlotColor returns the display color for a 1-based slot.
func SlotColor(slot int) string {
	if slot < 1 || slot > MaxRoomPlayers {
		return slotColors[0]
	}
	return slotColors[slot-1]
}

// SlotSpawnX returns the home x (center anchor) for a 1-based slot.
// Players respawn re-centered here.
func SlotSpawnX(slot int) int {
	if slot < 1 || slot > MaxRoomPlayers {
		slot = 1
	}
	return slot * (GridWidth / (MaxRoomPlayers + 1))
}

// FormationOriginX centers a formation of the given column count on the grid.
func FormationOriginX(cols int) int {
	width := (cols-1)*AlienColSpacing + AlienWidth
	return (GridWidth - width) / 2
}

// BarrierOriginX spreads barriers evenly across the grid, 0-based index.
func BarrierOriginX(index int) int {
	slot := GridWidth / (BarrierCount + 1)
	return slot*(index+1) - BarrierCols/2
}
