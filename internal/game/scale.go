package game

// ScaledConfig is the difficulty tuple derived from the current player count.
// It is recomputed where needed and never stored, so rejoining players change
// nothing retroactively and no code branches on hard-coded counts elsewhere.
type ScaledConfig struct {
	AlienCols         int
	AlienRows         int
	AlienMoveInterval int     // ticks between formation steps
	AlienShootRate    float64 // per column, per tick
	Lives             int
}

var scaleTable = map[int]ScaledConfig{
	1: {AlienCols: 11, AlienRows: 5, AlienMoveInterval: 18, AlienShootRate: 0.016, Lives: 3},
	2: {AlienCols: 13, AlienRows: 5, AlienMoveInterval: 16, AlienShootRate: 0.020, Lives: 5},
	3: {AlienCols: 14, AlienRows: 6, AlienMoveInterval: 14, AlienShootRate: 0.030, Lives: 5},
	4: {AlienCols: 15, AlienRows: 6, AlienMoveInterval: 12, AlienShootRate: 0.042, Lives: 5},
}

// ScaleFor returns the scaled config for a player count, clamped to 1..4.
func ScaleFor(playerCount int) ScaledConfig {
	if playerCount < 1 {
		playerCount = 1
	}
	if playerCount > MaxRoomPlayers {
		playerCount = MaxRoomPlayers
	}
	return scaleTable[playerCount]
}

// Scale returns the scaled config for the state's current player count.
func (s *GameState) Scale() ScaledConfig {
	return ScaleFor(s.PlayerCount())
}
