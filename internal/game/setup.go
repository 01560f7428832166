package game

import "errors"

var (
	// ErrRoomFull is returned when all four slots are taken.
	ErrRoomFull = errors.New("room full")
	// ErrNameTaken is returned when a joined player already uses the name.
	ErrNameTaken = errors.New("name taken")
)

// AddPlayer creates a player in the lowest free slot, centered at the slot's
// home x. The caller supplies the id (connection identity is owned by the
// room layer).
func AddPlayer(s *GameState, id, name string) (*Player, error) {
	if s.NameTaken(name) {
		return nil, ErrNameTaken
	}
	slot := s.FreeSlot()
	if slot == 0 {
		return nil, ErrRoomFull
	}
	p := &Player{
		ID:    id,
		Name:  name,
		Slot:  slot,
		Color: SlotColor(slot),
		X:     SlotSpawnX(slot),
		Alive: true,
	}
	s.Players[id] = p
	return p, nil
}

// RemovePlayer deletes a player and drops their ready flag. The slot frees
// implicitly since slots derive from the players map.
func RemovePlayer(s *GameState, id string) {
	delete(s.Players, id)
	s.SetReady(id, false)
}

// StartGame switches a waiting room into the opening wipe. Barriers are
// created here, once per game; waves only recreate aliens.
func StartGame(s *GameState, ids *IDSource, mode Mode) {
	scale := s.Scale()
	s.Mode = mode
	s.Status = StatusWipeHold
	wt := WipeHoldTicks
	s.WipeTicksRemaining = &wt
	s.Wave = 1
	wn := 1
	s.WipeWaveNumber = &wn
	s.Lives = scale.Lives
	s.Score = 0
	s.AlienDirection = 1
	s.CountdownRemaining = nil
	s.ReadyPlayerIDs = []string{}

	s.Entities = s.Entities[:0]
	createBarriers(s, ids)

	for _, p := range s.Players {
		p.Alive = true
		p.Kills = 0
		p.Lives = scale.Lives
		p.X = SlotSpawnX(p.Slot)
		p.LastShotTick = 0
		p.RespawnAtTick = nil
		p.InputState = InputState{}
	}
}

// ResetToWaiting returns a finished room to the lobby, keeping joined
// players but clearing all round state.
func ResetToWaiting(s *GameState) {
	s.Status = StatusWaiting
	s.Mode = ModeCoop
	s.Entities = []*Entity{}
	s.WipeTicksRemaining = nil
	s.WipeWaveNumber = nil
	s.CountdownRemaining = nil
	s.ReadyPlayerIDs = []string{}
	s.Wave = 1
	s.Score = 0
	s.Lives = 0
	s.AlienDirection = 1
	for _, p := range s.Players {
		p.Alive = true
		p.Kills = 0
		p.RespawnAtTick = nil
		p.InputState = InputState{}
		p.X = SlotSpawnX(p.Slot)
	}
}

// createBarriers lays out the four barrier blocks with full-health segments.
func createBarriers(s *GameState, ids *IDSource) {
	for i := 0; i < BarrierCount; i++ {
		segs := make([]Segment, 0, BarrierCols*BarrierRows)
		for row := 0; row < BarrierRows; row++ {
			for col := 0; col < BarrierCols; col++ {
				segs = append(segs, Segment{OffsetX: col, OffsetY: row, Health: SegmentMaxHealth})
			}
		}
		s.Entities = append(s.Entities, &Entity{
			ID:       ids.NextID(),
			Kind:     KindBarrier,
			X:        BarrierOriginX(i),
			Y:        BarrierY,
			Segments: segs,
		})
	}
}

// spawnFormation creates the wave's alien grid at reveal entry. All aliens
// come in entering: they cannot shoot and cannot be hit until the reveal
// phase ends.
func spawnFormation(s *GameState, ids *IDSource) {
	scale := s.Scale()
	originX := FormationOriginX(scale.AlienCols)
	for row := 0; row < scale.AlienRows; row++ {
		spec := AlienRowSpecFor(row)
		for col := 0; col < scale.AlienCols; col++ {
			s.Entities = append(s.Entities, &Entity{
				ID:       ids.NextID(),
				Kind:     KindAlien,
				X:        originX + col*AlienColSpacing,
				Y:        AlienTopY + row*AlienRowSpacing,
				Row:      row,
				Col:      col,
				Type:     spec.Type,
				Points:   spec.Points,
				Alive:    true,
				Entering: true,
			})
		}
	}
}
