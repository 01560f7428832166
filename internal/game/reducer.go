package game

import "sort"

// Reduce advances the simulation by exactly one tick. It is deterministic
// given (state, actions) and performs no I/O: all randomness flows through
// the state's seed and all ids through the supplied source. The step order
// is fixed; reordering it changes replay behavior.
func Reduce(s *GameState, ids *IDSource, actions []Action) []Event {
	var events []Event

	// 1. Advance the clock.
	s.Tick++

	// 2. Wipe phases only count down; gameplay is paused.
	if s.Status.InWipe() {
		advanceWipe(s, ids)
		return events
	}

	// 3. Nothing else runs outside of play.
	if s.Status != StatusPlaying {
		return events
	}

	// 4. Queued player actions, in receive order.
	events = applyActions(s, ids, actions, events)
	if s.Status != StatusPlaying { // forfeit
		return events
	}

	// 5. Held-key movement.
	applyHeldInput(s)

	// 6. Bullet movement.
	moveBullets(s)

	// 7. Formation movement, edge flip, descent, invasion.
	if invaded := moveAliens(s); invaded {
		events = append(events, Event{Name: EventInvasion})
		events = setGameOver(s, events)
		return events
	}

	// 8. Alien shooting.
	events = alienShooting(s, ids, events)

	// 9. UFO spawn and travel.
	events = updateUFO(s, ids, events)

	// 10. Collisions, in fixed category order; a bullet is consumed by its
	// first hit.
	events = resolveCollisions(s, events)

	// 11. Respawns.
	events = respawnPlayers(s, events)

	// 12. End of wave.
	if s.Status == StatusPlaying && !anyAliensLeft(s) {
		s.Wave++
		events = append(events, Event{Name: EventWaveComplete, Data: WaveCompleteData{Wave: s.Wave}})
		beginWaveTransition(s)
		return events
	}

	// 13. Defeat on an empty lives pool.
	if s.Status == StatusPlaying && s.Lives <= 0 && s.PlayerCount() > 0 {
		events = setGameOver(s, events)
	}

	return events
}

// advanceWipe decrements the phase counter and transitions
// exit -> hold -> reveal -> playing when it reaches zero.
func advanceWipe(s *GameState, ids *IDSource) {
	if s.WipeTicksRemaining == nil {
		d := wipeDuration(s.Status)
		s.WipeTicksRemaining = &d
	}
	*s.WipeTicksRemaining--
	if *s.WipeTicksRemaining > 0 {
		return
	}
	switch s.Status {
	case StatusWipeExit:
		s.Status = StatusWipeHold
		d := WipeHoldTicks
		s.WipeTicksRemaining = &d
	case StatusWipeHold:
		s.Status = StatusWipeReveal
		d := WipeRevealTicks
		s.WipeTicksRemaining = &d
		spawnFormation(s, ids)
	case StatusWipeReveal:
		s.Status = StatusPlaying
		s.WipeTicksRemaining = nil
		for _, e := range s.Entities {
			if e.Kind == KindAlien {
				e.Entering = false
			}
		}
	}
}

func applyActions(s *GameState, ids *IDSource, actions []Action, events []Event) []Event {
	for _, a := range actions {
		p := s.Players[a.PlayerID]
		if p == nil {
			continue
		}
		switch a.Kind {
		case ActionInput:
			p.InputState = a.Held
		case ActionMove:
			if p.Alive {
				p.X = clampPlayerX(p.X + a.Dir*PlayerMoveSpeed)
			}
		case ActionShoot:
			if p.Alive && s.Tick-p.LastShotTick >= PlayerShotCooldownTicks {
				p.LastShotTick = s.Tick
				s.Entities = append(s.Entities, &Entity{
					ID:      ids.NextID(),
					Kind:    KindBullet,
					X:       p.X,
					Y:       PlayerY - 1,
					OwnerID: p.ID,
					DY:      -1,
				})
			}
		case ActionForfeit:
			events = setGameOver(s, events)
			return events
		}
	}
	return events
}

// applyHeldInput moves players by their held keys. Left accumulates before
// right and the sum is clamped once, so holding both keys nets zero movement
// even against a wall.
func applyHeldInput(s *GameState) {
	for _, p := range playersBySlot(s) {
		if !p.Alive {
			continue
		}
		dx := 0
		if p.InputState.Left {
			dx -= PlayerMoveSpeed
		}
		if p.InputState.Right {
			dx += PlayerMoveSpeed
		}
		if dx != 0 {
			p.X = clampPlayerX(p.X + dx)
		}
	}
}

func moveBullets(s *GameState) {
	n := 0
	for _, e := range s.Entities {
		if e.Kind == KindBullet {
			e.Y += e.DY * BulletSpeed
			if e.Y < 0 || e.Y >= GridHeight {
				continue
			}
		}
		s.Entities[n] = e
		n++
	}
	s.Entities = s.Entities[:n]
}

// moveAliens steps the formation on its scaled interval. When any live alien
// would cross the horizontal bounds the whole formation flips direction and
// descends one row spacing instead of moving sideways. Returns true when the
// formation has reached the invasion row.
func moveAliens(s *GameState) bool {
	scale := s.Scale()
	if scale.AlienMoveInterval <= 0 || s.Tick%int64(scale.AlienMoveInterval) != 0 {
		return false
	}

	dx := AlienStepX * s.AlienDirection
	crossing := false
	for _, e := range s.Entities {
		if e.Kind != KindAlien || !e.Alive {
			continue
		}
		next := e.X + dx
		if next < AlienMinX || next+AlienWidth > AlienMaxX {
			crossing = true
			break
		}
	}

	for _, e := range s.Entities {
		if e.Kind != KindAlien || !e.Alive {
			continue
		}
		if crossing {
			e.Y += AlienRowSpacing
		} else {
			e.X += dx
		}
	}
	if crossing {
		s.AlienDirection = -s.AlienDirection
	}

	for _, e := range s.Entities {
		if e.Kind == KindAlien && e.Alive && e.Y >= GameOverY {
			return true
		}
	}
	return false
}

// alienShooting rolls one shot chance per column for the frontmost live
// alien. Columns roll in ascending order so replays stay deterministic.
func alienShooting(s *GameState, ids *IDSource, events []Event) []Event {
	if s.AlienShootingDisabled {
		return events
	}
	scale := s.Scale()

	front := make(map[int]*Entity)
	cols := make([]int, 0, scale.AlienCols)
	for _, e := range s.Entities {
		if e.Kind != KindAlien || !e.Alive || e.Entering {
			continue
		}
		cur, ok := front[e.Col]
		if !ok {
			cols = append(cols, e.Col)
		}
		if !ok || e.Y > cur.Y {
			front[e.Col] = e
		}
	}
	sort.Ints(cols)

	for _, col := range cols {
		if s.Roll() >= scale.AlienShootRate {
			continue
		}
		shooter := front[col]
		s.Entities = append(s.Entities, &Entity{
			ID:   ids.NextID(),
			Kind: KindBullet,
			X:    shooter.CenterX(),
			Y:    shooter.Y + 1,
			DY:   1,
		})
	}
	return events
}

func updateUFO(s *GameState, ids *IDSource, events []Event) []Event {
	ufo := s.UFO()
	if ufo == nil {
		if s.Roll() >= UFOSpawnChance {
			return events
		}
		x, dir := 0, 1
		if s.Roll() >= 0.5 {
			x, dir = GridWidth-UFOWidth, -1
		}
		points := UFOPointValues[int(s.Roll()*float64(len(UFOPointValues)))%len(UFOPointValues)]
		s.Entities = append(s.Entities, &Entity{
			ID:        ids.NextID(),
			Kind:      KindUFO,
			X:         x,
			Y:         UFOY,
			Alive:     true,
			Points:    points,
			Direction: dir,
		})
		return append(events, Event{Name: EventUFOSpawn, Data: UFOSpawnData{X: x}})
	}

	ufo.X += ufo.Direction * UFOStepX
	if ufo.X+UFOWidth < 0 || ufo.X > GridWidth {
		removeEntity(s, ufo.ID)
	}
	return events
}

// Collision predicates. Horizontal deltas strictly below the half-width hit;
// at exactly the half-width they miss.

func checkAlienHit(bullet, alien *Entity) bool {
	return alien.Alive && !alien.Entering &&
		abs(bullet.X-alien.CenterX()) < AlienCollisionH &&
		abs(bullet.Y-alien.Y) <= AlienCollisionV
}

func checkUFOHit(bullet, ufo *Entity) bool {
	return ufo.Alive &&
		abs(bullet.X-ufo.CenterX()) < UFOCollisionH &&
		abs(bullet.Y-ufo.Y) <= 1
}

func checkPlayerHit(bullet *Entity, p *Player) bool {
	return p.Alive &&
		abs(bullet.X-p.X) <= PlayerCollisionH &&
		bullet.Y == PlayerY
}

func checkBarrierSegmentHit(bullet, barrier *Entity, seg *Segment) bool {
	return seg.Health > 0 &&
		bullet.X == barrier.X+seg.OffsetX &&
		bullet.Y == barrier.Y+seg.OffsetY
}

func resolveCollisions(s *GameState, events []Event) []Event {
	consumed := make(map[string]bool)

	// a. Player bullets vs aliens.
	for _, b := range s.Entities {
		if b.Kind != KindBullet || b.DY != -1 || consumed[b.ID] {
			continue
		}
		for _, a := range s.Entities {
			if a.Kind != KindAlien || !checkAlienHit(b, a) {
				continue
			}
			a.Alive = false
			consumed[b.ID] = true
			s.Score += a.Points
			if owner := s.Players[b.OwnerID]; owner != nil {
				owner.Kills++
			}
			events = append(events,
				Event{Name: EventAlienKilled, Data: AlienKilledData{AlienID: a.ID, PlayerID: b.OwnerID}},
				Event{Name: EventScoreAwarded, Data: ScoreAwardedData{PlayerID: b.OwnerID, Points: a.Points, Source: ScoreSourceAlien}},
			)
			break
		}
	}

	// b. Player bullets vs UFO.
	if ufo := s.UFO(); ufo != nil {
		for _, b := range s.Entities {
			if b.Kind != KindBullet || b.DY != -1 || consumed[b.ID] {
				continue
			}
			if !checkUFOHit(b, ufo) {
				continue
			}
			ufo.Alive = false
			consumed[b.ID] = true
			s.Score += ufo.Points
			events = append(events,
				Event{Name: EventScoreAwarded, Data: ScoreAwardedData{PlayerID: b.OwnerID, Points: ufo.Points, Source: ScoreSourceUFO}},
			)
			removeEntity(s, ufo.ID)
			break
		}
	}

	// c. Alien bullets vs players, slot order for determinism.
	players := playersBySlot(s)
	for _, b := range s.Entities {
		if b.Kind != KindBullet || b.DY != 1 || consumed[b.ID] {
			continue
		}
		for _, p := range players {
			if !checkPlayerHit(b, p) {
				continue
			}
			consumed[b.ID] = true
			p.Alive = false
			s.Lives--
			p.Lives = s.Lives
			at := s.Tick + RespawnDelayTicks
			p.RespawnAtTick = &at
			events = append(events, Event{Name: EventPlayerDied, Data: PlayerIDData{PlayerID: p.ID}})
			break
		}
	}

	// d. Any remaining bullet vs barrier segments (point collision).
	for _, b := range s.Entities {
		if b.Kind != KindBullet || consumed[b.ID] {
			continue
		}
		for _, bar := range s.Entities {
			if bar.Kind != KindBarrier || consumed[b.ID] {
				continue
			}
			for i := range bar.Segments {
				seg := &bar.Segments[i]
				if !checkBarrierSegmentHit(b, bar, seg) {
					continue
				}
				seg.Health--
				consumed[b.ID] = true
				break
			}
		}
	}

	if len(consumed) > 0 {
		n := 0
		for _, e := range s.Entities {
			if consumed[e.ID] {
				continue
			}
			s.Entities[n] = e
			n++
		}
		s.Entities = s.Entities[:n]
	}
	return events
}

func respawnPlayers(s *GameState, events []Event) []Event {
	for _, p := range playersBySlot(s) {
		if p.Alive || p.RespawnAtTick == nil || *p.RespawnAtTick > s.Tick || s.Lives <= 0 {
			continue
		}
		p.Alive = true
		p.RespawnAtTick = nil
		p.X = SlotSpawnX(p.Slot)
		events = append(events, Event{Name: EventPlayerRespawned, Data: PlayerIDData{PlayerID: p.ID}})
	}
	return events
}

// beginWaveTransition enters wipe_exit and sweeps the field: dead aliens and
// in-flight bullets go, barriers persist with their accumulated damage.
func beginWaveTransition(s *GameState) {
	s.Status = StatusWipeExit
	d := WipeExitTicks
	s.WipeTicksRemaining = &d
	wn := s.Wave
	s.WipeWaveNumber = &wn

	n := 0
	for _, e := range s.Entities {
		if e.Kind == KindBarrier {
			s.Entities[n] = e
			n++
		}
	}
	s.Entities = s.Entities[:n]
}

func setGameOver(s *GameState, events []Event) []Event {
	s.Status = StatusGameOver
	s.WipeTicksRemaining = nil
	s.CountdownRemaining = nil
	return append(events, Event{Name: EventGameOver, Data: GameOverData{Result: ResultDefeat}})
}

func anyAliensLeft(s *GameState) bool {
	for _, e := range s.Entities {
		if e.Kind == KindAlien && e.Alive {
			return true
		}
	}
	return false
}

func removeEntity(s *GameState, id string) {
	n := 0
	for _, e := range s.Entities {
		if e.ID == id {
			continue
		}
		s.Entities[n] = e
		n++
	}
	s.Entities = s.Entities[:n]
}

// playersBySlot returns players in slot order. Map iteration order would make
// replays nondeterministic.
func playersBySlot(s *GameState) []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func clampPlayerX(x int) int {
	if x < PlayerMinX {
		return PlayerMinX
	}
	if x > PlayerMaxX {
		return PlayerMaxX
	}
	return x
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
