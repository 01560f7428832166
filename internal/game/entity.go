package game

import "fmt"

// EntityKind tags the entity union. Collision routines switch on it.
type EntityKind string

const (
	KindAlien   EntityKind = "alien"
	KindBullet  EntityKind = "bullet"
	KindBarrier EntityKind = "barrier"
	KindUFO     EntityKind = "ufo"
)

// Segment is one damageable cell of a barrier. Segments at health 0 stop
// colliding but stay in the slice so offsets remain stable across waves.
type Segment struct {
	OffsetX int `json:"offsetX"`
	OffsetY int `json:"offsetY"`
	Health  int `json:"health"`
}

// Entity is the tagged union for everything on the field besides players.
// Fields outside the kind's column are zero. Aliens, barriers and UFOs anchor
// x at their left edge; bullets anchor at their center.
type Entity struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
	X    int        `json:"x"`
	Y    int        `json:"y"`

	// alien
	Row      int       `json:"row,omitempty"`
	Col      int       `json:"col,omitempty"`
	Type     AlienType `json:"type,omitempty"`
	Alive    bool      `json:"alive,omitempty"` // also ufo
	Points   int       `json:"points,omitempty"`
	Entering bool      `json:"entering,omitempty"`

	// bullet
	OwnerID string `json:"ownerId,omitempty"` // empty means alien-owned
	DY      int    `json:"dy,omitempty"`      // -1 player bullet, +1 alien bullet

	// barrier
	Segments []Segment `json:"segments,omitempty"`

	// ufo
	Direction int `json:"direction,omitempty"`
}

// CenterX returns the horizontal center for left-anchored kinds; bullets are
// already center-anchored.
func (e *Entity) CenterX() int {
	switch e.Kind {
	case KindAlien:
		return e.X + AlienWidth/2
	case KindUFO:
		return e.X + UFOWidth/2
	default:
		return e.X
	}
}

// IDSource allocates monotonically increasing entity ids "e_N". The counter
// is persisted atomically with state and is never recycled within a room.
type IDSource struct {
	next int64
}

// NewIDSource resumes allocation from a persisted counter value.
func NewIDSource(next int64) *IDSource {
	if next < 1 {
		next = 1
	}
	return &IDSource{next: next}
}

// NextID returns a fresh entity id and advances the counter.
func (s *IDSource) NextID() string {
	id := fmt.Sprintf("e_%d", s.next)
	s.next++
	return id
}

// Next reports the counter value to persist.
func (s *IDSource) Next() int64 {
	return s.next
}
