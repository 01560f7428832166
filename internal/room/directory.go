package room

import (
	"crypto/rand"
	"log"
	"sync"
	"time"

	"invaders/internal/store"
)

const roomCodeLength = 6

const roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewRoomCode returns a random 6-character uppercase base36 code.
func NewRoomCode() string {
	var buf [roomCodeLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// treat that as fatal rather than handing out guessable codes.
		panic(err)
	}
	for i := range buf {
		buf[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
	}
	return string(buf[:])
}

// Directory maps room codes to live room actors. It creates rooms on demand,
// revives persisted rooms on lookup, and evicts rooms that clean themselves
// up. The directory is the only state shared across rooms, and it holds no
// game data.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*Room
	st    store.Store

	// onTick is installed on every room for metrics; may be nil.
	onTick func(d time.Duration)
}

// NewDirectory creates an empty directory over the given store.
func NewDirectory(st store.Store) *Directory {
	return &Directory{
		rooms: make(map[string]*Room),
		st:    st,
	}
}

// SetTickObserver installs a per-tick latency callback applied to rooms
// created afterwards.
func (d *Directory) SetTickObserver(fn func(d time.Duration)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onTick = fn
}

// Create allocates a fresh room under a new code and starts its loop.
func (d *Directory) Create() (string, *Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	code := NewRoomCode()
	for d.rooms[code] != nil {
		code = NewRoomCode()
	}
	r := d.startLocked(New(d.st), code)
	if err := r.Init(code); err != nil {
		return "", nil, err
	}
	log.Printf("directory: created room %s", code)
	return code, r, nil
}

// Get returns the live room for a code, reviving it from the store when a
// persisted record exists. Returns nil for unknown codes.
func (d *Directory) Get(code string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.rooms[code]; ok {
		return r
	}
	rec, err := d.st.Load(code)
	if err != nil {
		return nil
	}
	log.Printf("directory: revived room %s from store", code)
	return d.startLocked(Restore(d.st, rec), code)
}

// GetOrCreate returns the room for a code, creating an uninitialized shell
// when none exists. Used by the init endpoint, which owns initialization.
func (d *Directory) GetOrCreate(code string) *Room {
	if r := d.Get(code); r != nil {
		return r
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.rooms[code]; ok {
		return r
	}
	return d.startLocked(New(d.st), code)
}

// startLocked registers a room under a code and launches its loop.
// Caller holds d.mu.
func (d *Directory) startLocked(r *Room, code string) *Room {
	r.OnEmpty = d.evict
	if d.onTick != nil {
		r.OnTick = d.onTick
	}
	d.rooms[code] = r
	go r.Run()
	return r
}

// evict drops a room that finished its idle cleanup.
func (d *Directory) evict(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rooms, code)
	log.Printf("directory: evicted idle room %s", code)
}

// Len returns the number of live rooms.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// Shutdown stops every room loop. Rooms persist after each mutation, so no
// extra flush is needed here.
func (d *Directory) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for code, r := range d.rooms {
		r.Stop()
		delete(d.rooms, code)
	}
}
