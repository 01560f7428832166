package game

// NextRand advances a mulberry32 generator. The whole generator state is the
// 32-bit seed stored on GameState, so a persisted state replays identically.
// Returns the next seed and a value in [0, 1).
func NextRand(seed uint32) (uint32, float64) {
	seed += 0x6D2B79F5
	z := seed
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	z ^= z >> 14
	return seed, float64(z) / 4294967296.0
}

// Roll draws from the state's RNG, mutating the stored seed. The reducer must
// use only this for randomness (UFO timing, alien shots, UFO score).
func (s *GameState) Roll() float64 {
	seed, v := NextRand(s.RNGSeed)
	s.RNGSeed = seed
	return v
}

// SeedForRoom derives a stable initial seed from a room code (FNV-1a), so a
// fresh room is reproducible from its code alone.
func SeedForRoom(roomID string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(roomID); i++ {
		h ^= uint32(roomID[i])
		h *= 16777619
	}
	if h == 0 {
		h = 1
	}
	return h
}
