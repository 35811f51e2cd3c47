// Package randutil derives reproducible rand/v2 sources for self-play and
// tests.
package randutil

import rand "math/rand/v2"

const gamma = 0x9e3779b97f4a7c15

// splitmix is a SplitMix64 state. It only expands seeds into PCG state.
type splitmix uint64

func (s *splitmix) next() uint64 {
	*s += gamma
	z := uint64(*s)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// New returns a *rand.Rand seeded deterministically from seed.
func New(seed int64) *rand.Rand {
	sm := splitmix(seed)
	return rand.New(rand.NewPCG(sm.next(), sm.next()))
}

// ForGame returns the source for game number index of a run seeded with
// seed. A single game can be replayed from (seed, index) alone.
func ForGame(seed int64, index int) *rand.Rand {
	run := splitmix(seed)
	game := splitmix(run.next() ^ uint64(index)*gamma)
	return rand.New(rand.NewPCG(game.next(), game.next()))
}
