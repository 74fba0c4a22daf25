package model

import "math/rand"

// Spins is one spin configuration; every element is -1 or +1.
type Spins []int8

// AllUp returns a configuration of n up spins.
func AllUp(n int) Spins {
	s := make(Spins, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// RandomSpins draws each spin from an independent fair coin.
func RandomSpins(n int, rng *rand.Rand) Spins {
	s := make(Spins, n)
	s.Randomize(rng)
	return s
}

// Randomize overwrites s in place with fair coin flips.
func (s Spins) Randomize(rng *rand.Rand) {
	for i := range s {
		s[i] = int8(2*rng.Intn(2) - 1)
	}
}

// Clone returns a deep copy.
func (s Spins) Clone() Spins {
	c := make(Spins, len(s))
	copy(c, s)
	return c
}

// Broadcast returns p independent copies of s (Trotter slices).
func Broadcast(s Spins, p int) []Spins {
	confs := make([]Spins, p)
	for k := range confs {
		confs[k] = s.Clone()
	}
	return confs
}

// Valid reports whether every element is ±1.
func (s Spins) Valid() bool {
	for _, v := range s {
		if v != 1 && v != -1 {
			return false
		}
	}
	return true
}
