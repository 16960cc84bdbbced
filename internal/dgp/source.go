package dgp

import (
	"math/rand/v2"
)

// PCGStreams implements ports.RNGPort with PCG sources. The PCG increment is
// derived from the seed through splitmix64 so neighbouring seeds select
// unrelated streams as well as unrelated states.
type PCGStreams struct{}

// NewPCGStreams returns the default RNG port
func NewPCGStreams() PCGStreams {
	return PCGStreams{}
}

func (PCGStreams) Source(seed int64) rand.Source {
	s := uint64(seed)
	return rand.NewPCG(s, splitmix64(s))
}

func (p PCGStreams) SeededStream(seed int64) *rand.Rand {
	return rand.New(p.Source(seed))
}

func (PCGStreams) BlockSeed(base int64, index int) int64 {
	return base + int64(index)
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
