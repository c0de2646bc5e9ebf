package booking

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// IDGenerator produces booking references like WD-2025-482731234: prefix,
// year, five random digits and the last four digits of the epoch millisecond.
type IDGenerator struct {
	prefix string
	mu     sync.Mutex
	rng    *rand.Rand
}

func NewIDGenerator(prefix string, seed uint64) *IDGenerator {
	if prefix == "" {
		prefix = "WD"
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &IDGenerator{prefix: prefix, rng: rand.New(rand.NewPCG(seed, seed>>1))}
}

func (g *IDGenerator) New(now time.Time) string {
	g.mu.Lock()
	random := g.rng.IntN(90000) + 10000
	g.mu.Unlock()
	return fmt.Sprintf("%s-%d-%d%04d", g.prefix, now.Year(), random, now.UnixMilli()%10000)
}
