package availability

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Domenick1991/westbrook/internal/domain"
)

const DefaultHorizonDays = 90

// Generator fabricates a per-date room count. It stands in for an inventory
// source and is not stable across sessions unless seeded.
type Generator struct {
	mu              sync.Mutex
	rng             *rand.Rand
	horizonDays     int
	weekendDays     map[time.Weekday]bool
	blackoutOffsets map[int]bool
}

type GeneratorOption func(*Generator)

func WithHorizonDays(days int) GeneratorOption {
	return func(g *Generator) {
		if days > 0 {
			g.horizonDays = days
		}
	}
}

func WithWeekendDays(days ...time.Weekday) GeneratorOption {
	return func(g *Generator) {
		g.weekendDays = make(map[time.Weekday]bool, len(days))
		for _, d := range days {
			g.weekendDays[d] = true
		}
	}
}

func WithBlackoutOffsets(offsets ...int) GeneratorOption {
	return func(g *Generator) {
		g.blackoutOffsets = make(map[int]bool, len(offsets))
		for _, o := range offsets {
			g.blackoutOffsets[o] = true
		}
	}
}

// WithSeed makes generation reproducible.
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		horizonDays: DefaultHorizonDays,
	}
	WithWeekendDays(time.Friday, time.Saturday)(g)
	WithBlackoutOffsets(15, 30, 45)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) HorizonDays() int {
	return g.horizonDays
}

// Generate covers today and the following horizon-1 days.
func (g *Generator) Generate(today domain.Date) domain.AvailabilityMap {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(domain.AvailabilityMap, g.horizonDays)
	for i := 0; i < g.horizonDays; i++ {
		day := today.AddDays(i)

		var rooms int
		if g.weekendDays[day.Weekday()] {
			if g.rng.Float64() < 0.4 {
				rooms = 0
			} else {
				rooms = g.rng.IntN(3)
			}
		} else {
			if g.rng.Float64() < 0.2 {
				rooms = 0
			} else {
				rooms = g.rng.IntN(8) + 1
			}
		}

		if g.blackoutOffsets[i] {
			rooms = 0
		}

		out[day.String()] = domain.DayAvailability{
			RoomsLeft: rooms,
			Status:    domain.StatusForRooms(rooms),
		}
	}
	return out
}
