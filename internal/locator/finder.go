package locator

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/rtpcraft/randomtp/internal/types"
)

var ErrNotFound = errors.New("no safe location found")

// Phase is the search stage that produced a location.
type Phase string

const (
	PhaseStrict   Phase = "strict"
	PhaseRelaxed  Phase = "relaxed"
	PhaseFallback Phase = "fallback"
)

// Rand is the source of candidate offsets.
type Rand interface {
	// IntN returns a value in [0, n).
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n) //nolint:gosec
}

type Query struct {
	World  World
	Origin types.Location
	Radius int
	MinY   int
	MaxY   int
	// Strict enables the hazard scan in the strict and relaxed phases.
	Strict          bool
	AvoidWater      bool
	AvoidLava       bool
	HazardRadius    int
	MaxTries        int
	RelaxedAttempts int
	FallbackRadius  int
}

type Result struct {
	Location types.Location
	Phase    Phase
	// Attempts counts every probed column, failed phases included.
	Attempts int
}

type Finder struct {
	classifier *Classifier
	rng        Rand
}

func NewFinder(classifier *Classifier, rng Rand) *Finder {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if rng == nil {
		rng = globalRand{}
	}
	return &Finder{
		classifier: classifier,
		rng:        rng,
	}
}

type stage struct {
	phase    Phase
	radius   int
	attempts int
	accept   func(q Query, x, z int) (int, bool)
}

// Find probes random columns around the query origin in three phases and
// returns the first acceptable destination. Each phase runs its full attempt
// budget before the next one starts.
func (f *Finder) Find(ctx context.Context, q Query) (Result, error) {
	stages := []stage{
		{phase: PhaseStrict, radius: q.Radius, attempts: q.MaxTries, accept: f.strict},
		{phase: PhaseRelaxed, radius: q.Radius / 2, attempts: q.RelaxedAttempts, accept: f.strict},
		{phase: PhaseFallback, radius: q.FallbackRadius, attempts: 2 * q.MaxTries, accept: f.minimal},
	}

	origin := q.Origin.Block()
	attempts := 0
	for _, s := range stages {
		for range s.attempts {
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempts}, err
			}
			attempts++

			x := origin.X + f.offset(s.radius)
			z := origin.Z + f.offset(s.radius)
			y, ok := s.accept(q, x, z)
			if !ok {
				continue
			}

			return Result{
				Location: types.CenterOf(q.World.Name(), types.BlockPos{X: x, Y: y, Z: z}),
				Phase:    s.phase,
				Attempts: attempts,
			}, nil
		}
	}

	return Result{Attempts: attempts}, ErrNotFound
}

func (f *Finder) offset(radius int) int {
	if radius <= 0 {
		return 0
	}
	return f.rng.IntN(2*radius+1) - radius
}

// strict accepts a column inside the vertical bounds of a loaded chunk with
// solid support, two free cells and, when enabled, no hazard nearby. It
// returns the y of the destination cell.
func (f *Finder) strict(q Query, x, z int) (int, bool) {
	if !q.World.IsChunkLoaded(x, z) {
		return 0, false
	}

	ground := q.World.HighestSolidY(x, z)
	if ground < q.MinY || ground > q.MaxY {
		return 0, false
	}

	if !f.standable(q.World, x, ground, z) {
		return 0, false
	}

	if !f.is(q.World, x, ground+2, z, Passable) {
		return 0, false
	}

	if q.Strict && f.hazardNear(q, x, ground+1, z) {
		return 0, false
	}

	return ground + 1, true
}

// minimal only needs solid support and a free destination cell.
func (f *Finder) minimal(q Query, x, z int) (int, bool) {
	ground := q.World.HighestSolidY(x, z)
	if !f.standable(q.World, x, ground, z) {
		return 0, false
	}
	return ground + 1, true
}

func (f *Finder) standable(w World, x, ground, z int) bool {
	return f.is(w, x, ground, z, Solid) && f.is(w, x, ground+1, z, Passable)
}

func (f *Finder) is(w World, x, y, z int, class Class) bool {
	return f.classifier.Classify(w.MaterialAt(x, y, z)) == class
}

func (f *Finder) hazardNear(q Query, x, y, z int) bool {
	r := q.HazardRadius
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				m := q.World.MaterialAt(x+dx, y+dy, z+dz)
				switch f.classifier.Classify(m) {
				case ExplicitHazard:
					return true
				case LiquidHazard:
					if (m == Water && q.AvoidWater) || (m == Lava && q.AvoidLava) {
						return true
					}
				}
			}
		}
	}
	return false
}
