package locator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpcraft/randomtp/internal/types"
)

type column struct{ x, z int }

type fakeWorld struct {
	ground   int
	heights  map[column]int
	blocks   map[types.BlockPos]Material
	unloaded map[column]bool
}

func newFlatWorld(ground int) *fakeWorld {
	return &fakeWorld{
		ground:   ground,
		heights:  map[column]int{},
		blocks:   map[types.BlockPos]Material{},
		unloaded: map[column]bool{},
	}
}

func (w *fakeWorld) Name() string { return "test" }

func (w *fakeWorld) HighestSolidY(x, z int) int {
	if h, ok := w.heights[column{x, z}]; ok {
		return h
	}
	return w.ground
}

func (w *fakeWorld) IsChunkLoaded(x, z int) bool {
	return !w.unloaded[column{x, z}]
}

func (w *fakeWorld) MaterialAt(x, y, z int) Material {
	if m, ok := w.blocks[types.BlockPos{X: x, Y: y, Z: z}]; ok {
		return m
	}
	if y <= w.HighestSolidY(x, z) {
		return Grass
	}
	return Air
}

// centerRand always picks a zero offset and records every bound it was asked for.
type centerRand struct {
	calls []int
}

func (r *centerRand) IntN(n int) int {
	r.calls = append(r.calls, n)
	return n / 2
}

func baseQuery(w World) Query {
	return Query{
		World:           w,
		Origin:          types.Location{World: "test", X: 0.3, Y: 70, Z: 0.7},
		Radius:          100,
		MinY:            64,
		MaxY:            200,
		Strict:          true,
		AvoidWater:      true,
		AvoidLava:       true,
		HazardRadius:    2,
		MaxTries:        10,
		RelaxedAttempts: 5,
		FallbackRadius:  1000,
	}
}

func TestFinder_Strict(t *testing.T) {
	f := NewFinder(nil, &centerRand{})

	res, err := f.Find(t.Context(), baseQuery(newFlatWorld(70)))
	require.NoError(t, err)

	assert.Equal(t, PhaseStrict, res.Phase)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, types.Location{World: "test", X: 0.5, Y: 71, Z: 0.5}, res.Location)
}

func TestFinder_FallbackDropsSafetyChecks(t *testing.T) {
	const strictAndRelaxed = 10 + 5

	tests := []struct {
		name  string
		setup func(w *fakeWorld, q *Query)
	}{
		{
			name: "lava within hazard radius",
			setup: func(w *fakeWorld, q *Query) {
				w.blocks[types.BlockPos{X: 1, Y: 70, Z: 1}] = Lava
			},
		},
		{
			name: "explicit hazard within hazard radius",
			setup: func(w *fakeWorld, q *Query) {
				w.blocks[types.BlockPos{X: -2, Y: 72, Z: 0}] = Cactus
			},
		},
		{
			name: "below min y",
			setup: func(w *fakeWorld, q *Query) {
				q.MinY = 80
			},
		},
		{
			name: "above max y",
			setup: func(w *fakeWorld, q *Query) {
				q.MaxY = 65
			},
		},
		{
			name: "chunk not loaded",
			setup: func(w *fakeWorld, q *Query) {
				w.unloaded[column{0, 0}] = true
			},
		},
		{
			name: "no head room",
			setup: func(w *fakeWorld, q *Query) {
				w.blocks[types.BlockPos{X: 0, Y: 72, Z: 0}] = Stone
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFlatWorld(70)
			q := baseQuery(w)
			tt.setup(w, &q)

			res, err := NewFinder(nil, &centerRand{}).Find(t.Context(), q)
			require.NoError(t, err)
			assert.Equal(t, PhaseFallback, res.Phase)
			assert.Equal(t, strictAndRelaxed+1, res.Attempts)
			assert.Equal(t, types.Location{World: "test", X: 0.5, Y: 71, Z: 0.5}, res.Location)
		})
	}
}

func TestFinder_AvoidanceFlags(t *testing.T) {
	t.Run("water allowed", func(t *testing.T) {
		w := newFlatWorld(70)
		w.blocks[types.BlockPos{X: 2, Y: 70, Z: 0}] = Water
		q := baseQuery(w)
		q.AvoidWater = false

		res, err := NewFinder(nil, &centerRand{}).Find(t.Context(), q)
		require.NoError(t, err)
		assert.Equal(t, PhaseStrict, res.Phase)
	})
	t.Run("water avoided", func(t *testing.T) {
		w := newFlatWorld(70)
		w.blocks[types.BlockPos{X: 2, Y: 70, Z: 0}] = Water

		res, err := NewFinder(nil, &centerRand{}).Find(t.Context(), baseQuery(w))
		require.NoError(t, err)
		assert.Equal(t, PhaseFallback, res.Phase)
	})
	t.Run("hazard scan disabled", func(t *testing.T) {
		w := newFlatWorld(70)
		w.blocks[types.BlockPos{X: 0, Y: 71, Z: 1}] = Fire
		q := baseQuery(w)
		q.Strict = false

		res, err := NewFinder(nil, &centerRand{}).Find(t.Context(), q)
		require.NoError(t, err)
		assert.Equal(t, PhaseStrict, res.Phase)
	})
	t.Run("configured hazard", func(t *testing.T) {
		w := newFlatWorld(70)
		w.blocks[types.BlockPos{X: 1, Y: 71, Z: 1}] = "powder_snow"

		res, err := NewFinder(NewClassifier("Powder_Snow"), &centerRand{}).Find(t.Context(), baseQuery(w))
		require.NoError(t, err)
		assert.Equal(t, PhaseFallback, res.Phase)
	})
}

func TestFinder_NotFound(t *testing.T) {
	w := newFlatWorld(70)
	// the surface is water, there is never solid support
	w.blocks[types.BlockPos{X: 0, Y: 70, Z: 0}] = Water

	res, err := NewFinder(nil, &centerRand{}).Find(t.Context(), baseQuery(w))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 10+5+20, res.Attempts)
}

func TestFinder_PhaseOrder(t *testing.T) {
	w := newFlatWorld(70)
	w.blocks[types.BlockPos{X: 0, Y: 70, Z: 0}] = Lava

	t.Run("every phase in order", func(t *testing.T) {
		rng := &centerRand{}
		q := baseQuery(w)
		q.MaxTries = 2

		_, err := NewFinder(nil, rng).Find(t.Context(), q)
		require.ErrorIs(t, err, ErrNotFound)

		var expected []int
		for range 2 * 2 {
			expected = append(expected, 2*100+1)
		}
		for range 5 * 2 {
			expected = append(expected, 2*50+1)
		}
		for range 2 * 2 * 2 {
			expected = append(expected, 2*1000+1)
		}
		assert.Equal(t, expected, rng.calls)
	})
	t.Run("zero strict attempts still runs relaxed", func(t *testing.T) {
		rng := &centerRand{}
		q := baseQuery(w)
		q.MaxTries = 0

		res, err := NewFinder(nil, rng).Find(t.Context(), q)
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 5, res.Attempts)
		require.Len(t, rng.calls, 10)
		assert.Equal(t, 2*50+1, rng.calls[0])
	})
}

func TestFinder_RandomOffsetsStayInRadius(t *testing.T) {
	f := NewFinder(nil, nil)
	q := baseQuery(newFlatWorld(70))
	q.Origin = types.Location{World: "test", X: 500, Y: 70, Z: -500}
	q.Radius = 16

	for range 200 {
		res, err := f.Find(t.Context(), q)
		require.NoError(t, err)
		require.Equal(t, PhaseStrict, res.Phase)

		dx := math.Abs(math.Floor(res.Location.X) - 500)
		dz := math.Abs(math.Floor(res.Location.Z) + 500)
		assert.LessOrEqual(t, dx, 16.0)
		assert.LessOrEqual(t, dz, 16.0)
	}
}

func TestFinder_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewFinder(nil, &centerRand{}).Find(ctx, baseQuery(newFlatWorld(70)))
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassifier(t *testing.T) {
	c := NewClassifier("end_crystal")

	assert.Equal(t, Passable, c.Classify(CaveAir))
	assert.Equal(t, LiquidHazard, c.Classify(Lava))
	assert.Equal(t, ExplicitHazard, c.Classify(SweetBerryBush))
	assert.Equal(t, ExplicitHazard, c.Classify("end_crystal"))
	assert.Equal(t, ExplicitHazard, c.Classify(Obsidian))
	assert.Equal(t, Passable, c.Classify(TallGrass))
	assert.Equal(t, Passable, c.Classify(SnowLayer))
	assert.Equal(t, Solid, c.Classify(Snow))
	assert.Equal(t, Solid, c.Classify("glow_lichen"))

	c.WithPassable(" Glow_Lichen ")
	assert.Equal(t, Passable, c.Classify("glow_lichen"))

	// a hazard stays a hazard even when listed as passable
	c.WithPassable("wither_rose")
	assert.Equal(t, ExplicitHazard, c.Classify(WitherRose))
}

func TestFinder_StandsInVegetation(t *testing.T) {
	w := newFlatWorld(70)
	w.blocks[types.BlockPos{X: 0, Y: 71, Z: 0}] = ShortGrass
	w.blocks[types.BlockPos{X: 0, Y: 72, Z: 0}] = TallGrass

	res, err := NewFinder(nil, &centerRand{}).Find(t.Context(), baseQuery(w))
	require.NoError(t, err)
	assert.Equal(t, PhaseStrict, res.Phase)
	assert.Equal(t, types.Location{World: "test", X: 0.5, Y: 71, Z: 0.5}, res.Location)
}
