package world

import (
	"math"

	"github.com/rtpcraft/randomtp/internal/config"
	"github.com/rtpcraft/randomtp/internal/locator"
)

const (
	minHeight    = 40
	heightSpread = 80
	cellSize     = 32

	lavaPoolOdds = 97
	cactusOdds   = 211
)

// Terrain is a deterministic generated world: a value-noise heightmap with
// oceans below sea level, scattered lava pools and cacti on sand. It holds no
// mutable state and is safe for concurrent use.
type Terrain struct {
	name         string
	seed         uint64
	seaLevel     int
	loadedRadius int
}

func NewTerrain(cfg *config.WorldConfig) *Terrain {
	return &Terrain{
		name:         cfg.Name,
		seed:         uint64(cfg.Seed),
		seaLevel:     cfg.SeaLevel,
		loadedRadius: cfg.LoadedRadius,
	}
}

func (t *Terrain) Name() string {
	return t.name
}

func (t *Terrain) IsChunkLoaded(x, z int) bool {
	// whole chunks are loaded, so compare chunk coordinates
	limit := t.loadedRadius >> 4
	return abs(x>>4) <= limit && abs(z>>4) <= limit
}

func (t *Terrain) HighestSolidY(x, z int) int {
	h := t.ground(x, z)
	if h < t.seaLevel {
		return t.seaLevel
	}
	if t.hasCactus(x, z, h) {
		return h + 1
	}
	return h
}

func (t *Terrain) MaterialAt(x, y, z int) locator.Material {
	h := t.ground(x, z)
	switch {
	case y > h:
		if y <= t.seaLevel {
			return locator.Water
		}
		if y == h+1 && t.hasCactus(x, z, h) {
			return locator.Cactus
		}
		return locator.Air
	case y < h-3:
		return locator.Stone
	case y < h:
		return locator.Dirt
	}

	// surface block
	switch {
	case t.hasLavaPool(x, z):
		return locator.Lava
	case h <= t.seaLevel+2:
		return locator.Sand
	case h >= t.seaLevel+45:
		return locator.Snow
	case h >= t.seaLevel+30:
		return locator.Gravel
	default:
		return locator.Grass
	}
}

func (t *Terrain) ground(x, z int) int {
	n := t.noise(float64(x)/cellSize, float64(z)/cellSize)
	return minHeight + int(n*heightSpread)
}

func (t *Terrain) hasLavaPool(x, z int) bool {
	return t.hash(x>>3, z>>3, 1)%lavaPoolOdds == 0
}

func (t *Terrain) hasCactus(x, z, h int) bool {
	if h < t.seaLevel || h > t.seaLevel+2 {
		return false
	}
	return t.hash(x, z, 2)%cactusOdds == 0
}

// noise is bilinear value noise in [0, 1).
func (t *Terrain) noise(fx, fz float64) float64 {
	x0, z0 := math.Floor(fx), math.Floor(fz)
	ix, iz := int(x0), int(z0)
	tx, tz := smooth(fx-x0), smooth(fz-z0)

	v00 := t.unit(ix, iz)
	v10 := t.unit(ix+1, iz)
	v01 := t.unit(ix, iz+1)
	v11 := t.unit(ix+1, iz+1)

	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*tz
}

func (t *Terrain) unit(x, z int) float64 {
	return float64(t.hash(x, z, 0)%1_000_000) / 1_000_000
}

// hash mixes a lattice point with the seed (splitmix64 finalizer).
func (t *Terrain) hash(x, z int, salt uint64) uint64 {
	h := t.seed ^ (uint64(int64(x)) * 0x9E3779B97F4A7C15) ^ (uint64(int64(z)) * 0xC2B2AE3D27D4EB4F) ^ salt
	h ^= h >> 30
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 27
	h *= 0x94D049BB133111EB
	h ^= h >> 31
	return h
}

func smooth(v float64) float64 {
	return v * v * (3 - 2*v)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
