package locator

import (
	"strings"
)

// Material names a block type as reported by a World.
type Material string

const (
	Air     Material = "air"
	CaveAir Material = "cave_air"
	VoidAir Material = "void_air"

	Water Material = "water"
	Lava  Material = "lava"

	Fire           Material = "fire"
	SoulFire       Material = "soul_fire"
	Cactus         Material = "cactus"
	SweetBerryBush Material = "sweet_berry_bush"
	WitherRose     Material = "wither_rose"
	Campfire       Material = "campfire"
	SoulCampfire   Material = "soul_campfire"
	MagmaBlock     Material = "magma_block"
	Obsidian       Material = "obsidian"
	EndCrystal     Material = "end_crystal"

	ShortGrass Material = "short_grass"
	TallGrass  Material = "tall_grass"
	Fern       Material = "fern"
	DeadBush   Material = "dead_bush"
	Dandelion  Material = "dandelion"
	Poppy      Material = "poppy"
	SnowLayer  Material = "snow"

	Stone  Material = "stone"
	Grass  Material = "grass_block"
	Dirt   Material = "dirt"
	Sand   Material = "sand"
	Gravel Material = "gravel"
	Snow   Material = "snow_block"
)

// Class is the safety category of a material.
type Class int

const (
	Solid Class = iota
	Passable
	LiquidHazard
	ExplicitHazard
)

func (c Class) String() string {
	switch c {
	case Solid:
		return "solid"
	case Passable:
		return "passable"
	case LiquidHazard:
		return "liquid-hazard"
	case ExplicitHazard:
		return "explicit-hazard"
	default:
		return "unknown"
	}
}

var defaultHazards = []Material{
	Fire, SoulFire, Cactus, SweetBerryBush, WitherRose, Campfire, SoulCampfire, MagmaBlock,
	Obsidian, EndCrystal,
}

// non-solid blocks a participant can stand in besides air
var defaultPassable = []Material{
	ShortGrass, TallGrass, Fern, DeadBush, Dandelion, Poppy, SnowLayer,
}

// Classifier maps materials to classes. Unknown materials are solid.
// Hazards win over passable materials.
type Classifier struct {
	hazards  map[Material]struct{}
	passable map[Material]struct{}
}

// NewClassifier returns a classifier knowing the default hazards plus extra,
// given as material names in any case.
func NewClassifier(extra ...string) *Classifier {
	return &Classifier{
		hazards:  materialSet(defaultHazards, extra),
		passable: materialSet(defaultPassable, nil),
	}
}

// WithPassable adds materials a participant may stand in, given as names in
// any case.
func (c *Classifier) WithPassable(names ...string) *Classifier {
	for m := range materialSet(nil, names) {
		c.passable[m] = struct{}{}
	}
	return c
}

func materialSet(defaults []Material, names []string) map[Material]struct{} {
	set := make(map[Material]struct{}, len(defaults)+len(names))
	for _, m := range defaults {
		set[m] = struct{}{}
	}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			set[Material(name)] = struct{}{}
		}
	}
	return set
}

func (c *Classifier) Classify(m Material) Class {
	switch m {
	case Air, CaveAir, VoidAir:
		return Passable
	case Water, Lava:
		return LiquidHazard
	}
	if _, ok := c.hazards[m]; ok {
		return ExplicitHazard
	}
	if _, ok := c.passable[m]; ok {
		return Passable
	}
	return Solid
}
