package types

import (
	"fmt"
	"math"
)

type Location struct {
	World string  `json:"world" bson:"world"`
	X     float64 `json:"x" bson:"x"`
	Y     float64 `json:"y" bson:"y"`
	Z     float64 `json:"z" bson:"z"`
}

type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Block returns the integer cell containing the location.
func (l Location) Block() BlockPos {
	return BlockPos{
		X: int(math.Floor(l.X)),
		Y: int(math.Floor(l.Y)),
		Z: int(math.Floor(l.Z)),
	}
}

// SameBlock reports whether both locations are in the same world cell.
// Head rotation and sub-block movement do not change the cell.
func (l Location) SameBlock(other Location) bool {
	return l.World == other.World && l.Block() == other.Block()
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.1f, %.1f, %.1f)", l.World, l.X, l.Y, l.Z)
}

// CenterOf returns the location at the horizontal center of a block cell.
func CenterOf(world string, pos BlockPos) Location {
	return Location{
		World: world,
		X:     float64(pos.X) + 0.5,
		Y:     float64(pos.Y),
		Z:     float64(pos.Z) + 0.5,
	}
}
