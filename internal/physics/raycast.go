package physics

import (
	"math"

	"voxelworld/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 5.0
)

// VoxelReader answers the read-only queries ray and box tests need.
type VoxelReader interface {
	IsAir(x, y, z int) bool
}

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	HitPosition      [3]int
	AdjacentPosition [3]int
	Distance         float32
	Hit              bool
}

// Raycast walks the cells pierced by the ray from start along direction and
// returns the first non-air cell entered at a distance in [minDist, maxDist].
// Cell (x, y, z) spans [x, x+1) on every axis.
func Raycast(start mgl32.Vec3, direction mgl32.Vec3, minDist, maxDist float32, voxels VoxelReader) RaycastResult {
	defer profiling.Track("physics.Raycast")()

	result := RaycastResult{Hit: false}
	if direction.Len() == 0 {
		return result
	}
	dir := direction.Normalize()

	var (
		cell   [3]int
		step   [3]int
		tMax   [3]float64
		tDelta [3]float64
	)
	for a := 0; a < 3; a++ {
		s := float64(start[a])
		d := float64(dir[a])
		cell[a] = int(math.Floor(s))
		switch {
		case d > 0:
			step[a] = 1
			tMax[a] = (float64(cell[a]+1) - s) / d
			tDelta[a] = 1 / d
		case d < 0:
			step[a] = -1
			tMax[a] = (s - float64(cell[a])) / -d
			tDelta[a] = -1 / d
		default:
			tMax[a] = math.Inf(1)
			tDelta[a] = math.Inf(1)
		}
	}

	lastEmptyPos := cell
	t := 0.0
	for t <= float64(maxDist) {
		if t >= float64(minDist) && !voxels.IsAir(cell[0], cell[1], cell[2]) {
			result.HitPosition = cell
			result.AdjacentPosition = lastEmptyPos
			result.Distance = float32(t)
			result.Hit = true
			return result
		}
		lastEmptyPos = cell

		a := 0
		if tMax[1] < tMax[a] {
			a = 1
		}
		if tMax[2] < tMax[a] {
			a = 2
		}
		t = tMax[a]
		cell[a] += step[a]
		tMax[a] += tDelta[a]
	}

	return result
}
