package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Collides reports whether an upright box with its feet centred at pos
// overlaps any non-air cell. The box is 2*halfWidth wide and height tall.
func Collides(pos mgl32.Vec3, halfWidth, height float32, voxels VoxelReader) bool {
	minX := int(math.Floor(float64(pos.X() - halfWidth)))
	maxX := int(math.Floor(float64(pos.X() + halfWidth)))
	minY := int(math.Floor(float64(pos.Y())))
	maxY := int(math.Floor(float64(pos.Y() + height)))
	minZ := int(math.Floor(float64(pos.Z() - halfWidth)))
	maxZ := int(math.Floor(float64(pos.Z() + halfWidth)))

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				if voxels.IsAir(x, y, z) {
					continue
				}
				// Touching a face is not an overlap
				if pos.X()-halfWidth < float32(x+1) && pos.X()+halfWidth > float32(x) &&
					pos.Y() < float32(y+1) && pos.Y()+height > float32(y) &&
					pos.Z()-halfWidth < float32(z+1) && pos.Z()+halfWidth > float32(z) {
					return true
				}
			}
		}
	}
	return false
}

// GroundLevel returns the top of the highest non-air cell under the box
// footprint at (x, z), scanning down from fromY. ok is false when nothing
// was found above the world floor.
func GroundLevel(x, z, halfWidth, fromY float32, voxels VoxelReader) (level float32, ok bool) {
	minX := int(math.Floor(float64(x - halfWidth)))
	maxX := int(math.Floor(float64(x + halfWidth)))
	minZ := int(math.Floor(float64(z - halfWidth)))
	maxZ := int(math.Floor(float64(z + halfWidth)))
	top := int(math.Floor(float64(fromY)))

	for bx := minX; bx <= maxX; bx++ {
		for bz := minZ; bz <= maxZ; bz++ {
			for by := top; by >= 0; by-- {
				if !voxels.IsAir(bx, by, bz) {
					if g := float32(by + 1); !ok || g > level {
						level, ok = g, true
					}
					break
				}
			}
		}
	}
	return level, ok
}
