package meshing

import (
	"voxelworld/internal/world"
)

// computePassability marks face d open when any cell of the layer just
// outside the section across d is air or transparent, meaning some boundary
// voxel of the section sees through that face. Only the six outside layers
// are read.
func computePassability(n *neighborhood, sc world.SectionCoord) world.Passability {
	ox, oy, oz := sc.Origin()
	var open world.Passability
	for _, face := range world.AllFaces {
		if outsideLayerOpen(n, face, ox, oy, oz) {
			open = open.With(face, true)
		}
	}
	return open
}

func outsideLayerOpen(n *neighborhood, face world.BlockFace, ox, oy, oz int) bool {
	const (
		sx = world.ChunkSizeX
		sy = world.SectionHeight
		sz = world.ChunkSizeZ
	)
	switch face {
	case world.FaceEast, world.FaceWest:
		x := ox - 1
		if face == world.FaceEast {
			x = ox + sx
		}
		for y := oy; y < oy+sy; y++ {
			for z := oz; z < oz+sz; z++ {
				if !n.solid(x, y, z) {
					return true
				}
			}
		}
	case world.FaceTop, world.FaceBottom:
		y := oy - 1
		if face == world.FaceTop {
			y = oy + sy
		}
		for z := oz; z < oz+sz; z++ {
			for x := ox; x < ox+sx; x++ {
				if !n.solid(x, y, z) {
					return true
				}
			}
		}
	case world.FaceNorth, world.FaceSouth:
		z := oz - 1
		if face == world.FaceNorth {
			z = oz + sz
		}
		for y := oy; y < oy+sy; y++ {
			for x := ox; x < ox+sx; x++ {
				if !n.solid(x, y, z) {
					return true
				}
			}
		}
	}
	return false
}
