package world

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is one corner of an emitted face.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	// Light is baseLight * face factor * ambient occlusion, in [0,1].
	Light float32
}

// MaterialRange is a contiguous run of indices sharing one texture.
type MaterialRange struct {
	Texture    TextureID
	FirstIndex int
	IndexCount int
}

// Mesh is the renderable geometry of one section. Ranges are sorted by
// texture and cover Indices exactly once.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Ranges   []MaterialRange
	Faces    int

	// Bounding sphere of the emitted geometry.
	Center mgl32.Vec3
	Radius float32
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices)
}
