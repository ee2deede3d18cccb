package meshing

import (
	"voxelworld/internal/profiling"
	"voxelworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Options toggles optional mesher features.
type Options struct {
	AmbientOcclusion bool
}

// Mesher rebuilds section meshes from the store's voxel data.
type Mesher struct {
	store *world.ChunkStore
	opts  Options
}

// Result is a rebuilt section, ready to publish.
type Result struct {
	Coord world.SectionCoord
	Mesh  *world.Mesh // nil when the section has no visible faces
	Open  world.Passability
}

func NewMesher(store *world.ChunkStore, opts Options) *Mesher {
	return &Mesher{store: store, opts: opts}
}

// Build meshes one section from scratch and computes its passability. It
// only reads voxel data, so several builds may run concurrently as long as
// nothing writes to the store meanwhile.
func (m *Mesher) Build(sc world.SectionCoord) Result {
	defer profiling.Track("meshing.Build")()
	nb := newNeighborhood(m.store, sc.Column())
	return Result{
		Coord: sc,
		Mesh:  buildSectionMesh(nb, sc, m.opts),
		Open:  computePassability(nb, sc),
	}
}

// Apply publishes r into its section. Reports false if the column has been
// unloaded since the build.
func (m *Mesher) Apply(r Result) bool {
	s := m.store.Section(r.Coord)
	if s == nil {
		return false
	}
	s.Publish(r.Mesh, r.Open)
	return true
}

// Rebuild builds and publishes one section synchronously.
func (m *Mesher) Rebuild(sc world.SectionCoord) bool {
	return m.Apply(m.Build(sc))
}

// neighborhood caches the 3x3 columns around a section's column so the
// per-voxel lookups skip the store lock.
type neighborhood struct {
	center world.ColumnCoord
	cols   [3][3]*world.Column
}

func newNeighborhood(store *world.ChunkStore, center world.ColumnCoord) *neighborhood {
	n := &neighborhood{center: center}
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			n.cols[dx+1][dz+1] = store.Column(world.ColumnCoord{X: center.X + dx, Z: center.Z + dz})
		}
	}
	return n
}

// get returns the block at world coordinates; anything outside the cached
// columns reads as air.
func (n *neighborhood) get(x, y, z int) world.BlockType {
	if y < 0 || y >= world.WorldHeight {
		return world.BlockTypeAir
	}
	cc := world.ColumnAt(x, z)
	ix, iz := cc.X-n.center.X+1, cc.Z-n.center.Z+1
	if ix < 0 || ix > 2 || iz < 0 || iz > 2 {
		return world.BlockTypeAir
	}
	col := n.cols[ix][iz]
	if col == nil {
		return world.BlockTypeAir
	}
	return col.GetBlock(x-cc.X*world.ChunkSizeX, y, z-cc.Z*world.ChunkSizeZ)
}

func (n *neighborhood) solid(x, y, z int) bool {
	return n.get(x, y, z).IsOpaque()
}

// faceVisible decides whether the face between cur and its neighbour nb is
// drawn. Touching cells of the same transparent type share no face.
func faceVisible(cur, nb world.BlockType) bool {
	if nb == world.BlockTypeAir {
		return true
	}
	if !world.Props(nb).Transparent {
		return false
	}
	return nb != cur || !world.Props(cur).Transparent
}

type faceDef struct {
	normal  [3]int
	corners [4][3]int
	uvs     [4]mgl32.Vec2
	shade   float32
}

var (
	sideUVs = [4]mgl32.Vec2{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	flatUVs = [4]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
)

// Corner order matches quadIndices.
var faceDefs = [6]faceDef{
	world.FaceNorth:  {normal: [3]int{0, 0, 1}, corners: [4][3]int{{1, 0, 1}, {1, 1, 1}, {0, 0, 1}, {0, 1, 1}}, uvs: sideUVs, shade: 0.9},
	world.FaceSouth:  {normal: [3]int{0, 0, -1}, corners: [4][3]int{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}, {1, 1, 0}}, uvs: sideUVs, shade: 0.9},
	world.FaceEast:   {normal: [3]int{1, 0, 0}, corners: [4][3]int{{1, 0, 0}, {1, 1, 0}, {1, 0, 1}, {1, 1, 1}}, uvs: sideUVs, shade: 0.8},
	world.FaceWest:   {normal: [3]int{-1, 0, 0}, corners: [4][3]int{{0, 0, 1}, {0, 1, 1}, {0, 0, 0}, {0, 1, 0}}, uvs: sideUVs, shade: 0.8},
	world.FaceTop:    {normal: [3]int{0, 1, 0}, corners: [4][3]int{{0, 1, 1}, {1, 1, 1}, {0, 1, 0}, {1, 1, 0}}, uvs: flatUVs, shade: 1.0},
	world.FaceBottom: {normal: [3]int{0, -1, 0}, corners: [4][3]int{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}, {1, 0, 1}}, uvs: flatUVs, shade: 0.5},
}

var quadIndices = [6]uint32{0, 1, 2, 2, 1, 3}

// aoLevels maps the number of occluding cells at a corner to a light factor.
var aoLevels = [4]float32{1.0, 0.8, 0.6, 0.5}

// FaceShade returns the fixed directional light factor of a face.
func FaceShade(face world.BlockFace) float32 {
	return faceDefs[face].shade
}

type quad [4]world.Vertex

func buildSectionMesh(n *neighborhood, sc world.SectionCoord, opts Options) *world.Mesh {
	ox, oy, oz := sc.Origin()
	buckets := make([][]quad, world.TextureCount)
	faces := 0

	for y := oy; y < oy+world.SectionHeight; y++ {
		for z := oz; z < oz+world.ChunkSizeZ; z++ {
			for x := ox; x < ox+world.ChunkSizeX; x++ {
				cur := n.get(x, y, z)
				if cur == world.BlockTypeAir {
					continue
				}
				props := world.Props(cur)
				for _, face := range world.AllFaces {
					def := &faceDefs[face]
					if !faceVisible(cur, n.get(x+def.normal[0], y+def.normal[1], z+def.normal[2])) {
						continue
					}
					tex := props.TextureFor(face)
					if int(tex) >= len(buckets) {
						tex = world.TextureNone
					}
					buckets[tex] = append(buckets[tex], makeQuad(n, def, x, y, z, props.BaseLight, opts))
					faces++
				}
			}
		}
	}
	if faces == 0 {
		return nil
	}

	mesh := &world.Mesh{
		Vertices: make([]world.Vertex, 0, faces*4),
		Indices:  make([]uint32, 0, faces*6),
		Faces:    faces,
	}
	for tex, qs := range buckets {
		if len(qs) == 0 {
			continue
		}
		first := len(mesh.Indices)
		for i := range qs {
			base := uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, qs[i][:]...)
			for _, idx := range quadIndices {
				mesh.Indices = append(mesh.Indices, base+idx)
			}
		}
		mesh.Ranges = append(mesh.Ranges, world.MaterialRange{
			Texture:    world.TextureID(tex),
			FirstIndex: first,
			IndexCount: len(mesh.Indices) - first,
		})
	}
	mesh.Center, mesh.Radius = boundingSphere(mesh.Vertices)
	return mesh
}

func makeQuad(n *neighborhood, def *faceDef, x, y, z int, baseLight float32, opts Options) quad {
	var q quad
	normal := mgl32.Vec3{float32(def.normal[0]), float32(def.normal[1]), float32(def.normal[2])}
	light := baseLight * def.shade
	for i, c := range def.corners {
		ao := float32(1)
		if opts.AmbientOcclusion {
			ao = aoLevels[cornerOcclusion(n, def, c, x, y, z)]
		}
		q[i] = world.Vertex{
			Position: mgl32.Vec3{float32(x + c[0]), float32(y + c[1]), float32(z + c[2])},
			Normal:   normal,
			UV:       def.uvs[i],
			Light:    light * ao,
		}
	}
	return q
}

// cornerOcclusion counts solid cells among the two edge neighbours and the
// diagonal neighbour of a face corner, all on the layer in front of the face.
func cornerOcclusion(n *neighborhood, def *faceDef, corner [3]int, x, y, z int) int {
	fx, fy, fz := x+def.normal[0], y+def.normal[1], z+def.normal[2]
	var steps [2][3]int
	k := 0
	for axis := range 3 {
		if def.normal[axis] != 0 {
			continue
		}
		steps[k][axis] = corner[axis]*2 - 1
		k++
	}
	s1, s2 := steps[0], steps[1]

	count := 0
	if n.solid(fx+s1[0], fy+s1[1], fz+s1[2]) {
		count++
	}
	if n.solid(fx+s2[0], fy+s2[1], fz+s2[2]) {
		count++
	}
	if n.solid(fx+s1[0]+s2[0], fy+s1[1]+s2[1], fz+s1[2]+s2[2]) {
		count++
	}
	return count
}

func boundingSphere(verts []world.Vertex) (mgl32.Vec3, float32) {
	if len(verts) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo, hi := verts[0].Position, verts[0].Position
	for _, v := range verts[1:] {
		for i := range 3 {
			lo[i] = min(lo[i], v.Position[i])
			hi[i] = max(hi[i], v.Position[i])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	return center, hi.Sub(center).Len()
}
