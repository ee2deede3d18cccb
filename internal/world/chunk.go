package world

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Column footprint; both must stay powers of two.
	ChunkSizeX = 16
	ChunkSizeZ = 16

	WorldHeight = 128

	// Section dimensions
	SectionHeight = 16
	NumSections   = WorldHeight / SectionHeight

	ColumnVolume = ChunkSizeX * WorldHeight * ChunkSizeZ
)

// Passability holds one "open" bit per BlockFace.
type Passability uint8

const PassabilityAll Passability = 1<<6 - 1

// Open reports whether the view can leave the section through face.
func (p Passability) Open(face BlockFace) bool {
	return p&(1<<uint(face)) != 0
}

// With returns p with the bit for face set to open.
func (p Passability) With(face BlockFace, open bool) Passability {
	if open {
		return p | 1<<uint(face)
	}
	return p &^ (1 << uint(face))
}

// Section is one SectionHeight-tall slab of a column: the unit of meshing and
// visibility. It carries only its coordinate; every voxel query goes through
// the ChunkStore.
type Section struct {
	Coord SectionCoord

	// LastVisitedFrame is compared against the walker's frame counter instead
	// of clearing a visited set every frame.
	LastVisitedFrame uint32
	Visible          bool

	dirty  bool
	meshed bool
	open   Passability
	mesh   atomic.Pointer[Mesh]
}

// IsDirty returns whether the section must be remeshed before use.
func (s *Section) IsDirty() bool {
	return s.dirty
}

// MarkDirty flags the section for regeneration.
func (s *Section) MarkDirty() {
	s.dirty = true
}

// Meshed reports whether the section has been meshed at least once. A
// meshed section with a nil Mesh is empty, not pending.
func (s *Section) Meshed() bool {
	return s.meshed
}

// Mesh returns the last published mesh, or nil when the section is empty.
func (s *Section) Mesh() *Mesh {
	return s.mesh.Load()
}

// Passability returns the open faces computed with the last mesh.
func (s *Section) Passability() Passability {
	return s.open
}

// Publish swaps in a freshly built mesh and passability record and clears
// the dirty flag.
func (s *Section) Publish(m *Mesh, open Passability) {
	s.mesh.Store(m)
	s.open = open
	s.meshed = true
	s.dirty = false
}

// Reset drops derived data and marks the section dirty.
func (s *Section) Reset() {
	s.mesh.Store(nil)
	s.open = 0
	s.meshed = false
	s.dirty = true
	s.Visible = false
}

// Bounds returns the bounding sphere of the section's full volume.
func (s *Section) Bounds() (center mgl32.Vec3, radius float32) {
	return SectionBounds(s.Coord)
}

var sectionRadius = float32(math.Sqrt(ChunkSizeX*ChunkSizeX+SectionHeight*SectionHeight+ChunkSizeZ*ChunkSizeZ) / 2)

// SectionBounds returns the bounding sphere of a section volume.
func SectionBounds(sc SectionCoord) (mgl32.Vec3, float32) {
	x, y, z := sc.Origin()
	center := mgl32.Vec3{
		float32(x) + ChunkSizeX/2,
		float32(y) + SectionHeight/2,
		float32(z) + ChunkSizeZ/2,
	}
	return center, sectionRadius
}

// SectionAABB returns the box spanned by a section.
func SectionAABB(sc SectionCoord) (lo, hi mgl32.Vec3) {
	x, y, z := sc.Origin()
	lo = mgl32.Vec3{float32(x), float32(y), float32(z)}
	return lo, lo.Add(mgl32.Vec3{ChunkSizeX, SectionHeight, ChunkSizeZ})
}

// Column is the voxel grid of one chunk column plus its sections.
type Column struct {
	Coord    ColumnCoord
	blocks   []BlockType
	sections [NumSections]Section
	modified bool
}

// NewColumn allocates an all-air column with every section dirty.
func NewColumn(coord ColumnCoord) *Column {
	c := &Column{
		Coord:  coord,
		blocks: make([]BlockType, ColumnVolume),
	}
	for i := range NumSections {
		c.sections[i].Coord = SectionCoord{X: coord.X, Y: i, Z: coord.Z}
		c.sections[i].dirty = true
	}
	return c
}

// index converts local column coordinates → flat index ([y][z][x] order)
func index(x, y, z int) int {
	return (y*ChunkSizeZ+z)*ChunkSizeX + x
}

func inColumn(x, y, z int) bool {
	return x >= 0 && x < ChunkSizeX && y >= 0 && y < WorldHeight && z >= 0 && z < ChunkSizeZ
}

// GetBlock returns the block at local coordinates, air when out of bounds.
func (c *Column) GetBlock(x, y, z int) BlockType {
	if !inColumn(x, y, z) {
		return BlockTypeAir
	}
	return c.blocks[index(x, y, z)]
}

// SetBlock writes a block at local coordinates and reports whether the
// stored value changed. Out-of-bounds writes are ignored.
func (c *Column) SetBlock(x, y, z int, b BlockType) bool {
	if !inColumn(x, y, z) {
		return false
	}
	i := index(x, y, z)
	if c.blocks[i] == b {
		return false
	}
	c.blocks[i] = b
	return true
}

// Blocks exposes the raw voxel array in [y][z][x] order.
func (c *Column) Blocks() []BlockType {
	return c.blocks
}

// Section returns the section with band index i, nil when out of range.
func (c *Column) Section(i int) *Section {
	if !InSectionRange(i) {
		return nil
	}
	return &c.sections[i]
}

// MarkAllDirty flags every section for regeneration.
func (c *Column) MarkAllDirty() {
	for i := range c.sections {
		c.sections[i].dirty = true
	}
}

// DropMeshes clears every section's derived data.
func (c *Column) DropMeshes() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// Modified reports whether the column has been edited since generation.
func (c *Column) Modified() bool {
	return c.modified
}
