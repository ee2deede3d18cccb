package engine

import (
	"io"
	"log/slog"
	"testing"

	"voxelworld/internal/meshing"
	"voxelworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStreamer(opts StreamerOptions) (*Streamer, *world.ChunkStore) {
	cs := world.NewChunkStore(world.NewFlatGenerator(20), nil)
	m := meshing.NewMesher(cs, meshing.Options{})
	return NewStreamer(cs, m, nil, opts, quietLog), cs
}

func TestStreamerLoadsAndUnloadsSquare(t *testing.T) {
	s, cs := newTestStreamer(StreamerOptions{RenderDistance: 1, RushDistance: 1, MaxMeshesPerFrame: 1000})

	stats, err := s.Update(mgl32.Vec3{8, 40, 8})
	require.NoError(t, err)
	assert.Equal(t, 9, stats.Loaded)
	assert.Equal(t, 0, stats.Unloaded)
	assert.Equal(t, 9, cs.Len())

	stats, err = s.Update(mgl32.Vec3{8 + 3*world.ChunkSizeX, 40, 8})
	require.NoError(t, err)
	assert.Equal(t, 9, stats.Loaded)
	assert.Equal(t, 9, stats.Unloaded)
	for _, col := range cs.Columns() {
		assert.LessOrEqual(t, col.Coord.ChebyshevDistance(world.ColumnCoord{X: 3}), 1)
	}

	// Standing still loads nothing new
	stats, err = s.Update(mgl32.Vec3{8 + 3*world.ChunkSizeX, 40, 8})
	require.NoError(t, err)
	assert.Zero(t, stats.Loaded)
	assert.Zero(t, stats.Unloaded)
}

func TestStreamerNegativeFocus(t *testing.T) {
	s, cs := newTestStreamer(StreamerOptions{RenderDistance: 0, MaxMeshesPerFrame: 1})
	_, err := s.Update(mgl32.Vec3{-0.5, 40, -16.5})
	require.NoError(t, err)
	assert.True(t, cs.HasColumn(world.ColumnCoord{X: -1, Z: -2}))
	assert.Equal(t, 1, cs.Len())
}

func TestStreamerCapAndOrder(t *testing.T) {
	s, cs := newTestStreamer(StreamerOptions{RenderDistance: 2, RushDistance: 0, MaxMeshesPerFrame: 10})
	focus := mgl32.Vec3{8, 40, 8} // section 2 of column (0,0)

	stats, err := s.Update(focus)
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Loaded)
	// Only the focus column is within the rush distance
	assert.Equal(t, world.NumSections, stats.Meshed)
	assert.Equal(t, 25*world.NumSections-world.NumSections, stats.Pending)
	for i := range world.NumSections {
		assert.False(t, cs.Section(world.SectionCoord{Y: i}).IsDirty())
	}

	stats, err = s.Update(focus)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Meshed)
	assert.Equal(t, 25*world.NumSections-world.NumSections-10, stats.Pending)
	// The focus height is served first in every ring-1 column
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			sc := world.SectionCoord{X: x, Y: 2, Z: z}
			assert.False(t, cs.Section(sc).IsDirty(), "%v still dirty", sc)
		}
	}
	for _, sc := range cs.DirtySections() {
		if sc.Column().ChebyshevDistance(world.ColumnCoord{}) == 2 {
			continue
		}
		assert.NotEqual(t, 2, sc.Y, "ring-1 section %v skipped in favour of a farther one", sc)
	}
}

func TestStreamerRushDistanceDefersFarSections(t *testing.T) {
	s, cs := newTestStreamer(StreamerOptions{RenderDistance: 2, RushDistance: 1, MaxMeshesPerFrame: 1000})
	focus := mgl32.Vec3{8, 40, 8}

	stats, err := s.Update(focus)
	require.NoError(t, err)
	assert.Equal(t, 9*world.NumSections, stats.Meshed)
	assert.Equal(t, 16*world.NumSections, stats.Pending)
	for _, sc := range cs.DirtySections() {
		assert.Equal(t, 2, sc.Column().ChebyshevDistance(world.ColumnCoord{}))
	}

	stats, err = s.Update(focus)
	require.NoError(t, err)
	assert.Equal(t, 16*world.NumSections, stats.Meshed)
	assert.Zero(t, stats.Pending)
	assert.Empty(t, cs.DirtySections())
}

func TestStreamerRemeshesEditedSection(t *testing.T) {
	s, cs := newTestStreamer(StreamerOptions{RenderDistance: 1, RushDistance: 1, MaxMeshesPerFrame: 1000})
	focus := mgl32.Vec3{8, 40, 8}
	_, err := s.Update(focus)
	require.NoError(t, err)
	require.Empty(t, cs.DirtySections())

	require.NoError(t, cs.SetVoxel(5, 30, 5, world.BlockTypeStone))
	stats, err := s.Update(focus)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Meshed)
	// Grass tops of the flat surface plus the floating block
	assert.Equal(t, world.ChunkSizeX*world.ChunkSizeZ+6, cs.Section(world.SectionCoord{Y: 1}).Mesh().Faces)
}

func TestStreamerWithPool(t *testing.T) {
	cs := world.NewChunkStore(world.NewGenerator(9, nil, world.DefaultTerrainParams()), nil)
	m := meshing.NewMesher(cs, meshing.Options{AmbientOcclusion: true})
	pool := meshing.NewWorkerPool(m, 3, 4)
	defer pool.Shutdown()
	s := NewStreamer(cs, m, pool, StreamerOptions{RenderDistance: 1, RushDistance: 1, MaxMeshesPerFrame: 1000}, quietLog)

	stats, err := s.Update(mgl32.Vec3{8, 60, 8})
	require.NoError(t, err)
	assert.Equal(t, 9*world.NumSections, stats.Meshed)

	for _, col := range cs.Columns() {
		for i := range world.NumSections {
			sc := col.Section(i).Coord
			want := m.Build(sc)
			assert.Equal(t, want.Mesh, col.Section(i).Mesh(), "section %v", sc)
			assert.Equal(t, want.Open, col.Section(i).Passability(), "section %v", sc)
		}
	}
}

func TestRingOrder(t *testing.T) {
	ring := ringOrder(world.ColumnCoord{X: 4, Z: -2}, 2)
	require.Len(t, ring, 25)
	assert.Equal(t, world.ColumnCoord{X: 4, Z: -2}, ring[0])

	seen := map[world.ColumnCoord]bool{}
	last := 0
	for _, cc := range ring {
		assert.False(t, seen[cc], "duplicate %v", cc)
		seen[cc] = true
		d := cc.ChebyshevDistance(world.ColumnCoord{X: 4, Z: -2})
		assert.GreaterOrEqual(t, d, last, "ring order must not move inward")
		last = d
	}
	assert.Len(t, ringOrder(world.ColumnCoord{}, 0), 1)
}
