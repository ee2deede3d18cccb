package engine

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"voxelworld/internal/config"
	"voxelworld/internal/persistence"
	"voxelworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatConfig yields grass at y=30 everywhere and nothing else above ground.
func flatConfig() *config.Config {
	cfg := config.Default()
	cfg.Terrain.HeightSource = config.HeightSourceFlat
	cfg.Terrain.FlatLevel = 0
	cfg.Terrain.Caves = false
	cfg.Terrain.TreeChance = 0
	cfg.Terrain.Ores = nil
	cfg.Stream.RenderDistance = 1
	cfg.Stream.RushDistance = 1
	cfg.Stream.MaxMeshesPerFrame = 1000
	cfg.Stream.SlowFrame = time.Hour
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(Options{Config: cfg, Logger: quietLog})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func viewProj(eye, dir mgl32.Vec3) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(70), 16.0/9.0, 0.1, 500)
	return proj.Mul4(mgl32.LookAtV(eye, eye.Add(dir), mgl32.Vec3{0, 1, 0}))
}

var (
	eye  = mgl32.Vec3{8, 40, 8}
	down = viewProj(eye, mgl32.Vec3{0.3, -1, 0.2})
)

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNewRejectsUnknownOre(t *testing.T) {
	cfg := config.Default()
	cfg.Terrain.Ores = []config.OreConfig{{Block: "mithril", Chance: 0.1, VeinSize: 1, MaxY: 10}}
	_, err := New(Options{Config: cfg, Logger: quietLog})
	assert.ErrorContains(t, err, "mithril")
}

func TestUpdateStreamsMeshesAndWalks(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	stats, err := e.Update(eye, down, 1.0/60)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, 9, stats.Stream.Loaded)
	assert.Equal(t, 9*world.NumSections, stats.Stream.Meshed)
	assert.Zero(t, stats.Stream.Pending)
	assert.Positive(t, stats.Visible)
	assert.GreaterOrEqual(t, stats.Visited, stats.Visible)

	batches := e.Visible()
	require.Len(t, batches, stats.Visible)
	for _, b := range batches {
		require.NotNil(t, b.Mesh)
		assert.Equal(t, 1, b.Coord.Y, "only the surface sections have faces")
	}
	assert.Equal(t, world.BlockTypeGrass, e.GetVoxel(3, 30, 3))
	assert.True(t, e.IsSolid(3, 30, 3))
	assert.True(t, e.IsAir(3, 31, 3))
}

func TestSandFallsThroughEngine(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	_, err := e.Update(eye, down, 0)
	require.NoError(t, err)

	require.NoError(t, e.SetVoxel(4, 35, 4, world.BlockTypeSand))
	assert.Equal(t, world.BlockTypeAir, e.GetVoxel(4, 35, 4), "sand is in flight")
	require.Len(t, e.Fallers(), 1)

	tick := 1 / e.Config().Physics.TickRate
	var stats FrameStats
	for range 4 {
		stats, err = e.Update(eye, down, tick)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.PhysicsSteps)
	}
	assert.Zero(t, stats.LiveFallers)
	assert.Equal(t, world.BlockTypeSand, e.GetVoxel(4, 31, 4))

	// Digging out the support drops the sand one cell
	require.NoError(t, e.SetVoxel(4, 30, 4, world.BlockTypeAir))
	require.Len(t, e.Fallers(), 1)
	_, err = e.Update(eye, down, tick)
	require.NoError(t, err)
	assert.Empty(t, e.Fallers())
	assert.Equal(t, world.BlockTypeSand, e.GetVoxel(4, 30, 4))
	assert.Equal(t, world.BlockTypeAir, e.GetVoxel(4, 31, 4))
}

func TestPhysicsStepsAreCapped(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	stats, err := e.Update(eye, down, 10)
	require.NoError(t, err)
	assert.Equal(t, maxPhysicsSteps, stats.PhysicsSteps)

	stats, err = e.Update(eye, down, 0)
	require.NoError(t, err)
	assert.Zero(t, stats.PhysicsSteps, "the backlog is dropped, not carried over")
}

func TestEditsSurviveStreamingAway(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	_, err := e.Update(eye, down, 0)
	require.NoError(t, err)
	require.NoError(t, e.SetVoxel(2, 33, 2, world.BlockTypeCobblestone))

	far := mgl32.Vec3{8 + 10*world.ChunkSizeX, 40, 8}
	_, err = e.Update(far, viewProj(far, mgl32.Vec3{1, -1, 0}), 0)
	require.NoError(t, err)
	assert.False(t, e.Store().HasColumn(world.ColumnCoord{}))

	_, err = e.Update(eye, down, 0)
	require.NoError(t, err)
	assert.Equal(t, world.BlockTypeCobblestone, e.GetVoxel(2, 33, 2))
}

func TestSnapshotRestoreAcrossSeeds(t *testing.T) {
	cfgA := config.Default()
	cfgA.Seed = 11
	cfgA.Stream.RenderDistance = 1
	cfgA.Stream.MaxMeshesPerFrame = 1000
	a := newTestEngine(t, cfgA)
	_, err := a.Update(mgl32.Vec3{8, 90, 8}, down, 0)
	require.NoError(t, err)
	require.NoError(t, a.SetVoxel(1, 120, 1, world.BlockTypeGlass))
	snap := a.Snapshot()
	assert.Equal(t, int64(11), snap.Seed)

	cfgB := *cfgA
	cfgB.Seed = 12
	b := newTestEngine(t, &cfgB)
	_, err = b.Update(mgl32.Vec3{8, 90, 8}, down, 0)
	require.NoError(t, err)

	require.NoError(t, b.Restore(snap))
	assert.Equal(t, int64(11), b.Seed())
	assert.Empty(t, b.Visible(), "cached meshes are discarded")
	assert.Len(t, b.Store().DirtySections(), 9*world.NumSections)
	assert.Equal(t, world.BlockTypeGlass, b.GetVoxel(1, 120, 1))
	assert.Equal(t, a.Store().ExportColumns(), b.Store().ExportColumns())

	// Regenerating a column after restore uses the snapshot's seed
	far := mgl32.Vec3{8 + 10*world.ChunkSizeX, 90, 8}
	_, err = b.Update(far, down, 0)
	require.NoError(t, err)
	_, err = a.Update(far, down, 0)
	require.NoError(t, err)
	assert.Equal(t, a.Store().ExportColumns(), b.Store().ExportColumns())
}

func TestRestoreShapeMismatch(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	_, err := e.Update(eye, down, 0)
	require.NoError(t, err)

	snap := e.Snapshot()
	snap.Seed = 999
	snap.Columns[0].Blocks = snap.Columns[0].Blocks[:10]
	err = e.Restore(snap)
	require.ErrorIs(t, err, world.ErrShapeMismatch)
	assert.Equal(t, int64(e.Config().Seed), e.Seed(), "generator must be rolled back")
	assert.Equal(t, 9, e.Store().Len())

	assert.Error(t, e.Restore(nil))
}

func TestSnapshotFileThroughEngine(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	_, err := e.Update(eye, down, 0)
	require.NoError(t, err)
	require.NoError(t, e.SetVoxel(9, 31, 9, world.BlockTypeOakLog))

	path := t.TempDir() + "/world.snap"
	require.NoError(t, persistence.WriteFile(path, e.Snapshot()))
	snap, err := persistence.ReadFile(path)
	require.NoError(t, err)

	other := newTestEngine(t, flatConfig())
	require.NoError(t, other.Restore(snap))
	assert.Equal(t, world.BlockTypeOakLog, other.GetVoxel(9, 31, 9))
}

func TestBadgerEditLogThroughEngine(t *testing.T) {
	journal, err := persistence.OpenEditLog("")
	require.NoError(t, err)
	defer journal.Close()

	e, err := New(Options{Config: flatConfig(), Logger: quietLog, EditLog: journal})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.SetVoxel(-3, 31, -3, world.BlockTypeStone))
	edits, err := journal.Edits(world.ColumnAt(-3, -3))
	require.NoError(t, err)
	assert.Len(t, edits, 1)
}

func TestRaycastThroughEngine(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	_, err := e.Update(eye, down, 0)
	require.NoError(t, err)

	hit := e.Raycast(mgl32.Vec3{4.5, 33.5, 4.5}, mgl32.Vec3{0, -1, 0})
	require.True(t, hit.Hit)
	assert.Equal(t, [3]int{4, 30, 4}, hit.HitPosition)
	assert.Equal(t, [3]int{4, 31, 4}, hit.AdjacentPosition)
}

func TestMetricsAndSlowFrameLog(t *testing.T) {
	cfg := flatConfig()
	cfg.Stream.SlowFrame = time.Nanosecond
	var logBuf bytes.Buffer
	reg := prometheus.NewRegistry()
	e, err := New(Options{
		Config:     cfg,
		Logger:     slog.New(slog.NewTextHandler(&logBuf, nil)),
		Registerer: reg,
	})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Update(eye, down, 0)
	require.NoError(t, err)
	assert.Contains(t, logBuf.String(), "slow frame")
	assert.Contains(t, logBuf.String(), "engine.Streamer.Update")

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[f.GetName()] = c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				values[f.GetName()] = g.GetValue()
			}
		}
	}
	assert.Equal(t, 9.0, values["voxelworld_columns_loaded_total"])
	assert.Equal(t, 9.0, values["voxelworld_loaded_columns"])
	assert.Equal(t, float64(9*world.NumSections), values["voxelworld_sections_meshed_total"])
	assert.Positive(t, values["voxelworld_visible_sections"])
}

func TestMeshWorkersMatchInline(t *testing.T) {
	inline := newTestEngine(t, flatConfig())
	cfg := flatConfig()
	cfg.Mesh.Workers = 4
	pooled := newTestEngine(t, cfg)

	for _, e := range []*Engine{inline, pooled} {
		require.NoError(t, e.SetVoxel(15, 31, 15, world.BlockTypeGlass))
		_, err := e.Update(eye, down, 0)
		require.NoError(t, err)
	}
	for _, col := range inline.Store().Columns() {
		for i := range world.NumSections {
			want := col.Section(i)
			got := pooled.Store().Section(want.Coord)
			require.NotNil(t, got)
			assert.Equal(t, want.Mesh(), got.Mesh(), "section %v", want.Coord)
		}
	}
}

func TestSetRenderDistance(t *testing.T) {
	e := newTestEngine(t, flatConfig())
	_, err := e.Update(eye, down, 0)
	require.NoError(t, err)
	require.Equal(t, 9, e.Store().Len())

	assert.Equal(t, 2, e.SetRenderDistance(2))
	stats, err := e.Update(eye, down, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, stats.Stream.Loaded)
	assert.Equal(t, 25, e.Store().Len())
	assert.Equal(t, 2, e.Config().Stream.RenderDistance)

	assert.Equal(t, config.MinRenderDistance, e.SetRenderDistance(0))
	stats, err = e.Update(eye, down, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, stats.Stream.Unloaded)
	assert.Equal(t, 9, e.Store().Len())

	assert.Equal(t, config.MaxRenderDistance, e.SetRenderDistance(1000))
}
