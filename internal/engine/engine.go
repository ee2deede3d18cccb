package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"voxelworld/internal/config"
	"voxelworld/internal/meshing"
	"voxelworld/internal/persistence"
	"voxelworld/internal/physics"
	"voxelworld/internal/profiling"
	"voxelworld/internal/visibility"
	"voxelworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
)

// maxPhysicsSteps caps the fixed steps run in one frame after a stall.
const maxPhysicsSteps = 5

// Options configure New. Only Config is required.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// EditLog journals voxel writes. Nil keeps them in memory.
	EditLog world.EditLog
	// Heights overrides the configured height source.
	Heights world.HeightSource
	// Registerer receives the engine's metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// RenderBatch is what the renderer receives for one visible section.
type RenderBatch struct {
	Coord world.SectionCoord
	Mesh  *world.Mesh
}

// FrameStats summarise one Update.
type FrameStats struct {
	Frame        uint64
	Stream       StreamStats
	PhysicsSteps int
	LiveFallers  int
	Visible      int
	Visited      int
	Duration     time.Duration
}

// Engine ties the voxel store, terrain generator, mesher, streamer,
// visibility walk and falling-block simulation into one frame loop. It is
// not safe for concurrent use.
type Engine struct {
	cfg     config.Config
	log     *slog.Logger
	heights world.HeightSource

	store    *world.ChunkStore
	mesher   *meshing.Mesher
	pool     *meshing.WorkerPool
	streamer *Streamer
	walker   *visibility.Walker
	falling  *physics.FallingBlocks
	metrics  *profiling.Metrics

	frame     uint64
	physicsDt float64
	accum     float64
	landed    uint64
	visible   []*world.Section
}

// New builds an engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, errors.New("engine: nil config")
	}
	cfg := *opts.Config
	cfg.Terrain.Ores = slices.Clone(cfg.Terrain.Ores)
	cfg.Normalize()

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		cfg:       cfg,
		log:       log,
		heights:   opts.Heights,
		walker:    visibility.NewWalker(cfg.Stream.RenderDistance),
		metrics:   profiling.NewMetrics(opts.Registerer),
		physicsDt: 1 / cfg.Physics.TickRate,
	}
	gen, err := e.newGenerator(cfg.Seed)
	if err != nil {
		return nil, err
	}
	e.store = world.NewChunkStore(gen, opts.EditLog)
	e.mesher = meshing.NewMesher(e.store, meshing.Options{AmbientOcclusion: cfg.Mesh.AmbientOcclusion})
	if cfg.Mesh.Workers > 1 {
		e.pool = meshing.NewWorkerPool(e.mesher, cfg.Mesh.Workers, cfg.Stream.MaxMeshesPerFrame)
	}
	e.streamer = NewStreamer(e.store, e.mesher, e.pool, StreamerOptions{
		RenderDistance:    cfg.Stream.RenderDistance,
		RushDistance:      cfg.Stream.RushDistance,
		MaxMeshesPerFrame: cfg.Stream.MaxMeshesPerFrame,
	}, log)
	e.falling = physics.NewFallingBlocks(e.store, cfg.Physics.FallInterval)

	log.Info("engine ready",
		"seed", cfg.Seed,
		"height_source", cfg.Terrain.HeightSource,
		"render_distance", cfg.Stream.RenderDistance,
		"mesh_workers", cfg.Mesh.Workers)
	return e, nil
}

func (e *Engine) newGenerator(seed int64) (*world.Generator, error) {
	if e.heights == nil {
		gen, err := e.cfg.Terrain.NewGenerator(seed)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		return gen, nil
	}
	params, err := e.cfg.Terrain.Params()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return world.NewGenerator(seed, e.heights, params), nil
}

// SetRenderDistance changes the loaded square and the walk box, clamped to
// the configured bounds. Columns outside the new square unload on the next
// Update. It returns the distance in effect.
func (e *Engine) SetRenderDistance(d int) int {
	e.cfg.Stream.RenderDistance = d
	e.cfg.Normalize()
	rd := e.cfg.Stream.RenderDistance
	e.walker.SetRenderDistance(rd)
	opts := e.streamer.Options()
	opts.RenderDistance = rd
	opts.RushDistance = e.cfg.Stream.RushDistance
	e.streamer.SetOptions(opts)
	e.log.Info("render distance changed", "render_distance", rd)
	return rd
}

// Config returns the normalized configuration the engine runs with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Store exposes the chunk store for read-only collaborators.
func (e *Engine) Store() *world.ChunkStore {
	return e.store
}

// Seed returns the seed of the active generator.
func (e *Engine) Seed() int64 {
	return e.store.Generator().Seed()
}

// Update runs one frame: stream and remesh around focus, advance the
// falling-block simulation in fixed steps, then walk visibility from focus
// through the view-projection frustum.
func (e *Engine) Update(focus mgl32.Vec3, viewProj mgl32.Mat4, dt float64) (FrameStats, error) {
	profiling.ResetFrame()
	start := time.Now()
	e.frame++
	stats := FrameStats{Frame: e.frame}

	stream, err := e.streamer.Update(focus)
	stats.Stream = stream
	if err != nil {
		return stats, err
	}

	steps, err := e.stepPhysics(dt)
	stats.PhysicsSteps = steps
	if err != nil {
		return stats, err
	}
	stats.LiveFallers = e.falling.Live()

	frustum := visibility.NewFrustum(viewProj)
	e.visible = e.walker.Walk(e.store, focus, &frustum)
	stats.Visible = len(e.visible)
	stats.Visited = e.walker.Visited()

	stats.Duration = time.Since(start)
	e.observe(stats)
	if stats.Duration > e.cfg.Stream.SlowFrame {
		e.log.Warn("slow frame",
			"frame", e.frame,
			"duration", stats.Duration,
			"top", profiling.TopN(5))
	}
	return stats, nil
}

func (e *Engine) stepPhysics(dt float64) (int, error) {
	defer profiling.Track("engine.Physics")()
	if dt > 0 {
		e.accum += dt
	}
	steps := 0
	for e.accum >= e.physicsDt && steps < maxPhysicsSteps {
		e.accum -= e.physicsDt
		if err := e.falling.Tick(e.physicsDt); err != nil {
			return steps, fmt.Errorf("physics step: %w", err)
		}
		steps++
	}
	if e.accum >= e.physicsDt {
		// Drop the backlog after a stall instead of replaying it next frame.
		e.accum = math.Mod(e.accum, e.physicsDt)
	}
	return steps, nil
}

func (e *Engine) observe(stats FrameStats) {
	m := e.metrics
	m.ColumnsLoaded.Add(float64(stats.Stream.Loaded))
	m.ColumnsUnloaded.Add(float64(stats.Stream.Unloaded))
	m.SectionsMeshed.Add(float64(stats.Stream.Meshed))
	if landed := e.falling.Landed(); landed > e.landed {
		m.FallersLanded.Add(float64(landed - e.landed))
		e.landed = landed
	}
	m.LoadedColumns.Set(float64(e.store.Len()))
	m.DirtySections.Set(float64(stats.Stream.Pending))
	m.VisibleSections.Set(float64(stats.Visible))
	m.LiveFallers.Set(float64(stats.LiveFallers))
	m.FrameSeconds.Observe(stats.Duration.Seconds())
	m.ObservePhases()
}

// GetVoxel returns the block at world coordinates; unloaded or out-of-range
// cells read as air.
func (e *Engine) GetVoxel(x, y, z int) world.BlockType {
	return e.store.GetVoxel(x, y, z)
}

// IsSolid reports whether the cell holds a non-transparent block.
func (e *Engine) IsSolid(x, y, z int) bool {
	return e.store.IsSolid(x, y, z)
}

// IsAir reports whether the cell is empty.
func (e *Engine) IsAir(x, y, z int) bool {
	return e.store.IsAir(x, y, z)
}

// SetVoxel applies one player action. Falling checks run at the written
// cell and the cell above it.
func (e *Engine) SetVoxel(x, y, z int, b world.BlockType) error {
	if err := e.store.SetVoxel(x, y, z, b); err != nil {
		return err
	}
	if err := e.falling.Check(x, y, z); err != nil {
		return err
	}
	return e.falling.Check(x, y+1, z)
}

// Raycast returns the first non-air cell along the ray within reach.
func (e *Engine) Raycast(origin, dir mgl32.Vec3) physics.RaycastResult {
	return physics.Raycast(origin, dir, physics.MinReachDistance, physics.MaxReachDistance, e.store)
}

// Visible returns the sections drawn by the last Update.
func (e *Engine) Visible() []RenderBatch {
	out := make([]RenderBatch, 0, len(e.visible))
	for _, s := range e.visible {
		if m := s.Mesh(); m != nil {
			out = append(out, RenderBatch{Coord: s.Coord, Mesh: m})
		}
	}
	return out
}

// Fallers returns the blocks currently in flight.
func (e *Engine) Fallers() []physics.Faller {
	return e.falling.Fallers()
}

// Snapshot copies every loaded column for persistence.
func (e *Engine) Snapshot() *persistence.Snapshot {
	return persistence.NewSnapshot(e.Seed(), e.store.ExportColumns())
}

// Restore replaces the loaded world with snap. A snapshot taken under a
// different seed switches the generator to that seed first. Every cached
// mesh is dropped and in-flight fallers are discarded. On a shape mismatch
// the error wraps world.ErrShapeMismatch and the world is left unchanged.
func (e *Engine) Restore(snap *persistence.Snapshot) error {
	if snap == nil {
		return errors.New("engine: nil snapshot")
	}
	prev := e.store.Generator()
	if snap.Seed != prev.Seed() {
		gen, err := e.newGenerator(snap.Seed)
		if err != nil {
			return err
		}
		e.store.SetGenerator(gen)
	}
	if err := e.store.RestoreColumns(snap.Columns); err != nil {
		e.store.SetGenerator(prev)
		return fmt.Errorf("restore snapshot: %w", err)
	}
	e.falling = physics.NewFallingBlocks(e.store, e.cfg.Physics.FallInterval)
	e.landed = 0
	e.accum = 0
	e.visible = e.visible[:0]
	e.log.Info("snapshot restored", "seed", snap.Seed, "columns", len(snap.Columns))
	return nil
}

// Close stops the mesh workers.
func (e *Engine) Close() error {
	if e.pool != nil {
		e.pool.Shutdown()
	}
	return nil
}
