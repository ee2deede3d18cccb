package engine

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"voxelworld/internal/meshing"
	"voxelworld/internal/profiling"
	"voxelworld/internal/visibility"
	"voxelworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// StreamerOptions bound the loaded square and the per-frame mesh budget.
type StreamerOptions struct {
	RenderDistance    int // half-width of the loaded square, in columns
	RushDistance      int // dirty sections farther than this wait for nearer ones
	MaxMeshesPerFrame int
}

// StreamStats reports what one Update did.
type StreamStats struct {
	Loaded   int
	Unloaded int
	Meshed   int
	Pending  int // dirty sections left for later frames
}

// Streamer keeps the columns around the focus loaded and rebuilds dirty
// section meshes under a per-frame cap, nearest first.
type Streamer struct {
	store  *world.ChunkStore
	mesher *meshing.Mesher
	pool   *meshing.WorkerPool
	opts   StreamerOptions
	log    *slog.Logger

	dirty []dirtySection
	batch []world.SectionCoord
}

type dirtySection struct {
	coord world.SectionCoord
	dist  int // column Chebyshev distance to the focus column
	dy    int // section distance to the focus section
}

// NewStreamer creates a streamer. A nil pool meshes on the calling goroutine.
func NewStreamer(store *world.ChunkStore, mesher *meshing.Mesher, pool *meshing.WorkerPool, opts StreamerOptions, log *slog.Logger) *Streamer {
	if log == nil {
		log = slog.Default()
	}
	s := &Streamer{store: store, mesher: mesher, pool: pool, log: log}
	s.SetOptions(opts)
	return s
}

func (s *Streamer) Options() StreamerOptions {
	return s.opts
}

// SetOptions replaces the streaming bounds; negative distances are clamped to
// zero and the mesh cap to one.
func (s *Streamer) SetOptions(opts StreamerOptions) {
	opts.RenderDistance = max(opts.RenderDistance, 0)
	opts.RushDistance = max(opts.RushDistance, 0)
	opts.MaxMeshesPerFrame = max(opts.MaxMeshesPerFrame, 1)
	s.opts = opts
}

// FocusColumn returns the column containing p.
func FocusColumn(p mgl32.Vec3) world.ColumnCoord {
	return world.ColumnAt(int(math.Floor(float64(p.X()))), int(math.Floor(float64(p.Z()))))
}

// Update streams columns around focus and rebuilds up to the frame cap of
// dirty sections.
func (s *Streamer) Update(focus mgl32.Vec3) (StreamStats, error) {
	defer profiling.Track("engine.Streamer.Update")()

	var stats StreamStats
	center := FocusColumn(focus)
	rd := s.opts.RenderDistance

	for _, col := range s.store.Columns() {
		if col.Coord.ChebyshevDistance(center) > rd {
			s.store.UnloadColumn(col.Coord)
			stats.Unloaded++
			s.log.Debug("column unloaded", "x", col.Coord.X, "z", col.Coord.Z)
		}
	}

	for _, cc := range ringOrder(center, rd) {
		if s.store.HasColumn(cc) {
			continue
		}
		if _, err := s.store.LoadColumn(cc); err != nil {
			return stats, fmt.Errorf("stream column %v: %w", cc, err)
		}
		stats.Loaded++
		s.log.Debug("column loaded", "x", cc.X, "z", cc.Z)
	}

	batch, total := s.selectDirty(center, visibility.FocusSection(focus).Y)
	stats.Meshed = s.build(batch)
	stats.Pending = total - stats.Meshed
	return stats, nil
}

// selectDirty orders dirty sections by column distance then vertical
// distance and returns the capped batch plus the total dirty count. While
// any dirty section lies within the rush distance, farther ones wait.
func (s *Streamer) selectDirty(center world.ColumnCoord, focusY int) ([]world.SectionCoord, int) {
	s.dirty = s.dirty[:0]
	for _, sc := range s.store.DirtySections() {
		s.dirty = append(s.dirty, dirtySection{
			coord: sc,
			dist:  sc.Column().ChebyshevDistance(center),
			dy:    abs(sc.Y - focusY),
		})
	}
	slices.SortFunc(s.dirty, func(a, b dirtySection) int {
		return cmp.Or(
			cmp.Compare(a.dist, b.dist),
			cmp.Compare(a.dy, b.dy),
			cmp.Compare(a.coord.X, b.coord.X),
			cmp.Compare(a.coord.Z, b.coord.Z),
			cmp.Compare(a.coord.Y, b.coord.Y),
		)
	})

	candidates := s.dirty
	if len(candidates) > 0 && candidates[0].dist <= s.opts.RushDistance {
		n, _ := slices.BinarySearchFunc(candidates, s.opts.RushDistance+1, func(d dirtySection, dist int) int {
			return cmp.Compare(d.dist, dist)
		})
		candidates = candidates[:n]
	}
	candidates = candidates[:min(len(candidates), s.opts.MaxMeshesPerFrame)]

	s.batch = s.batch[:0]
	for _, d := range candidates {
		s.batch = append(s.batch, d.coord)
	}
	return s.batch, len(s.dirty)
}

// build meshes the batch and publishes the results. It returns how many
// sections were published.
func (s *Streamer) build(batch []world.SectionCoord) int {
	if len(batch) == 0 {
		return 0
	}
	var results []meshing.Result
	if s.pool != nil && len(batch) > 1 {
		results = s.pool.BuildBatch(batch)
	} else {
		results = make([]meshing.Result, 0, len(batch))
		for _, sc := range batch {
			results = append(results, s.mesher.Build(sc))
		}
	}
	published := 0
	for _, r := range results {
		if s.mesher.Apply(r) {
			published++
		}
	}
	return published
}

// ringOrder lists the columns of the square around center ring by ring,
// nearest first.
func ringOrder(center world.ColumnCoord, radius int) []world.ColumnCoord {
	side := 2*radius + 1
	out := make([]world.ColumnCoord, 0, side*side)
	out = append(out, center)
	for r := 1; r <= radius; r++ {
		x0, x1 := center.X-r, center.X+r
		z0, z1 := center.Z-r, center.Z+r
		for x := x0; x <= x1; x++ {
			out = append(out, world.ColumnCoord{X: x, Z: z0})
		}
		for z := z0 + 1; z <= z1-1; z++ {
			out = append(out, world.ColumnCoord{X: x1, Z: z})
		}
		for x := x1; x >= x0; x-- {
			out = append(out, world.ColumnCoord{X: x, Z: z1})
		}
		for z := z1 - 1; z >= z0+1; z-- {
			out = append(out, world.ColumnCoord{X: x0, Z: z})
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
