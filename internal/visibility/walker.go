package visibility

import (
	"math"

	"voxelworld/internal/profiling"
	"voxelworld/internal/world"

	"github.com/go-gl/mathgl/mgl32"
)

// Walker flood-fills from the viewer's section through open section faces
// to decide which meshes are drawn.
type Walker struct {
	renderDistance int
	frame          uint32
	visited        int

	queue   []world.SectionCoord
	visible []*world.Section
}

func NewWalker(renderDistance int) *Walker {
	return &Walker{renderDistance: max(renderDistance, 0)}
}

// SetRenderDistance sets the horizontal half-width of the walk box in columns.
func (w *Walker) SetRenderDistance(d int) {
	w.renderDistance = max(d, 0)
}

// Frame returns the counter of the last walk.
func (w *Walker) Frame() uint32 {
	return w.frame
}

// Visited returns how many sections the last walk reached.
func (w *Walker) Visited() int {
	return w.visited
}

// FocusSection returns the section containing p with Y clamped into the
// world's section range.
func FocusSection(p mgl32.Vec3) world.SectionCoord {
	sc := world.SectionAt(
		int(math.Floor(float64(p.X()))),
		int(math.Floor(float64(p.Y()))),
		int(math.Floor(float64(p.Z()))),
	)
	sc.Y = min(max(sc.Y, 0), world.NumSections-1)
	return sc
}

// Walk clears every loaded section's Visible flag, then marks the sections
// reachable from the focus through open faces, inside the render box and
// intersecting the frustum (bounding sphere, then box). A nil frustum disables the frustum test. The
// returned slice is reused by the next walk.
func (w *Walker) Walk(store *world.ChunkStore, focus mgl32.Vec3, frustum *Frustum) []*world.Section {
	defer profiling.Track("visibility.Walk")()

	cols := store.Columns()
	w.frame++
	if w.frame == 0 {
		// Counter wrapped: stale markers could collide with the new frame.
		for _, col := range cols {
			for i := range world.NumSections {
				col.Section(i).LastVisitedFrame = 0
			}
		}
		w.frame = 1
	}
	for _, col := range cols {
		for i := range world.NumSections {
			col.Section(i).Visible = false
		}
	}

	w.visible = w.visible[:0]
	w.queue = w.queue[:0]
	w.visited = 0

	start := FocusSection(focus)
	s := store.Section(start)
	if s == nil {
		return w.visible
	}
	s.LastVisitedFrame = w.frame
	w.queue = append(w.queue, start)

	for head := 0; head < len(w.queue); head++ {
		sc := w.queue[head]
		cur := store.Section(sc)
		w.visited++
		if cur.Mesh() != nil {
			cur.Visible = true
			w.visible = append(w.visible, cur)
		}

		open := cur.Passability()
		if !cur.Meshed() {
			// Not built yet: nothing is known to block the view.
			open = world.PassabilityAll
		}

		for _, face := range world.AllFaces {
			if !open.Open(face) {
				continue
			}
			next := sc.Neighbor(face)
			if !world.InSectionRange(next.Y) {
				continue
			}
			if abs(next.X-start.X) > w.renderDistance || abs(next.Z-start.Z) > w.renderDistance {
				continue
			}
			ns := store.Section(next)
			if ns == nil || ns.LastVisitedFrame == w.frame {
				continue
			}
			if frustum != nil {
				center, radius := ns.Bounds()
				if !frustum.IntersectsSphere(center, radius) {
					continue
				}
				// The sphere is loose around a flat section; refine with the box.
				if lo, hi := world.SectionAABB(next); !frustum.IntersectsAABB(lo, hi) {
					continue
				}
			}
			ns.LastVisitedFrame = w.frame
			w.queue = append(w.queue, next)
		}
	}
	return w.visible
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
