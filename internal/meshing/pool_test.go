package meshing

import (
	"reflect"
	"testing"

	"voxelworld/internal/world"
)

func TestWorkerPoolMatchesSequential(t *testing.T) {
	cs := world.NewChunkStore(world.NewGenerator(42, nil, world.DefaultTerrainParams()), nil)
	var coords []world.SectionCoord
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			if _, err := cs.LoadColumn(world.ColumnCoord{X: x, Z: z}); err != nil {
				t.Fatal(err)
			}
			for y := range world.NumSections {
				coords = append(coords, world.SectionCoord{X: x, Y: y, Z: z})
			}
		}
	}

	m := NewMesher(cs, Options{AmbientOcclusion: true})
	pool := NewWorkerPool(m, 4, 8)
	defer pool.Shutdown()
	if pool.Workers() != 4 {
		t.Fatalf("Workers() = %d, want 4", pool.Workers())
	}

	got := pool.BuildBatch(coords)
	if len(got) != len(coords) {
		t.Fatalf("got %d results, want %d", len(got), len(coords))
	}
	for i, sc := range coords {
		want := m.Build(sc)
		if got[i].Coord != sc {
			t.Fatalf("result %d is for %v, want %v", i, got[i].Coord, sc)
		}
		if got[i].Open != want.Open || !reflect.DeepEqual(got[i].Mesh, want.Mesh) {
			t.Fatalf("pool result for %v differs from sequential build", sc)
		}
	}
}

func TestWorkerPoolAfterShutdown(t *testing.T) {
	cs := newEmptyStore()
	set(t, cs, 1, 1, 1, world.BlockTypeStone)
	pool := NewWorkerPool(NewMesher(cs, Options{}), 2, 1)
	pool.Shutdown()

	res := pool.BuildBatch([]world.SectionCoord{{}, {Y: 1}})
	if res[0].Mesh == nil || res[0].Mesh.Faces != 6 {
		t.Fatalf("inline fallback did not build the section")
	}
	if res[1].Mesh != nil {
		t.Fatalf("expected empty section")
	}
}
