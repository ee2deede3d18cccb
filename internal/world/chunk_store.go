package world

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"voxelworld/internal/profiling"
)

// ErrShapeMismatch is returned when persisted column data does not match the
// compiled-in column dimensions.
var ErrShapeMismatch = errors.New("column shape mismatch")

// ColumnData is the serialisable voxel content of one column.
type ColumnData struct {
	Coord  ColumnCoord
	SizeX  int
	Height int
	SizeZ  int
	Blocks []BlockType
}

// ChunkStore owns every loaded column and mediates all voxel reads and writes.
// Voxel data is written only from the simulation goroutine; the lock guards
// the column map so meshing workers can resolve neighbours concurrently.
type ChunkStore struct {
	columns  map[ColumnCoord]*Column
	mu       sync.RWMutex
	modCount uint64 // Increases on any column add/remove

	gen   TerrainGenerator
	edits EditLog
}

// NewChunkStore creates a store that generates missing columns with gen and
// journals writes to edits. A nil edits log keeps edits in memory.
func NewChunkStore(gen TerrainGenerator, edits EditLog) *ChunkStore {
	if edits == nil {
		edits = NewMemoryEditLog()
	}
	return &ChunkStore{
		columns: make(map[ColumnCoord]*Column),
		gen:     gen,
		edits:   edits,
	}
}

// Generator returns the generator used for missing columns.
func (cs *ChunkStore) Generator() TerrainGenerator {
	return cs.gen
}

// SetGenerator swaps the generator. Already loaded columns are untouched.
func (cs *ChunkStore) SetGenerator(gen TerrainGenerator) {
	cs.mu.Lock()
	cs.gen = gen
	cs.mu.Unlock()
}

// EditLog returns the journal that records voxel writes.
func (cs *ChunkStore) EditLog() EditLog {
	return cs.edits
}

// Column returns the loaded column at cc or nil.
func (cs *ChunkStore) Column(cc ColumnCoord) *Column {
	cs.mu.RLock()
	col := cs.columns[cc]
	cs.mu.RUnlock()
	return col
}

// HasColumn checks if a column is loaded without generating it.
func (cs *ChunkStore) HasColumn(cc ColumnCoord) bool {
	return cs.Column(cc) != nil
}

// Section returns the section at sc if its column is loaded.
func (cs *ChunkStore) Section(sc SectionCoord) *Section {
	col := cs.Column(sc.Column())
	if col == nil {
		return nil
	}
	return col.Section(sc.Y)
}

// LoadColumn returns the column at cc, generating it and replaying its
// recorded edits if it is not loaded yet. Repeated calls return the same
// column. A freshly loaded column is fully dirty, and so are its loaded
// cardinal neighbours.
func (cs *ChunkStore) LoadColumn(cc ColumnCoord) (*Column, error) {
	if col := cs.Column(cc); col != nil {
		return col, nil
	}
	defer profiling.Track("world.LoadColumn")()

	col := NewColumn(cc)
	cs.gen.PopulateColumn(col)

	edits, err := cs.edits.Edits(cc)
	if err != nil {
		return nil, fmt.Errorf("replay edits for column %v: %w", cc, err)
	}
	for _, e := range edits {
		if e.Index >= 0 && e.Index < len(col.blocks) {
			col.blocks[e.Index] = e.Block
			col.modified = true
		}
	}

	cs.mu.Lock()
	if existing, ok := cs.columns[cc]; ok {
		cs.mu.Unlock()
		return existing, nil
	}
	cs.columns[cc] = col
	cs.modCount++
	cs.mu.Unlock()

	for _, face := range horizontalFaces {
		dx, _, dz := face.Offset()
		if nb := cs.Column(ColumnCoord{X: cc.X + dx, Z: cc.Z + dz}); nb != nil {
			nb.MarkAllDirty()
		}
	}
	return col, nil
}

var horizontalFaces = [4]BlockFace{FaceNorth, FaceSouth, FaceEast, FaceWest}

// UnloadColumn drops a column's meshes and voxel data. Reports whether the
// column was loaded.
func (cs *ChunkStore) UnloadColumn(cc ColumnCoord) bool {
	cs.mu.Lock()
	col, ok := cs.columns[cc]
	if ok {
		delete(cs.columns, cc)
		cs.modCount++
	}
	cs.mu.Unlock()
	if !ok {
		return false
	}
	col.DropMeshes()
	col.blocks = nil
	return true
}

// GetVoxel returns the block at world coordinates. Unloaded columns and
// out-of-range heights read as air; nothing is generated.
func (cs *ChunkStore) GetVoxel(x, y, z int) BlockType {
	if y < 0 || y >= WorldHeight {
		return BlockTypeAir
	}
	col := cs.Column(ColumnAt(x, z))
	if col == nil {
		return BlockTypeAir
	}
	return col.GetBlock(mod(x, ChunkSizeX), y, mod(z, ChunkSizeZ))
}

// IsSolid reports whether the block at world coordinates is non-air and
// not transparent.
func (cs *ChunkStore) IsSolid(x, y, z int) bool {
	return cs.GetVoxel(x, y, z).IsOpaque()
}

// IsAir checks if the block at the specified world coordinates is air.
func (cs *ChunkStore) IsAir(x, y, z int) bool {
	return cs.GetVoxel(x, y, z) == BlockTypeAir
}

// SetVoxel writes a block at world coordinates, loading the owning column on
// demand. Heights outside the world are ignored. The containing section is
// marked dirty, as is the vertically adjacent section when y sits on a
// section boundary and the matching sections of a cardinal neighbour column
// when the write touches that column's edge.
func (cs *ChunkStore) SetVoxel(x, y, z int, b BlockType) error {
	if y < 0 || y >= WorldHeight {
		return nil
	}
	cc := ColumnAt(x, z)
	col, err := cs.LoadColumn(cc)
	if err != nil {
		return err
	}

	lx, lz := mod(x, ChunkSizeX), mod(z, ChunkSizeZ)
	if !col.SetBlock(lx, y, lz, b) {
		return nil
	}
	col.modified = true

	sy := y / SectionHeight
	col.sections[sy].MarkDirty()
	switch y % SectionHeight {
	case 0:
		if s := col.Section(sy - 1); s != nil {
			s.MarkDirty()
		}
	case SectionHeight - 1:
		if s := col.Section(sy + 1); s != nil {
			s.MarkDirty()
		}
	}

	// Mark neighbour columns dirty if we touched a border block
	if lx == 0 {
		cs.markEdgeDirty(ColumnCoord{X: cc.X - 1, Z: cc.Z}, y)
	} else if lx == ChunkSizeX-1 {
		cs.markEdgeDirty(ColumnCoord{X: cc.X + 1, Z: cc.Z}, y)
	}
	if lz == 0 {
		cs.markEdgeDirty(ColumnCoord{X: cc.X, Z: cc.Z - 1}, y)
	} else if lz == ChunkSizeZ-1 {
		cs.markEdgeDirty(ColumnCoord{X: cc.X, Z: cc.Z + 1}, y)
	}

	if err := cs.edits.Record(cc, Edit{Index: index(lx, y, lz), Block: b}); err != nil {
		return fmt.Errorf("record edit at (%d,%d,%d): %w", x, y, z, err)
	}
	return nil
}

// markEdgeDirty dirties the section of a cardinal neighbour column at height
// y, plus its vertical neighbour when y is on a section boundary since the
// write also feeds that section's ambient occlusion.
func (cs *ChunkStore) markEdgeDirty(cc ColumnCoord, y int) {
	sy := y / SectionHeight
	cs.markSectionDirty(SectionCoord{X: cc.X, Y: sy, Z: cc.Z})
	switch y % SectionHeight {
	case 0:
		if sy > 0 {
			cs.markSectionDirty(SectionCoord{X: cc.X, Y: sy - 1, Z: cc.Z})
		}
	case SectionHeight - 1:
		if sy < NumSections-1 {
			cs.markSectionDirty(SectionCoord{X: cc.X, Y: sy + 1, Z: cc.Z})
		}
	}
}

func (cs *ChunkStore) markSectionDirty(sc SectionCoord) {
	if s := cs.Section(sc); s != nil {
		s.MarkDirty()
	}
}

// Columns returns the loaded columns ordered by coordinate.
func (cs *ChunkStore) Columns() []*Column {
	cs.mu.RLock()
	out := make([]*Column, 0, len(cs.columns))
	for _, col := range cs.columns {
		out = append(out, col)
	}
	cs.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Column) int {
		return compareColumns(a.Coord, b.Coord)
	})
	return out
}

func compareColumns(a, b ColumnCoord) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	return cmp.Compare(a.Z, b.Z)
}

// DirtySections returns the coordinates of every dirty section of every
// loaded column.
func (cs *ChunkStore) DirtySections() []SectionCoord {
	var out []SectionCoord
	for _, col := range cs.Columns() {
		for i := range col.sections {
			if col.sections[i].dirty {
				out = append(out, col.sections[i].Coord)
			}
		}
	}
	return out
}

// Len returns the number of loaded columns.
func (cs *ChunkStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.columns)
}

// ModCount returns the current modification count of the column map.
func (cs *ChunkStore) ModCount() uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.modCount
}

// ExportColumns copies the voxel arrays of all loaded columns.
func (cs *ChunkStore) ExportColumns() []ColumnData {
	defer profiling.Track("world.ExportColumns")()
	cols := cs.Columns()
	out := make([]ColumnData, 0, len(cols))
	for _, col := range cols {
		out = append(out, ColumnData{
			Coord:  col.Coord,
			SizeX:  ChunkSizeX,
			Height: WorldHeight,
			SizeZ:  ChunkSizeZ,
			Blocks: slices.Clone(col.blocks),
		})
	}
	return out
}

// RestoreColumns replaces the loaded set with the given columns. Every
// cached mesh is discarded and each restored column starts fully dirty.
// The edit journal is rewritten to the difference between the restored data
// and freshly generated terrain so that restored columns survive an
// unload/reload cycle. Nothing is applied if any column has the wrong shape.
//
// All diffs are computed before the journal is touched. If the journal
// fails after its reset the loaded set is left as it was, but the journal
// no longer matches it and the caller must restore again or discard it.
func (cs *ChunkStore) RestoreColumns(data []ColumnData) error {
	defer profiling.Track("world.RestoreColumns")()
	for _, d := range data {
		if d.SizeX != ChunkSizeX || d.Height != WorldHeight || d.SizeZ != ChunkSizeZ || len(d.Blocks) != ColumnVolume {
			return fmt.Errorf("restore column %v (%dx%dx%d, %d blocks): %w",
				d.Coord, d.SizeX, d.Height, d.SizeZ, len(d.Blocks), ErrShapeMismatch)
		}
	}

	restored := make(map[ColumnCoord]*Column, len(data))
	diffs := make(map[ColumnCoord][]Edit, len(data))
	order := make([]ColumnCoord, 0, len(data))
	for _, d := range data {
		col := NewColumn(d.Coord)
		cs.gen.PopulateColumn(col)
		var diff []Edit
		for i, b := range d.Blocks {
			if col.blocks[i] != b {
				diff = append(diff, Edit{Index: i, Block: b})
			}
		}
		if _, dup := restored[d.Coord]; !dup {
			order = append(order, d.Coord)
		}
		for _, e := range diff {
			col.blocks[e.Index] = e.Block
		}
		col.modified = len(diff) > 0
		restored[d.Coord] = col
		diffs[d.Coord] = diff
	}

	if err := cs.edits.Reset(); err != nil {
		return fmt.Errorf("reset edit log: %w", err)
	}
	for _, cc := range order {
		for _, e := range diffs[cc] {
			if err := cs.edits.Record(cc, e); err != nil {
				return fmt.Errorf("record restored edit for column %v: %w", cc, err)
			}
		}
	}

	cs.mu.Lock()
	old := cs.columns
	cs.columns = restored
	cs.modCount++
	cs.mu.Unlock()

	for _, col := range old {
		col.DropMeshes()
	}
	return nil
}
