package physics

import (
	"fmt"

	"voxelworld/internal/profiling"
	"voxelworld/internal/world"
)

// DefaultFallInterval is the time in seconds a falling block takes to drop one cell.
const DefaultFallInterval = 0.05

// Voxels is the slice of the chunk store the simulator reads and writes.
type Voxels interface {
	GetVoxel(x, y, z int) world.BlockType
	SetVoxel(x, y, z int, b world.BlockType) error
	HasColumn(cc world.ColumnCoord) bool
}

// Faller is a block in flight. It occupies Pos but is not present in the store.
type Faller struct {
	Pos   [3]int
	Block world.BlockType
	Timer float64
}

// FallingBlocks turns unsupported falling-type blocks into fallers and drops
// them one cell per interval until they land.
type FallingBlocks struct {
	voxels   Voxels
	interval float64

	fallers []Faller
	index   map[[3]int]int
	landed  uint64
}

func NewFallingBlocks(v Voxels, interval float64) *FallingBlocks {
	if interval <= 0 {
		interval = DefaultFallInterval
	}
	return &FallingBlocks{
		voxels:   v,
		interval: interval,
		index:    make(map[[3]int]int),
	}
}

// Live returns the number of blocks currently falling.
func (f *FallingBlocks) Live() int {
	return len(f.fallers)
}

// Landed returns how many fallers have come to rest since creation.
func (f *FallingBlocks) Landed() uint64 {
	return f.landed
}

// Fallers returns a copy of the live fallers.
func (f *FallingBlocks) Fallers() []Faller {
	out := make([]Faller, len(f.fallers))
	copy(out, f.fallers)
	return out
}

// Occupied reports whether a faller currently holds the cell.
func (f *FallingBlocks) Occupied(x, y, z int) bool {
	_, ok := f.index[[3]int{x, y, z}]
	return ok
}

// Check spawns a faller at (x, y, z) if the block there falls and nothing
// supports it. The source cell is cleared and the cell above is checked in
// turn so stacked columns come down together.
func (f *FallingBlocks) Check(x, y, z int) error {
	for ; y < world.WorldHeight; y++ {
		pos := [3]int{x, y, z}
		if _, ok := f.index[pos]; ok {
			return nil
		}
		b := f.voxels.GetVoxel(x, y, z)
		if !world.Props(b).Falling || f.supported(pos) {
			return nil
		}
		if err := f.voxels.SetVoxel(x, y, z, world.BlockTypeAir); err != nil {
			return fmt.Errorf("spawn faller at (%d,%d,%d): %w", x, y, z, err)
		}
		f.index[pos] = len(f.fallers)
		f.fallers = append(f.fallers, Faller{Pos: pos, Block: b})
	}
	return nil
}

// supported reports whether the cell under pos stops a faller. Below the
// world floor counts as solid.
func (f *FallingBlocks) supported(pos [3]int) bool {
	if pos[1]-1 < 0 {
		return true
	}
	return f.voxels.GetVoxel(pos[0], pos[1]-1, pos[2]) != world.BlockTypeAir
}

// Tick advances every faller by dt seconds. Fallers whose column is not
// loaded are frozen until it is streamed back in.
func (f *FallingBlocks) Tick(dt float64) error {
	defer profiling.Track("physics.FallingBlocks.Tick")()

	for i := 0; i < len(f.fallers); {
		fl := &f.fallers[i]
		if !f.voxels.HasColumn(world.ColumnAt(fl.Pos[0], fl.Pos[2])) {
			i++
			continue
		}
		fl.Timer += dt
		removed := false
		for fl.Timer >= f.interval {
			fl.Timer -= f.interval
			done, err := f.step(i)
			if err != nil {
				return err
			}
			if done {
				removed = true
				break
			}
		}
		if !removed {
			i++
		}
	}
	return nil
}

func (f *FallingBlocks) canFall(pos [3]int) bool {
	if f.supported(pos) {
		return false
	}
	_, held := f.index[[3]int{pos[0], pos[1] - 1, pos[2]}]
	return !held
}

// step moves faller i down one cell if it can and lands it once the cell
// below is non-air. It reports whether the faller was removed.
func (f *FallingBlocks) step(i int) (bool, error) {
	fl := &f.fallers[i]
	if f.canFall(fl.Pos) {
		delete(f.index, fl.Pos)
		fl.Pos[1]--
		f.index[fl.Pos] = i
	}
	if !f.supported(fl.Pos) {
		return false, nil
	}

	x, y, z := fl.Pos[0], fl.Pos[1], fl.Pos[2]
	block := fl.Block
	f.remove(i)
	f.landed++
	// A block placed into the faller's cell while it was in flight wins.
	if f.voxels.GetVoxel(x, y, z) != world.BlockTypeAir {
		return true, nil
	}
	if err := f.voxels.SetVoxel(x, y, z, block); err != nil {
		return true, fmt.Errorf("land faller at (%d,%d,%d): %w", x, y, z, err)
	}
	return true, nil
}

// remove swap-deletes faller i.
func (f *FallingBlocks) remove(i int) {
	last := len(f.fallers) - 1
	delete(f.index, f.fallers[i].Pos)
	if i != last {
		f.fallers[i] = f.fallers[last]
		f.index[f.fallers[i].Pos] = i
	}
	f.fallers = f.fallers[:last]
}
