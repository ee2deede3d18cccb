package world

import (
	"sync"
)

// Edit is one recorded voxel write inside a column.
type Edit struct {
	Index int
	Block BlockType
}

// EditLog journals voxel writes per column so an unloaded column can be
// regenerated from the seed and then replayed.
type EditLog interface {
	Record(cc ColumnCoord, e Edit) error
	Edits(cc ColumnCoord) ([]Edit, error)
	Reset() error
}

// MemoryEditLog keeps edits in memory. Only the latest write per cell is
// retained.
type MemoryEditLog struct {
	mu    sync.Mutex
	edits map[ColumnCoord]map[int]BlockType
	order map[ColumnCoord][]int
}

func NewMemoryEditLog() *MemoryEditLog {
	return &MemoryEditLog{
		edits: make(map[ColumnCoord]map[int]BlockType),
		order: make(map[ColumnCoord][]int),
	}
}

func (l *MemoryEditLog) Record(cc ColumnCoord, e Edit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	col, ok := l.edits[cc]
	if !ok {
		col = make(map[int]BlockType)
		l.edits[cc] = col
	}
	if _, seen := col[e.Index]; !seen {
		l.order[cc] = append(l.order[cc], e.Index)
	}
	col[e.Index] = e.Block
	return nil
}

// Edits returns the column's edits in first-write order.
func (l *MemoryEditLog) Edits(cc ColumnCoord) ([]Edit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	col := l.edits[cc]
	out := make([]Edit, 0, len(col))
	for _, idx := range l.order[cc] {
		out = append(out, Edit{Index: idx, Block: col[idx]})
	}
	return out, nil
}

func (l *MemoryEditLog) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.edits)
	clear(l.order)
	return nil
}

// Len returns the number of edited cells across all columns.
func (l *MemoryEditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, col := range l.edits {
		n += len(col)
	}
	return n
}
