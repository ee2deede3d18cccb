package world

import (
	"math"

	"voxelworld/internal/profiling"
)

// TerrainGenerator fills a freshly allocated column. Implementations must be
// deterministic for a given seed and column coordinate.
type TerrainGenerator interface {
	PopulateColumn(c *Column)
	Seed() int64
}

// OreVein describes one kind of vein seeded while scanning stone.
type OreVein struct {
	Block    BlockType
	Chance   float64 // per stone cell
	VeinSize int     // max random-walk steps
	MaxY     int     // exclusive
}

// TerrainParams are the tuning constants of the generator.
type TerrainParams struct {
	HeightScale  float64
	HeightOffset int

	Caves             bool
	CaveThreshold     float64
	CaveScale         float64
	CaveMinY          int
	CaveSurfaceMargin int

	TreeChance float64
	TreeInset  int

	Ores []OreVein
}

// DefaultTerrainParams returns the stock tuning.
func DefaultTerrainParams() TerrainParams {
	return TerrainParams{
		HeightScale:       30,
		HeightOffset:      30,
		Caves:             true,
		CaveThreshold:     0.72,
		CaveScale:         1.0 / 16.0,
		CaveMinY:          4,
		CaveSurfaceMargin: 4,
		TreeChance:        0.08,
		TreeInset:         2,
		Ores: []OreVein{
			{Block: BlockTypeCoalOre, Chance: 0.0015, VeinSize: 8, MaxY: WorldHeight},
			{Block: BlockTypeIronOre, Chance: 0.0008, VeinSize: 6, MaxY: 64},
			{Block: BlockTypeGravel, Chance: 0.0004, VeinSize: 10, MaxY: WorldHeight},
		},
	}
}

// Generator builds columns from a height field, cave noise, ore veins and
// trees.
type Generator struct {
	seed    int64
	heights HeightSource
	caves   *CaveNoise
	params  TerrainParams
}

// NewGenerator creates a generator. A nil height source falls back to value
// noise.
func NewGenerator(seed int64, heights HeightSource, params TerrainParams) *Generator {
	if heights == nil {
		heights = NewValueNoiseHeightSource(seed)
	}
	return &Generator{
		seed:    seed,
		heights: heights,
		caves:   NewCaveNoise(seed, params.CaveScale),
		params:  params,
	}
}

func (g *Generator) Seed() int64 {
	return g.seed
}

// Params returns the generator's tuning.
func (g *Generator) Params() TerrainParams {
	return g.params
}

// SurfaceHeight converts a normalized height sample to a block height.
func (g *Generator) SurfaceHeight(sample float32) int {
	h := int(math.Floor(float64(sample)*g.params.HeightScale)) + g.params.HeightOffset
	return min(max(h, 1), WorldHeight-2)
}

func (g *Generator) isCave(wx, y, wz, surface int) bool {
	p := &g.params
	if !p.Caves || y < max(p.CaveMinY, 1) || y >= surface-p.CaveSurfaceMargin {
		return false
	}
	return g.caves.At(wx, y, wz) > p.CaveThreshold
}

// PopulateColumn fills c with terrain.
func (g *Generator) PopulateColumn(c *Column) {
	defer profiling.Track("world.PopulateColumn")()
	samples := g.heights.Sample(c.Coord.X, c.Coord.Z)
	if len(samples) < ChunkSizeX*ChunkSizeZ {
		// Missing samples read as 0.
		padded := make([]float32, ChunkSizeX*ChunkSizeZ)
		copy(padded, samples)
		samples = padded
	}
	var surface [ChunkSizeX * ChunkSizeZ]int

	for lz := range ChunkSizeZ {
		for lx := range ChunkSizeX {
			wx := c.Coord.X*ChunkSizeX + lx
			wz := c.Coord.Z*ChunkSizeZ + lz
			h := g.SurfaceHeight(samples[lz*ChunkSizeX+lx])
			surface[lz*ChunkSizeX+lx] = h

			for y := 0; y < h; y++ {
				var b BlockType
				switch {
				case y == 0:
					b = BlockTypeBedrock
				case g.isCave(wx, y, wz, h):
					b = BlockTypeAir
				case y < h-3:
					b = BlockTypeStone
				default:
					b = BlockTypeDirt
				}
				c.blocks[index(lx, y, lz)] = b
			}
			// No floating grass over a cave mouth
			if c.blocks[index(lx, h-1, lz)] != BlockTypeAir {
				c.blocks[index(lx, h, lz)] = BlockTypeGrass
			}
		}
	}

	g.placeTree(c, &surface)
	g.placeOres(c)
	c.MarkAllDirty()
}

// FlatGenerator builds bedrock, dirt and a grass surface at a fixed height.
type FlatGenerator struct {
	height int
}

func NewFlatGenerator(height int) *FlatGenerator {
	return &FlatGenerator{height: min(max(height, 0), WorldHeight-1)}
}

func (f *FlatGenerator) Seed() int64 { return 0 }

func (f *FlatGenerator) PopulateColumn(c *Column) {
	for lz := range ChunkSizeZ {
		for lx := range ChunkSizeX {
			for y := 0; y < f.height; y++ {
				if y == 0 {
					c.blocks[index(lx, y, lz)] = BlockTypeBedrock
				} else {
					c.blocks[index(lx, y, lz)] = BlockTypeDirt
				}
			}
			if f.height == 0 {
				c.blocks[index(lx, 0, lz)] = BlockTypeBedrock
			} else {
				c.blocks[index(lx, f.height, lz)] = BlockTypeGrass
			}
		}
	}
	c.MarkAllDirty()
}

// EmptyGenerator leaves every column as air.
type EmptyGenerator struct{}

func (EmptyGenerator) Seed() int64 { return 0 }

func (EmptyGenerator) PopulateColumn(c *Column) { c.MarkAllDirty() }
