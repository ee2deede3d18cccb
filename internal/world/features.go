package world

// columnRNG is a small deterministic LCG seeded per column.
type columnRNG struct {
	state int64
}

func newColumnRNG(seed int64, cx, cz int, salt int64) *columnRNG {
	s := seed ^ (int64(cx)*341873128712 + int64(cz)*132897987541 + salt)
	return &columnRNG{state: s}
}

func (r *columnRNG) next() int64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state
}

func (r *columnRNG) nextN(n int) int {
	if n <= 0 {
		return 0
	}
	v := int(r.next()>>33) % n
	if v < 0 {
		v = -v
	}
	return v
}

// nextFloat returns a value in [0,1).
func (r *columnRNG) nextFloat() float64 {
	return float64(uint64(r.next())>>11) / (1 << 53)
}

const (
	treeSalt = 600
	oreSalt  = 500

	trunkHeight = 4
)

// placeTree plants at most one oak inside the inset region of the column.
func (g *Generator) placeTree(c *Column, surface *[ChunkSizeX * ChunkSizeZ]int) {
	rng := newColumnRNG(g.seed, c.Coord.X, c.Coord.Z, treeSalt)
	if rng.nextFloat() >= g.params.TreeChance {
		return
	}
	inset := min(max(g.params.TreeInset, 0), ChunkSizeX/2-1)
	x := inset + rng.nextN(ChunkSizeX-2*inset)
	z := inset + rng.nextN(ChunkSizeZ-2*inset)
	h := surface[z*ChunkSizeX+x]
	if c.GetBlock(x, h, z) != BlockTypeGrass {
		return
	}
	placeOak(c, x, h+1, z)
}

// placeOak writes a trunk and a cube-minus-top-corners canopy. Only air is
// overwritten; cells outside the column are skipped.
func placeOak(c *Column, x, y, z int) {
	for i := range trunkHeight {
		setIfAir(c, x, y+i, z, BlockTypeOakLog)
	}
	for dy := 2; dy <= 4; dy++ {
		for dz := -2; dz <= 2; dz++ {
			for dx := -2; dx <= 2; dx++ {
				if dy == 4 && abs(dx) == 2 && abs(dz) == 2 {
					continue
				}
				setIfAir(c, x+dx, y+dy, z+dz, BlockTypeOakLeaves)
			}
		}
	}
}

func setIfAir(c *Column, x, y, z int, b BlockType) {
	if inColumn(x, y, z) && c.blocks[index(x, y, z)] == BlockTypeAir {
		c.blocks[index(x, y, z)] = b
	}
}

// placeOres scans stone cells in index order and seeds veins.
func (g *Generator) placeOres(c *Column) {
	if len(g.params.Ores) == 0 {
		return
	}
	rng := newColumnRNG(g.seed, c.Coord.X, c.Coord.Z, oreSalt)
	for y := 1; y < WorldHeight; y++ {
		for z := range ChunkSizeZ {
			for x := range ChunkSizeX {
				if c.blocks[index(x, y, z)] != BlockTypeStone {
					continue
				}
				for i := range g.params.Ores {
					ore := &g.params.Ores[i]
					if y >= ore.MaxY {
						continue
					}
					if rng.nextFloat() < ore.Chance {
						placeVein(c, x, y, z, ore, rng)
						break
					}
				}
			}
		}
	}
}

// placeVein random-walks from (x,y,z) converting stone to ore until it runs
// out of steps or leaves the column.
func placeVein(c *Column, x, y, z int, ore *OreVein, rng *columnRNG) {
	for range ore.VeinSize {
		if !inColumn(x, y, z) || y < 1 || y >= ore.MaxY {
			return
		}
		if i := index(x, y, z); c.blocks[i] == BlockTypeStone {
			c.blocks[i] = ore.Block
		}

		switch rng.nextN(6) {
		case 0:
			x++
		case 1:
			x--
		case 2:
			y++
		case 3:
			y--
		case 4:
			z++
		case 5:
			z--
		}
	}
}
