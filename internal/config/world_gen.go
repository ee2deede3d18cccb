package config

import (
	"fmt"

	"voxelworld/internal/world"
)

// Height sources selectable from the config file.
const (
	HeightSourceValue  = "value"
	HeightSourcePerlin = "perlin"
	HeightSourceFlat   = "flat"
)

// TerrainConfig mirrors world.TerrainParams with the height source choice
// and ores named by block.
type TerrainConfig struct {
	HeightSource string  `yaml:"height_source"`
	FlatLevel    float32 `yaml:"flat_level"` // sample used by the flat source

	HeightScale  float64 `yaml:"height_scale"`
	HeightOffset int     `yaml:"height_offset"`

	Caves             bool    `yaml:"caves"`
	CaveThreshold     float64 `yaml:"cave_threshold"`
	CaveScale         float64 `yaml:"cave_scale"`
	CaveMinY          int     `yaml:"cave_min_y"`
	CaveSurfaceMargin int     `yaml:"cave_surface_margin"`

	TreeChance float64 `yaml:"tree_chance"`
	TreeInset  int     `yaml:"tree_inset"`

	Ores []OreConfig `yaml:"ores"`
}

type OreConfig struct {
	Block    string  `yaml:"block"`
	Chance   float64 `yaml:"chance"`
	VeinSize int     `yaml:"vein_size"`
	MaxY     int     `yaml:"max_y"`
}

// DefaultTerrain returns the stock generator settings.
func DefaultTerrain() TerrainConfig {
	p := world.DefaultTerrainParams()
	t := TerrainConfig{
		HeightSource:      HeightSourceValue,
		FlatLevel:         0.5,
		HeightScale:       p.HeightScale,
		HeightOffset:      p.HeightOffset,
		Caves:             p.Caves,
		CaveThreshold:     p.CaveThreshold,
		CaveScale:         p.CaveScale,
		CaveMinY:          p.CaveMinY,
		CaveSurfaceMargin: p.CaveSurfaceMargin,
		TreeChance:        p.TreeChance,
		TreeInset:         p.TreeInset,
	}
	for _, o := range p.Ores {
		t.Ores = append(t.Ores, OreConfig{Block: o.Block.String(), Chance: o.Chance, VeinSize: o.VeinSize, MaxY: o.MaxY})
	}
	return t
}

func (t *TerrainConfig) normalize() {
	switch t.HeightSource {
	case HeightSourceValue, HeightSourcePerlin, HeightSourceFlat:
	default:
		t.HeightSource = HeightSourceValue
	}
	t.FlatLevel = float32(clampFloat(float64(t.FlatLevel), 0, 1))
	t.HeightOffset = clampInt(t.HeightOffset, 1, world.WorldHeight-2)
	t.CaveThreshold = clampFloat(t.CaveThreshold, 0, 1)
	t.CaveMinY = clampInt(t.CaveMinY, 1, world.WorldHeight-1)
	t.CaveSurfaceMargin = max(t.CaveSurfaceMargin, 0)
	t.TreeChance = clampFloat(t.TreeChance, 0, 1)
	// Canopy reaches two cells from the trunk
	t.TreeInset = clampInt(t.TreeInset, 2, world.ChunkSizeX/2)
	for i := range t.Ores {
		o := &t.Ores[i]
		o.Chance = clampFloat(o.Chance, 0, 1)
		o.VeinSize = max(o.VeinSize, 1)
		o.MaxY = clampInt(o.MaxY, 1, world.WorldHeight)
	}
}

// Params converts the settings into generator tuning.
func (t TerrainConfig) Params() (world.TerrainParams, error) {
	p := world.TerrainParams{
		HeightScale:       t.HeightScale,
		HeightOffset:      t.HeightOffset,
		Caves:             t.Caves,
		CaveThreshold:     t.CaveThreshold,
		CaveScale:         t.CaveScale,
		CaveMinY:          t.CaveMinY,
		CaveSurfaceMargin: t.CaveSurfaceMargin,
		TreeChance:        t.TreeChance,
		TreeInset:         t.TreeInset,
	}
	for _, o := range t.Ores {
		b, ok := world.BlockByName(o.Block)
		if !ok {
			return world.TerrainParams{}, fmt.Errorf("terrain: unknown ore block %q", o.Block)
		}
		p.Ores = append(p.Ores, world.OreVein{Block: b, Chance: o.Chance, VeinSize: o.VeinSize, MaxY: o.MaxY})
	}
	return p, nil
}

// NewHeightSource builds the configured height field for seed.
func (t TerrainConfig) NewHeightSource(seed int64) world.HeightSource {
	switch t.HeightSource {
	case HeightSourcePerlin:
		return world.NewPerlinHeightSource(seed)
	case HeightSourceFlat:
		return world.FlatHeightSource(t.FlatLevel)
	default:
		return world.NewValueNoiseHeightSource(seed)
	}
}

// NewGenerator builds the terrain generator for seed.
func (t TerrainConfig) NewGenerator(seed int64) (*world.Generator, error) {
	params, err := t.Params()
	if err != nil {
		return nil, err
	}
	return world.NewGenerator(seed, t.NewHeightSource(seed), params), nil
}
