package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable Load falls back to when no path is given.
const EnvConfigPath = "VOXELWORLD_CONFIG"

// Config is the engine's full configuration.
type Config struct {
	Seed        int64             `yaml:"seed"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Stream      StreamConfig      `yaml:"stream"`
	Mesh        MeshConfig        `yaml:"mesh"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// StreamConfig bounds the loaded region and per-frame mesh work.
type StreamConfig struct {
	RenderDistance    int           `yaml:"render_distance"` // in columns
	RushDistance      int           `yaml:"rush_distance"`
	MaxMeshesPerFrame int           `yaml:"max_meshes_per_frame"`
	SlowFrame         time.Duration `yaml:"slow_frame"`
}

type MeshConfig struct {
	AmbientOcclusion bool `yaml:"ambient_occlusion"`
	Workers          int  `yaml:"workers"`
}

type PhysicsConfig struct {
	TickRate     float64 `yaml:"tick_rate"`     // fixed steps per second
	FallInterval float64 `yaml:"fall_interval"` // seconds per cell
}

type PersistenceConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
	EditLogDir   string `yaml:"edit_log_dir"` // empty keeps edits in memory
}

const (
	MinRenderDistance = 1
	MaxRenderDistance = 32
)

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Seed:    1337,
		Terrain: DefaultTerrain(),
		Stream: StreamConfig{
			RenderDistance:    6,
			RushDistance:      2,
			MaxMeshesPerFrame: 8,
			SlowFrame:         20 * time.Millisecond,
		},
		Mesh: MeshConfig{
			AmbientOcclusion: true,
			Workers:          1,
		},
		Physics: PhysicsConfig{
			TickRate:     20,
			FallInterval: 0.05,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path falls back to
// $VOXELWORLD_CONFIG; with neither set the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps every field into its usable range.
func (c *Config) Normalize() {
	c.Stream.RenderDistance = clampInt(c.Stream.RenderDistance, MinRenderDistance, MaxRenderDistance)
	c.Stream.RushDistance = clampInt(c.Stream.RushDistance, 0, c.Stream.RenderDistance)
	if c.Stream.MaxMeshesPerFrame < 1 {
		c.Stream.MaxMeshesPerFrame = 1
	}
	if c.Stream.SlowFrame <= 0 {
		c.Stream.SlowFrame = 20 * time.Millisecond
	}
	if c.Mesh.Workers < 1 {
		c.Mesh.Workers = 1
	}
	if c.Physics.TickRate <= 0 {
		c.Physics.TickRate = 20
	}
	if c.Physics.FallInterval <= 0 {
		c.Physics.FallInterval = 0.05
	}
	c.Terrain.normalize()
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
