package world

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// HeightSource supplies the normalized surface height of every cell of a
// column. The returned slice has ChunkSizeX*ChunkSizeZ entries indexed
// z*ChunkSizeX+x, each in [0,1]. Implementations must be pure for a seed.
type HeightSource interface {
	Sample(cx, cz int) []float32
}

// Deterministic 2D value noise with multiple octaves; integer hashing for
// lattice values.

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func hash2(x int64, z int64, seed int64) uint64 {
	// SplitMix64 style integer hash, stable across runs for same inputs
	v := uint64(x) + (uint64(z) << 1) + uint64(seed)*0x9E3779B97F4A7C15
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	v = v ^ (v >> 31)
	return v
}

func latticeValue(x int64, z int64, seed int64) float64 {
	h := hash2(x, z, seed)
	return float64(h&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func valueNoise2D(x float64, z float64, seed int64) float64 {
	x0 := math.Floor(x)
	z0 := math.Floor(z)

	fx := fade(x - x0)
	fz := fade(z - z0)

	ix, iz := int64(x0), int64(z0)
	v00 := latticeValue(ix, iz, seed)
	v10 := latticeValue(ix+1, iz, seed)
	v01 := latticeValue(ix, iz+1, seed)
	v11 := latticeValue(ix+1, iz+1, seed)

	return lerp(lerp(v00, v10, fx), lerp(v01, v11, fx), fz) // [0,1]
}

func octaveNoise2D(x float64, z float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	sum := 0.0
	norm := 0.0
	for i := range octaves {
		v := valueNoise2D(x*frequency, z*frequency, seed+int64(i*131))
		sum += v * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm // [0,1]
}

// ValueNoiseHeightSource samples fractal value noise.
type ValueNoiseHeightSource struct {
	seed        int64
	scale       float64
	octaves     int
	persistence float64
	lacunarity  float64
}

func NewValueNoiseHeightSource(seed int64) *ValueNoiseHeightSource {
	return &ValueNoiseHeightSource{
		seed:        seed,
		scale:       1.0 / 64.0,
		octaves:     4,
		persistence: 0.5,
		lacunarity:  2.0,
	}
}

func (s *ValueNoiseHeightSource) Sample(cx, cz int) []float32 {
	out := make([]float32, ChunkSizeX*ChunkSizeZ)
	for z := range ChunkSizeZ {
		for x := range ChunkSizeX {
			wx := float64(cx*ChunkSizeX+x) * s.scale
			wz := float64(cz*ChunkSizeZ+z) * s.scale
			out[z*ChunkSizeX+x] = float32(octaveNoise2D(wx, wz, s.seed, s.octaves, s.persistence, s.lacunarity))
		}
	}
	return out
}

// PerlinHeightSource samples gradient noise from go-perlin.
type PerlinHeightSource struct {
	noise *perlin.Perlin
	scale float64
}

func NewPerlinHeightSource(seed int64) *PerlinHeightSource {
	alpha := 2.0  // smoothing
	beta := 2.0   // frequency
	n := int32(3) // octaves
	return &PerlinHeightSource{
		noise: perlin.NewPerlin(alpha, beta, n, seed),
		scale: 1.0 / 48.0,
	}
}

func (s *PerlinHeightSource) Sample(cx, cz int) []float32 {
	out := make([]float32, ChunkSizeX*ChunkSizeZ)
	for z := range ChunkSizeZ {
		for x := range ChunkSizeX {
			wx := float64(cx*ChunkSizeX+x) * s.scale
			wz := float64(cz*ChunkSizeZ+z) * s.scale
			// Noise2D is roughly [-1,1]
			v := (s.noise.Noise2D(wx, wz) + 1) / 2
			out[z*ChunkSizeX+x] = float32(clamp01(v))
		}
	}
	return out
}

// FlatHeightSource returns the same height everywhere.
type FlatHeightSource float32

func (f FlatHeightSource) Sample(cx, cz int) []float32 {
	out := make([]float32, ChunkSizeX*ChunkSizeZ)
	for i := range out {
		out[i] = float32(f)
	}
	return out
}

// CaveNoise is a seeded 3D density field in [0,1).
type CaveNoise struct {
	noise opensimplex.Noise
	scale float64
}

func NewCaveNoise(seed int64, scale float64) *CaveNoise {
	if scale <= 0 {
		scale = 1.0 / 16.0
	}
	return &CaveNoise{noise: opensimplex.NewNormalized(seed), scale: scale}
}

// At samples the field at a world block position.
func (c *CaveNoise) At(x, y, z int) float64 {
	return c.noise.Eval3(float64(x)*c.scale, float64(y)*c.scale, float64(z)*c.scale)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
