package world

import (
	"math"
	"math/rand"
	"testing"
)

func TestHash2Deterministic(t *testing.T) {
	first := hash2(10, 20, 42)
	for i := 0; i < 100; i++ {
		if h := hash2(10, 20, 42); h != first {
			t.Fatalf("hash2 not deterministic: %d != %d", h, first)
		}
	}
	if hash2(1, 2, 42) == hash2(2, 1, 42) {
		t.Errorf("hash2 should not be symmetric in x/z")
	}
	if hash2(1, 1, 100) == hash2(1, 1, 200) {
		t.Errorf("hash2 should differ for different seeds")
	}
}

func TestValueNoiseRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		x := (rng.Float64() - 0.5) * 2000
		z := (rng.Float64() - 0.5) * 2000
		v := octaveNoise2D(x, z, 7, 4, 0.5, 2.0)
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Fatalf("octaveNoise2D(%f,%f) = %f out of [0,1]", x, z, v)
		}
	}
}

func TestValueNoiseContinuity(t *testing.T) {
	// Lattice points reproduce lattice values exactly
	for x := int64(-3); x <= 3; x++ {
		for z := int64(-3); z <= 3; z++ {
			got := valueNoise2D(float64(x), float64(z), 9)
			want := latticeValue(x, z, 9)
			if math.Abs(got-want) > 1e-12 {
				t.Fatalf("valueNoise2D(%d,%d) = %f, want %f", x, z, got, want)
			}
		}
	}
}

func TestHeightSourcesInRange(t *testing.T) {
	sources := map[string]HeightSource{
		"value":  NewValueNoiseHeightSource(5),
		"perlin": NewPerlinHeightSource(5),
		"flat":   FlatHeightSource(0.25),
	}
	for name, src := range sources {
		for _, cc := range []ColumnCoord{{0, 0}, {-4, 9}, {100, -100}} {
			s := src.Sample(cc.X, cc.Z)
			if len(s) != ChunkSizeX*ChunkSizeZ {
				t.Fatalf("%s: expected %d samples, got %d", name, ChunkSizeX*ChunkSizeZ, len(s))
			}
			for i, v := range s {
				if v < 0 || v > 1 {
					t.Fatalf("%s: sample %d of %v = %f out of [0,1]", name, i, cc, v)
				}
			}
		}
	}
}

func TestHeightSourcesSeamless(t *testing.T) {
	// Cells on either side of a column edge are one block apart in world space.
	src := NewValueNoiseHeightSource(11)
	a := src.Sample(0, 0)
	b := src.Sample(1, 0)
	for z := range ChunkSizeZ {
		d := math.Abs(float64(a[z*ChunkSizeX+ChunkSizeX-1] - b[z*ChunkSizeX]))
		if d > 0.2 {
			t.Fatalf("discontinuity at column edge z=%d: %f", z, d)
		}
	}
}

func TestCaveNoiseDeterministicAndNormalized(t *testing.T) {
	a := NewCaveNoise(77, 0)
	b := NewCaveNoise(77, 0)
	for x := -20; x < 20; x += 3 {
		for y := 0; y < 64; y += 5 {
			for z := -20; z < 20; z += 7 {
				va, vb := a.At(x, y, z), b.At(x, y, z)
				if va != vb {
					t.Fatalf("cave noise not deterministic at (%d,%d,%d)", x, y, z)
				}
				if va < 0 || va >= 1 {
					t.Fatalf("cave noise out of [0,1): %f", va)
				}
			}
		}
	}
}

func BenchmarkHeightSample(b *testing.B) {
	src := NewValueNoiseHeightSource(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = src.Sample(i%1024, (i*31)%1024)
	}
}
