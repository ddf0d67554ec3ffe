package noise

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func samplers() map[string]Sampler {
	return map[string]Sampler{
		"perlin":  NewPerlin(12345, 8),
		"simplex": NewSimplex(12345, 8),
	}
}

// TestDeterminism checks identical inputs reproduce identical outputs for
// both noise variants, including across Clone.
func TestDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for name, s := range samplers() {
		clone := s.Clone()
		for i := 0; i < 200; i++ {
			p := mgl64.Vec3{
				rng.Float64()*2000 - 1000,
				rng.Float64()*2000 - 1000,
				rng.Float64()*2000 - 1000,
			}
			a := s.SampleFractal(p, 0.01, 4, 0.5, 2.0)
			b := s.SampleFractal(p, 0.01, 4, 0.5, 2.0)
			c := clone.SampleFractal(p, 0.01, 4, 0.5, 2.0)
			if a != b || a != c {
				t.Fatalf("%s not deterministic at %v: %g, %g, clone %g", name, p, a, b, c)
			}
		}
	}
}

// TestOutputRange checks fractal output stays within [-1, 1] over many
// random sample points.
func TestOutputRange(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for name, s := range samplers() {
		for i := 0; i < 2000; i++ {
			p := mgl64.Vec3{
				rng.Float64()*500 - 250,
				rng.Float64()*500 - 250,
				rng.Float64()*500 - 250,
			}
			v := s.SampleFractal(p, 0.05, 5, 0.5, 2.0)
			if v < -1.0 || v > 1.0 || math.IsNaN(v) {
				t.Fatalf("%s fractal value %g out of [-1, 1] at %v", name, v, p)
			}
		}
	}
}

func TestSeedChangesOutput(t *testing.T) {
	p := mgl64.Vec3{13.7, -42.1, 88.8}

	a := NewPerlin(1, 4).SampleFractal(p, 0.1, 4, 0.5, 2.0)
	b := NewPerlin(2, 4).SampleFractal(p, 0.1, 4, 0.5, 2.0)
	if a == b {
		t.Errorf("perlin seeds 1 and 2 produced identical value %g", a)
	}

	c := NewSimplex(1, 4).SampleFractal(p, 0.1, 4, 0.5, 2.0)
	d := NewSimplex(2, 4).SampleFractal(p, 0.1, 4, 0.5, 2.0)
	if c == d {
		t.Errorf("simplex seeds 1 and 2 produced identical value %g", c)
	}
}

// TestContinuity samples along a line and rejects jumps far larger than the
// step could explain; coherent noise must not have discontinuities.
func TestContinuity(t *testing.T) {
	for name, s := range samplers() {
		prev := s.SampleFractal(mgl64.Vec3{0, 3.3, -7.7}, 0.02, 4, 0.5, 2.0)
		for i := 1; i <= 5000; i++ {
			p := mgl64.Vec3{float64(i) * 0.05, 3.3, -7.7}
			v := s.SampleFractal(p, 0.02, 4, 0.5, 2.0)
			if d := math.Abs(v - prev); d > 0.2 {
				t.Fatalf("%s jumped by %g between steps at x=%g", name, d, p.X())
			}
			prev = v
		}
	}
}

func TestMaxAmplitude(t *testing.T) {
	s := NewPerlin(1, 8)
	// 1 + 0.5 + 0.25 + 0.125
	if got, want := s.MaxAmplitude(4, 0.5), 1.875; math.Abs(got-want) > 1e-12 {
		t.Errorf("MaxAmplitude(4, 0.5) = %g, want %g", got, want)
	}
	// Clamped to the precomputed octave count.
	if got := s.MaxAmplitude(100, 0.5); got > 2.0 {
		t.Errorf("MaxAmplitude should clamp octaves: got %g", got)
	}
}

func TestOctaveOutOfRange(t *testing.T) {
	p := mgl64.Vec3{1, 2, 3}
	for name, s := range samplers() {
		if v := s.Sample(p, 1.0, -1); v != 0 {
			t.Errorf("%s Sample octave -1 = %g, want 0", name, v)
		}
		if v := s.Sample(p, 1.0, 99); v != 0 {
			t.Errorf("%s Sample octave 99 = %g, want 0", name, v)
		}
	}
}

// TestConcurrentSampling hammers one shared sampler from several goroutines
// and verifies outputs agree with serial sampling.
func TestConcurrentSampling(t *testing.T) {
	s := NewSimplex(555, 6)
	points := make([]mgl64.Vec3, 512)
	rng := rand.New(rand.NewSource(3))
	for i := range points {
		points[i] = mgl64.Vec3{rng.Float64() * 100, rng.Float64() * 100, rng.Float64() * 100}
	}

	want := make([]float64, len(points))
	for i, p := range points {
		want[i] = s.SampleFractal(p, 0.03, 4, 0.5, 2.0)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, p := range points {
				if got := s.SampleFractal(p, 0.03, 4, 0.5, 2.0); got != want[i] {
					t.Errorf("concurrent sample mismatch at %v: %g vs %g", p, got, want[i])
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkPerlinFractal(b *testing.B) {
	s := NewPerlin(1, 8)
	var sink float64
	for i := 0; i < b.N; i++ {
		sink = s.SampleFractal(mgl64.Vec3{float64(i) * 0.1, 0, 0}, 0.01, 4, 0.5, 2.0)
	}
	_ = sink
}

func BenchmarkSimplexFractal(b *testing.B) {
	s := NewSimplex(1, 8)
	var sink float64
	for i := 0; i < b.N; i++ {
		sink = s.SampleFractal(mgl64.Vec3{float64(i) * 0.1, 0, 0}, 0.01, 4, 0.5, 2.0)
	}
	_ = sink
}
