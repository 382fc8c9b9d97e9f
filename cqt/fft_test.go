package cqt

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// supportedSizes are the transform lengths the engine dispatches on.
var supportedSizes = []int{1024, 2048, 4096, 8192, 16384, 32768}

// prepareFFT fills the twiddle table for size n and returns an input
// permuted into the bit-reversed order the transform expects:
// v[revbin(t, log2 n)] = s[t].
func prepareFFT(e *Engine, s []complex64) []complex64 {
	n := len(s)
	bits := truncLog2(n)
	e.genExpTbl(n)

	v := make([]complex64, n)
	for t := range s {
		v[revbin(uint32(t), bits)] = s[t]
	}
	return v
}

func truncLog2(n int) int {
	bits := 0
	for 1<<bits < n {
		bits++
	}
	return bits
}

func randomSignal(n int, seed int64) []complex64 {
	rng := rand.New(rand.NewSource(seed))
	s := make([]complex64, n)
	for i := range s {
		s[i] = complex(rng.Float32()*2-1, rng.Float32()*2-1)
	}
	return s
}

// dftNaive is the O(n²) reference transform, accumulated in float64.
func dftNaive(s []complex64) []complex128 {
	n := len(s)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for t := 0; t < n; t++ {
			w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)*float64(t)/float64(n)))
			sum += complex128(s[t]) * w
		}
		out[k] = sum
	}
	return out
}

func TestFFTMatchesNaiveDFT(t *testing.T) {
	t.Parallel()

	// The naive DFT is quadratic; keep it to the smaller sizes and let the
	// reference-library test cover the rest.
	for _, n := range []int{1024, 4096} {
		n := n
		t.Run(fmt.Sprintf("N_%d", n), func(t *testing.T) {
			t.Parallel()

			e := New()
			s := randomSignal(n, int64(n))
			v := prepareFFT(e, s)
			e.fftCalc(v, n)

			want := dftNaive(s)
			tol := 1e-3 * float64(n)
			for k := range v {
				d := cmplx.Abs(complex128(v[k]) - want[k])
				if d > tol {
					t.Fatalf("bin %d: |got-want| = %g, tolerance %g", k, d, tol)
				}
			}
		})
	}
}

func TestFFTMatchesReference(t *testing.T) {
	t.Parallel()

	for _, n := range supportedSizes {
		n := n
		t.Run(fmt.Sprintf("N_%d", n), func(t *testing.T) {
			t.Parallel()

			plan, err := algofft.NewPlan32(n)
			if err != nil {
				t.Fatalf("failed to create reference plan: %v", err)
			}

			e := New()
			s := randomSignal(n, int64(n)+1)
			v := prepareFFT(e, s)
			e.fftCalc(v, n)

			want := make([]complex64, n)
			if err := plan.Forward(want, s); err != nil {
				t.Fatalf("reference forward failed: %v", err)
			}

			tol := 1e-3 * float64(n)
			for k := range v {
				d := cmplx.Abs(complex128(v[k]) - complex128(want[k]))
				if d > tol {
					t.Fatalf("bin %d: |got-want| = %g, tolerance %g", k, d, tol)
				}
			}
		})
	}
}

// TestFFTImpulse checks the transform of a unit impulse: every bin must be
// 1, independent of size.
func TestFFTImpulse(t *testing.T) {
	t.Parallel()

	for _, n := range supportedSizes {
		e := New()
		s := make([]complex64, n)
		s[0] = 1
		v := prepareFFT(e, s)
		e.fftCalc(v, n)

		for k := range v {
			if math.Abs(float64(real(v[k]))-1) > 1e-4 || math.Abs(float64(imag(v[k]))) > 1e-4 {
				t.Fatalf("N=%d bin %d: got %v, want 1+0i", n, k, v[k])
			}
		}
	}
}

// TestFFTParseval checks energy conservation within float32 tolerance.
func TestFFTParseval(t *testing.T) {
	t.Parallel()

	const n = 8192
	e := New()
	s := randomSignal(n, 7)
	v := prepareFFT(e, s)
	e.fftCalc(v, n)

	var timeEnergy, freqEnergy float64
	for i := range s {
		timeEnergy += real(complex128(s[i]) * cmplx.Conj(complex128(s[i])))
		freqEnergy += real(complex128(v[i]) * cmplx.Conj(complex128(v[i])))
	}
	freqEnergy /= float64(n)

	if rel := math.Abs(timeEnergy-freqEnergy) / timeEnergy; rel > 1e-4 {
		t.Errorf("Parseval mismatch: time %g, freq/N %g (rel %g)", timeEnergy, freqEnergy, rel)
	}
}

func BenchmarkFFT(b *testing.B) {
	for _, n := range supportedSizes {
		b.Run(fmt.Sprintf("FFT_%d", n), func(b *testing.B) {
			e := New()
			s := randomSignal(n, 99)
			v := prepareFFT(e, s)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				e.fftCalc(v, n)
			}
		})
	}
}
