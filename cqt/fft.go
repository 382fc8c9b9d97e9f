package cqt

import "math"

// The FFT is a radix-4 decimation-in-frequency transform computed in place
// over complex64 values. Input arrives already permuted into bit-reversed
// order (Calc writes it that way through the permutation table), so the
// output lands in natural bin order.

// revbin reverses the low bits of x.
func revbin(x uint32, bits int) uint32 {
	m := uint32(0x55555555)
	x = ((x & m) << 1) | ((x &^ m) >> 1)
	m = 0x33333333
	x = ((x & m) << 2) | ((x &^ m) >> 2)
	m = 0x0F0F0F0F
	x = ((x & m) << 4) | ((x &^ m) >> 4)
	m = 0x00FF00FF
	x = ((x & m) << 8) | ((x &^ m) >> 8)
	m = 0x0000FFFF
	x = ((x & m) << 16) | ((x &^ m) >> 16)
	return (x >> (32 - bits)) & ((1 << bits) - 1)
}

// genPermTbl fills the bit-reversal permutation over the given bit width.
// Calc indexes it per group of four samples, so the width is log2(N)-2.
func (e *Engine) genPermTbl(bits int) {
	n := 1 << bits
	for x := 0; x < n; x++ {
		e.permTbl[x] = uint16(revbin(uint32(x), bits))
	}
}

// genExpTbl fills the twiddle table. For each subtransform size k the block
// [k, k+k/2) holds exp(-i*2*pi*x/k) and [k+k/2, 2k) holds exp(-i*3*pi*x/k);
// the final quarter block at [n, n+n/4) serves the outermost butterfly.
func (e *Engine) genExpTbl(n int) {
	for k := 2; k < n; k *= 2 {
		mul := 2 * math.Pi / float64(k)
		for x := 0; x < k/2; x++ {
			e.expTbl[k+x] = complex(float32(math.Cos(mul*float64(x))), float32(-math.Sin(mul*float64(x))))
		}
		mul = 3 * math.Pi / float64(k)
		for x := 0; x < k/2; x++ {
			e.expTbl[k+k/2+x] = complex(float32(math.Cos(mul*float64(x))), float32(-math.Sin(mul*float64(x))))
		}
	}
	mul := 2 * math.Pi / float64(n)
	for x := 0; x < n/4; x++ {
		e.expTbl[n+x] = complex(float32(math.Cos(mul*float64(x))), float32(-math.Sin(mul*float64(x))))
	}
}

// fftButterfly combines four size-q subtransforms into one size-4q
// transform. The middle two quarters are swapped relative to textbook
// radix-4 because the input ordering is bit reversed.
func (e *Engine) fftButterfly(v []complex64, q int) {
	e2 := e.expTbl[2*q:]
	e3 := e.expTbl[3*q:]
	e1 := e.expTbl[4*q:]

	v0 := v[0]
	v2 := v[q] // bit reversed
	v1 := v[2*q]
	v3 := v[3*q]
	a02, s02 := v0+v2, v0-v2
	a13, s13 := v1+v3, v1-v3
	v[0] = a02 + a13
	v[q] = complex(real(s02)+imag(s13), imag(s02)-real(s13))
	v[2*q] = a02 - a13
	v[3*q] = complex(real(s02)-imag(s13), imag(s02)+real(s13))

	for x := 1; x < q; x++ {
		v0 = v[x]
		v2 = e2[x] * v[q+x] // bit reversed
		v1 = e1[x] * v[2*q+x]
		v3 = e3[x] * v[3*q+x]
		a02, s02 = v0+v2, v0-v2
		a13, s13 = v1+v3, v1-v3
		v[x] = a02 + a13
		v[q+x] = complex(real(s02)+imag(s13), imag(s02)-real(s13))
		v[2*q+x] = a02 - a13
		v[3*q+x] = complex(real(s02)-imag(s13), imag(s02)+real(s13))
	}
}

// fftCalc transforms v[:n] in place, n a power of two. Sizes 1 and 2 are
// the recursion's base cases; everything larger splits into four quarters.
func (e *Engine) fftCalc(v []complex64, n int) {
	if n >= 4 {
		q := n >> 2
		e.fftCalc(v[:q], q)
		e.fftCalc(v[q:2*q], q)
		e.fftCalc(v[2*q:3*q], q)
		e.fftCalc(v[3*q:n], q)
		e.fftButterfly(v, q)
		return
	}
	if n == 2 {
		v0, v1 := v[0], v[1]
		v[0], v[1] = v0+v1, v0-v1
	}
}

// fft runs the configured transform over the working buffer.
func (e *Engine) fft() {
	switch e.fftSize {
	case 1024, 2048, 4096, 8192, 16384, 32768:
		e.fftCalc(e.fftBuf[:e.fftSize], e.fftSize)
	}
}
