package cqt

import "math"

// Calc runs one frame: stage the two input channels into the FFT buffer,
// transform, evaluate every column's band-pass kernel and compose the
// per-column colors and bar heights. The next RenderLine* call will pick
// up the fresh colors.
func (e *Engine) Calc() {
	e.stage()
	e.fft()
	e.evaluate()

	if e.tSize != e.width {
		for x := 0; x < e.width; x++ {
			a, b := e.colorBuf[2*x], e.colorBuf[2*x+1]
			e.colorBuf[x] = Color{
				R: 0.5 * (a.R + b.R),
				G: 0.5 * (a.G + b.G),
				B: 0.5 * (a.B + b.B),
				H: 0.5 * (a.H + b.H),
			}
		}
	}

	e.prerender = true
}

// stage packs both real channels into one complex sequence of length N/4
// groups, left in the real part and right in the imaginary part, written
// directly in bit-reversed order. Each group interleaves two overlapping
// analysis segments: a plain pair a quarter-buffer apart and a flat-top
// weighted "attack" segment covering the most recent samples, which keeps
// the transform responsive to transients.
func (e *Engine) stage() {
	h := e.fftSize >> 1
	q := e.fftSize >> 2
	shift := h - e.attackSize
	in0, in1 := e.input[0], e.input[1]

	for x := 0; x < e.attackSize; x++ {
		i := 4 * int(e.permTbl[x])
		w := e.attackTbl[x]
		e.fftBuf[i] = complex(in0[shift+x], in1[shift+x])
		e.fftBuf[i+1] = complex(w*in0[h+shift+x], w*in1[h+shift+x])
		e.fftBuf[i+2] = complex(in0[q+shift+x], in1[q+shift+x])
		e.fftBuf[i+3] = 0
	}
	for x := e.attackSize; x < q; x++ {
		i := 4 * int(e.permTbl[x])
		e.fftBuf[i] = complex(in0[shift+x], in1[shift+x])
		e.fftBuf[i+1] = 0
		e.fftBuf[i+2] = complex(in0[q+shift+x], in1[q+shift+x])
		e.fftBuf[i+3] = 0
	}
}

// evaluate computes each column's stereo energies and composes its color.
// The double square root maps power to a roughly perceptual brightness
// curve; the bar height stays on the amplitude scale.
func (e *Engine) evaluate() {
	m := 0
	for x := 0; x < e.tSize; x++ {
		ki := e.kernelIndex[x]
		if ki.Len == 0 {
			e.colorBuf[x] = Color{}
			continue
		}

		r0, r1 := e.cqtColumn(e.kernel[m:m+ki.Len], ki.Start)

		e.colorBuf[x] = Color{
			R: sqrtf(e.sonoV * sqrtf(r0)),
			G: sqrtf(e.sonoV * sqrtf(0.5*(r0+r1))),
			B: sqrtf(e.sonoV * sqrtf(r1)),
			H: e.barV * sqrtf(0.5*(r0+r1)),
		}

		m += ki.Len
	}
}

// cqtColumn dot-products one kernel against the spectrum at symmetric bins
// (i, N-i). Because the left channel went into the real part and the right
// into the imaginary part, the conjugate symmetry of a real signal's
// spectrum lets the two sums decode back into per-channel components, whose
// squared magnitudes are returned.
func (e *Engine) cqtColumn(kernel []float32, start int) (r0, r1 float32) {
	var are, aim, bre, bim float32
	i, j := start, e.fftSize-start
	for _, u := range kernel {
		vi := e.fftBuf[i]
		vj := e.fftBuf[j]
		are += u * real(vi)
		aim += u * imag(vi)
		bre += u * real(vj)
		bim += u * imag(vj)
		i++
		j--
	}

	v0re, v0im := are+bre, aim-bim // left
	v1re, v1im := bim+aim, bre-are // right
	r0 = v0re*v0re + v0im*v0im
	r1 = v1re*v1re + v1im*v1im
	return r0, r1
}

func sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
