// Package resampler provides sample rate conversion for feeding arbitrary
// audio files into the fixed-rate analysis engine.
package resampler

import (
	"math"
)

// Resampler performs rate conversion using windowed sinc interpolation.
type Resampler struct {
	// Number of sinc lobes on each side of the interpolation point.
	sincLobes int
}

// New creates a Resampler with default quality.
func New() *Resampler {
	return &Resampler{
		sincLobes: 16,
	}
}

// NewWithQuality creates a Resampler with the given lobe count.
// More lobes raise quality and cost; the value is clamped to [4, 64].
func NewWithQuality(lobes int) *Resampler {
	if lobes < 4 {
		lobes = 4
	}
	if lobes > 64 {
		lobes = 64
	}
	return &Resampler{
		sincLobes: lobes,
	}
}

// sinc computes sin(pi*x)/(pi*x) with proper handling at x=0.
func sinc(x float64) float64 {
	if math.Abs(x) < 1e-10 {
		return 1.0
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}

// blackman evaluates the Blackman window over [-1, 1], zero outside.
func blackman(x float64) float64 {
	if x < -1.0 || x > 1.0 {
		return 0.0
	}
	t := (x + 1.0) / 2.0
	return 0.42 - 0.5*math.Cos(2*math.Pi*t) + 0.08*math.Cos(4*math.Pi*t)
}

// OutputLength returns the number of samples produced when converting
// inputLen samples from srcRate to dstRate.
func OutputLength(inputLen int, srcRate, dstRate float64) int {
	if inputLen == 0 {
		return 0
	}
	return int(math.Round(float64(inputLen) * dstRate / srcRate))
}

// Resample converts data from srcRate to dstRate. Equal rates copy through
// unchanged. When downsampling, the sinc kernel widens to keep aliasing out
// of the band of interest.
func (r *Resampler) Resample(data []float32, srcRate, dstRate float64) []float32 {
	if len(data) == 0 {
		return []float32{}
	}

	if srcRate == dstRate {
		result := make([]float32, len(data))
		copy(result, data)
		return result
	}

	ratio := dstRate / srcRate
	inputLen := len(data)
	outputLen := OutputLength(inputLen, srcRate, dstRate)
	if outputLen == 0 {
		return []float32{}
	}

	output := make([]float32, outputLen)

	filterRatio := 1.0
	if ratio < 1.0 {
		// Downsampling: widen the kernel to cut everything above the new
		// Nyquist before it can alias.
		filterRatio = ratio
	}
	windowRadius := float64(r.sincLobes) / filterRatio

	for i := 0; i < outputLen; i++ {
		inputPos := float64(i) / ratio

		startIdx := int(math.Floor(inputPos - windowRadius))
		endIdx := int(math.Ceil(inputPos + windowRadius))
		if startIdx < 0 {
			startIdx = 0
		}
		if endIdx >= inputLen {
			endIdx = inputLen - 1
		}

		var sum, weightSum float64
		for j := startIdx; j <= endIdx; j++ {
			d := inputPos - float64(j)
			weight := sinc(d*filterRatio) * blackman(d/windowRadius)
			sum += float64(data[j]) * weight
			weightSum += weight
		}

		if weightSum > 0 {
			output[i] = float32(sum / weightSum)
		}
	}

	return output
}

// ResampleStereo converts a left/right pair in one call, mirroring the
// engine's two-channel input layout.
func (r *Resampler) ResampleStereo(left, right []float32, srcRate, dstRate float64) (outLeft, outRight []float32) {
	return r.Resample(left, srcRate, dstRate), r.Resample(right, srcRate, dstRate)
}
