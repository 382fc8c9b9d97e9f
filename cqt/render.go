package cqt

// doPrerender rescales the column colors from [0,1] floats to [0,255.5]
// pixel range and caches the reciprocal bar heights. The rescale happens in
// place over the same color buffer Calc just filled, so a frame's colors
// are only valid float intensities until the first RenderLine* call; hosts
// reading ColorArray for diagnostics should do so before rendering.
func (e *Engine) doPrerender() {
	for x := 0; x < e.width; x++ {
		c := &e.colorBuf[x]
		c.R = 255.5 * clampUnit(c.R)
		c.G = 255.5 * clampUnit(c.G)
		c.B = 255.5 * clampUnit(c.B)
		if c.H < 0 {
			c.H = 0
		}
	}

	for x := 0; x < e.alignedWidth; x++ {
		e.rcpHBuf[x] = 1.0 / (e.colorBuf[x].H + 0.0001)
	}

	e.prerender = false
}

// RenderLineAlpha rasterizes scanline y of the bar graph into the output
// row with the given alpha. Row 0 is the top; each column draws a vertical
// bar of its height with the tip linearly faded toward black. Any y outside
// [0, height) instead emits the plain sonogram strip, one full-intensity
// pixel per column. Pixels pack little-endian as 0xAABBGGRR.
func (e *Engine) RenderLineAlpha(y int, alpha uint8) {
	if e.prerender {
		e.doPrerender()
	}

	a := uint32(alpha) << 24

	if y >= 0 && y < e.height {
		ht := float32(e.height-y) / float32(e.height)
		for x := 0; x < e.width; x++ {
			c := e.colorBuf[x]
			if c.H <= ht {
				e.output[x] = a
				continue
			}
			mul := (c.H - ht) * e.rcpHBuf[x]
			r := uint32(mul * c.R)
			g := uint32(mul*c.G) << 8
			b := uint32(mul*c.B) << 16
			e.output[x] = (r | g) | (b | a)
		}
		return
	}

	for x := 0; x < e.width; x++ {
		c := e.colorBuf[x]
		r := uint32(c.R)
		g := uint32(c.G) << 8
		b := uint32(c.B) << 16
		e.output[x] = (r | g) | (b | a)
	}
}

// RenderLineOpaque is RenderLineAlpha with full alpha.
func (e *Engine) RenderLineOpaque(y int) {
	e.RenderLineAlpha(y, 255)
}

func clampUnit(x float32) float32 {
	if x >= 0 {
		if x <= 1 {
			return x
		}
		return 1
	}
	return 0
}
