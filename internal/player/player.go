// Package player feeds decoded PCM into the visualizer engine one frame at
// a time. It keeps a cursor into the stream and copies a sliding window of
// the most recent samples into the engine's input arrays, zero-padding
// before the stream starts so the first frames ramp in from silence.
package player

import (
	"errors"

	"cqtviz/cqt"
)

// ErrChannelMismatch is returned when the two channels differ in length.
var ErrChannelMismatch = errors.New("player: channel lengths differ")

// Player steps a stereo PCM stream through an engine.
type Player struct {
	left  []float32
	right []float32
	rate  int
	hop   int
	pos   int
}

// New creates a player over the given stereo stream. fps decides the hop:
// rate/fps samples per frame, at least 1.
func New(left, right []float32, rate, fps int) (*Player, error) {
	if len(left) != len(right) {
		return nil, ErrChannelMismatch
	}
	if fps < 1 {
		fps = 1
	}
	hop := rate / fps
	if hop < 1 {
		hop = 1
	}
	return &Player{
		left:  left,
		right: right,
		rate:  rate,
		hop:   hop,
	}, nil
}

// Hop returns the per-frame advance in samples.
func (p *Player) Hop() int { return p.hop }

// Pos returns the stream position in samples of the window's trailing edge.
func (p *Player) Pos() int { return p.pos }

// Frames returns the total number of frames the stream yields.
func (p *Player) Frames() int {
	return (len(p.left) + p.hop - 1) / p.hop
}

// Done reports whether the whole stream has been consumed.
func (p *Player) Done() bool {
	return p.pos >= len(p.left)
}

// Rewind resets the cursor to the stream start.
func (p *Player) Rewind() {
	p.pos = 0
}

// Fill copies the current window into the engine's input arrays and
// advances the cursor by one hop. The window ends at the cursor, so the
// engine always analyzes the samples just played; positions before the
// stream start read as zero. Returns false once the stream is exhausted.
func (p *Player) Fill(e *cqt.Engine) bool {
	if p.Done() {
		return false
	}

	in0 := e.InputArray(0)
	in1 := e.InputArray(1)
	n := len(in0)
	end := p.pos + p.hop
	if end > len(p.left) {
		end = len(p.left)
	}

	start := end - n
	for x := 0; x < n; x++ {
		src := start + x
		if src < 0 || src >= len(p.left) {
			in0[x] = 0
			in1[x] = 0
			continue
		}
		in0[x] = p.left[src]
		in1[x] = p.right[src]
	}

	p.pos += p.hop
	return true
}
