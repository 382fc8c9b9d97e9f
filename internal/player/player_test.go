package player

import (
	"errors"
	"testing"

	"cqtviz/cqt"
)

func newEngine(t *testing.T) *cqt.Engine {
	t.Helper()
	e := cqt.New()
	if _, err := e.Init(48000, 480, 240, 17.0, 17.0, false); err != nil {
		t.Fatalf("engine init failed: %v", err)
	}
	return e
}

func ramp(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(i)
	}
	return s
}

func TestNewChannelMismatch(t *testing.T) {
	t.Parallel()

	_, err := New(make([]float32, 10), make([]float32, 11), 48000, 25)
	if !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("error = %v, want %v", err, ErrChannelMismatch)
	}
}

func TestFirstFrameZeroPadded(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	n := e.FFTSize()

	p, err := New(ramp(n), ramp(n), 48000, 25)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !p.Fill(e) {
		t.Fatal("Fill returned false on first frame")
	}

	// Only the last hop samples of the window come from the stream; the
	// rest precedes the start and must be zero.
	in := e.InputArray(0)
	hop := p.Hop()
	for x := 0; x < n-hop; x++ {
		if in[x] != 0 {
			t.Fatalf("sample %d: got %v, want zero padding", x, in[x])
		}
	}
	for x := n - hop; x < n; x++ {
		want := float32(x - (n - hop))
		if in[x] != want {
			t.Fatalf("sample %d: got %v, want %v", x, in[x], want)
		}
	}
}

func TestCursorAdvance(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	p, err := New(ramp(48000), ramp(48000), 48000, 25)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if p.Hop() != 48000/25 {
		t.Fatalf("hop = %d, want %d", p.Hop(), 48000/25)
	}

	for i := 1; i <= 3; i++ {
		p.Fill(e)
		if p.Pos() != i*p.Hop() {
			t.Fatalf("after %d fills pos = %d, want %d", i, p.Pos(), i*p.Hop())
		}
	}
}

func TestDoneAtEOF(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	p, err := New(ramp(4800), ramp(4800), 48000, 25)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	want := p.Frames()
	got := 0
	for p.Fill(e) {
		got++
		if got > want+1 {
			t.Fatalf("Fill never reported EOF after %d frames", got)
		}
	}

	if got != want {
		t.Errorf("frame count = %d, want %d", got, want)
	}
	if !p.Done() {
		t.Error("Done() = false after stream consumed")
	}

	p.Rewind()
	if p.Done() || p.Pos() != 0 {
		t.Error("Rewind did not reset the cursor")
	}
}
