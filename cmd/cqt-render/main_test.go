package main

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV writes a 16-bit stereo WAV with a sine on both channels.
func writeTestWAV(t *testing.T, path string, freq float64, rate, seconds int) {
	t.Helper()

	n := rate * seconds
	var data bytes.Buffer
	for i := 0; i < n; i++ {
		s := int16(16384 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		_ = binary.Write(&data, binary.LittleEndian, s) // left
		_ = binary.Write(&data, binary.LittleEndian, s) // right
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(36+data.Len()))
	out.WriteString("WAVEfmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))
	_ = binary.Write(&out, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&out, binary.LittleEndian, uint16(2))
	_ = binary.Write(&out, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&out, binary.LittleEndian, uint32(rate*4))
	_ = binary.Write(&out, binary.LittleEndian, uint16(4))
	_ = binary.Write(&out, binary.LittleEndian, uint16(16))
	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, uint32(data.Len()))
	out.Write(data.Bytes())

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatalf("Failed to write test WAV: %v", err)
	}
}

func TestRenderSonoMode(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	inFile := filepath.Join(tmpDir, "tone.wav")
	outFile := filepath.Join(tmpDir, "sono.png")
	writeTestWAV(t, inFile, 440, 48000, 2)

	cfg := config{width: 320, height: 100, bar: 17, sono: 17, fps: 25, mode: "sono"}
	if err := run(inFile, outFile, cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	f, err := os.Open(outFile)
	if err != nil {
		t.Fatalf("Output file not created: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 320 {
		t.Errorf("image width = %d, want 320", bounds.Dx())
	}
	// One row per frame: 2 seconds at 25 fps.
	if bounds.Dy() != 50 {
		t.Errorf("image height = %d, want 50 rows", bounds.Dy())
	}

	// A steady tone must light up some pixels past the fade-in.
	lit := false
	for x := 0; x < bounds.Dx() && !lit; x++ {
		r, g, b, _ := img.At(x, bounds.Dy()-1).RGBA()
		if r|g|b != 0 {
			lit = true
		}
	}
	if !lit {
		t.Error("spectrogram row is entirely black for a loud tone")
	}
}

func TestRenderBarsMode(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	inFile := filepath.Join(tmpDir, "tone.wav")
	outFile := filepath.Join(tmpDir, "bars.png")
	writeTestWAV(t, inFile, 440, 48000, 1)

	cfg := config{width: 320, height: 120, bar: 17, sono: 17, fps: 25, mode: "bars", at: -1}
	if err := run(inFile, outFile, cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	f, err := os.Open(outFile)
	if err != nil {
		t.Fatalf("Output file not created: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 121 {
		t.Errorf("image size = %dx%d, want 320x121", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderUnknownMode(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	inFile := filepath.Join(tmpDir, "tone.wav")
	writeTestWAV(t, inFile, 440, 48000, 1)

	cfg := config{width: 320, height: 100, bar: 17, sono: 17, fps: 25, mode: "nope"}
	err := run(inFile, filepath.Join(tmpDir, "out.png"), cfg)
	if err == nil {
		t.Fatal("run succeeded with unknown mode")
	}
}

func TestRenderMissingInput(t *testing.T) {
	t.Parallel()

	cfg := config{width: 320, height: 100, bar: 17, sono: 17, fps: 25, mode: "sono"}
	err := run(filepath.Join(t.TempDir(), "missing.wav"), filepath.Join(t.TempDir(), "out.png"), cfg)
	if err == nil {
		t.Fatal("run succeeded with missing input")
	}
}
