// Command cqt-render renders a WAV file's constant-Q spectrum to a PNG.
//
// Usage:
//
//	cqt-render [options] <input.wav> <output.png>
//
// Modes:
//
//	-mode sono    Scrolling spectrogram, one row per frame (default)
//	-mode bars    Single bar-graph frame taken at -at seconds
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"cqtviz/cqt"
	"cqtviz/internal/player"
	"cqtviz/internal/wav"
	"cqtviz/pkg/resampler"
)

var (
	width   = flag.Int("width", 1920, "Output width in columns")
	height  = flag.Int("height", 480, "Bar graph height (bars mode)")
	barVol  = flag.Float64("bar", 17.0, "Bar height gain (1-100)")
	sonoVol = flag.Float64("sono", 17.0, "Sonogram brightness gain (1-100)")
	super   = flag.Bool("super", false, "Supersample the frequency axis 2x")
	rate    = flag.Int("rate", 0, "Force analysis sample rate (0 = use file rate)")
	fps     = flag.Int("fps", 25, "Analysis frames per second")
	mode    = flag.String("mode", "sono", "Render mode: sono or bars")
	at      = flag.Float64("at", -1, "Timestamp for bars mode in seconds (default: middle)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input.wav> <output.png>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Renders a constant-Q spectrum image from a WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s song.wav spectrogram.png\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mode bars -at 42.5 song.wav bars.png\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config{
		width:  *width,
		height: *height,
		bar:    float32(*barVol),
		sono:   float32(*sonoVol),
		super:  *super,
		rate:   *rate,
		fps:    *fps,
		mode:   *mode,
		at:     *at,
	}

	if err := run(flag.Arg(0), flag.Arg(1), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	width, height int
	bar, sono     float32
	super         bool
	rate          int
	fps           int
	mode          string
	at            float64
}

func run(inPath, outPath string, cfg config) error {
	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	audio, err := wav.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}

	img, err := render(audio, cfg)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// render runs the analysis over the whole file and paints the requested
// image.
func render(audio *wav.File, cfg config) (*image.NRGBA, error) {
	left, right := audio.StereoPair()
	fileRate := int(audio.SampleRate)

	analysisRate := fileRate
	if cfg.rate != 0 {
		analysisRate = cfg.rate
	} else if fileRate < 8000 || fileRate > 96000 {
		analysisRate = 48000
	}
	if analysisRate != fileRate {
		left, right = resampler.New().ResampleStereo(left, right, float64(fileRate), float64(analysisRate))
	}

	engine := cqt.New()
	if _, err := engine.Init(analysisRate, cfg.width, cfg.height, cfg.bar, cfg.sono, cfg.super); err != nil {
		return nil, fmt.Errorf("engine init failed: %w", err)
	}

	feeder, err := player.New(left, right, analysisRate, cfg.fps)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	switch cfg.mode {
	case "sono":
		return renderSono(engine, feeder), nil
	case "bars":
		return renderBars(engine, feeder, cfg.at, cfg.fps), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.mode)
	}
}

// renderSono paints one spectrogram row per frame, top to bottom.
func renderSono(engine *cqt.Engine, feeder *player.Player) *image.NRGBA {
	w := engine.Width()
	img := image.NewNRGBA(image.Rect(0, 0, w, feeder.Frames()))

	for y := 0; feeder.Fill(engine); y++ {
		engine.Calc()
		engine.RenderLineOpaque(-1)
		writeRow(img, y, engine.OutputArray())
	}
	return img
}

// renderBars steps to the requested timestamp and paints one full bar
// frame plus the sonogram strip as the bottom row. Each frame spans
// 1/fps seconds, so the frame index is just at*fps.
func renderBars(engine *cqt.Engine, feeder *player.Player, at float64, fps int) *image.NRGBA {
	target := feeder.Frames() / 2
	if at >= 0 {
		target = int(at * float64(fps))
	}
	if target >= feeder.Frames() {
		target = feeder.Frames() - 1
	}

	for i := 0; i <= target && feeder.Fill(engine); i++ {
	}
	engine.Calc()

	w, h := engine.Width(), engine.Height()
	img := image.NewNRGBA(image.Rect(0, 0, w, h+1))
	for y := 0; y <= h; y++ {
		line := y
		if y == h {
			line = -1
		}
		engine.RenderLineOpaque(line)
		writeRow(img, y, engine.OutputArray())
	}
	return img
}

// writeRow packs one output row into the image. Pixels are little-endian
// 0xAABBGGRR, which is exactly NRGBA byte order.
func writeRow(img *image.NRGBA, y int, row []uint32) {
	base := img.PixOffset(0, y)
	for x, px := range row {
		binary.LittleEndian.PutUint32(img.Pix[base+4*x:], px)
	}
}
