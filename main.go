// Command cqtviz renders a live constant-Q spectrum of a WAV file.
//
// The audio is stepped through in real time; every frame feeds the most
// recent samples into the analysis engine and renders a bar graph plus a
// sonogram strip. Frames stream to a browser canvas over WebSocket, and a
// terminal view shows the same spectrum as colored bars.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"cqtviz/cqt"
	"cqtviz/internal/player"
	"cqtviz/internal/wav"
	"cqtviz/pkg/resampler"
	"cqtviz/web"
)

// silenceThreshold is the per-sample energy below which a frame is skipped.
const silenceThreshold = 1e-8

// app serializes access to the engine between the frame loop, the TUI and
// the web control callbacks. The engine itself is single-threaded by
// contract; every entry point below takes the lock.
type app struct {
	mu     sync.Mutex
	engine *cqt.Engine
	player *player.Player
	loop   bool
}

// step advances one frame: fill the input window, skip silent frames, run
// the analysis. Returns false when the stream ends and looping is off.
func (a *app) step() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.player.Fill(a.engine) {
		if !a.loop {
			return false
		}
		a.player.Rewind()
		a.player.Fill(a.engine)
	}

	if !a.engine.DetectSilence(silenceThreshold) {
		a.engine.Calc()
	}
	return true
}

// renderFrame rasterizes the current frame into a fresh RGBA buffer:
// Height() bar scanlines followed by one sonogram strip row. A fresh
// buffer per call keeps the broadcast hub off the engine's live output.
func (a *app) renderFrame() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	w := a.engine.Width()
	h := a.engine.Height()
	frame := make([]byte, w*(h+1)*4)

	for y := 0; y <= h; y++ {
		line := y
		if y == h {
			line = -1 // sonogram strip
		}
		a.engine.RenderLineOpaque(line)
		base := y * w * 4
		for x, px := range a.engine.OutputArray() {
			binary.LittleEndian.PutUint32(frame[base+4*x:], px)
		}
	}
	return frame
}

// columns returns a snapshot of the per-column colors with the pixel
// scaling already applied, for the terminal view.
func (a *app) columns() []cqt.Color {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Force the prerender so R/G/B are consistently in pixel range.
	a.engine.RenderLineOpaque(-1)
	out := make([]cqt.Color, a.engine.Width())
	copy(out, a.engine.ColorArray())
	return out
}

// SetVolume implements web.VisualizerController.
func (a *app) SetVolume(barV, sonoV float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine.SetVolume(barV, sonoV)
}

// SetHeight implements web.VisualizerController.
func (a *app) SetHeight(height int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine.SetHeight(height)
}

// BarVolume implements web.VisualizerController.
func (a *app) BarVolume() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.BarVolume()
}

// SonoVolume implements web.VisualizerController.
func (a *app) SonoVolume() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.SonoVolume()
}

// Width implements web.VisualizerController.
func (a *app) Width() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Width()
}

// Height implements web.VisualizerController.
func (a *app) Height() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Height()
}

// adjustVolume nudges both gains by delta, used by the TUI keys.
func (a *app) adjustVolume(barDelta, sonoDelta float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine.SetVolume(a.engine.BarVolume()+barDelta, a.engine.SonoVolume()+sonoDelta)
}

// loadAudio decodes the WAV file and brings it to a rate the engine
// accepts. rateOverride forces the analysis rate; 0 keeps the file's rate
// when possible.
func loadAudio(path string, rateOverride int) (left, right []float32, rate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	audio, err := wav.Parse(f)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to parse input: %w", err)
	}

	left, right = audio.StereoPair()
	fileRate := int(audio.SampleRate)

	rate = fileRate
	if rateOverride != 0 {
		rate = rateOverride
	} else if fileRate < 8000 || fileRate > 96000 {
		rate = 48000
	}

	if rate != fileRate {
		slog.Info("Resampling", "from", fileRate, "to", rate)
		left, right = resampler.New().ResampleStereo(left, right, float64(fileRate), float64(rate))
	}
	return left, right, rate, nil
}

func main() {
	inFile := flag.String("in", "", "Path to WAV file to visualize (required)")
	width := flag.Int("width", 960, "Output width in columns")
	height := flag.Int("height", 240, "Bar graph height in scanlines")
	barVol := flag.Float64("bar", 17.0, "Bar height gain (1-100)")
	sonoVol := flag.Float64("sono", 17.0, "Sonogram brightness gain (1-100)")
	super := flag.Bool("super", false, "Supersample the frequency axis 2x")
	rate := flag.Int("rate", 0, "Force analysis sample rate (0 = use file rate)")
	fps := flag.Int("fps", 25, "Frames per second")
	loop := flag.Bool("loop", false, "Restart from the beginning at end of file")
	webPort := flag.Int("port", 8080, "Web viewer port")
	noWeb := flag.Bool("no-web", false, "Disable web viewer")
	noBrowser := flag.Bool("no-browser", false, "Don't auto-open browser")
	noTUI := flag.Bool("no-tui", false, "Disable terminal view")
	logFile := flag.String("log", "cqtviz.log", "Log file path")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -in <file.wav> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Real-time constant-Q spectrum visualizer.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -in song.wav\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -in song.wav -width 1920 -height 480 -super\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -in song.wav -no-tui -port 9000\n", os.Args[0])
	}
	flag.Parse()

	if *inFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	if *fps < 1 || *fps > 240 {
		fmt.Printf("Invalid fps %d, using 25\n", *fps)
		*fps = 25
	}

	// Setup logging
	file, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	logger := slog.New(slog.NewTextHandler(file, nil))
	slog.SetDefault(logger)
	slog.Info("Starting cqtviz", "args", os.Args)

	left, right, analysisRate, err := loadAudio(*inFile, *rate)
	if err != nil {
		slog.Error("Failed to load audio", "file", *inFile, "error", err)
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	engine := cqt.New()
	fftSize, err := engine.Init(analysisRate, *width, *height, float32(*barVol), float32(*sonoVol), *super)
	if err != nil {
		slog.Error("Engine init rejected configuration", "error", err)
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	slog.Info("Engine initialized", "rate", analysisRate, "fftSize", fftSize, "width", *width, "height", *height)

	feeder, err := player.New(left, right, analysisRate, *fps)
	if err != nil {
		slog.Error("Failed to create player", "error", err)
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	a := &app{engine: engine, player: feeder, loop: *loop}

	// Start web viewer if not disabled
	var webServer *web.Server
	if !*noWeb {
		webServer = web.NewServer(a, *webPort)
		go func() {
			if err := webServer.Start(); err != nil {
				slog.Error("Web server error", "error", err)
			}
		}()

		if !*noBrowser {
			time.Sleep(200 * time.Millisecond) // Give server time to start
			go func() {
				url := fmt.Sprintf("http://localhost:%d", *webPort)
				if err := web.OpenBrowser(url); err != nil {
					slog.Error("Failed to open browser", "error", err)
				}
			}()
		}

		fmt.Printf("Web viewer available at http://localhost:%d\n", *webPort)
	}

	// Frame loop
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second / time.Duration(*fps))
		defer ticker.Stop()

		frames := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			if !a.step() {
				slog.Info("End of stream", "frames", frames)
				return
			}
			frames++

			if webServer != nil && webServer.ClientCount() > 0 {
				webServer.PushFrame(a.renderFrame())
			}
		}
	}()

	if *noTUI {
		fmt.Println("Terminal view disabled. Press Ctrl+C to exit.")
		<-done
	} else {
		runTUI(a, done)
		close(stop)
		<-done
	}

	if webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := webServer.Shutdown(ctx); err != nil {
			slog.Error("Web server shutdown error", "error", err)
		}
	}
	slog.Info("Shutdown complete")
}
