package main

import (
	"fmt"
	"time"

	"github.com/nsf/termbox-go"
)

// barGlyphs gives eighth-block resolution within the topmost cell of a bar.
var barGlyphs = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// runTUI draws the spectrum as colored terminal bars until the user quits
// or the frame loop finishes.
func runTUI(a *app, done <-chan struct{}) {
	if err := termbox.Init(); err != nil {
		fmt.Printf("Failed to initialize TUI: %v\n", err)
		<-done
		return
	}
	defer termbox.Close()

	termbox.SetInputMode(termbox.InputEsc)

	eventQueue := make(chan termbox.Event)
	go func() {
		for {
			eventQueue <- termbox.PollEvent()
		}
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case ev := <-eventQueue:
			switch ev.Type {
			case termbox.EventKey:
				if handleKey(ev, a) {
					return
				}
			case termbox.EventResize:
				draw(a)
			}
		case <-ticker.C:
			draw(a)
		}
	}
}

// handleKey applies one key event; returns true to quit.
func handleKey(ev termbox.Event, a *app) bool {
	if ev.Key == termbox.KeyEsc || ev.Ch == 'q' {
		return true
	}

	switch {
	case ev.Key == termbox.KeyArrowUp:
		a.adjustVolume(1, 0)
	case ev.Key == termbox.KeyArrowDown:
		a.adjustVolume(-1, 0)
	case ev.Key == termbox.KeyArrowRight:
		a.adjustVolume(0, 1)
	case ev.Key == termbox.KeyArrowLeft:
		a.adjustVolume(0, -1)
	}
	return false
}

// cellColor picks a terminal color from the column's stereo balance: left
// leans red, right leans blue, balanced content stays green.
func cellColor(r, b float32) termbox.Attribute {
	switch {
	case r > 1.3*b:
		return termbox.ColorRed
	case b > 1.3*r:
		return termbox.ColorBlue
	default:
		return termbox.ColorGreen
	}
}

// draw paints one spectrum frame into the terminal.
func draw(a *app) {
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	termWidth, termHeight := termbox.Size()
	if termWidth < 2 || termHeight < 3 {
		_ = termbox.Flush()
		return
	}

	colors := a.columns()
	graphHeight := termHeight - 1 // bottom row is the status line

	for cx := 0; cx < termWidth; cx++ {
		// Nearest engine column for this cell.
		src := cx * len(colors) / termWidth
		c := colors[src]

		col := cellColor(c.R, c.B)

		// Bar height in eighths of a cell, clipped at the top of the
		// terminal like the pixel renderer clips at h = 1.
		h := c.H
		if h > 1 {
			h = 1
		}
		eighths := int(h * float32(graphHeight) * 8)

		for cy := 0; cy < graphHeight; cy++ {
			cellBottom := (graphHeight - 1 - cy) * 8
			fill := eighths - cellBottom
			if fill <= 0 {
				continue
			}
			if fill > 8 {
				fill = 8
			}
			termbox.SetCell(cx, cy, barGlyphs[fill], col, termbox.ColorDefault)
		}
	}

	status := fmt.Sprintf(" bar %.0f  sono %.0f  [arrows] adjust  [q] quit",
		a.BarVolume(), a.SonoVolume())
	for i, ch := range status {
		if i >= termWidth {
			break
		}
		termbox.SetCell(i, termHeight-1, ch, termbox.ColorWhite, termbox.ColorDefault)
	}

	_ = termbox.Flush()
}
