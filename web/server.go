// Package web serves the browser viewer: an embedded canvas page that
// receives rendered spectrum frames as binary WebSocket messages and sends
// volume/height adjustments back.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnsupportedPlatform is returned when browser opening is not supported.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

//go:embed static/*
var staticFiles embed.FS

// VisualizerController is the engine surface the viewer drives.
type VisualizerController interface {
	SetVolume(barV, sonoV float32)
	SetHeight(height int)
	BarVolume() float32
	SonoVolume() float32
	Width() int
	Height() int
}

// Message represents a WebSocket control message.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ConfigPayload tells the client how to interpret frame bytes: each frame
// is Rows scanlines of Width RGBA pixels, bar rows first, then one
// sonogram strip row.
type ConfigPayload struct {
	Width int `json:"width"`
	Rows  int `json:"rows"`
}

// StatePayload carries the adjustable engine parameters.
type StatePayload struct {
	BarVolume  float64 `json:"barVolume"`
	SonoVolume float64 `json:"sonoVolume"`
	Height     int     `json:"height"`
}

// Server streams rendered frames to browser clients.
type Server struct {
	vis        VisualizerController
	port       int
	hub        *Hub
	httpServer *http.Server

	mu sync.RWMutex
}

// NewServer creates a server streaming frames rendered from vis. Each
// frame holds Height()+1 scanlines: the bar rows followed by one sonogram
// strip row.
func NewServer(vis VisualizerController, port int) *Server {
	return &Server{
		vis:  vis,
		port: port,
		hub:  NewHub(),
	}
}

// Start starts the web server and blocks until it shuts down.
func (s *Server) Start() error {
	go s.hub.Run()

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create static file system: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/state", s.handleAPIState)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Web viewer starting", "port", s.port, "url", fmt.Sprintf("http://localhost:%d", s.port))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of connected viewers, letting the host
// skip rendering when nobody is watching.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

// PushFrame broadcasts one rendered frame. The buffer must hold
// width*rows RGBA pixels; the hub keeps it queued until every client has
// written it, so the caller hands over a copy, not the engine's live output
// row.
func (s *Server) PushFrame(frame []byte) {
	s.hub.BroadcastBinary(frame)
}

// handleIndex serves the main HTML page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

//nolint:gochecknoglobals // WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// handleWebSocket handles WebSocket connections.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan message, 16),
	}

	s.hub.register <- client

	s.sendConfig(client)
	s.sendState(client)

	go client.writePump()
	client.readPump(func(data []byte) {
		s.handleClientMessage(data)
	})
}

// sendConfig tells a client the frame geometry.
func (s *Server) sendConfig(client *Client) {
	data, err := json.Marshal(Message{Type: "config", Payload: s.configPayload()})
	if err != nil {
		slog.Error("Failed to marshal config", "error", err)
		return
	}
	client.send <- message{data: data}
}

func (s *Server) configPayload() ConfigPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ConfigPayload{Width: s.vis.Width(), Rows: s.vis.Height() + 1}
}

// sendState sends the current engine parameters to a client.
func (s *Server) sendState(client *Client) {
	data, err := json.Marshal(Message{Type: "state", Payload: s.statePayload()})
	if err != nil {
		slog.Error("Failed to marshal state", "error", err)
		return
	}
	client.send <- message{data: data}
}

func (s *Server) statePayload() StatePayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatePayload{
		BarVolume:  float64(s.vis.BarVolume()),
		SonoVolume: float64(s.vis.SonoVolume()),
		Height:     s.vis.Height(),
	}
}

// handleClientMessage handles incoming WebSocket messages.
func (s *Server) handleClientMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Error("Failed to parse WebSocket message", "error", err)
		return
	}

	switch msg.Type {
	case "set_volume":
		if payload, ok := msg.Payload.(map[string]interface{}); ok {
			bar, barOK := payload["bar"].(float64)
			sono, sonoOK := payload["sono"].(float64)
			if barOK && sonoOK {
				s.mu.Lock()
				s.vis.SetVolume(float32(bar), float32(sono))
				s.mu.Unlock()
				s.broadcastState()
			}
		}

	case "set_height":
		if payload, ok := msg.Payload.(map[string]interface{}); ok {
			if value, ok := payload["value"].(float64); ok {
				s.mu.Lock()
				s.vis.SetHeight(int(value))
				s.mu.Unlock()
				s.broadcastState()
			}
		}
	}
}

// broadcastState pushes the current parameters and frame geometry to every
// client so multiple viewers stay in sync; a height change alters the frame
// size, so config rides along.
func (s *Server) broadcastState() {
	for _, msg := range []Message{
		{Type: "config", Payload: s.configPayload()},
		{Type: "state", Payload: s.statePayload()},
	} {
		data, err := json.Marshal(msg)
		if err != nil {
			slog.Error("Failed to marshal state", "error", err)
			return
		}
		s.hub.Broadcast(data)
	}
}

// handleAPIState handles the REST API state endpoint.
func (s *Server) handleAPIState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	//nolint:errchkjson // StatePayload is a well-defined struct
	_ = json.NewEncoder(w).Encode(s.statePayload())
}

// OpenBrowser opens the default browser to the specified URL.
func OpenBrowser(url string) error {
	ctx := context.Background()
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", url)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}

	return cmd.Start()
}
