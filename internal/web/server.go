// Package web exposes the visualization control surface over HTTP and a
// WebSocket for hosts running in another process.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/guidoenr/ravelizer/pkg/visualization"
)

const (
	defaultStatusInterval = 500 * time.Millisecond
	writeWait             = 10 * time.Second
	pongWait              = 60 * time.Second
	pingPeriod            = 54 * time.Second
	maxMessageSize        = 64 << 10
)

// Controller is the control surface served over the network.
type Controller interface {
	Start(variant string, rate float32, count int, fpsWindow float32) error
	Stop()
	IsActive() bool
	FPS() float32
	Variant() string
	Err() error
	Variants() []string
	SetParametersSlice(alarm float32, values []float32) error
}

// Options configures a Server.
type Options struct {
	// Defaults fills the fields a start request leaves out.
	Defaults StartRequest
	// StatusInterval is how often status is broadcast to WebSocket clients.
	StatusInterval time.Duration
	Log            zerolog.Logger
}

// Server serves the control API.
type Server struct {
	ctrl     Controller
	defaults StartRequest
	interval time.Duration
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocketClient]struct{}
	wg      sync.WaitGroup
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	closed bool
	server *Server
}

// StatusResponse reports the state of the visualization.
type StatusResponse struct {
	Active  bool    `json:"active"`
	FPS     float32 `json:"fps"`
	Variant string  `json:"variant"`
	Error   string  `json:"error,omitempty"`
}

// StartRequest starts a run. Zero fields take the server defaults.
type StartRequest struct {
	Variant   string  `json:"variant"`
	Rate      float32 `json:"rate"`
	Particles int     `json:"particles"`
	FPSWindow float32 `json:"fpsWindow"`
}

// ParametersMessage pushes one frame. A missing alarm disables the override.
type ParametersMessage struct {
	Alarm *float32  `json:"alarm,omitempty"`
	Frame []float32 `json:"frame"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer returns a server for ctrl.
func NewServer(ctrl Controller, opts Options) *Server {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = defaultStatusInterval
	}
	return &Server{
		ctrl:     ctrl,
		defaults: opts.Defaults,
		interval: opts.StatusInterval,
		log:      opts.Log.With().Str("component", "web").Logger(),
		clients:  make(map[*websocketClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP routes of the control API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/variants", s.handleVariants)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/parameters", s.handleParameters)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln and broadcasts status until ctx is cancelled, then shuts
// down and disconnects every WebSocket client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", ln.Addr().String()).Msg("control server listening")

	statusCtx, cancelStatus := context.WithCancel(ctx)
	statusDone := make(chan struct{})
	go func() {
		defer close(statusDone)
		s.statusLoop(statusCtx)
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = srv.Shutdown(shutdownCtx)
		cancel()
		<-serveErr
	case err = <-serveErr:
	}
	cancelStatus()
	<-statusDone
	s.Close()

	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// Close disconnects every WebSocket client and waits for their pumps.
func (s *Server) Close() {
	s.mu.Lock()
	for client := range s.clients {
		s.dropLocked(client)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) status() StatusResponse {
	status := StatusResponse{
		Active:  s.ctrl.IsActive(),
		FPS:     s.ctrl.FPS(),
		Variant: s.ctrl.Variant(),
	}
	if err := s.ctrl.Err(); err != nil {
		status.Error = err.Error()
	}
	return status
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Variants())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := s.defaults
	if r.ContentLength != 0 {
		var body StartRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req = mergeStart(body, s.defaults)
	}

	if err := s.ctrl.Start(req.Variant, req.Rate, req.Particles, req.FPSWindow); err != nil {
		s.log.Warn().Err(err).Str("variant", req.Variant).Msg("start rejected")
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	s.log.Info().Str("variant", req.Variant).Msg("visualization started remotely")
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.Stop()
	writeJSON(w, http.StatusAccepted, s.status())
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var msg ParametersMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.applyParameters(msg); err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) applyParameters(msg ParametersMessage) error {
	alarm := visualization.NoAlarm
	if msg.Alarm != nil {
		alarm = *msg.Alarm
	}
	return s.ctrl.SetParametersSlice(alarm, msg.Frame)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 64),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(2)
	go client.writePump()
	go client.readPump()
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastStatus()
		}
	}
}

func (s *Server) broadcastStatus() {
	data, err := json.Marshal(s.status())
	if err != nil {
		s.log.Error().Err(err).Msg("encode status")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// slow client
			s.dropLocked(client)
		}
	}
}

// reply queues a message for one client unless it is already gone.
func (s *Server) reply(c *websocketClient, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) drop(c *websocketClient) {
	s.mu.Lock()
	s.dropLocked(c)
	s.mu.Unlock()
}

func (s *Server) dropLocked(c *websocketClient) {
	if c.closed {
		return
	}
	c.closed = true
	delete(s.clients, c)
	close(c.send)
}

func (c *websocketClient) readPump() {
	defer c.server.wg.Done()
	defer func() {
		c.server.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ParametersMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.server.reply(c, errorResponse{Error: err.Error()})
				continue
			}
			return
		}
		if err := c.server.applyParameters(msg); err != nil {
			c.server.reply(c, errorResponse{Error: err.Error()})
		}
	}
}

func (c *websocketClient) writePump() {
	defer c.server.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func mergeStart(req, defaults StartRequest) StartRequest {
	if req.Variant == "" {
		req.Variant = defaults.Variant
	}
	if req.Rate == 0 {
		req.Rate = defaults.Rate
	}
	if req.Particles == 0 {
		req.Particles = defaults.Particles
	}
	if req.FPSWindow == 0 {
		req.FPSWindow = defaults.FPSWindow
	}
	return req
}

func statusFor(err error) int {
	var lengthErr *visualization.FrameLengthError
	switch {
	case errors.Is(err, visualization.ErrAlreadyActive):
		return http.StatusConflict
	case errors.Is(err, visualization.ErrUnknownVariant):
		return http.StatusNotFound
	case errors.Is(err, visualization.ErrInvalidSettings),
		errors.Is(err, visualization.ErrNoRootPath),
		errors.As(err, &lengthErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
