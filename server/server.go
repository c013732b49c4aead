// Package server exposes the generation workflow over HTTP and
// WebSocket: prompt validation, generation, run history, system info,
// and live progress streaming to connected GUI clients.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pyros-projects/zxplorer/config"
	"github.com/pyros-projects/zxplorer/gen"
	"github.com/pyros-projects/zxplorer/history"
	"github.com/pyros-projects/zxplorer/logger"
	"github.com/pyros-projects/zxplorer/vars"
)

// Server hosts the HTTP API and the WebSocket progress hub
type Server struct {
	cfg          config.ServerConfig
	orchestrator *gen.Orchestrator
	runs         *history.Store // nil disables history endpoints' persistence
	varsStore    *vars.Store    // nil disables the vars endpoint

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan gen.ProgressEvent
	mu         sync.RWMutex

	limiter *rateLimiter

	httpServer *http.Server
	log        *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server around the generation orchestrator.
// A nil logger falls back to the global logger.
func New(cfg config.ServerConfig, orchestrator *gen.Orchestrator, runs *history.Store, varsStore *vars.Store, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = logger.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		runs:         runs,
		varsStore:    varsStore,
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan gen.ProgressEvent, 64),
		limiter:      newRateLimiter(cfg.GenerateRatePerMinute),
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Handler returns the HTTP mux serving every endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/validate", s.handleValidate)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/system", s.handleSystem)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/vars", s.handleVars)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run starts the hub event loop. Call in a goroutine before serving.
func (s *Server) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.log.Debugw("Server hub stopping due to context cancellation")
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		case ev := <-s.broadcast:
			s.broadcastEvent(ev)
		}
	}
}

// Start binds the listener and serves until Shutdown
func (s *Server) Start() error {
	go s.Run()

	addr := fmt.Sprintf(":%d", s.cfg.PortOrDefault())
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infow("Server listening",
		"addr", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the hub and the HTTP listener, then waits for every
// client pump to exit.
//
// Send channels are only ever closed on the unregister path inside the
// hub goroutine; closing them here would race an in-flight broadcast
// that has already snapshotted the client list. Cancelling the context
// is enough: writePump exits on it and closes the connection, which
// unblocks the matching readPump.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	return nil
}

func (s *Server) handleClientRegister(client *Client) {
	s.mu.Lock()
	s.clients[client] = true
	count := len(s.clients)
	s.mu.Unlock()

	s.log.Infow("Client connected",
		"client_id", shortID(client.id),
		"total_clients", count)
}

func (s *Server) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		client.close()
	}
	count := len(s.clients)
	s.mu.Unlock()

	s.log.Infow("Client disconnected",
		"client_id", shortID(client.id),
		"total_clients", count)
}

// broadcastEvent fans a progress event out to every connected client.
// Clients whose send buffer is full are skipped, not blocked on.
func (s *Server) broadcastEvent(ev gen.ProgressEvent) {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		select {
		case client.send <- ev:
			sent++
		default:
		}
	}

	s.log.Debugw("Broadcast progress event",
		logger.FieldRequestID, shortID(ev.RequestID),
		logger.FieldStage, ev.Stage,
		"clients", sent)
}

// Publish queues a progress event for broadcast. Safe from any goroutine.
func (s *Server) Publish(ev gen.ProgressEvent) {
	select {
	case s.broadcast <- ev:
	case <-s.ctx.Done():
	default:
		s.log.Warnw("Broadcast queue full, dropping progress event",
			logger.FieldStage, ev.Stage)
	}
}

// clientIP extracts the remote host for rate limiting
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
