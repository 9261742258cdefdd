package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/monitoring/metrics"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

const writeWait = 5 * time.Second

const (
	MessageRun    = "run"
	MessageReload = "reload"
)

// WSMessage is sent to every live-reload client.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type StatusResponse struct {
	Status string             `json:"status"`
	Run    *models.RunSummary `json:"run,omitempty"`
}

// Server exposes the state of a watch session: the last run summary,
// Prometheus metrics and a live-reload websocket that tells browsers to
// reload after every successful run.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    *models.RunSummary
}

// New builds the server. m may be nil, in which case /metrics is not
// served.
func New(addr string, m *metrics.Metrics) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]struct{}),
	}

	s.handle("/health", s.handleHealth)
	s.handle("/status", s.handleStatus)
	s.router.HandleFunc("/livereload", s.handleLiveReload).Methods(http.MethodGet)
	if m != nil {
		s.router.Handle("/metrics", promhttp.InstrumentMetricHandler(m.Registry(), m.Handler())).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) handle(path string, fn http.HandlerFunc) {
	var h http.Handler = fn
	if s.metrics != nil {
		h = s.metrics.Middleware(path, h)
	}
	s.router.Handle(path, h).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	log := logger.WithComponent("server")
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	log := logger.WithComponent("server")
	log.Info().Msg("Shutting down HTTP server...")

	s.mu.Lock()
	for conn := range s.clients {
		s.removeLocked(conn)
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// Notify implements ports.RunObserver.
func (s *Server) Notify(_ context.Context, summary *models.RunSummary) {
	s.Publish(summary)
}

// Publish records summary as the latest run and broadcasts it. A
// successful run is followed by a reload message.
func (s *Server) Publish(summary *models.RunSummary) {
	if summary == nil {
		return
	}
	log := logger.WithComponent("server")

	payload, err := json.Marshal(summary)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode run summary")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = summary
	s.broadcast(WSMessage{Type: MessageRun, Payload: payload})
	if summary.Succeeded() {
		s.broadcast(WSMessage{Type: MessageReload})
	}
}

// broadcast must be called with s.mu held.
func (s *Server) broadcast(msg WSMessage) {
	log := logger.WithComponent("server")
	for conn := range s.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("Dropping live-reload client")
			s.removeLocked(conn)
		}
	}
}

func (s *Server) removeLocked(conn *websocket.Conn) {
	if _, ok := s.clients[conn]; !ok {
		return
	}
	delete(s.clients, conn)
	conn.Close()
	if s.metrics != nil {
		s.metrics.LiveReloadClients(-1)
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	resp := StatusResponse{Status: "idle"}
	if last != nil {
		resp.Status = string(last.Status)
		resp.Run = last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLiveReload(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("server")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Upgrade failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	if s.metrics != nil {
		s.metrics.LiveReloadClients(1)
	}
	s.mu.Unlock()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Live-reload client connected")

	// Clients only listen; reading detects when they go away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("Unexpected close")
				}
				s.mu.Lock()
				s.removeLocked(conn)
				s.mu.Unlock()
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
