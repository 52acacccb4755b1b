package visualization

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

const (
	eventBuffer  = 256
	writeTimeout = 5 * time.Second
)

// Server handles WebSocket connections and broadcasts events
type Server struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.Mutex
	logger     *slog.Logger
}

// NewServer creates a new visualization server. Call Run to start broadcasting.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, eventBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Start serves the WebSocket endpoint at /ws on addr until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)

	srv := &http.Server{Addr: addr, Handler: mux}
	go s.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("visualization.server.start", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP upgrades the request to a WebSocket and keeps it registered until the
// client disconnects
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("visualization.upgrade.failed", "error", err)
		return
	}

	select {
	case s.register <- conn:
	case <-s.done:
		conn.Close()
		return
	}

	// Handle client disconnection
	defer func() {
		select {
		case s.unregister <- conn:
		case <-s.done:
		}
		conn.Close()
	}()

	// Read messages (not used, but needed to notice disconnects)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Run delivers broadcast events to connected clients until ctx is done
func (s *Server) Run(ctx context.Context) {
	defer func() {
		close(s.done)
		s.mutex.Lock()
		for client := range s.clients {
			client.Close()
			delete(s.clients, client)
		}
		s.mutex.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-s.register:
			s.mutex.Lock()
			s.clients[client] = true
			s.mutex.Unlock()

		case client := <-s.unregister:
			s.mutex.Lock()
			delete(s.clients, client)
			s.mutex.Unlock()

		case event := <-s.broadcast:
			s.mutex.Lock()
			for client := range s.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteJSON(event); err != nil {
					s.logger.Debug("visualization.broadcast.failed", "error", err)
					client.Close()
					delete(s.clients, client)
				}
			}
			s.mutex.Unlock()
		}
	}
}

// Clients returns the number of connected clients
func (s *Server) Clients() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.clients)
}

// BroadcastEvent queues an event for all connected clients. Events are dropped when
// the queue is full so callers never block.
func (s *Server) BroadcastEvent(event Event) {
	select {
	case s.broadcast <- event:
	default:
		s.logger.Debug("visualization.event.dropped", "type", event.Type)
	}
}
