package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pindamonhangaba/vscode-database-client/internal/scriptfs"
	"github.com/pindamonhangaba/vscode-database-client/internal/tree"
)

// Request is one frame from the editor frontend.
type Request struct {
	ID     int64           `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers one request.
type Response struct {
	ID     int64      `json:"id"`
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Error  *WireError `json:"error,omitempty"`
}

// WireError carries a classified failure to the frontend.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Push is an unsolicited frame: a change event or a coarse refresh signal.
type Push struct {
	Event string `json:"event"`
	Kind  string `json:"kind,omitempty"`
	Path  string `json:"path,omitempty"`
}

// Config holds server configuration.
type Config struct {
	// Port to listen on.
	Port int

	// Logger for server activity.
	Logger *log.Logger
}

// Server accepts WebSocket connections from the editor frontend, answers
// bridge requests, and pushes the tree's change events to every client.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	handler *Handler
	tree    *tree.Tree

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	push chan Push

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewServer creates a bridge server over the given tree and handler.
func NewServer(cfg *Config, t *tree.Tree, handler *Handler) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:    fmt.Sprintf(":%d", cfg.Port),
		handler: handler,
		tree:    t,
		clients: make(map[*websocket.Conn]bool),
		push:    make(chan Push, 100),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start begins listening and forwarding tree events.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(2)
	go s.pushLoop()
	go s.forwardTreeEvents()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("bridge listening on %s", s.listener.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the bound address, valid after Start.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop gracefully shuts the server down, closing every client connection.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()
	return nil
}

// forwardTreeEvents republishes the tree's change and refresh signals as
// push frames.
func (s *Server) forwardTreeEvents() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case ev, ok := <-s.tree.Changes():
			if !ok {
				return
			}
			s.Publish(Push{Event: "change", Kind: ev.Kind.String(), Path: ev.Path})

		case _, ok := <-s.tree.Refresh():
			if !ok {
				return
			}
			s.Publish(Push{Event: "refresh"})
		}
	}
}

// Publish queues a push frame for every connected client.
func (s *Server) Publish(p Push) {
	select {
	case s.push <- p:
	case <-s.ctx.Done():
	default:
		s.logger.Println("push channel full, dropping frame")
	}
}

func (s *Server) pushLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case p := <-s.push:
			data, err := json.Marshal(p)
			if err != nil {
				s.logger.Printf("failed to marshal push: %v", err)
				continue
			}

			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	defer s.removeClient(conn)

	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.Printf("bad request frame: %v", err)
			continue
		}

		resp := s.dispatch(req)
		out, err := json.Marshal(resp)
		if err != nil {
			s.logger.Printf("failed to marshal response: %v", err)
			continue
		}

		ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
		err = conn.Write(ctx, websocket.MessageText, out)
		cancel()
		if err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	result, err := s.handler.Dispatch(s.ctx, req.Op, req.Params)
	if err != nil {
		return Response{
			ID: req.ID,
			Error: &WireError{
				Kind:    scriptfs.ErrorKind(err),
				Message: err.Error(),
			},
		}
	}
	return Response{ID: req.ID, OK: true, Result: result}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","root":%q}`, s.tree.Root())
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if s.clients[conn] {
		delete(s.clients, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	s.clientsMu.Unlock()
}
