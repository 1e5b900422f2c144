package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

const writeTimeout = 5 * time.Second

// Hub pushes events to connected websocket clients (the popup and options
// views). It is fed from a Bus subscription.
type Hub struct {
	addr     string
	listener net.Listener
	server   *http.Server
	logger   logging.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(addr string, logger logging.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		addr:    addr,
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
		events:  make(chan Event, 256),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler exposes /ws and /health. Start serves it on the configured address.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

// Run starts the broadcast loop without an HTTP listener.
func (h *Hub) Run() {
	h.wg.Add(1)
	go h.broadcastLoop()
}

func (h *Hub) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.listener = ln
	h.server = &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	h.Run()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Info(h.ctx, "notification hub listening", "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error(h.ctx, "notification hub stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start succeeded.
func (h *Hub) Addr() string {
	if h.listener == nil {
		return h.addr
	}
	return h.listener.Addr().String()
}

func (h *Hub) Stop(ctx context.Context) error {
	h.cancel()

	h.mu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	var err error
	if h.server != nil {
		err = h.server.Shutdown(ctx)
	}
	h.wg.Wait()
	return err
}

// Publish queues e for delivery. Events are dropped when the queue is full.
func (h *Hub) Publish(e Event) {
	select {
	case h.events <- e:
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, "notification queue full, dropping event", "event", e.Type)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case e := <-h.events:
			if e.Timestamp.IsZero() {
				e.Timestamp = time.Now()
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error(h.ctx, "failed to marshal event", "error", err)
				continue
			}

			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.mu.RUnlock()

			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					h.logger.Debug(h.ctx, "dropping websocket client", "error", err)
					h.removeClient(conn)
				}
			}
		}
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readLoop(conn)
}

// readLoop only detects disconnects; clients never send anything.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)
	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (h *Hub) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": h.ClientCount(),
	})
}
