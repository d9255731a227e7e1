package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"MarketPhase/internal/domain/models"
	xlogger "MarketPhase/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// StreamHandler pushes every published report to connected WebSocket clients.
// A client whose buffer is full is dropped rather than slowing the publisher.
type StreamHandler struct {
	logger      *xlogger.Logger
	svc         PhaseService
	upgrader    websocket.Upgrader
	unsubscribe func()

	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

func NewStreamHandler(logger *xlogger.Logger, svc PhaseService) *StreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &StreamHandler{
		logger: logger.With(xlogger.String("component", "phase_stream")),
		svc:    svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
	h.unsubscribe = svc.Subscribe(h.broadcast)
	return h
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/phase", h.Serve)
}

// Serve upgrades the connection, sends the latest report if there is one and
// then streams new reports until the client goes away.
func (h *StreamHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	cl := &streamClient{conn: conn, send: make(chan []byte, sendBuffer)}
	if r, err := h.svc.Latest(c.Request().Context()); err == nil {
		if b, err := json.Marshal(r); err == nil {
			cl.send <- b
		}
	}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("stream client connected", xlogger.String("remote", c.RealIP()))

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// Clients returns the number of connected clients.
func (h *StreamHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and stops listening for reports.
func (h *StreamHandler) Close() error {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	return nil
}

func (h *StreamHandler) broadcast(r *models.PhaseReport) {
	b, err := json.Marshal(r)
	if err != nil {
		h.logger.Error("marshal report for stream", xlogger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			h.logger.Warn("stream client too slow, dropping")
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

func (h *StreamHandler) drop(cl *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// readLoop only watches for close frames and pongs.
func (h *StreamHandler) readLoop(cl *streamClient) {
	defer h.drop(cl)
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writeLoop(cl *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
