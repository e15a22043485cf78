package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gwillem/crawler/pkg/control"
	"github.com/gwillem/crawler/pkg/gridmap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what websocket clients receive.
type Message struct {
	Type  string            `json:"type"` // "state" or "map"
	State *control.Snapshot `json:"state,omitempty"`
	Map   *gridmap.Grid     `json:"map,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans snapshots out to websocket clients and serves the latest state,
// map and camera frame over plain HTTP.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	state    []byte
	stateMsg []byte
	grid     []byte
	mapMsg   []byte
	frame    func() []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: map[*client]struct{}{}}
}

// SetFrameSource makes /frame.jpg serve fn's latest JPEG.
func (h *Hub) SetFrameSource(fn func() []byte) {
	h.mu.Lock()
	h.frame = fn
	h.mu.Unlock()
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements control.Sink. Slow clients miss messages.
func (h *Hub) Publish(s control.Snapshot) {
	state, err := json.Marshal(s)
	if err != nil {
		slog.Warn("hub: encode snapshot", "err", err)
		return
	}
	stateMsg, err := json.Marshal(Message{Type: "state", State: &s})
	if err != nil {
		slog.Warn("hub: encode snapshot", "err", err)
		return
	}
	var mapMsg, grid []byte
	if s.Grid != nil {
		if grid, err = json.Marshal(s.Grid); err == nil {
			mapMsg, err = json.Marshal(Message{Type: "map", Map: s.Grid})
		}
		if err != nil {
			slog.Warn("hub: encode map", "err", err)
			mapMsg, grid = nil, nil
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.state, h.stateMsg = state, stateMsg
	h.broadcast(stateMsg)
	if grid != nil && !bytes.Equal(grid, h.grid) {
		h.grid, h.mapMsg = grid, mapMsg
		h.broadcast(mapMsg)
	}
}

func (h *Hub) broadcast(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Drop if client is behind
		}
	}
}

// Handler routes /ws, /state.json, /map.json and /frame.jpg.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/state.json", func(w http.ResponseWriter, r *http.Request) {
		h.serveLatest(w, "application/json", func() []byte { return h.state })
	})
	mux.HandleFunc("/map.json", func(w http.ResponseWriter, r *http.Request) {
		h.serveLatest(w, "application/json", func() []byte { return h.grid })
	})
	mux.HandleFunc("/frame.jpg", func(w http.ResponseWriter, r *http.Request) {
		h.serveLatest(w, "image/jpeg", func() []byte {
			if h.frame == nil {
				return nil
			}
			return h.frame()
		})
	})
	return mux
}

func (h *Hub) serveLatest(w http.ResponseWriter, contentType string, get func() []byte) {
	h.mu.Lock()
	body := get()
	h.mu.Unlock()
	if body == nil {
		http.Error(w, "nothing yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(body)
}

// ServeWS upgrades the request and streams messages until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("hub: websocket upgrade", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	if h.stateMsg != nil {
		c.send <- h.stateMsg
	}
	if h.mapMsg != nil {
		c.send <- h.mapMsg
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.write(c)
	h.read(c)
}

func (h *Hub) write(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.conn.Close()
			return
		}
	}
}

func (h *Hub) read(c *client) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		close(c.send)
		h.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("hub: websocket error", "err", err)
			}
			return
		}
	}
}

// Serve runs an HTTP server for handler until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
