// Package ws bridges the signal bus to WebSocket clients so storefront UIs
// can follow marketplace activity live.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/nftshop/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxMessageSize = 4096
	sendBufferSize = 256
)

// defaultChannels are the signal bus channels every new session starts
// subscribed to.
var defaultChannels = []string{"events"}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS middleware.
		return true
	},
}

// Config captures runtime metadata included in the status snapshot sent to
// clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// Hub tracks connected WebSocket sessions and routes signal bus messages to
// the sessions subscribed to each channel.
type Hub struct {
	bus       domain.SignalBus
	logger    *slog.Logger
	mode      string
	startedAt time.Time

	attach   chan *session
	detach   chan *session
	incoming chan busMsg

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// busMsg is a payload tagged with the signal bus channel it arrived on.
type busMsg struct {
	channel string
	data    []byte
}

// NewHub creates a WebSocket hub fed by the given signal bus.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	mode := cfg.Mode
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	return &Hub{
		bus:       bus,
		logger:    logger,
		mode:      mode,
		startedAt: startedAt,
		attach:    make(chan *session),
		detach:    make(chan *session),
		incoming:  make(chan busMsg, 256),
		sessions:  make(map[*session]struct{}),
	}
}

// Run consumes the signal bus and dispatches to sessions until ctx is
// cancelled. Call it in its own goroutine.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range defaultChannels {
		go h.pump(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case s := <-h.attach:
			h.add(s)
		case s := <-h.detach:
			h.remove(s)
		case msg := <-h.incoming:
			h.fanOut(msg)
		}
	}
}

// pump forwards one signal bus channel into the hub's incoming queue.
func (h *Hub) pump(ctx context.Context, channel string) {
	src, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Info("ws: subscribed", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-src:
			if !ok {
				h.logger.Warn("ws: bus subscription closed", slog.String("channel", channel))
				return
			}
			h.incoming <- busMsg{channel: channel, data: data}
		}
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("ws: client connected", slog.Int("clients", n))
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		close(s.send)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("ws: client disconnected", slog.Int("clients", n))
}

func (h *Hub) fanOut(msg busMsg) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if !s.subscribed(msg.channel) {
			continue
		}
		select {
		case s.send <- msg.data:
		default:
			// Slow consumer: drop rather than stall the fan-out.
			h.logger.Warn("ws: dropping message for slow client")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		close(s.send)
		delete(h.sessions, s)
	}
}

// HandleWS upgrades the request and hands the connection to the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(defaultChannels)),
	}
	for _, ch := range defaultChannels {
		s.subs[ch] = true
	}

	h.attach <- s
	s.sendStatus()

	go s.writeLoop()
	go s.readLoop()
}

// session is one connected WebSocket client.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

// subscribeMsg is the JSON message a client sends to manage its channel
// subscriptions.
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

func (s *session) subscribed(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subs[channel]
}

func (s *session) applySubscription(msg subscribeMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range msg.Channels {
		if msg.Action == "subscribe" {
			s.subs[ch] = true
		} else {
			delete(s.subs, ch)
		}
	}
}

// sendStatus pushes a small envelope so clients can mark the connection
// healthy before any marketplace events flow.
func (s *session) sendStatus() {
	uptime := int64(time.Since(s.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "status",
		"payload": map[string]any{
			"mode":           s.hub.mode,
			"ws_connected":   true,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}

	select {
	case s.send <- msg:
	default:
	}
}

// readLoop consumes client frames, which only ever carry subscription
// changes, and keeps the pong deadline fresh.
func (s *session) readLoop() {
	defer func() {
		s.hub.detach <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var sub subscribeMsg
		if jsonErr := json.Unmarshal(message, &sub); jsonErr == nil && sub.Action != "" {
			s.applySubscription(sub)
		}
	}
}

// writeLoop drains the send queue to the connection and keeps the peer
// alive with periodic pings.
func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
