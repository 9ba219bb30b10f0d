package display

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/eventbus"
	"github.com/yourusername/fop-engine/internal/fieldofplay"
	"github.com/yourusername/fop-engine/internal/fopevent"
	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/metrics"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/uievent"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
	submitTimeout  = 5 * time.Second
)

// Platform is the part of a field of play a hub needs.
type Platform interface {
	Name() string
	UIBus() *eventbus.Bus[uievent.UIEvent]
	Snapshot() *fieldofplay.Snapshot
	Settings() models.RankingSettings
	Submit(ctx context.Context, e fopevent.FOPEvent) error
}

// Hub fans the UI events of one platform out to its display connections.
// A display never receives the events it caused itself.
type Hub struct {
	platform Platform
	slug     string
	log      *logrus.Entry
	upgrader websocket.Upgrader

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	origin eventbus.Origin
}

// NewHub subscribes a hub to the platform's UI bus.
func NewHub(p Platform, slug string, allowedOrigins []string, log *logrus.Logger) *Hub {
	h := &Hub{
		platform: p,
		slug:     slug,
		log: logger.OrDiscard(log).WithFields(logrus.Fields{
			"component": "display",
			"platform":  p.Name(),
		}),
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	h.unsubscribe = p.UIBus().SubscribeAll(h.broadcast)
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return len(allowed) == 0 || origin == "" || slices.Contains(allowed, origin)
	}
}

// Slug is the path segment the hub is served under.
func (h *Hub) Slug() string { return h.slug }

// Clients returns the number of connected displays.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast runs inside the UI bus dispatch and never blocks: a display
// whose buffer is full is disconnected.
func (h *Hub) broadcast(e uievent.UIEvent) error {
	data, err := Encode(h.platform.Name(), e, h.platform.Settings().UseRegistrationCategory)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.origin == e.Origin() {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.log.WithField("origin", c.origin).Warn("Display too slow, disconnecting")
			h.removeLocked(c)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and serves the display until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		origin: eventbus.NewOrigin("display"),
	}
	if snap, err := EncodeSnapshot(h.platform.Snapshot(), h.platform.Settings().UseRegistrationCategory); err == nil {
		c.send <- snap
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateDisplayClients(h.platform.Name(), count)
	h.log.WithFields(logrus.Fields{"origin": c.origin, "remote": r.RemoteAddr}).Info("Display connected")

	go c.writePump()
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.UpdateDisplayClients(h.platform.Name(), len(h.clients))
}

// readPump turns display commands into field-of-play events until the
// connection fails.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.log.WithField("origin", c.origin).Info("Display disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Warn("Display connection error")
			}
			return
		}

		ev, err := ParseCommand(data, c.origin)
		if err != nil {
			h.log.WithError(err).Debug("Rejected display command")
			h.reply(c, "error", err.Error())
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		err = h.platform.Submit(ctx, ev)
		cancel()
		if err != nil {
			h.log.WithError(err).Error("Failed to submit display command")
			if errors.Is(err, context.DeadlineExceeded) {
				h.reply(c, "error", "platform busy")
			}
		}
	}
}

func (h *Hub) reply(c *client, kind, message string) {
	data, err := jsonMessage(Message{Type: kind, Platform: h.platform.Name(), Payload: map[string]string{"message": message}})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close unsubscribes from the platform and disconnects every display.
func (h *Hub) Close() {
	h.unsubscribe()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
