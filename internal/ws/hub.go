// Package ws streams bed monitoring updates to WebSocket clients.
package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	sendBuffer = 256
	// A client that misses this many messages in a row is disconnected.
	maxMissed    = 32
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

var (
	wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wardwatch_ws_clients",
		Help: "Connected monitoring stream clients.",
	})
	wsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wardwatch_ws_messages_dropped_total",
		Help: "Stream messages skipped because a client's buffer was full.",
	})
	wsEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wardwatch_ws_clients_evicted_total",
		Help: "Clients disconnected for falling too far behind.",
	})
)

func init() {
	prometheus.MustRegister(wsClients, wsDroppedTotal, wsEvictedTotal)
}

// Client is one connected stream. A non-empty bedID limits it to messages
// about that bed.
type Client struct {
	conn   *websocket.Conn
	userID string
	bedID  string
	send   chan Message
	missed atomic.Int32
	logger *zap.Logger
}

// Hub fans monitoring messages out to clients, indexed by the bed they
// watch. Clients watching every bed sit under the empty key.
type Hub struct {
	mu     sync.RWMutex
	byBed  map[string]map[*Client]struct{}
	count  int
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		byBed:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register adds c to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set := h.byBed[c.bedID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.byBed[c.bedID] = set
	}
	if _, ok := set[c]; !ok {
		set[c] = struct{}{}
		h.count++
		wsClients.Inc()
	}
	h.mu.Unlock()
	h.logger.Debug("stream client connected", zap.String("user_id", c.userID), zap.String("bed_id", c.bedID))
}

// Unregister removes c and closes its send channel. Removing a client that
// is not registered does nothing.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set := h.byBed[c.bedID]
	_, ok := set[c]
	if ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byBed, c.bedID)
		}
		h.count--
		wsClients.Dec()
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Debug("stream client disconnected", zap.String("user_id", c.userID))
	}
}

// Broadcast queues msg for every client watching all beds or msg's bed.
// Delivery never blocks: a client with a full buffer misses the message,
// and one that keeps missing is evicted.
func (h *Hub) Broadcast(msg Message) {
	var lagging []*Client

	h.mu.RLock()
	deliver := func(set map[*Client]struct{}) {
		for c := range set {
			select {
			case c.send <- msg:
				c.missed.Store(0)
			default:
				wsDroppedTotal.Inc()
				if c.missed.Add(1) >= maxMissed {
					lagging = append(lagging, c)
				}
			}
		}
	}
	deliver(h.byBed[""])
	if msg.BedID != "" {
		deliver(h.byBed[msg.BedID])
	}
	h.mu.RUnlock()

	for _, c := range lagging {
		h.logger.Warn("evicting stream client that fell behind",
			zap.String("user_id", c.userID),
			zap.String("bed_id", c.bedID),
			zap.Int32("missed", c.missed.Load()),
		)
		wsEvictedTotal.Inc()
		h.Unregister(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// writePump writes queued messages and pings the peer while idle. It
// returns when ctx ends, a write fails, or the hub closes the send channel;
// in the last case the connection is closed so the read side unblocks.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusTryAgainLater, "client too slow")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				c.logger.Debug("stream write failed", zap.String("user_id", c.userID), zap.Error(err))
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Debug("stream ping failed", zap.String("user_id", c.userID), zap.Error(err))
				return
			}
		}
	}
}

// readPump discards client frames until the connection closes. Reading is
// what services pongs and close frames.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
