package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/HerbHall/wardwatch/internal/authz"
	"github.com/HerbHall/wardwatch/internal/monitor"
	"github.com/HerbHall/wardwatch/internal/server"
	"github.com/HerbHall/wardwatch/pkg/plugin"
)

var _ server.RouteRegistrar = (*Handler)(nil)

// Handler serves the live monitoring stream. Authentication happens in
// the auth middleware, which accepts the token as a query parameter on
// WebSocket paths.
type Handler struct {
	hub    *Hub
	logger *zap.Logger
	unsubs []func()
}

// NewHandler creates a WebSocket handler and subscribes to monitoring
// events on bus.
func NewHandler(bus plugin.EventBus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		hub:    NewHub(logger),
		logger: logger,
	}
	h.subscribeToEvents(bus)
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/monitoring", h.handleMonitoringStream)
}

// Close unsubscribes from the bus. Connected clients are left to the HTTP
// server's shutdown.
func (h *Handler) Close() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	return h.hub.ClientCount()
}

// handleMonitoringStream upgrades the connection and streams monitoring
// messages. The optional bed_id query parameter narrows the stream to one
// bed.
func (h *Handler) handleMonitoringStream(w http.ResponseWriter, r *http.Request) {
	caller := authz.CallerFromContext(r.Context())
	if err := authz.Check(caller, authz.StreamVitals); err != nil {
		server.WriteError(w, r, h.logger, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Authenticated by token, not by origin.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: caller.UserID,
		bedID:  r.URL.Query().Get("bed_id"),
		send:   make(chan Message, sendBuffer),
		logger: h.logger,
	}
	h.hub.Register(client)

	ctx, cancel := context.WithCancel(r.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump(ctx)
	}()

	client.readPump(ctx)

	// Stop the writer before unregistering so a closed send channel only
	// ever means eviction.
	cancel()
	<-done
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) subscribeToEvents(bus plugin.EventBus) {
	if bus == nil {
		return
	}

	h.unsubs = append(h.unsubs, bus.Subscribe(monitor.TopicVitalsRefreshed, func(_ context.Context, event plugin.Event) {
		ev, ok := event.Payload.(monitor.VitalsRefreshedEvent)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageVitalsRefreshed,
			BedID:     ev.BedID,
			Timestamp: ev.UpdatedAt,
			Data: VitalsData{
				PatientID:   ev.PatientID,
				Current:     ev.Current,
				SampleCount: ev.SampleSize,
			},
		})
	}))

	bedTopics := map[string]MessageType{
		monitor.TopicBedAdded:   MessageBedAdded,
		monitor.TopicBedRemoved: MessageBedRemoved,
		monitor.TopicBedUpdated: MessageBedUpdated,
	}
	for topic, typ := range bedTopics {
		h.unsubs = append(h.unsubs, bus.Subscribe(topic, func(_ context.Context, event plugin.Event) {
			ev, ok := event.Payload.(monitor.BedEvent)
			if !ok {
				return
			}
			h.hub.Broadcast(Message{
				Type:      typ,
				BedID:     ev.Bed.BedID,
				Timestamp: event.Timestamp,
				Data: BedData{
					PatientID:   ev.Bed.PatientID,
					PatientName: ev.Bed.PatientName,
					IsActive:    ev.Bed.IsActive,
				},
			})
		}))
	}

	h.logger.Info("subscribed to monitoring events for WebSocket broadcasting")
}
