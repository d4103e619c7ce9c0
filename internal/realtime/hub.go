package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
	// sendBuffer is the per-client queue; a full queue drops the message.
	sendBuffer = 256
)

// Handler receives a published event in-process.
type Handler func(event string, payload json.RawMessage)

// Bridge carries published events between server instances.
// Subscribe's handler is invoked once per message, including this instance's own.
type Bridge interface {
	Publish(ctx context.Context, event string, payload []byte) error
	Subscribe(ctx context.Context, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub holds every connected client and fans each published event out to all of them.
// There are no rooms: clients decide locally which events are relevant.
// Delivery is at-most-once with no replay; reconnecting clients re-query.
type Hub struct {
	clients  map[string]*Client
	handlers map[string]map[int]Handler
	nextSub  int
	mu       sync.RWMutex
	logger   *zap.Logger
	bridge   Bridge
}

// NewHub creates a hub. A nil bridge keeps fan-out in-process.
func NewHub(logger *zap.Logger, bridge Bridge) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		handlers: make(map[string]map[int]Handler),
		logger:   logger,
		bridge:   bridge,
	}
}

// Start subscribes to the bridge, if any. The subscription ends with ctx.
func (h *Hub) Start(ctx context.Context) error {
	if h.bridge == nil {
		return nil
	}
	cancel, err := h.bridge.Subscribe(ctx, func(event string, payload []byte) {
		h.deliver(event, payload)
	})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return nil
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.Int("clients", count))
}

// Unregister removes a client and stops its writer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		c.closeDone()
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.Int("clients", count))
}

// ClientCount returns the number of connected clients on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribe registers an in-process handler for one event name and returns its cancel func.
func (h *Hub) Subscribe(event string, fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers[event] == nil {
		h.handlers[event] = make(map[int]Handler)
	}
	id := h.nextSub
	h.nextSub++
	h.handlers[event][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers[event], id)
	}
}

// Publish fans an event out to every client. It never blocks on delivery:
// bridge round-trips run in the background and slow clients drop messages.
func (h *Hub) Publish(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal realtime payload", zap.String("event", event), zap.Error(err))
		return
	}
	if h.bridge == nil {
		h.deliver(event, data)
		return
	}
	go func() {
		if err := h.bridge.Publish(context.Background(), event, data); err != nil {
			h.logger.Warn("bridge publish failed, delivering locally", zap.String("event", event), zap.Error(err))
			h.deliver(event, data)
		}
	}()
}

// SendToClient sends a message to one client only (e.g. pong replies).
func (h *Hub) SendToClient(clientID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.enqueue(WSMessage{Event: event, Data: data})
}

func (h *Hub) deliver(event string, data []byte) {
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	handlers := make([]Handler, 0, len(h.handlers[event]))
	for _, fn := range h.handlers[event] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range clients {
		if !c.enqueue(msg) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("dropped realtime message for slow clients", zap.String("event", event), zap.Int("dropped", dropped))
	}
	for _, fn := range handlers {
		go fn(event, json.RawMessage(data))
	}
}
