// Package realtime pushes task events to connected clients, one room per organization.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains organization_id -> set of connections and broadcasts messages.
// With a Redis bridge, events go through pub/sub so every instance delivers them once.
type Hub struct {
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func()
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes an organization event to other instances.
type RedisPublisher interface {
	PublishOrg(orgID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to an organization's channel.
type RedisSubscriber interface {
	SubscribeOrg(orgID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a hub. Nil bridges keep delivery local to this instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its organization room, subscribing to Redis for the first client.
// The subscription round trip happens outside the hub lock.
func (h *Hub) Register(c *Client) {
	orgID := c.OrganizationID
	h.mu.Lock()
	if room, ok := h.rooms[orgID]; ok {
		room[c.ID] = c
		h.mu.Unlock()
		h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("organization_id", orgID.String()))
		return
	}
	h.mu.Unlock()

	cancel := h.subscribe(orgID)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[orgID] == nil {
		h.rooms[orgID] = make(map[string]*Client)
	}
	if cancel != nil {
		if _, ok := h.subs[orgID]; ok {
			cancel()
		} else {
			h.subs[orgID] = cancel
		}
	}
	h.rooms[orgID][c.ID] = c
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("organization_id", orgID.String()))
}

func (h *Hub) subscribe(orgID uuid.UUID) func() {
	if h.redisSub == nil {
		return nil
	}
	cancel, err := h.redisSub.SubscribeOrg(orgID, func(event string, payload []byte) {
		h.Broadcast(orgID, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed", zap.String("organization_id", orgID.String()), zap.Error(err))
		return nil
	}
	return cancel
}

// Unregister removes a client and drops the room and its subscription when empty.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[c.OrganizationID]; ok && room[c.ID] != nil {
		h.remove(c)
	}
}

// DisconnectUser closes every connection of userID on this instance.
func (h *Hub) DisconnectUser(userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for _, c := range room {
			if c.UserID == userID {
				h.remove(c)
			}
		}
	}
}

// DisconnectOrganization closes every connection in orgID's room on this instance.
func (h *Hub) DisconnectOrganization(orgID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.rooms[orgID] {
		h.remove(c)
	}
}

// remove drops c and closes its send channel, which ends its write pump. Callers hold h.mu.
func (h *Hub) remove(c *Client) {
	room := h.rooms[c.OrganizationID]
	delete(room, c.ID)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.OrganizationID)
		if cancel, ok := h.subs[c.OrganizationID]; ok {
			cancel()
			delete(h.subs, c.OrganizationID)
		}
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("organization_id", c.OrganizationID.String()))
}

// Broadcast sends an event to this instance's clients of orgID. Slow clients miss messages.
func (h *Hub) Broadcast(orgID uuid.UUID, event string, payload any) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode realtime event", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[orgID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// PublishOrgEvent delivers an event to every connected client of orgID across instances.
func (h *Hub) PublishOrgEvent(orgID uuid.UUID, event string, payload any) {
	if h.redis == nil {
		h.Broadcast(orgID, event, payload)
		return
	}
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode realtime event", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.redis.PublishOrg(orgID, event, data); err != nil {
		h.logger.Warn("redis publish failed, delivering locally", zap.String("event", event), zap.Error(err))
		h.Broadcast(orgID, event, json.RawMessage(data))
	}
}

// Connected returns the number of this instance's clients in orgID.
func (h *Hub) Connected(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orgID])
}

func encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	return json.Marshal(payload)
}
