package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"kinmel/internal/infrastructure/presence"
	"kinmel/pkg/logger"
)

// Event is the wire envelope for every frame in either direction.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Manager owns all live connections and their room membership, and is the
// usecase layer's Broadcaster. Disconnect synchronously unregisters the
// connection from the Presence Registry.
type Manager struct {
	mu       sync.RWMutex
	clients  map[string]*Client            // connID -> client
	rooms    map[string]map[string]*Client // roomID -> connID -> client
	registry presence.Registry
}

func NewManager(registry presence.Registry) *Manager {
	return &Manager{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		registry: registry,
	}
}

func (m *Manager) Register(client *Client) {
	m.mu.Lock()
	m.clients[client.ConnID] = client
	m.mu.Unlock()

	m.registry.Register(context.Background(), client.UserID, client.ConnID)
	wsConnections.Inc()
	logger.Info("websocket: connection %s registered for user %s", client.ConnID, client.UserID)
}

func (m *Manager) Unregister(client *Client) {
	m.mu.Lock()
	if _, ok := m.clients[client.ConnID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, client.ConnID)
	for roomID, members := range m.rooms {
		if _, ok := members[client.ConnID]; ok {
			delete(members, client.ConnID)
			if len(members) == 0 {
				delete(m.rooms, roomID)
			}
		}
	}
	// Close under the write lock: every send happens under the read lock
	// after a membership check, so no send can race the close.
	close(client.Send)
	roomCount := len(m.rooms)
	m.mu.Unlock()

	m.registry.Unregister(context.Background(), client.UserID, client.ConnID)
	wsConnections.Dec()
	wsRooms.Set(float64(roomCount))
	logger.Info("websocket: connection %s unregistered for user %s", client.ConnID, client.UserID)
}

// JoinRoom adds the connection to a room's transport group. Membership is
// not remembered across reconnects; clients re-join after every connect.
func (m *Manager) JoinRoom(roomID string, client *Client) {
	m.mu.Lock()
	members, ok := m.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		m.rooms[roomID] = members
	}
	members[client.ConnID] = client
	roomCount := len(m.rooms)
	m.mu.Unlock()

	wsRooms.Set(float64(roomCount))
}

// InRoom reports whether any of the user's connections is in the room.
func (m *Manager) InRoom(roomID, userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.rooms[roomID] {
		if client.UserID == userID {
			return true
		}
	}
	return false
}

// ToRoom delivers an event to every connection in the room's transport
// group.
func (m *Manager) ToRoom(roomID, event string, payload interface{}) {
	m.deliver(roomID, "", event, payload)
}

// ToRoomExcept delivers to every room connection except those belonging to
// exceptUserID.
func (m *Manager) ToRoomExcept(roomID, exceptUserID, event string, payload interface{}) {
	m.deliver(roomID, exceptUserID, event, payload)
}

func (m *Manager) deliver(roomID, exceptUserID, event string, payload interface{}) {
	raw, err := marshalEvent(event, payload)
	if err != nil {
		logger.Error("websocket: failed to marshal %s event: %v", event, err)
		return
	}

	delivered := 0
	var slow []*Client

	m.mu.RLock()
	for _, client := range m.rooms[roomID] {
		if exceptUserID != "" && client.UserID == exceptUserID {
			continue
		}
		select {
		case client.Send <- raw:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	if delivered > 0 {
		wsEventsDelivered.Add(float64(delivered))
	}
	// Slow consumers are dropped rather than allowed to block the room.
	for _, client := range slow {
		logger.Warn("websocket: send buffer full for user %s, dropping connection %s", client.UserID, client.ConnID)
		m.Unregister(client)
	}
}

// SendEvent delivers one event to a single connection.
func (m *Manager) SendEvent(client *Client, event string, payload interface{}) {
	raw, err := marshalEvent(event, payload)
	if err != nil {
		logger.Error("websocket: failed to marshal %s event: %v", event, err)
		return
	}

	m.mu.RLock()
	_, live := m.clients[client.ConnID]
	if live {
		select {
		case client.Send <- raw:
		default:
			live = false
		}
	}
	m.mu.RUnlock()

	if !live {
		m.Unregister(client)
	}
}

func marshalEvent(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: event, Data: data})
}
