package ws

import (
	"sync"

	"watchroom/internal/room"
)

// Hub is the process-local broadcast-group membership table: which
// connections are subscribed to which room. It is mutated only through
// Add/Remove and read by the fan-out paths, so a plain RWMutex covers the
// interleaving the coordinator produces.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[room.Conn]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[room.Conn]bool)}
}

func (h *Hub) Add(roomID string, c room.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[room.Conn]bool)
		h.rooms[roomID] = members
	}
	members[c] = true
}

// Remove detaches the connection and reports how many members remain, so
// the coordinator can purge emptied rooms synchronously.
func (h *Hub) Remove(roomID string, c room.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, roomID)
		return 0
	}
	return len(members)
}

func (h *Hub) Broadcast(roomID, event string, data any) {
	for _, c := range h.members(roomID, "") {
		c.Send(event, data)
	}
}

// BroadcastExcept skips the connection with the given id, for the
// play/pause/seek corrections the sender already applied locally.
func (h *Hub) BroadcastExcept(roomID, exceptID, event string, data any) {
	for _, c := range h.members(roomID, exceptID) {
		c.Send(event, data)
	}
}

// Online reports the member count of a room, for diagnostics.
func (h *Hub) Online(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) members(roomID, exceptID string) []room.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]room.Conn, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if exceptID != "" && c.ID() == exceptID {
			continue
		}
		out = append(out, c)
	}
	return out
}
