package store

import (
	"context"
	"sync"
)

// Memory implements Store on process-local maps. It mirrors the Redis
// adapter's semantics, including newest-first chat order, and backs the
// memory store backend and most of the test suite.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]struct{}
	state map[string]map[string]string
	chats map[string][][]byte
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]struct{}),
		state: make(map[string]map[string]string),
		chats: make(map[string][][]byte),
	}
}

func (s *Memory) RegisterRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = struct{}{}
	return nil
}

func (s *Memory) RoomExists(_ context.Context, roomID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok, nil
}

func (s *Memory) SetPlayback(_ context.Context, roomID string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state[roomID]
	if !ok {
		m = make(map[string]string, len(fields))
		s.state[roomID] = m
	}
	for k, v := range fields {
		m[k] = v
	}
	return nil
}

func (s *Memory) GetPlayback(_ context.Context, roomID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.state[roomID]))
	for k, v := range s.state[roomID] {
		out[k] = v
	}
	return out, nil
}

func (s *Memory) AppendChat(_ context.Context, roomID string, raw []byte, keep int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := make([]byte, len(raw))
	copy(entry, raw)
	log := append([][]byte{entry}, s.chats[roomID]...)
	if keep > 0 && int64(len(log)) > keep {
		log = log[:keep]
	}
	s.chats[roomID] = log
	return nil
}

func (s *Memory) ChatHistory(_ context.Context, roomID string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, len(s.chats[roomID]))
	copy(out, s.chats[roomID])
	return out, nil
}

func (s *Memory) PurgeRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	delete(s.state, roomID)
	delete(s.chats, roomID)
	return nil
}

func (s *Memory) Ping(context.Context) error { return nil }

func (s *Memory) Close() error { return nil }
