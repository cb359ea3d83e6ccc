// Package room holds the room session coordinator: the single owner of a
// room's live state. It serializes participant intents against the durable
// store, computes the broadcast after every accepted intent, and purges the
// room when the last participant leaves.
package room

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"watchroom/internal/metrics"
	"watchroom/internal/store"
)

// Conn is the coordinator's view of one participant connection.
type Conn interface {
	ID() string
	Send(event string, data any)
}

// Groups is the broadcast-group membership table the gateway maintains.
// Remove reports the remaining member count so the coordinator can decide
// on purging.
type Groups interface {
	Add(roomID string, c Conn)
	Remove(roomID string, c Conn) int
	Broadcast(roomID, event string, data any)
	BroadcastExcept(roomID, exceptID, event string, data any)
}

// Coordinator orchestrates per-room state. It keeps no durable state of its
// own; everything of record lives in the store.
type Coordinator struct {
	store   store.Store
	groups  Groups
	history int64
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCoordinator(st store.Store, groups Groups, historyLimit int) *Coordinator {
	return &Coordinator{
		store:   st,
		groups:  groups,
		history: int64(historyLimit),
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// roomLock returns the mutex serializing mutating intents on one room.
// At most one such intent proceeds at a time, which closes the
// purge-vs-join window on last leave.
func (c *Coordinator) roomLock(roomID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[roomID] = l
	}
	return l
}

func (c *Coordinator) dropLock(roomID string) {
	c.mu.Lock()
	delete(c.locks, roomID)
	c.mu.Unlock()
}

// CreateRoom registers a fresh room with blank playback state and returns
// its identifier. There are no subscribers yet, so nothing is broadcast.
func (c *Coordinator) CreateRoom(ctx context.Context) (string, error) {
	roomID := uuid.NewString()
	if err := c.store.RegisterRoom(ctx, roomID); err != nil {
		return "", err
	}
	if err := c.store.SetPlayback(ctx, roomID, PlaybackState{}.Fields()); err != nil {
		return "", err
	}
	metrics.RoomsActive.Inc()
	log.Info().Str("room_id", roomID).Msg("room created")
	return roomID, nil
}

// ValidateRoom reports whether roomID is in the active-room registry.
// Absence and lookup errors both read as "not found".
func (c *Coordinator) ValidateRoom(ctx context.Context, roomID string) bool {
	if roomID == "" {
		return false
	}
	ok, err := c.store.RoomExists(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("room lookup")
		return false
	}
	return ok
}

// Join re-checks the registry (it may have changed since the admission
// check), attaches the connection to the room's broadcast group, and
// returns the playback snapshot plus the chat history oldest first.
func (c *Coordinator) Join(ctx context.Context, conn Conn, roomID string) (PlaybackState, []ChatMessage, error) {
	if strings.TrimSpace(roomID) == "" {
		return PlaybackState{}, nil, ErrEmptyRoomID
	}
	l := c.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	if !c.ValidateRoom(ctx, roomID) {
		return PlaybackState{}, nil, ErrRoomNotFound
	}
	c.groups.Add(roomID, conn)

	fields, err := c.store.GetPlayback(ctx, roomID)
	if err != nil {
		c.groups.Remove(roomID, conn)
		return PlaybackState{}, nil, err
	}
	raw, err := c.store.ChatHistory(ctx, roomID)
	if err != nil {
		c.groups.Remove(roomID, conn)
		return PlaybackState{}, nil, err
	}
	// The store prepends on write, so stored order is newest first;
	// reverse while decoding to hand back chronological order.
	history := make([]ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg ChatMessage
		if err := json.Unmarshal(raw[i], &msg); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("skip undecodable chat entry")
			continue
		}
		history = append(history, msg)
	}
	return playbackFromFields(fields), history, nil
}

// ChangeVideo loads a new URL, which always resets the playhead and pauses.
// The full fresh snapshot goes to the whole room, sender included.
func (c *Coordinator) ChangeVideo(ctx context.Context, roomID, url string) error {
	l := c.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	next := PlaybackState{VideoURL: url}
	if err := c.store.SetPlayback(ctx, roomID, next.Fields()); err != nil {
		return err
	}
	// Broadcast what the store holds, not what the intent said, so a
	// racing writer's peers still converge on the stored state.
	fields, err := c.store.GetPlayback(ctx, roomID)
	if err != nil {
		return err
	}
	c.groups.Broadcast(roomID, EventVideoChanged, playbackFromFields(fields))
	return nil
}

// SetPlaying records a play or pause at the given position and corrects
// every peer except the sender, whose local state already matches.
func (c *Coordinator) SetPlaying(ctx context.Context, senderID, roomID string, t float64, playing bool) error {
	l := c.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	fields := map[string]string{
		store.FieldIsPlaying:   store.EncodeBool(playing),
		store.FieldCurrentTime: formatTime(t),
	}
	if err := c.store.SetPlayback(ctx, roomID, fields); err != nil {
		return err
	}
	event := EventVideoPaused
	if playing {
		event = EventVideoPlayed
	}
	c.groups.BroadcastExcept(roomID, senderID, event, TimeUpdate{Time: t})
	return nil
}

// Seek moves the playhead without touching the play/pause state.
func (c *Coordinator) Seek(ctx context.Context, senderID, roomID string, t float64) error {
	l := c.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	fields := map[string]string{store.FieldCurrentTime: formatTime(t)}
	if err := c.store.SetPlayback(ctx, roomID, fields); err != nil {
		return err
	}
	c.groups.BroadcastExcept(roomID, senderID, EventVideoSeeked, TimeUpdate{Time: t})
	return nil
}

// SendChat appends a message to the room's log and echoes it to the whole
// room, sender included. Empty text is rejected before any store call.
func (c *Coordinator) SendChat(ctx context.Context, senderID, roomID, text, userName string) (ChatMessage, error) {
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	l := c.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	msg := newChatMessage(senderID, text, userName, c.now())
	raw, err := json.Marshal(msg)
	if err != nil {
		return ChatMessage{}, err
	}
	if err := c.store.AppendChat(ctx, roomID, raw, c.history); err != nil {
		return ChatMessage{}, err
	}
	metrics.ChatMessagesTotal.Inc()
	c.groups.Broadcast(roomID, EventChatReceive, msg)
	return msg, nil
}

// Leave detaches the connection from its room's broadcast group. When the
// group empties, the room's store entries are purged; a later join against
// the same id is then rejected by the registry check.
func (c *Coordinator) Leave(ctx context.Context, conn Conn, roomID string) error {
	if roomID == "" {
		return nil
	}
	l := c.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	remaining := c.groups.Remove(roomID, conn)
	if remaining > 0 {
		return nil
	}
	ok, err := c.store.RoomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !ok {
		// Already purged by an earlier leave.
		return nil
	}
	if err := c.store.PurgeRoom(ctx, roomID); err != nil {
		return err
	}
	c.dropLock(roomID)
	metrics.RoomsActive.Dec()
	log.Info().Str("room_id", roomID).Msg("cleaned up empty room")
	return nil
}
