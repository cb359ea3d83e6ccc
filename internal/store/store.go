// Package store is the durable room store: an active-room set, a per-room
// playback attribute hash, and a per-room chat log. The coordinator is the
// only writer; values cross this boundary as literal strings (see field
// constants below), never as native types.
package store

import "context"

// Playback hash field names and their literal encodings. isPlaying is
// stored as the literal "true"/"false" and decoded by exact comparison;
// currentTime is stored via strconv.FormatFloat(t, 'f', -1, 64).
const (
	FieldVideoURL    = "videoUrl"
	FieldCurrentTime = "currentTime"
	FieldIsPlaying   = "isPlaying"

	BoolTrue  = "true"
	BoolFalse = "false"
)

// Store holds all persisted room state. Operations are individually atomic;
// callers never need multi-key transactions.
type Store interface {
	// RegisterRoom adds roomID to the active-room set.
	RegisterRoom(ctx context.Context, roomID string) error
	// RoomExists reports membership in the active-room set. Callers treat
	// any error as "not found".
	RoomExists(ctx context.Context, roomID string) (bool, error)
	// SetPlayback writes the given fields of the room's playback hash,
	// leaving other fields untouched.
	SetPlayback(ctx context.Context, roomID string, fields map[string]string) error
	// GetPlayback reads the full playback hash. A missing room yields an
	// empty map, not an error.
	GetPlayback(ctx context.Context, roomID string) (map[string]string, error)
	// AppendChat prepends one encoded message to the room's chat log and
	// trims the log to the newest keep entries. keep <= 0 disables trimming.
	AppendChat(ctx context.Context, roomID string, raw []byte, keep int64) error
	// ChatHistory returns the chat log in stored order, newest first.
	ChatHistory(ctx context.Context, roomID string) ([][]byte, error)
	// PurgeRoom removes the room from the active set and deletes its
	// playback hash and chat log.
	PurgeRoom(ctx context.Context, roomID string) error

	Ping(ctx context.Context) error
	Close() error
}

// EncodeBool returns the store's literal boolean encoding.
func EncodeBool(b bool) string {
	if b {
		return BoolTrue
	}
	return BoolFalse
}

// DecodeBool decodes the store's literal boolean encoding. Anything other
// than the exact literal "true" is false.
func DecodeBool(s string) bool {
	return s == BoolTrue
}
