package room

import (
	"strconv"
	"strings"
	"time"

	"watchroom/internal/store"
)

// Outbound event names, part of the wire contract the client depends on.
// sync and chat-history go to the joining connection only; the rest are
// room broadcasts.
const (
	EventSync         = "sync"
	EventChatHistory  = "chat-history"
	EventVideoChanged = "video-changed"
	EventVideoPlayed  = "video-played"
	EventVideoPaused  = "video-paused"
	EventVideoSeeked  = "video-seeked"
	EventChatReceive  = "chat-receive"
)

// PlaybackState is a room's authoritative playback snapshot. An empty
// VideoURL means no media is loaded.
type PlaybackState struct {
	VideoURL    string  `json:"videoUrl"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

// Fields encodes the full snapshot for the store.
func (p PlaybackState) Fields() map[string]string {
	return map[string]string{
		store.FieldVideoURL:    p.VideoURL,
		store.FieldCurrentTime: formatTime(p.CurrentTime),
		store.FieldIsPlaying:   store.EncodeBool(p.IsPlaying),
	}
}

// playbackFromFields decodes a stored hash, tolerating missing or garbled
// fields the way the wire contract demands: blank url, zero time, paused.
func playbackFromFields(fields map[string]string) PlaybackState {
	t, err := strconv.ParseFloat(fields[store.FieldCurrentTime], 64)
	if err != nil || t < 0 {
		t = 0
	}
	return PlaybackState{
		VideoURL:    fields[store.FieldVideoURL],
		CurrentTime: t,
		IsPlaying:   store.DecodeBool(fields[store.FieldIsPlaying]),
	}
}

func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// TimeUpdate is the peers-only payload for play, pause and seek broadcasts.
// The sender already knows its own resulting state, so only the position
// travels.
type TimeUpdate struct {
	Time float64 `json:"time"`
}

// ChatMessage is one entry in a room's chat log. Timestamp is a display
// label; SentAt carries the orderable epoch milliseconds.
type ChatMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
	SentAt    int64  `json:"sentAt"`
	Avatar    string `json:"avatar"`
	IsSystem  bool   `json:"isSystem"`
}

func newChatMessage(connID, text, userName string, now time.Time) ChatMessage {
	millis := now.UnixMilli()
	return ChatMessage{
		ID:        connID + "-" + strconv.FormatInt(millis, 10),
		Text:      text,
		User:      userName,
		Timestamp: now.Format("03:04 PM"),
		SentAt:    millis,
		Avatar:    avatarFor(userName),
		IsSystem:  false,
	}
}

// avatarFor derives the single-glyph avatar: first rune of the display
// name upper-cased, "G" for guests with no name.
func avatarFor(userName string) string {
	for _, r := range userName {
		return strings.ToUpper(string(r))
	}
	return "G"
}
