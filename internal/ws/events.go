package ws

import "encoding/json"

// Inbound intent names, the wire contract the client depends on. The
// disconnect intent has no event; it is the transport closing.
const (
	eventJoin        = "join"
	eventVideoChange = "video-change"
	eventVideoPlay   = "video-play"
	eventVideoPause  = "video-pause"
	eventVideoSeek   = "video-seek"
	eventChatSend    = "chat-send"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// videoChangeIntent carries a video-change. Loading a URL always resets
// the playhead server-side.
type videoChangeIntent struct {
	RoomID string `json:"roomId"`
	URL    string `json:"url"`
}

// videoTimeIntent carries video-play, video-pause and video-seek.
type videoTimeIntent struct {
	RoomID string  `json:"roomId"`
	Time   float64 `json:"time"`
}

type chatSendIntent struct {
	RoomID   string `json:"roomId"`
	Message  string `json:"message"`
	UserName string `json:"userName"`
}
