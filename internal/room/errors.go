package room

import "errors"

// Coordinator outcomes the boundaries map to their own policies: the
// admission API turns ErrRoomNotFound into a 404, the gateway logs
// rejections and stays silent on the realtime channel.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrEmptyRoomID  = errors.New("empty room id")
	ErrEmptyMessage = errors.New("empty message")
)
