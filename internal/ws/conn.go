package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"watchroom/internal/metrics"
	"watchroom/internal/room"
)

// Client is one participant connection. It tracks the at-most-one room it
// has joined so that the transport closing resolves to a Leave without the
// client re-stating its room.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	roomID string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ID implements room.Conn.
func (c *Client) ID() string { return c.id }

// Send implements room.Conn. The send buffer absorbs bursts; a full buffer
// means a stalled consumer and the message is dropped rather than blocking
// the broadcasting intent.
func (c *Client) Send(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode outbound payload")
		return
	}
	b, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode outbound envelope")
		return
	}
	select {
	case c.send <- b:
	default:
		log.Warn().Str("conn_id", c.id).Str("event", event).Msg("drop message for slow consumer")
	}
}

// Serve upgrades the request and runs the connection until it closes.
func Serve(coord *room.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, 256),
		}
		metrics.WsConnections.Inc()
		log.Info().Str("conn_id", client.id).Msg("user connected")

		go client.writePump()
		client.readPump(coord)
	}
}

func (c *Client) readPump(coord *room.Coordinator) {
	defer func() {
		metrics.WsConnections.Dec()
		log.Info().Str("conn_id", c.id).Msg("user disconnected")
		if err := coord.Leave(context.Background(), c, c.roomID); err != nil {
			log.Error().Err(err).Str("conn_id", c.id).Str("room_id", c.roomID).Msg("leave")
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		c.dispatch(coord, env)
	}
}

// dispatch maps one inbound intent to exactly one coordinator call.
// Rejections are logged and swallowed: the realtime channel never carries
// error events, a stale or malicious intent just does nothing.
func (c *Client) dispatch(coord *room.Coordinator, env Envelope) {
	ctx := context.Background()
	switch env.Event {
	case eventJoin:
		var roomID string
		if err := json.Unmarshal(env.Data, &roomID); err != nil {
			return
		}
		// A connection is a member of at most one room. Switching rooms
		// leaves the old one first, so its membership never outlives the
		// move and an emptied room still gets purged.
		if c.roomID != "" && c.roomID != roomID {
			if err := coord.Leave(ctx, c, c.roomID); err != nil {
				log.Error().Err(err).Str("conn_id", c.id).Str("room_id", c.roomID).Msg("leave previous room")
			}
			c.roomID = ""
		}
		state, history, err := coord.Join(ctx, c, roomID)
		if err != nil {
			log.Warn().Err(err).Str("conn_id", c.id).Str("room_id", roomID).Msg("invalid room join attempt")
			return
		}
		c.roomID = roomID
		log.Info().Str("conn_id", c.id).Str("room_id", roomID).Msg("user joined room")
		c.Send(room.EventSync, state)
		if history == nil {
			history = []room.ChatMessage{}
		}
		c.Send(room.EventChatHistory, history)
	case eventVideoChange:
		var in videoChangeIntent
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		if err := coord.ChangeVideo(ctx, in.RoomID, in.URL); err != nil {
			log.Warn().Err(err).Str("room_id", in.RoomID).Msg("video change")
		}
	case eventVideoPlay, eventVideoPause:
		var in videoTimeIntent
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		playing := env.Event == eventVideoPlay
		if err := coord.SetPlaying(ctx, c.id, in.RoomID, in.Time, playing); err != nil {
			log.Warn().Err(err).Str("room_id", in.RoomID).Msg("set playing")
		}
	case eventVideoSeek:
		var in videoTimeIntent
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		if err := coord.Seek(ctx, c.id, in.RoomID, in.Time); err != nil {
			log.Warn().Err(err).Str("room_id", in.RoomID).Msg("seek")
		}
	case eventChatSend:
		var in chatSendIntent
		if err := json.Unmarshal(env.Data, &in); err != nil {
			return
		}
		if _, err := coord.SendChat(ctx, c.id, in.RoomID, in.Message, in.UserName); err != nil {
			log.Warn().Err(err).Str("room_id", in.RoomID).Msg("chat send")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
