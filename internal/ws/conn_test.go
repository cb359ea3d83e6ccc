package ws

import (
	"context"
	"encoding/json"
	"testing"

	"watchroom/internal/room"
	"watchroom/internal/store"
)

func newTestClient(id string) *Client {
	return &Client{id: id, send: make(chan []byte, 256)}
}

// drain decodes every envelope currently buffered on the client.
func drain(t *testing.T, c *Client) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage)
	for {
		select {
		case b := <-c.send:
			var env Envelope
			if err := json.Unmarshal(b, &env); err != nil {
				t.Fatalf("decode envelope: %v", err)
			}
			out[env.Event] = env.Data
		default:
			return out
		}
	}
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func setup(t *testing.T) (*room.Coordinator, string) {
	t.Helper()
	st := store.NewMemory()
	coord := room.NewCoordinator(st, NewHub(), 0)
	roomID, err := coord.CreateRoom(context.Background())
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	return coord, roomID
}

func TestDispatch_Join_EmitsSyncAndHistory(t *testing.T) {
	coord, roomID := setup(t)
	c := newTestClient("c1")

	c.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomID)})

	if c.roomID != roomID {
		t.Errorf("client roomID = %q, want %q", c.roomID, roomID)
	}
	got := drain(t, c)
	rawSync, ok := got[room.EventSync]
	if !ok {
		t.Fatal("no sync event emitted")
	}
	var state room.PlaybackState
	if err := json.Unmarshal(rawSync, &state); err != nil {
		t.Fatalf("decode sync: %v", err)
	}
	if (state != room.PlaybackState{}) {
		t.Errorf("sync payload = %+v, want zero state", state)
	}

	rawHist, ok := got[room.EventChatHistory]
	if !ok {
		t.Fatal("no chat-history event emitted")
	}
	var history []room.ChatMessage
	if err := json.Unmarshal(rawHist, &history); err != nil {
		t.Fatalf("decode chat-history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %v, want empty array", history)
	}
}

func TestDispatch_Join_UnknownRoomStaysSilent(t *testing.T) {
	coord, _ := setup(t)
	c := newTestClient("c1")

	c.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, "no-such-room")})

	if c.roomID != "" {
		t.Errorf("client roomID = %q, want empty", c.roomID)
	}
	if got := drain(t, c); len(got) != 0 {
		t.Errorf("rejected join emitted %v, want nothing", got)
	}
}

func TestDispatch_SecondJoin_LeavesFirstRoom(t *testing.T) {
	coord, roomA := setup(t)
	ctx := context.Background()
	roomB, err := coord.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	c := newTestClient("c1")
	c.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomA)})
	drain(t, c)

	c.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomB)})
	if c.roomID != roomB {
		t.Errorf("client roomID = %q, want %q", c.roomID, roomB)
	}
	got := drain(t, c)
	if _, ok := got[room.EventSync]; !ok {
		t.Error("second join emitted no sync event")
	}

	// The client was the first room's only member, so switching rooms
	// empties it and its store entries are purged.
	if coord.ValidateRoom(ctx, roomA) {
		t.Error("ValidateRoom(first room) after switch = true, want false")
	}
	if !coord.ValidateRoom(ctx, roomB) {
		t.Error("ValidateRoom(second room) = false, want true")
	}

	// Disconnect resolves to the current room only, and purges it too.
	if err := coord.Leave(ctx, c, c.roomID); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if coord.ValidateRoom(ctx, roomB) {
		t.Error("ValidateRoom(second room) after disconnect = true, want false")
	}
}

func TestDispatch_SecondJoin_PeersStopReceiving(t *testing.T) {
	coord, roomA := setup(t)
	ctx := context.Background()
	roomB, err := coord.CreateRoom(ctx)
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	mover := newTestClient("mover")
	stayer := newTestClient("stayer")
	mover.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomA)})
	stayer.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomA)})
	mover.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomB)})
	drain(t, mover)
	drain(t, stayer)

	// The first room stays alive for its remaining member, but the moved
	// connection is no longer in its broadcast group.
	if !coord.ValidateRoom(ctx, roomA) {
		t.Fatal("ValidateRoom(first room) with a member left = false, want true")
	}
	stayer.dispatch(coord, Envelope{Event: eventChatSend, Data: mustRaw(t, chatSendIntent{
		RoomID:   roomA,
		Message:  "still here",
		UserName: "Stan",
	})})

	if got := drain(t, mover); len(got) != 0 {
		t.Errorf("moved client received %v from its old room, want nothing", got)
	}
	if got := drain(t, stayer); len(got) != 1 {
		t.Errorf("remaining member received %d events, want 1", len(got))
	}

	// With the mover gone, the last leaver empties and purges the room.
	if err := coord.Leave(ctx, stayer, roomA); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if coord.ValidateRoom(ctx, roomA) {
		t.Error("ValidateRoom(first room) after last leave = true, want false")
	}
}

func TestDispatch_ChatSend_EchoesToSender(t *testing.T) {
	coord, roomID := setup(t)
	c := newTestClient("c1")
	c.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomID)})
	drain(t, c)

	c.dispatch(coord, Envelope{Event: eventChatSend, Data: mustRaw(t, chatSendIntent{
		RoomID:   roomID,
		Message:  "hello room",
		UserName: "Ana",
	})})

	got := drain(t, c)
	raw, ok := got[room.EventChatReceive]
	if !ok {
		t.Fatal("no chat-receive event emitted to sender")
	}
	var msg room.ChatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode chat-receive: %v", err)
	}
	if msg.Text != "hello room" || msg.User != "Ana" || msg.Avatar != "A" {
		t.Errorf("chat-receive = %+v", msg)
	}
}

func TestDispatch_PlayPauseSeek_SkipSender(t *testing.T) {
	coord, roomID := setup(t)
	sender := newTestClient("sender")
	peer := newTestClient("peer")
	sender.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomID)})
	peer.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomID)})
	drain(t, sender)
	drain(t, peer)

	tests := []struct {
		inbound  string
		outbound string
	}{
		{eventVideoPlay, room.EventVideoPlayed},
		{eventVideoPause, room.EventVideoPaused},
		{eventVideoSeek, room.EventVideoSeeked},
	}
	for _, tt := range tests {
		t.Run(tt.inbound, func(t *testing.T) {
			sender.dispatch(coord, Envelope{Event: tt.inbound, Data: mustRaw(t, videoTimeIntent{
				RoomID: roomID,
				Time:   12.5,
			})})

			if got := drain(t, sender); len(got) != 0 {
				t.Errorf("sender received %v, want nothing", got)
			}
			got := drain(t, peer)
			raw, ok := got[tt.outbound]
			if !ok {
				t.Fatalf("peer missed %s", tt.outbound)
			}
			var upd room.TimeUpdate
			if err := json.Unmarshal(raw, &upd); err != nil {
				t.Fatalf("decode %s: %v", tt.outbound, err)
			}
			if upd.Time != 12.5 {
				t.Errorf("%s time = %v, want 12.5", tt.outbound, upd.Time)
			}
		})
	}
}

func TestDispatch_VideoChange_ReachesEveryone(t *testing.T) {
	coord, roomID := setup(t)
	sender := newTestClient("sender")
	peer := newTestClient("peer")
	sender.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomID)})
	peer.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomID)})
	drain(t, sender)
	drain(t, peer)

	sender.dispatch(coord, Envelope{Event: eventVideoChange, Data: mustRaw(t, videoChangeIntent{
		RoomID: roomID,
		URL:    "http://x/video",
	})})

	want := room.PlaybackState{VideoURL: "http://x/video", CurrentTime: 0, IsPlaying: false}
	for name, c := range map[string]*Client{"sender": sender, "peer": peer} {
		got := drain(t, c)
		raw, ok := got[room.EventVideoChanged]
		if !ok {
			t.Fatalf("%s missed video-changed", name)
		}
		var state room.PlaybackState
		if err := json.Unmarshal(raw, &state); err != nil {
			t.Fatalf("decode video-changed: %v", err)
		}
		if state != want {
			t.Errorf("%s video-changed = %+v, want %+v", name, state, want)
		}
	}
}

func TestDispatch_MalformedPayloadIgnored(t *testing.T) {
	coord, roomID := setup(t)
	c := newTestClient("c1")
	c.dispatch(coord, Envelope{Event: eventJoin, Data: mustRaw(t, roomID)})
	drain(t, c)

	c.dispatch(coord, Envelope{Event: eventChatSend, Data: json.RawMessage(`{`)})
	c.dispatch(coord, Envelope{Event: eventVideoSeek, Data: json.RawMessage(`"not an object"`)})
	c.dispatch(coord, Envelope{Event: "unknown-event", Data: nil})

	if got := drain(t, c); len(got) != 0 {
		t.Errorf("malformed intents emitted %v, want nothing", got)
	}
}
