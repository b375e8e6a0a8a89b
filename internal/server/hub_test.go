package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxcall/voxcall/internal/server/store"
	"github.com/voxcall/voxcall/internal/signaling"
)

func newTestServer(t *testing.T) (*httptest.Server, store.RoomStore) {
	t.Helper()
	st := store.NewMemoryStore()
	hub := NewHub(st)
	go hub.Run()
	srv := httptest.NewServer(NewMux(hub, st))
	t.Cleanup(srv.Close)
	return srv, st
}

func dialRoom(t *testing.T, srv *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + room
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJoin(t *testing.T, conn *websocket.Conn, room string) {
	t.Helper()
	msg, err := signaling.NewMessage(signaling.TypeJoin, map[string]string{"room_id": room})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write join: %v", err)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) *signaling.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg signaling.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return &msg
}

func TestJoinAndMembership(t *testing.T) {
	srv, st := newTestServer(t)

	a := dialRoom(t, srv, "AB12CD")
	sendJoin(t, a, "AB12CD")

	info := readMessage(t, a)
	if info.Type != signaling.TypeRoomInfo {
		t.Fatalf("first message = %q, want room_info", info.Type)
	}
	var snap signaling.RoomInfoPayload
	if err := info.DecodePayload(&snap); err != nil {
		t.Fatalf("decode room_info: %v", err)
	}
	if snap.ActiveUsers != 1 {
		t.Fatalf("active_users = %d, want 1", snap.ActiveUsers)
	}

	b := dialRoom(t, srv, "AB12CD")
	sendJoin(t, b, "AB12CD")

	binfo := readMessage(t, b)
	if binfo.Type != signaling.TypeRoomInfo {
		t.Fatalf("B first message = %q", binfo.Type)
	}
	var bsnap signaling.RoomInfoPayload
	binfo.DecodePayload(&bsnap)
	if bsnap.ActiveUsers != 2 {
		t.Fatalf("B active_users = %d, want 2", bsnap.ActiveUsers)
	}

	joined := readMessage(t, a)
	if joined.Type != signaling.TypeUserJoined {
		t.Fatalf("A notification = %q, want user_joined", joined.Type)
	}
	var p signaling.PresencePayload
	joined.DecodePayload(&p)
	if p.TotalUsers != 2 {
		t.Fatalf("total_users = %d, want 2", p.TotalUsers)
	}

	// Directory reflects the live count.
	list, err := st.List()
	if err != nil {
		t.Fatalf("store list: %v", err)
	}
	if len(list) != 1 || list[0].ActiveUsers != 2 {
		t.Fatalf("store = %+v", list)
	}
}

func TestRelayGoesToOppositePeerOnly(t *testing.T) {
	srv, _ := newTestServer(t)

	a := dialRoom(t, srv, "CD34EF")
	sendJoin(t, a, "CD34EF")
	readMessage(t, a) // room_info

	b := dialRoom(t, srv, "CD34EF")
	sendJoin(t, b, "CD34EF")
	readMessage(t, b) // room_info
	readMessage(t, a) // user_joined

	offer := &signaling.Message{Type: signaling.TypeOffer, Payload: json.RawMessage(`{"offer":{"type":"offer","sdp":"v=0"}}`)}
	if err := a.WriteJSON(offer); err != nil {
		t.Fatalf("write offer: %v", err)
	}

	got := readMessage(t, b)
	if got.Type != signaling.TypeOffer {
		t.Fatalf("B got %q, want offer", got.Type)
	}
	if !bytes.Contains(got.Payload, []byte("v=0")) {
		t.Fatalf("payload not relayed: %s", got.Payload)
	}
}

func TestThirdJoinRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	a := dialRoom(t, srv, "EF56GH")
	sendJoin(t, a, "EF56GH")
	readMessage(t, a)

	b := dialRoom(t, srv, "EF56GH")
	sendJoin(t, b, "EF56GH")
	readMessage(t, b)
	readMessage(t, a)

	c := dialRoom(t, srv, "EF56GH")
	sendJoin(t, c, "EF56GH")

	got := readMessage(t, c)
	if got.Type != signaling.TypeError {
		t.Fatalf("third join got %q, want error", got.Type)
	}
	var e signaling.ErrorPayload
	got.DecodePayload(&e)
	if e.Error != "room is full" {
		t.Fatalf("error = %q", e.Error)
	}
}

func TestLeaveNotifiesPeerAndEmptiesRoom(t *testing.T) {
	srv, st := newTestServer(t)

	a := dialRoom(t, srv, "GH78JK")
	sendJoin(t, a, "GH78JK")
	readMessage(t, a)

	b := dialRoom(t, srv, "GH78JK")
	sendJoin(t, b, "GH78JK")
	readMessage(t, b)
	readMessage(t, a)

	b.Close()

	left := readMessage(t, a)
	if left.Type != signaling.TypeUserLeft {
		t.Fatalf("A got %q, want user_left", left.Type)
	}
	var p signaling.PresencePayload
	left.DecodePayload(&p)
	if p.TotalUsers != 1 {
		t.Fatalf("total_users = %d, want 1", p.TotalUsers)
	}

	a.Close()

	// The directory entry disappears once the room empties.
	deadline := time.Now().Add(2 * time.Second)
	for {
		list, err := st.List()
		if err != nil {
			t.Fatalf("store list: %v", err)
		}
		if len(list) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("room never deleted: %+v", list)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInvalidRoomPathRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws/not-a-room-code")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRoomsREST(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"id":"jk90lm","name":"standup"}`
	resp, err := http.Post(srv.URL+"/rooms", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	// The room code is normalized; creating it again conflicts.
	resp, err = http.Post(srv.URL+"/rooms", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/rooms")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var list []store.Room
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != "JK90LM" || list[0].Name != "standup" {
		t.Fatalf("list = %+v", list)
	}
}
