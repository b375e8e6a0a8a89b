package session

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/voxcall/voxcall/internal/config"
	"github.com/voxcall/voxcall/internal/media"
	"github.com/voxcall/voxcall/internal/server"
	"github.com/voxcall/voxcall/internal/server/store"
)

// newTestBackend runs a real signaling server in-process and returns a
// client config pointed at it.
func newTestBackend(t *testing.T) (*config.Config, *httptest.Server) {
	t.Helper()

	st := store.NewMemoryStore()
	hub := server.NewHub(st)
	go hub.Run()

	srv := httptest.NewServer(server.NewMux(hub, st))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}

	return &config.Config{
		Domain:       u.Host,
		WebSocketURL: "ws://" + u.Host + "/ws",
		APIURL:       "http://" + u.Host,
		Insecure:     true,
	}, srv
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, desc string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestTwoPeerHandshake(t *testing.T) {
	cfg, _ := newTestBackend(t)
	roomID := "AB23CD"

	a := New(cfg)
	t.Cleanup(a.Disconnect)
	if err := a.Connect(context.Background(), roomID); err != nil {
		t.Fatalf("a.Connect: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return a.Status().ActiveUsers == 1
	}, "first peer room snapshot")

	b := New(cfg)
	t.Cleanup(b.Disconnect)
	if err := b.Connect(context.Background(), roomID); err != nil {
		t.Fatalf("b.Connect: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		return a.Status().SignalingState == StateStable &&
			b.Status().SignalingState == StateStable
	}, "both peers stable")

	sa, sb := a.Status(), b.Status()
	if !sa.IsInitiator {
		t.Error("first peer should be the initiator")
	}
	if sb.IsInitiator {
		t.Error("second peer must not be the initiator")
	}
	if sa.ActiveUsers != 2 || sb.ActiveUsers != 2 {
		t.Errorf("active users = %d/%d, want 2/2", sa.ActiveUsers, sb.ActiveUsers)
	}
	if sa.RoomID != roomID || sb.RoomID != roomID {
		t.Errorf("room id = %q/%q, want %q", sa.RoomID, sb.RoomID, roomID)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	cfg, _ := newTestBackend(t)

	s := New(cfg)
	if err := s.Connect(context.Background(), "EF45GH"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	s.Disconnect()
	s.Disconnect()

	st := s.Status()
	if st.SignalingState != StateNew {
		t.Errorf("signaling state = %q, want new", st.SignalingState)
	}
	if st.ConnectionState != connStateInitial {
		t.Errorf("connection state = %q, want %q", st.ConnectionState, connStateInitial)
	}
	if st.ActiveUsers != 0 || st.RoomID != "" {
		t.Errorf("status not cleared: %+v", st)
	}
}

func TestDisconnectOnIdleSession(t *testing.T) {
	s := New(&config.Config{})
	s.Disconnect() // no session, must not panic or block
}

func TestMediaFailureAbortsConnect(t *testing.T) {
	cfg, _ := newTestBackend(t)

	s := New(cfg)
	s.acquire = func() (*media.Source, error) {
		return nil, fmt.Errorf("no capture device")
	}

	err := s.Connect(context.Background(), "JK67MN")
	if !errors.Is(err, ErrMediaUnavailable) {
		t.Fatalf("err = %v, want ErrMediaUnavailable", err)
	}
	if s.Status().ConnectionState != connStateInitial {
		t.Error("failed connect must leave the session idle")
	}
}

func TestInvalidRoomCodeRejected(t *testing.T) {
	s := New(&config.Config{})

	for _, code := range []string{"", "AB", "abc-12", "TOOLONGCODE"} {
		if err := s.Connect(context.Background(), code); !errors.Is(err, ErrRoomUnavailable) {
			t.Errorf("Connect(%q) = %v, want ErrRoomUnavailable", code, err)
		}
	}
}

func TestTransportLossResetsNegotiation(t *testing.T) {
	cfg, srv := newTestBackend(t)
	roomID := "PQ89RS"

	a := New(cfg)
	t.Cleanup(a.Disconnect)
	if err := a.Connect(context.Background(), roomID); err != nil {
		t.Fatalf("a.Connect: %v", err)
	}

	b := New(cfg)
	t.Cleanup(b.Disconnect)
	if err := b.Connect(context.Background(), roomID); err != nil {
		t.Fatalf("b.Connect: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		return a.Status().SignalingState == StateStable
	}, "initiator stable")

	// Kill the signaling transport out from under both sessions.
	srv.CloseClientConnections()

	waitFor(t, 3*time.Second, func() bool {
		st := a.Status()
		return st.SignalingState == StateNew && st.ConnectionState == connStateInitial
	}, "negotiation reset after transport loss")

	// Media survives a reset; only a full disconnect releases it.
	a.lifecycleMu.Lock()
	src := a.source
	a.lifecycleMu.Unlock()
	if src == nil || !src.Live() {
		t.Error("audio source must stay live across a reset")
	}
}

func TestDirectoryFailureIsAdvisory(t *testing.T) {
	cfg, _ := newTestBackend(t)
	// Directory REST endpoint unreachable, signaling endpoint fine.
	cfg.APIURL = "http://127.0.0.1:1"

	s := New(cfg)
	t.Cleanup(s.Disconnect)

	if err := s.Connect(context.Background(), "TU23VW"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.Status().Warning == "" {
		t.Error("expected a directory warning on the session status")
	}
}
