package session

import (
	"testing"

	"github.com/voxcall/voxcall/internal/signaling"
)

func TestMembershipTracksLastServerValue(t *testing.T) {
	var m Membership

	m.ApplySnapshot(signaling.RoomInfoPayload{ActiveUsers: 1, Name: "standup"})
	if m.ActiveUsers() != 1 || m.RoomName() != "standup" {
		t.Fatalf("after snapshot: %d %q", m.ActiveUsers(), m.RoomName())
	}

	// The count is whatever the server last said, in order, never a
	// local computation.
	for _, total := range []int{2, 1, 2, 1} {
		m.ApplyTotal(total)
		if m.ActiveUsers() != total {
			t.Fatalf("ActiveUsers = %d, want %d", m.ActiveUsers(), total)
		}
	}

	m.Reset()
	if m.ActiveUsers() != 0 || m.RoomName() != "" {
		t.Fatalf("after reset: %d %q", m.ActiveUsers(), m.RoomName())
	}
}

func TestMembershipSnapshotKeepsNameWhenOmitted(t *testing.T) {
	var m Membership
	m.ApplySnapshot(signaling.RoomInfoPayload{ActiveUsers: 1, Name: "standup"})
	m.ApplySnapshot(signaling.RoomInfoPayload{ActiveUsers: 2})
	if m.RoomName() != "standup" {
		t.Fatalf("RoomName = %q, want standup", m.RoomName())
	}
}
