package session

import "github.com/voxcall/voxcall/internal/signaling"

// Membership is a pure projection of the server's room membership
// messages. The count is whatever the server last reported; it is
// never recomputed locally.
type Membership struct {
	activeUsers int
	roomName    string
}

// ApplySnapshot applies the initial room_info snapshot.
func (m *Membership) ApplySnapshot(info signaling.RoomInfoPayload) {
	m.activeUsers = info.ActiveUsers
	if info.Name != "" {
		m.roomName = info.Name
	}
}

// ApplyTotal applies the authoritative total from a user_joined or
// user_left message.
func (m *Membership) ApplyTotal(total int) {
	m.activeUsers = total
}

// ActiveUsers returns the last server-reported participant count.
func (m *Membership) ActiveUsers() int {
	return m.activeUsers
}

// RoomName returns the room's display name, if the server sent one.
func (m *Membership) RoomName() string {
	return m.roomName
}

// Reset clears the projection back to its initial values.
func (m *Membership) Reset() {
	m.activeUsers = 0
	m.roomName = ""
}
