package server

// Room is a rendezvous point for at most two peers.
type Room struct {
	ID      string
	Name    string
	Members map[string]*Client
}

// MaxRoomMembers caps a room at a two-party call.
const MaxRoomMembers = 2

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Name:    id,
		Members: make(map[string]*Client),
	}
}

// other returns the opposite peer, if present.
func (r *Room) other(c *Client) *Client {
	for id, member := range r.Members {
		if id != c.ID {
			return member
		}
	}
	return nil
}
