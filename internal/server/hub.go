package server

import (
	"errors"
	"log/slog"

	"github.com/voxcall/voxcall/internal/server/store"
	"github.com/voxcall/voxcall/internal/signaling"
)

// inbound pairs a message with the connection it arrived on.
type inbound struct {
	client *Client
	msg    *signaling.Message
}

// Hub is the central brain of the signaling server. Its Run loop is the
// single goroutine that owns all room state.
type Hub struct {
	Rooms map[string]*Room

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan *inbound

	store store.RoomStore
}

// NewHub creates a Hub backed by the given room directory store.
func NewHub(st store.RoomStore) *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound),
		store:      st,
	}
}

// Run starts the hub's main processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			connectedClients.Inc()
			slog.Debug("client registered", "id", client.ID, "room", client.RoomID)

		case client := <-h.Unregister:
			connectedClients.Dec()
			h.removeClient(client)
			close(client.Send)

		case in := <-h.Inbound:
			h.handleMessage(in.client, in.msg)
		}
	}
}

func (h *Hub) handleMessage(c *Client, msg *signaling.Message) {
	switch msg.Type {

	case signaling.TypeJoin:
		h.handleJoin(c, msg)

	case signaling.TypeOffer, signaling.TypeAnswer, signaling.TypeICECandidate:
		h.relay(c, msg)

	default:
		slog.Debug("unknown message type", "type", msg.Type)
	}
}

// handleJoin admits a client into the room named by its connection
// path. Joining a room that already exists is the normal second-peer
// case, not an error.
func (h *Hub) handleJoin(c *Client, msg *signaling.Message) {
	if c.Joined {
		return
	}

	roomID := c.RoomID
	if roomID == "" {
		var p signaling.ErrorPayload
		p.Error = "no room in connection path"
		h.sendError(c, p.Error)
		return
	}

	room, ok := h.Rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		h.Rooms[roomID] = room
		activeRooms.Inc()

		if err := h.store.Create(store.Room{ID: roomID, Name: room.Name}); err != nil &&
			!errors.Is(err, store.ErrExists) {
			slog.Warn("room store create failed", "room", roomID, "err", err)
		}
	}

	if len(room.Members) >= MaxRoomMembers {
		slog.Debug("room full", "room", roomID)
		h.sendError(c, "room is full")
		return
	}

	room.Members[c.ID] = c
	c.Joined = true
	total := len(room.Members)

	if err := h.store.SetActiveUsers(roomID, total); err != nil {
		slog.Warn("room store update failed", "room", roomID, "err", err)
	}

	slog.Info("client joined", "room", roomID, "total", total)

	// Snapshot to the joiner, authoritative total to everyone else.
	h.send(c, signaling.TypeRoomInfo, signaling.RoomInfoPayload{
		ActiveUsers: total,
		Name:        room.Name,
	})
	if other := room.other(c); other != nil {
		h.send(other, signaling.TypeUserJoined, signaling.PresencePayload{TotalUsers: total})
	}
}

// relay forwards a negotiation message to the opposite peer.
func (h *Hub) relay(c *Client, msg *signaling.Message) {
	if !c.Joined {
		h.sendError(c, "you must join a room first")
		return
	}

	room, ok := h.Rooms[c.RoomID]
	if !ok {
		h.sendError(c, "room not found")
		return
	}

	other := room.other(c)
	if other == nil {
		slog.Debug("no peer to relay to", "room", c.RoomID, "type", msg.Type)
		return
	}

	relayedSignals.Inc()
	select {
	case other.Send <- msg:
	default:
		slog.Warn("peer send buffer full, dropping", "room", c.RoomID, "type", msg.Type)
	}
}

// removeClient takes a disconnected client out of its room, notifies
// the remaining peer and deletes the room when it empties.
func (h *Hub) removeClient(c *Client) {
	slog.Debug("client unregistered", "id", c.ID)

	if !c.Joined {
		return
	}

	room, ok := h.Rooms[c.RoomID]
	if !ok {
		return
	}

	delete(room.Members, c.ID)
	total := len(room.Members)

	if total == 0 {
		delete(h.Rooms, room.ID)
		activeRooms.Dec()
		if err := h.store.Delete(room.ID); err != nil {
			slog.Warn("room store delete failed", "room", room.ID, "err", err)
		}
		slog.Info("room deleted", "room", room.ID)
		return
	}

	if err := h.store.SetActiveUsers(room.ID, total); err != nil {
		slog.Warn("room store update failed", "room", room.ID, "err", err)
	}
	for _, member := range room.Members {
		h.send(member, signaling.TypeUserLeft, signaling.PresencePayload{TotalUsers: total})
	}
}

func (h *Hub) send(c *Client, t string, payload any) {
	msg, err := signaling.NewMessage(t, payload)
	if err != nil {
		slog.Warn("encode message failed", "type", t, "err", err)
		return
	}
	select {
	case c.Send <- msg:
	default:
		slog.Warn("send buffer full, dropping", "type", t)
	}
}

func (h *Hub) sendError(c *Client, text string) {
	h.send(c, signaling.TypeError, signaling.ErrorPayload{Error: text})
}
