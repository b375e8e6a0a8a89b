package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxcall/voxcall/internal/rooms"
	"github.com/voxcall/voxcall/internal/server/store"
	"github.com/voxcall/voxcall/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Signaling carries no credentials; cross-origin browser clients
	// are expected.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns the websocket handler for /ws/{room}.
func ServeWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := rooms.NormalizeID(r.PathValue("room"))
		if !rooms.ValidID(roomID) {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := &Client{
			Hub:    hub,
			Conn:   conn,
			ID:     uuid.NewString(),
			RoomID: roomID,
			Send:   make(chan *signaling.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// NewMux builds the full server mux: websocket signaling, room
// directory REST, health and metrics.
func NewMux(hub *Hub, st store.RoomStore) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Signaling server is healthy."))
	})

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws/{room}", ServeWs(hub))
	mux.HandleFunc("GET /rooms", listRooms(st))
	mux.HandleFunc("POST /rooms", createRoom(st))

	return mux
}

func listRooms(st store.RoomStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := st.List()
		if err != nil {
			slog.Warn("room store list failed", "err", err)
			http.Error(w, "room directory unavailable", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []store.Room{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

func createRoom(st store.RoomStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var room store.Room
		if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		room.ID = rooms.NormalizeID(room.ID)
		if !rooms.ValidID(room.ID) {
			http.Error(w, "invalid room code", http.StatusBadRequest)
			return
		}
		if room.Name == "" {
			room.Name = room.ID
		}
		room.ActiveUsers = 0

		if err := st.Create(room); err != nil {
			if errors.Is(err, store.ErrExists) {
				http.Error(w, "room already exists", http.StatusConflict)
				return
			}
			slog.Warn("room store create failed", "err", err)
			http.Error(w, "room directory unavailable", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}
