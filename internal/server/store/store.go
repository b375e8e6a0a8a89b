// Package store holds the room directory behind the REST API. The
// default is in-memory; a Postgres store is available for deployments
// that want the directory to survive restarts.
package store

import (
	"errors"
	"sort"
	"sync"
)

var ErrExists = errors.New("room already exists")

// Room is a directory entry.
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ActiveUsers int    `json:"active_users"`
}

// RoomStore is the room directory persistence interface.
type RoomStore interface {
	Create(room Room) error
	List() ([]Room, error)
	SetActiveUsers(id string, n int) error
	Delete(id string) error
}

// MemoryStore is the default in-process room directory.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]Room)}
}

func (s *MemoryStore) Create(room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return ErrExists
	}
	s.rooms[room.ID] = room
	return nil
}

func (s *MemoryStore) List() ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (s *MemoryStore) SetActiveUsers(id string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil
	}
	room.ActiveUsers = n
	s.rooms[id] = room
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, id)
	return nil
}
