package store

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// PostgresStore keeps the room directory in Postgres.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			active_users INT NOT NULL DEFAULT 0
		)`,
	); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Create(room Room) error {
	res, err := s.db.Exec(
		"INSERT INTO rooms (id, name, active_users) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING",
		room.ID, room.Name, room.ActiveUsers,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrExists
	}
	return nil
}

func (s *PostgresStore) List() ([]Room, error) {
	rows, err := s.db.Query("SELECT id, name, active_users FROM rooms ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.ActiveUsers); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *PostgresStore) SetActiveUsers(id string, n int) error {
	_, err := s.db.Exec("UPDATE rooms SET active_users = $2 WHERE id = $1", id, n)
	return err
}

func (s *PostgresStore) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM rooms WHERE id = $1", id)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
