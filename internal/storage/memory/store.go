// internal/storage/memory/store.go

// Package memory is an in-memory RoomStore. It backs tests and local runs
// without Postgres; the mutex gives UpdateRoom the same atomicity the
// Postgres implementation gets from row locks.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage"
)

// Store keeps room records in a mutex-guarded map.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*models.Room

	// now is swappable in tests.
	now func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*models.Room),
		now:   time.Now,
	}
}

// CreateRoom stores a new record, failing with ErrAlreadyExists on id
// collision. Provided timestamps are preserved; zero timestamps are set to
// now.
func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return storage.ErrAlreadyExists
	}

	stored := room.Clone()
	now := s.now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}
	s.rooms[room.ID] = stored
	return nil
}

// GetRoom returns a copy of the record.
func (s *Store) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return room.Clone(), nil
}

// FindRoomByShortCode resolves a short code among open rooms of one game version.
func (s *Store) FindRoomByShortCode(ctx context.Context, gameVersion, shortCode string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range s.rooms {
		if room.State == models.StateOpen && room.GameVersion == gameVersion && room.ShortCode == shortCode {
			return room.Clone(), nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListRooms returns copies of all records matching the filter, excluding
// records outside the freshness horizon.
func (s *Store) ListRooms(ctx context.Context, filter storage.ListFilter) ([]*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	horizon := s.now().UTC().Add(-storage.FreshnessHorizon)
	var out []*models.Room
	for _, room := range s.rooms {
		if room.UpdatedAt.Before(horizon) {
			continue
		}
		if filter.GameVersion != "" && room.GameVersion != filter.GameVersion {
			continue
		}
		if filter.State != "" && room.State != filter.State {
			continue
		}
		if filter.Visibility != "" && room.Visibility != filter.Visibility {
			continue
		}
		if filter.Mode != "" && room.Mode != filter.Mode {
			continue
		}
		if filter.Map != "" && room.Map != filter.Map {
			continue
		}
		out = append(out, room.Clone())
	}
	return out, nil
}

// UpdateRoom runs the mutation under the store lock. The mutation sees a
// copy; the copy replaces the record only when the mutation returns nil.
func (s *Store) UpdateRoom(ctx context.Context, roomID string, mutate func(*models.Room) error) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	updated := room.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now().UTC()
	s.rooms[roomID] = updated
	return updated.Clone(), nil
}

// DeleteRoom removes the record.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[roomID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.rooms, roomID)
	return nil
}

// TouchRoom refreshes the record's updated-at.
func (s *Store) TouchRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return storage.ErrNotFound
	}
	room.UpdatedAt = s.now().UTC()
	return nil
}

var _ storage.RoomStore = (*Store)(nil)
