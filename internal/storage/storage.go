// internal/storage/storage.go

// Package storage defines the room repository contract. All durable lobby
// state lives behind RoomStore, which is the sole synchronization point for
// concurrent requests.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/overtone-games/lobby/internal/models"
)

// ErrNotFound is returned when no room matches the lookup.
var ErrNotFound = errors.New("room not found")

// ErrAlreadyExists is returned by CreateRoom on a room-id collision. Create
// never overwrites.
var ErrAlreadyExists = errors.New("room already exists")

// FreshnessHorizon bounds how stale a record may be before listings hide
// it. Rooms whose game server stopped heartbeating fall out of discovery
// after this long even if the record was never closed.
const FreshnessHorizon = time.Hour

// ListFilter narrows ListRooms. Zero values mean "any".
type ListFilter struct {
	GameVersion string
	State       models.RoomState
	Visibility  models.RoomVisibility
	Mode        models.GameMode
	Map         models.GameMap
}

// RoomStore is typed, transactional access to room records.
//
// UpdateRoom applies the caller's mutation atomically with respect to other
// UpdateRoom calls on the same id: read, mutate and write happen in one
// transaction, and a mutation error aborts without applying anything. The
// returned room is the post-mutation record.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	// FindRoomByShortCode resolves a short code among open rooms of one
	// game version; closed rooms recycle their codes.
	FindRoomByShortCode(ctx context.Context, gameVersion, shortCode string) (*models.Room, error)
	ListRooms(ctx context.Context, filter ListFilter) ([]*models.Room, error)
	UpdateRoom(ctx context.Context, roomID string, mutate func(*models.Room) error) (*models.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	// TouchRoom refreshes the record's updated-at, keeping it inside the
	// freshness horizon. Called by the game server's heartbeat.
	TouchRoom(ctx context.Context, roomID string) error
}
