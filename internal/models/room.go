// internal/models/room.go
package models

import "time"

// RoomVisibility controls whether a room shows up in public listings.
type RoomVisibility string

const (
	VisibilityUnspecified RoomVisibility = "unspecified"
	VisibilityPublic      RoomVisibility = "public"
	VisibilityPrivate     RoomVisibility = "private"
)

// GameMode selects the ruleset the provisioned game server runs.
type GameMode string

const (
	ModeUnspecified GameMode = "unspecified"
	ModeDefault     GameMode = "default"
)

// GameMap selects the arena the provisioned game server loads.
type GameMap string

const (
	MapUnspecified GameMap = "unspecified"
	MapDefault     GameMap = "default"
)

// RoomState is the lifecycle state of a room record.
type RoomState string

const (
	StateUnspecified RoomState = "unspecified"
	StateOpen        RoomState = "open"
	StatePlaying     RoomState = "playing"
	StateClosed      RoomState = "closed"
)

// Valid reports whether the state is one of the defined lifecycle states.
func (s RoomState) Valid() bool {
	switch s {
	case StateOpen, StatePlaying, StateClosed:
		return true
	}
	return false
}

// RoomConnection is the reachable endpoint of a provisioned game server.
type RoomConnection struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Room pairs a matchmaking session's configuration with the game-server
// instance provisioned for it. A room is only ever persisted once its
// deployment is reachable, so Connection is non-nil for every stored record.
type Room struct {
	ID          string         `json:"id"`
	ShortCode   string         `json:"short_code"`
	GameVersion string         `json:"game_version"`
	Name        string         `json:"name"`
	Visibility  RoomVisibility `json:"visibility"`
	Mode        GameMode       `json:"mode"`
	Map         GameMap        `json:"map"`

	// PasswordHash is set only for private rooms.
	PasswordHash string `json:"-"`

	// OwnerID is assigned to the first player admitted and never reassigned
	// by joins; the game server may hand ownership off later.
	OwnerID string `json:"owner_id,omitempty"`

	MaxPlayers     int `json:"max_players"`
	CurrentPlayers int `json:"current_players"`

	// DeploymentID is the provider handle needed to tear the instance down.
	DeploymentID string          `json:"-"`
	Connection   *RoomConnection `json:"connection,omitempty"`

	State RoomState `json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without sharing state.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	if r.Connection != nil {
		conn := *r.Connection
		out.Connection = &conn
	}
	return &out
}
