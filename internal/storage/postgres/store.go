// internal/storage/postgres/store.go

// Package postgres implements the room repository over pgx. Concurrent
// UpdateRoom calls on the same room serialize on a row lock, so the
// read-mutate-write cycle can never overwrite a concurrent change.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

const roomColumns = `
	id, short_code, game_version, name,
	visibility, mode, map,
	password_hash, owner_id,
	max_players, current_players,
	deployment_id, connection_host, connection_port,
	state, created_at, updated_at`

// Store persists room records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Connect builds a pool from a connection string and pings it.
func Connect(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return &Store{pool: pool}, nil
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// CreateRoom inserts a new room row, failing with ErrAlreadyExists on id
// collision rather than overwriting.
func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	now := time.Now().UTC()
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := room.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	var host string
	var port int
	if room.Connection != nil {
		host = room.Connection.Host
		port = room.Connection.Port
	}

	q := `
	INSERT INTO rooms (` + roomColumns + `)
	VALUES ($1, $2, $3, $4,
	        $5, $6, $7,
	        $8, $9,
	        $10, $11,
	        $12, $13, $14,
	        $15, $16, $17)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			room.ID,
			room.ShortCode,
			room.GameVersion,
			room.Name,
			string(room.Visibility),
			string(room.Mode),
			string(room.Map),
			room.PasswordHash,
			nullable(room.OwnerID),
			room.MaxPlayers,
			room.CurrentPlayers,
			room.DeploymentID,
			host,
			port,
			string(room.State),
			createdAt,
			updatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert room: %w", err)
		}
		return nil
	})
}

// GetRoom fetches a room by id.
func (s *Store) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	room, err := scanRoom(s.pool.QueryRow(ctx, q, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// FindRoomByShortCode resolves a short code among open rooms of one game version.
func (s *Store) FindRoomByShortCode(ctx context.Context, gameVersion, shortCode string) (*models.Room, error) {
	q := `
	SELECT ` + roomColumns + `
	  FROM rooms
	 WHERE game_version = $1 AND short_code = $2 AND state = $3
	 LIMIT 1
	`
	room, err := scanRoom(s.pool.QueryRow(ctx, q, gameVersion, shortCode, string(models.StateOpen)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find room by short code: %w", err)
	}
	return room, nil
}

// ListRooms returns rooms matching the filter, excluding records whose
// updated-at fell outside the freshness horizon.
func (s *Store) ListRooms(ctx context.Context, filter storage.ListFilter) ([]*models.Room, error) {
	conditions := []string{"updated_at >= $1"}
	args := []any{time.Now().UTC().Add(-storage.FreshnessHorizon)}

	appendCond := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendCond("game_version", filter.GameVersion)
	appendCond("state", string(filter.State))
	appendCond("visibility", string(filter.Visibility))
	appendCond("mode", string(filter.Mode))
	appendCond("map", string(filter.Map))

	q := `SELECT ` + roomColumns + ` FROM rooms WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// UpdateRoom locks the row, applies the mutation, and writes the result in
// one transaction. A mutation error rolls back without applying.
func (s *Store) UpdateRoom(ctx context.Context, roomID string, mutate func(*models.Room) error) (*models.Room, error) {
	var updated *models.Room
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 FOR UPDATE`
		room, err := scanRoom(tx.QueryRow(ctx, q, roomID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("select room for update: %w", err)
		}

		if err := mutate(room); err != nil {
			return err
		}
		room.UpdatedAt = time.Now().UTC()

		var host string
		var port int
		if room.Connection != nil {
			host = room.Connection.Host
			port = room.Connection.Port
		}

		_, err = tx.Exec(ctx, `
		UPDATE rooms SET
			short_code = $2, game_version = $3, name = $4,
			visibility = $5, mode = $6, map = $7,
			password_hash = $8, owner_id = $9,
			max_players = $10, current_players = $11,
			deployment_id = $12, connection_host = $13, connection_port = $14,
			state = $15, updated_at = $16
		WHERE id = $1`,
			room.ID,
			room.ShortCode,
			room.GameVersion,
			room.Name,
			string(room.Visibility),
			string(room.Mode),
			string(room.Map),
			room.PasswordHash,
			nullable(room.OwnerID),
			room.MaxPlayers,
			room.CurrentPlayers,
			room.DeploymentID,
			host,
			port,
			string(room.State),
			room.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update room: %w", err)
		}
		updated = room
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRoom removes the row.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
		if err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// TouchRoom refreshes the row's updated-at.
func (s *Store) TouchRoom(ctx context.Context, roomID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE rooms SET updated_at = $2 WHERE id = $1`, roomID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var r models.Room
	var visibility, mode, gameMap, state string
	var ownerID *string
	var host string
	var port int

	err := row.Scan(
		&r.ID,
		&r.ShortCode,
		&r.GameVersion,
		&r.Name,
		&visibility,
		&mode,
		&gameMap,
		&r.PasswordHash,
		&ownerID,
		&r.MaxPlayers,
		&r.CurrentPlayers,
		&r.DeploymentID,
		&host,
		&port,
		&state,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Visibility = models.RoomVisibility(visibility)
	r.Mode = models.GameMode(mode)
	r.Map = models.GameMap(gameMap)
	r.State = models.RoomState(state)
	if ownerID != nil {
		r.OwnerID = *ownerID
	}
	if host != "" {
		r.Connection = &models.RoomConnection{Host: host, Port: port}
	}
	return &r, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

var _ storage.RoomStore = (*Store)(nil)
