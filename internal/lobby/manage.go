// internal/lobby/manage.go
package lobby

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/overtone-games/lobby/internal/apperr"
	"github.com/overtone-games/lobby/internal/events"
	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage"
)

// ListRoomsParams narrows a listing. GameVersion is required; Mode and Map
// are optional refinements.
type ListRoomsParams struct {
	GameVersion string
	Mode        models.GameMode
	Map         models.GameMap
}

// ListRooms returns the open, public, recently-updated rooms for a game
// version. Stale rooms drop out of the listing on their own once their
// server stops heartbeating.
func (s *Service) ListRooms(ctx context.Context, p ListRoomsParams) ([]*models.Room, error) {
	if strings.TrimSpace(p.GameVersion) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "game version is required")
	}
	rooms, err := s.store.ListRooms(ctx, storage.ListFilter{
		GameVersion: p.GameVersion,
		State:       models.StateOpen,
		Visibility:  models.VisibilityPublic,
		Mode:        p.Mode,
		Map:         p.Map,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list rooms", err)
	}
	return rooms, nil
}

// UpdateRoomState is called by the room's own game server to move the room
// through its lifecycle (open, playing, closed).
func (s *Service) UpdateRoomState(ctx context.Context, roomID string, state models.RoomState) (*models.Room, error) {
	if !state.Valid() || state == models.StateUnspecified {
		return nil, apperr.E(apperr.CodeInvalidArgument, "invalid room state")
	}

	room, err := s.store.UpdateRoom(ctx, roomID, func(room *models.Room) error {
		room.State = state
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.E(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to update room state", err)
	}

	s.logger.WithFields(logrus.Fields{"room_id": roomID, "state": string(state)}).Info("room state updated")
	return room, nil
}

// ChangeRoomOwner reassigns the room owner, typically after the current
// owner disconnects from the game server.
func (s *Service) ChangeRoomOwner(ctx context.Context, roomID, newOwnerID string) (*models.Room, error) {
	if strings.TrimSpace(newOwnerID) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "owner id is required")
	}

	room, err := s.store.UpdateRoom(ctx, roomID, func(room *models.Room) error {
		room.OwnerID = newOwnerID
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.E(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to change room owner", err)
	}

	s.logger.WithFields(logrus.Fields{"room_id": roomID, "owner_id": newOwnerID}).Info("room owner changed")
	return room, nil
}

// CloseRoom ends the room: the record is marked closed first, then the
// deployment is torn down. A delete failure is surfaced so the game server
// retries, but the room stays closed either way and never reappears in
// listings or joins.
func (s *Service) CloseRoom(ctx context.Context, roomID string) error {
	var deploymentID string
	room, err := s.store.UpdateRoom(ctx, roomID, func(room *models.Room) error {
		deploymentID = room.DeploymentID
		room.State = models.StateClosed
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.E(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to close room", err)
	}

	if deploymentID != "" {
		if _, err := s.deployments.DeleteDeployment(ctx, deploymentID); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"room_id":       roomID,
				"deployment_id": deploymentID,
			}).Error("failed to delete deployment for closed room")
			return apperr.Wrap(apperr.CodeInternal, "failed to delete deployment", err)
		}
	}

	s.logger.WithField("room_id", roomID).Info("room closed")
	s.emitEvent(events.EventRoomClosed, room, "")
	return nil
}

// Heartbeat marks the room as alive so it stays within the listing
// freshness horizon.
func (s *Service) Heartbeat(ctx context.Context, roomID string) error {
	err := s.store.TouchRoom(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.E(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to refresh room", err)
	}
	return nil
}

// GetRoom returns a room by id.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.E(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to get room", err)
	}
	return room, nil
}
