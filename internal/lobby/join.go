// internal/lobby/join.go
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

// JoinRoomParams is the validated input of the join operations.
type JoinRoomParams struct {
	UserID   string
	UserName string

	GameVersion string
	Password    string
}

// JoinRoomResult carries the joined room and its connection endpoint.
type JoinRoomResult struct {
	Room       *models.Room
	Connection models.RoomConnection
}

// JoinRoom admits the caller into the room with the given id. Admission is
// decided inside a single atomic update, so concurrent joins can never push
// a room past capacity.
func (s *Service) JoinRoom(ctx context.Context, roomID string, p JoinRoomParams) (*JoinRoomResult, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "room id is required")
	}
	if strings.TrimSpace(p.GameVersion) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "game version is required")
	}

	room, err := s.store.UpdateRoom(ctx, roomID, s.admit(p, true))
	if err != nil {
		return nil, joinStoreError(err)
	}
	return s.joined(room, p)
}

// JoinRoomWithCode admits the caller into the open room matching the short
// code within their game version.
func (s *Service) JoinRoomWithCode(ctx context.Context, shortCode string, p JoinRoomParams) (*JoinRoomResult, error) {
	code := strings.ToUpper(strings.TrimSpace(shortCode))
	if len(code) != shortCodeLength {
		return nil, apperr.E(apperr.CodeInvalidArgument, "invalid room code")
	}
	if strings.TrimSpace(p.GameVersion) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "game version is required")
	}

	found, err := s.store.FindRoomByShortCode(ctx, p.GameVersion, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.E(apperr.CodeNotFound, "room not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to find room", err)
	}

	room, err := s.store.UpdateRoom(ctx, found.ID, s.admit(p, true))
	if err != nil {
		return nil, joinStoreError(err)
	}
	return s.joined(room, p)
}

// quickMatchAttempts bounds how many candidate rooms a quick match scans
// before reporting that nothing is joinable.
const quickMatchAttempts = 10

// QuickMatch admits the caller into any joinable public room of their game
// version. Candidates are retried in listing order: a room that fills up
// between the listing and the admission attempt is skipped, not an error.
func (s *Service) QuickMatch(ctx context.Context, p JoinRoomParams) (*JoinRoomResult, error) {
	if strings.TrimSpace(p.GameVersion) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "game version is required")
	}

	candidates, err := s.store.ListRooms(ctx, storage.ListFilter{
		GameVersion: p.GameVersion,
		State:       models.StateOpen,
		Visibility:  models.VisibilityPublic,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list rooms", err)
	}

	attempts := 0
	for _, candidate := range candidates {
		if candidate.CurrentPlayers >= candidate.MaxPlayers {
			continue
		}
		if attempts++; attempts > quickMatchAttempts {
			break
		}
		room, err := s.store.UpdateRoom(ctx, candidate.ID, s.admit(p, false))
		if err != nil {
			// Lost the race for this room; try the next one.
			if apperr.IsCode(err, apperr.CodeAborted) || errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, joinStoreError(err)
		}
		return s.joined(room, p)
	}
	return nil, apperr.E(apperr.CodeNotFound, "no joinable room found")
}

// admit builds the mutator that decides admission. It runs inside the
// store's atomic update, so reads and the player count bump are a single
// step. withPassword selects whether private rooms are entered via password
// or skipped outright (quick match never enters private rooms).
func (s *Service) admit(p JoinRoomParams, withPassword bool) func(*models.Room) error {
	return func(room *models.Room) error {
		if room.State != models.StateOpen {
			return apperr.E(apperr.CodeAborted, "room is not open")
		}
		if room.GameVersion != p.GameVersion {
			return apperr.E(apperr.CodeAborted, "game version mismatch")
		}
		if room.Visibility == models.VisibilityPrivate {
			if !withPassword {
				return apperr.E(apperr.CodeAborted, "room is private")
			}
			ok, err := s.verifyPassword(room.ID, p.Password, room.PasswordHash)
			if err != nil {
				return apperr.Wrap(apperr.CodeInternal, "failed to verify room password", err)
			}
			if !ok {
				return apperr.E(apperr.CodePermissionDenied, "wrong room password")
			}
		}
		if room.CurrentPlayers >= room.MaxPlayers {
			return apperr.E(apperr.CodeAborted, "room is full")
		}

		// The first player to enter owns the room.
		if room.OwnerID == "" {
			room.OwnerID = p.UserID
		}
		room.CurrentPlayers++
		return nil
	}
}

// joined finishes a successful admission: side effects and the result.
func (s *Service) joined(room *models.Room, p JoinRoomParams) (*JoinRoomResult, error) {
	if room.Connection == nil {
		// A room record without an endpoint should be impossible; treat
		// it as corruption rather than handing out an empty address.
		s.logger.WithField("room_id", room.ID).Error("room record has no connection endpoint")
		return nil, apperr.E(apperr.CodeInternal, "room has no connection")
	}

	s.logger.WithFields(logrus.Fields{
		"room_id":    room.ID,
		"short_code": room.ShortCode,
		"user":       p.UserName,
		"players":    room.CurrentPlayers,
	}).Info("player joined room")

	s.emitEvent(events.EventRoomJoined, room, p.UserID)
	if s.notifier != nil {
		go s.notifier.RoomEntered(context.Background(), p.UserName, room.GameVersion, room.Name, room.ShortCode)
	}
	return &JoinRoomResult{Room: room, Connection: *room.Connection}, nil
}

// joinStoreError maps an UpdateRoom failure. Mutator errors already carry a
// code; everything else is a storage fault.
func joinStoreError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.E(apperr.CodeNotFound, "room not found")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(apperr.CodeInternal, "failed to join room", err)
}
