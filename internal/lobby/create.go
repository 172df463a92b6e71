// internal/lobby/create.go
package lobby

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/overtone-games/lobby/internal/apperr"
	"github.com/overtone-games/lobby/internal/edgegap"
	"github.com/overtone-games/lobby/internal/events"
	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage"
)

// maxRoomNameLength is the caller-facing cap on room names.
const maxRoomNameLength = 32

// Environment variable names injected into the provisioned game server.
const (
	envGameServerToken = "OVERTONE_SERVER_AUTH_TOKEN"
	envRoomID          = "OVERTONE_ROOM_ID"
	envShortRoomID     = "OVERTONE_SHORT_ROOM_ID"
)

// deploymentTagCustomRoom marks player-created rooms at the provider.
const deploymentTagCustomRoom = "CustomRoom"

// compensationTimeout bounds the deployment delete issued on a failed
// creation attempt. It uses its own budget because the request context may
// already be cancelled.
const compensationTimeout = 30 * time.Second

// CreateRoomParams is the validated input of CreateRoom. Identity is
// resolved upstream by the transport layer.
type CreateRoomParams struct {
	UserID   string
	UserName string

	RoomName    string
	GameVersion string
	Visibility  models.RoomVisibility
	Mode        models.GameMode
	Map         models.GameMap

	// Password is hashed and stored only when Visibility is private.
	Password string

	// RequestIP is the caller's network origin, used as a geo-affinity
	// hint for provider placement.
	RequestIP string
}

// CreateRoomResult carries the persisted room and its connection endpoint.
type CreateRoomResult struct {
	Room       *models.Room
	Connection models.RoomConnection
}

// CreateRoom provisions a dedicated game server and persists the room record
// once the server is reachable. On any non-success path the deployment is
// deleted before the error is returned, so no instance is left running
// without a room record pointing at it.
func (s *Service) CreateRoom(ctx context.Context, p CreateRoomParams) (*CreateRoomResult, error) {
	name := strings.TrimSpace(p.RoomName)
	if name == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "room name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxRoomNameLength {
		return nil, apperr.E(apperr.CodeInvalidArgument, "room name is too long")
	}
	if strings.TrimSpace(p.GameVersion) == "" {
		return nil, apperr.E(apperr.CodeInvalidArgument, "game version is required")
	}

	visibility := p.Visibility
	if visibility == "" || visibility == models.VisibilityUnspecified {
		visibility = models.VisibilityPublic
	}
	mode := p.Mode
	if mode == "" || mode == models.ModeUnspecified {
		mode = models.ModeDefault
	}
	gameMap := p.Map
	if gameMap == "" || gameMap == models.MapUnspecified {
		gameMap = models.MapDefault
	}

	roomID := s.newRoomID()
	shortCode, err := s.reserveShortCode(ctx, p.GameVersion)
	if err != nil {
		return nil, err
	}

	serverToken, err := s.gameServerToken(roomID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to mint game server credential", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"room_id":    roomID,
		"short_code": shortCode,
		"user":       p.UserName,
		"ip":         p.RequestIP,
	})
	log.Debug("creating room")

	created, err := s.deployments.CreateDeployment(ctx, &edgegap.CreateDeploymentRequest{
		AppName:     s.cfg.AppName,
		VersionName: s.cfg.AppVersion,
		IPList:      []string{s.placementIP(p.RequestIP)},
		EnvVars: []edgegap.DeployEnvironment{
			{Key: envGameServerToken, Value: serverToken, IsHidden: true},
			{Key: envRoomID, Value: roomID},
			{Key: envShortRoomID, Value: shortCode},
		},
		Filters: s.geoFilters(),
		Tags:    []string{deploymentTagCustomRoom},
	})
	if err != nil {
		return nil, s.mapDeploymentError(err, "failed to create deployment")
	}
	log = log.WithField("deployment_id", created.RequestID)
	log.WithFields(logrus.Fields{
		"city": created.City, "country": created.Country, "continent": created.Continent,
	}).Debug("deployment requested")

	// From here on a deployment exists. Whatever path exits this function
	// without persisting the room must tear the deployment down; the
	// delete runs on a cancel-immune context so a caller abort cannot
	// strand the instance.
	persisted := false
	defer func() {
		if persisted {
			return
		}
		s.compensateDeployment(ctx, created.RequestID)
	}()

	status, err := s.waitForDeployment(ctx, created.RequestID)
	if err != nil {
		return nil, err
	}

	gamePort, ok := status.Ports[s.cfg.GamePortName]
	if !ok {
		log.WithField("port_name", s.cfg.GamePortName).Error("ready deployment is missing the game port")
		return nil, apperr.E(apperr.CodeInternal, "game port not found")
	}
	connection := models.RoomConnection{Host: status.FQDN, Port: gamePort.External}

	room := &models.Room{
		ID:             roomID,
		ShortCode:      shortCode,
		GameVersion:    p.GameVersion,
		Name:           name,
		Visibility:     visibility,
		Mode:           mode,
		Map:            gameMap,
		MaxPlayers:     s.cfg.MaxPlayers,
		CurrentPlayers: 0,
		DeploymentID:   created.RequestID,
		Connection:     &connection,
		State:          models.StateOpen,
	}
	if visibility == models.VisibilityPrivate {
		hash, err := s.hashPassword(roomID, p.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to hash room password", err)
		}
		room.PasswordHash = hash
	}

	if err := s.store.CreateRoom(ctx, room); err != nil {
		log.WithError(err).Error("failed to save room record")
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create room", err)
	}
	persisted = true

	log.Info("room created")
	s.emitEvent(events.EventRoomCreated, room, p.UserID)
	if s.notifier != nil {
		go s.notifier.RoomCreated(context.Background(), p.UserName, room.GameVersion, room.ShortCode)
	}

	return &CreateRoomResult{Room: room, Connection: connection}, nil
}

// reserveShortCode picks a code not currently used by an open room of the
// same game version. Codes are low-entropy, so collisions are expected and
// retried a few times before giving up.
func (s *Service) reserveShortCode(ctx context.Context, gameVersion string) (string, error) {
	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		code := s.newShortCode()
		_, err := s.store.FindRoomByShortCode(ctx, gameVersion, code)
		if errors.Is(err, storage.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", apperr.Wrap(apperr.CodeInternal, "failed to check room code", err)
		}
	}
	return "", apperr.E(apperr.CodeInternal, "could not allocate a room code")
}

// waitForDeployment polls until the deployment is reachable, the provider
// reports a terminal state, the poll budget runs out, or the caller aborts.
func (s *Service) waitForDeployment(ctx context.Context, deploymentID string) (*edgegap.DeploymentStatus, error) {
	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		status, err := s.deployments.GetDeploymentStatus(ctx, deploymentID)
		if err != nil {
			return nil, s.mapDeploymentError(err, "failed to get deployment status")
		}

		s.logger.WithFields(logrus.Fields{
			"deployment_id": deploymentID,
			"status":        status.CurrentStatus.String(),
		}).Debug("deployment status")

		if status.CurrentStatus == edgegap.StatusReady {
			return status, nil
		}
		if status.CurrentStatus.Terminal() {
			s.logger.WithFields(logrus.Fields{
				"deployment_id": deploymentID,
				"status":        status.CurrentStatus.String(),
				"detail":        status.ErrorDetail,
			}).Error("deployment failed before becoming ready")
			return nil, apperr.E(apperr.CodeInternal, "deployment failed")
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.CodeCancelled, "room creation cancelled", ctx.Err())
		case <-time.After(s.cfg.PollInterval):
		}
	}
	return nil, apperr.E(apperr.CodeDeadlineExceeded, "deployment was not ready in time")
}

// compensateDeployment deletes a deployment left behind by a failed creation
// attempt. Its own failure is logged, never surfaced: the caller already has
// an answer, and a leaked deployment is an operational concern.
func (s *Service) compensateDeployment(ctx context.Context, deploymentID string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if _, err := s.deployments.DeleteDeployment(cleanupCtx, deploymentID); err != nil {
		s.logger.WithError(err).WithField("deployment_id", deploymentID).
			Error("failed to delete deployment after unsuccessful room creation")
		return
	}
	s.logger.WithField("deployment_id", deploymentID).Info("deployment deleted after unsuccessful room creation")
}

// mapDeploymentError translates a provider call failure into the caller
// taxonomy: caller abort, provider rejection, or transport failure.
func (s *Service) mapDeploymentError(err error, message string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeCancelled, "room creation cancelled", err)
	}
	var apiErr *edgegap.APIError
	if errors.As(err, &apiErr) {
		s.logger.WithError(apiErr).Error(message)
		return apperr.Wrap(apperr.CodeInternal, message, err)
	}
	s.logger.WithError(err).Error(message)
	return apperr.Wrap(apperr.CodeUnavailable, "deployment provider unavailable", err)
}

// placementIP substitutes the configured egress IP for loopback origins.
func (s *Service) placementIP(requestIP string) string {
	if requestIP == "" || requestIP == "127.0.0.1" || requestIP == "::1" {
		if s.cfg.FallbackIP != "" {
			return s.cfg.FallbackIP
		}
	}
	return requestIP
}

// geoFilters builds the provider placement filter from config.
func (s *Service) geoFilters() []edgegap.DeploymentFilter {
	if len(s.cfg.DeployCountries) == 0 {
		return nil
	}
	return []edgegap.DeploymentFilter{{
		Field:      edgegap.FilterFieldCountry,
		Values:     s.cfg.DeployCountries,
		FilterType: edgegap.FilterTypeAny,
	}}
}
