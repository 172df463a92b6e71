// internal/lobby/service.go

// Package lobby is the room lifecycle core: it provisions a dedicated game
// server per room, persists the room record once the server is reachable,
// and mediates joins against that record.
package lobby

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/overtone-games/lobby/internal/auth"
	"github.com/overtone-games/lobby/internal/edgegap"
	"github.com/overtone-games/lobby/internal/events"
	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage"
)

// Notifier announces room activity to an external channel. Implementations
// must be safe for concurrent use; failures are theirs to log.
type Notifier interface {
	RoomCreated(ctx context.Context, userName, gameVersion, shortCode string)
	RoomEntered(ctx context.Context, userName, gameVersion, roomName, shortCode string)
}

// EventPublisher queues room lifecycle records for the analytics worker.
type EventPublisher interface {
	Publish(ctx context.Context, record events.RoomEventRecord) error
}

// Config holds the per-deployment knobs of the lobby service.
type Config struct {
	// AppName and AppVersion identify the game-server application at the
	// provisioning provider.
	AppName    string
	AppVersion string

	// GamePortName is the named port the game server listens on.
	GamePortName string

	// MaxPlayers is fixed at room creation.
	MaxPlayers int

	// DeployCountries geo-filters provider placement.
	DeployCountries []string

	// FallbackIP replaces loopback request origins so local clients still
	// get a sensible geo-affinity hint.
	FallbackIP string

	// PollInterval and PollAttempts bound the deployment status poll loop.
	PollInterval time.Duration
	PollAttempts int
}

func (c *Config) applyDefaults() {
	if c.GamePortName == "" {
		c.GamePortName = "Game"
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 6
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = 50
	}
}

// shortCodeAttempts bounds regeneration when a candidate code collides with
// a currently open room.
const shortCodeAttempts = 5

// Service orchestrates room provisioning and joining.
type Service struct {
	store       storage.RoomStore
	deployments edgegap.Client
	notifier    Notifier
	events      EventPublisher
	logger      *logrus.Logger
	cfg         Config

	// Injected so tests can pin ids, codes and credentials.
	newRoomID       func() string
	newShortCode    func() string
	gameServerToken func(roomID string) (string, error)
	hashPassword    func(roomID, password string) (string, error)
	verifyPassword  func(roomID, password, encodedHash string) (bool, error)
}

// NewService wires the lobby core. store and deployments are required.
func NewService(store storage.RoomStore, deployments edgegap.Client, logger *logrus.Logger, cfg Config) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	cfg.applyDefaults()

	return &Service{
		store:           store,
		deployments:     deployments,
		logger:          logger,
		cfg:             cfg,
		newRoomID:       uuid.NewString,
		newShortCode:    NewShortCodeGenerator(rand.NewSource(time.Now().UnixNano())),
		gameServerToken: auth.CreateGameServerToken,
		hashPassword:    auth.HashRoomPassword,
		verifyPassword:  auth.VerifyRoomPassword,
	}
}

// SetNotifier attaches an optional match notifier.
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetEventPublisher attaches an optional lifecycle event publisher.
func (s *Service) SetEventPublisher(p EventPublisher) { s.events = p }

// emitEvent queues a lifecycle record without blocking the request path.
func (s *Service) emitEvent(event string, room *models.Room, actorID string) {
	if s.events == nil {
		return
	}
	record := events.RoomEventRecord{
		RoomID:      room.ID,
		Event:       event,
		GameVersion: room.GameVersion,
		ShortCode:   room.ShortCode,
		ActorID:     actorID,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, record); err != nil {
			s.logger.WithError(err).WithField("room_id", record.RoomID).Warn("failed to publish room event")
		}
	}()
}
