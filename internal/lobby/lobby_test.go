// internal/lobby/lobby_test.go
package lobby

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/overtone-games/lobby/internal/auth"
	"github.com/overtone-games/lobby/internal/edgegap"
	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage/memory"
)

// fakeDeployClient scripts the provider responses so tests can drive the
// poll loop through any status sequence.
type fakeDeployClient struct {
	mu sync.Mutex

	createErr error
	statusErr error

	// statuses is consumed one per GetDeploymentStatus call; the last entry
	// repeats once the script runs out.
	statuses []edgegap.Status
	ports    map[string]edgegap.PortMapping

	// onStatus, when set, runs on every status poll.
	onStatus func()

	creates     int
	statusCalls int
	deleted     []string
}

func newFakeDeployClient(statuses ...edgegap.Status) *fakeDeployClient {
	return &fakeDeployClient{
		statuses: statuses,
		ports: map[string]edgegap.PortMapping{
			"Game": {External: 7777, Internal: 7777, Protocol: "UDP"},
		},
	}
}

func (f *fakeDeployClient) CreateDeployment(ctx context.Context, req *edgegap.CreateDeploymentRequest) (*edgegap.CreateDeploymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates++
	return &edgegap.CreateDeploymentResponse{
		RequestID:  "req-" + uuid.NewString()[:8],
		RequestDNS: "deploy.test.edgegap.net",
	}, nil
}

func (f *fakeDeployClient) GetDeploymentStatus(ctx context.Context, requestID string) (*edgegap.DeploymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onStatus != nil {
		f.onStatus()
	}
	if f.statusErr != nil {
		return nil, f.statusErr
	}

	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++

	status := &edgegap.DeploymentStatus{
		RequestID:     requestID,
		FQDN:          "deploy.test.edgegap.net",
		CurrentStatus: f.statuses[idx],
	}
	if status.CurrentStatus == edgegap.StatusReady {
		status.Running = true
		status.Ports = f.ports
	}
	return status, nil
}

func (f *fakeDeployClient) DeleteDeployment(ctx context.Context, requestID string) (*edgegap.DeleteDeploymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, requestID)
	return &edgegap.DeleteDeploymentResponse{Message: "deleted"}, nil
}

func (f *fakeDeployClient) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupService wires the lobby core against the in-memory store and a
// scripted provider, with a fast poll loop.
func setupService(t *testing.T, client edgegap.Client) (*Service, *memory.Store) {
	t.Helper()
	auth.Init()

	store := memory.NewStore()
	svc := NewService(store, client, testLogger(), Config{
		AppName:      "overtone",
		AppVersion:   "production",
		PollInterval: time.Millisecond,
		PollAttempts: 10,
	})
	return svc, store
}

// seedRoom puts an already-provisioned room into the store.
func seedRoom(t *testing.T, store *memory.Store, room *models.Room) *models.Room {
	t.Helper()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.ShortCode == "" {
		room.ShortCode = "AAAAAA"
	}
	if room.GameVersion == "" {
		room.GameVersion = "1.0.0"
	}
	if room.Visibility == "" {
		room.Visibility = models.VisibilityPublic
	}
	if room.MaxPlayers == 0 {
		room.MaxPlayers = 6
	}
	if room.State == "" {
		room.State = models.StateOpen
	}
	if room.Connection == nil {
		room.Connection = &models.RoomConnection{Host: "deploy.test.edgegap.net", Port: 7777}
	}
	if room.DeploymentID == "" {
		room.DeploymentID = "req-seeded"
	}
	if err := store.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}
	return room
}
