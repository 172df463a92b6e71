// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/overtone-games/lobby/internal/auth"
	"github.com/overtone-games/lobby/internal/edgegap"
	"github.com/overtone-games/lobby/internal/lobby"
	"github.com/overtone-games/lobby/internal/models"
	"github.com/overtone-games/lobby/internal/storage/memory"
)

// stubDeployClient always becomes ready on the first poll.
type stubDeployClient struct {
	mu      sync.Mutex
	deleted []string
}

func (s *stubDeployClient) CreateDeployment(ctx context.Context, req *edgegap.CreateDeploymentRequest) (*edgegap.CreateDeploymentResponse, error) {
	return &edgegap.CreateDeploymentResponse{RequestID: "req-1"}, nil
}

func (s *stubDeployClient) GetDeploymentStatus(ctx context.Context, requestID string) (*edgegap.DeploymentStatus, error) {
	return &edgegap.DeploymentStatus{
		RequestID:     requestID,
		FQDN:          "abc.deploy.test",
		CurrentStatus: edgegap.StatusReady,
		Running:       true,
		Ports: map[string]edgegap.PortMapping{
			"Game": {External: 31000, Internal: 7777, Protocol: "UDP"},
		},
	}, nil
}

func (s *stubDeployClient) DeleteDeployment(ctx context.Context, requestID string) (*edgegap.DeleteDeploymentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, requestID)
	return &edgegap.DeleteDeploymentResponse{Message: "deleted"}, nil
}

func newTestAPIServer(t *testing.T) (*APIServer, *memory.Store) {
	t.Helper()
	auth.Init() // ephemeral keys, no key files needed

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	svc := lobby.NewService(store, &stubDeployClient{}, logger, lobby.Config{
		AppName:      "overtone",
		AppVersion:   "production",
		PollInterval: time.Millisecond,
	})
	return NewAPIServer(svc, logger), store
}

func userToken(t *testing.T, userID, userName string) string {
	t.Helper()
	token, err := auth.CreateUserToken(userID, userName)
	if err != nil {
		t.Fatalf("CreateUserToken: %v", err)
	}
	return token
}

// TestCreateRoomEndpoint drives /rooms/create end to end against the
// in-memory store and a stub provider.
func TestCreateRoomEndpoint(t *testing.T) {
	api, store := newTestAPIServer(t)

	body := `{"name":"Friday Night","game_version":"1.0.0"}`
	req := httptest.NewRequest("POST", "/rooms/create", bytes.NewBufferString(body))
	req.Header.Set("Cookie", "auth_token="+userToken(t, "user-1", "PlayerOne"))
	w := httptest.NewRecorder()

	CreateRoomHandler(api).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp roomResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Room.ID == "" {
		t.Fatal("room has no ID")
	}
	if resp.Connection.Host != "abc.deploy.test" || resp.Connection.Port != 31000 {
		t.Fatalf("connection = %+v", resp.Connection)
	}

	if _, err := store.GetRoom(context.Background(), resp.Room.ID); err != nil {
		t.Fatalf("room not persisted: %v", err)
	}
}

func TestCreateRoomRequiresToken(t *testing.T) {
	api, _ := newTestAPIServer(t)

	req := httptest.NewRequest("POST", "/rooms/create", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	CreateRoomHandler(api).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateRoomInvalidPayloadStatus(t *testing.T) {
	api, _ := newTestAPIServer(t)

	body := `{"name":"","game_version":"1.0.0"}`
	req := httptest.NewRequest("POST", "/rooms/create", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+userToken(t, "user-1", "PlayerOne"))
	w := httptest.NewRecorder()

	CreateRoomHandler(api).ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Code != "INVALID_ARGUMENT" {
		t.Fatalf("error code = %q", resp.Code)
	}
}

func seedOpenRoom(t *testing.T, store *memory.Store, id, code string) *models.Room {
	t.Helper()
	room := &models.Room{
		ID:          id,
		ShortCode:   code,
		GameVersion: "1.0.0",
		Name:        "Seeded",
		Visibility:  models.VisibilityPublic,
		MaxPlayers:  6,
		State:       models.StateOpen,
		Connection:  &models.RoomConnection{Host: "abc.deploy.test", Port: 31000},
	}
	if err := store.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func TestJoinRoomEndpoint(t *testing.T) {
	api, store := newTestAPIServer(t)
	room := seedOpenRoom(t, store, "room-1", "JOIN01")

	body := `{"room_id":"room-1","game_version":"1.0.0"}`
	req := httptest.NewRequest("POST", "/rooms/join", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+userToken(t, "user-1", "PlayerOne"))
	w := httptest.NewRecorder()

	JoinRoomHandler(api).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp roomResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Room.CurrentPlayers != 1 {
		t.Fatalf("players = %d, want 1", resp.Room.CurrentPlayers)
	}
	if resp.Room.ID != room.ID {
		t.Fatalf("joined %q, want %q", resp.Room.ID, room.ID)
	}
}

func TestJoinFullRoomConflict(t *testing.T) {
	api, store := newTestAPIServer(t)
	room := seedOpenRoom(t, store, "room-1", "FULL01")
	if _, err := store.UpdateRoom(context.Background(), room.ID, func(r *models.Room) error {
		r.CurrentPlayers = r.MaxPlayers
		return nil
	}); err != nil {
		t.Fatalf("fill room: %v", err)
	}

	body := `{"room_id":"room-1","game_version":"1.0.0"}`
	req := httptest.NewRequest("POST", "/rooms/join", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+userToken(t, "late", "Latecomer"))
	w := httptest.NewRecorder()

	JoinRoomHandler(api).ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJoinRoomWithCodeEndpoint(t *testing.T) {
	api, store := newTestAPIServer(t)
	seedOpenRoom(t, store, "room-1", "QX42ZA")

	body := `{"short_code":"qx42za","game_version":"1.0.0"}`
	req := httptest.NewRequest("POST", "/rooms/join/code", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+userToken(t, "user-1", "PlayerOne"))
	w := httptest.NewRecorder()

	JoinRoomWithCodeHandler(api).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQuickMatchEndpoint(t *testing.T) {
	api, store := newTestAPIServer(t)
	seedOpenRoom(t, store, "room-1", "QUICK1")

	body := `{"game_version":"1.0.0"}`
	req := httptest.NewRequest("POST", "/rooms/quickmatch", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+userToken(t, "user-1", "PlayerOne"))
	w := httptest.NewRecorder()

	QuickMatchHandler(api).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListRoomsEndpoint(t *testing.T) {
	api, store := newTestAPIServer(t)
	seedOpenRoom(t, store, "room-1", "LIST01")

	req := httptest.NewRequest("GET", "/rooms/list?game_version=1.0.0", nil)
	req.Header.Set("Authorization", "Bearer "+userToken(t, "user-1", "PlayerOne"))
	w := httptest.NewRecorder()

	ListRoomsHandler(api).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Rooms []*models.Room `json:"rooms"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(resp.Rooms))
	}
	if resp.Rooms[0].ID != "room-1" {
		t.Fatalf("listed %q", resp.Rooms[0].ID)
	}
}
