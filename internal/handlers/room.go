// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/overtone-games/lobby/internal/lobby"
	"github.com/overtone-games/lobby/internal/models"
)

type createRoomRequest struct {
	Name        string `json:"name"`
	GameVersion string `json:"game_version"`
	Visibility  string `json:"visibility"`
	Mode        string `json:"mode"`
	Map         string `json:"map"`
	Password    string `json:"password"`
}

type roomResponse struct {
	Room       *models.Room          `json:"room"`
	Connection models.RoomConnection `json:"connection"`
}

// CreateRoomHandler provisions a game server and returns the persisted room
// with its connection endpoint. The call blocks until the server is
// reachable or the poll budget runs out.
func CreateRoomHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authenticateUser(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad room request payload", http.StatusBadRequest)
			return
		}

		result, err := s.Lobby.CreateRoom(r.Context(), lobby.CreateRoomParams{
			UserID:      claims.UserID,
			UserName:    claims.UserName,
			RoomName:    req.Name,
			GameVersion: req.GameVersion,
			Visibility:  models.RoomVisibility(req.Visibility),
			Mode:        models.GameMode(req.Mode),
			Map:         models.GameMap(req.Map),
			Password:    req.Password,
			RequestIP:   requestIP(r),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, roomResponse{Room: result.Room, Connection: result.Connection})
	}
}

type joinRoomRequest struct {
	RoomID      string `json:"room_id"`
	ShortCode   string `json:"short_code"`
	GameVersion string `json:"game_version"`
	Password    string `json:"password"`
}

// JoinRoomHandler admits the caller into a room by id.
func JoinRoomHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authenticateUser(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad join request payload", http.StatusBadRequest)
			return
		}

		result, err := s.Lobby.JoinRoom(r.Context(), req.RoomID, lobby.JoinRoomParams{
			UserID:      claims.UserID,
			UserName:    claims.UserName,
			GameVersion: req.GameVersion,
			Password:    req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roomResponse{Room: result.Room, Connection: result.Connection})
	}
}

// JoinRoomWithCodeHandler admits the caller into the open room matching the
// short code.
func JoinRoomWithCodeHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authenticateUser(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad join request payload", http.StatusBadRequest)
			return
		}

		result, err := s.Lobby.JoinRoomWithCode(r.Context(), req.ShortCode, lobby.JoinRoomParams{
			UserID:      claims.UserID,
			UserName:    claims.UserName,
			GameVersion: req.GameVersion,
			Password:    req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roomResponse{Room: result.Room, Connection: result.Connection})
	}
}

type quickMatchRequest struct {
	GameVersion string `json:"game_version"`
}

// QuickMatchHandler admits the caller into any joinable public room.
func QuickMatchHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authenticateUser(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var req quickMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad quick match payload", http.StatusBadRequest)
			return
		}

		result, err := s.Lobby.QuickMatch(r.Context(), lobby.JoinRoomParams{
			UserID:      claims.UserID,
			UserName:    claims.UserName,
			GameVersion: req.GameVersion,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roomResponse{Room: result.Room, Connection: result.Connection})
	}
}

// ListRoomsHandler returns the open public rooms for a game version.
func ListRoomsHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authenticateUser(r); !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		query := r.URL.Query()
		rooms, err := s.Lobby.ListRooms(r.Context(), lobby.ListRoomsParams{
			GameVersion: query.Get("game_version"),
			Mode:        models.GameMode(query.Get("mode")),
			Map:         models.GameMap(query.Get("map")),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
	}
}
