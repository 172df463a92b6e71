// internal/handlers/game_server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/overtone-games/lobby/internal/models"
)

// Room-management endpoints. Every handler here requires the game-server
// token minted at provisioning time; the token pins the room id, so a server
// can only ever manage its own room.

type updateStateRequest struct {
	State string `json:"state"`
}

// UpdateRoomStateHandler moves the room through its lifecycle.
func UpdateRoomStateHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := authenticateGameServer(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var req updateStateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad state payload", http.StatusBadRequest)
			return
		}

		room, err := s.Lobby.UpdateRoomState(r.Context(), roomID, models.RoomState(req.State))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"room": room})
	}
}

type changeOwnerRequest struct {
	OwnerID string `json:"owner_id"`
}

// ChangeRoomOwnerHandler reassigns the room owner.
func ChangeRoomOwnerHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := authenticateGameServer(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var req changeOwnerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad owner payload", http.StatusBadRequest)
			return
		}

		room, err := s.Lobby.ChangeRoomOwner(r.Context(), roomID, req.OwnerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"room": room})
	}
}

// CloseRoomHandler ends the room and tears down its deployment.
func CloseRoomHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := authenticateGameServer(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := s.Lobby.CloseRoom(r.Context(), roomID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HeartbeatHandler keeps the room within the listing freshness horizon.
func HeartbeatHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := authenticateGameServer(r)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := s.Lobby.Heartbeat(r.Context(), roomID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
