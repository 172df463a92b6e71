// internal/handlers/api_server.go

// Package handlers exposes the lobby service over HTTP/JSON. Player
// endpoints authenticate with a user token; room-management endpoints
// require the game-server token minted for that room at provisioning time.
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/overtone-games/lobby/internal/auth"
	"github.com/overtone-games/lobby/internal/lobby"
)

// APIServer bundles the lobby core with the pieces handlers need.
type APIServer struct {
	Lobby  *lobby.Service
	Logger *logrus.Logger
}

// NewAPIServer constructs the handler dependencies.
func NewAPIServer(svc *lobby.Service, logger *logrus.Logger) *APIServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &APIServer{Lobby: svc, Logger: logger}
}

// authenticateUser resolves the player identity from the request token.
func authenticateUser(r *http.Request) (auth.UserClaims, bool) {
	token := requestToken(r)
	if token == "" {
		return auth.UserClaims{}, false
	}
	claims, err := auth.AuthenticateUser(token)
	if err != nil {
		return auth.UserClaims{}, false
	}
	return claims, true
}

// authenticateGameServer resolves the room a game-server token is scoped to.
func authenticateGameServer(r *http.Request) (string, bool) {
	token := requestToken(r)
	if token == "" {
		return "", false
	}
	roomID, err := auth.AuthenticateGameServer(token)
	if err != nil {
		return "", false
	}
	return roomID, true
}
