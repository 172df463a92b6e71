// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/overtone-games/lobby/internal/auth"
)

type guestLoginRequest struct {
	Name string `json:"name"`
}

type guestLoginResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// GuestLoginHandler issues a player token for an anonymous session. There is
// no account store; the identity lives entirely in the token.
//
// Request payload:
//
//	{
//	  "name": "PlayerOne"
//	}
//
// Response payload:
//
//	{
//	  "user_id": "{uuid}",
//	  "name": "PlayerOne",
//	  "token": "{jwt}"
//	}
//
// The token is also sent via the Cookie header.
func GuestLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req guestLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Guest"
	}

	userID := uuid.NewString()
	token, err := auth.CreateUserToken(userID, name)
	if err != nil {
		http.Error(w, "failed to create token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, guestLoginResponse{UserID: userID, Name: name, Token: token})
}
