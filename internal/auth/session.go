// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TOKEN_EXPIRE_TIME_SEC indicates how many seconds until user JWT expiration (0 => never).
	TOKEN_EXPIRE_TIME_SEC int
)

// Role claim values. User tokens call the player-facing room endpoints;
// game-server tokens are scoped to exactly one room and may only call the
// room-management endpoints.
const (
	RoleUser       = "user"
	RoleGameServer = "game_server"
)

// gameServerTokenTTL bounds how long a provisioned server can keep managing
// its room record after boot.
const gameServerTokenTTL = 6 * time.Hour

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var and sets TOKEN_EXPIRE_TIME_SEC accordingly.
func parseTokenExpireTime() {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TOKEN_EXPIRE_TIME_SEC = 0
	} else {
		d, err := time.ParseDuration(duration)
		if err != nil {
			fmt.Printf("failed to parse token expire time: %v\n", err)
			os.Exit(1)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTokenExpireTime()
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	parseTokenExpireTime()
	return nil
}

// UserClaims is the identity carried by a player token.
type UserClaims struct {
	UserID   string
	UserName string
}

// CreateUserToken creates a signed JWT with "sub" = userID and the player's
// display name, expiring per TOKEN_EXPIRE_TIME.
func CreateUserToken(userID, userName string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": userName,
		"role": RoleUser,
	}

	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// CreateGameServerToken mints the credential handed to a provisioned game
// server. The token authorizes room management calls for roomID only.
func CreateGameServerToken(roomID string) (string, error) {
	claims := jwt.MapClaims{
		"role":    RoleGameServer,
		"room_id": roomID,
		"exp":     time.Now().Add(gameServerTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateUser verifies a player JWT and returns the identity claims.
func AuthenticateUser(tokenString string) (UserClaims, error) {
	claims, err := parseClaims(tokenString)
	if err != nil {
		return UserClaims{}, err
	}

	if role, _ := claims["role"].(string); role != RoleUser {
		return UserClaims{}, fmt.Errorf("token is not a user token")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return UserClaims{}, fmt.Errorf("missing sub in jwt")
	}
	userName, _ := claims["name"].(string)

	return UserClaims{UserID: userID, UserName: userName}, nil
}

// AuthenticateGameServer verifies a game-server JWT and returns the room id
// it is scoped to.
func AuthenticateGameServer(tokenString string) (string, error) {
	claims, err := parseClaims(tokenString)
	if err != nil {
		return "", err
	}

	if role, _ := claims["role"].(string); role != RoleGameServer {
		return "", fmt.Errorf("token is not a game server token")
	}

	roomID, ok := claims["room_id"].(string)
	if !ok || roomID == "" {
		return "", fmt.Errorf("missing room_id in jwt")
	}
	return roomID, nil
}

func parseClaims(tokenString string) (jwt.MapClaims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid jwt claims")
	}
	return claims, nil
}
