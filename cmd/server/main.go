// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/overtone-games/lobby/internal/auth"
	"github.com/overtone-games/lobby/internal/edgegap"
	"github.com/overtone-games/lobby/internal/events"
	"github.com/overtone-games/lobby/internal/handlers"
	"github.com/overtone-games/lobby/internal/lobby"
	"github.com/overtone-games/lobby/internal/middleware"
	"github.com/overtone-games/lobby/internal/notify"
	"github.com/overtone-games/lobby/internal/storage"
	"github.com/overtone-games/lobby/internal/storage/memory"
	"github.com/overtone-games/lobby/internal/storage/postgres"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if privPath := os.Getenv("JWT_PRIVATE_KEY_PATH"); privPath != "" {
		if err := auth.InitFromPath(privPath, os.Getenv("JWT_PUBLIC_KEY_PATH")); err != nil {
			logger.Fatalf("failed to load signing keys: %v", err)
		}
	} else {
		auth.Init()
	}

	store, closeStore := connectStore(logger)
	defer closeStore()

	apiKey := os.Getenv("EDGEGAP_API_KEY")
	if apiKey == "" {
		logger.Fatal("EDGEGAP_API_KEY is required")
	}
	deployments := edgegap.NewHTTPClient(getEnv("EDGEGAP_API_URL", edgegap.DefaultBaseURL), apiKey, logger)

	svc := lobby.NewService(store, deployments, logger, lobby.Config{
		AppName:         os.Getenv("EDGEGAP_APP_NAME"),
		AppVersion:      os.Getenv("EDGEGAP_APP_VERSION"),
		GamePortName:    os.Getenv("EDGEGAP_GAME_PORT_NAME"),
		MaxPlayers:      getEnvInt("ROOM_MAX_PLAYERS", 0),
		DeployCountries: splitList(os.Getenv("EDGEGAP_DEPLOY_COUNTRIES")),
		FallbackIP:      os.Getenv("EDGEGAP_FALLBACK_IP"),
		PollInterval:    time.Duration(getEnvInt("DEPLOY_POLL_INTERVAL_MS", 0)) * time.Millisecond,
		PollAttempts:    getEnvInt("DEPLOY_POLL_ATTEMPTS", 0),
	})

	if os.Getenv("REDIS_ADDR") != "" {
		rdb, err := events.Connect()
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		svc.SetEventPublisher(events.NewPublisher(rdb, ""))
	}
	if webhookURL := os.Getenv("MATCH_WEBHOOK_URL"); webhookURL != "" {
		svc.SetNotifier(notify.NewWebhook(webhookURL, os.Getenv("MATCH_WEBHOOK_TARGET_VERSION"), logger))
	}

	api := handlers.NewAPIServer(svc, logger)
	logged := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()

	// auth endpoints
	mux.Handle("/auth/guest", logged(http.HandlerFunc(handlers.GuestLoginHandler)))

	// room endpoints (player token)
	mux.Handle("/rooms/create", logged(handlers.CreateRoomHandler(api)))
	mux.Handle("/rooms/join", logged(handlers.JoinRoomHandler(api)))
	mux.Handle("/rooms/join/code", logged(handlers.JoinRoomWithCodeHandler(api)))
	mux.Handle("/rooms/quickmatch", logged(handlers.QuickMatchHandler(api)))
	mux.Handle("/rooms/list", logged(handlers.ListRoomsHandler(api)))

	// room management endpoints (game-server token)
	mux.Handle("/room/state", logged(handlers.UpdateRoomStateHandler(api)))
	mux.Handle("/room/owner", logged(handlers.ChangeRoomOwnerHandler(api)))
	mux.Handle("/room/close", logged(handlers.CloseRoomHandler(api)))
	mux.Handle("/room/heartbeat", logged(handlers.HeartbeatHandler(api)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
		// Room creation holds the request open for the whole status poll
		// loop, so the write timeout has to outlast the poll budget.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
	}

	go func() {
		logger.Infof("Running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// connectStore picks postgres when PG_HOST is set, otherwise the in-memory
// store for DB-less runs.
func connectStore(logger *logrus.Logger) (storage.RoomStore, func()) {
	host := os.Getenv("PG_HOST")
	if host == "" {
		logger.Warn("PG_HOST not set, using in-memory room store")
		return memory.NewStore(), func() {}
	}

	connString := "postgres://" + getEnv("PG_USER", "postgres") + ":" + os.Getenv("PG_PASSWORD") +
		"@" + host + ":" + getEnv("PG_PORT", "5432") + "/" + getEnv("PG_DATABASE", "lobby")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := postgres.Connect(ctx, connString)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	return store, store.Close
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
