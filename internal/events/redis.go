// internal/events/redis.go

// Package events publishes room lifecycle records to a Redis queue consumed
// by the out-of-process analytics worker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for room lifecycle events.
var DefaultQueueName = "lobby_room_events"

// Room lifecycle event types.
const (
	EventRoomCreated = "room_created"
	EventRoomJoined  = "room_joined"
	EventRoomClosed  = "room_closed"
)

// RoomEventRecord holds the minimal info the analytics worker needs.
type RoomEventRecord struct {
	RoomID      string `json:"room_id"`
	Event       string `json:"event"`
	GameVersion string `json:"game_version"`
	ShortCode   string `json:"short_code"`
	ActorID     string `json:"actor_id,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// Publisher pushes room event records onto a Redis list.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewPublisher wraps a connected Redis client. queue falls back to
// DefaultQueueName (overridable via ROOM_EVENTS_QUEUE_NAME) when empty.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = getEnv("ROOM_EVENTS_QUEUE_NAME", DefaultQueueName)
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Connect initializes a Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect() (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publish serializes the record to JSON and pushes it onto the queue.
func (p *Publisher) Publish(ctx context.Context, record RoomEventRecord) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomEventRecord: %w", err)
	}

	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
