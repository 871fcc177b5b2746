// internal/journal/journal.go
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the global Redis client. Connect it once at application startup;
// when it stays nil the journal is disabled and every publish is a no-op.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for game records.
var DefaultQueueName = "partyhub_journal"

// Record is one journal entry for external consumers: a game lifecycle event
// or a player action, keyed by lobby.
type Record struct {
	LobbyName string                 `json:"lobby_name"`
	GameType  string                 `json:"game_type"`
	Kind      string                 `json:"kind"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Connect initializes the global Redis client from environment variables:
//   - REDIS_ADDR (required to enable the journal)
//   - REDIS_DB (optional, default 0)
func Connect() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// Enabled reports whether records will actually be published.
func Enabled() bool {
	return Rdb != nil
}

// Publish pushes a record onto the journal queue. Fire-and-forget: failures
// are logged and never propagate into game state.
func Publish(rec Record) {
	if Rdb == nil {
		return
	}
	rec.Timestamp = time.Now().Unix()

	go func() {
		data, err := json.Marshal(rec)
		if err != nil {
			logrus.Warnf("journal: failed to marshal record: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		queueName := getEnv("JOURNAL_QUEUE_NAME", DefaultQueueName)
		if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
			logrus.Warnf("journal: failed to RPush to Redis list %q: %v", queueName, err)
		}
	}()
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
