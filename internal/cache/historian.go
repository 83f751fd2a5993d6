// Package cache publishes per-session action records to Redis for the
// historian consumer. Publishing is best-effort: the engine never blocks
// or fails an operation on a publish error.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ActionRecord is one engine action, ordered by ActionIndex within a
// session.
type ActionRecord struct {
	SessionID   uuid.UUID              `json:"sessionId"`
	ActionIndex int                    `json:"actionIndex"`
	ActorID     uuid.UUID              `json:"actorId,omitempty"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// Historian pushes action records onto a per-session Redis list and
// notifies subscribers on a channel.
type Historian struct {
	rdb *redis.Client
}

// NewHistorian connects a Redis client for action publishing.
func NewHistorian(addr, password string, db int) *Historian {
	return &Historian{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies the Redis connection.
func (h *Historian) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (h *Historian) Close() error {
	return h.rdb.Close()
}

func actionListKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("callout:actions:%s", sessionID)
}

func actionChannel(sessionID uuid.UUID) string {
	return fmt.Sprintf("callout:actions:%s:events", sessionID)
}

// Publish appends the record to the session's action list and announces
// it to subscribers.
func (h *Historian) Publish(ctx context.Context, rec ActionRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("historian marshal record: %w", err)
	}
	if err := h.rdb.RPush(ctx, actionListKey(rec.SessionID), blob).Err(); err != nil {
		return fmt.Errorf("historian rpush: %w", err)
	}
	if err := h.rdb.Publish(ctx, actionChannel(rec.SessionID), blob).Err(); err != nil {
		return fmt.Errorf("historian publish: %w", err)
	}
	return nil
}
