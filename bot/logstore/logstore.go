// bot/logstore/logstore.go
package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	redisu "github.com/ezloot/LOOT-SERVICES/shared/redis"
)

// Entry is one interaction-log line: who ran which state-changing command,
// with the human-readable details the report channel shows.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Command   string    `json:"command"`
	Details   string    `json:"details"`
}

// String renders the entry as the report channel line.
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s used %s: %s",
		e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Actor, e.Command, e.Details)
}

// LogStore buffers interaction-log entries in a Redis list so a bot restart
// between flushes doesn't drop them.
type LogStore struct {
	redisClient *redis.ClusterClient
}

// NewLogStore creates a new LogStore instance.
func NewLogStore(redisClient *redis.ClusterClient) *LogStore {
	return &LogStore{
		redisClient: redisClient,
	}
}

// Record appends an interaction to the buffer.
func (ls *LogStore) Record(ctx context.Context, actor, command, details string) error {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Actor:     actor,
		Command:   command,
		Details:   details,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	if err := ls.redisClient.RPush(ctx, redisu.InteractionLogKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push log entry to Redis: %w", err)
	}
	return nil
}

// DrainBatch pops up to max entries from the front of the buffer. Entries
// that fail to unmarshal are dropped with the batch; they cannot be rendered.
func (ls *LogStore) DrainBatch(ctx context.Context, max int) ([]Entry, error) {
	if max <= 0 {
		return nil, nil
	}
	values, err := ls.redisClient.LPopCount(ctx, redisu.InteractionLogKey, max).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop log entries from Redis: %w", err)
	}

	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		var entry Entry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Requeue pushes entries back onto the front of the buffer in their original
// order, used when a flush fails after draining.
func (ls *LogStore) Requeue(ctx context.Context, entries []Entry) error {
	// LPush prepends, so walk backwards to restore order.
	for i := len(entries) - 1; i >= 0; i-- {
		data, err := json.Marshal(entries[i])
		if err != nil {
			return fmt.Errorf("failed to marshal log entry for requeue: %w", err)
		}
		if err := ls.redisClient.LPush(ctx, redisu.InteractionLogKey, data).Err(); err != nil {
			return fmt.Errorf("failed to requeue log entry: %w", err)
		}
	}
	return nil
}

// Len reports the number of buffered entries.
func (ls *LogStore) Len(ctx context.Context) (int64, error) {
	n, err := ls.redisClient.LLen(ctx, redisu.InteractionLogKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read log buffer length: %w", err)
	}
	return n, nil
}
