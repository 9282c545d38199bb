// shared/redis/constants.go
package redis

import "fmt"

const (
	// InteractionLogKey is the Redis list the bot-service appends interaction
	// log lines to. The flusher drains it in order and posts batches to the
	// configured report channel.
	InteractionLogKey = "interaction_log"
)

// ErrRedisKeyNotFound is returned when an expected key is absent.
var ErrRedisKeyNotFound = fmt.Errorf("redis key not found")
