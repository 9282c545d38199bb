// bot/flusher/flusher.go
package flusher

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/ezloot/LOOT-SERVICES/bot/gateway"
	"github.com/ezloot/LOOT-SERVICES/bot/logstore"
)

// flushTask is the ring entity that elects which bot instance delivers the
// interaction log. All instances hash the same name, so exactly one of them
// considers itself responsible at a time.
const flushTask = "interaction-log-flush"

// batchSize bounds how many buffered entries one flush cycle delivers.
const batchSize = 50

// MessageSender is the slice of the gateway the flusher needs.
type MessageSender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// Responsibility decides whether this instance owns a named task.
type Responsibility interface {
	IsResponsible(entityID string) (bool, error)
}

// Flusher periodically drains the interaction-log buffer and posts the
// entries to the report channel. Only the instance owning the flush task
// delivers, so multiple bot replicas don't double-post.
type Flusher struct {
	logStore   *logstore.LogStore
	sender     MessageSender
	assignment Responsibility
	channelID  string
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewFlusher creates a Flusher posting to the given report channel.
func NewFlusher(logStore *logstore.LogStore, sender MessageSender, assignment Responsibility, channelID string, interval time.Duration) *Flusher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Flusher{
		logStore:   logStore,
		sender:     sender,
		assignment: assignment,
		channelID:  channelID,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Start begins the periodic flush loop. This method should be run in a goroutine.
func (f *Flusher) Start() {
	defer close(f.done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	log.Printf("INFO: Interaction log flusher started (channel %s, every %v)", f.channelID, f.interval)
	for {
		select {
		case <-f.ctx.Done():
			log.Println("INFO: Interaction log flusher shutting down.")
			return
		case <-ticker.C:
			f.flushOnce()
		}
	}
}

// Stop signals the flusher to stop and waits for the loop to exit.
func (f *Flusher) Stop() {
	f.cancel()
	<-f.done
}

func (f *Flusher) flushOnce() {
	responsible, err := f.assignment.IsResponsible(flushTask)
	if err != nil {
		log.Printf("WARN: Flusher: responsibility check failed: %v", err)
		return
	}
	if !responsible {
		return
	}

	ctx, cancel := context.WithTimeout(f.ctx, f.interval)
	defer cancel()

	entries, err := f.logStore.DrainBatch(ctx, batchSize)
	if err != nil {
		log.Printf("ERROR: Flusher: failed to drain log buffer: %v", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry.String()
	}

	for _, chunk := range gateway.SplitMessage(strings.Join(lines, "\n"), gateway.MessageLimit) {
		if err := f.sender.SendMessage(ctx, f.channelID, chunk); err != nil {
			log.Printf("WARN: Flusher: delivery failed, requeueing %d entries: %v", len(entries), err)
			if reqErr := f.logStore.Requeue(ctx, entries); reqErr != nil {
				log.Printf("ERROR: Flusher: requeue failed, %d entries lost: %v", len(entries), reqErr)
			}
			return
		}
	}
	log.Printf("INFO: Flusher: delivered %d interaction log entries", len(entries))
}
