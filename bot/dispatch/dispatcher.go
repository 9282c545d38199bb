// bot/dispatch/dispatcher.go
package dispatch

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/stathat/consistent"
)

// ErrStopped is returned by Dispatch after the dispatcher has shut down.
var ErrStopped = errors.New("dispatcher is stopped")

// Dispatcher fans command invocations out over a fixed set of worker queues.
// A consistent-hash ring over the worker names pins every invocation for one
// user ID to the same queue, so commands against the same loot record run in
// order and never interleave.
type Dispatcher struct {
	queues  []chan func()
	indexes map[string]int // ring member name -> queue index
	ring    *consistent.Consistent
	wg      sync.WaitGroup
	mux     sync.RWMutex // guards stopped
	stopped bool
}

// NewDispatcher creates a dispatcher with the given number of workers, each
// with a buffered queue of queueDepth invocations.
func NewDispatcher(workers, queueDepth int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}

	d := &Dispatcher{
		queues:  make([]chan func(), workers),
		indexes: make(map[string]int, workers),
		ring:    consistent.New(),
	}
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		d.queues[i] = make(chan func(), queueDepth)
		d.indexes[name] = i
		d.ring.Add(name)
	}
	return d
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := range d.queues {
		d.wg.Add(1)
		go d.runWorker(i)
	}
	log.Printf("INFO: Dispatcher started with %d workers", len(d.queues))
}

func (d *Dispatcher) runWorker(index int) {
	defer d.wg.Done()
	for task := range d.queues[index] {
		task()
	}
}

// Dispatch enqueues a task on the worker owning the given user ID, blocking
// if that worker's queue is full.
func (d *Dispatcher) Dispatch(userID string, task func()) error {
	d.mux.RLock()
	defer d.mux.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	worker, err := d.ring.Get(userID)
	if err != nil {
		return fmt.Errorf("failed to pick worker for user %s: %w", userID, err)
	}
	d.queues[d.indexes[worker]] <- task
	return nil
}

// Stop closes the queues and waits for in-flight tasks to finish.
func (d *Dispatcher) Stop() {
	d.mux.Lock()
	if d.stopped {
		d.mux.Unlock()
		return
	}
	d.stopped = true
	d.mux.Unlock()

	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
	log.Println("INFO: Dispatcher stopped")
}
