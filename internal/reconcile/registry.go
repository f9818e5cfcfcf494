package reconcile

import (
	"context"
	"sync"
)

// registry tracks the cancel function of every live poller, keyed by task
// id. A webhook that wins the terminal race cancels the poller through it.
type registry struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newRegistry() *registry {
	return &registry{cancels: make(map[string]context.CancelFunc)}
}

// add registers a poller. Returns false when the task is already watched.
func (r *registry) add(taskID string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cancels[taskID]; ok {
		return false
	}
	r.cancels[taskID] = cancel
	return true
}

func (r *registry) remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, taskID)
}

// cancel stops the poller for taskID if one is running.
func (r *registry) cancel(taskID string) {
	r.mu.Lock()
	cancel, ok := r.cancels[taskID]
	delete(r.cancels, taskID)
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *registry) watching(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cancels[taskID]
	return ok
}
