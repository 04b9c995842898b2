package connection

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/elgendymo/Sakinah-sub005/internal/model"
)

// Listener consumes network events. Listeners are invoked synchronously in
// registration order within the update that produced the event.
type Listener func(model.NetworkEvent)

type listenerEntry struct {
	id int
	fn Listener
}

type listenerRegistry struct {
	mu      sync.Mutex
	nextID  int
	entries []listenerEntry
}

func (r *listenerRegistry) add(fn Listener) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries = append(r.entries, listenerEntry{id: r.nextID, fn: fn})
	return r.nextID
}

func (r *listenerRegistry) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = slices.DeleteFunc(r.entries, func(e listenerEntry) bool {
		return e.id == id
	})
}

// emit delivers each event to a snapshot of the listener list taken at
// emission start, so a listener unregistering itself mid-emission neither
// skips nor duplicates invocations.
func (r *listenerRegistry) emit(logger *zap.Logger, events ...model.NetworkEvent) {
	for _, ev := range events {
		r.mu.Lock()
		snapshot := slices.Clone(r.entries)
		r.mu.Unlock()

		for _, e := range snapshot {
			invoke(logger, e.fn, ev)
		}
	}
}

// invoke isolates a listener failure: it is logged and never reaches the
// caller that triggered the update nor the remaining listeners.
func invoke(logger *zap.Logger, fn Listener, ev model.NetworkEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("network event listener panicked",
				zap.String("event_type", string(ev.Type)),
				zap.Any("panic", rec))
		}
	}()
	fn(ev)
}
