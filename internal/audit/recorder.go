package audit

import (
	"fmt"
	"os"
	"sync"

	"github.com/akranz/factgate/internal/model"
)

// Recorder persists verification runs asynchronously. Record never blocks
// the response path: a full queue drops the run (with a stderr warning)
// rather than adding latency, and storage failures are logged and
// swallowed. Audit must never cause a user-facing failure.
type Recorder struct {
	store     *Store
	queue     chan model.ResponseVerification
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewRecorder starts the drain goroutine over the given store.
func NewRecorder(store *Store, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 64
	}
	r := &Recorder{
		store: store,
		queue: make(chan model.ResponseVerification, queueSize),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

// Record enqueues a run for persistence, fire-and-forget.
func (r *Recorder) Record(rv model.ResponseVerification) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- rv:
	default:
		fmt.Fprintf(os.Stderr, "Warning: audit queue full, dropping record %s\n", rv.RequestID)
	}
}

// Close flushes pending records and stops the drain goroutine. Meant for
// shutdown and tests; Record calls after Close are dropped.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
		<-r.done
	})
}

func (r *Recorder) drain() {
	defer close(r.done)
	for rv := range r.queue {
		if err := r.store.Save(rv); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit record failed for %s: %v\n", rv.RequestID, err)
		}
	}
}
