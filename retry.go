package drift

import (
	"sync"
	"time"
)

// retryInterval is the fixed delay before a failed subscribe is re-issued.
const retryInterval = 1 * time.Second

// retryTimer is a single-slot one-shot timer. Start replaces any armed timer;
// Stop is idempotent and safe whether armed or not. At most one timer is
// armed at any instant.
type retryTimer struct {
	mu    sync.Mutex
	timer *time.Timer
}

func (r *retryTimer) start(fire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(retryInterval, func() {
		r.mu.Lock()
		superseded := r.timer != t
		if !superseded {
			r.timer = nil
		}
		r.mu.Unlock()
		if superseded {
			return
		}
		fire()
	})
	r.timer = t
}

func (r *retryTimer) armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

func (r *retryTimer) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
