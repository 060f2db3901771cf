package drift

import "sync"

// Listener receives subscriber events. Any callback may be nil; nil callbacks
// are skipped. Callbacks run on the registry's dispatch goroutine, never
// under the subscriber's lock, so they may call back into the client.
type Listener struct {
	OnStatus   func(*Status)
	OnMessage  func(*Message)
	OnPresence func(*PresenceEvent)
}

// ListenerRegistry fans subscriber events out to registered listeners. Every
// notification is posted through a single serialized dispatch goroutine, so
// listeners observe events in the order the subscriber produced them.
type ListenerRegistry struct {
	mu        sync.RWMutex
	listeners []*Listener
	closed    bool
	queue     chan func()
	drained   chan struct{}
}

func newListenerRegistry() *ListenerRegistry {
	r := &ListenerRegistry{
		queue:   make(chan func(), 128),
		drained: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *ListenerRegistry) run() {
	for fn := range r.queue {
		fn()
	}
	close(r.drained)
}

func (r *ListenerRegistry) Add(l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *ListenerRegistry) Remove(l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.listeners {
		if cur == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

func (r *ListenerRegistry) snapshot() []*Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Listener(nil), r.listeners...)
}

// notifyWithBlock enqueues fn on the dispatch goroutine. After Close it is a
// no-op.
func (r *ListenerRegistry) notifyWithBlock(fn func()) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.queue <- fn
}

func (r *ListenerRegistry) announceStatus(status *Status) {
	r.notifyWithBlock(func() {
		for _, l := range r.snapshot() {
			if l.OnStatus != nil {
				l.OnStatus(status)
			}
		}
	})
}

func (r *ListenerRegistry) announceMessage(message *Message) {
	r.notifyWithBlock(func() {
		for _, l := range r.snapshot() {
			if l.OnMessage != nil {
				l.OnMessage(message)
			}
		}
	})
}

func (r *ListenerRegistry) announcePresence(event *PresenceEvent) {
	r.notifyWithBlock(func() {
		for _, l := range r.snapshot() {
			if l.OnPresence != nil {
				l.OnPresence(event)
			}
		}
	})
}

// Close stops the dispatch goroutine after draining queued notifications.
func (r *ListenerRegistry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	close(r.queue)
	<-r.drained
}
