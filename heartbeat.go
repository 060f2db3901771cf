package drift

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// HeartbeatManager periodically re-announces presence for the subscribed
// membership. It runs only while a subscription is live and only when the
// configuration carries a heartbeat value; both Start and Stop own their
// idempotence, so the subscriber calls them unconditionally at transition
// points.
type HeartbeatManager struct {
	config     *Config
	transport  Transport
	set        *subscriptionSet
	stateStore *StateStore

	mu   sync.Mutex
	done chan struct{}
}

func newHeartbeatManager(config *Config, transport Transport, set *subscriptionSet, store *StateStore) *HeartbeatManager {
	return &HeartbeatManager{
		config:     config,
		transport:  transport,
		set:        set,
		stateStore: store,
	}
}

// StartIfRequired arms the heartbeat loop if heartbeats are configured and
// the loop is not already running.
func (h *HeartbeatManager) StartIfRequired() {
	if h.config.PresenceHeartbeatValue <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done != nil {
		return
	}
	h.done = make(chan struct{})
	go h.loop(h.done)
}

// StopIfPossible disarms the loop; a no-op when it is not running.
func (h *HeartbeatManager) StopIfPossible() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done == nil {
		return
	}
	close(h.done)
	h.done = nil
}

// Running reports whether the loop is armed.
func (h *HeartbeatManager) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done != nil
}

func (h *HeartbeatManager) loop(done chan struct{}) {
	interval := time.Duration(h.config.PresenceHeartbeatValue) * time.Second / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.announce()
		}
	}
}

// announce issues one heartbeat call, retrying transient failures with
// capped exponential backoff.
func (h *HeartbeatManager) announce() {
	if h.set.Empty() {
		return
	}
	req := buildHeartbeatRequest(h.set, h.stateStore, h.config.PresenceHeartbeatValue)

	operation := func() error {
		result := make(chan *Status, 1)
		h.transport.Send(req, func(status *Status) { result <- status })
		status := <-result
		if !status.Error {
			return nil
		}
		if status.ErrorData != nil {
			return status.ErrorData
		}
		return errors.Errorf("heartbeat failed: %s", status.Category)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, policy); err != nil {
		log.WithError(err).Debug("drift: heartbeat announce failed")
	}
}
