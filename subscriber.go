package drift

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Subscriber drives the long-poll subscribe loop: it owns the membership,
// the cursor, the lifecycle state, and the retry timer, and coordinates the
// transport, the listener registry, the per-object state store, and the
// heartbeat manager. It holds no reference to the Client that owns it; the
// Client tears it down before anything it depends on.
type Subscriber struct {
	// mu guards the cursor and the lifecycle state. The subscription set and
	// state store carry their own locks.
	mu sync.RWMutex

	config     *Config
	transport  Transport
	listeners  *ListenerRegistry
	set        *subscriptionSet
	stateStore *StateStore
	heartbeat  *HeartbeatManager
	stats      *clientStats

	retry  retryTimer
	cursor cursor
	state  ConnectionState
}

// newSubscriber wires the collaborators in; the heartbeat manager is
// attached afterwards because it shares the subscription set.
func newSubscriber(
	config *Config,
	transport Transport,
	listeners *ListenerRegistry,
	stateStore *StateStore,
	stats *clientStats,
) *Subscriber {
	return &Subscriber{
		config:     config,
		transport:  transport,
		listeners:  listeners,
		set:        newSubscriptionSet(),
		stateStore: stateStore,
		stats:      stats,
		state:      StateInitialized,
	}
}

// annotate stamps the cursor and membership snapshot onto a status. Channel
// and group snapshots already present are kept.
func (s *Subscriber) annotate(status *Status) {
	s.mu.RLock()
	status.CurrentTimetoken = s.cursor.current
	status.LastTimetoken = s.cursor.last
	s.mu.RUnlock()
	if status.Channels == nil {
		status.Channels = append(s.set.Channels(), s.set.PresenceChannels()...)
	}
	if status.ChannelGroups == nil {
		status.ChannelGroups = s.set.ChannelGroups()
	}
}

// Subscribe issues the next long-poll. An initial subscribe rewinds the
// cursor (saving the position for catch-up) and preempts any in-flight
// long-poll; a continuation reuses the current cursor. With an empty
// membership it completes locally with a Disconnected status instead.
func (s *Subscriber) Subscribe(initial bool, state map[string]interface{}) {
	s.retry.stop()

	if s.set.Empty() {
		status := &Status{Operation: OpSubscribe, Category: CategoryDisconnected}
		s.transition(StateDisconnected, status)
		s.annotate(status)
		s.transport.CancelAll()
		s.listeners.announceStatus(status)
		return
	}

	if initial {
		s.mu.Lock()
		if s.cursor.current > 0 {
			s.cursor.last = s.cursor.current
		}
		s.cursor.current = 0
		s.mu.Unlock()
		// A changed-membership subscribe preempts the in-flight long-poll;
		// its completion surfaces as Cancelled and drives no transition.
		s.transport.CancelAll()
	}

	req := s.buildSubscribeRequest(state)
	log.WithFields(log.Fields{
		"channels": req.Channels,
		"groups":   req.ChannelGroups,
		"tt":       req.Timetoken,
	}).Debug("drift: subscribing")
	s.transport.Send(req, s.handleResponse)
}

// continueSubscriptionCycle re-enters the loop with the current cursor. It is
// the retry timer's callback and the tail of every successful completion.
func (s *Subscriber) continueSubscriptionCycle() {
	s.Subscribe(false, nil)
}

// Unsubscribe leaves the given objects. The caller must have removed them
// from the membership already, so the re-subscribe runs against the reduced
// set. Presence-only unsubscribes skip the network call: the server tracks
// presence interest per connection, not per announce.
func (s *Subscriber) Unsubscribe(isChannels bool, objects []string) {
	s.stateStore.Delete(objects)

	leave := make([]string, 0, len(objects))
	for _, name := range objects {
		if !isPresenceChannel(name) {
			leave = append(leave, name)
		}
	}

	if len(leave) == 0 {
		disconnect := &Status{Operation: OpUnsubscribe}
		if s.transition(StateDisconnected, disconnect) {
			s.listeners.announceStatus(disconnect)
		}
		s.Subscribe(true, nil)
		s.announceAck(objects, isChannels)
		return
	}

	req := buildLeaveRequest(leave, isChannels)
	s.transport.Send(req, func(*Status) {
		// The leave outcome is deliberately ignored: membership is already
		// reduced and the re-subscribe below is what matters.
		disconnect := &Status{Operation: OpUnsubscribe}
		if s.transition(StateDisconnected, disconnect) {
			s.listeners.announceStatus(disconnect)
		}
		s.announceAck(objects, isChannels)
		s.Subscribe(true, nil)
	})
}

func (s *Subscriber) announceAck(objects []string, isChannels bool) {
	ack := &Status{Operation: OpUnsubscribe, Category: CategoryAcknowledgment}
	if isChannels {
		ack.Channels = append([]string(nil), objects...)
	} else {
		ack.ChannelGroups = append([]string(nil), objects...)
	}
	s.annotate(ack)
	s.listeners.announceStatus(ack)
}

// RestoreIfRequired re-enters the loop after an unexpected disconnect whose
// failure path left the cursor intact (both slots populated) and the
// membership standing.
func (s *Subscriber) RestoreIfRequired() {
	s.mu.RLock()
	eligible := s.state == StateDisconnectedUnexpectedly &&
		s.cursor.current > 0 && s.cursor.last > 0
	s.mu.RUnlock()
	if !eligible || s.set.Empty() {
		return
	}
	log.Debug("drift: restoring subscription")
	s.Subscribe(true, nil)
}

// stop tears the loop down: disarms the retry timer, cancels in-flight
// long-polls, and stops the heartbeat.
func (s *Subscriber) stop() {
	s.retry.stop()
	s.transport.CancelAll()
	s.heartbeat.StopIfPossible()
}
