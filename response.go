package drift

import (
	log "github.com/sirupsen/logrus"
)

// retriableCategory reports whether a failed completion is re-issued on the
// fixed retry interval.
func retriableCategory(c StatusCategory) bool {
	switch c {
	case CategoryAccessDenied, CategoryTimeout, CategoryMalformedResponse, CategoryTLSConnectionFailed:
		return true
	}
	return false
}

// handleResponse classifies every subscribe completion and drives the cursor,
// the state machine, and the retry timer. The final status always reaches the
// listeners, exactly once.
func (s *Subscriber) handleResponse(status *Status) {
	// A completion means the in-flight request returned; any queued retry
	// is moot.
	s.retry.stop()

	switch {
	case !status.Error:
		s.handleSuccess(status)
	case status.Category == CategoryCancelled:
		s.handleCancelled(status)
	case retriableCategory(status.Category):
		s.handleRetriable(status)
	default:
		s.handleNetworkLoss(status)
	}
}

func (s *Subscriber) handleSuccess(status *Status) {
	var requestTT uint64
	if status.Request != nil {
		requestTT = status.Request.Timetoken
	}
	initial := requestTT == 0

	var responseTT uint64
	if status.Envelope != nil {
		responseTT = status.Envelope.Timetoken
	}

	s.mu.Lock()
	if initial && s.config.KeepTimeTokenOnListChange && s.cursor.last > 0 {
		// Catch-up promotion: resume from the pre-change position and ignore
		// the fresh token the server assigned.
		s.cursor.current = s.cursor.last
		s.cursor.last = 0
	} else {
		s.cursor.advance(responseTT)
	}
	s.mu.Unlock()

	s.stats.subscribeSuccess.Inc(1)
	s.dispatchEvents(status)
	s.continueSubscriptionCycle()
	s.heartbeat.StartIfRequired()

	if initial {
		if s.transition(StateConnected, status) && status.Category == CategoryReconnected {
			s.stats.reconnects.Inc(1)
		}
	}
	s.annotate(status)
	s.listeners.announceStatus(status)
}

func (s *Subscriber) handleCancelled(status *Status) {
	// Another user action preempted this request; that action drives the
	// next transition, not this completion.
	s.heartbeat.StopIfPossible()
	s.annotate(status)
	s.listeners.announceStatus(status)
}

func (s *Subscriber) handleRetriable(status *Status) {
	log.WithFields(log.Fields{
		"category": status.Category.String(),
		"error":    status.ErrorData,
	}).Debug("drift: retriable subscribe failure")

	status.AutoRetry = true
	status.CancelRetry = s.retry.stop
	s.retry.start(s.continueSubscriptionCycle)
	s.stats.retriesArmed.Inc(1)
	s.stats.subscribeFailure.Inc(1)

	if status.Category == CategoryAccessDenied {
		s.transition(StateAccessRightsError, status)
	} else {
		status.Category = CategoryUnexpectedDisconnect
		s.transition(StateDisconnectedUnexpectedly, status)
	}
	s.annotate(status)
	s.listeners.announceStatus(status)
}

func (s *Subscriber) handleNetworkLoss(status *Status) {
	log.WithError(status.ErrorData).Debug("drift: subscribe connection lost")
	s.stats.subscribeFailure.Inc(1)

	if s.config.RestoreSubscription {
		// No retry timer is armed: the next initial subscribe resumes from
		// the saved cursor, so the status carries no user-cancellable hook.
		status.AutoRetry = true
		s.mu.Lock()
		if s.config.CatchUpOnRestore {
			s.cursor.promoteToLast()
		} else {
			s.cursor.reset()
		}
		s.mu.Unlock()
	} else {
		// A non-restorable loss forgets membership and its state.
		s.stateStore.Delete(s.set.All())
		s.set.Clear()
	}

	status.Category = CategoryUnexpectedDisconnect
	s.heartbeat.StopIfPossible()
	s.transition(StateDisconnectedUnexpectedly, status)
	s.annotate(status)
	s.listeners.announceStatus(status)
}
