package drift

import log "github.com/sirupsen/logrus"

// transitionCategory maps a lifecycle transition to the status category it
// emits. Transitions outside the table are disallowed.
func transitionCategory(from, to ConnectionState) (StatusCategory, bool) {
	switch to {
	case StateConnected:
		switch from {
		case StateInitialized, StateDisconnected, StateAccessRightsError:
			return CategoryConnected, true
		case StateDisconnectedUnexpectedly:
			return CategoryReconnected, true
		}
	case StateDisconnected:
		switch from {
		case StateInitialized, StateConnected:
			return CategoryDisconnected, true
		}
	case StateDisconnectedUnexpectedly:
		switch from {
		case StateInitialized, StateConnected:
			return CategoryUnexpectedDisconnect, true
		}
	case StateAccessRightsError:
		return CategoryAccessDenied, true
	}
	return CategoryUnknown, false
}

// transition applies from→to if the table allows it, annotating status with
// the computed category and the subscriber snapshot. Disallowed transitions
// are no-ops. The caller posts the annotated status to listeners; transition
// itself never does, so each accepted transition surfaces exactly once.
func (s *Subscriber) transition(to ConnectionState, status *Status) bool {
	s.mu.Lock()
	from := s.state
	category, ok := transitionCategory(from, to)
	if ok && !(to == StateDisconnected && from == StateInitialized) {
		// A never-connected subscriber that empties its membership has simply
		// completed with an empty set; the stored state stays Initialized
		// while listeners still see the Disconnected lifecycle event.
		s.state = to
	}
	s.mu.Unlock()
	if !ok {
		log.Debugf("drift: ignoring %s -> %s transition", from, to)
		return false
	}
	status.Category = category
	s.annotate(status)
	return true
}

// State returns the stored lifecycle state.
func (s *Subscriber) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
