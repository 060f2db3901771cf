package drift

import (
	log "github.com/sirupsen/logrus"
)

// dispatchEvents splits a successful subscribe batch into message and
// presence events, normalizes presence channel naming, and forwards each to
// the listener registry. The enclosing status keeps only its timetoken
// afterwards, so the batch cannot be delivered twice.
func (s *Subscriber) dispatchEvents(status *Status) {
	envelope := status.Envelope
	if envelope == nil {
		return
	}

	for i := range envelope.Events {
		event := envelope.Events[i]

		if event.SubscribedChannel == "" {
			all := s.set.All()
			if len(all) == 0 {
				// Membership was cleared while the response was in flight;
				// there is no channel to attribute the event to.
				s.stats.droppedEvents.Inc(1)
				log.Debug("drift: dropping event with no subscribable target")
				continue
			}
			event.SubscribedChannel = all[0]
		}

		isPresence := isPresenceChannel(event.SubscribedChannel) ||
			isPresenceChannel(event.ActualChannel)

		// Presence suffixes are stripped from the outbound copies only; the
		// membership keeps the suffixed names.
		subscription := event.SubscribedChannel
		channel := event.ActualChannel
		if isPresence {
			subscription = stripPresenceSuffix(subscription)
			channel = stripPresenceSuffix(channel)
		}
		if channel == "" {
			channel = subscription
		}

		if isPresence && event.Presence != nil {
			if event.Presence.Event == PresenceEventStateChange &&
				event.Presence.UUID == s.config.UUID {
				s.stateStore.Set(channel, event.Presence.State)
			}
			s.stats.presenceEvents.Mark(1)
			s.listeners.announcePresence(&PresenceEvent{
				Channel:      channel,
				Subscription: subscription,
				Event:        event.Presence.Event,
				UUID:         event.Presence.UUID,
				State:        event.Presence.State,
				Timestamp:    event.Presence.Timestamp,
			})
			continue
		}

		if event.DecryptError {
			decryptStatus := status.clone()
			decryptStatus.Category = CategoryDecryptionError
			decryptStatus.Error = true
			decryptStatus.Envelope = nil
			s.annotate(decryptStatus)
			s.listeners.announceStatus(decryptStatus)
		}
		s.stats.messages.Mark(1)
		s.listeners.announceMessage(&Message{
			Channel:      channel,
			Subscription: subscription,
			Payload:      event.Payload,
			Timetoken:    envelope.Timetoken,
			DecryptError: event.DecryptError,
		})
	}

	status.Envelope = &SubscribeEnvelope{Timetoken: envelope.Timetoken}
}
