package drift

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// Request is the abstract parameter bundle handed to the transport: an
// operation, the names filling the {channels} path placeholder, the cursor
// filling {tt}, and the query parameters.
type Request struct {
	Operation     Operation
	Channels      []string
	ChannelGroups []string
	Timetoken     uint64
	Query         url.Values

	// Payload is the JSON-encoded message body of a publish.
	Payload json.RawMessage
}

// channelPath renders the {channels} placeholder: the comma-joined escaped
// names, or the literal "," when the request addresses no channel directly
// (group-only subscribes).
func (r *Request) channelPath() string {
	if len(r.Channels) == 0 {
		return ","
	}
	escaped := make([]string, len(r.Channels))
	for i, ch := range r.Channels {
		escaped[i] = url.PathEscape(ch)
	}
	return strings.Join(escaped, ",")
}

// buildSubscribeRequest assembles the next long-poll from the membership
// snapshot, the cursor, and the merged per-object state. The merge result is
// written back to the store, so state persists across cycles.
func (s *Subscriber) buildSubscribeRequest(state map[string]interface{}) *Request {
	channels := append(s.set.Channels(), s.set.PresenceChannels()...)
	groups := s.set.ChannelGroups()

	names := make([]string, 0, len(channels)+len(groups))
	names = append(names, channels...)
	names = append(names, groups...)
	merged := s.stateStore.MergeAndReplace(names, state)

	query := url.Values{}
	if hb := s.config.PresenceHeartbeatValue; hb > 0 {
		query.Set("heartbeat", strconv.Itoa(hb))
	}
	if len(groups) > 0 {
		query.Set("channel-group", strings.Join(groups, ","))
	}
	if len(merged) > 0 {
		if encoded, err := json.Marshal(merged); err == nil {
			query.Set("state", string(encoded))
		}
	}

	s.mu.RLock()
	tt := s.cursor.current
	s.mu.RUnlock()

	return &Request{
		Operation:     OpSubscribe,
		Channels:      channels,
		ChannelGroups: groups,
		Timetoken:     tt,
		Query:         query,
	}
}

// buildLeaveRequest assembles the unsubscribe/leave call for the given
// objects. Group leaves address the "," channel path and name the groups in
// the query instead.
func buildLeaveRequest(objects []string, isChannels bool) *Request {
	req := &Request{Operation: OpUnsubscribe, Query: url.Values{}}
	if isChannels {
		req.Channels = append([]string(nil), objects...)
	} else {
		req.ChannelGroups = append([]string(nil), objects...)
		req.Query.Set("channel-group", strings.Join(objects, ","))
	}
	return req
}

// buildHeartbeatRequest assembles the periodic presence announce for the
// current membership.
func buildHeartbeatRequest(set *subscriptionSet, store *StateStore, heartbeat int) *Request {
	query := url.Values{}
	query.Set("heartbeat", strconv.Itoa(heartbeat))
	groups := set.ChannelGroups()
	if len(groups) > 0 {
		query.Set("channel-group", strings.Join(groups, ","))
	}
	if snapshot := store.Snapshot(); len(snapshot) > 0 {
		if encoded, err := json.Marshal(snapshot); err == nil {
			query.Set("state", string(encoded))
		}
	}
	return &Request{
		Operation:     OpHeartbeat,
		Channels:      set.Channels(),
		ChannelGroups: groups,
		Query:         query,
	}
}
