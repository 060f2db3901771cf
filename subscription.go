package drift

import (
	"sort"
	"strings"
	"sync"
)

// presenceSuffix is the naming convention the service uses to derive a
// presence companion channel from a regular channel.
const presenceSuffix = "-pnpres"

func isPresenceChannel(name string) bool {
	return strings.HasSuffix(name, presenceSuffix)
}

func presenceChannel(name string) string {
	if isPresenceChannel(name) {
		return name
	}
	return name + presenceSuffix
}

func stripPresenceSuffix(name string) string {
	return strings.TrimSuffix(name, presenceSuffix)
}

// subscriptionSet is the mutable membership the subscribe loop runs against:
// regular channels, channel groups, and presence channels. The three sets are
// disjoint; presence names always live in the presence set, never in channels.
type subscriptionSet struct {
	mu       sync.RWMutex
	channels map[string]struct{}
	groups   map[string]struct{}
	presence map[string]struct{}
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{
		channels: make(map[string]struct{}),
		groups:   make(map[string]struct{}),
		presence: make(map[string]struct{}),
	}
}

// AddChannels splits its input by the presence suffix: suffixed names are
// routed to the presence set, the rest to the channel set.
func (s *subscriptionSet) AddChannels(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if name == "" {
			continue
		}
		if isPresenceChannel(name) {
			s.presence[name] = struct{}{}
		} else {
			s.channels[name] = struct{}{}
		}
	}
}

// RemoveChannels removes the given names from both the channel set and the
// presence set. The removal is name-based: a caller that wants to drop a
// presence companion passes the suffixed name.
func (s *subscriptionSet) RemoveChannels(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		delete(s.channels, name)
		delete(s.presence, name)
	}
}

func (s *subscriptionSet) AddChannelGroups(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if name == "" {
			continue
		}
		s.groups[name] = struct{}{}
	}
}

func (s *subscriptionSet) RemoveChannelGroups(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		delete(s.groups, name)
	}
}

// AddPresenceChannels subscribes the presence companions of the given
// channels. Names are normalized to their suffixed form.
func (s *subscriptionSet) AddPresenceChannels(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if name == "" {
			continue
		}
		s.presence[presenceChannel(name)] = struct{}{}
	}
}

func (s *subscriptionSet) RemovePresenceChannels(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		delete(s.presence, presenceChannel(name))
	}
}

// Channels returns a sorted snapshot of the regular channels. The snapshot is
// the caller's to keep; later mutations do not touch it.
func (s *subscriptionSet) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.channels)
}

func (s *subscriptionSet) ChannelGroups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.groups)
}

func (s *subscriptionSet) PresenceChannels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.presence)
}

// All returns the entire subscribed universe: channels, presence channels,
// then channel groups.
func (s *subscriptionSet) All() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedKeys(s.channels)
	all = append(all, sortedKeys(s.presence)...)
	all = append(all, sortedKeys(s.groups)...)
	return all
}

func (s *subscriptionSet) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels) == 0 && len(s.groups) == 0 && len(s.presence) == 0
}

// Clear forgets the whole membership. Used on non-restorable failures.
func (s *subscriptionSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = make(map[string]struct{})
	s.groups = make(map[string]struct{})
	s.presence = make(map[string]struct{})
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
