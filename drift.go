// Package drift is the Go client for the Drift real-time messaging service.
//
// The client maintains a long-poll subscribe loop against the service,
// delivering messages and presence events to registered listeners and
// recovering from network trouble with cursor-based catch-up.
//
// Example:
//
//	config := drift.NewConfig()
//	config.SubscribeKey = "sub-..."
//	config.PublishKey = "pub-..."
//
//	client := drift.NewClient(config)
//	client.AddListener(&drift.Listener{
//		OnMessage: func(m *drift.Message) { fmt.Println(m.Channel, string(m.Payload)) },
//	})
//	client.Subscribe([]string{"news"}, nil, true)
package drift

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
)

// Client is the entry point of the library. It owns the subscriber and every
// collaborator the subscriber depends on, and is torn down after them.
type Client struct {
	config     *Config
	transport  Transport
	listeners  *ListenerRegistry
	stateStore *StateStore
	heartbeat  *HeartbeatManager
	subscriber *Subscriber
	stats      *clientStats
}

type ClientOption func(*Client)

// WithTransport swaps the HTTP transport out, e.g. for tests.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

// NewClient creates a client for the given configuration.
func NewClient(config *Config, opts ...ClientOption) *Client {
	if config == nil {
		config = NewConfig()
	}
	c := &Client{
		config:     config,
		listeners:  newListenerRegistry(),
		stateStore: newStateStore(),
		stats:      newClientStats(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = newHTTPTransport(config)
	}
	sub := newSubscriber(config, c.transport, c.listeners, c.stateStore, c.stats)
	c.heartbeat = newHeartbeatManager(config, c.transport, sub.set, c.stateStore)
	sub.heartbeat = c.heartbeat
	c.subscriber = sub
	return c
}

// Config returns the client configuration. Treat it as read-only once the
// client is running.
func (c *Client) Config() *Config {
	return c.config
}

// AddListener registers a listener for statuses, messages, and presence
// events.
func (c *Client) AddListener(l *Listener) {
	c.listeners.Add(l)
}

func (c *Client) RemoveListener(l *Listener) {
	c.listeners.Remove(l)
}

// State returns the subscribe loop's lifecycle state.
func (c *Client) State() ConnectionState {
	return c.subscriber.State()
}

// Stats exposes the client's telemetry registry.
func (c *Client) Stats() metrics.Registry {
	return c.stats.registry
}

// ============================================================================
// Subscribe / Unsubscribe
// ============================================================================

// Subscribe adds the given channels and channel groups to the membership and
// starts (or restarts) the subscribe loop. With withPresence set, the
// presence companion of every channel is subscribed too.
func (c *Client) Subscribe(channels, groups []string, withPresence bool) {
	c.SubscribeWithState(channels, groups, withPresence, nil)
}

// SubscribeWithState is Subscribe with an initial per-object state map,
// keyed by channel or group name.
func (c *Client) SubscribeWithState(channels, groups []string, withPresence bool, state map[string]interface{}) {
	c.subscriber.set.AddChannels(channels)
	c.subscriber.set.AddChannelGroups(groups)
	if withPresence {
		c.subscriber.set.AddPresenceChannels(channels)
	}
	c.subscriber.Subscribe(true, state)
}

// UnsubscribeChannels leaves the given channels (suffixed names leave only
// the presence companion) and re-subscribes on the remaining membership.
func (c *Client) UnsubscribeChannels(channels []string) {
	c.subscriber.set.RemoveChannels(channels)
	c.subscriber.Unsubscribe(true, channels)
}

// UnsubscribeChannelGroups leaves the given channel groups and re-subscribes
// on the remaining membership.
func (c *Client) UnsubscribeChannelGroups(groups []string) {
	c.subscriber.set.RemoveChannelGroups(groups)
	c.subscriber.Unsubscribe(false, groups)
}

// UnsubscribeAll leaves everything.
func (c *Client) UnsubscribeAll() {
	set := c.subscriber.set
	channels := append(set.Channels(), set.PresenceChannels()...)
	groups := set.ChannelGroups()
	set.Clear()
	if len(groups) > 0 {
		c.subscriber.Unsubscribe(false, groups)
	}
	c.subscriber.Unsubscribe(true, channels)
}

// Reconnect re-enters the subscribe loop after an unexpected disconnect, if
// the cursor and membership still allow it.
func (c *Client) Reconnect() {
	c.subscriber.RestoreIfRequired()
}

// Destroy stops the subscribe loop, cancels in-flight requests, and drains
// the listener queue. The client is unusable afterwards.
func (c *Client) Destroy() {
	c.subscriber.stop()
	c.listeners.Close()
}

// ============================================================================
// Presence state
// ============================================================================

// SetPresenceState records local per-object state; it is announced to the
// server on the next subscribe cycle.
func (c *Client) SetPresenceState(name string, state interface{}) {
	c.stateStore.Set(name, state)
}

// PresenceState returns the locally known state of an object.
func (c *Client) PresenceState(name string) (interface{}, bool) {
	return c.stateStore.Get(name)
}

// ============================================================================
// One-shot operations
// ============================================================================

// Publish sends a message on a channel and waits for the service
// acknowledgment.
func (c *Client) Publish(channel string, payload interface{}) (*Status, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode publish payload")
	}
	req := &Request{
		Operation: OpPublish,
		Channels:  []string{channel},
		Payload:   encoded,
	}
	return c.await(req)
}

// HereNow queries current occupancy of the given channels.
func (c *Client) HereNow(channels []string) (*Status, error) {
	req := &Request{
		Operation: OpHereNow,
		Channels:  append([]string(nil), channels...),
	}
	return c.await(req)
}

func (c *Client) await(req *Request) (*Status, error) {
	result := make(chan *Status, 1)
	c.transport.Send(req, func(status *Status) { result <- status })
	status := <-result
	if status.Error {
		if status.ErrorData != nil {
			return status, status.ErrorData
		}
		return status, errors.Errorf("%s failed: %s", req.Operation, status.Category)
	}
	return status, nil
}
