package drift

import (
	"time"

	uuid "github.com/nu7hatch/gouuid"
)

const (
	// DefaultOrigin is the service endpoint host.
	DefaultOrigin = "ps.driftmq.net"

	// DefaultSubscribeTimeout must outlive the server's long-poll window.
	DefaultSubscribeTimeout = 310 * time.Second

	// DefaultNonSubscribeTimeout bounds leave/heartbeat/publish calls.
	DefaultNonSubscribeTimeout = 10 * time.Second
)

// Config carries the client's keys, identity, and subscribe-loop behavior
// flags. The subscriber reads it on every cycle and never mutates it.
type Config struct {
	// Service keys.
	SubscribeKey string
	PublishKey   string
	SecretKey    string
	AuthKey      string

	// UUID is the client identity, used by the server for presence and by
	// the dispatcher for self state-change detection.
	UUID string

	Origin string
	Secure bool

	SubscribeRequestTimeout    time.Duration
	NonSubscribeRequestTimeout time.Duration

	// RestoreSubscription selects reconnect over forget when the network is
	// lost: when false, a non-restorable loss clears the whole membership.
	RestoreSubscription bool

	// CatchUpOnRestore preserves the cursor across a restore so events
	// delivered during the outage are replayed.
	CatchUpOnRestore bool

	// KeepTimeTokenOnListChange reuses the previous cursor on the initial
	// subscribe after a membership change instead of the server's fresh one.
	KeepTimeTokenOnListChange bool

	// PresenceHeartbeatValue, in seconds, is announced on subscribe and
	// drives the heartbeat loop. Zero disables both.
	PresenceHeartbeatValue int
}

// NewConfig returns a Config with production defaults and a generated UUID.
func NewConfig() *Config {
	c := &Config{
		Origin:                     DefaultOrigin,
		Secure:                     true,
		SubscribeRequestTimeout:    DefaultSubscribeTimeout,
		NonSubscribeRequestTimeout: DefaultNonSubscribeTimeout,
		RestoreSubscription:        true,
		CatchUpOnRestore:           true,
		KeepTimeTokenOnListChange:  true,
	}
	if id, err := uuid.NewV4(); err == nil {
		c.UUID = "drift-" + id.String()
	}
	return c
}
