package drift

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ============================================================================
// Categories, States, Operations
// ============================================================================

// StatusCategory classifies a completion or lifecycle transition reported to
// listeners.
type StatusCategory int

const (
	CategoryUnknown StatusCategory = iota
	CategoryConnected
	CategoryReconnected
	CategoryDisconnected
	CategoryUnexpectedDisconnect
	CategoryAccessDenied
	CategoryCancelled
	CategoryTimeout
	CategoryMalformedResponse
	CategoryTLSConnectionFailed
	CategoryDecryptionError
	CategoryAcknowledgment
)

var categoryNames = map[StatusCategory]string{
	CategoryUnknown:              "Unknown",
	CategoryConnected:            "Connected",
	CategoryReconnected:          "Reconnected",
	CategoryDisconnected:         "Disconnected",
	CategoryUnexpectedDisconnect: "UnexpectedDisconnect",
	CategoryAccessDenied:         "AccessDenied",
	CategoryCancelled:            "Cancelled",
	CategoryTimeout:              "Timeout",
	CategoryMalformedResponse:    "MalformedResponse",
	CategoryTLSConnectionFailed:  "TLSConnectionFailed",
	CategoryDecryptionError:      "DecryptionError",
	CategoryAcknowledgment:       "Acknowledgment",
}

func (c StatusCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ConnectionState is the subscribe loop's lifecycle state.
type ConnectionState int

const (
	StateInitialized ConnectionState = iota
	StateConnected
	StateDisconnected
	StateDisconnectedUnexpectedly
	StateAccessRightsError
)

var stateNames = map[ConnectionState]string{
	StateInitialized:              "Initialized",
	StateConnected:                "Connected",
	StateDisconnected:             "Disconnected",
	StateDisconnectedUnexpectedly: "DisconnectedUnexpectedly",
	StateAccessRightsError:        "AccessRightsError",
}

func (s ConnectionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Initialized"
}

// Operation identifies a service endpoint.
type Operation int

const (
	OpSubscribe Operation = iota
	OpUnsubscribe
	OpHeartbeat
	OpPublish
	OpHereNow
)

var operationNames = map[Operation]string{
	OpSubscribe:   "subscribe",
	OpUnsubscribe: "leave",
	OpHeartbeat:   "heartbeat",
	OpPublish:     "publish",
	OpHereNow:     "here-now",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// ============================================================================
// Status
// ============================================================================

// Status is produced on every completion and every lifecycle transition.
// After it is handed to listeners it is read-only.
type Status struct {
	Category  StatusCategory
	Operation Operation
	Error     bool
	ErrorData error

	// Cursor snapshot at annotation time.
	CurrentTimetoken uint64
	LastTimetoken    uint64

	// Membership snapshot at annotation time.
	Channels      []string
	ChannelGroups []string

	// Envelope is the decoded subscribe body; after event dispatch only its
	// Timetoken survives.
	Envelope *SubscribeEnvelope

	// Data is the decoded body of a non-subscribe completion.
	Data json.RawMessage

	// Request is the originating request; its Timetoken tells the handler
	// whether the completed subscribe was an initial one.
	Request *Request

	// AutoRetry marks a failure the subscriber will recover from on its own.
	// CancelRetry, when set, lets the user disarm that recovery.
	AutoRetry   bool
	CancelRetry func()
}

func (s *Status) clone() *Status {
	dup := *s
	return &dup
}

// ============================================================================
// Subscribe envelope
// ============================================================================

// SubscribeEnvelope is the decoded body of a subscribe long-poll: the next
// cursor plus a batch of events.
type SubscribeEnvelope struct {
	Timetoken uint64
	Events    []SubscribeEvent
}

type subscribeEnvelopeWire struct {
	Timetoken json.RawMessage  `json:"tt"`
	Events    []SubscribeEvent `json:"events"`
}

func (e *SubscribeEnvelope) UnmarshalJSON(data []byte) error {
	var wire subscribeEnvelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	tt, err := parseTimetoken(wire.Timetoken)
	if err != nil {
		return err
	}
	e.Timetoken = tt
	e.Events = wire.Events
	return nil
}

func (e SubscribeEnvelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(subscribeEnvelopeWire{
		Timetoken: json.RawMessage(strconv.Quote(strconv.FormatUint(e.Timetoken, 10))),
		Events:    e.Events,
	})
}

// parseTimetoken accepts the token as either a JSON string or a JSON number.
func parseTimetoken(raw json.RawMessage) (uint64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	s = strings.Trim(s, `"`)
	if tt, err := strconv.ParseUint(s, 10, 64); err == nil {
		return tt, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid timetoken %q", s)
	}
	return uint64(f), nil
}

// SubscribeEvent is a single entry in a subscribe batch: either a message
// payload or a presence descriptor.
type SubscribeEvent struct {
	SubscribedChannel string           `json:"subscribed_channel"`
	ActualChannel     string           `json:"actual_channel,omitempty"`
	Payload           json.RawMessage  `json:"payload,omitempty"`
	Presence          *PresencePayload `json:"presence,omitempty"`
	DecryptError      bool             `json:"decrypt_error,omitempty"`
}

// PresencePayload describes a join/leave/timeout/state-change on a channel.
type PresencePayload struct {
	Event     string                 `json:"presence_event"`
	UUID      string                 `json:"uuid"`
	State     map[string]interface{} `json:"state,omitempty"`
	Timestamp int64                  `json:"timestamp,omitempty"`
}

const (
	PresenceEventJoin        = "join"
	PresenceEventLeave       = "leave"
	PresenceEventTimeout     = "timeout"
	PresenceEventStateChange = "state-change"
)

// ============================================================================
// Listener-facing results
// ============================================================================

// Message is a single message event delivered to listeners.
type Message struct {
	// Channel the message was published on; for channel-group subscriptions
	// this differs from Subscription.
	Channel      string
	Subscription string
	Payload      json.RawMessage
	Timetoken    uint64
	DecryptError bool
}

// PresenceEvent is a single presence event delivered to listeners, with the
// presence suffix already stripped from the channel names.
type PresenceEvent struct {
	Channel      string
	Subscription string
	Event        string
	UUID         string
	State        map[string]interface{}
	Timestamp    int64
}

// ============================================================================
// Service errors
// ============================================================================

// APIError is the error body returned by non-subscribe endpoints.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return strconv.Itoa(e.Status) + ": " + e.Message
}
