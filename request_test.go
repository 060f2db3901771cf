package drift

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestBuildSubscribeRequest(t *testing.T) {
	config := NewConfig()
	config.UUID = "test-uuid"
	config.PresenceHeartbeatValue = 300
	sub, _, _ := newTestSubscriber(t, config)

	sub.set.AddChannels([]string{"b", "a", "p-pnpres"})
	sub.set.AddChannelGroups([]string{"g2", "g1"})
	sub.mu.Lock()
	sub.cursor.current = 12345
	sub.mu.Unlock()

	req := sub.buildSubscribeRequest(nil)

	if req.Operation != OpSubscribe {
		t.Fatalf("operation = %s", req.Operation)
	}
	if want := []string{"a", "b", "p-pnpres"}; !reflect.DeepEqual(req.Channels, want) {
		t.Fatalf("channels = %v, want %v", req.Channels, want)
	}
	if req.Timetoken != 12345 {
		t.Fatalf("timetoken = %d", req.Timetoken)
	}
	if got := req.Query.Get("heartbeat"); got != "300" {
		t.Fatalf("heartbeat = %q", got)
	}
	if got := req.Query.Get("channel-group"); got != "g1,g2" {
		t.Fatalf("channel-group = %q", got)
	}
	if req.Query.Has("state") {
		t.Fatalf("state should be absent when empty, got %q", req.Query.Get("state"))
	}
}

func TestBuildSubscribeRequestOmitsDefaults(t *testing.T) {
	sub, _, _ := newTestSubscriber(t, nil)
	sub.set.AddChannels([]string{"a"})

	req := sub.buildSubscribeRequest(nil)
	if req.Query.Has("heartbeat") || req.Query.Has("channel-group") || req.Query.Has("state") {
		t.Fatalf("unexpected query params: %v", req.Query)
	}
}

func TestBuildSubscribeRequestMergesState(t *testing.T) {
	sub, _, _ := newTestSubscriber(t, nil)
	sub.set.AddChannels([]string{"a", "b"})
	sub.stateStore.Set("a", map[string]interface{}{"k": "stored"})
	sub.stateStore.Set("dropped", map[string]interface{}{"k": "gone"})

	req := sub.buildSubscribeRequest(map[string]interface{}{
		"b": map[string]interface{}{"k": "fresh"},
	})

	var state map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(req.Query.Get("state")), &state); err != nil {
		t.Fatalf("state did not parse: %v", err)
	}
	if state["a"]["k"] != "stored" || state["b"]["k"] != "fresh" {
		t.Fatalf("state = %v", state)
	}
	if _, ok := state["dropped"]; ok {
		t.Fatal("state for unsubscribed objects must fall away")
	}

	// The merge result persists for the next cycle.
	if _, ok := sub.stateStore.Get("b"); !ok {
		t.Fatal("incoming state should be written back to the store")
	}
	if _, ok := sub.stateStore.Get("dropped"); ok {
		t.Fatal("stale entries should be gone after the merge")
	}
}

func TestChannelPath(t *testing.T) {
	t.Run("empty means comma", func(t *testing.T) {
		req := &Request{}
		if got := req.channelPath(); got != "," {
			t.Fatalf("channelPath = %q, want \",\"", got)
		}
	})

	t.Run("escapes names", func(t *testing.T) {
		req := &Request{Channels: []string{"a b", "c"}}
		if got := req.channelPath(); got != "a%20b,c" {
			t.Fatalf("channelPath = %q", got)
		}
	})
}

func TestBuildLeaveRequest(t *testing.T) {
	t.Run("channels", func(t *testing.T) {
		req := buildLeaveRequest([]string{"a", "b"}, true)
		if req.Operation != OpUnsubscribe {
			t.Fatalf("operation = %s", req.Operation)
		}
		if !reflect.DeepEqual(req.Channels, []string{"a", "b"}) {
			t.Fatalf("channels = %v", req.Channels)
		}
		if req.Query.Has("channel-group") {
			t.Fatal("channel leave must not name groups")
		}
	})

	t.Run("groups", func(t *testing.T) {
		req := buildLeaveRequest([]string{"g1", "g2"}, false)
		if len(req.Channels) != 0 {
			t.Fatalf("channels = %v, want none", req.Channels)
		}
		if got := req.Query.Get("channel-group"); got != "g1,g2" {
			t.Fatalf("channel-group = %q", got)
		}
	})
}
