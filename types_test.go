package drift

import (
	"encoding/json"
	"testing"
)

func TestSubscribeEnvelopeDecoding(t *testing.T) {
	t.Run("string timetoken", func(t *testing.T) {
		var env SubscribeEnvelope
		if err := json.Unmarshal([]byte(`{"tt":"15123456789012345","events":[]}`), &env); err != nil {
			t.Fatal(err)
		}
		if env.Timetoken != 15123456789012345 {
			t.Fatalf("tt = %d", env.Timetoken)
		}
	})

	t.Run("numeric timetoken", func(t *testing.T) {
		var env SubscribeEnvelope
		if err := json.Unmarshal([]byte(`{"tt":12345,"events":[]}`), &env); err != nil {
			t.Fatal(err)
		}
		if env.Timetoken != 12345 {
			t.Fatalf("tt = %d", env.Timetoken)
		}
	})

	t.Run("missing timetoken", func(t *testing.T) {
		var env SubscribeEnvelope
		if err := json.Unmarshal([]byte(`{"events":[]}`), &env); err != nil {
			t.Fatal(err)
		}
		if env.Timetoken != 0 {
			t.Fatalf("tt = %d", env.Timetoken)
		}
	})

	t.Run("garbage timetoken", func(t *testing.T) {
		var env SubscribeEnvelope
		if err := json.Unmarshal([]byte(`{"tt":"abc","events":[]}`), &env); err == nil {
			t.Fatal("expected a decode error")
		}
	})

	t.Run("presence event", func(t *testing.T) {
		raw := `{"tt":"7","events":[{"subscribed_channel":"a-pnpres","presence":{"presence_event":"join","uuid":"u1","timestamp":99}}]}`
		var env SubscribeEnvelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			t.Fatal(err)
		}
		ev := env.Events[0]
		if ev.Presence == nil || ev.Presence.Event != "join" || ev.Presence.UUID != "u1" {
			t.Fatalf("presence = %+v", ev.Presence)
		}
	})
}

func TestCategoryAndStateNames(t *testing.T) {
	if CategoryUnexpectedDisconnect.String() != "UnexpectedDisconnect" {
		t.Fatal("category name mismatch")
	}
	if StateDisconnectedUnexpectedly.String() != "DisconnectedUnexpectedly" {
		t.Fatal("state name mismatch")
	}
	if StatusCategory(999).String() != "Unknown" {
		t.Fatal("unknown category should print as Unknown")
	}
}
