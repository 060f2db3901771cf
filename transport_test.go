package drift

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testTransport(t *testing.T, handler http.HandlerFunc) (*httpTransport, *Config) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := NewConfig()
	config.UUID = "test-uuid"
	config.SubscribeKey = "sub-key"
	config.PublishKey = "pub-key"
	config.Secure = false
	config.Origin = strings.TrimPrefix(server.URL, "http://")
	return newHTTPTransport(config), config
}

func sendAndWait(t *testing.T, transport *httpTransport, req *Request) *Status {
	t.Helper()
	result := make(chan *Status, 1)
	transport.Send(req, func(status *Status) { result <- status })
	select {
	case status := <-result:
		return status
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
		return nil
	}
}

func TestTransportSubscribeSuccess(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	transport, _ := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"tt":"100","events":[{"subscribed_channel":"a","payload":{"x":1}}]}`))
	})

	status := sendAndWait(t, transport, &Request{
		Operation: OpSubscribe,
		Channels:  []string{"a", "b"},
		Timetoken: 42,
		Query:     url.Values{"heartbeat": []string{"300"}},
	})

	if status.Error {
		t.Fatalf("unexpected error: %v", status.ErrorData)
	}
	if gotPath != "/v2/subscribe/sub-key/a,b/0/42" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery.Get("uuid") != "test-uuid" || gotQuery.Get("heartbeat") != "300" {
		t.Fatalf("query = %v", gotQuery)
	}
	if status.Envelope == nil || status.Envelope.Timetoken != 100 {
		t.Fatalf("envelope = %+v", status.Envelope)
	}
	if len(status.Envelope.Events) != 1 || status.Envelope.Events[0].SubscribedChannel != "a" {
		t.Fatalf("events = %+v", status.Envelope.Events)
	}
	if status.Request == nil || status.Request.Timetoken != 42 {
		t.Fatal("completion must carry the originating request")
	}
}

func TestTransportEmptyChannelsPlaceholder(t *testing.T) {
	var gotPath string
	transport, _ := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"tt":"1","events":[]}`))
	})

	sendAndWait(t, transport, &Request{Operation: OpSubscribe})
	if gotPath != "/v2/subscribe/sub-key/,/0/0" {
		t.Fatalf("path = %q, want the \",\" placeholder", gotPath)
	}
}

func TestTransportAccessDenied(t *testing.T) {
	transport, _ := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":403,"message":"Forbidden"}`))
	})

	status := sendAndWait(t, transport, &Request{Operation: OpSubscribe, Channels: []string{"a"}})
	if !status.Error || status.Category != CategoryAccessDenied {
		t.Fatalf("status = %s error=%v", status.Category, status.Error)
	}
	apiErr, ok := status.ErrorData.(*APIError)
	if !ok || apiErr.Status != 403 {
		t.Fatalf("error data = %#v", status.ErrorData)
	}
}

func TestTransportMalformedBody(t *testing.T) {
	transport, _ := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	status := sendAndWait(t, transport, &Request{Operation: OpSubscribe, Channels: []string{"a"}})
	if !status.Error || status.Category != CategoryMalformedResponse {
		t.Fatalf("status = %s error=%v", status.Category, status.Error)
	}
}

func TestTransportCancelAll(t *testing.T) {
	release := make(chan struct{})
	transport, _ := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	result := make(chan *Status, 1)
	transport.Send(&Request{Operation: OpSubscribe, Channels: []string{"a"}}, func(status *Status) {
		result <- status
	})

	// Let the long-poll get on the wire, then cancel it.
	time.Sleep(100 * time.Millisecond)
	transport.CancelAll()

	select {
	case status := <-result:
		if status.Category != CategoryCancelled {
			t.Fatalf("status = %s, want Cancelled", status.Category)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for cancelled completion")
	}
}

func TestTransportTimeout(t *testing.T) {
	release := make(chan struct{})
	transport, config := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)
	config.SubscribeRequestTimeout = 100 * time.Millisecond
	transport.poll.Timeout = config.SubscribeRequestTimeout

	status := sendAndWait(t, transport, &Request{Operation: OpSubscribe, Channels: []string{"a"}})
	if status.Category != CategoryTimeout {
		t.Fatalf("status = %s, want Timeout", status.Category)
	}
}

func TestTransportNetworkLoss(t *testing.T) {
	transport, config := testTransport(t, func(w http.ResponseWriter, r *http.Request) {})
	config.Origin = "127.0.0.1:1" // nothing listens here

	status := sendAndWait(t, transport, &Request{Operation: OpSubscribe, Channels: []string{"a"}})
	if !status.Error || status.Category != CategoryUnknown {
		t.Fatalf("status = %s error=%v", status.Category, status.Error)
	}
}

func TestTransportLeaveAndHeartbeatPaths(t *testing.T) {
	var paths []string
	transport, _ := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"status":200,"message":"OK"}`))
	})

	sendAndWait(t, transport, &Request{Operation: OpUnsubscribe, Channels: []string{"a"}})
	sendAndWait(t, transport, &Request{Operation: OpHeartbeat, Channels: []string{"a"}})

	if paths[0] != "/v2/presence/sub-key/sub-key/channel/a/leave" {
		t.Fatalf("leave path = %q", paths[0])
	}
	if paths[1] != "/v2/presence/sub-key/sub-key/channel/a/heartbeat" {
		t.Fatalf("heartbeat path = %q", paths[1])
	}
}

func TestTransportPublishPath(t *testing.T) {
	var gotPath string
	transport, _ := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status":200,"message":"Sent"}`))
	})

	status := sendAndWait(t, transport, &Request{
		Operation: OpPublish,
		Channels:  []string{"news"},
		Payload:   []byte(`{"x":1}`),
	})
	if status.Error {
		t.Fatalf("unexpected error: %v", status.ErrorData)
	}
	if !strings.HasPrefix(gotPath, "/publish/pub-key/sub-key/0/news/0/") {
		t.Fatalf("publish path = %q", gotPath)
	}
	if status.Data == nil {
		t.Fatal("completion should carry the decoded body")
	}
}

func TestTransportSignsRequests(t *testing.T) {
	var gotQuery url.Values
	transport, config := testTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"tt":"1","events":[]}`))
	})
	config.SecretKey = "sec-key"

	sendAndWait(t, transport, &Request{Operation: OpSubscribe, Channels: []string{"a"}})
	if gotQuery.Get("signature") == "" {
		t.Fatal("signed configuration must add a signature parameter")
	}
}
