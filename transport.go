package drift

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
)

// Completion delivers the classified outcome of a request.
type Completion func(*Status)

// Transport executes service requests. Send must not block the caller; the
// completion runs on the transport's goroutine. CancelAll aborts in-flight
// subscribe long-polls, which then complete with the Cancelled category.
type Transport interface {
	Send(req *Request, done Completion)
	CancelAll()
}

// httpTransport talks to the service over HTTP. Long-polls run on a plain
// client with a generous timeout and a per-request cancel context;
// everything else goes through a pester client that retries with
// exponential backoff.
type httpTransport struct {
	config *Config
	poll   *http.Client
	short  *pester.Client

	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc
	nextID   uint64
}

func newHTTPTransport(config *Config) *httpTransport {
	short := pester.New()
	short.Backoff = pester.ExponentialBackoff
	short.MaxRetries = 3
	short.Timeout = config.NonSubscribeRequestTimeout
	short.LogHook = func(e pester.ErrEntry) {
		log.Debugf("drift: retrying after failed attempt: %+v", e)
	}
	return &httpTransport{
		config:   config,
		poll:     &http.Client{Timeout: config.SubscribeRequestTimeout},
		short:    short,
		inflight: make(map[uint64]context.CancelFunc),
	}
}

func (t *httpTransport) Send(req *Request, done Completion) {
	go t.send(req, done)
}

func (t *httpTransport) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, cancel := range t.inflight {
		cancel()
		delete(t.inflight, id)
	}
}

func (t *httpTransport) track(cancel context.CancelFunc) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.inflight[t.nextID] = cancel
	return t.nextID
}

func (t *httpTransport) untrack(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
}

func (t *httpTransport) send(req *Request, done Completion) {
	status := &Status{
		Operation:     req.Operation,
		Request:       req,
		Channels:      req.Channels,
		ChannelGroups: req.ChannelGroups,
	}

	u := t.buildURL(req)
	var resp *http.Response
	var err error

	if req.Operation == OpSubscribe {
		ctx, cancel := context.WithCancel(context.Background())
		id := t.track(cancel)
		defer t.untrack(id)
		defer cancel()

		var httpReq *http.Request
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err == nil {
			resp, err = t.poll.Do(httpReq)
		}
	} else {
		var httpReq *http.Request
		httpReq, err = http.NewRequest(http.MethodGet, u, nil)
		if err == nil {
			resp, err = t.short.Do(httpReq)
		}
	}

	if err != nil {
		status.Error = true
		status.ErrorData = errors.Wrapf(err, "%s request failed", req.Operation)
		status.Category = classifySendError(err)
		done(status)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		status.Error = true
		status.ErrorData = errors.Wrap(err, "read response body")
		status.Category = classifySendError(err)
		done(status)
		return
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		status.Error = true
		status.Category = CategoryAccessDenied
		status.ErrorData = serviceError(body, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		status.Error = true
		status.Category = CategoryMalformedResponse
		status.ErrorData = serviceError(body, resp.StatusCode)
	case req.Operation == OpSubscribe:
		var envelope SubscribeEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			status.Error = true
			status.Category = CategoryMalformedResponse
			status.ErrorData = errors.Wrap(err, "decode subscribe envelope")
			break
		}
		status.Envelope = &envelope
		status.Category = CategoryAcknowledgment
	default:
		status.Data = json.RawMessage(body)
		status.Category = CategoryAcknowledgment
	}
	done(status)
}

func serviceError(body []byte, code int) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.Status = code
		return &apiErr
	}
	return &APIError{Status: code, Message: http.StatusText(code)}
}

// classifySendError maps a transport failure onto the status taxonomy:
// context cancellation, deadline, TLS handshake trouble, or network loss.
func classifySendError(err error) StatusCategory {
	if errors.Is(err, context.Canceled) {
		return CategoryCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	var recordErr tls.RecordHeaderError
	var certErr x509.CertificateInvalidError
	var hostErr x509.HostnameError
	var authErr x509.UnknownAuthorityError
	if errors.As(err, &recordErr) || errors.As(err, &certErr) ||
		errors.As(err, &hostErr) || errors.As(err, &authErr) {
		return CategoryTLSConnectionFailed
	}
	return CategoryUnknown
}

func (t *httpTransport) buildURL(req *Request) string {
	cfg := t.config
	scheme := "http"
	if cfg.Secure {
		scheme = "https"
	}

	var path string
	switch req.Operation {
	case OpSubscribe:
		path = "/v2/subscribe/" + url.PathEscape(cfg.SubscribeKey) +
			"/" + req.channelPath() +
			"/0/" + strconv.FormatUint(req.Timetoken, 10)
	case OpUnsubscribe:
		path = "/v2/presence/sub-key/" + url.PathEscape(cfg.SubscribeKey) +
			"/channel/" + req.channelPath() + "/leave"
	case OpHeartbeat:
		path = "/v2/presence/sub-key/" + url.PathEscape(cfg.SubscribeKey) +
			"/channel/" + req.channelPath() + "/heartbeat"
	case OpHereNow:
		path = "/v2/presence/sub-key/" + url.PathEscape(cfg.SubscribeKey) +
			"/channel/" + req.channelPath()
	case OpPublish:
		path = "/publish/" + url.PathEscape(cfg.PublishKey) +
			"/" + url.PathEscape(cfg.SubscribeKey) +
			"/0/" + req.channelPath() + "/0"
		if len(req.Payload) > 0 {
			path += "/" + url.PathEscape(string(req.Payload))
		}
	}

	query := url.Values{}
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("uuid", cfg.UUID)
	if cfg.AuthKey != "" {
		query.Set("auth", cfg.AuthKey)
	}
	if cfg.SecretKey != "" {
		query.Set("signature", signRequest(cfg.SecretKey, cfg.SubscribeKey, cfg.PublishKey, path, query))
	}

	return scheme + "://" + cfg.Origin + path + "?" + query.Encode()
}
