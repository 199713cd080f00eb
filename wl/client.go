// Package wl is a client for a Wiener-Linien-style realtime monitor API.
// It issues one HTTP call per stop code and maps transport and in-body
// failures onto the proxy's error taxonomy. Caching and rate limiting are
// composed on top by the broker, not here.
package wl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://www.wienerlinien.at/ogd_realtime/monitor"

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 15 * time.Second

type Client struct {
	http    *http.Client
	baseURL *url.URL
	sender  string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

// WithSender sets the optional API sender token passed on every request.
func WithSender(token string) Option {
	return func(c *Client) { c.sender = token }
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchRaw fetches the monitor payload for one stop code and returns the
// body verbatim. The body is still inspected for the upstream message code
// so quota and API failures surface as classified errors, not as payloads.
func (c *Client) FetchRaw(ctx context.Context, stopID string) (Raw, error) {
	u := *c.baseURL
	q := u.Query()
	q.Set("stopId", stopID)
	if c.sender != "" {
		q.Set("sender", c.sender)
	}
	q.Set("activateTrafficInfo", "stoerunglang")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, StopID: stopID, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(stopID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to body inspection
	case http.StatusForbidden:
		return nil, &Error{Kind: KindAccessDenied, StopID: stopID, Message: "access denied by upstream"}
	case http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, StopID: stopID, Message: "stop not found upstream"}
	default:
		return nil, &Error{Kind: KindUpstreamAPI, StopID: stopID,
			Message: fmt.Sprintf("upstream status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, StopID: stopID, Message: "read body", Err: err}
	}

	var envelope MonitorResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{Kind: KindUnknown, StopID: stopID, Message: "decode body", Err: err}
	}

	switch envelope.Message.MessageCode {
	case CodeOK:
		return Raw(body), nil
	case CodeRateLimited:
		return nil, &Error{Kind: KindUpstreamRateLimited, StopID: stopID,
			Message: "upstream request quota exceeded"}
	default:
		return nil, &Error{Kind: KindUpstreamAPI, StopID: stopID,
			Message: fmt.Sprintf("upstream message code %d: %s", envelope.Message.MessageCode, envelope.Message.Value)}
	}
}

// classifyTransport separates timeouts from connection-level failures
// (DNS, refused). Everything else stays unknown.
func classifyTransport(stopID string, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return &Error{Kind: KindTimeout, StopID: stopID, Message: "upstream request timed out", Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, StopID: stopID, Message: "upstream request timed out", Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, StopID: stopID, Message: "upstream request timed out", Err: err}
	}
	var oe *net.OpError
	var de *net.DNSError
	if errors.As(err, &oe) || errors.As(err, &de) {
		return &Error{Kind: KindConnection, StopID: stopID, Message: "cannot reach upstream", Err: err}
	}
	if errors.As(err, &ue) {
		// url.Error without a clearer cause is still a transport problem
		return &Error{Kind: KindConnection, StopID: stopID, Message: "cannot reach upstream", Err: err}
	}
	return &Error{Kind: KindUnknown, StopID: stopID, Message: "request failed", Err: err}
}
