// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/pkg/errors"
)

// DefaultHTTPURL is where mavlink2rest listens by default.
const DefaultHTTPURL = "http://localhost:8088"

// HTTPChannel talks to a mavlink2rest REST endpoint. Send posts an
// envelope to /mavlink; Poll reads the last message of a type received
// from the vehicle.
type HTTPChannel struct {
	base     *url.URL
	client   *http.Client
	vehicle  mavlink.Target
	username string
	password string

	mu     sync.Mutex
	header mavlink.Header
}

// HTTPOption configures an HTTPChannel.
type HTTPOption func(*HTTPChannel)

// WithBasicAuth sets HTTP Basic credentials.
func WithBasicAuth(username, password string) HTTPOption {
	return func(c *HTTPChannel) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPChannel) {
		c.client = client
	}
}

// WithInsecureTLS disables certificate verification for https URLs.
func WithInsecureTLS() HTTPOption {
	return func(c *HTTPChannel) {
		c.client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

// WithVehicle selects which vehicle's messages Poll reads.
func WithVehicle(t mavlink.Target) HTTPOption {
	return func(c *HTTPChannel) {
		c.vehicle = t
	}
}

// WithHeader sets the sender header of outgoing envelopes.
func WithHeader(h mavlink.Header) HTTPOption {
	return func(c *HTTPChannel) {
		c.header = h
	}
}

// NewHTTPChannel creates a channel for the bridge at baseURL.
func NewHTTPChannel(baseURL string, opts ...HTTPOption) (*HTTPChannel, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid bridge URL")
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, errors.Errorf("unsupported URL scheme: %s (use http:// or https://)", u.Scheme)
	}

	c := &HTTPChannel{
		base:    u,
		client:  &http.Client{Timeout: 5 * time.Second},
		vehicle: mavlink.DefaultTarget,
		header:  mavlink.GCSHeader(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// String describes the channel for status output.
func (c *HTTPChannel) String() string {
	return "HTTP: " + c.base.String()
}

func (c *HTTPChannel) nextHeader() mavlink.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.header
	c.header.Sequence++
	return h
}

func (c *HTTPChannel) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// Send posts m to the bridge. Delivery to the vehicle is not confirmed.
func (c *HTTPChannel) Send(ctx context.Context, m mavlink.Message) error {
	body, err := json.Marshal(mavlink.Envelope{Header: c.nextHeader(), Message: m})
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/mavlink", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "send %s", m.Type)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("send %s: HTTP %d", m.Type, resp.StatusCode)
	}
	return nil
}

// restMessage is the bridge's reply to a message query.
type restMessage struct {
	Message mavlink.Message `json:"message"`
	Status  struct {
		Time struct {
			Counter    uint64    `json:"counter"`
			LastUpdate time.Time `json:"last_update"`
		} `json:"time"`
	} `json:"status"`
}

// Poll returns the last msgType message received from the vehicle, or nil
// when the bridge has none.
func (c *HTTPChannel) Poll(ctx context.Context, msgType string) (*mavlink.Message, error) {
	path := fmt.Sprintf("/v1/mavlink/vehicles/%d/components/%d/messages/%s",
		c.vehicle.System, c.vehicle.Component, url.PathEscape(msgType))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "poll %s", msgType)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return nil, errors.Errorf("poll %s: HTTP %d", msgType, resp.StatusCode)
	}

	var rm restMessage
	if err := json.NewDecoder(resp.Body).Decode(&rm); err != nil {
		return nil, errors.Wrapf(err, "decode %s", msgType)
	}

	m := rm.Message
	m.Counter = rm.Status.Time.Counter
	m.Received = rm.Status.Time.LastUpdate
	if m.Received.IsZero() {
		m.Received = time.Now()
	}
	return &m, nil
}

// Close releases idle connections.
func (c *HTTPChannel) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
