// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/pkg/errors"
)

// ErrConnectionClosed is returned once the underlying connection has failed
// or been closed.
var ErrConnectionClosed = errors.New("connection closed")

// WebSocketChannel exchanges JSON envelopes with a mavlink2rest WebSocket
// endpoint. Inbound messages from the vehicle fill a Mailbox; binary frames
// are decoded with the serial frame codec.
type WebSocketChannel struct {
	conn    *websocket.Conn
	url     string
	mailbox *Mailbox
	vehicle mavlink.Target

	writeMu sync.Mutex
	header  mavlink.Header

	done chan struct{}
	mu   sync.Mutex
	err  error
}

// DialWebSocket connects to wsURL, using HTTP Basic auth when username is
// set.
func DialWebSocket(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (*WebSocketChannel, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, errors.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "WebSocket connection failed (HTTP %d)", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "WebSocket connection failed")
	}

	return NewWebSocketChannel(conn, wsURL), nil
}

// NewWebSocketChannel wraps an established connection and starts reading
// from it.
func NewWebSocketChannel(conn *websocket.Conn, name string) *WebSocketChannel {
	w := &WebSocketChannel{
		conn:    conn,
		url:     name,
		mailbox: NewMailbox(),
		vehicle: mavlink.DefaultTarget,
		header:  mavlink.GCSHeader(),
		done:    make(chan struct{}),
	}
	go w.readLoop()
	return w
}

// String describes the channel for status output.
func (w *WebSocketChannel) String() string {
	return "WebSocket: " + w.url
}

// Mailbox exposes the inbound mailbox, e.g. to tap every message.
func (w *WebSocketChannel) Mailbox() *Mailbox {
	return w.mailbox
}

func (w *WebSocketChannel) readLoop() {
	defer close(w.done)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.fail(err)
			return
		}

		var env mavlink.Envelope
		switch messageType {
		case websocket.TextMessage:
			env, err = decodeJSONEnvelope(data)
		case websocket.BinaryMessage:
			env, err = decodeBinaryEnvelope(data)
		default:
			continue
		}
		if err != nil {
			continue
		}
		if !fromVehicle(env.Header, w.vehicle) {
			continue
		}
		w.mailbox.Put(env.Message)
	}
}

func (w *WebSocketChannel) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

// Err returns the error that stopped the reader, if any.
func (w *WebSocketChannel) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Send writes m as a JSON envelope.
func (w *WebSocketChannel) Send(ctx context.Context, m mavlink.Message) error {
	if w.Err() != nil {
		return ErrConnectionClosed
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	env := mavlink.Envelope{Header: w.header, Message: m}
	w.header.Sequence++

	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	if deadline, ok := ctx.Deadline(); ok {
		w.conn.SetWriteDeadline(deadline)
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrapf(err, "send %s", m.Type)
	}
	return nil
}

// Poll returns the last msgType message received, or nil.
func (w *WebSocketChannel) Poll(ctx context.Context, msgType string) (*mavlink.Message, error) {
	if w.Err() != nil {
		return nil, ErrConnectionClosed
	}
	return w.mailbox.Get(msgType), nil
}

// Close closes the connection and waits for the reader to stop.
func (w *WebSocketChannel) Close() error {
	w.writeMu.Lock()
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()

	err := w.conn.Close()
	<-w.done
	return err
}

// decodeJSONEnvelope accepts either a full envelope or a bare message.
func decodeJSONEnvelope(data []byte) (mavlink.Envelope, error) {
	var raw struct {
		Header  *mavlink.Header `json:"header"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return mavlink.Envelope{}, err
	}

	var env mavlink.Envelope
	if len(raw.Message) > 0 {
		if err := json.Unmarshal(raw.Message, &env.Message); err != nil {
			return mavlink.Envelope{}, err
		}
		if raw.Header != nil {
			env.Header = *raw.Header
		}
		return env, nil
	}

	if err := json.Unmarshal(data, &env.Message); err != nil {
		return mavlink.Envelope{}, err
	}
	return env, nil
}

func decodeBinaryEnvelope(data []byte) (mavlink.Envelope, error) {
	d := mavlink.NewDecoder()
	for _, b := range data {
		f, err := d.DecodeByte(b)
		if err != nil {
			return mavlink.Envelope{}, err
		}
		if f != nil {
			return f.Envelope(), nil
		}
	}
	return mavlink.Envelope{}, errors.New("incomplete frame")
}

// fromVehicle reports whether a message with header h came from t. A zero
// header (bare message) is accepted.
func fromVehicle(h mavlink.Header, t mavlink.Target) bool {
	if h.SystemID == 0 && h.ComponentID == 0 {
		return true
	}
	return h.SystemID == t.System && h.ComponentID == t.Component
}
