// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package notify

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/openaerial/surveyplan/internal/config"
	"github.com/openaerial/surveyplan/pkg/transfer"
	"github.com/pkg/errors"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// fakeClient records publishes. Methods not overridden panic.
type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	msgs         []published
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func TestPublisher_Progress(t *testing.T) {
	fc := &fakeClient{}
	p := NewPublisher(fc, "fleet/transfer", 1, nil)
	id := uuid.New()
	p.SetSession(id)

	p.Progress(3, 12, "Uploading item 4 of 12")
	p.Progress(0, 0, "Requesting mission count")

	if len(fc.msgs) != 2 {
		t.Fatalf("published %d messages", len(fc.msgs))
	}
	m := fc.msgs[0]
	if m.topic != "fleet/transfer" || m.qos != 1 || m.retain {
		t.Errorf("publish = %+v", m)
	}

	var ev Event
	if err := json.Unmarshal(m.payload, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Current != 3 || ev.Total != 12 || ev.Percent != 25 || ev.Session != id.String() {
		t.Errorf("event = %+v", ev)
	}
	if ev.MessageID == "" || ev.Timestamp == 0 {
		t.Error("message id and timestamp must be set")
	}

	json.Unmarshal(fc.msgs[1].payload, &ev)
	if ev.Percent != 0 {
		t.Errorf("percent with zero total = %v", ev.Percent)
	}
}

func TestPublisher_Result(t *testing.T) {
	fc := &fakeClient{}
	p := NewPublisher(fc, "t", 0, nil)

	res := &transfer.Result{
		SessionID: uuid.New(),
		Direction: transfer.DirectionUpload,
		Status:    transfer.StatusFailed,
		Total:     9,
		Resends:   4,
		Elapsed:   1500 * time.Millisecond,
	}
	p.Result(res, errors.New("retry budget exhausted"))
	p.Result(nil, nil)

	if len(fc.msgs) != 1 {
		t.Fatalf("published %d messages", len(fc.msgs))
	}
	m := fc.msgs[0]
	if m.topic != "t/result" || !m.retain {
		t.Errorf("publish = %+v", m)
	}

	var s Summary
	if err := json.Unmarshal(m.payload, &s); err != nil {
		t.Fatal(err)
	}
	if s.Status != "FAILED" || s.Direction != "UPLOAD" || s.Elapsed != 1.5 || s.Error == "" {
		t.Errorf("summary = %+v", s)
	}
}

func TestPublisher_IsObserver(t *testing.T) {
	var _ transfer.Observer = (*Publisher)(nil)
	var _ transfer.SessionObserver = (*Publisher)(nil)

	fc := &fakeClient{}
	p := NewPublisher(fc, "t", 0, nil)
	p.Close()
	if !fc.disconnected {
		t.Error("Close() did not disconnect")
	}
}

func TestConnect_NoBroker(t *testing.T) {
	if _, err := Connect(config.MQTTConfig{}, nil); err == nil {
		t.Error("expected error without a broker")
	}
}
