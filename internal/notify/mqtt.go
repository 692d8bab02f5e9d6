// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package notify mirrors transfer progress to an MQTT broker so a fleet
// dashboard can follow uploads and downloads.
package notify

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/openaerial/surveyplan/internal/config"
	"github.com/openaerial/surveyplan/internal/log"
	"github.com/openaerial/surveyplan/pkg/transfer"
	"github.com/pkg/errors"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
	// milliseconds allowed for in-flight work on Disconnect
	disconnectQuiesce = 250
)

// Event is published for every progress report.
type Event struct {
	MessageID string  `json:"message_id"`
	Timestamp int64   `json:"timestamp"`
	Session   string  `json:"session,omitempty"`
	Current   int     `json:"current"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Message   string  `json:"message"`
}

// Summary is published once when a transfer ends.
type Summary struct {
	MessageID string  `json:"message_id"`
	Timestamp int64   `json:"timestamp"`
	Session   string  `json:"session"`
	Direction string  `json:"direction"`
	Status    string  `json:"status"`
	Total     int     `json:"total"`
	Resends   int     `json:"resends"`
	Elapsed   float64 `json:"elapsed_seconds"`
	Error     string  `json:"error,omitempty"`
}

// Publisher is a transfer.Observer that publishes to MQTT.
type Publisher struct {
	client  mqtt.Client
	topic   string
	qos     byte
	session string
	log     *log.Logger
}

// Connect dials the broker in cfg and returns a publisher for cfg.Topic.
func Connect(cfg config.MQTTConfig, logger *log.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("no MQTT broker configured")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetProtocolVersion(4) // MQTT 3.1.1

	client := mqtt.NewClient(opts)
	logger.Info("Connecting MQTT", "broker", cfg.Broker)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, errors.Errorf("MQTT connect to %s timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, errors.Wrapf(err, "MQTT connect to %s", cfg.Broker)
	}

	return NewPublisher(client, cfg.Topic, cfg.QoS, logger), nil
}

// NewPublisher wraps a connected client.
func NewPublisher(client mqtt.Client, topic string, qos byte, logger *log.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		qos:    qos,
		log:    logger,
	}
}

// SetSession tags subsequent events with a session id.
func (p *Publisher) SetSession(id uuid.UUID) {
	p.session = id.String()
}

// SessionStarted tags the events of a new transfer with its session id.
func (p *Publisher) SessionStarted(id uuid.UUID, dir transfer.Direction) {
	p.SetSession(id)
	p.log.Debug("MQTT session", "session", p.session, "direction", dir.String())
}

// Progress publishes an Event without waiting for the broker.
func (p *Publisher) Progress(current, total int, msg string) {
	ev := Event{
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Session:   p.session,
		Current:   current,
		Total:     total,
		Message:   msg,
	}
	if total > 0 {
		ev.Percent = float64(current) * 100 / float64(total)
	}
	p.publish(p.topic, ev, false)
}

// Result publishes a retained Summary of a finished transfer to
// topic/result.
func (p *Publisher) Result(res *transfer.Result, err error) {
	if res == nil {
		return
	}
	s := Summary{
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Session:   res.SessionID.String(),
		Direction: res.Direction.String(),
		Status:    res.Status.String(),
		Total:     res.Total,
		Resends:   res.Resends,
		Elapsed:   res.Elapsed.Seconds(),
	}
	if err != nil {
		s.Error = err.Error()
	}
	p.publish(p.topic+"/result", s, true)
}

func (p *Publisher) publish(topic string, v interface{}, retain bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.log.Warn("MQTT encode failed", "error", err.Error())
		return
	}
	tok := p.client.Publish(topic, p.qos, retain, payload)
	go func() {
		if !tok.WaitTimeout(publishTimeout) {
			p.log.Warn("MQTT publish timed out", "topic", topic)
			return
		}
		if err := tok.Error(); err != nil {
			p.log.Warn("MQTT publish failed", "topic", topic, "error", err.Error())
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}
