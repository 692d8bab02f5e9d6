// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"io"
	"sync"

	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// StreamChannel exchanges framed envelopes over a byte stream such as a
// serial port.
type StreamChannel struct {
	rw      io.ReadWriteCloser
	name    string
	mailbox *Mailbox
	vehicle mavlink.Target

	writeMu sync.Mutex
	header  mavlink.Header

	done chan struct{}
	mu   sync.Mutex
	err  error

	// malformed frames seen by the reader
	decodeErrors uint64
}

// NewStreamChannel wraps rw and starts reading frames from it.
func NewStreamChannel(rw io.ReadWriteCloser, name string) *StreamChannel {
	s := &StreamChannel{
		rw:      rw,
		name:    name,
		mailbox: NewMailbox(),
		vehicle: mavlink.DefaultTarget,
		header:  mavlink.GCSHeader(),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// OpenSerial opens a serial port and returns a channel over it.
func OpenSerial(portName string, baudRate int) (*StreamChannel, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", portName)
	}
	return NewStreamChannel(port, portName), nil
}

// String describes the channel for status output.
func (s *StreamChannel) String() string {
	return "Serial: " + s.name
}

// Mailbox exposes the inbound mailbox.
func (s *StreamChannel) Mailbox() *Mailbox {
	return s.mailbox
}

func (s *StreamChannel) readLoop() {
	defer close(s.done)
	fr := mavlink.NewFrameReader(s.rw)
	for {
		f, err := fr.ReadFrame()
		if err != nil {
			var de *mavlink.DecodeError
			if errors.As(err, &de) {
				s.mu.Lock()
				s.decodeErrors++
				s.mu.Unlock()
				continue
			}
			s.fail(err)
			return
		}
		if !fromVehicle(f.Header, s.vehicle) {
			continue
		}
		s.mailbox.Put(f.Message)
	}
}

func (s *StreamChannel) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the error that stopped the reader, if any.
func (s *StreamChannel) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// DecodeErrors returns the number of malformed frames dropped so far.
func (s *StreamChannel) DecodeErrors() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decodeErrors
}

// Send writes m as a single frame.
func (s *StreamChannel) Send(ctx context.Context, m mavlink.Message) error {
	if s.Err() != nil {
		return ErrConnectionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := mavlink.EncodeFrame(mavlink.Envelope{Header: s.header, Message: m})
	if err != nil {
		return err
	}
	s.header.Sequence++

	if _, err := s.rw.Write(data); err != nil {
		return errors.Wrapf(err, "send %s", m.Type)
	}
	return nil
}

// Poll returns the last msgType message received, or nil.
func (s *StreamChannel) Poll(ctx context.Context, msgType string) (*mavlink.Message, error) {
	if s.Err() != nil {
		return nil, ErrConnectionClosed
	}
	return s.mailbox.Get(msgType), nil
}

// Close closes the stream and waits for the reader to stop.
func (s *StreamChannel) Close() error {
	err := s.rw.Close()
	<-s.done
	return err
}
