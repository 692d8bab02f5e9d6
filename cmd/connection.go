// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/openaerial/surveyplan/internal/config"
	"github.com/openaerial/surveyplan/pkg/bridge"
	"github.com/openaerial/surveyplan/pkg/mission"
	"github.com/openaerial/surveyplan/pkg/transfer"
	"github.com/openaerial/surveyplan/pkg/vehiclesim"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Connection is an open link to the vehicle.
type Connection interface {
	transfer.Channel
	io.Closer
	fmt.Stringer
}

// GetPassword retrieves password from the environment or prompts the user
func GetPassword() (string, error) {
	if cfg.Bridge.Password != "" {
		return cfg.Bridge.Password, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", errors.Wrap(err, "failed to read password")
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens the transport selected by configuration and flags
func OpenConnection(ctx context.Context) (Connection, error) {
	b := cfg.Bridge
	target := cfg.Target()

	switch b.Transport {
	case config.TransportSim:
		return openSimulator()

	case config.TransportSerial:
		if b.SerialPort == "" {
			return nil, errors.New("--port must be specified for the serial transport")
		}
		return bridge.OpenSerial(b.SerialPort, b.BaudRate)
	}

	password := ""
	if b.Username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, err
		}
	}

	if b.Transport == config.TransportWebSocket {
		return bridge.DialWebSocket(ctx, b.URL, b.Username, password, b.SkipSSLVerify)
	}

	opts := []bridge.HTTPOption{bridge.WithVehicle(target)}
	if b.Username != "" {
		opts = append(opts, bridge.WithBasicAuth(b.Username, password))
	}
	if b.SkipSSLVerify {
		opts = append(opts, bridge.WithInsecureTLS())
	}
	return bridge.NewHTTPChannel(b.URL, opts...)
}

func openSimulator() (Connection, error) {
	var opts []vehiclesim.Option
	if simDropEvery > 0 {
		opts = append(opts, vehiclesim.WithDropEvery(simDropEvery))
	}
	v := vehiclesim.New(opts...)

	if simMissionFile != "" {
		f, err := mission.Load(simMissionFile)
		if err != nil {
			return nil, errors.WithMessage(err, "simulator mission")
		}
		home := mission.NewWaypoint(f.Home.Lat, f.Home.Lon, 0)
		v.Preload(append([]mission.Item{home}, f.Items...))
	}
	return v, nil
}
