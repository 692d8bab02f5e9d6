// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"

	"github.com/openaerial/surveyplan/internal/config"
	"github.com/openaerial/surveyplan/internal/log"
	"github.com/spf13/cobra"
)

var (
	configPath string

	// Bridge connection flags
	bridgeURL      string
	transport      string
	portName       string
	baudRate       int
	username       string
	noSSLVerify    bool
	simDropEvery   int
	simMissionFile string

	// Logging flags
	logLevel string
	logDir   string

	// MQTT flags
	mqttBroker string

	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "surveyplan",
	Short: "Aerial survey planner and mission transfer tool",
	Long: `Surveyplan - plan lawnmower survey missions and transfer them to a flight controller.

Plans are computed from a boundary polygon (GeoJSON), a camera and overlap
settings. Missions are transferred through a mavlink2rest compatible bridge.

Connection modes:
  HTTP:      --url http://host:8088 [--username user]
  WebSocket: --transport ws --url ws://host:8088/ws/mavlink [--username user]
  Serial:    --transport serial --port /dev/ttyUSB0 [--baud 115200]
  Simulator: --transport sim [--sim-drop 3] [--sim-mission plan.json]

Settings are read from surveyplan.yaml (or --config), then a .env file and
SURVEYPLAN_* environment variables, then flags. The bridge password is read
from SURVEYPLAN_PASSWORD, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default surveyplan.yaml if present)")

	pf.StringVarP(&bridgeURL, "url", "u", "", "Bridge URL (http(s):// or ws(s)://)")
	pf.StringVarP(&transport, "transport", "t", "", "Transport: http, ws, serial or sim")
	pf.StringVarP(&portName, "port", "p", "", "Serial port device")
	pf.IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	pf.StringVar(&username, "username", "", "Username for HTTP Basic auth")
	pf.BoolVar(&noSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification")
	pf.IntVar(&simDropEvery, "sim-drop", 0, "Simulator: drop every Nth reply")
	pf.StringVar(&simMissionFile, "sim-mission", "", "Simulator: mission file preloaded on the vehicle")

	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&logDir, "log-dir", "", "Log directory (default user config dir)")

	pf.StringVar(&mqttBroker, "mqtt", "", "MQTT broker for transfer progress (tcp://host:1883)")
}

// setup loads the configuration, applies flags over it and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Bridge.URL = bridgeURL
		if !flags.Changed("transport") && strings.HasPrefix(bridgeURL, "ws") {
			cfg.Bridge.Transport = config.TransportWebSocket
		}
	}
	if flags.Changed("transport") {
		cfg.Bridge.Transport = strings.ToLower(transport)
	}
	if flags.Changed("port") {
		cfg.Bridge.SerialPort = portName
		if !flags.Changed("transport") {
			cfg.Bridge.Transport = config.TransportSerial
		}
	}
	if flags.Changed("baud") {
		cfg.Bridge.BaudRate = baudRate
	}
	if flags.Changed("username") {
		cfg.Bridge.Username = username
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Bridge.SkipSSLVerify = noSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-dir") {
		cfg.Logging.Dir = logDir
	}
	if flags.Changed("mqtt") {
		cfg.MQTT.Broker = mqttBroker
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger = log.New(cfg.Logging.Level, cfg.Logging.Dir)
	logger.Info("Command started", "command", cmd.Name(), "transport", cfg.Bridge.Transport)
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
