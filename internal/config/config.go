// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads surveyplan settings. Values come from defaults, then
// a YAML file, then the environment (a .env file is loaded first), and
// finally command line flags applied by the caller.
package config

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/openaerial/surveyplan/pkg/mavlink"
	"github.com/openaerial/surveyplan/pkg/transfer"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is read from the working directory when no config file
// is named.
const DefaultFileName = "surveyplan.yaml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SURVEYPLAN_"

// Transports accepted in BridgeConfig.Transport.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "ws"
	TransportSerial    = "serial"
	TransportSim       = "sim"
)

type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Transfer TransferConfig `yaml:"transfer"`
	Logging  LoggingConfig  `yaml:"logging"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Survey   SurveyConfig   `yaml:"survey"`
}

type BridgeConfig struct {
	URL           string `yaml:"url"`
	Transport     string `yaml:"transport"`
	SerialPort    string `yaml:"serial_port"`
	BaudRate      int    `yaml:"baud_rate"`
	Username      string `yaml:"username"`
	Password      string `yaml:"-"`
	SkipSSLVerify bool   `yaml:"skip_ssl_verify"`
	SystemID      uint8  `yaml:"system_id"`
	ComponentID   uint8  `yaml:"component_id"`
}

type TransferConfig struct {
	PollInterval       time.Duration `yaml:"poll_interval"`
	UploadPollInterval time.Duration `yaml:"upload_poll_interval"`
	ResendInterval     time.Duration `yaml:"resend_interval"`
	ClearSettle        time.Duration `yaml:"clear_settle"`
	FinalSettle        time.Duration `yaml:"final_settle"`
	UploadRetryBudget  int           `yaml:"upload_retry_budget"`
	CountAttempts      int           `yaml:"count_attempts"`
	ItemAttempts       int           `yaml:"item_attempts"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
	QoS      byte   `yaml:"qos"`
}

type SurveyConfig struct {
	CameraCatalog string `yaml:"camera_catalog"`
	Camera        string `yaml:"camera"`
}

// Default returns the built-in settings.
func Default() *Config {
	t := transfer.DefaultConfig()
	return &Config{
		Bridge: BridgeConfig{
			URL:         "http://localhost:8088",
			Transport:   TransportHTTP,
			BaudRate:    115200,
			SystemID:    mavlink.VehicleSystemID,
			ComponentID: mavlink.AutopilotID,
		},
		Transfer: TransferConfig{
			PollInterval:       t.PollInterval,
			UploadPollInterval: t.UploadPollInterval,
			ResendInterval:     t.ResendInterval,
			ClearSettle:        t.ClearSettle,
			FinalSettle:        t.FinalSettle,
			UploadRetryBudget:  t.UploadRetryBudget,
			CountAttempts:      t.CountAttempts,
			ItemAttempts:       t.ItemAttempts,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		MQTT: MQTTConfig{
			ClientID: "surveyplan",
			Topic:    "surveyplan/transfer",
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// DefaultFileName is used if it exists. envFiles are loaded with godotenv
// before the environment is read; without any, an optional .env in the
// working directory is used.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := cfg.decode(data); err != nil {
			return nil, errors.WithMessagef(err, "config %s", path)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "load .env")
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, "load env file")
	}
	return nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return errors.Wrap(err, "parse yaml")
	}
	return nil
}

func (c *Config) applyEnv() {
	b := &c.Bridge
	b.URL = getEnv("BRIDGE_URL", b.URL)
	b.Transport = strings.ToLower(getEnv("TRANSPORT", b.Transport))
	b.SerialPort = getEnv("SERIAL_PORT", b.SerialPort)
	b.BaudRate = parseInt(getEnv("BAUD_RATE", ""), b.BaudRate)
	b.Username = getEnv("USERNAME", b.Username)
	b.Password = getEnv("PASSWORD", b.Password)
	b.SkipSSLVerify = parseBool(getEnv("SKIP_SSL_VERIFY", ""), b.SkipSSLVerify)

	t := &c.Transfer
	t.PollInterval = parseDuration(getEnv("POLL_INTERVAL", ""), t.PollInterval)
	t.UploadPollInterval = parseDuration(getEnv("UPLOAD_POLL_INTERVAL", ""), t.UploadPollInterval)
	t.ResendInterval = parseDuration(getEnv("RESEND_INTERVAL", ""), t.ResendInterval)
	t.UploadRetryBudget = parseInt(getEnv("RETRY_BUDGET", ""), t.UploadRetryBudget)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Dir = getEnv("LOG_DIR", c.Logging.Dir)

	m := &c.MQTT
	m.Broker = getEnv("MQTT_BROKER", m.Broker)
	m.Topic = getEnv("MQTT_TOPIC", m.Topic)
	m.Username = getEnv("MQTT_USERNAME", m.Username)
	m.Password = getEnv("MQTT_PASSWORD", m.Password)

	c.Survey.CameraCatalog = getEnv("CAMERA_CATALOG", c.Survey.CameraCatalog)
}

// Validate rejects settings the commands cannot use.
func (c *Config) Validate() error {
	switch c.Bridge.Transport {
	case TransportHTTP, TransportWebSocket, TransportSerial, TransportSim:
	default:
		return errors.Errorf("unknown transport %q (use http, ws, serial or sim)", c.Bridge.Transport)
	}
	if c.Bridge.BaudRate <= 0 {
		return errors.Errorf("invalid baud rate %d", c.Bridge.BaudRate)
	}
	if c.MQTT.QoS > 2 {
		return errors.Errorf("invalid MQTT QoS %d", c.MQTT.QoS)
	}
	return nil
}

// TransferConfig returns the engine settings.
func (c *Config) TransferConfig() transfer.Config {
	t := c.Transfer
	return transfer.Config{
		PollInterval:       t.PollInterval,
		UploadPollInterval: t.UploadPollInterval,
		ResendInterval:     t.ResendInterval,
		ClearSettle:        t.ClearSettle,
		FinalSettle:        t.FinalSettle,
		UploadRetryBudget:  t.UploadRetryBudget,
		CountAttempts:      t.CountAttempts,
		ItemAttempts:       t.ItemAttempts,
		Target:             c.Target(),
	}
}

// Target returns the vehicle component addressed by transfers.
func (c *Config) Target() mavlink.Target {
	return mavlink.Target{System: c.Bridge.SystemID, Component: c.Bridge.ComponentID}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseBool(s string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultValue
}

// parseDuration accepts Go durations or a bare number of milliseconds.
func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Millisecond
	}
	return defaultValue
}
