/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mapper probes network devices over SNMP and keeps the inventory
// and topology in the store up to date.
package mapper

import (
	"fmt"
	"net"
	"time"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/reconcile"
	"github.com/carverauto/netdiscovery/pkg/scheduler"
	"github.com/carverauto/netdiscovery/pkg/snmp"
)

const (
	defaultWorkers            = 16
	defaultPollInterval       = 5 * time.Minute
	defaultTickInterval       = 5 * time.Second
	defaultTimeout            = 5 * time.Second
	defaultRetries            = 2
	defaultJobTimeout         = 2 * time.Minute
	defaultMaxRepetitions     = 10
	defaultMaxTargetsPerRange = 256
	defaultListenAddr         = ":8080"
	defaultTopologyDebounce   = 2 * time.Second
)

// BackoffConfig is an exponential backoff policy.
type BackoffConfig struct {
	Initial    models.Duration `json:"initial" yaml:"initial"`
	Multiplier float64         `json:"multiplier" yaml:"multiplier"`
	Max        models.Duration `json:"max" yaml:"max"`
}

// CredentialSet applies credentials to every target inside CIDR.
type CredentialSet struct {
	CIDR             string `json:"cidr" yaml:"cidr"`
	snmp.Credentials `yaml:",inline"`
}

// CredentialsConfig holds the default credentials and CIDR-matched overrides.
type CredentialsConfig struct {
	Default snmp.Credentials `json:"default" yaml:"default"`
	Sets    []CredentialSet  `json:"sets,omitempty" yaml:"sets,omitempty"`
}

// TargetConfig is one entry of the discovery target list. Exactly one of
// Address, Range or CIDR is set.
type TargetConfig struct {
	Address      string            `json:"address,omitempty" yaml:"address,omitempty"`
	Range        string            `json:"range,omitempty" yaml:"range,omitempty"`
	CIDR         string            `json:"cidr,omitempty" yaml:"cidr,omitempty"`
	Port         uint16            `json:"port,omitempty" yaml:"port,omitempty"`
	PollInterval models.Duration   `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	Credentials  *snmp.Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// MetricsConfig toggles OTel metric export.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`
}

// Config is the discovery service configuration.
type Config struct {
	Workers            int             `json:"workers" yaml:"workers"`
	PollInterval       models.Duration `json:"poll_interval" yaml:"poll_interval"`
	TickInterval       models.Duration `json:"tick_interval" yaml:"tick_interval"`
	Timeout            models.Duration `json:"timeout" yaml:"timeout"`
	Retries            int             `json:"retries" yaml:"retries"`
	Backoff            BackoffConfig   `json:"backoff" yaml:"backoff"`
	DeviceBackoff      BackoffConfig   `json:"device_backoff" yaml:"device_backoff"`
	JobTimeout         models.Duration `json:"job_timeout" yaml:"job_timeout"`
	MaxRepetitions     int             `json:"max_repetitions" yaml:"max_repetitions"`
	DownAfterFailures  int             `json:"down_after_failures" yaml:"down_after_failures"`
	StaleAfterMisses   int             `json:"stale_after_misses" yaml:"stale_after_misses"`
	MaxTargetsPerRange int             `json:"max_targets_per_range" yaml:"max_targets_per_range"`
	TopologyDebounce   models.Duration `json:"topology_debounce,omitempty" yaml:"topology_debounce,omitempty"`

	Credentials CredentialsConfig `json:"credentials" yaml:"credentials"`
	Targets     []TargetConfig    `json:"targets" yaml:"targets"`

	Database models.DatabaseConfig `json:"database" yaml:"database"`
	NATS     *models.NATSConfig    `json:"nats,omitempty" yaml:"nats,omitempty"`
	HTTP     models.HTTPConfig     `json:"http" yaml:"http"`
	Logging  *logger.Config        `json:"logging,omitempty" yaml:"logging,omitempty"`
	Metrics  MetricsConfig         `json:"metrics" yaml:"metrics"`
}

// Validate applies defaults and rejects values the engine cannot run with.
// Bad credentials are not rejected here; they suspend only the targets that
// use them.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	c.applyDefaults()

	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}

	if c.Retries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetries, c.Retries)
	}

	if c.DownAfterFailures < 1 || c.StaleAfterMisses < 1 {
		return ErrInvalidGracePolicy
	}

	if c.Backoff.Multiplier < 1 || c.DeviceBackoff.Multiplier < 1 {
		return fmt.Errorf("%w: multiplier must be at least 1", ErrInvalidBackoff)
	}

	if len(c.Targets) == 0 {
		return ErrNoTargets
	}

	for i := range c.Targets {
		if err := c.Targets[i].validate(); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
	}

	for i := range c.Credentials.Sets {
		if _, _, err := net.ParseCIDR(c.Credentials.Sets[i].CIDR); err != nil {
			return fmt.Errorf("%w: credential set %d: %w", ErrInvalidTarget, i, err)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}

	if c.PollInterval <= 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.TickInterval <= 0 {
		c.TickInterval = models.Duration(defaultTickInterval)
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	if c.Retries == 0 {
		c.Retries = defaultRetries
	}

	if c.JobTimeout <= 0 {
		c.JobTimeout = models.Duration(defaultJobTimeout)
	}

	if c.MaxRepetitions <= 0 {
		c.MaxRepetitions = defaultMaxRepetitions
	}

	if c.DownAfterFailures == 0 {
		c.DownAfterFailures = reconcile.DefaultDownAfterFailures
	}

	if c.StaleAfterMisses == 0 {
		c.StaleAfterMisses = reconcile.DefaultStaleAfterMisses
	}

	if c.MaxTargetsPerRange <= 0 {
		c.MaxTargetsPerRange = defaultMaxTargetsPerRange
	}

	if c.TopologyDebounce <= 0 {
		c.TopologyDebounce = models.Duration(defaultTopologyDebounce)
	}

	c.Backoff.defaults(500*time.Millisecond, 10*time.Second)
	c.DeviceBackoff.defaults(30*time.Second, 30*time.Minute)

	if c.Credentials.Default.Version == "" {
		c.Credentials.Default.Version = snmp.Version2c
	}

	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = defaultListenAddr
	}
}

func (b *BackoffConfig) defaults(initial, maxDelay time.Duration) {
	if b.Initial <= 0 {
		b.Initial = models.Duration(initial)
	}

	if b.Multiplier == 0 {
		b.Multiplier = 2
	}

	if b.Max <= 0 {
		b.Max = models.Duration(maxDelay)
	}
}

func (b BackoffConfig) transport() snmp.Backoff {
	return snmp.Backoff{Initial: b.Initial.Std(), Multiplier: b.Multiplier, Max: b.Max.Std()}
}

func (b BackoffConfig) device() scheduler.Backoff {
	return scheduler.Backoff{Initial: b.Initial.Std(), Multiplier: b.Multiplier, Max: b.Max.Std()}
}

// ClientConfig derives the transport settings.
func (c *Config) ClientConfig() snmp.ClientConfig {
	return snmp.ClientConfig{
		Timeout:        c.Timeout.Std(),
		Retries:        c.Retries,
		Backoff:        c.Backoff.transport(),
		MaxRepetitions: uint32(c.MaxRepetitions), //nolint:gosec // validated positive
	}
}

// Policy derives the reconciler grace policy.
func (c *Config) Policy() reconcile.Policy {
	return reconcile.Policy{
		StaleAfterMisses:  c.StaleAfterMisses,
		DownAfterFailures: c.DownAfterFailures,
	}
}

// DeviceTarget is one address the engine polls.
type DeviceTarget struct {
	Address      string
	Port         uint16
	Credentials  snmp.Credentials
	PollInterval time.Duration
	// CredentialsErr is set when the resolved credentials are unusable. Such
	// a target is never probed.
	CredentialsErr error
}

// SNMPTarget returns the transport address of the target.
func (t *DeviceTarget) SNMPTarget() snmp.Target {
	return snmp.Target{Address: t.Address, Port: t.Port, Credentials: t.Credentials}
}

// ProbeResult is everything one probe learned about a device.
type ProbeResult struct {
	Address    string
	Device     models.Device
	Interfaces []models.Interface
	MacEntries []models.MacEntry
	Neighbors  []models.NeighborObservation

	InterfacesOK bool
	FDBOK        bool
	NeighborsOK  bool
	// Interrupted lists the steps cut short because the probe was cancelled.
	Interrupted []string

	StartedAt  time.Time
	FinishedAt time.Time
}
