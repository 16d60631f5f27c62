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

package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/reconcile"
	"github.com/carverauto/netdiscovery/pkg/snmp"
)

func TestConfigValidateAppliesDefaults(t *testing.T) {
	cfg := &Config{Targets: []TargetConfig{{Address: "10.0.0.1"}}}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaultWorkers, cfg.Workers)
	assert.Equal(t, defaultPollInterval, cfg.PollInterval.Std())
	assert.Equal(t, defaultTickInterval, cfg.TickInterval.Std())
	assert.Equal(t, defaultJobTimeout, cfg.JobTimeout.Std())
	assert.Equal(t, reconcile.DefaultDownAfterFailures, cfg.DownAfterFailures)
	assert.Equal(t, reconcile.DefaultStaleAfterMisses, cfg.StaleAfterMisses)
	assert.Equal(t, defaultMaxTargetsPerRange, cfg.MaxTargetsPerRange)
	assert.Equal(t, snmp.Version2c, cfg.Credentials.Default.Version)
	assert.InDelta(t, 2.0, cfg.Backoff.Multiplier, 0)
	assert.Equal(t, 30*time.Minute, cfg.DeviceBackoff.Max.Std())

	cc := cfg.ClientConfig()
	assert.Equal(t, defaultTimeout, cc.Timeout)
	assert.Equal(t, defaultRetries, cc.Retries)
	assert.Equal(t, uint32(defaultMaxRepetitions), cc.MaxRepetitions)

	p := cfg.Policy()
	assert.Equal(t, cfg.StaleAfterMisses, p.StaleAfterMisses)
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no targets", func(c *Config) { c.Targets = nil }, ErrNoTargets},
		{"negative workers", func(c *Config) { c.Workers = -1 }, ErrInvalidWorkers},
		{"negative retries", func(c *Config) { c.Retries = -3 }, ErrInvalidRetries},
		{"negative grace", func(c *Config) { c.DownAfterFailures = -1 }, ErrInvalidGracePolicy},
		{"shrinking backoff", func(c *Config) { c.Backoff.Multiplier = 0.5 }, ErrInvalidBackoff},
		{"two target forms", func(c *Config) { c.Targets[0].CIDR = "10.0.0.0/24" }, ErrInvalidTarget},
		{"bad address", func(c *Config) { c.Targets[0].Address = "10.0.0" }, ErrInvalidTarget},
		{"bad range", func(c *Config) { c.Targets = []TargetConfig{{Range: "10.0.0.5-1"}} }, ErrInvalidTarget},
		{"bad credential cidr", func(c *Config) {
			c.Credentials.Sets = []CredentialSet{{CIDR: "nope"}}
		}, ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Targets: []TargetConfig{{Address: "10.0.0.1"}}}
			tt.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	var nilCfg *Config
	require.ErrorIs(t, nilCfg.Validate(), ErrConfigNil)
}

func TestConfigValidateKeepsBadCredentials(t *testing.T) {
	cfg := &Config{
		Targets:     []TargetConfig{{Address: "10.0.0.1"}},
		Credentials: CredentialsConfig{Default: snmp.Credentials{Version: snmp.Version3}},
	}

	require.NoError(t, cfg.Validate())
}

func TestConfigPerTargetInterval(t *testing.T) {
	cfg := &Config{Targets: []TargetConfig{
		{Address: "10.0.0.1", PollInterval: models.Duration(30 * time.Second)},
	}}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Targets[0].PollInterval.Std())
}
