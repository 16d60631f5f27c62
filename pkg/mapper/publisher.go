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
	"context"
	"errors"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
)

// LogPublisher writes every discovery event to the log. It is the sink used
// when no message broker is configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log}
}

// Publish logs ev at debug level, or at info level when it changed the
// inventory or ended badly.
func (p *LogPublisher) Publish(_ context.Context, ev *models.DiscoveryEvent) error {
	evt := p.logger.Debug()
	if ev.New+ev.Changed+ev.Stale > 0 || ev.Outcome != models.OutcomeSuccess {
		evt = p.logger.Info()
	}

	evt.Str("device", ev.Address).
		Str("device_id", ev.DeviceID).
		Str("outcome", string(ev.Outcome)).
		Str("status", string(ev.Status)).
		Int("new", ev.New).
		Int("changed", ev.Changed).
		Int("stale", ev.Stale).
		Msg("Discovery event")

	return nil
}

// MultiPublisher fans an event out to several publishers. Every publisher is
// tried; their errors are joined.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, ev *models.DiscoveryEvent) error {
	var errs []error

	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
