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

//go:generate mockgen -destination=mock_mapper.go -package=mapper github.com/carverauto/netdiscovery/pkg/mapper Engine,Publisher

import (
	"context"

	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/scheduler"
)

// Engine is the control surface of the discovery engine.
type Engine interface {
	// Start registers the configured targets and begins polling.
	Start(ctx context.Context) error

	// Stop finishes in-flight probes, commits their results and shuts down.
	Stop(ctx context.Context) error

	// ProbeNow queues an immediate probe of a device by id or address.
	ProbeNow(ctx context.Context, deviceIDOrAddress string) (scheduler.Job, error)

	// Subscribe returns a stream of per-poll discovery events and a function
	// that ends the subscription.
	Subscribe() (<-chan models.DiscoveryEvent, func())

	// Statuses reports the schedule and last outcome of every target.
	Statuses() []TargetStatus
}

// Publisher delivers discovery events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, event *models.DiscoveryEvent) error
}
