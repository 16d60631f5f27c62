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

package reconcile

import (
	"time"

	"github.com/carverauto/netdiscovery/pkg/models"
)

const (
	DefaultStaleAfterMisses  = 3
	DefaultDownAfterFailures = 3
)

// Policy holds the grace thresholds.
type Policy struct {
	// StaleAfterMisses is how many consecutive misses flag an interface or
	// edge stale and retire a MAC binding.
	StaleAfterMisses int
	// DownAfterFailures is how many consecutive failed polls mark a device down.
	DownAfterFailures int
}

// Snapshot is the persisted state of one device at a given version.
type Snapshot struct {
	// Version is the device row version; zero when the device is not stored yet.
	Version    int64
	Device     *models.Device
	Interfaces []models.Interface
	// MacEntries holds active bindings only.
	MacEntries []models.MacEntry
}

// Observation is what one poll cycle learned about a device.
type Observation struct {
	Address    string
	ObservedAt time.Time
	// Success is false when the identity probe failed; nothing else is then
	// considered observed.
	Success bool
	Device  models.Device

	Interfaces   []models.Interface
	InterfacesOK bool

	MacEntries []models.MacEntry
	FDBOK      bool

	// InterfacesUnobserved and MacsUnobserved mark tables the probe never
	// read, such as when the engine stopped mid-poll. Stored rows of that
	// class are left as they are instead of counting a miss.
	InterfacesUnobserved bool
	MacsUnobserved       bool
}

// Plan is the set of writes that brings a Snapshot in line with an
// Observation. Touches only refresh LastSeen and carry no other change.
type Plan struct {
	BaseVersion int64
	ObservedAt  time.Time

	// Device is the row to upsert; nil when an unknown device failed its probe.
	Device        *models.Device
	DeviceCreated bool
	DeviceChanged bool

	InsertInterfaces []models.Interface
	UpdateInterfaces []models.Interface
	TouchInterfaces  []int32

	InsertMacs []models.MacEntry
	UpdateMacs []models.MacEntry
	RetireMacs []models.MacEntry
	TouchMacs  []string

	New     int
	Changed int
	Stale   int
}

// Empty reports whether the plan changes nothing apart from poll timestamps.
func (p *Plan) Empty() bool {
	return !p.DeviceCreated && !p.DeviceChanged &&
		len(p.InsertInterfaces) == 0 && len(p.UpdateInterfaces) == 0 &&
		len(p.InsertMacs) == 0 && len(p.UpdateMacs) == 0 && len(p.RetireMacs) == 0
}

// EdgePlan is the set of writes for the topology edge table.
type EdgePlan struct {
	BaseVersion int64
	ObservedAt  time.Time

	Insert []models.TopologyEdge
	Update []models.TopologyEdge
	Touch  []string

	New     int
	Changed int
	Stale   int
}

// Empty reports whether the plan changes nothing apart from confirmation times.
func (p *EdgePlan) Empty() bool {
	return len(p.Insert) == 0 && len(p.Update) == 0
}
