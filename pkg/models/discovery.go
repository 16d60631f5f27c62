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

package models

import "time"

// RetireReason records why a MAC binding stopped being active.
type RetireReason string

const (
	RetireMoved RetireReason = "moved"
	RetireAged  RetireReason = "aged"
)

// MacEntry binds a hardware address to a device port. Once RetiredAt is set
// the row is history and is never modified again.
type MacEntry struct {
	ID           string       `json:"id"`
	DeviceID     string       `json:"device_id"`
	IfIndex      int32        `json:"if_index"`
	MAC          string       `json:"mac"`
	VLAN         int          `json:"vlan"`
	FirstSeen    time.Time    `json:"first_seen"`
	LastSeen     time.Time    `json:"last_seen"`
	MissCount    int          `json:"miss_count"`
	RetiredAt    *time.Time   `json:"retired_at,omitempty"`
	RetireReason RetireReason `json:"retire_reason,omitempty"`
}

// Active reports whether the binding is current.
func (m *MacEntry) Active() bool {
	return m.RetiredAt == nil
}

// MacKey identifies the single active binding a MAC may have on a device.
type MacKey struct {
	MAC  string
	VLAN int
}

// Key returns the active-binding key for the entry.
func (m *MacEntry) Key() MacKey {
	return MacKey{MAC: m.MAC, VLAN: m.VLAN}
}

// NeighborProtocol is the advertisement protocol a neighbor was learned from.
type NeighborProtocol string

const (
	ProtocolLLDP NeighborProtocol = "lldp"
	ProtocolCDP  NeighborProtocol = "cdp"
)

// NeighborObservation is a raw adjacency claim read from one device's
// neighbor table. The remote side is not resolved to a Device.
type NeighborObservation struct {
	LocalDeviceID          string           `json:"local_device_id"`
	LocalAddress           string           `json:"local_address"`
	LocalIfIndex           int32            `json:"local_if_index"`
	LocalIfName            string           `json:"local_if_name"`
	LocalIfSpeed           uint64           `json:"local_if_speed"`
	Protocol               NeighborProtocol `json:"protocol"`
	RemoteChassisID        string           `json:"remote_chassis_id"`
	RemoteChassisIDSubtype int              `json:"remote_chassis_id_subtype"`
	RemotePortID           string           `json:"remote_port_id"`
	RemotePortIDSubtype    int              `json:"remote_port_id_subtype"`
	RemotePortDescr        string           `json:"remote_port_descr,omitempty"`
	RemoteSysName          string           `json:"remote_sys_name,omitempty"`
	RemoteMgmtAddr         string           `json:"remote_mgmt_addr,omitempty"`
	ObservedAt             time.Time        `json:"observed_at"`
}

// Confidence grades how well a topology edge is corroborated.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// EdgeEndpoint is one side of a topology edge. For a dangling edge the B side
// carries only the remote claim.
type EdgeEndpoint struct {
	DeviceID string `json:"device_id,omitempty"`
	IfIndex  int32  `json:"if_index,omitempty"`
	IfName   string `json:"if_name,omitempty"`

	ClaimChassisID string `json:"claim_chassis_id,omitempty"`
	ClaimPortID    string `json:"claim_port_id,omitempty"`
	ClaimSysName   string `json:"claim_sys_name,omitempty"`
}

// TopologyEdge is a canonical, unordered link between two endpoints.
type TopologyEdge struct {
	Key           string           `json:"key"`
	A             EdgeEndpoint     `json:"a"`
	B             EdgeEndpoint     `json:"b"`
	Protocol      NeighborProtocol `json:"protocol"`
	Speed         uint64           `json:"speed"`
	Confidence    Confidence       `json:"confidence"`
	Resolved      bool             `json:"resolved"`
	Reporters     int              `json:"reporters"`
	FirstSeen     time.Time        `json:"first_seen"`
	LastConfirmed time.Time        `json:"last_confirmed"`
	MissCount     int              `json:"miss_count"`
	Stale         bool             `json:"stale"`
}

// SameAttributes compares the inferred attributes of two edges, ignoring
// timestamps and aging state.
func (e *TopologyEdge) SameAttributes(o *TopologyEdge) bool {
	return e.Key == o.Key &&
		e.A == o.A &&
		e.B == o.B &&
		e.Protocol == o.Protocol &&
		e.Speed == o.Speed &&
		e.Confidence == o.Confidence &&
		e.Resolved == o.Resolved &&
		e.Reporters == o.Reporters
}
