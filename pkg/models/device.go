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

import (
	"time"
)

// DeviceStatus is the liveness state of a device.
type DeviceStatus string

const (
	DeviceStatusUp      DeviceStatus = "up"
	DeviceStatusDown    DeviceStatus = "down"
	DeviceStatusUnknown DeviceStatus = "unknown"
)

// Device represents a polled network device. Address is unique.
type Device struct {
	ID                  string        `json:"id"`
	Address             string        `json:"address"`
	Hostname            string        `json:"hostname,omitempty"`
	SysName             string        `json:"sys_name,omitempty"`
	SysDescr            string        `json:"sys_descr,omitempty"`
	SysObjectID         string        `json:"sys_object_id,omitempty"`
	SysContact          string        `json:"sys_contact,omitempty"`
	SysLocation         string        `json:"sys_location,omitempty"`
	ChassisID           string        `json:"chassis_id,omitempty"`
	Vendor              string        `json:"vendor,omitempty"`
	Model               string        `json:"model,omitempty"`
	OSVersion           string        `json:"os_version,omitempty"`
	SerialNumber        string        `json:"serial_number,omitempty"`
	Uptime              time.Duration `json:"uptime"`
	Status              DeviceStatus  `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastPolled          time.Time     `json:"last_polled"`
	LastSeen            time.Time     `json:"last_seen"`
	FirstSeen           time.Time     `json:"first_seen"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// SameIdentity reports whether the descriptive attributes of two devices match.
// Poll timestamps, uptime and failure counters are ignored.
func (d *Device) SameIdentity(o *Device) bool {
	return d.Address == o.Address &&
		d.Hostname == o.Hostname &&
		d.SysName == o.SysName &&
		d.SysDescr == o.SysDescr &&
		d.SysObjectID == o.SysObjectID &&
		d.SysContact == o.SysContact &&
		d.SysLocation == o.SysLocation &&
		d.ChassisID == o.ChassisID &&
		d.Vendor == o.Vendor &&
		d.Model == o.Model &&
		d.OSVersion == o.OSVersion &&
		d.SerialNumber == o.SerialNumber &&
		d.Status == o.Status
}

// IfStatus is an ifAdminStatus/ifOperStatus value.
type IfStatus string

const (
	IfStatusUp             IfStatus = "up"
	IfStatusDown           IfStatus = "down"
	IfStatusTesting        IfStatus = "testing"
	IfStatusUnknown        IfStatus = "unknown"
	IfStatusDormant        IfStatus = "dormant"
	IfStatusNotPresent     IfStatus = "notPresent"
	IfStatusLowerLayerDown IfStatus = "lowerLayerDown"
)

// IfStatusFromInt maps the IF-MIB enumeration to an IfStatus.
func IfStatusFromInt(v int64) IfStatus {
	switch v {
	case 1:
		return IfStatusUp
	case 2:
		return IfStatusDown
	case 3:
		return IfStatusTesting
	case 5:
		return IfStatusDormant
	case 6:
		return IfStatusNotPresent
	case 7:
		return IfStatusLowerLayerDown
	default:
		return IfStatusUnknown
	}
}

// Interface is one row of a device's interface table, keyed by (DeviceID, IfIndex).
type Interface struct {
	DeviceID    string     `json:"device_id"`
	IfIndex     int32      `json:"if_index"`
	Name        string     `json:"name"`
	Descr       string     `json:"descr,omitempty"`
	Alias       string     `json:"alias,omitempty"`
	Type        int32      `json:"type"`
	AdminStatus IfStatus   `json:"admin_status"`
	OperStatus  IfStatus   `json:"oper_status"`
	Speed       uint64     `json:"speed"`
	MTU         int32      `json:"mtu"`
	PhysAddress string     `json:"phys_address,omitempty"`
	LastChange  *time.Time `json:"last_change,omitempty"`
	Stale       bool       `json:"stale"`
	MissCount   int        `json:"miss_count"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
}

// SameAttributes compares the polled attributes of two interfaces.
// LastChange is compared at one-second resolution because it is derived from
// sysUpTime and jitters slightly between polls.
func (i *Interface) SameAttributes(o *Interface) bool {
	if i.Name != o.Name || i.Descr != o.Descr || i.Alias != o.Alias ||
		i.Type != o.Type || i.AdminStatus != o.AdminStatus || i.OperStatus != o.OperStatus ||
		i.Speed != o.Speed || i.MTU != o.MTU || i.PhysAddress != o.PhysAddress {
		return false
	}

	switch {
	case i.LastChange == nil && o.LastChange == nil:
		return true
	case i.LastChange == nil || o.LastChange == nil:
		return false
	default:
		d := i.LastChange.Sub(*o.LastChange)
		return d < 2*time.Second && d > -2*time.Second
	}
}
