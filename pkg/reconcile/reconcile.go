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

// Package reconcile diffs fresh observations against stored state and
// produces the minimal set of writes. It performs no I/O; the same inputs
// always yield the same plan.
package reconcile

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/netdiscovery/pkg/models"
)

// Reconciler computes plans under a grace Policy.
type Reconciler struct {
	policy Policy
	newID  func() string
}

// New creates a Reconciler. Non-positive thresholds take their defaults.
func New(policy Policy) *Reconciler {
	if policy.StaleAfterMisses <= 0 {
		policy.StaleAfterMisses = DefaultStaleAfterMisses
	}

	if policy.DownAfterFailures <= 0 {
		policy.DownAfterFailures = DefaultDownAfterFailures
	}

	return &Reconciler{policy: policy, newID: uuid.NewString}
}

// WithIDGenerator replaces the uuid generator used for new rows.
func (r *Reconciler) WithIDGenerator(fn func() string) *Reconciler {
	r.newID = fn
	return r
}

// Policy returns the effective thresholds.
func (r *Reconciler) Policy() Policy {
	return r.policy
}

// Device computes the plan for one poll cycle. prev may be nil for a device
// that has never been stored.
func (r *Reconciler) Device(prev *Snapshot, obs *Observation) *Plan {
	if prev == nil {
		prev = &Snapshot{}
	}

	now := obs.ObservedAt
	plan := &Plan{BaseVersion: prev.Version, ObservedAt: now}

	if !obs.Success {
		if prev.Device == nil {
			return plan
		}

		r.deviceFailed(plan, prev.Device, now)
		r.interfaces(plan, prev, nil, now)
		r.macs(plan, prev, nil, now)

		return plan
	}

	deviceID := r.deviceSucceeded(plan, prev.Device, obs)

	var ifaces []models.Interface
	if obs.InterfacesOK {
		ifaces = obs.Interfaces
	}

	var macs []models.MacEntry
	if obs.FDBOK {
		macs = obs.MacEntries
	}

	if !obs.InterfacesUnobserved {
		r.interfaces(plan, prev, withDeviceID(ifaces, deviceID), now)
	}

	if !obs.MacsUnobserved {
		r.macs(plan, prev, macs, now)
	}

	for i := range plan.InsertMacs {
		plan.InsertMacs[i].DeviceID = deviceID
	}

	return plan
}

func (r *Reconciler) deviceSucceeded(plan *Plan, prev *models.Device, obs *Observation) string {
	now := obs.ObservedAt
	next := obs.Device
	next.Address = obs.Address
	next.Status = models.DeviceStatusUp
	next.ConsecutiveFailures = 0
	next.LastPolled = now
	next.LastSeen = now

	if prev == nil {
		if next.ID == "" {
			next.ID = r.newID()
		}

		next.FirstSeen = now
		next.UpdatedAt = now

		plan.Device = &next
		plan.DeviceCreated = true
		plan.New++

		return next.ID
	}

	next.ID = prev.ID
	next.FirstSeen = prev.FirstSeen
	next.UpdatedAt = prev.UpdatedAt

	if !next.SameIdentity(prev) {
		next.UpdatedAt = now
		plan.DeviceChanged = true
		plan.Changed++
	}

	plan.Device = &next

	return next.ID
}

func (r *Reconciler) deviceFailed(plan *Plan, prev *models.Device, now time.Time) {
	next := *prev
	next.ConsecutiveFailures++
	next.LastPolled = now

	if next.ConsecutiveFailures >= r.policy.DownAfterFailures && next.Status != models.DeviceStatusDown {
		next.Status = models.DeviceStatusDown
		next.UpdatedAt = now
		plan.DeviceChanged = true
		plan.Changed++
	}

	plan.Device = &next
}

func (r *Reconciler) interfaces(plan *Plan, prev *Snapshot, observed []models.Interface, now time.Time) {
	seen := make(map[int32]bool, len(observed))
	old := make(map[int32]*models.Interface, len(prev.Interfaces))

	for i := range prev.Interfaces {
		old[prev.Interfaces[i].IfIndex] = &prev.Interfaces[i]
	}

	for i := range observed {
		cur := observed[i]
		if seen[cur.IfIndex] {
			continue
		}

		seen[cur.IfIndex] = true
		cur.LastSeen = now
		cur.MissCount = 0
		cur.Stale = false

		was, ok := old[cur.IfIndex]
		if !ok {
			cur.FirstSeen = now
			plan.InsertInterfaces = append(plan.InsertInterfaces, cur)
			plan.New++

			continue
		}

		cur.FirstSeen = was.FirstSeen

		if !cur.SameAttributes(was) || was.Stale || was.MissCount > 0 {
			plan.UpdateInterfaces = append(plan.UpdateInterfaces, cur)
			plan.Changed++

			continue
		}

		plan.TouchInterfaces = append(plan.TouchInterfaces, cur.IfIndex)
	}

	for i := range prev.Interfaces {
		was := prev.Interfaces[i]
		if seen[was.IfIndex] || was.Stale {
			continue
		}

		was.MissCount++
		if was.MissCount >= r.policy.StaleAfterMisses {
			was.Stale = true
			plan.Stale++
		}

		plan.UpdateInterfaces = append(plan.UpdateInterfaces, was)
	}

	sortInterfaces(plan.InsertInterfaces)
	sortInterfaces(plan.UpdateInterfaces)
	sort.Slice(plan.TouchInterfaces, func(i, j int) bool { return plan.TouchInterfaces[i] < plan.TouchInterfaces[j] })
}

func (r *Reconciler) macs(plan *Plan, prev *Snapshot, observed []models.MacEntry, now time.Time) {
	old := make(map[models.MacKey]*models.MacEntry, len(prev.MacEntries))

	for i := range prev.MacEntries {
		if prev.MacEntries[i].Active() {
			old[prev.MacEntries[i].Key()] = &prev.MacEntries[i]
		}
	}

	current := dedupeMacs(observed)
	seen := make(map[models.MacKey]bool, len(current))

	for _, cur := range current {
		key := cur.Key()
		seen[key] = true

		was, ok := old[key]

		switch {
		case !ok:
			plan.InsertMacs = append(plan.InsertMacs, r.newMac(cur, now))
			plan.New++
		case was.IfIndex != cur.IfIndex:
			plan.RetireMacs = append(plan.RetireMacs, retire(*was, models.RetireMoved, now))
			plan.InsertMacs = append(plan.InsertMacs, r.newMac(cur, now))
			plan.Changed++
		case was.MissCount > 0:
			upd := *was
			upd.MissCount = 0
			upd.LastSeen = now
			plan.UpdateMacs = append(plan.UpdateMacs, upd)
			plan.Changed++
		default:
			plan.TouchMacs = append(plan.TouchMacs, was.ID)
		}
	}

	for i := range prev.MacEntries {
		was := prev.MacEntries[i]
		if !was.Active() || seen[was.Key()] {
			continue
		}

		was.MissCount++
		if was.MissCount >= r.policy.StaleAfterMisses {
			plan.RetireMacs = append(plan.RetireMacs, retire(was, models.RetireAged, now))
			plan.Stale++

			continue
		}

		plan.UpdateMacs = append(plan.UpdateMacs, was)
	}

	sortMacs(plan.InsertMacs)
	sortMacs(plan.UpdateMacs)
	sortMacs(plan.RetireMacs)
	sort.Strings(plan.TouchMacs)
}

func (r *Reconciler) newMac(cur models.MacEntry, now time.Time) models.MacEntry {
	cur.ID = r.newID()
	cur.FirstSeen = now
	cur.LastSeen = now
	cur.MissCount = 0
	cur.RetiredAt = nil
	cur.RetireReason = ""

	return cur
}

func retire(m models.MacEntry, reason models.RetireReason, now time.Time) models.MacEntry {
	at := now
	m.RetiredAt = &at
	m.RetireReason = reason

	return m
}

// dedupeMacs keeps one binding per key; a MAC learned on several ports in
// the same VLAN is bound to the lowest ifIndex.
func dedupeMacs(in []models.MacEntry) []models.MacEntry {
	byKey := make(map[models.MacKey]models.MacEntry, len(in))

	for _, m := range in {
		if m.MAC == "" {
			continue
		}

		if cur, ok := byKey[m.Key()]; ok && cur.IfIndex <= m.IfIndex {
			continue
		}

		byKey[m.Key()] = m
	}

	out := make([]models.MacEntry, 0, len(byKey))
	for _, m := range byKey {
		out = append(out, m)
	}

	sortMacs(out)

	return out
}

func withDeviceID(in []models.Interface, id string) []models.Interface {
	out := make([]models.Interface, len(in))
	for i := range in {
		out[i] = in[i]
		out[i].DeviceID = id
	}

	return out
}

func sortInterfaces(s []models.Interface) {
	sort.Slice(s, func(i, j int) bool { return s[i].IfIndex < s[j].IfIndex })
}

func sortMacs(s []models.MacEntry) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].MAC != s[j].MAC {
			return s[i].MAC < s[j].MAC
		}

		if s[i].VLAN != s[j].VLAN {
			return s[i].VLAN < s[j].VLAN
		}

		return s[i].ID < s[j].ID
	})
}
