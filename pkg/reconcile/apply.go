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
	"sort"

	"github.com/carverauto/netdiscovery/pkg/models"
)

// Apply returns the snapshot that results from executing plan against prev.
// prev is not modified. The version is bumped whenever a device row is written.
func Apply(prev *Snapshot, plan *Plan) *Snapshot {
	if prev == nil {
		prev = &Snapshot{}
	}

	next := &Snapshot{Version: prev.Version, Device: prev.Device}

	if plan.Device != nil {
		d := *plan.Device
		next.Device = &d
		next.Version++
	}

	ifaces := make(map[int32]models.Interface, len(prev.Interfaces))
	for _, i := range prev.Interfaces {
		ifaces[i.IfIndex] = i
	}

	for _, i := range plan.InsertInterfaces {
		ifaces[i.IfIndex] = i
	}

	for _, i := range plan.UpdateInterfaces {
		ifaces[i.IfIndex] = i
	}

	for _, idx := range plan.TouchInterfaces {
		if i, ok := ifaces[idx]; ok {
			i.LastSeen = plan.ObservedAt
			ifaces[idx] = i
		}
	}

	for _, i := range ifaces {
		next.Interfaces = append(next.Interfaces, i)
	}

	sortInterfaces(next.Interfaces)

	macs := make(map[string]models.MacEntry, len(prev.MacEntries))
	for _, m := range prev.MacEntries {
		macs[m.ID] = m
	}

	for _, m := range plan.RetireMacs {
		delete(macs, m.ID)
	}

	for _, m := range plan.UpdateMacs {
		macs[m.ID] = m
	}

	for _, m := range plan.InsertMacs {
		macs[m.ID] = m
	}

	for _, id := range plan.TouchMacs {
		if m, ok := macs[id]; ok {
			m.LastSeen = plan.ObservedAt
			macs[id] = m
		}
	}

	for _, m := range macs {
		next.MacEntries = append(next.MacEntries, m)
	}

	sortMacs(next.MacEntries)

	return next
}

// ApplyEdges returns the edge set that results from executing plan against prev.
func ApplyEdges(prev []models.TopologyEdge, plan *EdgePlan) []models.TopologyEdge {
	byKey := make(map[string]models.TopologyEdge, len(prev)+len(plan.Insert))
	for _, e := range prev {
		byKey[e.Key] = e
	}

	for _, e := range plan.Insert {
		byKey[e.Key] = e
	}

	for _, e := range plan.Update {
		byKey[e.Key] = e
	}

	for _, k := range plan.Touch {
		if e, ok := byKey[k]; ok {
			e.LastConfirmed = plan.ObservedAt
			byKey[k] = e
		}
	}

	out := make([]models.TopologyEdge, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}
