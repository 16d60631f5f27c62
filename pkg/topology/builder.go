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

// Package topology turns neighbor advertisements into canonical link-level
// edges between known devices.
package topology

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
)

// EndpointKey identifies one side of an edge.
func EndpointKey(deviceID string, ifIndex int32) string {
	return fmt.Sprintf("%s:%d", deviceID, ifIndex)
}

// EdgeKey returns the canonical key of the unordered pair (a, b).
func EdgeKey(a, b string) string {
	if b < a {
		a, b = b, a
	}

	return a + "|" + b
}

// danglingKey keys an unresolved claim by its local endpoint and the claim.
func danglingKey(local string, obs *models.NeighborObservation) string {
	claim := strings.ToLower(strings.TrimSpace(obs.RemoteChassisID))
	if claim == "" {
		claim = strings.ToLower(strings.TrimSpace(obs.RemoteSysName))
	}

	return fmt.Sprintf("%s|?%s:%s/%s", local, obs.Protocol, claim, strings.ToLower(strings.TrimSpace(obs.RemotePortID)))
}

type claim struct {
	reporter string
	obs      *models.NeighborObservation
	local    models.EdgeEndpoint
	remote   models.EdgeEndpoint
}

// Builder infers edges. It keeps no state between builds.
type Builder struct {
	logger logger.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{logger: log}
}

// Build resolves every observation against idx and merges mirror claims
// into single edges. The output is sorted by key and does not depend on the
// order of obs.
func (b *Builder) Build(obs []models.NeighborObservation, idx *Index, now time.Time) []models.TopologyEdge {
	groups := make(map[string][]claim)
	resolved := make(map[string]bool)

	for i := range obs {
		o := &obs[i]
		if o.LocalDeviceID == "" {
			continue
		}

		local := models.EdgeEndpoint{DeviceID: o.LocalDeviceID, IfIndex: o.LocalIfIndex, IfName: o.LocalIfName}
		if ifc, ok := idx.Interface(o.LocalDeviceID, o.LocalIfIndex); ok && ifc.Name != "" {
			local.IfName = ifc.Name
		}

		localKey := EndpointKey(local.DeviceID, local.IfIndex)

		remoteID, ok := idx.ResolveDevice(o)
		if !ok {
			key := danglingKey(localKey, o)
			groups[key] = append(groups[key], claim{reporter: localKey, obs: o, local: local, remote: claimEndpoint(o)})

			continue
		}

		port, ok := idx.ResolvePort(remoteID, o)
		if !ok {
			remote := claimEndpoint(o)
			remote.DeviceID = remoteID
			key := danglingKey(localKey, o)
			groups[key] = append(groups[key], claim{reporter: localKey, obs: o, local: local, remote: remote})

			b.logger.Debug().
				Str("local", localKey).
				Str("remote_device", remoteID).
				Str("port_id", o.RemotePortID).
				Msg("Neighbor resolved to a device but not to a port")

			continue
		}

		remote := models.EdgeEndpoint{DeviceID: remoteID, IfIndex: port.IfIndex, IfName: port.Name}
		remoteKey := EndpointKey(remote.DeviceID, remote.IfIndex)

		if remoteKey == localKey {
			continue
		}

		key := EdgeKey(localKey, remoteKey)
		groups[key] = append(groups[key], claim{reporter: localKey, obs: o, local: local, remote: remote})
		resolved[key] = true
	}

	edges := make([]models.TopologyEdge, 0, len(groups))

	for key, claims := range groups {
		if resolved[key] {
			edges = append(edges, mergeResolved(key, claims, now))
		} else {
			edges = append(edges, mergeDangling(key, claims, now))
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].Key < edges[j].Key })

	return edges
}

func claimEndpoint(o *models.NeighborObservation) models.EdgeEndpoint {
	return models.EdgeEndpoint{
		ClaimChassisID: o.RemoteChassisID,
		ClaimPortID:    o.RemotePortID,
		ClaimSysName:   o.RemoteSysName,
	}
}

// winner picks the most recent claim; on a tie the lower reporter key wins,
// then the lower protocol name.
func winner(claims []claim) claim {
	best := claims[0]

	for _, c := range claims[1:] {
		switch {
		case c.obs.ObservedAt.After(best.obs.ObservedAt):
			best = c
		case c.obs.ObservedAt.Equal(best.obs.ObservedAt):
			if c.reporter < best.reporter ||
				(c.reporter == best.reporter && c.obs.Protocol < best.obs.Protocol) {
				best = c
			}
		}
	}

	return best
}

func mergeResolved(key string, claims []claim, now time.Time) models.TopologyEdge {
	w := winner(claims)

	// orient so that A is the lower endpoint key
	a, bEnd := w.local, w.remote
	if EndpointKey(bEnd.DeviceID, bEnd.IfIndex) < EndpointKey(a.DeviceID, a.IfIndex) {
		a, bEnd = bEnd, a
	}

	reporters := make(map[string]bool)
	speeds := make(map[uint64]bool)
	protocols := make(map[models.NeighborProtocol]bool)

	var maxSpeed uint64

	for _, c := range claims {
		reporters[c.reporter] = true
		protocols[c.obs.Protocol] = true

		if s := c.obs.LocalIfSpeed; s > 0 {
			speeds[s] = true
			if s > maxSpeed {
				maxSpeed = s
			}
		}

		// keep the reporting side's own interface name when the index lacks one
		for _, ep := range []*models.EdgeEndpoint{&a, &bEnd} {
			if ep.IfName == "" && EndpointKey(ep.DeviceID, ep.IfIndex) == c.reporter {
				ep.IfName = c.local.IfName
			}
		}
	}

	speed := w.obs.LocalIfSpeed
	if speed == 0 {
		speed = maxSpeed
	}

	conf := models.ConfidenceMedium
	if len(reporters) > 1 {
		conf = models.ConfidenceHigh
	}

	if len(speeds) > 1 || len(protocols) > 1 {
		conf = models.ConfidenceLow
	}

	return models.TopologyEdge{
		Key:           key,
		A:             a,
		B:             bEnd,
		Protocol:      w.obs.Protocol,
		Speed:         speed,
		Confidence:    conf,
		Resolved:      true,
		Reporters:     len(reporters),
		FirstSeen:     now,
		LastConfirmed: now,
	}
}

func mergeDangling(key string, claims []claim, now time.Time) models.TopologyEdge {
	w := winner(claims)

	return models.TopologyEdge{
		Key:           key,
		A:             w.local,
		B:             w.remote,
		Protocol:      w.obs.Protocol,
		Speed:         w.obs.LocalIfSpeed,
		Confidence:    models.ConfidenceLow,
		Resolved:      false,
		Reporters:     1,
		FirstSeen:     now,
		LastConfirmed: now,
	}
}
