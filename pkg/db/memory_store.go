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

package db

import (
	"context"
	"sort"
	"sync"

	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/reconcile"
)

// MemoryStore keeps everything in process. Retired MAC bindings are kept as
// history like the SQL store does.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshots   map[string]*reconcile.Snapshot // by address
	retired     map[string][]models.MacEntry   // by device id
	edges       []models.TopologyEdge
	edgeVersion int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]*reconcile.Snapshot),
		retired:   make(map[string][]models.MacEntry),
	}
}

func (*MemoryStore) Close() error { return nil }

func (m *MemoryStore) LoadSnapshot(_ context.Context, address string) (*reconcile.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[address]
	if !ok {
		return &reconcile.Snapshot{}, nil
	}

	return cloneSnapshot(snap), nil
}

func (m *MemoryStore) ApplyDevicePlan(_ context.Context, plan *reconcile.Plan) error {
	if plan.Device == nil {
		return nil
	}

	if plan.Device.ID == "" {
		return ErrPlanWithoutID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.snapshots[plan.Device.Address]

	var version int64
	if prev != nil {
		version = prev.Version
	}

	if version != plan.BaseVersion {
		return ErrSnapshotConflict
	}

	next := reconcile.Apply(prev, plan)
	m.snapshots[plan.Device.Address] = next

	for _, r := range plan.RetireMacs {
		m.retired[r.DeviceID] = append(m.retired[r.DeviceID], r)
	}

	return nil
}

func (m *MemoryStore) GetDevice(_ context.Context, id string) (*models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, snap := range m.snapshots {
		if snap.Device != nil && snap.Device.ID == id {
			d := *snap.Device
			return &d, nil
		}
	}

	return nil, ErrDeviceNotFound
}

func (m *MemoryStore) GetDeviceByAddress(_ context.Context, address string) (*models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[address]
	if !ok || snap.Device == nil {
		return nil, ErrDeviceNotFound
	}

	d := *snap.Device

	return &d, nil
}

func (m *MemoryStore) ListDevices(_ context.Context) ([]models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Device, 0, len(m.snapshots))

	for _, snap := range m.snapshots {
		if snap.Device != nil {
			out = append(out, *snap.Device)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	return out, nil
}

func (m *MemoryStore) ListInterfaces(_ context.Context, deviceID string) ([]models.Interface, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, snap := range m.snapshots {
		if snap.Device != nil && snap.Device.ID == deviceID {
			return append([]models.Interface(nil), snap.Interfaces...), nil
		}
	}

	return nil, nil
}

func (m *MemoryStore) ListMacEntries(_ context.Context, deviceID string, includeRetired bool) ([]models.MacEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MacEntry

	for _, snap := range m.snapshots {
		if snap.Device != nil && snap.Device.ID == deviceID {
			out = append(out, snap.MacEntries...)
		}
	}

	if includeRetired {
		out = append(out, m.retired[deviceID]...)
	}

	return out, nil
}

func (m *MemoryStore) LoadEdges(_ context.Context) ([]models.TopologyEdge, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]models.TopologyEdge(nil), m.edges...), m.edgeVersion, nil
}

func (m *MemoryStore) ApplyEdgePlan(_ context.Context, plan *reconcile.EdgePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if plan.BaseVersion != m.edgeVersion {
		return ErrSnapshotConflict
	}

	m.edges = reconcile.ApplyEdges(m.edges, plan)
	m.edgeVersion++

	return nil
}

func cloneSnapshot(s *reconcile.Snapshot) *reconcile.Snapshot {
	out := &reconcile.Snapshot{
		Version:    s.Version,
		Interfaces: append([]models.Interface(nil), s.Interfaces...),
		MacEntries: append([]models.MacEntry(nil), s.MacEntries...),
	}

	if s.Device != nil {
		d := *s.Device
		out.Device = &d
	}

	return out
}
