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

// Package db persists the device inventory and the topology edge set.
package db

import (
	"context"

	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/reconcile"
)

//go:generate mockgen -destination=mock_db.go -package=db github.com/carverauto/netdiscovery/pkg/db Store

// Store represents all inventory and topology operations.
type Store interface {
	Close() error

	// Device snapshot operations.

	// LoadSnapshot returns the stored state of the device at address. An
	// unknown address yields an empty snapshot with version zero.
	LoadSnapshot(ctx context.Context, address string) (*reconcile.Snapshot, error)
	// ApplyDevicePlan writes a plan atomically. It fails with
	// ErrSnapshotConflict when the device moved past plan.BaseVersion.
	ApplyDevicePlan(ctx context.Context, plan *reconcile.Plan) error

	// Inventory reads.

	GetDevice(ctx context.Context, id string) (*models.Device, error)
	GetDeviceByAddress(ctx context.Context, address string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	ListInterfaces(ctx context.Context, deviceID string) ([]models.Interface, error)
	ListMacEntries(ctx context.Context, deviceID string, includeRetired bool) ([]models.MacEntry, error)

	// Topology operations.

	// LoadEdges returns every stored edge and the edge-set version.
	LoadEdges(ctx context.Context) ([]models.TopologyEdge, int64, error)
	// ApplyEdgePlan writes an edge plan. It fails with ErrSnapshotConflict
	// when the edge set moved past plan.BaseVersion.
	ApplyEdgePlan(ctx context.Context, plan *reconcile.EdgePlan) error
}
