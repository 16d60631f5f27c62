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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netdiscovery/pkg/models"
)

func edge(key string, conf models.Confidence) models.TopologyEdge {
	return models.TopologyEdge{
		Key:        key,
		A:          models.EdgeEndpoint{DeviceID: "a", IfIndex: 1},
		B:          models.EdgeEndpoint{DeviceID: "b", IfIndex: 2},
		Protocol:   models.ProtocolLLDP,
		Speed:      1_000_000_000,
		Confidence: conf,
		Resolved:   true,
		Reporters:  2,
	}
}

func TestEdgesLifecycle(t *testing.T) {
	r := newTestReconciler()

	built := []models.TopologyEdge{edge("a:1|b:2", models.ConfidenceHigh)}

	plan := r.Edges(0, nil, built, t0)
	require.Len(t, plan.Insert, 1)
	assert.Equal(t, 1, plan.New)
	assert.Equal(t, t0, plan.Insert[0].FirstSeen)

	stored := ApplyEdges(nil, plan)

	// unchanged rebuild only confirms
	plan = r.Edges(1, stored, built, t0.Add(time.Minute))
	assert.True(t, plan.Empty())
	assert.Equal(t, []string{"a:1|b:2"}, plan.Touch)
	stored = ApplyEdges(stored, plan)
	assert.Equal(t, t0.Add(time.Minute), stored[0].LastConfirmed)
	assert.Equal(t, t0, stored[0].FirstSeen)

	// confidence downgrade is an update
	plan = r.Edges(2, stored, []models.TopologyEdge{edge("a:1|b:2", models.ConfidenceLow)}, t0.Add(2*time.Minute))
	require.Len(t, plan.Update, 1)
	assert.Equal(t, 1, plan.Changed)
	stored = ApplyEdges(stored, plan)

	// disappearing edge ages into stale
	for miss := 1; miss <= 3; miss++ {
		plan = r.Edges(int64(2+miss), stored, nil, t0.Add(time.Duration(2+miss)*time.Minute))
		require.Len(t, plan.Update, 1)
		assert.Equal(t, miss, plan.Update[0].MissCount)
		assert.Equal(t, miss == 3, plan.Update[0].Stale)
		stored = ApplyEdges(stored, plan)
	}

	require.Len(t, stored, 1, "stale edges are kept")
	assert.True(t, r.Edges(6, stored, nil, t0.Add(time.Hour)).Empty())

	// and revive when seen again
	plan = r.Edges(6, stored, []models.TopologyEdge{edge("a:1|b:2", models.ConfidenceLow)}, t0.Add(2*time.Hour))
	require.Len(t, plan.Update, 1)
	assert.False(t, plan.Update[0].Stale)
	assert.Equal(t, t0, plan.Update[0].FirstSeen)
}

func TestEdgesDuplicateKeysCollapse(t *testing.T) {
	r := newTestReconciler()

	plan := r.Edges(0, nil, []models.TopologyEdge{
		edge("a:1|b:2", models.ConfidenceHigh),
		edge("a:1|b:2", models.ConfidenceHigh),
	}, t0)
	assert.Len(t, plan.Insert, 1)
}
