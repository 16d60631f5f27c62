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
	"time"

	"github.com/carverauto/netdiscovery/pkg/models"
)

// Edges diffs a freshly built edge set against the stored one. Edges missing
// from next age by one miss and are flagged stale after the grace period;
// they are never removed.
func (r *Reconciler) Edges(version int64, prev, next []models.TopologyEdge, now time.Time) *EdgePlan {
	plan := &EdgePlan{BaseVersion: version, ObservedAt: now}

	old := make(map[string]*models.TopologyEdge, len(prev))
	for i := range prev {
		old[prev[i].Key] = &prev[i]
	}

	seen := make(map[string]bool, len(next))

	for i := range next {
		cur := next[i]
		if seen[cur.Key] {
			continue
		}

		seen[cur.Key] = true
		cur.LastConfirmed = now
		cur.MissCount = 0
		cur.Stale = false

		was, ok := old[cur.Key]
		if !ok {
			cur.FirstSeen = now
			plan.Insert = append(plan.Insert, cur)
			plan.New++

			continue
		}

		cur.FirstSeen = was.FirstSeen

		if !cur.SameAttributes(was) || was.Stale || was.MissCount > 0 {
			plan.Update = append(plan.Update, cur)
			plan.Changed++

			continue
		}

		plan.Touch = append(plan.Touch, cur.Key)
	}

	for i := range prev {
		was := prev[i]
		if seen[was.Key] || was.Stale {
			continue
		}

		was.MissCount++
		if was.MissCount >= r.policy.StaleAfterMisses {
			was.Stale = true
			plan.Stale++
		}

		plan.Update = append(plan.Update, was)
	}

	sort.Slice(plan.Insert, func(i, j int) bool { return plan.Insert[i].Key < plan.Insert[j].Key })
	sort.Slice(plan.Update, func(i, j int) bool { return plan.Update[i].Key < plan.Update[j].Key })
	sort.Strings(plan.Touch)

	return plan
}
