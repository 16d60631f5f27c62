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

package mapper

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/netdiscovery/pkg/models"
)

const (
	mapperMeterName = "netdiscovery.mapper"

	metricProbesTotalName     = "probes_total"
	metricEntitiesChangedName = "entities_changed_total"
	metricProbeDurationName   = "probe_duration_ms"
	metricProbesInflightName  = "probes_inflight"
)

var (
	//nolint:gochecknoglobals // metric instruments are shared singletons
	mapperMetricsOnce sync.Once
	//nolint:gochecknoglobals // metric instruments are shared singletons
	mapperMetrics struct {
		probes   metric.Int64Counter
		entities metric.Int64Counter
		duration metric.Float64Histogram
		inflight metric.Int64UpDownCounter
	}
)

func initMapperMetrics() {
	meter := otel.Meter(mapperMeterName)

	var err error

	mapperMetrics.probes, err = meter.Int64Counter(
		metricProbesTotalName,
		metric.WithDescription("Completed device probes by outcome"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	mapperMetrics.entities, err = meter.Int64Counter(
		metricEntitiesChangedName,
		metric.WithDescription("Inventory and topology rows written by change class"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	mapperMetrics.duration, err = meter.Float64Histogram(
		metricProbeDurationName,
		metric.WithDescription("Wall time of one device probe in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
		return
	}

	mapperMetrics.inflight, err = meter.Int64UpDownCounter(
		metricProbesInflightName,
		metric.WithDescription("Probes currently running"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func ensureMapperMetrics() {
	mapperMetricsOnce.Do(initMapperMetrics)
}

func recordProbeStart(ctx context.Context) {
	ensureMapperMetrics()

	if mapperMetrics.inflight != nil {
		mapperMetrics.inflight.Add(ctx, 1)
	}
}

func recordProbeEnd(ctx context.Context, outcome models.PollOutcome, elapsed time.Duration) {
	ensureMapperMetrics()

	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))

	if mapperMetrics.inflight != nil {
		mapperMetrics.inflight.Add(ctx, -1)
	}

	if mapperMetrics.probes != nil {
		mapperMetrics.probes.Add(ctx, 1, attrs)
	}

	if mapperMetrics.duration != nil {
		mapperMetrics.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
}

func recordEntities(ctx context.Context, class string, newCount, changed, stale int) {
	ensureMapperMetrics()

	if mapperMetrics.entities == nil {
		return
	}

	for kind, n := range map[string]int{"new": newCount, "changed": changed, "stale": stale} {
		if n > 0 {
			mapperMetrics.entities.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("class", class),
				attribute.String("change", kind),
			))
		}
	}
}
