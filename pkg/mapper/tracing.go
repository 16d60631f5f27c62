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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/netdiscovery/pkg/logger"
)

const (
	mapperTracerName = "netdiscovery.mapper"

	spanProbe   = "discovery.probe"
	spanRebuild = "topology.rebuild"
	spanStep    = "probe."

	attrDeviceAddress = "device.address"
	attrOutcome       = "discovery.outcome"
	attrEdges         = "topology.edges"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return logger.GetTracer(mapperTracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan marks the span failed when err is set.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// traceStep runs one probe step inside its own child span.
func traceStep(ctx context.Context, step string, fn func(context.Context) error) error {
	ctx, span := startSpan(ctx, spanStep+step)
	err := fn(ctx)
	endSpan(span, err)

	return err
}
