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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/snmp/snmptest"
)

// recordSpans installs a recording global tracer provider for one test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		assert.NoError(t, tp.Shutdown(context.Background()))
	})

	return recorder
}

func spansNamed(recorder *tracetest.SpanRecorder, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan

	for _, s := range recorder.Ended() {
		if s.Name() == name {
			out = append(out, s)
		}
	}

	return out
}

func TestProbeStepSpans(t *testing.T) {
	recorder := recordSpans(t)

	agent := switchA().FailWalk(qFdbPort, errors.New("timeout")).FailWalk(dFdbStatus, errors.New("timeout"))

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	_, err := newTestProber(agent).Probe(ctx, testTarget("10.0.0.1"))
	parent.End()

	var partial *PartialResult
	require.ErrorAs(t, err, &partial)

	tests := []struct {
		name   string
		status codes.Code
	}{
		{"probe.identity", codes.Unset},
		{"probe." + StepInterfaces, codes.Unset},
		{"probe." + StepFDB, codes.Error},
		{"probe." + StepLLDP, codes.Unset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := spansNamed(recorder, tt.name)
			require.Len(t, spans, 1)

			assert.Equal(t, tt.status, spans[0].Status().Code)
			assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
			assert.Equal(t, parent.SpanContext().TraceID(), spans[0].SpanContext().TraceID())
		})
	}
}

func TestEngineProbeAndRebuildSpans(t *testing.T) {
	recorder := recordSpans(t)

	net := snmptest.NewNetwork()
	net.Add("10.0.0.1", switchA())

	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.1"}), net, nil)

	ev := f.next(t, "10.0.0.1")
	require.Equal(t, models.OutcomeSuccess, ev.Outcome)

	probes := spansNamed(recorder, spanProbe)
	require.Len(t, probes, 1)

	attrs := make(map[string]string)
	for _, kv := range probes[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "10.0.0.1", attrs[attrDeviceAddress])
	assert.Equal(t, string(models.OutcomeSuccess), attrs[attrOutcome])

	steps := spansNamed(recorder, "probe."+StepInterfaces)
	require.Len(t, steps, 1)
	assert.Equal(t, probes[0].SpanContext().SpanID(), steps[0].Parent().SpanID())

	assert.Eventually(t, func() bool {
		return len(spansNamed(recorder, spanRebuild)) > 0
	}, eventWait, 10*time.Millisecond)
}
