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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/netdiscovery/pkg/db"
	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/mapper"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/scheduler"
)

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())

	return out
}

func TestHealth(t *testing.T) {
	s := NewAPIServer(models.HTTPConfig{APIKey: "secret"})

	rr := do(t, s.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer

	s := NewAPIServer(models.HTTPConfig{}, WithLogger(logger.NewWriterLogger(&buf)))

	rr := httptest.NewRecorder()
	s.writeJSON(rr, http.StatusOK, map[string]any{"updates": make(chan int)})

	assert.Equal(t, http.StatusOK, rr.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "Failed to encode response", line["message"])
	assert.Contains(t, line["error"], "unsupported type")
}

func TestAPIKeyGuardsAPIRoutes(t *testing.T) {
	s := NewAPIServer(models.HTTPConfig{APIKey: "secret"}, WithStore(db.NewMemoryStore()))

	rr := do(t, s.Handler(), http.MethodGet, "/api/devices")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, s.Handler(), http.MethodGet, "/api/devices?api_key=secret")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestListDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockStore(ctrl)

	store.EXPECT().ListDevices(gomock.Any()).Return([]models.Device{
		{ID: "dev-1", Address: "10.0.0.1", Status: models.DeviceStatusUp},
		{ID: "dev-2", Address: "10.0.0.2", Status: models.DeviceStatusDown},
	}, nil)

	s := NewAPIServer(models.HTTPConfig{}, WithStore(store), WithLogger(logger.NewTestLogger()))

	rr := do(t, s.Handler(), http.MethodGet, "/api/devices")
	require.Equal(t, http.StatusOK, rr.Code)

	devices := decode[[]models.Device](t, rr)
	require.Len(t, devices, 2)
	assert.Equal(t, "10.0.0.2", devices[1].Address)
	assert.Equal(t, models.DeviceStatusDown, devices[1].Status)
}

func TestListDevicesStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockStore(ctrl)

	store.EXPECT().ListDevices(gomock.Any()).Return(nil, db.ErrDatabaseError)

	s := NewAPIServer(models.HTTPConfig{}, WithStore(store))

	rr := do(t, s.Handler(), http.MethodGet, "/api/devices")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, http.StatusInternalServerError, decode[ErrorResponse](t, rr).Status)
}

func TestGetDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockStore(ctrl)

	dev := &models.Device{ID: "dev-1", Address: "10.0.0.1", SysName: "switch-A"}

	gomock.InOrder(
		store.EXPECT().GetDevice(gomock.Any(), "10.0.0.1").Return(nil, db.ErrDeviceNotFound),
		store.EXPECT().GetDeviceByAddress(gomock.Any(), "10.0.0.1").Return(dev, nil),
	)
	store.EXPECT().ListInterfaces(gomock.Any(), "dev-1").
		Return([]models.Interface{{DeviceID: "dev-1", IfIndex: 1, Name: "Gi0/1"}}, nil)
	store.EXPECT().ListMacEntries(gomock.Any(), "dev-1", true).Return(nil, nil)

	s := NewAPIServer(models.HTTPConfig{}, WithStore(store))

	rr := do(t, s.Handler(), http.MethodGet, "/api/devices/10.0.0.1?include_retired=true")
	require.Equal(t, http.StatusOK, rr.Code)

	detail := decode[DeviceDetail](t, rr)
	require.NotNil(t, detail.Device)
	assert.Equal(t, "switch-A", detail.Device.SysName)
	require.Len(t, detail.Interfaces, 1)
	assert.Equal(t, "Gi0/1", detail.Interfaces[0].Name)
	assert.NotNil(t, detail.MacEntries)
	assert.Empty(t, detail.MacEntries)
}

func TestGetDeviceNotFound(t *testing.T) {
	s := NewAPIServer(models.HTTPConfig{}, WithStore(db.NewMemoryStore()))

	rr := do(t, s.Handler(), http.MethodGet, "/api/devices/dev-404")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "device not found", decode[ErrorResponse](t, rr).Message)
}

func TestProbeDevice(t *testing.T) {
	at := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "queued", wantStatus: http.StatusAccepted},
		{name: "unknown", err: mapper.ErrUnknownTarget, wantStatus: http.StatusNotFound},
		{name: "already active", err: scheduler.ErrAlreadyActive, wantStatus: http.StatusConflict},
		{name: "suspended", err: fmt.Errorf("10.0.0.1: %w", scheduler.ErrSuspended), wantStatus: http.StatusConflict},
		{name: "queue full", err: mapper.ErrJobQueueFull, wantStatus: http.StatusServiceUnavailable},
		{name: "stopped", err: mapper.ErrEngineStopped, wantStatus: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			engine := mapper.NewMockEngine(ctrl)

			job := scheduler.Job{}
			if tt.err == nil {
				job = scheduler.Job{DeviceID: "10.0.0.1", ScheduledAt: at, Manual: true}
			}

			engine.EXPECT().ProbeNow(gomock.Any(), "dev-1").Return(job, tt.err)

			s := NewAPIServer(models.HTTPConfig{}, WithEngine(engine))

			rr := do(t, s.Handler(), http.MethodPost, "/api/devices/dev-1/probe")
			require.Equal(t, tt.wantStatus, rr.Code)

			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), decode[ErrorResponse](t, rr).Message)
				return
			}

			resp := decode[ProbeResponse](t, rr)
			assert.Equal(t, "10.0.0.1", resp.Address)
			assert.True(t, resp.ScheduledAt.Equal(at))
		})
	}
}

func TestProbeRequiresPost(t *testing.T) {
	s := NewAPIServer(models.HTTPConfig{}, WithEngine(mapper.NewMockEngine(gomock.NewController(t))))

	rr := do(t, s.Handler(), http.MethodGet, "/api/devices/dev-1/probe")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := mapper.NewMockEngine(ctrl)

	engine.EXPECT().Statuses().Return([]mapper.TargetStatus{
		{Address: "10.0.0.1", State: "idle", Interval: 5 * time.Minute},
		{Address: "10.0.0.2", State: "suspended", Failures: 1},
	})

	s := NewAPIServer(models.HTTPConfig{}, WithEngine(engine))

	rr := do(t, s.Handler(), http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rr.Code)

	statuses := decode[[]mapper.TargetStatus](t, rr)
	require.Len(t, statuses, 2)
	assert.Equal(t, "suspended", statuses[1].State)
	assert.Equal(t, 1, statuses[1].Failures)
}

func TestTopology(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockStore(ctrl)

	store.EXPECT().LoadEdges(gomock.Any()).Return([]models.TopologyEdge{
		{Key: "a|b", Protocol: models.ProtocolLLDP, Resolved: true, Reporters: 2},
	}, int64(3), nil)

	s := NewAPIServer(models.HTTPConfig{}, WithStore(store))

	rr := do(t, s.Handler(), http.MethodGet, "/api/topology")
	require.Equal(t, http.StatusOK, rr.Code)

	topo := decode[TopologyResponse](t, rr)
	assert.Equal(t, int64(3), topo.Version)
	require.Len(t, topo.Edges, 1)
	assert.True(t, topo.Edges[0].Resolved)
}

func TestMissingBackends(t *testing.T) {
	s := NewAPIServer(models.HTTPConfig{})

	for _, target := range []string{"/api/devices", "/api/devices/x", "/api/status", "/api/topology"} {
		rr := do(t, s.Handler(), http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, target)
	}

	rr := do(t, s.Handler(), http.MethodPost, "/api/devices/x/probe")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRunServerStopsOnCancel(t *testing.T) {
	s := NewAPIServer(models.HTTPConfig{})
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: s.Handler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- RunServer(ctx, srv, logger.NewTestLogger()) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunServer did not return after cancel")
	}
}
