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

// Package api provides the HTTP control API of the discovery service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carverauto/netdiscovery/pkg/db"
	srHttp "github.com/carverauto/netdiscovery/pkg/http"
	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/mapper"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/scheduler"
	"github.com/carverauto/netdiscovery/pkg/version"
)

const (
	requestTimeout  = 20 * time.Second
	shutdownTimeout = 15 * time.Second
	readHeaderLimit = 5 * time.Second
)

// APIServer serves the inventory, topology and schedule over HTTP.
type APIServer struct {
	config models.HTTPConfig
	engine mapper.Engine
	store  db.Store
	logger logger.Logger
	router chi.Router
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// DeviceDetail is a device with its interfaces and learned MAC entries.
type DeviceDetail struct {
	Device     *models.Device     `json:"device"`
	Interfaces []models.Interface `json:"interfaces"`
	MacEntries []models.MacEntry  `json:"mac_entries"`
}

// TopologyResponse is the current edge set.
type TopologyResponse struct {
	Version int64                 `json:"version"`
	Edges   []models.TopologyEdge `json:"edges"`
}

// ProbeResponse acknowledges a queued manual probe.
type ProbeResponse struct {
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// WithEngine sets the engine used for schedule reads and manual probes.
func WithEngine(e mapper.Engine) func(*APIServer) {
	return func(s *APIServer) {
		s.engine = e
	}
}

// WithStore sets the inventory store.
func WithStore(store db.Store) func(*APIServer) {
	return func(s *APIServer) {
		s.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) func(*APIServer) {
	return func(s *APIServer) {
		s.logger = log
	}
}

// NewAPIServer creates a new API server instance with the given configuration.
func NewAPIServer(config models.HTTPConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		config: config,
		logger: logger.Nop(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

func (s *APIServer) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.health)

	r.Route("/api", func(api chi.Router) {
		api.Use(srHttp.APIKeyMiddleware(s.config.APIKey, s.logger))

		api.Get("/devices", s.listDevices)
		api.Get("/devices/{id}", s.getDevice)
		api.Post("/devices/{id}/probe", s.probeDevice)
		api.Get("/status", s.status)
		api.Get("/topology", s.topology)
	})

	s.router = r
}

// Handler returns the routed handler wrapped in the common middleware.
func (s *APIServer) Handler() http.Handler {
	return srHttp.CommonMiddleware(s.router, s.config.CORS, s.logger)
}

func (s *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Get().String()})
}

func (s *APIServer) listDevices(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, "store not configured", http.StatusServiceUnavailable)
		return
	}

	devices, err := s.store.ListDevices(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list devices")
		s.writeError(w, "failed to list devices", http.StatusInternalServerError)

		return
	}

	if devices == nil {
		devices = []models.Device{}
	}

	s.writeJSON(w, http.StatusOK, devices)
}

// getDevice accepts a device id or a management address. Retired MAC
// entries are included when include_retired is true.
func (s *APIServer) getDevice(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, "store not configured", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	key := chi.URLParam(r, "id")

	dev, err := s.store.GetDevice(ctx, key)
	if errors.Is(err, db.ErrDeviceNotFound) {
		dev, err = s.store.GetDeviceByAddress(ctx, key)
	}

	switch {
	case errors.Is(err, db.ErrDeviceNotFound):
		s.writeError(w, "device not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error().Err(err).Str("device", key).Msg("Failed to load device")
		s.writeError(w, "failed to load device", http.StatusInternalServerError)

		return
	}

	includeRetired, _ := strconv.ParseBool(r.URL.Query().Get("include_retired"))

	ifaces, err := s.store.ListInterfaces(ctx, dev.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("device_id", dev.ID).Msg("Failed to list interfaces")
		s.writeError(w, "failed to list interfaces", http.StatusInternalServerError)

		return
	}

	macs, err := s.store.ListMacEntries(ctx, dev.ID, includeRetired)
	if err != nil {
		s.logger.Error().Err(err).Str("device_id", dev.ID).Msg("Failed to list MAC entries")
		s.writeError(w, "failed to list mac entries", http.StatusInternalServerError)

		return
	}

	if ifaces == nil {
		ifaces = []models.Interface{}
	}

	if macs == nil {
		macs = []models.MacEntry{}
	}

	s.writeJSON(w, http.StatusOK, DeviceDetail{Device: dev, Interfaces: ifaces, MacEntries: macs})
}

func (s *APIServer) probeDevice(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.writeError(w, "engine not configured", http.StatusServiceUnavailable)
		return
	}

	key := chi.URLParam(r, "id")

	job, err := s.engine.ProbeNow(r.Context(), key)
	if err != nil {
		status := probeErrorStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error().Err(err).Str("device", key).Msg("Manual probe failed")
		}

		s.writeError(w, err.Error(), status)

		return
	}

	s.writeJSON(w, http.StatusAccepted, ProbeResponse{Address: job.DeviceID, ScheduledAt: job.ScheduledAt})
}

func probeErrorStatus(err error) int {
	switch {
	case errors.Is(err, mapper.ErrUnknownTarget):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrAlreadyActive), errors.Is(err, scheduler.ErrSuspended):
		return http.StatusConflict
	case errors.Is(err, mapper.ErrJobQueueFull), errors.Is(err, mapper.ErrEngineStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *APIServer) status(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		s.writeError(w, "engine not configured", http.StatusServiceUnavailable)
		return
	}

	statuses := s.engine.Statuses()
	if statuses == nil {
		statuses = []mapper.TargetStatus{}
	}

	s.writeJSON(w, http.StatusOK, statuses)
}

func (s *APIServer) topology(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, "store not configured", http.StatusServiceUnavailable)
		return
	}

	edges, edgeVersion, err := s.store.LoadEdges(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load topology")
		s.writeError(w, "failed to load topology", http.StatusInternalServerError)

		return
	}

	if edges == nil {
		edges = []models.TopologyEdge{}
	}

	s.writeJSON(w, http.StatusOK, TopologyResponse{Version: edgeVersion, Edges: edges})
}

// writeJSON sends payload with status. The header is already out when
// encoding fails, so the failure is only logged.
func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug().Err(err).Int("status", status).Msg("Failed to encode response")
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Message: message, Status: statusCode})
}

// RunServer serves until ctx is done, then shuts the server down gracefully.
func RunServer(ctx context.Context, server *http.Server, log logger.Logger) error {
	if server.ReadHeaderTimeout == 0 {
		server.ReadHeaderTimeout = readHeaderLimit
	}

	errCh := make(chan error, 1)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	log.Info().Str("addr", server.Addr).Msg("Control API listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Control API failed")
			return err
		}

		return nil
	}
}
