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

// Package lifecycle wires process-level concerns shared by the binaries:
// component loggers, the metrics and trace pipelines and their shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/version"
)

// CreateComponentLogger creates a logger tagged with the given component name.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	base, err := logger.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.Wrap(base.WithComponent(component)), nil
}

// InitializeMetrics starts the OTLP metrics pipeline when it is configured.
// A disabled pipeline is not an error; the global no-op meter stays in place.
func InitializeMetrics(ctx context.Context, serviceName string, otelCfg *logger.OTelConfig, log logger.Logger) error {
	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Get().Version,
		OTel:           otelCfg,
	})

	switch {
	case errors.Is(err, logger.ErrOTelMetricsDisabled):
		log.Debug().Msg("OTel metrics export disabled")
		return nil
	case err != nil:
		return err
	}

	log.Info().Str("endpoint", otelCfg.Endpoint).Msg("OTel metrics export enabled")

	return nil
}

// InitializeTracing starts the OTLP trace pipeline when it is configured.
// Without it spans go to the global no-op provider.
func InitializeTracing(ctx context.Context, serviceName string, otelCfg *logger.OTelConfig, log logger.Logger) error {
	_, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Get().Version,
		OTel:           otelCfg,
	})

	switch {
	case errors.Is(err, logger.ErrOTelTracingDisabled):
		log.Debug().Msg("OTel trace export disabled")
		return nil
	case err != nil:
		return err
	}

	log.Info().Str("endpoint", otelCfg.Endpoint).Msg("OTel trace export enabled")

	return nil
}

// ShutdownLogger flushes any pending OTel logs, metrics and spans.
func ShutdownLogger() error {
	return logger.ShutdownOTEL()
}
