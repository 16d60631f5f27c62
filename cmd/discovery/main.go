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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/netdiscovery/pkg/api"
	"github.com/carverauto/netdiscovery/pkg/config"
	"github.com/carverauto/netdiscovery/pkg/db"
	"github.com/carverauto/netdiscovery/pkg/lifecycle"
	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/mapper"
	"github.com/carverauto/netdiscovery/pkg/natsutil"
	"github.com/carverauto/netdiscovery/pkg/snmp"
	"github.com/carverauto/netdiscovery/pkg/version"
)

const (
	serviceName = "netdiscovery"
	stopTimeout = 30 * time.Second
)

var (
	errFailedToLoadConfig          = errors.New("failed to load discovery configuration")
	errFailedToLoadEnv             = errors.New("failed to load env file")
	errFailedToInitDiscoveryEngine = errors.New("failed to initialize discovery engine")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configFile := flag.String("config", "/etc/netdiscovery/config.yaml", "Path to discovery config file")
	envFile := flag.String("env", "", "Optional .env file loaded before the config")
	showVersion := flag.Bool("version", false, "Print the version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return nil
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("%w: %w", errFailedToLoadEnv, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg mapper.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configFile, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = logger.DefaultConfig()
	}

	mainLogger, err := lifecycle.CreateComponentLogger(ctx, "discovery", logCfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shutdown logger: %v", err)
		}
	}()

	if cfg.Metrics.Enabled {
		otelCfg := &logger.OTelConfig{
			Enabled:  true,
			Endpoint: cfg.Metrics.Endpoint,
			Insecure: cfg.Metrics.Insecure,
		}

		if err := lifecycle.InitializeMetrics(ctx, serviceName, otelCfg, mainLogger); err != nil {
			mainLogger.Warn().Err(err).Msg("Failed to initialize metrics, continuing without export")
		}

		if err := lifecycle.InitializeTracing(ctx, serviceName, otelCfg, mainLogger); err != nil {
			mainLogger.Warn().Err(err).Msg("Failed to initialize tracing, continuing without export")
		}
	}

	store, err := db.Open(ctx, &cfg.Database, mainLogger)
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(); err != nil {
			mainLogger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	publishers := mapper.MultiPublisher{mapper.NewLogPublisher(mainLogger)}

	var nc *nats.Conn

	if cfg.NATS != nil && cfg.NATS.URL != "" {
		nc, err = natsutil.Connect(cfg.NATS, mainLogger)
		if err != nil {
			return err
		}
		defer nc.Close()

		events, err := natsutil.CreateEventPublisher(ctx, nc, cfg.NATS.Stream, cfg.NATS.SubjectPrefix, mainLogger)
		if err != nil {
			return err
		}

		publishers = append(publishers, events)
	}

	client := snmp.NewClient(cfg.ClientConfig(), nil, mainLogger)

	engine, err := mapper.NewDiscoveryEngine(&cfg, client, store, publishers, mainLogger)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitDiscoveryEngine, err)
	}

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", errFailedToInitDiscoveryEngine, err)
	}

	apiServer := api.NewAPIServer(cfg.HTTP,
		api.WithEngine(engine),
		api.WithStore(store),
		api.WithLogger(mainLogger),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return api.RunServer(gctx, &http.Server{Addr: cfg.HTTP.ListenAddr, Handler: apiServer.Handler()}, mainLogger)
	})

	if nc != nil {
		responder := natsutil.NewProbeResponder(nc, cfg.NATS.ProbeSubject, engine, mainLogger)

		g.Go(func() error {
			return responder.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), stopTimeout)
		defer cancel()

		return engine.Stop(stopCtx)
	})

	mainLogger.Info().
		Int("workers", cfg.Workers).
		Str("listen_addr", cfg.HTTP.ListenAddr).
		Bool("nats", nc != nil).
		Str("version", version.Get().String()).
		Msg("Discovery service started")

	err = g.Wait()

	mainLogger.Info().Msg("Discovery service stopped")

	return err
}
