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
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carverauto/netdiscovery/pkg/db"
	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/reconcile"
	"github.com/carverauto/netdiscovery/pkg/scheduler"
	"github.com/carverauto/netdiscovery/pkg/snmp"
	"github.com/carverauto/netdiscovery/pkg/topology"
)

const (
	defaultCommitTimeout  = 30 * time.Second
	defaultSubscriberSize = 64
	commitAttempts        = 2
)

// TargetStatus is the schedule and last outcome of one target.
type TargetStatus struct {
	Address   string                 `json:"address"`
	State     string                 `json:"state"`
	Interval  time.Duration          `json:"interval"`
	NextDue   time.Time              `json:"next_due"`
	Failures  int                    `json:"consecutive_failures"`
	LastEvent *models.DiscoveryEvent `json:"last_event,omitempty"`
}

// Option configures a DiscoveryEngine.
type Option func(*DiscoveryEngine)

// WithClock replaces the wall clock that drives scheduling.
func WithClock(c scheduler.Clock) Option {
	return func(e *DiscoveryEngine) {
		e.clock = c
	}
}

// WithIDGenerator replaces the uuid generator used for new inventory rows.
func WithIDGenerator(fn func() string) Option {
	return func(e *DiscoveryEngine) {
		e.newID = fn
	}
}

// probeOutcome travels from a worker to the result loop.
type probeOutcome struct {
	job      scheduler.Job
	target   *DeviceTarget
	result   *ProbeResult
	err      error
	started  time.Time
	finished time.Time
}

// DiscoveryEngine polls every configured target on its interval, reconciles
// what it learns into the store and keeps the topology edge set current.
type DiscoveryEngine struct {
	config     *Config
	prober     *Prober
	sched      *scheduler.Scheduler
	reconciler *reconcile.Reconciler
	builder    *topology.Builder
	store      db.Store
	publisher  Publisher
	clock      scheduler.Clock
	newID      func() string
	logger     logger.Logger

	// targets is fixed after construction
	targets map[string]*DeviceTarget

	mu          sync.RWMutex
	neighbors   map[string][]models.NeighborObservation // by device id
	lastEvents  map[string]models.DiscoveryEvent        // by address
	subscribers map[int]chan models.DiscoveryEvent
	nextSub     int

	jobs       chan scheduler.Job
	results    chan probeOutcome
	refresh    chan struct{}
	topoStop   chan struct{}
	done       chan struct{}
	jobCtx     context.Context //nolint:containedctx // cancelled by Stop
	cancelJobs context.CancelFunc

	lifecycle sync.RWMutex
	started   bool
	stopped   bool

	tickWG   sync.WaitGroup
	workerWG sync.WaitGroup
	resultWG sync.WaitGroup
	topoWG   sync.WaitGroup
	topoMu   sync.Mutex
}

var _ Engine = (*DiscoveryEngine)(nil)

// NewDiscoveryEngine validates cfg and builds an engine. A nil publisher
// disables external delivery; Subscribe still works.
func NewDiscoveryEngine(
	cfg *Config,
	transport snmp.Transport,
	store db.Store,
	publisher Publisher,
	log logger.Logger,
	opts ...Option,
) (*DiscoveryEngine, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid discovery engine configuration: %w", err)
	}

	if transport == nil {
		return nil, ErrTransportNeeded
	}

	if store == nil {
		return nil, ErrStoreRequired
	}

	e := &DiscoveryEngine{
		config:      cfg,
		sched:       scheduler.New(cfg.DeviceBackoff.device()),
		builder:     topology.NewBuilder(log),
		store:       store,
		publisher:   publisher,
		clock:       scheduler.RealClock{},
		logger:      log,
		targets:     make(map[string]*DeviceTarget),
		neighbors:   make(map[string][]models.NeighborObservation),
		lastEvents:  make(map[string]models.DiscoveryEvent),
		subscribers: make(map[int]chan models.DiscoveryEvent),
		refresh:     make(chan struct{}, 1),
		topoStop:    make(chan struct{}),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.reconciler = reconcile.New(cfg.Policy())
	if e.newID != nil {
		e.reconciler.WithIDGenerator(e.newID)
	}

	e.prober = NewProber(transport, e.clock.Now, log)

	for _, t := range ExpandTargets(cfg, log) {
		e.targets[t.Address] = &t
	}

	if len(e.targets) == 0 {
		return nil, ErrNoTargets
	}

	e.jobs = make(chan scheduler.Job, len(e.targets)+1)
	e.results = make(chan probeOutcome, cfg.Workers)

	return e, nil
}

// Start registers every target and starts the tick, worker, result and
// topology goroutines. Targets with unusable credentials are suspended and
// reported with a config_error event.
func (e *DiscoveryEngine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}

	if e.started {
		return ErrEngineStarted
	}

	e.started = true
	e.jobCtx, e.cancelJobs = context.WithCancel(context.WithoutCancel(ctx))

	now := e.clock.Now()

	for _, addr := range e.sortedAddresses() {
		t := e.targets[addr]
		e.sched.Register(addr, t.PollInterval, now)

		if t.CredentialsErr != nil {
			e.sched.Suspend(addr)

			e.logger.Error().Err(t.CredentialsErr).Str("device", addr).Msg("Target suspended")

			e.emit(ctx, models.DiscoveryEvent{
				Address:    addr,
				Status:     models.DeviceStatusUnknown,
				Outcome:    models.OutcomeConfigError,
				Error:      t.CredentialsErr.Error(),
				StartedAt:  now,
				FinishedAt: now,
			})
		}
	}

	e.logger.Info().
		Int("workers", e.config.Workers).
		Int("targets", len(e.targets)).
		Dur("tick_interval", e.config.TickInterval.Std()).
		Msg("Starting discovery engine")

	e.workerWG.Add(e.config.Workers)

	for i := 0; i < e.config.Workers; i++ {
		go e.worker()
	}

	e.resultWG.Add(1)

	go e.resultLoop()

	e.topoWG.Add(1)

	go e.topologyLoop()

	e.tickWG.Add(1)

	go e.tickLoop()

	return nil
}

// Stop stops scheduling, cancels running probes and waits until every
// gathered result is committed. Probes interrupted by the cancellation
// are committed as partial results.
func (e *DiscoveryEngine) Stop(ctx context.Context) error {
	e.lifecycle.Lock()

	if e.stopped {
		e.lifecycle.Unlock()
		return nil
	}

	e.stopped = true

	if !e.started {
		e.lifecycle.Unlock()
		return nil
	}

	close(e.done)
	e.lifecycle.Unlock()

	e.logger.Info().Msg("Stopping discovery engine")

	finished := make(chan struct{})

	go func() {
		e.cancelJobs()
		e.tickWG.Wait()

		close(e.jobs)
		e.workerWG.Wait()

		close(e.results)
		e.resultWG.Wait()

		close(e.topoStop)
		e.topoWG.Wait()

		e.closeSubscribers()
		close(finished)
	}()

	select {
	case <-finished:
		e.logger.Info().Msg("Discovery engine stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrStopTimeout, ctx.Err())
	}
}

// ProbeNow queues an immediate probe of a target, addressed by its IP
// address or by the id of the device stored for it.
func (e *DiscoveryEngine) ProbeNow(ctx context.Context, deviceIDOrAddress string) (scheduler.Job, error) {
	addr, err := e.resolveTarget(ctx, deviceIDOrAddress)
	if err != nil {
		return scheduler.Job{}, err
	}

	e.lifecycle.RLock()
	defer e.lifecycle.RUnlock()

	if !e.started || e.stopped {
		return scheduler.Job{}, ErrEngineStopped
	}

	job, err := e.sched.ProbeNow(addr, e.clock.Now())
	if err != nil {
		return scheduler.Job{}, fmt.Errorf("probe %s: %w", addr, err)
	}

	select {
	case e.jobs <- job:
		e.logger.Info().Str("device", addr).Msg("Queued manual probe")

		return job, nil
	default:
		e.sched.Release(addr)

		return scheduler.Job{}, ErrJobQueueFull
	}
}

func (e *DiscoveryEngine) resolveTarget(ctx context.Context, deviceIDOrAddress string) (string, error) {
	if _, ok := e.targets[deviceIDOrAddress]; ok {
		return deviceIDOrAddress, nil
	}

	d, err := e.store.GetDevice(ctx, deviceIDOrAddress)
	if errors.Is(err, db.ErrDeviceNotFound) {
		return "", fmt.Errorf("%w: %s", ErrUnknownTarget, deviceIDOrAddress)
	}

	if err != nil {
		return "", err
	}

	if _, ok := e.targets[d.Address]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTarget, deviceIDOrAddress)
	}

	return d.Address, nil
}

// Subscribe returns a channel receiving one event per completed poll. Slow
// subscribers miss events rather than stall the engine. The channel is
// closed by the returned function or when the engine stops.
func (e *DiscoveryEngine) Subscribe() (<-chan models.DiscoveryEvent, func()) {
	ch := make(chan models.DiscoveryEvent, defaultSubscriberSize)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subscribers == nil {
		close(ch)
		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = ch

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if c, ok := e.subscribers[id]; ok {
			delete(e.subscribers, id)
			close(c)
		}
	}
}

func (e *DiscoveryEngine) closeSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}

	e.subscribers = nil
}

// Statuses reports every target sorted by address.
func (e *DiscoveryEngine) Statuses() []TargetStatus {
	statuses := e.sched.Statuses()

	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]TargetStatus, 0, len(statuses))

	for _, st := range statuses {
		ts := TargetStatus{
			Address:  st.DeviceID,
			State:    st.State,
			Interval: st.Interval,
			NextDue:  st.NextDue,
			Failures: st.Failures,
		}

		if ev, ok := e.lastEvents[st.DeviceID]; ok {
			ts.LastEvent = &ev
		}

		out = append(out, ts)
	}

	return out
}

func (e *DiscoveryEngine) sortedAddresses() []string {
	out := make([]string, 0, len(e.targets))
	for addr := range e.targets {
		out = append(out, addr)
	}

	sort.Strings(out)

	return out
}

func (e *DiscoveryEngine) tickLoop() {
	defer e.tickWG.Done()

	ticker := e.clock.Ticker(e.config.TickInterval.Std())
	defer ticker.Stop()

	e.dispatch()

	for {
		select {
		case <-e.done:
			return
		case <-e.jobCtx.Done():
			return
		case <-ticker.Chan():
			e.dispatch()
		}
	}
}

func (e *DiscoveryEngine) dispatch() {
	for _, job := range e.sched.Tick(e.clock.Now()) {
		select {
		case e.jobs <- job:
		case <-e.done:
			e.sched.Release(job.DeviceID)
		}
	}
}

func (e *DiscoveryEngine) worker() {
	defer e.workerWG.Done()

	for job := range e.jobs {
		if e.jobCtx.Err() != nil {
			e.sched.Release(job.DeviceID)
			continue
		}

		if !e.sched.Start(job.DeviceID) {
			continue
		}

		e.results <- e.runJob(job)
	}
}

func (e *DiscoveryEngine) runJob(job scheduler.Job) probeOutcome {
	target := e.targets[job.DeviceID]

	ctx, cancel := context.WithTimeout(e.jobCtx, e.config.JobTimeout.Std())
	defer cancel()

	ctx, span := startSpan(ctx, spanProbe, attribute.String(attrDeviceAddress, target.Address))

	recordProbeStart(ctx)

	out := probeOutcome{job: job, target: target, started: e.clock.Now()}
	out.result, out.err = e.prober.Probe(ctx, target)
	out.finished = e.clock.Now()

	outcome, _ := classify(out.err)
	span.SetAttributes(attribute.String(attrOutcome, string(outcome)))

	if outcome == models.OutcomePartial {
		span.End()
	} else {
		endSpan(span, out.err)
	}

	return out
}

func (e *DiscoveryEngine) resultLoop() {
	defer e.resultWG.Done()

	for out := range e.results {
		e.handleResult(out)
	}
}

// classify maps a probe error to an outcome and reports whether the target
// must stop being polled.
func classify(err error) (models.PollOutcome, bool) {
	var partial *PartialResult

	switch {
	case err == nil:
		return models.OutcomeSuccess, false
	case errors.As(err, &partial):
		return models.OutcomePartial, false
	case errors.Is(err, ErrConfig):
		return models.OutcomeConfigError, true
	case errors.Is(err, snmp.ErrAuthRejected):
		return models.OutcomeAuthRejected, true
	default:
		return models.OutcomeFailed, false
	}
}

func (e *DiscoveryEngine) handleResult(out probeOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCommitTimeout)
	defer cancel()

	addr := out.target.Address
	outcome, suspend := classify(out.err)

	recordProbeEnd(ctx, outcome, out.finished.Sub(out.started))

	ev := models.DiscoveryEvent{
		Address:    addr,
		Status:     models.DeviceStatusUnknown,
		Outcome:    outcome,
		Manual:     out.job.Manual,
		StartedAt:  out.started,
		FinishedAt: out.finished,
	}

	var partial *PartialResult

	switch {
	case errors.As(out.err, &partial):
		ev.Warnings = partial.Warnings()
	case out.err != nil:
		ev.Error = out.err.Error()
	}

	var plan *reconcile.Plan

	if outcome != models.OutcomeConfigError && !errors.Is(out.err, ErrProbeInterrupted) {
		var err error

		plan, err = e.commit(ctx, observationFrom(out))
		if err != nil {
			e.logger.Error().Err(err).Str("device", addr).Msg("Failed to commit poll result")

			ev.Warnings = append(ev.Warnings, "store: "+err.Error())
		}
	}

	if suspend {
		e.sched.Suspend(addr)
	} else {
		e.sched.Finish(addr, out.result != nil, e.clock.Now())
	}

	if plan != nil && plan.Device != nil {
		ev.DeviceID = plan.Device.ID
		ev.Status = plan.Device.Status
		ev.New, ev.Changed, ev.Stale = plan.New, plan.Changed, plan.Stale

		recordEntities(ctx, "device", plan.New, plan.Changed, plan.Stale)

		e.updateNeighbors(plan.Device, out.result)
	}

	e.logPoll(&ev)
	e.emit(ctx, ev)
	e.signalTopology()
}

func observationFrom(out probeOutcome) *reconcile.Observation {
	obs := &reconcile.Observation{Address: out.target.Address, ObservedAt: out.finished}

	if res := out.result; res != nil {
		obs.Success = true
		obs.Device = res.Device
		obs.Interfaces = res.Interfaces
		obs.InterfacesOK = res.InterfacesOK
		obs.MacEntries = res.MacEntries
		obs.FDBOK = res.FDBOK
		obs.InterfacesUnobserved = !res.InterfacesOK && slices.Contains(res.Interrupted, StepInterfaces)
		obs.MacsUnobserved = !res.FDBOK && slices.Contains(res.Interrupted, StepFDB)
	}

	return obs
}

// commit diffs obs against the stored snapshot and applies the plan,
// recomputing once when the snapshot moved underneath.
func (e *DiscoveryEngine) commit(ctx context.Context, obs *reconcile.Observation) (*reconcile.Plan, error) {
	var err error

	for attempt := 0; attempt < commitAttempts; attempt++ {
		var snap *reconcile.Snapshot

		snap, err = e.store.LoadSnapshot(ctx, obs.Address)
		if err != nil {
			return nil, err
		}

		plan := e.reconciler.Device(snap, obs)

		err = e.store.ApplyDevicePlan(ctx, plan)
		if err == nil {
			return plan, nil
		}

		if !errors.Is(err, db.ErrSnapshotConflict) {
			return nil, err
		}

		e.logger.Warn().Str("device", obs.Address).Msg("Snapshot moved, recomputing plan")
	}

	return nil, err
}

// updateNeighbors keeps the latest claims of each device. Claims survive a
// failed neighbor walk and are dropped once the device is down.
func (e *DiscoveryEngine) updateNeighbors(dev *models.Device, res *ProbeResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dev.Status == models.DeviceStatusDown {
		delete(e.neighbors, dev.ID)
		return
	}

	if res == nil || !res.NeighborsOK {
		return
	}

	claims := make([]models.NeighborObservation, len(res.Neighbors))
	for i, n := range res.Neighbors {
		n.LocalDeviceID = dev.ID
		claims[i] = n
	}

	e.neighbors[dev.ID] = claims
}

func (e *DiscoveryEngine) neighborClaims() []models.NeighborObservation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.neighbors))
	for id := range e.neighbors {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	var out []models.NeighborObservation
	for _, id := range ids {
		out = append(out, e.neighbors[id]...)
	}

	return out
}

func (e *DiscoveryEngine) logPoll(ev *models.DiscoveryEvent) {
	var evt *zerolog.Event

	switch ev.Outcome {
	case models.OutcomeSuccess:
		evt = e.logger.Info()
	case models.OutcomePartial:
		evt = e.logger.Warn().Strs("warnings", ev.Warnings)
	case models.OutcomeFailed:
		evt = e.logger.Warn().Str("error", ev.Error)
	case models.OutcomeAuthRejected, models.OutcomeConfigError:
		evt = e.logger.Error().Str("error", ev.Error)
	default:
		evt = e.logger.Info()
	}

	evt.Str("device", ev.Address).
		Str("outcome", string(ev.Outcome)).
		Str("status", string(ev.Status)).
		Int("new", ev.New).
		Int("changed", ev.Changed).
		Int("stale", ev.Stale).
		Bool("manual", ev.Manual).
		Dur("elapsed", ev.FinishedAt.Sub(ev.StartedAt)).
		Msg("Poll completed")
}

// emit records ev as the target's last event, publishes it and fans it out
// to subscribers.
func (e *DiscoveryEngine) emit(ctx context.Context, ev models.DiscoveryEvent) {
	e.mu.Lock()
	e.lastEvents[ev.Address] = ev
	e.mu.Unlock()

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, &ev); err != nil {
			e.logger.Warn().Err(err).Str("device", ev.Address).Msg("Failed to publish discovery event")
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- ev:
		default:
			e.logger.Debug().Str("device", ev.Address).Msg("Subscriber full, dropping event")
		}
	}
}

func (e *DiscoveryEngine) signalTopology() {
	select {
	case e.refresh <- struct{}{}:
	default:
	}
}

// topologyLoop coalesces refresh signals and rebuilds the edge set once the
// debounce window passes without a rebuild. A pending refresh is flushed on
// stop.
func (e *DiscoveryEngine) topologyLoop() {
	defer e.topoWG.Done()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
		dirty  bool
	)

	rebuild := func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultCommitTimeout)
		defer cancel()

		if err := e.RebuildTopology(ctx); err != nil {
			e.logger.Error().Err(err).Msg("Topology rebuild failed")
		}
	}

	for {
		select {
		case <-e.refresh:
			dirty = true

			if timer == nil {
				timer = time.NewTimer(e.config.TopologyDebounce.Std())
				timerC = timer.C
			}
		case <-timerC:
			timer, timerC = nil, nil
			dirty = false

			rebuild()
		case <-e.topoStop:
			if timer != nil {
				timer.Stop()
			}

			select {
			case <-e.refresh:
				dirty = true
			default:
			}

			if dirty {
				rebuild()
			}

			return
		}
	}
}

// RebuildTopology builds edges from the latest neighbor claims of every
// device and reconciles them into the store.
func (e *DiscoveryEngine) RebuildTopology(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, spanRebuild)
	defer func() { endSpan(span, err) }()

	e.topoMu.Lock()
	defer e.topoMu.Unlock()

	devices, err := e.store.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	ifaces := make(map[string][]models.Interface, len(devices))

	for i := range devices {
		list, err := e.store.ListInterfaces(ctx, devices[i].ID)
		if err != nil {
			return fmt.Errorf("list interfaces of %s: %w", devices[i].Address, err)
		}

		ifaces[devices[i].ID] = list
	}

	now := e.clock.Now()
	edges := e.builder.Build(e.neighborClaims(), topology.NewIndex(devices, ifaces), now)
	span.SetAttributes(attribute.Int(attrEdges, len(edges)))

	for attempt := 0; attempt < commitAttempts; attempt++ {
		var (
			prev    []models.TopologyEdge
			version int64
		)

		prev, version, err = e.store.LoadEdges(ctx)
		if err != nil {
			return fmt.Errorf("load edges: %w", err)
		}

		plan := e.reconciler.Edges(version, prev, edges, now)

		err = e.store.ApplyEdgePlan(ctx, plan)
		if err == nil {
			recordEntities(ctx, "edge", plan.New, plan.Changed, plan.Stale)

			e.logger.Debug().
				Int("edges", len(edges)).
				Int("new", plan.New).
				Int("changed", plan.Changed).
				Int("stale", plan.Stale).
				Msg("Topology rebuilt")

			return nil
		}

		if !errors.Is(err, db.ErrSnapshotConflict) {
			break
		}
	}

	return fmt.Errorf("apply edges: %w", err)
}
