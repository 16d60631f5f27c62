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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/netdiscovery/pkg/db"
	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/scheduler"
	"github.com/carverauto/netdiscovery/pkg/snmp"
	"github.com/carverauto/netdiscovery/pkg/snmp/snmptest"
)

const eventWait = 5 * time.Second

type engineFixture struct {
	engine *DiscoveryEngine
	store  *db.MemoryStore
	clock  *testClock
	events <-chan models.DiscoveryEvent
}

func testConfig(targets ...TargetConfig) *Config {
	return &Config{
		Workers:          2,
		TickInterval:     models.Duration(time.Second),
		PollInterval:     models.Duration(5 * time.Minute),
		TopologyDebounce: models.Duration(10 * time.Millisecond),
		Credentials: CredentialsConfig{
			Default: snmp.Credentials{Version: snmp.Version2c, Community: "public"},
		},
		Targets: targets,
	}
}

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		n++

		return fmt.Sprintf("dev-%03d", n)
	}
}

// startEngine builds an engine over transport, subscribes before starting
// so no event is missed and stops the engine when the test ends.
func startEngine(t *testing.T, cfg *Config, transport snmp.Transport, publisher Publisher) *engineFixture {
	t.Helper()

	clock, mockClock := newTestClock(gomock.NewController(t), t0)
	f := &engineFixture{store: db.NewMemoryStore(), clock: clock}

	e, err := NewDiscoveryEngine(cfg, transport, f.store, publisher, logger.NewTestLogger(),
		WithClock(mockClock), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	f.engine = e

	events, cancel := e.Subscribe()
	f.events = events

	require.NoError(t, e.Start(context.Background()))

	t.Cleanup(func() {
		cancel()

		ctx, done := context.WithTimeout(context.Background(), eventWait)
		defer done()

		assert.NoError(t, e.Stop(ctx))
	})

	return f
}

// next waits for the next event about addr, skipping events of other targets.
func (f *engineFixture) next(t *testing.T, addr string) models.DiscoveryEvent {
	t.Helper()

	timeout := time.After(eventWait)

	for {
		select {
		case ev, ok := <-f.events:
			require.True(t, ok, "event stream closed")

			if ev.Address == addr {
				return ev
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for event", addr)
		}
	}
}

// collect waits for one event from each of addrs, in any order.
func (f *engineFixture) collect(t *testing.T, addrs ...string) map[string]models.DiscoveryEvent {
	t.Helper()

	want := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		want[a] = true
	}

	got := make(map[string]models.DiscoveryEvent, len(addrs))
	timeout := time.After(eventWait)

	for len(got) < len(addrs) {
		select {
		case ev, ok := <-f.events:
			require.True(t, ok, "event stream closed")

			if _, seen := got[ev.Address]; want[ev.Address] && !seen {
				got[ev.Address] = ev
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for events", "have %d of %d", len(got), len(addrs))
		}
	}

	return got
}

func (f *engineFixture) status(t *testing.T, addr string) TargetStatus {
	t.Helper()

	for _, st := range f.engine.Statuses() {
		if st.Address == addr {
			return st
		}
	}

	require.FailNow(t, "no status", addr)

	return TargetStatus{}
}

func TestEngineFirstPollThenIdempotentSecondPoll(t *testing.T) {
	net := snmptest.NewNetwork()
	agent := net.Add("10.0.0.1", switchA())

	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.1"}), net, nil)

	ev := f.next(t, "10.0.0.1")
	assert.Equal(t, models.OutcomeSuccess, ev.Outcome)
	assert.Equal(t, models.DeviceStatusUp, ev.Status)
	assert.Equal(t, 3, ev.New, "device, interface and mac entry")
	assert.Equal(t, "dev-001", ev.DeviceID)
	assert.False(t, ev.Manual)

	dev, err := f.store.GetDeviceByAddress(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "switch-A", dev.SysName)
	assert.Equal(t, "Cisco", dev.Vendor)

	st := f.status(t, "10.0.0.1")
	assert.Equal(t, "idle", st.State)
	assert.True(t, st.NextDue.Equal(t0.Add(5*time.Minute)))
	require.NotNil(t, st.LastEvent)
	assert.Equal(t, models.OutcomeSuccess, st.LastEvent.Outcome)

	// the agent has been up five minutes longer on the next poll
	agent.Set(sysPrefix+".3.0", snmp.TimeTicksValue(100_000+30_000))
	f.clock.Advance(5 * time.Minute)

	ev = f.next(t, "10.0.0.1")
	assert.Equal(t, models.OutcomeSuccess, ev.Outcome)
	assert.Equal(t, 0, ev.New)
	assert.Equal(t, 0, ev.Changed)
	assert.Equal(t, 0, ev.Stale)

	macs, err := f.store.ListMacEntries(context.Background(), dev.ID, true)
	require.NoError(t, err)
	require.Len(t, macs, 1)
	assert.True(t, macs[0].LastSeen.Equal(t0.Add(5*time.Minute)))
}

func TestEnginePartialPollKeepsInventory(t *testing.T) {
	net := snmptest.NewNetwork()
	net.Add("10.0.0.1", switchA().
		FailWalk(qFdbPort, errors.New("timeout")).
		FailWalk(dFdbStatus, errors.New("timeout")))

	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.1"}), net, nil)

	ev := f.next(t, "10.0.0.1")
	assert.Equal(t, models.OutcomePartial, ev.Outcome)
	assert.Equal(t, models.DeviceStatusUp, ev.Status)
	require.NotEmpty(t, ev.Warnings)
	assert.Contains(t, ev.Warnings[0], StepFDB)
	assert.Equal(t, 2, ev.New, "device and interface")

	st := f.status(t, "10.0.0.1")
	assert.Equal(t, 0, st.Failures)
}

func TestEngineUnreachableTargetBacksOff(t *testing.T) {
	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.9"}), snmptest.NewNetwork(), nil)

	ev := f.next(t, "10.0.0.9")
	assert.Equal(t, models.OutcomeFailed, ev.Outcome)
	assert.Equal(t, models.DeviceStatusUnknown, ev.Status)
	assert.Contains(t, ev.Error, ErrIdentityFailed.Error())
	assert.Empty(t, ev.DeviceID)

	st := f.status(t, "10.0.0.9")
	assert.Equal(t, "backoff", st.State)
	assert.Equal(t, 1, st.Failures)

	_, err := f.store.GetDeviceByAddress(context.Background(), "10.0.0.9")
	require.ErrorIs(t, err, db.ErrDeviceNotFound)
}

func TestEngineConfigErrorSuspendsTarget(t *testing.T) {
	cfg := testConfig(
		TargetConfig{Address: "10.0.0.5", Credentials: &snmp.Credentials{Version: snmp.Version3}},
	)

	f := startEngine(t, cfg, snmptest.NewNetwork(), nil)

	ev := f.next(t, "10.0.0.5")
	assert.Equal(t, models.OutcomeConfigError, ev.Outcome)
	assert.Contains(t, ev.Error, "username required")

	assert.Equal(t, "suspended", f.status(t, "10.0.0.5").State)

	_, err := f.engine.ProbeNow(context.Background(), "10.0.0.5")
	require.ErrorIs(t, err, scheduler.ErrSuspended)

	_, err = f.store.GetDeviceByAddress(context.Background(), "10.0.0.5")
	require.ErrorIs(t, err, db.ErrDeviceNotFound)
}

func TestEngineAuthRejectedSuspendsTarget(t *testing.T) {
	net := snmptest.NewNetwork()
	agent := net.Add("10.0.0.1", switchA())
	agent.SetDown(snmptest.AuthRejected(snmp.Target{Address: "10.0.0.1"}))

	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.1"}), net, nil)

	ev := f.next(t, "10.0.0.1")
	assert.Equal(t, models.OutcomeAuthRejected, ev.Outcome)
	assert.Equal(t, "suspended", f.status(t, "10.0.0.1").State)
}

func TestEngineProbeNow(t *testing.T) {
	net := snmptest.NewNetwork()
	net.Add("10.0.0.1", switchA())

	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.1"}), net, nil)
	ctx := context.Background()

	first := f.next(t, "10.0.0.1")
	require.NotEmpty(t, first.DeviceID)

	_, err := f.engine.ProbeNow(ctx, "10.9.9.9")
	require.ErrorIs(t, err, ErrUnknownTarget)

	job, err := f.engine.ProbeNow(ctx, first.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", job.DeviceID)
	assert.True(t, job.Manual)

	ev := f.next(t, "10.0.0.1")
	assert.True(t, ev.Manual)
	assert.Equal(t, models.OutcomeSuccess, ev.Outcome)

	job, err = f.engine.ProbeNow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, job.Manual)

	f.next(t, "10.0.0.1")
}

func TestEngineLifecycle(t *testing.T) {
	cfg := testConfig(TargetConfig{Address: "10.0.0.1"})

	_, mockClock := newTestClock(gomock.NewController(t), t0)

	e, err := NewDiscoveryEngine(cfg, snmptest.NewNetwork(), db.NewMemoryStore(), nil, logger.NewTestLogger(),
		WithClock(mockClock))
	require.NoError(t, err)

	ctx := context.Background()

	_, err = e.ProbeNow(ctx, "10.0.0.1")
	require.ErrorIs(t, err, ErrEngineStopped)

	events, _ := e.Subscribe()

	require.NoError(t, e.Start(ctx))
	require.ErrorIs(t, e.Start(ctx), ErrEngineStarted)

	require.NoError(t, e.Stop(ctx))
	require.NoError(t, e.Stop(ctx))
	require.ErrorIs(t, e.Start(ctx), ErrEngineStopped)

	_, err = e.ProbeNow(ctx, "10.0.0.1")
	require.ErrorIs(t, err, ErrEngineStopped)

	// drain whatever was emitted before shutdown; the channel must close
	for range events { //nolint:revive // draining
	}

	late, _ := e.Subscribe()
	_, ok := <-late
	assert.False(t, ok)
}

func TestNewDiscoveryEngineValidation(t *testing.T) {
	store := db.NewMemoryStore()
	net := snmptest.NewNetwork()
	log := logger.NewTestLogger()

	_, err := NewDiscoveryEngine(nil, net, store, nil, log)
	require.ErrorIs(t, err, ErrConfigNil)

	_, err = NewDiscoveryEngine(testConfig(), net, store, nil, log)
	require.ErrorIs(t, err, ErrNoTargets)

	_, err = NewDiscoveryEngine(testConfig(TargetConfig{Address: "10.0.0.1"}), nil, store, nil, log)
	require.ErrorIs(t, err, ErrTransportNeeded)

	_, err = NewDiscoveryEngine(testConfig(TargetConfig{Address: "10.0.0.1"}), net, nil, nil, log)
	require.ErrorIs(t, err, ErrStoreRequired)
}

func TestEnginePublishesEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := NewMockPublisher(ctrl)

	published := make(chan *models.DiscoveryEvent, 4)

	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev *models.DiscoveryEvent) error {
			published <- ev
			return errors.New("broker down")
		}).
		MinTimes(1)

	net := snmptest.NewNetwork()
	net.Add("10.0.0.1", switchA())

	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.1"}), net, publisher)

	// a failing publisher must not keep the event from subscribers
	ev := f.next(t, "10.0.0.1")
	assert.Equal(t, models.OutcomeSuccess, ev.Outcome)

	select {
	case got := <-published:
		assert.Equal(t, "10.0.0.1", got.Address)
		assert.Equal(t, ev.DeviceID, got.DeviceID)
	case <-time.After(eventWait):
		t.Fatal("event was not published")
	}
}

func TestEngineBuildsTopologyFromMirroredLLDP(t *testing.T) {
	a := switchA()
	a.Set(lldpLocPort+".3.1", snmp.StringValue("Gi0/1"))
	addLLDP(a, 1, chassisB, "Gi0/24", "switch-B")

	b := newSwitch("switch-B", chassisB)
	addInterface(b, 24, "Gi0/24", 1_000_000_000, []byte{0x00, 0x11, 0x22, 0x33, 0x46, 0x18})
	b.Set(lldpLocPort+".3.24", snmp.StringValue("Gi0/24"))
	addLLDP(b, 24, chassisA, "Gi0/1", "switch-A")

	net := snmptest.NewNetwork()
	net.Add("10.0.0.1", a)
	net.Add("10.0.0.2", b)

	f := startEngine(t, testConfig(TargetConfig{Range: "10.0.0.1-2"}), net, nil)

	evs := f.collect(t, "10.0.0.1", "10.0.0.2")
	evA, evB := evs["10.0.0.1"], evs["10.0.0.2"]
	require.Equal(t, models.OutcomeSuccess, evA.Outcome)
	require.Equal(t, models.OutcomeSuccess, evB.Outcome)

	ctx := context.Background()
	require.NoError(t, f.engine.RebuildTopology(ctx))

	edges, version, err := f.store.LoadEdges(ctx)
	require.NoError(t, err)
	assert.Positive(t, version)
	require.Len(t, edges, 1)

	edge := edges[0]
	assert.True(t, edge.Resolved)
	assert.Equal(t, models.ProtocolLLDP, edge.Protocol)
	assert.Equal(t, models.ConfidenceHigh, edge.Confidence)
	assert.Equal(t, 2, edge.Reporters)
	assert.Equal(t, uint64(1_000_000_000), edge.Speed)
	assert.ElementsMatch(t, []string{evA.DeviceID, evB.DeviceID}, []string{edge.A.DeviceID, edge.B.DeviceID})
	assert.ElementsMatch(t, []string{"Gi0/1", "Gi0/24"}, []string{edge.A.IfName, edge.B.IfName})

	// rebuilding with unchanged claims leaves the edge set alone
	require.NoError(t, f.engine.RebuildTopology(ctx))

	again, _, err := f.store.LoadEdges(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, edge.Key, again[0].Key)
	assert.True(t, again[0].FirstSeen.Equal(edge.FirstSeen))
}

func TestEngineSlowDeviceDoesNotBlockOthers(t *testing.T) {
	net := snmptest.NewNetwork()
	net.Add("10.0.0.1", switchA())
	net.Add("10.0.0.2", switchA())

	slow := holdInterfaceWalk(t, net, "10.0.0.2", 0)
	f := startEngine(t, testConfig(TargetConfig{Range: "10.0.0.1-2"}), slow, nil)
	ctx := context.Background()

	slow.WaitHeld(t)

	ev := f.next(t, "10.0.0.1")
	assert.Equal(t, models.OutcomeSuccess, ev.Outcome)

	_, err := f.store.GetDeviceByAddress(ctx, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "in_flight", f.status(t, "10.0.0.2").State)

	_, err = f.store.GetDeviceByAddress(ctx, "10.0.0.2")
	require.ErrorIs(t, err, db.ErrDeviceNotFound)

	_, err = f.engine.ProbeNow(ctx, "10.0.0.2")
	require.ErrorIs(t, err, scheduler.ErrAlreadyActive)

	slow.Release()

	ev = f.next(t, "10.0.0.2")
	assert.Equal(t, models.OutcomeSuccess, ev.Outcome)
}

func TestEngineStopCommitsInFlightProbe(t *testing.T) {
	net := snmptest.NewNetwork()
	net.Add("10.0.0.2", switchA())

	slow := holdInterfaceWalk(t, net, "10.0.0.2", 0)
	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.2"}), slow, nil)

	slow.WaitHeld(t)

	stopped := make(chan error, 1)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventWait)
		defer cancel()

		stopped <- f.engine.Stop(ctx)
	}()

	select {
	case err := <-stopped:
		require.FailNow(t, "Stop returned while a poll was in flight", "err: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	slow.Release()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(eventWait):
		require.FailNow(t, "Stop did not return")
	}

	ev := f.next(t, "10.0.0.2")
	assert.Equal(t, models.OutcomePartial, ev.Outcome)
	assert.Equal(t, 2, ev.New, "device and the interface whose walk was answered")

	ctx := context.Background()

	dev, err := f.store.GetDeviceByAddress(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusUp, dev.Status)

	ifaces, err := f.store.ListInterfaces(ctx, dev.ID)
	require.NoError(t, err)
	assert.Len(t, ifaces, 1)

	macs, err := f.store.ListMacEntries(ctx, dev.ID, true)
	require.NoError(t, err)
	assert.Empty(t, macs, "the forwarding table was never read")
}

func TestEngineStopDoesNotAgeUnreadTables(t *testing.T) {
	net := snmptest.NewNetwork()
	agent := net.Add("10.0.0.1", switchA())

	// the second poll is held inside its ifTable walk while the engine stops
	held := holdInterfaceWalk(t, net, "10.0.0.1", 1)
	f := startEngine(t, testConfig(TargetConfig{Address: "10.0.0.1"}), held, nil)
	ctx := context.Background()

	first := f.next(t, "10.0.0.1")
	require.Equal(t, models.OutcomeSuccess, first.Outcome)

	agent.Set(sysPrefix+".3.0", snmp.TimeTicksValue(100_000+30_000))
	f.clock.Advance(5 * time.Minute)
	held.WaitHeld(t)

	stopped := make(chan error, 1)

	go func() { stopped <- f.engine.Stop(ctx) }()

	// give Stop time to cancel the running job before the walk returns
	time.Sleep(50 * time.Millisecond)
	held.Release()
	require.NoError(t, <-stopped)

	ev := f.next(t, "10.0.0.1")
	assert.Equal(t, models.OutcomePartial, ev.Outcome)
	assert.Zero(t, ev.Stale)

	macs, err := f.store.ListMacEntries(ctx, first.DeviceID, false)
	require.NoError(t, err)
	require.Len(t, macs, 1)
	assert.Zero(t, macs[0].MissCount)
	assert.True(t, macs[0].LastSeen.Equal(t0), "an unread table is neither aged nor refreshed")
}
