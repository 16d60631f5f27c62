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
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/netdiscovery/pkg/scheduler"
	"github.com/carverauto/netdiscovery/pkg/snmp"
	"github.com/carverauto/netdiscovery/pkg/snmp/snmptest"
)

//nolint:gochecknoglobals // test fixture
var t0 = time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

const (
	sysPrefix     = ".1.3.6.1.2.1.1"
	ifEntryPrefix = ".1.3.6.1.2.1.2.2.1"
	ifXPrefix     = ".1.3.6.1.2.1.31.1.1.1"
	basePortMap   = ".1.3.6.1.2.1.17.1.4.1.2"
	qFdbPort      = ".1.3.6.1.2.1.17.7.1.2.2.1.2"
	dFdbPort      = ".1.3.6.1.2.1.17.4.3.1.2"
	dFdbStatus    = ".1.3.6.1.2.1.17.4.3.1.3"
	lldpRem       = ".1.0.8802.1.1.2.1.4.1.1"
	lldpLocPort   = ".1.0.8802.1.1.2.1.3.7.1"
	cdpCache      = ".1.3.6.1.4.1.9.9.23.1.2.1.1"
)

// newSwitch builds an agent with the system group, the LLDP local chassis id
// and no interfaces.
func newSwitch(name string, chassis []byte) *snmptest.Agent {
	return snmptest.NewAgent().
		Set(sysPrefix+".1.0", snmp.StringValue(
			"Cisco IOS Software, C2960 Software (C2960-LANBASEK9-M), Version 15.0(2)SE11, RELEASE SOFTWARE")).
		Set(sysPrefix+".2.0", snmp.OIDValue(snmp.MustParseOID(".1.3.6.1.4.1.9.1.1208"))).
		Set(sysPrefix+".3.0", snmp.TimeTicksValue(100_000)).
		Set(sysPrefix+".5.0", snmp.StringValue(name)).
		Set(sysPrefix+".6.0", snmp.StringValue("lab")).
		Set(".1.0.8802.1.1.2.1.3.2.0", snmp.OctetStringValue(chassis))
}

// addInterface adds an ifEntry row plus its ifXEntry columns.
func addInterface(a *snmptest.Agent, idx int, name string, speed uint64, mac []byte) {
	col := func(prefix string, c int) string { return fmt.Sprintf("%s.%d.%d", prefix, c, idx) }

	a.Set(col(ifEntryPrefix, 1), snmp.IntegerValue(int64(idx))).
		Set(col(ifEntryPrefix, 2), snmp.StringValue("GigabitEthernet0/"+fmt.Sprint(idx))).
		Set(col(ifEntryPrefix, 3), snmp.IntegerValue(6)).
		Set(col(ifEntryPrefix, 4), snmp.IntegerValue(1500)).
		Set(col(ifEntryPrefix, 5), snmp.UnsignedValue(speed)).
		Set(col(ifEntryPrefix, 6), snmp.OctetStringValue(mac)).
		Set(col(ifEntryPrefix, 7), snmp.IntegerValue(1)).
		Set(col(ifEntryPrefix, 8), snmp.IntegerValue(1)).
		Set(col(ifEntryPrefix, 9), snmp.TimeTicksValue(500)).
		Set(col(ifXPrefix, 1), snmp.StringValue(name)).
		Set(col(ifXPrefix, 15), snmp.UnsignedValue(speed/1_000_000))
}

// addFDB binds mac to bridge port on vlan through Q-BRIDGE.
func addFDB(a *snmptest.Agent, vlan int, mac []byte, port int) {
	a.Set(fmt.Sprintf("%s.%d.%d.%d.%d.%d.%d.%d", qFdbPort, vlan, mac[0], mac[1], mac[2], mac[3], mac[4], mac[5]),
		snmp.IntegerValue(int64(port)))
}

// addLLDP adds one remote entry on local port localPort that advertises a MAC
// chassis id and an interface-name port id.
func addLLDP(a *snmptest.Agent, localPort int, chassis []byte, portName, sysName string) {
	col := func(c int) string { return fmt.Sprintf("%s.%d.0.%d.1", lldpRem, c, localPort) }

	a.Set(col(4), snmp.IntegerValue(4)).
		Set(col(5), snmp.OctetStringValue(chassis)).
		Set(col(6), snmp.IntegerValue(5)).
		Set(col(7), snmp.StringValue(portName)).
		Set(col(9), snmp.StringValue(sysName))
}

//nolint:gochecknoglobals // test fixture
var (
	chassisA = []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x01}
	chassisB = []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x02}
	hostMAC  = []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
)

// switchA is the 10.0.0.1 scenario: one interface Gi0/1 up and one MAC
// learned on it.
func switchA() *snmptest.Agent {
	a := newSwitch("switch-A", chassisA)
	addInterface(a, 1, "Gi0/1", 1_000_000_000, []byte{0x00, 0x11, 0x22, 0x33, 0x45, 0x01})
	a.Set(basePortMap+".1", snmp.IntegerValue(1))
	addFDB(a, 0, hostMAC, 1)

	return a
}

// testClock feeds the engine time through the generated Clock and Ticker
// mocks. Advance moves Now and fires the tick loop once.
type testClock struct {
	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
}

func newTestClock(ctrl *gomock.Controller, now time.Time) (*testClock, *scheduler.MockClock) {
	c := &testClock{now: now, ticks: make(chan time.Time, 1)}

	var ticks <-chan time.Time = c.ticks

	ticker := scheduler.NewMockTicker(ctrl)
	ticker.EXPECT().Chan().Return(ticks).AnyTimes()
	ticker.EXPECT().Stop().AnyTimes()

	clock := scheduler.NewMockClock(ctrl)
	clock.EXPECT().Now().DoAndReturn(c.Now).AnyTimes()
	clock.EXPECT().Ticker(gomock.Any()).Return(ticker).AnyTimes()

	return c, clock
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	select {
	case c.ticks <- now:
	default:
	}
}

// heldTransport holds one ifTable walk of an address, after letting skip of
// them through, until Release.
// The held walk then completes even if its context was cancelled meanwhile,
// like a response already on the wire.
type heldTransport struct {
	snmp.Transport

	addr    string
	skip    int32
	walks   atomic.Int32
	held    chan struct{}
	release chan struct{}
	hold    sync.Once
	open    sync.Once
}

func holdInterfaceWalk(t *testing.T, inner snmp.Transport, addr string, skip int32) *heldTransport {
	t.Helper()

	h := &heldTransport{
		Transport: inner,
		addr:      addr,
		skip:      skip,
		held:      make(chan struct{}),
		release:   make(chan struct{}),
	}

	t.Cleanup(h.Release)

	return h
}

func (h *heldTransport) Walk(ctx context.Context, target snmp.Target, root snmp.OID, fn snmp.WalkFunc) error {
	first := false

	if target.Address == h.addr && root.Equal(oidIfEntry) && h.walks.Add(1) > h.skip {
		h.hold.Do(func() {
			first = true
			close(h.held)
		})
	}

	if !first {
		return h.Transport.Walk(ctx, target, root, fn)
	}

	<-h.release

	return h.Transport.Walk(context.WithoutCancel(ctx), target, root, fn)
}

// WaitHeld blocks until the walk is being held.
func (h *heldTransport) WaitHeld(t *testing.T) {
	t.Helper()

	select {
	case <-h.held:
	case <-time.After(eventWait):
		require.FailNow(t, "walk was never started", h.addr)
	}
}

func (h *heldTransport) Release() {
	h.open.Do(func() { close(h.release) })
}
