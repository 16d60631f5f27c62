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
	"math"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/snmp"
	"github.com/carverauto/netdiscovery/pkg/topology"
)

// Probe step names used in PartialResult.
const (
	StepInterfaces   = "interfaces"
	StepInterfaceExt = "interfaces_ext"
	StepBridgePorts  = "bridge_ports"
	StepFDB          = "fdb"
	StepLLDP         = "lldp"
	StepCDP          = "cdp"
)

// Prober runs the fixed probe sequence against one device.
type Prober struct {
	transport snmp.Transport
	logger    logger.Logger
	now       func() time.Time
}

// NewProber creates a Prober. A nil now uses time.Now.
func NewProber(transport snmp.Transport, now func() time.Time, log logger.Logger) *Prober {
	if now == nil {
		now = time.Now
	}

	return &Prober{transport: transport, logger: log, now: now}
}

// probeRun carries the state of one probe.
type probeRun struct {
	p       *Prober
	target  snmp.Target
	result  *ProbeResult
	partial PartialResult
	// bootTime anchors ifLastChange; zero when sysUpTime is unknown
	bootTime time.Time
}

// Probe queries identity, interfaces, the forwarding table and neighbors, in
// that order. A failed identity query returns an error wrapping
// ErrIdentityFailed and no result. Failures of later steps are returned as a
// *PartialResult together with everything that was gathered.
func (p *Prober) Probe(ctx context.Context, dt *DeviceTarget) (*ProbeResult, error) {
	if dt.CredentialsErr != nil {
		return nil, dt.CredentialsErr
	}

	run := &probeRun{
		p:      p,
		target: dt.SNMPTarget(),
		result: &ProbeResult{Address: dt.Address, StartedAt: p.now()},
	}

	if err := traceStep(ctx, "identity", run.identity); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("%w: %s: %w", ErrProbeInterrupted, dt.Address, err)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrIdentityFailed, dt.Address, err)
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepInterfaces, run.interfaces},
		{StepFDB, run.forwardingTable},
		{StepLLDP, run.neighbors},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			run.fail(ctx, step.name, fmt.Errorf("skipped: %w", err))
			continue
		}

		if err := traceStep(ctx, step.name, step.fn); err != nil {
			run.fail(ctx, step.name, err)
		}
	}

	run.result.FinishedAt = p.now()

	if len(run.partial.Errors) > 0 {
		p.logger.Warn().
			Str("device", dt.Address).
			Strs("steps", run.partial.Steps()).
			Msg("Probe completed with partial results")

		return run.result, &run.partial
	}

	return run.result, nil
}

// fail records a failed step. A step cut short by cancellation, rather than
// by the job deadline, is also listed as interrupted: it observed nothing.
func (r *probeRun) fail(ctx context.Context, step string, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		r.result.Interrupted = append(r.result.Interrupted, step)
	}

	r.partial.add(step, err)
}

func (r *probeRun) log() logger.Logger {
	return r.p.logger
}

func (r *probeRun) identity(ctx context.Context) error {
	oids := []snmp.OID{
		oidSysDescr, oidSysObjectID, oidSysUpTime, oidSysContact,
		oidSysName, oidSysLocation, oidLLDPLocChassisID, oidEntModelName, oidEntSerialNum,
	}

	vbs, err := r.p.transport.Get(ctx, r.target, oids)
	if err != nil {
		return err
	}

	dev := &r.result.Device
	dev.Address = r.result.Address
	dev.Status = models.DeviceStatusUp

	for _, vb := range vbs {
		if !vb.Value.Present() {
			continue
		}

		switch {
		case vb.OID.Equal(oidSysDescr):
			dev.SysDescr = displayString(vb.Value)
		case vb.OID.Equal(oidSysObjectID):
			if oid, ok := vb.Value.OID(); ok {
				dev.SysObjectID = oid.String()
				dev.Vendor = vendorFromObjectID(oid)
			} else {
				dev.SysObjectID = displayString(vb.Value)
			}
		case vb.OID.Equal(oidSysUpTime):
			if ticks, ok := coerceUint(r.log(), vb); ok {
				dev.Uptime = time.Duration(ticks) * 10 * time.Millisecond //nolint:gosec // hundredths of a second
				r.bootTime = r.result.StartedAt.Add(-dev.Uptime)
			}
		case vb.OID.Equal(oidSysContact):
			dev.SysContact = displayString(vb.Value)
		case vb.OID.Equal(oidSysName):
			dev.SysName = displayString(vb.Value)
			dev.Hostname = dev.SysName
		case vb.OID.Equal(oidSysLocation):
			dev.SysLocation = displayString(vb.Value)
		case vb.OID.Equal(oidLLDPLocChassisID):
			dev.ChassisID = localChassisID(vb.Value.Bytes())
		case vb.OID.Equal(oidEntModelName):
			dev.Model = displayString(vb.Value)
		case vb.OID.Equal(oidEntSerialNum):
			dev.SerialNumber = displayString(vb.Value)
		}
	}

	if dev.Model == "" {
		dev.Model = modelFromDescr(dev.SysDescr)
	}

	dev.OSVersion = osVersionFromDescr(dev.SysDescr)

	r.log().Debug().
		Str("device", dev.Address).
		Str("sys_name", dev.SysName).
		Str("vendor", dev.Vendor).
		Msg("Identity query succeeded")

	return nil
}

// localChassisID keeps the local chassis id only when it is a MAC address,
// which is what neighbors advertise and what the topology index matches on.
func localChassisID(b []byte) string {
	if mac := models.FormatMAC(b); mac != "" {
		return mac
	}

	if mac, ok := models.NormalizeMAC(string(b)); ok {
		return mac
	}

	return ""
}

func (r *probeRun) interfaces(ctx context.Context) error {
	rows := make(map[int32]*models.Interface)
	highSpeed := make(map[int32]uint64)

	row := func(idx int32) *models.Interface {
		ifc, ok := rows[idx]
		if !ok {
			ifc = &models.Interface{
				IfIndex:     idx,
				AdminStatus: models.IfStatusUnknown,
				OperStatus:  models.IfStatusUnknown,
			}
			rows[idx] = ifc
		}

		return ifc
	}

	err := r.p.transport.Walk(ctx, r.target, oidIfEntry, func(vb snmp.VarBind) error {
		suffix := vb.OID.Suffix(oidIfEntry)
		if len(suffix) != 2 || !vb.Value.Present() {
			return nil
		}

		col, idx := suffix[0], int32(suffix[1]) //nolint:gosec // ifIndex fits int32

		switch col {
		case ifColDescr:
			row(idx).Descr = displayString(vb.Value)
		case ifColType:
			if n, ok := coerceInt(r.log(), vb); ok {
				row(idx).Type = clampInt32(n)
			}
		case ifColMtu:
			if n, ok := coerceInt(r.log(), vb); ok {
				row(idx).MTU = clampInt32(n)
			}
		case ifColSpeed:
			if n, ok := coerceUint(r.log(), vb); ok {
				row(idx).Speed = n
			}
		case ifColPhysAddress:
			row(idx).PhysAddress = models.FormatMAC(vb.Value.Bytes())
		case ifColAdminStatus:
			if n, ok := coerceInt(r.log(), vb); ok {
				row(idx).AdminStatus = models.IfStatusFromInt(n)
			}
		case ifColOperStatus:
			if n, ok := coerceInt(r.log(), vb); ok {
				row(idx).OperStatus = models.IfStatusFromInt(n)
			}
		case ifColLastChange:
			if n, ok := coerceUint(r.log(), vb); ok && !r.bootTime.IsZero() {
				t := r.bootTime.Add(time.Duration(n) * 10 * time.Millisecond) //nolint:gosec // hundredths of a second
				row(idx).LastChange = &t
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.result.InterfacesOK = true

	// ifXTable is optional; v1-only agents do not have it
	extErr := r.walkColumn(ctx, oidIfName, func(idx int32, vb snmp.VarBind) {
		if ifc, ok := rows[idx]; ok {
			ifc.Name = displayString(vb.Value)
		}
	})

	if extErr == nil {
		extErr = r.walkColumn(ctx, oidIfHighSpeed, func(idx int32, vb snmp.VarBind) {
			if n, ok := coerceUint(r.log(), vb); ok {
				highSpeed[idx] = n
			}
		})
	}

	if extErr == nil {
		extErr = r.walkColumn(ctx, oidIfAlias, func(idx int32, vb snmp.VarBind) {
			if ifc, ok := rows[idx]; ok {
				ifc.Alias = displayString(vb.Value)
			}
		})
	}

	if extErr != nil {
		r.partial.add(StepInterfaceExt, extErr)
	}

	out := make([]models.Interface, 0, len(rows))

	for idx, ifc := range rows {
		ifc.Speed = effectiveSpeed(ifc.Speed, highSpeed[idx])
		if ifc.Name == "" {
			ifc.Name = ifc.Descr
		}

		out = append(out, *ifc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].IfIndex < out[j].IfIndex })
	r.result.Interfaces = out

	return nil
}

// effectiveSpeed returns bits per second. ifHighSpeed is in Mbit/s and wins
// when ifSpeed is saturated or missing.
func effectiveSpeed(ifSpeed, ifHighSpeed uint64) uint64 {
	if ifHighSpeed > 0 && (ifSpeed == ifSpeedSentinel || ifSpeed == 0) {
		return ifHighSpeed * 1_000_000
	}

	return ifSpeed
}

// walkColumn walks a table column indexed by a single integer.
func (r *probeRun) walkColumn(ctx context.Context, col snmp.OID, fn func(idx int32, vb snmp.VarBind)) error {
	return r.p.transport.Walk(ctx, r.target, col, func(vb snmp.VarBind) error {
		suffix := vb.OID.Suffix(col)
		if len(suffix) != 1 || !vb.Value.Present() {
			return nil
		}

		fn(int32(suffix[0]), vb) //nolint:gosec // table index fits int32

		return nil
	})
}

func (r *probeRun) hasInterface(idx int32) bool {
	for i := range r.result.Interfaces {
		if r.result.Interfaces[i].IfIndex == idx {
			return true
		}
	}

	return false
}

type fdbRow struct {
	mac  string
	port int64
	vlan int
}

func (r *probeRun) forwardingTable(ctx context.Context) error {
	basePorts := make(map[int64]int32)

	// the port map is fetched once per cycle; without it ports are matched
	// to interfaces by number
	if err := r.walkColumn(ctx, oidDot1dBasePortIfIndex, func(port int32, vb snmp.VarBind) {
		if n, ok := coerceInt(r.log(), vb); ok {
			basePorts[int64(port)] = clampInt32(n)
		}
	}); err != nil {
		r.partial.add(StepBridgePorts, err)
	}

	rows, qErr := r.qBridgeFDB(ctx)

	if qErr != nil || len(rows) == 0 {
		dRows, dErr := r.bridgeFDB(ctx)
		if dErr != nil {
			if qErr != nil {
				return errors.Join(qErr, dErr)
			}

			return dErr
		}

		if qErr != nil {
			r.log().Debug().Err(qErr).Str("device", r.target.Address).Msg("Q-BRIDGE forwarding table unavailable")
		}

		rows = dRows
	}

	observedAt := r.p.now()
	dropped := 0

	entries := make([]models.MacEntry, 0, len(rows))

	for _, row := range rows {
		ifIndex, ok := basePorts[row.port]
		if !ok {
			if row.port <= math.MaxInt32 && r.hasInterface(int32(row.port)) {
				ifIndex = int32(row.port)
			} else {
				dropped++
				continue
			}
		}

		entries = append(entries, models.MacEntry{
			IfIndex:   ifIndex,
			MAC:       row.mac,
			VLAN:      row.vlan,
			FirstSeen: observedAt,
			LastSeen:  observedAt,
		})
	}

	if dropped > 0 {
		r.log().Warn().
			Str("device", r.target.Address).
			Int("dropped", dropped).
			Msg("Dropped forwarding entries on unmapped bridge ports")
	}

	r.result.MacEntries = entries
	r.result.FDBOK = true

	return nil
}

// qBridgeFDB walks dot1qTpFdbPort, indexed by fdbId + six MAC arcs.
func (r *probeRun) qBridgeFDB(ctx context.Context) ([]fdbRow, error) {
	var rows []fdbRow

	err := r.p.transport.Walk(ctx, r.target, oidDot1qTpFdbPort, func(vb snmp.VarBind) error {
		suffix := vb.OID.Suffix(oidDot1qTpFdbPort)
		if len(suffix) != 7 {
			return nil
		}

		mac, ok := macFromArcs(suffix[1:])
		if !ok {
			return nil
		}

		port, ok := coerceInt(r.log(), vb)
		if !ok || port <= 0 {
			return nil
		}

		rows = append(rows, fdbRow{mac: mac, port: port, vlan: int(suffix[0])})

		return nil
	})

	return rows, err
}

// bridgeFDB walks dot1dTpFdbStatus then dot1dTpFdbPort, both indexed by the
// six MAC arcs, and drops the device's own addresses.
func (r *probeRun) bridgeFDB(ctx context.Context) ([]fdbRow, error) {
	self := make(map[string]bool)

	err := r.p.transport.Walk(ctx, r.target, oidDot1dTpFdbStatus, func(vb snmp.VarBind) error {
		mac, ok := macFromArcs(vb.OID.Suffix(oidDot1dTpFdbStatus))
		if !ok {
			return nil
		}

		if st, ok := coerceInt(r.log(), vb); ok && st == fdbStatusSelf {
			self[mac] = true
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	var rows []fdbRow

	err = r.p.transport.Walk(ctx, r.target, oidDot1dTpFdbPort, func(vb snmp.VarBind) error {
		mac, ok := macFromArcs(vb.OID.Suffix(oidDot1dTpFdbPort))
		if !ok || self[mac] {
			return nil
		}

		port, ok := coerceInt(r.log(), vb)
		if !ok || port <= 0 {
			return nil
		}

		rows = append(rows, fdbRow{mac: mac, port: port})

		return nil
	})

	return rows, err
}

func macFromArcs(arcs snmp.OID) (string, bool) {
	if len(arcs) != 6 {
		return "", false
	}

	b := make([]byte, 6)

	for i, a := range arcs {
		if a > 255 {
			return "", false
		}

		b[i] = byte(a)
	}

	return models.FormatMAC(b), true
}

type lldpKey struct {
	localPort uint32
	index     uint32
}

func (r *probeRun) neighbors(ctx context.Context) error {
	lldp, lldpErr := r.lldpNeighbors(ctx)
	if lldpErr == nil && len(lldp) > 0 {
		r.result.Neighbors = lldp
		r.result.NeighborsOK = true

		return nil
	}

	cdp, cdpErr := r.cdpNeighbors(ctx)

	switch {
	case cdpErr == nil:
		r.result.Neighbors = cdp
		r.result.NeighborsOK = true

		// LLDP failing is still worth a warning when CDP covered for it
		return lldpErr
	case lldpErr == nil:
		// an empty LLDP table is a valid answer; CDP is simply unsupported
		r.result.NeighborsOK = true
		r.log().Debug().Err(cdpErr).Str("device", r.target.Address).Msg("CDP cache unavailable")

		return nil
	default:
		r.partial.add(StepCDP, cdpErr)

		return lldpErr
	}
}

func (r *probeRun) lldpNeighbors(ctx context.Context) ([]models.NeighborObservation, error) {
	remotes := make(map[lldpKey]*models.NeighborObservation)

	var order []lldpKey

	err := r.p.transport.Walk(ctx, r.target, oidLLDPRemEntry, func(vb snmp.VarBind) error {
		// column.timeMark.localPortNum.index
		suffix := vb.OID.Suffix(oidLLDPRemEntry)
		if len(suffix) != 4 || !vb.Value.Present() {
			return nil
		}

		key := lldpKey{localPort: suffix[2], index: suffix[3]}

		obs, ok := remotes[key]
		if !ok {
			obs = &models.NeighborObservation{Protocol: models.ProtocolLLDP}
			remotes[key] = obs
			order = append(order, key)
		}

		switch suffix[0] {
		case lldpRemColChassisIDSubtype:
			if n, ok := coerceInt(r.log(), vb); ok {
				obs.RemoteChassisIDSubtype = int(n)
			}
		case lldpRemColChassisID:
			obs.RemoteChassisID = string(vb.Value.Bytes())
		case lldpRemColPortIDSubtype:
			if n, ok := coerceInt(r.log(), vb); ok {
				obs.RemotePortIDSubtype = int(n)
			}
		case lldpRemColPortID:
			obs.RemotePortID = string(vb.Value.Bytes())
		case lldpRemColPortDesc:
			obs.RemotePortDescr = displayString(vb.Value)
		case lldpRemColSysName:
			obs.RemoteSysName = displayString(vb.Value)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(remotes) == 0 {
		return nil, nil
	}

	// chassis and port ids are raw until the subtype is known
	for _, obs := range remotes {
		obs.RemoteChassisID = formatChassisID(obs.RemoteChassisIDSubtype, []byte(obs.RemoteChassisID))
		obs.RemotePortID = formatPortID(obs.RemotePortIDSubtype, []byte(obs.RemotePortID))
	}

	if mgmtErr := r.lldpManagementAddresses(ctx, remotes); mgmtErr != nil {
		r.log().Debug().Err(mgmtErr).Str("device", r.target.Address).Msg("LLDP management addresses unavailable")
	}

	localPorts := r.lldpLocalPorts(ctx)
	observedAt := r.p.now()

	sort.Slice(order, func(i, j int) bool {
		if order[i].localPort != order[j].localPort {
			return order[i].localPort < order[j].localPort
		}

		return order[i].index < order[j].index
	})

	out := make([]models.NeighborObservation, 0, len(order))

	for _, key := range order {
		obs := remotes[key]

		ifIndex, ok := localPorts[key.localPort]
		if !ok {
			ifIndex = int32(key.localPort) //nolint:gosec // port numbers fit int32
		}

		r.fillLocal(obs, ifIndex, observedAt)
		out = append(out, *obs)
	}

	return out, nil
}

// lldpManagementAddresses decodes addresses from the lldpRemManAddrTable
// index: timeMark.localPort.index.subtype.len.addr...
func (r *probeRun) lldpManagementAddresses(ctx context.Context, remotes map[lldpKey]*models.NeighborObservation) error {
	return r.p.transport.Walk(ctx, r.target, oidLLDPRemManAddrIf, func(vb snmp.VarBind) error {
		suffix := vb.OID.Suffix(oidLLDPRemManAddrIf)
		if len(suffix) < 5 {
			return nil
		}

		obs, ok := remotes[lldpKey{localPort: suffix[1], index: suffix[2]}]
		if !ok || obs.RemoteMgmtAddr != "" {
			return nil
		}

		family, length, addr := suffix[3], int(suffix[4]), suffix[5:]
		if len(addr) != length {
			return nil
		}

		b := make([]byte, len(addr))

		for i, a := range addr {
			if a > 255 {
				return nil
			}

			b[i] = byte(a)
		}

		switch {
		case family == addrFamilyIPv4 && length == net.IPv4len,
			family == addrFamilyIPv6 && length == net.IPv6len:
			obs.RemoteMgmtAddr = net.IP(b).String()
		}

		return nil
	})
}

// lldpLocalPorts maps LLDP local port numbers to ifIndex by matching the
// advertised port id or description against interface names.
func (r *probeRun) lldpLocalPorts(ctx context.Context) map[uint32]int32 {
	byName := make(map[string]int32)

	for _, ifc := range r.result.Interfaces {
		for _, s := range []string{ifc.Descr, ifc.Alias, ifc.Name, ifc.PhysAddress} {
			if s != "" {
				byName[strings.ToLower(s)] = ifc.IfIndex
			}
		}
	}

	type localPort struct{ id, desc string }

	ports := make(map[uint32]*localPort)

	err := r.p.transport.Walk(ctx, r.target, oidLLDPLocPortEntry, func(vb snmp.VarBind) error {
		suffix := vb.OID.Suffix(oidLLDPLocPortEntry)
		if len(suffix) != 2 || !vb.Value.Present() {
			return nil
		}

		lp, ok := ports[suffix[1]]
		if !ok {
			lp = &localPort{}
			ports[suffix[1]] = lp
		}

		switch suffix[0] {
		case lldpLocColPortID:
			lp.id = formatLLDPID(vb.Value.Bytes())
		case lldpLocColPortDesc:
			lp.desc = displayString(vb.Value)
		}

		return nil
	})
	if err != nil {
		r.log().Debug().Err(err).Str("device", r.target.Address).Msg("LLDP local port table unavailable")
	}

	out := make(map[uint32]int32, len(ports))

	for num, lp := range ports {
		for _, s := range []string{lp.id, lp.desc} {
			if idx, ok := byName[strings.ToLower(s)]; ok && s != "" {
				out[num] = idx
				break
			}
		}
	}

	return out
}

func (r *probeRun) fillLocal(obs *models.NeighborObservation, ifIndex int32, at time.Time) {
	obs.LocalAddress = r.result.Address
	obs.LocalIfIndex = ifIndex
	obs.ObservedAt = at

	for i := range r.result.Interfaces {
		if ifc := &r.result.Interfaces[i]; ifc.IfIndex == ifIndex {
			obs.LocalIfName = ifc.Name
			obs.LocalIfSpeed = ifc.Speed

			break
		}
	}
}

type cdpKey struct {
	ifIndex  uint32
	devIndex uint32
}

// cdpNeighbors walks cdpCacheEntry, indexed by ifIndex.deviceIndex.
func (r *probeRun) cdpNeighbors(ctx context.Context) ([]models.NeighborObservation, error) {
	entries := make(map[cdpKey]*models.NeighborObservation)
	addrTypes := make(map[cdpKey]int64)

	var order []cdpKey

	err := r.p.transport.Walk(ctx, r.target, oidCDPCacheEntry, func(vb snmp.VarBind) error {
		suffix := vb.OID.Suffix(oidCDPCacheEntry)
		if len(suffix) != 3 || !vb.Value.Present() {
			return nil
		}

		key := cdpKey{ifIndex: suffix[1], devIndex: suffix[2]}

		obs, ok := entries[key]
		if !ok {
			obs = &models.NeighborObservation{
				Protocol:            models.ProtocolCDP,
				RemotePortIDSubtype: topology.PortIfName,
			}
			entries[key] = obs
			order = append(order, key)
		}

		switch suffix[0] {
		case cdpColAddressType:
			if n, ok := coerceInt(r.log(), vb); ok {
				addrTypes[key] = n
			}
		case cdpColAddress:
			if ip := cdpAddress(vb.Value); ip != "" {
				obs.RemoteMgmtAddr = ip
			}
		case cdpColDeviceID:
			obs.RemoteChassisID = displayString(vb.Value)
			obs.RemoteSysName = obs.RemoteChassisID
		case cdpColDevicePort:
			obs.RemotePortID = displayString(vb.Value)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].ifIndex != order[j].ifIndex {
			return order[i].ifIndex < order[j].ifIndex
		}

		return order[i].devIndex < order[j].devIndex
	})

	observedAt := r.p.now()
	out := make([]models.NeighborObservation, 0, len(order))

	for _, key := range order {
		obs := entries[key]

		if t, ok := addrTypes[key]; ok && t != cdpAddressIP {
			obs.RemoteMgmtAddr = ""
		}

		r.fillLocal(obs, int32(key.ifIndex), observedAt) //nolint:gosec // ifIndex fits int32
		out = append(out, *obs)
	}

	return out, nil
}

// cdpAddress decodes cdpCacheAddress. Most agents send the four address
// bytes; some send the dotted string.
func cdpAddress(v snmp.Value) string {
	if ip, ok := v.IP(); ok {
		return ip
	}

	b := v.Bytes()

	if len(b) == net.IPv4len {
		return net.IP(b).String()
	}

	if ip := net.ParseIP(strings.TrimSpace(string(b))); ip != nil {
		return ip.String()
	}

	if len(b) > net.IPv4len {
		return net.IP(b[len(b)-net.IPv4len:]).String()
	}

	return ""
}

// String describes the result for logs.
func (r *ProbeResult) String() string {
	return r.Address + " interfaces=" + strconv.Itoa(len(r.Interfaces)) +
		" macs=" + strconv.Itoa(len(r.MacEntries)) +
		" neighbors=" + strconv.Itoa(len(r.Neighbors))
}
