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

package topology

import (
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/carverauto/netdiscovery/pkg/models"
)

// LLDP chassis id subtypes (IEEE 802.1AB).
const (
	ChassisComponent  = 1
	ChassisIfAlias    = 2
	ChassisPort       = 3
	ChassisMACAddress = 4
	ChassisNetAddress = 5
	ChassisIfName     = 6
	ChassisLocal      = 7
)

// LLDP port id subtypes.
const (
	PortIfAlias    = 1
	PortComponent  = 2
	PortMACAddress = 3
	PortNetAddress = 4
	PortIfName     = 5
	PortCircuitID  = 6
	PortLocal      = 7
)

type portIndex struct {
	byName  map[string]models.Interface
	byDescr map[string]models.Interface
	byAlias map[string]models.Interface
	byMAC   map[string]models.Interface
	byIndex map[int32]models.Interface
}

type ifRef struct {
	deviceID string
	ifIndex  int32
}

// Index is a read-only lookup of known device and interface identities.
type Index struct {
	byChassis map[string]string
	bySysName map[string]string
	byAddress map[string]string
	byIfMAC   map[string]ifRef
	ports     map[string]*portIndex
}

// NewIndex builds an Index. When two devices claim the same identity the
// one with the lower id wins so the result never depends on input order.
func NewIndex(devices []models.Device, ifaces map[string][]models.Interface) *Index {
	idx := &Index{
		byChassis: make(map[string]string),
		bySysName: make(map[string]string),
		byAddress: make(map[string]string),
		byIfMAC:   make(map[string]ifRef),
		ports:     make(map[string]*portIndex),
	}

	sorted := append([]models.Device(nil), devices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := range sorted {
		d := &sorted[i]

		if mac, ok := models.NormalizeMAC(d.ChassisID); ok && !models.IsZeroMAC(mac) {
			setOnce(idx.byChassis, mac, d.ID)
		}

		for _, name := range nameKeys(d.SysName) {
			setOnce(idx.bySysName, name, d.ID)
		}

		for _, name := range nameKeys(d.Hostname) {
			setOnce(idx.bySysName, name, d.ID)
		}

		if d.Address != "" {
			setOnce(idx.byAddress, d.Address, d.ID)
		}

		pi := &portIndex{
			byName:  make(map[string]models.Interface),
			byDescr: make(map[string]models.Interface),
			byAlias: make(map[string]models.Interface),
			byMAC:   make(map[string]models.Interface),
			byIndex: make(map[int32]models.Interface),
		}

		list := append([]models.Interface(nil), ifaces[d.ID]...)
		sort.Slice(list, func(a, b int) bool { return list[a].IfIndex < list[b].IfIndex })

		for _, ifc := range list {
			pi.byIndex[ifc.IfIndex] = ifc

			for _, k := range ifNameKeys(ifc.Name) {
				setIfaceOnce(pi.byName, k, ifc)
			}

			for _, k := range ifNameKeys(ifc.Descr) {
				setIfaceOnce(pi.byDescr, k, ifc)
			}

			if ifc.Alias != "" {
				setIfaceOnce(pi.byAlias, strings.ToLower(ifc.Alias), ifc)
			}

			if mac, ok := models.NormalizeMAC(ifc.PhysAddress); ok && !models.IsZeroMAC(mac) {
				setIfaceOnce(pi.byMAC, mac, ifc)

				if _, taken := idx.byIfMAC[mac]; !taken {
					idx.byIfMAC[mac] = ifRef{deviceID: d.ID, ifIndex: ifc.IfIndex}
				}
			}
		}

		idx.ports[d.ID] = pi
	}

	return idx
}

// ResolveDevice maps a neighbor claim to a known device id.
func (idx *Index) ResolveDevice(obs *models.NeighborObservation) (string, bool) {
	chassis := strings.TrimSpace(obs.RemoteChassisID)

	switch obs.RemoteChassisIDSubtype {
	case ChassisMACAddress:
		if id, ok := idx.byMAC(chassis); ok {
			return id, true
		}
	case ChassisNetAddress:
		if id, ok := idx.byAddress[chassis]; ok {
			return id, true
		}
	default:
		if id, ok := idx.byMAC(chassis); ok {
			return id, true
		}

		if id, ok := idx.bySysName[strings.ToLower(chassis)]; ok {
			return id, true
		}

		if id, ok := idx.byAddress[chassis]; ok {
			return id, true
		}

		for _, k := range nameKeys(chassis) {
			if id, ok := idx.bySysName[k]; ok {
				return id, true
			}
		}
	}

	for _, k := range nameKeys(obs.RemoteSysName) {
		if id, ok := idx.bySysName[k]; ok {
			return id, true
		}
	}

	if obs.RemoteMgmtAddr != "" {
		if id, ok := idx.byAddress[obs.RemoteMgmtAddr]; ok {
			return id, true
		}
	}

	return "", false
}

func (idx *Index) byMAC(s string) (string, bool) {
	mac, ok := models.NormalizeMAC(s)
	if !ok {
		return "", false
	}

	if id, ok := idx.byChassis[mac]; ok {
		return id, true
	}

	if ref, ok := idx.byIfMAC[mac]; ok {
		return ref.deviceID, true
	}

	return "", false
}

// ResolvePort finds the interface on deviceID that a port claim refers to.
func (idx *Index) ResolvePort(deviceID string, obs *models.NeighborObservation) (models.Interface, bool) {
	pi, ok := idx.ports[deviceID]
	if !ok {
		return models.Interface{}, false
	}

	port := strings.TrimSpace(obs.RemotePortID)

	switch obs.RemotePortIDSubtype {
	case PortMACAddress:
		if mac, ok := models.NormalizeMAC(port); ok {
			if ifc, ok := pi.byMAC[mac]; ok {
				return ifc, true
			}
		}
	case PortIfAlias:
		if ifc, ok := pi.byAlias[strings.ToLower(port)]; ok {
			return ifc, true
		}
	case PortLocal:
		if n, err := strconv.ParseInt(port, 10, 32); err == nil {
			if ifc, ok := pi.byIndex[int32(n)]; ok {
				return ifc, true
			}
		}
	}

	if ifc, ok := pi.lookupName(port); ok {
		return ifc, true
	}

	if ifc, ok := pi.lookupName(obs.RemotePortDescr); ok {
		return ifc, true
	}

	if obs.RemotePortDescr != "" {
		if ifc, ok := pi.byAlias[strings.ToLower(strings.TrimSpace(obs.RemotePortDescr))]; ok {
			return ifc, true
		}
	}

	return models.Interface{}, false
}

// Interface returns a known interface by index.
func (idx *Index) Interface(deviceID string, ifIndex int32) (models.Interface, bool) {
	pi, ok := idx.ports[deviceID]
	if !ok {
		return models.Interface{}, false
	}

	ifc, ok := pi.byIndex[ifIndex]

	return ifc, ok
}

func (pi *portIndex) lookupName(s string) (models.Interface, bool) {
	for _, k := range ifNameKeys(s) {
		if ifc, ok := pi.byName[k]; ok {
			return ifc, true
		}

		if ifc, ok := pi.byDescr[k]; ok {
			return ifc, true
		}
	}

	return models.Interface{}, false
}

// nameKeys returns the lookup keys of a host name: the full lower-case name,
// the name without a CDP serial suffix and the name without its domain.
func nameKeys(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}

	keys := []string{s}

	// CDP device ids look like "sw1.example.net(FOC1234X0AB)"
	if i := strings.IndexByte(s, '('); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
		keys = append(keys, s)
	}

	if net.ParseIP(s) == nil {
		if i := strings.IndexByte(s, '.'); i > 0 {
			keys = append(keys, s[:i])
		}
	}

	return keys
}

//nolint:gochecknoglobals // lookup table
var ifAbbreviations = []struct{ long, short string }{
	{"hundredgigabitethernet", "hu"},
	{"fortygigabitethernet", "fo"},
	{"twentyfivegige", "twe"},
	{"tengigabitethernet", "te"},
	{"gigabitethernet", "gi"},
	{"fastethernet", "fa"},
	{"port-channel", "po"},
	{"ethernet", "eth"},
}

// ifNameKeys returns the lower-case name plus its abbreviated form, so that
// "GigabitEthernet0/1" and "Gi0/1" meet.
func ifNameKeys(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}

	keys := []string{s}

	for _, a := range ifAbbreviations {
		if strings.HasPrefix(s, a.long) {
			keys = append(keys, a.short+strings.TrimPrefix(s, a.long))
			break
		}
	}

	return keys
}

func setOnce(m map[string]string, k, v string) {
	if _, ok := m[k]; !ok {
		m[k] = v
	}
}

func setIfaceOnce(m map[string]models.Interface, k string, v models.Interface) {
	if _, ok := m[k]; !ok {
		m[k] = v
	}
}
