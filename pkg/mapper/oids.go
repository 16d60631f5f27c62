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

import "github.com/carverauto/netdiscovery/pkg/snmp"

//nolint:gochecknoglobals // MIB object identifiers
var (
	// SNMPv2-MIB system group
	oidSysDescr    = snmp.MustParseOID(".1.3.6.1.2.1.1.1.0")
	oidSysObjectID = snmp.MustParseOID(".1.3.6.1.2.1.1.2.0")
	oidSysUpTime   = snmp.MustParseOID(".1.3.6.1.2.1.1.3.0")
	oidSysContact  = snmp.MustParseOID(".1.3.6.1.2.1.1.4.0")
	oidSysName     = snmp.MustParseOID(".1.3.6.1.2.1.1.5.0")
	oidSysLocation = snmp.MustParseOID(".1.3.6.1.2.1.1.6.0")

	oidLLDPLocChassisID = snmp.MustParseOID(".1.0.8802.1.1.2.1.3.2.0")
	oidEntModelName     = snmp.MustParseOID(".1.3.6.1.2.1.47.1.1.1.1.13.1")
	oidEntSerialNum     = snmp.MustParseOID(".1.3.6.1.2.1.47.1.1.1.1.11.1")

	// IF-MIB ifEntry; columns are the next arc
	oidIfEntry = snmp.MustParseOID(".1.3.6.1.2.1.2.2.1")
	// IF-MIB ifXEntry columns
	oidIfName      = snmp.MustParseOID(".1.3.6.1.2.1.31.1.1.1.1")
	oidIfHighSpeed = snmp.MustParseOID(".1.3.6.1.2.1.31.1.1.1.15")
	oidIfAlias     = snmp.MustParseOID(".1.3.6.1.2.1.31.1.1.1.18")

	// BRIDGE-MIB and Q-BRIDGE-MIB
	oidDot1dBasePortIfIndex = snmp.MustParseOID(".1.3.6.1.2.1.17.1.4.1.2")
	oidDot1dTpFdbPort       = snmp.MustParseOID(".1.3.6.1.2.1.17.4.3.1.2")
	oidDot1dTpFdbStatus     = snmp.MustParseOID(".1.3.6.1.2.1.17.4.3.1.3")
	oidDot1qTpFdbPort       = snmp.MustParseOID(".1.3.6.1.2.1.17.7.1.2.2.1.2")

	// LLDP-MIB
	oidLLDPLocPortEntry = snmp.MustParseOID(".1.0.8802.1.1.2.1.3.7.1")
	oidLLDPRemEntry     = snmp.MustParseOID(".1.0.8802.1.1.2.1.4.1.1")
	oidLLDPRemManAddrIf = snmp.MustParseOID(".1.0.8802.1.1.2.1.4.2.1.3")

	// CISCO-CDP-MIB cdpCacheEntry
	oidCDPCacheEntry = snmp.MustParseOID(".1.3.6.1.4.1.9.9.23.1.2.1.1")

	oidEnterprises = snmp.MustParseOID(".1.3.6.1.4.1")
)

// ifEntry columns
const (
	ifColDescr       = 2
	ifColType        = 3
	ifColMtu         = 4
	ifColSpeed       = 5
	ifColPhysAddress = 6
	ifColAdminStatus = 7
	ifColOperStatus  = 8
	ifColLastChange  = 9
)

// lldpLocPortEntry columns
const (
	lldpLocColPortID   = 3
	lldpLocColPortDesc = 4
)

// lldpRemEntry columns
const (
	lldpRemColChassisIDSubtype = 4
	lldpRemColChassisID        = 5
	lldpRemColPortIDSubtype    = 6
	lldpRemColPortID           = 7
	lldpRemColPortDesc         = 8
	lldpRemColSysName          = 9
)

// cdpCacheEntry columns
const (
	cdpColAddressType = 3
	cdpColAddress     = 4
	cdpColDeviceID    = 6
	cdpColDevicePort  = 7
)

const (
	// ifSpeed saturates at this value; the real rate is in ifHighSpeed.
	ifSpeedSentinel = 4294967295
	fdbStatusSelf   = 4
	cdpAddressIP    = 1
	// IANA address family numbers used by LLDP management addresses
	addrFamilyIPv4 = 1
	addrFamilyIPv6 = 2
)

//nolint:gochecknoglobals // enterprise number lookup
var enterpriseVendors = map[uint32]string{
	9:     "Cisco",
	11:    "HP",
	674:   "Dell",
	1916:  "Extreme",
	2011:  "Huawei",
	2636:  "Juniper",
	6527:  "Nokia",
	12356: "Fortinet",
	14988: "MikroTik",
	25506: "H3C",
	30065: "Arista",
	41112: "Ubiquiti",
}
