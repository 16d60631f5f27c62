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
	"encoding/binary"
	"encoding/hex"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/models"
	"github.com/carverauto/netdiscovery/pkg/snmp"
	"github.com/carverauto/netdiscovery/pkg/topology"
)

// coerceUint turns any numeric-looking value into an unsigned integer.
// Agents disagree on types for the same column, so every Kind is handled and
// anything unexpected is logged before giving up.
func coerceUint(log logger.Logger, vb snmp.VarBind) (uint64, bool) {
	v := vb.Value

	switch v.Kind {
	case snmp.KindInteger, snmp.KindUnsigned, snmp.KindCounter, snmp.KindTimeTicks:
		return v.Uint()
	case snmp.KindOctetString, snmp.KindOpaque, snmp.KindUnknown:
		b := v.Bytes()

		if s := strings.TrimSpace(string(b)); s != "" && utf8.ValidString(s) {
			if n, err := strconv.ParseUint(s, 10, 64); err == nil {
				logCoerced(log, vb, "decimal string")
				return n, true
			}
		}

		switch len(b) {
		case 4:
			logCoerced(log, vb, "big-endian uint32")
			return uint64(binary.BigEndian.Uint32(b)), true
		case 8:
			logCoerced(log, vb, "big-endian uint64")
			return binary.BigEndian.Uint64(b), true
		}
	case snmp.KindObjectIdentifier, snmp.KindIPAddress:
	case snmp.KindNull, snmp.KindNoSuchObject, snmp.KindNoSuchInstance, snmp.KindEndOfMibView:
		return 0, false
	}

	log.Debug().
		Str("oid", vb.OID.String()).
		Str("kind", v.Kind.String()).
		Msg("Value is not numeric")

	return 0, false
}

// coerceInt is coerceUint for signed columns such as status enumerations.
func coerceInt(log logger.Logger, vb snmp.VarBind) (int64, bool) {
	if n, ok := vb.Value.Int(); ok {
		return n, true
	}

	u, ok := coerceUint(log, vb)
	if !ok || u > math.MaxInt64 {
		return 0, false
	}

	return int64(u), true
}

func logCoerced(log logger.Logger, vb snmp.VarBind, how string) {
	log.Debug().
		Str("oid", vb.OID.String()).
		Str("kind", vb.Value.Kind.String()).
		Str("as", how).
		Msg("Coerced non-numeric value")
}

// displayString renders a value meant to be text, trimming the NUL padding
// some agents append.
func displayString(v snmp.Value) string {
	if !v.Present() {
		return ""
	}

	if v.Kind == snmp.KindOctetString {
		b := v.Bytes()
		if utf8.Valid(b) {
			return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
		}
	}

	return v.String()
}

func clampInt32(n int64) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	default:
		return int32(n)
	}
}

func printable(b []byte) bool {
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}

	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// formatChassisID renders an LLDP chassis id by subtype: MAC addresses in
// colon form, network addresses as IP, everything else as text when
// printable and hex otherwise.
func formatChassisID(subtype int, b []byte) string {
	switch subtype {
	case topology.ChassisMACAddress:
		if mac := models.FormatMAC(b); mac != "" {
			return mac
		}
	case topology.ChassisNetAddress:
		if ip := formatNetworkAddress(b); ip != "" {
			return ip
		}
	}

	return formatLLDPID(b)
}

func formatPortID(subtype int, b []byte) string {
	switch subtype {
	case topology.PortMACAddress:
		if mac := models.FormatMAC(b); mac != "" {
			return mac
		}
	case topology.PortNetAddress:
		if ip := formatNetworkAddress(b); ip != "" {
			return ip
		}
	}

	return formatLLDPID(b)
}

// formatLLDPID is the subtype-agnostic fallback: six unprintable bytes are a
// MAC, printable bytes are text.
func formatLLDPID(b []byte) string {
	if printable(b) {
		return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
	}

	if mac := models.FormatMAC(b); mac != "" {
		return mac
	}

	return hex.EncodeToString(b)
}

// formatNetworkAddress decodes an IANA family byte followed by the address.
func formatNetworkAddress(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	switch {
	case b[0] == addrFamilyIPv4 && len(b) == 1+net.IPv4len:
		return net.IP(b[1:]).String()
	case b[0] == addrFamilyIPv6 && len(b) == 1+net.IPv6len:
		return net.IP(b[1:]).String()
	}

	return ""
}

// vendorFromObjectID maps the enterprise arc of sysObjectID to a vendor name.
func vendorFromObjectID(oid snmp.OID) string {
	suffix := oid.Suffix(oidEnterprises)
	if len(suffix) == 0 {
		return ""
	}

	if v, ok := enterpriseVendors[suffix[0]]; ok {
		return v
	}

	return "enterprise-" + strconv.FormatUint(uint64(suffix[0]), 10)
}

//nolint:gochecknoglobals // compiled once
var osVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bversion\s+([0-9][\w.()\-]*)`),
	regexp.MustCompile(`(?i)\bJUNOS\s+([0-9][\w.\-]*)`),
	regexp.MustCompile(`(?i)\bRouterOS\s+v?([0-9][\w.\-]*)`),
	regexp.MustCompile(`(?i)\bEOS\s+([0-9][\w.\-]*)`),
}

// osVersionFromDescr extracts the software version from sysDescr.
func osVersionFromDescr(descr string) string {
	for _, re := range osVersionPatterns {
		if m := re.FindStringSubmatch(descr); m != nil {
			return strings.TrimRight(m[1], ",.")
		}
	}

	return ""
}

//nolint:gochecknoglobals // compiled once
var modelPattern = regexp.MustCompile(`(?i)\b(?:cisco|juniper|arista|routerboard|huawei)\s+([A-Z0-9][\w\-]+)`)

// modelFromDescr is used when ENTITY-MIB has no model name.
func modelFromDescr(descr string) string {
	m := modelPattern.FindStringSubmatch(descr)
	if m == nil {
		return ""
	}

	switch strings.ToLower(m[1]) {
	case "ios", "nx-os", "internetwork", "adaptive", "systems", "networks", "jun", "routeros", "eos":
		return ""
	}

	return m[1]
}
