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
	"bytes"
	"fmt"
	"net"
	"strings"

	"github.com/carverauto/netdiscovery/pkg/logger"
	"github.com/carverauto/netdiscovery/pkg/snmp"
)

// /31 and /32 have no network or broadcast address to skip
const defaultBroadCastMask = 31

func (t *TargetConfig) validate() error {
	set := 0

	for _, s := range []string{t.Address, t.Range, t.CIDR} {
		if s != "" {
			set++
		}
	}

	if set != 1 {
		return fmt.Errorf("%w: exactly one of address, range or cidr is required", ErrInvalidTarget)
	}

	switch {
	case t.Address != "":
		if net.ParseIP(strings.TrimSpace(t.Address)) == nil {
			return fmt.Errorf("%w: bad address %q", ErrInvalidTarget, t.Address)
		}
	case t.Range != "":
		if _, _, err := parseRange(t.Range); err != nil {
			return err
		}
	default:
		if _, _, err := net.ParseCIDR(strings.TrimSpace(t.CIDR)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
	}

	return nil
}

// ExpandTargets turns the configured target list into device targets with
// resolved credentials and intervals. Duplicate addresses keep their first
// occurrence.
func ExpandTargets(cfg *Config, log logger.Logger) []DeviceTarget {
	seen := make(map[string]bool)

	var out []DeviceTarget

	for i := range cfg.Targets {
		tc := &cfg.Targets[i]

		var addrs []string

		switch {
		case tc.Address != "":
			addrs = processSingleIP(tc.Address, seen)
		case tc.Range != "":
			addrs = expandRange(tc.Range, cfg.MaxTargetsPerRange, seen, log)
		default:
			addrs = expandCIDR(tc.CIDR, cfg.MaxTargetsPerRange, seen, log)
		}

		interval := cfg.PollInterval.Std()
		if tc.PollInterval > 0 {
			interval = tc.PollInterval.Std()
		}

		for _, addr := range addrs {
			creds := resolveCredentials(&cfg.Credentials, tc, addr)

			dt := DeviceTarget{
				Address:      addr,
				Port:         tc.Port,
				Credentials:  creds,
				PollInterval: interval,
			}

			if err := creds.Validate(); err != nil {
				dt.CredentialsErr = fmt.Errorf("%w: %w", ErrConfig, err)
			}

			out = append(out, dt)
		}
	}

	return out
}

// resolveCredentials picks the per-target override, then the most specific
// matching credential set, then the default.
func resolveCredentials(cc *CredentialsConfig, tc *TargetConfig, addr string) snmp.Credentials {
	if tc.Credentials != nil {
		return *tc.Credentials
	}

	ip := net.ParseIP(addr)
	best := -1
	bestOnes := -1

	for i := range cc.Sets {
		_, ipNet, err := net.ParseCIDR(cc.Sets[i].CIDR)
		if err != nil || ip == nil || !ipNet.Contains(ip) {
			continue
		}

		if ones, _ := ipNet.Mask.Size(); ones > bestOnes {
			best, bestOnes = i, ones
		}
	}

	if best >= 0 {
		return cc.Sets[best].Credentials
	}

	return cc.Default
}

func processSingleIP(addr string, seen map[string]bool) []string {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return nil
	}

	s := ip.String()
	if seen[s] {
		return nil
	}

	seen[s] = true

	return []string{s}
}

// parseRange accepts "10.0.1.1-10.0.1.20" and the short "10.0.1.1-20".
func parseRange(r string) (net.IP, net.IP, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(r), "-")
	if !ok {
		return nil, nil, fmt.Errorf("%w: range %q has no '-'", ErrInvalidTarget, r)
	}

	start := net.ParseIP(strings.TrimSpace(lo))
	if start == nil {
		return nil, nil, fmt.Errorf("%w: bad range start %q", ErrInvalidTarget, lo)
	}

	hi = strings.TrimSpace(hi)
	end := net.ParseIP(hi)

	if end == nil && start.To4() != nil {
		// short form replaces the last octet
		if i := strings.LastIndexByte(start.String(), '.'); i > 0 {
			end = net.ParseIP(start.String()[:i+1] + hi)
		}
	}

	if end == nil {
		return nil, nil, fmt.Errorf("%w: bad range end %q", ErrInvalidTarget, hi)
	}

	if v4 := start.To4(); v4 != nil {
		start = v4
		end = end.To4()
	}

	if end == nil || len(start) != len(end) || bytes.Compare(start, end) > 0 {
		return nil, nil, fmt.Errorf("%w: range %q is empty or mixes families", ErrInvalidTarget, r)
	}

	return start, end, nil
}

func expandRange(r string, limit int, seen map[string]bool, log logger.Logger) []string {
	start, end, err := parseRange(r)
	if err != nil {
		log.Warn().Err(err).Str("range", r).Msg("Skipping invalid target range")
		return nil
	}

	var targets []string

	ip := make(net.IP, len(start))
	copy(ip, start)

	for count := 0; bytes.Compare(ip, end) <= 0; incrementIP(ip) {
		if count >= limit {
			log.Warn().Str("range", r).Int("limit", limit).Msg("Target range too large, limiting scan")
			break
		}

		s := ip.String()
		if !seen[s] {
			targets = append(targets, s)
			seen[s] = true
			count++
		}

		if ip.Equal(end) {
			break
		}
	}

	return targets
}

func incrementIP(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++

		if ip[j] > 0 {
			break
		}
	}
}

// expandCIDR expands a subnet into host addresses, skipping the network and
// broadcast addresses of IPv4 subnets larger than /31.
func expandCIDR(cidr string, limit int, seen map[string]bool, log logger.Logger) []string {
	ip, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
	if err != nil {
		log.Warn().Err(err).Str("cidr", cidr).Msg("Skipping invalid CIDR")
		return nil
	}

	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	ones, _ := ipNet.Mask.Size()
	skipEdges := ip.To4() != nil && ones < defaultBroadCastMask

	network := ip.Mask(ipNet.Mask)
	broadcast := make(net.IP, len(network))

	for i := range network {
		broadcast[i] = network[i] | ^ipNet.Mask[i]
	}

	var targets []string

	cur := make(net.IP, len(network))
	copy(cur, network)

	for count := 0; ipNet.Contains(cur); incrementIP(cur) {
		if skipEdges && (cur.Equal(network) || cur.Equal(broadcast)) {
			continue
		}

		if count >= limit {
			log.Warn().Str("cidr", cidr).Int("limit", limit).Msg("CIDR range too large, limiting scan")
			break
		}

		s := cur.String()
		if !seen[s] {
			targets = append(targets, s)
			seen[s] = true
			count++
		}

		if cur.Equal(broadcast) {
			break
		}
	}

	return targets
}
