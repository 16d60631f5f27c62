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

package models

import (
	"encoding/hex"
	"net"
	"strings"
)

// FormatMAC renders six raw bytes as aa:bb:cc:dd:ee:ff. Other lengths return "".
func FormatMAC(b []byte) string {
	if len(b) != 6 {
		return ""
	}

	return net.HardwareAddr(b).String()
}

// NormalizeMAC accepts colon, dash, Cisco dotted and bare hex notations and
// returns the lower-case colon form.
func NormalizeMAC(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if len(s) == 12 {
		if b, err := hex.DecodeString(s); err == nil {
			return FormatMAC(b), true
		}
	}

	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return "", false
	}

	return hw.String(), true
}

// IsZeroMAC reports the all-zero address some agents return for unset ports.
func IsZeroMAC(mac string) bool {
	return mac == "00:00:00:00:00:00"
}
