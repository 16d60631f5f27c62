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

package snmp

import (
	"fmt"
	"strconv"
	"strings"
)

// OID is an object identifier held as its numeric arcs. All ordering and
// subtree tests work on the arcs, never on the dotted text, so .1.10 sorts
// after .1.9.
type OID []uint32

// ParseOID parses a dotted identifier; a leading dot is optional.
func ParseOID(s string) (OID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), ".")
	if s == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrMalformedMessage)
	}

	parts := strings.Split(s, ".")
	oid := make(OID, len(parts))

	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: identifier %q arc %d: %w", ErrMalformedMessage, s, i, err)
		}

		oid[i] = uint32(n)
	}

	return oid, nil
}

// MustParseOID is ParseOID for package-level constants.
func MustParseOID(s string) OID {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}

	return oid
}

// String renders the identifier in the leading-dot form gosnmp expects.
func (o OID) String() string {
	var b strings.Builder

	for _, arc := range o {
		b.WriteByte('.')
		b.WriteString(strconv.FormatUint(uint64(arc), 10))
	}

	return b.String()
}

// Compare orders identifiers arc by arc; a proper prefix sorts first.
func (o OID) Compare(other OID) int {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}

	for i := 0; i < n; i++ {
		switch {
		case o[i] < other[i]:
			return -1
		case o[i] > other[i]:
			return 1
		}
	}

	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	default:
		return 0
	}
}

// Equal reports whether both identifiers have the same arcs.
func (o OID) Equal(other OID) bool {
	return o.Compare(other) == 0
}

// HasPrefix reports whether prefix is o itself or one of its ancestors.
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix) > len(o) {
		return false
	}

	for i, arc := range prefix {
		if o[i] != arc {
			return false
		}
	}

	return true
}

// Contains reports whether other lies strictly inside the subtree rooted at o.
func (o OID) Contains(other OID) bool {
	return len(other) > len(o) && other.HasPrefix(o)
}

// Suffix returns the arcs after prefix, or nil when prefix does not match.
func (o OID) Suffix(prefix OID) OID {
	if !o.HasPrefix(prefix) {
		return nil
	}

	return o[len(prefix):]
}

// Append returns a new identifier with arcs added; o is never modified.
func (o OID) Append(arcs ...uint32) OID {
	out := make(OID, 0, len(o)+len(arcs))
	out = append(out, o...)

	return append(out, arcs...)
}
